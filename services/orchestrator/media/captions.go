// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package media

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// captionTimeout bounds the subtitle download. Subtitle files are tiny;
// most of this budget covers the tool's own network negotiation.
const captionTimeout = 45 * time.Second

// videoIDPatterns extract the video ID from the URL shapes YouTube uses.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`/shorts/([A-Za-z0-9_-]{6,})`),
}

// vttCueTag matches inline styling tags in VTT cue text, e.g. <c> or
// <00:00:01.000>.
var vttCueTag = regexp.MustCompile(`<[^>]*>`)

// CaptionExtractor pulls closed captions for a video URL via the external
// media tool.
type CaptionExtractor struct {
	binary string
	runner CommandRunner
}

// NewCaptionExtractor mirrors NewResolver's binary lookup.
func NewCaptionExtractor(binary string, runner CommandRunner) *CaptionExtractor {
	if binary == "" {
		binary = os.Getenv("YTDLP_PATH")
	}
	if binary == "" {
		binary = "yt-dlp"
	}
	if runner == nil {
		runner = NewExecRunner()
	}
	return &CaptionExtractor{binary: binary, runner: runner}
}

// Extract downloads auto-generated English captions and returns the plain
// text transcript plus the temp directory holding the subtitle files.
//
// # Description
//
// The URL is normalized to the bare video (playlist parameters dropped)
// before extraction. The caller owns tempDir and must schedule its
// deletion; it is returned even alongside an error whenever it was
// created, so cleanup never leaks.
//
// Failures are MediaErrors: tool_unavailable when the binary is missing,
// metadata_fetch when the tool fails, no_captions when no subtitle file
// or no usable text was produced.
func (c *CaptionExtractor) Extract(ctx context.Context, url string) (transcript string, tempDir string, err error) {
	ctx, span := mediaTracer.Start(ctx, "CaptionExtractor.Extract")
	defer span.End()
	span.SetAttributes(attribute.String("media.url", url))

	if err := c.runner.LookPath(c.binary); err != nil {
		span.SetStatus(codes.Error, "tool unavailable")
		return "", "", &MediaError{Kind: KindToolUnavailable, Op: "captions", Err: err}
	}

	videoID := extractVideoID(url)
	if videoID != "" {
		url = "https://www.youtube.com/watch?v=" + videoID
	}

	tempDir, err = os.MkdirTemp("", "aegis-subs-*")
	if err != nil {
		return "", "", &MediaError{Kind: KindMetadataFetch, Op: "captions", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, captionTimeout)
	defer cancel()

	_, err = c.runner.Run(ctx, c.binary,
		"--write-auto-subs",
		"--sub-langs", "en",
		"--sub-format", "vtt",
		"--skip-download",
		"--no-playlist",
		"-o", filepath.Join(tempDir, "%(id)s"),
		url,
	)
	if err != nil {
		span.RecordError(err)
		return "", tempDir, &MediaError{Kind: KindMetadataFetch, Op: "captions", Err: err}
	}

	subtitlePath := findSubtitleFile(tempDir)
	if subtitlePath == "" {
		span.SetStatus(codes.Error, "no subtitle file")
		return "", tempDir, &MediaError{Kind: KindNoCaptions, Op: "captions"}
	}

	transcript, err = parseSubtitleFile(subtitlePath)
	if err != nil {
		return "", tempDir, &MediaError{Kind: KindNoCaptions, Op: "captions", Err: err}
	}
	if strings.TrimSpace(transcript) == "" {
		return "", tempDir, &MediaError{Kind: KindNoCaptions, Op: "captions"}
	}

	span.SetAttributes(attribute.Int("captions.chars", len(transcript)))
	return transcript, tempDir, nil
}

// extractVideoID pulls the video ID out of a YouTube URL, or "" when no
// pattern matches.
func extractVideoID(url string) string {
	for _, pattern := range videoIDPatterns {
		if match := pattern.FindStringSubmatch(url); match != nil {
			return match[1]
		}
	}
	return ""
}

// findSubtitleFile returns the first .vtt or .srt file in dir.
func findSubtitleFile(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".vtt") || strings.HasSuffix(name, ".srt") {
			return filepath.Join(dir, name)
		}
	}
	return ""
}

// parseSubtitleFile reduces a VTT or SRT file to plain transcript text,
// dropping headers, cue timings, sequence numbers, and inline tags.
// Consecutive duplicate lines (common in auto-generated rolling captions)
// are collapsed.
func parseSubtitleFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	isSRT := strings.HasSuffix(path, ".srt")

	var lines []string
	var previous string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.Contains(line, "-->"):
			continue
		case strings.HasPrefix(line, "WEBVTT"),
			strings.HasPrefix(line, "Kind:"),
			strings.HasPrefix(line, "Language:"):
			continue
		case isSRT && isDigits(line):
			continue
		}
		line = strings.TrimSpace(vttCueTag.ReplaceAllString(line, ""))
		if line == "" || line == previous {
			continue
		}
		lines = append(lines, line)
		previous = line
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
