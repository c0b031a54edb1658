// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package media resolves and fetches remote media through an external
// extraction tool (yt-dlp).
//
// # Description
//
// Social platforms hide whether a post URL points at an image or a video,
// and the asset itself sits behind redirects and signed CDN URLs. This
// package answers two questions for the verification pipeline: what kind
// of asset a URL references (image vs video), and where a local copy of
// it lives. Resolution is metadata-first: a probe with no download
// classifies the asset, then a bounded download fetches it into a fresh
// temp directory the caller owns.
//
// # Thread Safety
//
// Resolver and CaptionExtractor are stateless after construction and safe
// for concurrent use.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var mediaTracer = otel.Tracer("aegis.orchestrator.media")

// =============================================================================
// Types
// =============================================================================

// Type classifies the asset behind a URL.
type Type string

const (
	TypeImage Type = "image"
	TypeVideo Type = "video"
)

// Resolved describes a fetched asset. TempDir is owned by the caller,
// which must schedule its deletion after use — including on the error
// paths of later pipeline stages.
type Resolved struct {
	Type      Type
	LocalPath string
	TempDir   string
}

// Timeouts for the two tool invocations. The probe is metadata-only and
// cheap; the download moves real bytes.
const (
	probeTimeout    = 30 * time.Second
	downloadTimeout = 60 * time.Second
)

// imageExtensions and videoExtensions are the extension allow-lists
// consulted before codec inspection.
var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true,
	"webp": true, "bmp": true,
}

var videoExtensions = map[string]bool{
	"mp4": true, "mov": true, "avi": true, "mkv": true,
	"webm": true, "m4v": true,
}

// probeMetadata is the subset of the tool's JSON output the classifier
// needs.
type probeMetadata struct {
	Ext     string        `json:"ext"`
	VCodec  string        `json:"vcodec"`
	ACodec  string        `json:"acodec"`
	Formats []probeFormat `json:"formats"`
}

type probeFormat struct {
	VCodec string `json:"vcodec"`
	ACodec string `json:"acodec"`
}

// =============================================================================
// Resolver
// =============================================================================

// Resolver determines whether a URL references an image or a video and
// obtains a local copy for verification.
type Resolver struct {
	binary string
	runner CommandRunner
}

// NewResolver creates a Resolver using the given tool binary. An empty
// binary falls back to the YTDLP_PATH environment variable and then to
// "yt-dlp" on the PATH.
func NewResolver(binary string, runner CommandRunner) *Resolver {
	if binary == "" {
		binary = os.Getenv("YTDLP_PATH")
	}
	if binary == "" {
		binary = "yt-dlp"
	}
	if runner == nil {
		runner = NewExecRunner()
	}
	return &Resolver{binary: binary, runner: runner}
}

// Resolve probes, classifies, and downloads the asset behind url.
//
// # Description
//
// Fails with a MediaError whose kind tells the caller how to degrade:
//
//   - tool_unavailable: the binary is missing; fall back to direct-URL
//     verification.
//   - metadata_fetch: the probe exited non-zero or exceeded 30s.
//   - download: the download exited non-zero or exceeded 60s.
//   - no_file_produced: the download succeeded but wrote nothing.
//
// On success the caller owns Resolved.TempDir and must delete it after
// use. On failure no temp directory survives.
func (r *Resolver) Resolve(ctx context.Context, url string) (*Resolved, error) {
	ctx, span := mediaTracer.Start(ctx, "Resolver.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("media.url", url))

	if err := r.runner.LookPath(r.binary); err != nil {
		span.SetStatus(codes.Error, "tool unavailable")
		return nil, &MediaError{Kind: KindToolUnavailable, Op: "resolve", Err: err}
	}

	meta, err := r.probe(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "probe failed")
		return nil, err
	}

	mediaType := classifyMetadata(meta)
	span.SetAttributes(attribute.String("media.type", string(mediaType)))
	slog.Info("Classified remote media", "url", url, "type", mediaType, "ext", meta.Ext)

	resolved, err := r.download(ctx, url, mediaType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "download failed")
		return nil, err
	}
	return resolved, nil
}

// probe queries the tool for metadata only, with a bounded timeout.
func (r *Resolver) probe(ctx context.Context, url string) (*probeMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := r.runner.Run(ctx, r.binary, "-J", "--no-download", "--no-playlist", url)
	if err != nil {
		return nil, &MediaError{Kind: KindMetadataFetch, Op: "probe", Err: err}
	}

	var meta probeMetadata
	if err := json.Unmarshal(out, &meta); err != nil {
		return nil, &MediaError{Kind: KindMetadataFetch, Op: "probe", Err: fmt.Errorf("unparseable metadata: %w", err)}
	}
	return &meta, nil
}

// classifyMetadata decides image vs video from probe output.
//
// Extension wins when it is on an allow-list. Otherwise codec metadata is
// inspected across all formats: any non-"none" video codec means video;
// neither an audio nor a video codec anywhere means image; anything else
// defaults to video.
func classifyMetadata(meta *probeMetadata) Type {
	ext := strings.ToLower(strings.TrimSpace(meta.Ext))
	if imageExtensions[ext] {
		return TypeImage
	}
	if videoExtensions[ext] {
		return TypeVideo
	}

	hasVideoCodec := codecPresent(meta.VCodec)
	hasAudioCodec := codecPresent(meta.ACodec)
	for _, format := range meta.Formats {
		hasVideoCodec = hasVideoCodec || codecPresent(format.VCodec)
		hasAudioCodec = hasAudioCodec || codecPresent(format.ACodec)
	}

	switch {
	case hasVideoCodec:
		return TypeVideo
	case !hasAudioCodec:
		return TypeImage
	default:
		return TypeVideo
	}
}

func codecPresent(codec string) bool {
	codec = strings.ToLower(strings.TrimSpace(codec))
	return codec != "" && codec != "none"
}

// download fetches the asset into a fresh temp directory.
func (r *Resolver) download(ctx context.Context, url string, mediaType Type) (*Resolved, error) {
	tempDir, err := os.MkdirTemp("", "aegis-media-*")
	if err != nil {
		return nil, &MediaError{Kind: KindDownload, Op: "download", Err: err}
	}

	args := []string{"--no-playlist", "-o", filepath.Join(tempDir, "%(id)s.%(ext)s")}
	if mediaType == TypeImage {
		// Lossless/best single file for still images.
		args = append(args, "-f", "best")
	} else {
		// Best video+audio, merged into an MP4-compatible container.
		args = append(args, "-f", "bv*+ba/b", "--merge-output-format", "mp4")
	}
	args = append(args, url)

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	if _, err := r.runner.Run(ctx, r.binary, args...); err != nil {
		os.RemoveAll(tempDir)
		return nil, &MediaError{Kind: KindDownload, Op: "download", Err: err}
	}

	localPath, err := firstFileIn(tempDir)
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, &MediaError{Kind: KindNoFileProduced, Op: "download", Err: err}
	}

	return &Resolved{Type: mediaType, LocalPath: localPath, TempDir: tempDir}, nil
}

// firstFileIn returns the first regular file in dir, or an error when the
// directory is empty.
func firstFileIn(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("no file produced in %s", dir)
}
