// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aegislabs/aegis/services/llm"
	"github.com/aegislabs/aegis/services/orchestrator/datatypes"
	"github.com/aegislabs/aegis/services/orchestrator/media"
)

// =============================================================================
// URL Routing
// =============================================================================

// youtubeHosts route a URL item to the caption based YouTube path.
var youtubeHosts = map[string]bool{
	"youtube.com":     true,
	"www.youtube.com": true,
	"m.youtube.com":   true,
	"youtu.be":        true,
}

// socialHosts route a URL item through the media resolver. The suffix is
// matched against the host so country subdomains work too.
var socialHosts = []string{
	"instagram.com",
	"facebook.com",
	"tiktok.com",
	"x.com",
	"twitter.com",
	"reddit.com",
}

// directImageExtensions classify a direct media URL by its path extension.
var directImageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true,
}

func isYouTubeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return youtubeHosts[strings.ToLower(u.Hostname())]
}

func isSocialURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, social := range socialHosts {
		if host == social || strings.HasSuffix(host, "."+social) {
			return true
		}
	}
	return false
}

// =============================================================================
// Dispatch
// =============================================================================

// dispatch routes one item to its verifier and returns the item's result.
// Every failure path returns a degraded error result; dispatch never
// propagates an error to the batch loop.
func (s *VerificationService) dispatch(
	ctx context.Context,
	item datatypes.VerificationItem,
	claimContext string,
	claimDate string,
	cleanup *CleanupList,
) datatypes.VerificationResult {
	switch item.Kind {
	case datatypes.ItemKindText:
		return s.verifyText(ctx, item.Text, item.Source, claimContext, claimDate)
	case datatypes.ItemKindImage:
		return s.verifyImage(ctx, item.FilePath, "", item.Source, claimContext, claimDate)
	case datatypes.ItemKindVideo:
		return s.verifyVideo(ctx, item.FilePath, "", item.Source, claimContext, claimDate)
	case datatypes.ItemKindAudio:
		return s.verifyAudio(ctx, item)
	case datatypes.ItemKindURL:
		return s.verifyURL(ctx, item, claimContext, claimDate, cleanup)
	default:
		s.logger.Warn("Unroutable item kind", "kind", item.Kind)
		return datatypes.ErrorResult(item.Source, "This content type is not supported.")
	}
}

// verifyText checks a textual claim, consulting the verdict cache first.
func (s *VerificationService) verifyText(
	ctx context.Context,
	claim string,
	source datatypes.Source,
	claimContext string,
	claimDate string,
) datatypes.VerificationResult {
	key := cacheKey("text", claim, claimContext, claimDate)
	if cached, ok := s.cacheGet(key); ok {
		cached.Source = source
		return cached
	}

	if s.text == nil {
		return datatypes.ErrorResult(source, "Text verification is not available.")
	}
	result, err := s.text.Verify(ctx, claim, claimContext, claimDate)
	if err != nil {
		s.logger.Error("Text verification failed", "error", err)
		return datatypes.ErrorResult(source, "Text verification failed. Please try again later.")
	}
	result.Source = source
	s.cacheSet(key, result)
	return result
}

func (s *VerificationService) verifyImage(
	ctx context.Context,
	filePath string,
	fileURL string,
	source datatypes.Source,
	claimContext string,
	claimDate string,
) datatypes.VerificationResult {
	if s.image == nil {
		return datatypes.ErrorResult(source, "Image verification is not available.")
	}
	result, err := s.image.Verify(ctx, filePath, fileURL, claimContext, claimDate)
	if err != nil {
		s.logger.Error("Image verification failed", "error", err)
		return datatypes.ErrorResult(source, "Image verification failed. Please try again later.")
	}
	result.Source = source
	return result
}

func (s *VerificationService) verifyVideo(
	ctx context.Context,
	filePath string,
	fileURL string,
	source datatypes.Source,
	claimContext string,
	claimDate string,
) datatypes.VerificationResult {
	if s.video == nil {
		return datatypes.ErrorResult(source, "Video verification is not available.")
	}
	result, err := s.video.Verify(ctx, filePath, fileURL, claimContext, claimDate)
	if err != nil {
		s.logger.Error("Video verification failed", "error", err)
		return datatypes.ErrorResult(source, "Video verification failed. Please try again later.")
	}
	result.Source = source
	return result
}

// verifyAudio runs deepfake detection and phrases the finding for the
// user. The LLM phrasing is cosmetic; when it fails, a fixed template
// carries the same finding.
func (s *VerificationService) verifyAudio(
	ctx context.Context,
	item datatypes.VerificationItem,
) datatypes.VerificationResult {
	if s.audio == nil {
		return datatypes.ErrorResult(item.Source, "Audio verification is not available.")
	}
	isDeepfake, err := s.audio.IsDeepfake(ctx, item.FilePath)
	if err != nil {
		s.logger.Error("Audio classification failed", "file", item.FileName, "error", err)
		return datatypes.ErrorResult(item.Source, "Audio verification failed. Please try again later.")
	}

	verified := !isDeepfake
	message := s.phraseAudioFinding(ctx, item.FileName, isDeepfake)
	return datatypes.VerificationResult{
		Verified: &verified,
		Message:  message,
		Source:   item.Source,
		Details: map[string]any{
			"filename":    item.FileName,
			"is_deepfake": isDeepfake,
		},
	}
}

// phraseAudioFinding asks the LLM for a one-sentence explanation of the
// classifier's finding, falling back to a fixed sentence.
func (s *VerificationService) phraseAudioFinding(ctx context.Context, fileName string, isDeepfake bool) string {
	fallback := "No signs of manipulation were detected in this audio."
	if isDeepfake {
		fallback = "This audio is likely AI-generated or manipulated."
	}
	if s.llmChat == nil {
		return fallback
	}

	finding := "authentic"
	if isDeepfake {
		finding = "AI-generated or manipulated"
	}
	prompt := fmt.Sprintf(
		"A deepfake detector classified the audio file %q as %s. "+
			"Write one short, plain sentence telling the user this finding. "+
			"Do not speculate beyond the classification.",
		fileName, finding,
	)
	temp := float32(0.2)
	maxTokens := 80
	phrased, err := s.llmChat.Generate(ctx, prompt, llm.GenerationParams{Temperature: &temp, MaxTokens: &maxTokens})
	if err != nil || strings.TrimSpace(phrased) == "" {
		if err != nil {
			s.logger.Warn("Audio phrasing fell back to template", "error", err)
		}
		return fallback
	}
	return strings.TrimSpace(phrased)
}

// verifyURL routes a URL item: YouTube links go through the caption
// pipeline, social posts through the media resolver, everything else is
// treated as a direct media link.
func (s *VerificationService) verifyURL(
	ctx context.Context,
	item datatypes.VerificationItem,
	claimContext string,
	claimDate string,
	cleanup *CleanupList,
) datatypes.VerificationResult {
	key := cacheKey("url", item.URL, claimContext, claimDate)
	if cached, ok := s.cacheGet(key); ok {
		cached.Source = item.Source
		return cached
	}

	var result datatypes.VerificationResult
	switch {
	case isYouTubeURL(item.URL):
		result = s.verifyYouTube(ctx, item.URL, claimContext, claimDate, cleanup)
	case isSocialURL(item.URL):
		result = s.verifySocialURL(ctx, item, claimContext, claimDate, cleanup)
	default:
		result = s.verifyDirectURL(ctx, item, claimContext, claimDate)
	}

	if datatypes.NormalizeVerdict(result.Verdict) != datatypes.VerdictError {
		s.cacheSet(key, result)
	}
	return result
}

// verifySocialURL downloads the post's attachment and verifies the local
// file. When the resolver cannot produce a file, the URL is handed to the
// matching verifier directly as a fallback.
func (s *VerificationService) verifySocialURL(
	ctx context.Context,
	item datatypes.VerificationItem,
	claimContext string,
	claimDate string,
	cleanup *CleanupList,
) datatypes.VerificationResult {
	if s.resolver == nil {
		return s.verifyDirectURL(ctx, item, claimContext, claimDate)
	}

	resolved, err := s.resolver.Resolve(ctx, item.URL)
	if err != nil {
		s.logger.Warn("Media resolution failed, falling back to direct URL",
			"url", item.URL, "error", err)
		return s.verifyDirectURL(ctx, item, claimContext, claimDate)
	}
	cleanup.Add(resolved.TempDir)

	if resolved.Type == media.TypeImage {
		return s.verifyImage(ctx, resolved.LocalPath, "", item.Source, claimContext, claimDate)
	}
	return s.verifyVideo(ctx, resolved.LocalPath, "", item.Source, claimContext, claimDate)
}

// verifyDirectURL classifies a bare URL by path extension. Anything that
// is not a known image extension is treated as video, which is the most
// common direct link shape.
func (s *VerificationService) verifyDirectURL(
	ctx context.Context,
	item datatypes.VerificationItem,
	claimContext string,
	claimDate string,
) datatypes.VerificationResult {
	if u, err := url.Parse(item.URL); err == nil {
		if directImageExtensions[strings.ToLower(path.Ext(u.Path))] {
			return s.verifyImage(ctx, "", item.URL, item.Source, claimContext, claimDate)
		}
	}
	return s.verifyVideo(ctx, "", item.URL, item.Source, claimContext, claimDate)
}

// =============================================================================
// Cache helpers
// =============================================================================

// cacheKey derives a stable key from the claim content and its framing
// context. Changing the context must change the key.
func cacheKey(kind string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	for _, part := range parts {
		h.Write([]byte{0})
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *VerificationService) cacheGet(key string) (datatypes.VerificationResult, bool) {
	if s.cache == nil {
		return datatypes.VerificationResult{}, false
	}
	result, ok := s.cache.Get(key)
	if ok {
		s.metrics.CountCacheHit()
	} else {
		s.metrics.CountCacheMiss()
	}
	return result, ok
}

func (s *VerificationService) cacheSet(key string, result datatypes.VerificationResult) {
	if s.cache == nil {
		return
	}
	s.cache.Set(key, result)
}
