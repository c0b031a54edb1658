// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aegislabs/aegis/services/llm"
	"github.com/aegislabs/aegis/services/orchestrator/datatypes"
)

const (
	// maxExtractedClaims caps how many factual claims are pulled from one
	// transcript. Claims beyond the cap are the least checkworthy by the
	// extractor's own ranking.
	maxExtractedClaims = 5

	// transcriptChunkSize is the character budget per transcript chunk fed
	// to the claim extractor.
	transcriptChunkSize = 6000

	transcriptChunkOverlap = 200
)

// claimExtractionPrompt frames the transcript chunk for the LLM. The model
// must answer with a bare JSON array of strings.
const claimExtractionPrompt = `You are extracting checkable factual claims from a video transcript.

Read the transcript below and list up to %d distinct factual claims that can be fact-checked, ranked from most to least significant. Ignore opinions, jokes, and filler.

Respond with only a JSON array of strings, one claim per string.

Transcript:
%s`

// verifyYouTube checks a YouTube video through its captions.
//
// # Description
//
// The transcript is pulled via the caption source, split into chunks, and
// the LLM extracts up to five checkable claims. Each claim then runs
// through the text verifier independently; one claim failing degrades that
// claim only. A final LLM call summarizes the per-claim findings. The
// whole video yields a single result whose Details carry the per-claim
// breakdown.
func (s *VerificationService) verifyYouTube(
	ctx context.Context,
	videoURL string,
	claimContext string,
	claimDate string,
	cleanup *CleanupList,
) datatypes.VerificationResult {
	ctx, span := verifyTracer.Start(ctx, "VerificationService.verifyYouTube")
	defer span.End()
	span.SetAttributes(attribute.String("youtube.url", videoURL))

	if s.captions == nil {
		return datatypes.ErrorResult(datatypes.SourceURL, "Video caption analysis is not available.")
	}

	transcript, tempDir, err := s.captions.Extract(ctx, videoURL)
	cleanup.Add(tempDir)
	if err != nil {
		s.logger.Warn("Caption extraction failed", "url", videoURL, "error", err)
		return datatypes.ErrorResult(datatypes.SourceURL,
			"Could not retrieve captions for this video. It may not have captions available.")
	}

	claims, err := s.extractClaims(ctx, transcript)
	if err != nil {
		s.logger.Error("Claim extraction failed", "url", videoURL, "error", err)
		return datatypes.ErrorResult(datatypes.SourceURL,
			"Could not analyze the video transcript. Please try again later.")
	}
	if len(claims) == 0 {
		return datatypes.VerificationResult{
			Verdict: string(datatypes.VerdictUncertain),
			Message: "No checkable factual claims were found in this video's captions.",
			Source:  datatypes.SourceURL,
			Details: map[string]any{"video_url": videoURL},
		}
	}
	span.SetAttributes(attribute.Int("youtube.claims", len(claims)))

	claimResults := make([]datatypes.VerificationResult, 0, len(claims))
	for _, claim := range claims {
		result := s.verifyText(ctx, claim, datatypes.SourceURL, claimContext, claimDate)
		claimResults = append(claimResults, result)
	}

	verdict := AggregateVerdicts(claimResults)
	summary := s.summarizeClaimFindings(ctx, claims, claimResults)

	claimDetails := make([]map[string]any, 0, len(claims))
	for i, claim := range claims {
		claimDetails = append(claimDetails, map[string]any{
			"claim":   claim,
			"verdict": string(ResolveVerdict(claimResults[i])),
			"message": claimResults[i].Message,
		})
	}

	return datatypes.VerificationResult{
		Verdict: string(verdict),
		Message: summary,
		Source:  datatypes.SourceURL,
		Details: map[string]any{
			"video_url": videoURL,
			"claims":    claimDetails,
		},
	}
}

// extractClaims pulls ranked checkable claims out of the transcript.
// Long transcripts are chunked; the cap applies across all chunks.
func (s *VerificationService) extractClaims(ctx context.Context, transcript string) ([]string, error) {
	if s.llmChat == nil {
		return nil, fmt.Errorf("no LLM backend configured for claim extraction")
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(transcriptChunkSize),
		textsplitter.WithChunkOverlap(transcriptChunkOverlap),
	)
	chunks, err := splitter.SplitText(transcript)
	if err != nil {
		return nil, fmt.Errorf("failed to split transcript: %w", err)
	}

	temp := float32(0.1)
	maxTokens := 600
	params := llm.GenerationParams{Temperature: &temp, MaxTokens: &maxTokens}

	seen := make(map[string]bool)
	var claims []string
	for _, chunk := range chunks {
		if len(claims) >= maxExtractedClaims {
			break
		}
		prompt := fmt.Sprintf(claimExtractionPrompt, maxExtractedClaims-len(claims), chunk)
		raw, err := s.llmChat.Generate(ctx, prompt, params)
		if err != nil {
			return nil, fmt.Errorf("claim extraction call failed: %w", err)
		}
		for _, claim := range parseClaimList(raw) {
			normalized := strings.ToLower(strings.TrimSpace(claim))
			if normalized == "" || seen[normalized] {
				continue
			}
			seen[normalized] = true
			claims = append(claims, strings.TrimSpace(claim))
			if len(claims) >= maxExtractedClaims {
				break
			}
		}
	}
	return claims, nil
}

// parseClaimList decodes the LLM's claim array, tolerating markdown
// fencing. Unparseable output yields no claims rather than an error; the
// caller treats an empty list as "nothing checkable".
func parseClaimList(raw string) []string {
	cleaned := StripCodeFence(raw)
	var claims []string
	if err := json.Unmarshal([]byte(cleaned), &claims); err == nil {
		return claims
	}

	// Some models wrap the array in an object.
	var wrapped struct {
		Claims []string `json:"claims"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err == nil {
		return wrapped.Claims
	}
	return nil
}

// summarizeClaimFindings asks the LLM for a short overall summary. When
// the call fails, the per-claim messages are joined as a plain fallback.
func (s *VerificationService) summarizeClaimFindings(
	ctx context.Context,
	claims []string,
	results []datatypes.VerificationResult,
) string {
	var findings strings.Builder
	for i, claim := range claims {
		fmt.Fprintf(&findings, "Claim: %s\nVerdict: %s\nFinding: %s\n\n",
			claim, ResolveVerdict(results[i]), results[i].Message)
	}

	if s.llmChat != nil {
		prompt := fmt.Sprintf(
			"Summarize the following fact-check findings for a video in two or three plain sentences. "+
				"State clearly which claims held up and which did not.\n\n%s",
			findings.String(),
		)
		temp := float32(0.3)
		maxTokens := 300
		summary, err := s.llmChat.Generate(ctx, prompt, llm.GenerationParams{Temperature: &temp, MaxTokens: &maxTokens})
		if err == nil && strings.TrimSpace(summary) != "" {
			return strings.TrimSpace(summary)
		}
		if err != nil {
			s.logger.Warn("Summary generation fell back to joined findings", "error", err)
		}
	}

	var parts []string
	for i, claim := range claims {
		parts = append(parts, fmt.Sprintf("%q: %s", claim, results[i].Message))
	}
	return strings.Join(parts, " ")
}
