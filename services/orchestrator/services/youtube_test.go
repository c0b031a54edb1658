// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegislabs/aegis/services/orchestrator/datatypes"
	"github.com/aegislabs/aegis/services/orchestrator/media"
)

const testVideoURL = "https://www.youtube.com/watch?v=abc123def"

func youtubeItem() []datatypes.VerificationItem {
	return []datatypes.VerificationItem{{
		Kind: datatypes.ItemKindURL, Source: datatypes.SourceURL, URL: testVideoURL,
	}}
}

func TestVerifyYouTube_HappyPath(t *testing.T) {
	captions := &fakeCaptions{
		transcript: "The moon landing happened in 1969. Water boils at 100 degrees.",
	}
	llmClient := &fakeLLM{responses: []string{
		`["The moon landing happened in 1969", "Water boils at 100 degrees Celsius"]`,
		"Both claims in the video held up under checking.",
	}}
	text := &fakeTextVerifier{
		result: datatypes.VerificationResult{Verdict: "true", Message: "Verified."},
	}
	svc := newTestService(text, nil, nil, nil, llmClient, nil, captions, nil)

	outcome := svc.Process(context.Background(), youtubeItem(), "ctx", "date", nil)

	assert.Equal(t, datatypes.VerdictTrue, outcome.Verdict)
	assert.Equal(t, "Both claims in the video held up under checking.", outcome.Message)
	assert.Len(t, text.calls, 2)

	require.Len(t, outcome.Details.Results, 1)
	details := outcome.Details.Results[0].Details
	require.NotNil(t, details)
	assert.Equal(t, testVideoURL, details["video_url"])
	claims, ok := details["claims"].([]map[string]any)
	require.True(t, ok)
	assert.Len(t, claims, 2)
}

func TestVerifyYouTube_NoCaptions(t *testing.T) {
	captions := &fakeCaptions{err: &media.MediaError{Kind: media.KindNoCaptions, Op: "captions"}}
	svc := newTestService(nil, nil, nil, nil, nil, nil, captions, nil)

	outcome := svc.Process(context.Background(), youtubeItem(), "ctx", "date", nil)

	require.Len(t, outcome.Details.Results, 1)
	result := outcome.Details.Results[0]
	assert.Equal(t, string(datatypes.VerdictError), result.Verdict)
	assert.Contains(t, result.Message, "captions")
}

func TestVerifyYouTube_FencedClaimArray(t *testing.T) {
	captions := &fakeCaptions{transcript: "Some transcript text."}
	llmClient := &fakeLLM{responses: []string{
		"```json\n[\"A checkable claim\"]\n```",
		"The claim was debunked.",
	}}
	text := &fakeTextVerifier{
		result: datatypes.VerificationResult{Verdict: "false", Message: "Debunked."},
	}
	svc := newTestService(text, nil, nil, nil, llmClient, nil, captions, nil)

	outcome := svc.Process(context.Background(), youtubeItem(), "ctx", "date", nil)

	assert.Equal(t, datatypes.VerdictFalse, outcome.Verdict)
	assert.Len(t, text.calls, 1)
}

func TestVerifyYouTube_NoClaimsFound(t *testing.T) {
	captions := &fakeCaptions{transcript: "la la la just music"}
	llmClient := &fakeLLM{responses: []string{`[]`}}
	svc := newTestService(nil, nil, nil, nil, llmClient, nil, captions, nil)

	outcome := svc.Process(context.Background(), youtubeItem(), "ctx", "date", nil)

	require.Len(t, outcome.Details.Results, 1)
	assert.Equal(t, string(datatypes.VerdictUncertain), outcome.Details.Results[0].Verdict)
}

func TestVerifyYouTube_UnparsableClaimOutputTreatedAsNoClaims(t *testing.T) {
	captions := &fakeCaptions{transcript: "transcript"}
	llmClient := &fakeLLM{responses: []string{"I could not find any claims, sorry."}}
	svc := newTestService(nil, nil, nil, nil, llmClient, nil, captions, nil)

	outcome := svc.Process(context.Background(), youtubeItem(), "ctx", "date", nil)

	require.Len(t, outcome.Details.Results, 1)
	assert.Equal(t, string(datatypes.VerdictUncertain), outcome.Details.Results[0].Verdict)
}

func TestVerifyYouTube_ClaimFailureIsolated(t *testing.T) {
	captions := &fakeCaptions{transcript: "transcript"}
	llmClient := &fakeLLM{responses: []string{
		`["claim one", "claim two"]`,
		"Summary of mixed findings.",
	}}
	text := &fakeTextVerifier{err: errors.New("backend down")}
	svc := newTestService(text, nil, nil, nil, llmClient, nil, captions, nil)

	outcome := svc.Process(context.Background(), youtubeItem(), "ctx", "date", nil)

	// Both claims degraded to error results, but the video still produced
	// a single reportable outcome.
	require.Len(t, outcome.Details.Results, 1)
	assert.Len(t, text.calls, 2)
}

func TestVerifyYouTube_SummaryFallbackJoinsFindings(t *testing.T) {
	captions := &fakeCaptions{transcript: "transcript"}
	// One response only: the claim array. The summary call reuses it and
	// fails to produce anything useful, so errors force the fallback.
	llmClient := &fakeLLM{responses: []string{`["only claim"]`, ""}}
	text := &fakeTextVerifier{
		result: datatypes.VerificationResult{Verdict: "true", Message: "Checked out fine."},
	}
	svc := newTestService(text, nil, nil, nil, llmClient, nil, captions, nil)

	outcome := svc.Process(context.Background(), youtubeItem(), "ctx", "date", nil)

	assert.Contains(t, outcome.Message, "Checked out fine.")
}

func TestParseClaimList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseClaimList(`["a","b"]`))
	assert.Equal(t, []string{"a"}, parseClaimList("```json\n[\"a\"]\n```"))
	assert.Equal(t, []string{"x"}, parseClaimList(`{"claims": ["x"]}`))
	assert.Nil(t, parseClaimList("not json at all"))
}

func TestExtractClaims_CapsAtLimit(t *testing.T) {
	captions := &fakeCaptions{transcript: "transcript"}
	llmClient := &fakeLLM{responses: []string{
		`["c1","c2","c3","c4","c5","c6","c7"]`,
		"summary",
	}}
	text := &fakeTextVerifier{
		result: datatypes.VerificationResult{Verdict: "true", Message: "ok"},
	}
	svc := newTestService(text, nil, nil, nil, llmClient, nil, captions, nil)

	svc.Process(context.Background(), youtubeItem(), "ctx", "date", nil)

	assert.Len(t, text.calls, maxExtractedClaims)
}

func TestExtractClaims_DeduplicatesCaseInsensitively(t *testing.T) {
	llmClient := &fakeLLM{responses: []string{`["Same Claim", "same claim", "Other"]`}}
	svc := newTestService(nil, nil, nil, nil, llmClient, nil, nil, nil)

	claims, err := svc.extractClaims(context.Background(), "transcript")
	require.NoError(t, err)
	assert.Equal(t, []string{"Same Claim", "Other"}, claims)
}
