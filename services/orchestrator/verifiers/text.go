// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package verifiers contains the clients for the external per-kind
// verification backends.
package verifiers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/aegislabs/aegis/services/llm"
	"github.com/aegislabs/aegis/services/orchestrator/datatypes"
)

var verifierTracer = otel.Tracer("aegis.orchestrator.verifiers")

const factCheckEndpoint = "https://factchecktools.googleapis.com/v1alpha1/claims:search"

// verifierHTTPTimeout bounds every outbound verifier call. The external
// backends are expected to answer well within this.
const verifierHTTPTimeout = 15 * time.Second

// factCheckResponse is the subset of the Fact Check Tools claims:search
// response this client reads.
type factCheckResponse struct {
	Claims []struct {
		Text        string `json:"text"`
		Claimant    string `json:"claimant"`
		ClaimReview []struct {
			Publisher struct {
				Name string `json:"name"`
				Site string `json:"site"`
			} `json:"publisher"`
			URL           string `json:"url"`
			Title         string `json:"title"`
			TextualRating string `json:"textualRating"`
		} `json:"claimReview"`
	} `json:"claims"`
}

// TextVerifier checks claims against the Google Fact Check Tools API,
// with an LLM assessment as fallback when no published review matches.
//
// # Description
//
// A claim with at least one published review resolves from the reviews'
// textual ratings. Claims no publisher has reviewed go to the LLM, which
// must answer with a verdict JSON object; its answers are always at most
// "uncertain" confidence on the true side, never a hard "true".
type TextVerifier struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	llmClient  llm.LLMClient
	logger     *slog.Logger
}

// NewTextVerifier reads FACTCHECK_API_KEY. An empty key disables the
// published-review lookup and every claim goes straight to the LLM.
func NewTextVerifier(llmClient llm.LLMClient) *TextVerifier {
	apiKey := os.Getenv("FACTCHECK_API_KEY")
	if apiKey == "" {
		slog.Warn("FACTCHECK_API_KEY not set, text verification uses LLM assessment only")
	}
	return &TextVerifier{
		apiKey:     apiKey,
		endpoint:   factCheckEndpoint,
		httpClient: &http.Client{Timeout: verifierHTTPTimeout},
		llmClient:  llmClient,
		logger:     slog.Default().With("component", "text_verifier"),
	}
}

// NewTextVerifierWithEndpoint overrides the API endpoint. Used by tests.
func NewTextVerifierWithEndpoint(endpoint, apiKey string, llmClient llm.LLMClient) *TextVerifier {
	v := NewTextVerifier(llmClient)
	v.endpoint = endpoint
	v.apiKey = apiKey
	return v
}

// Verify checks one claim and returns a populated result.
func (v *TextVerifier) Verify(ctx context.Context, claim, claimContext, claimDate string) (datatypes.VerificationResult, error) {
	ctx, span := verifierTracer.Start(ctx, "TextVerifier.Verify")
	defer span.End()

	if v.apiKey != "" {
		result, found, err := v.searchPublishedReviews(ctx, claim)
		if err != nil {
			v.logger.Warn("Fact check lookup failed, falling back to LLM", "error", err)
		} else if found {
			return result, nil
		}
	}
	return v.assessWithLLM(ctx, claim, claimContext, claimDate)
}

// searchPublishedReviews queries the claims:search API and resolves a
// verdict from the first claim's reviews. found is false when no
// publisher has reviewed anything matching the query.
func (v *TextVerifier) searchPublishedReviews(ctx context.Context, claim string) (datatypes.VerificationResult, bool, error) {
	query := url.Values{}
	query.Set("query", claim)
	query.Set("key", v.apiKey)
	query.Set("languageCode", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return datatypes.VerificationResult{}, false, fmt.Errorf("failed to build fact check request: %w", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return datatypes.VerificationResult{}, false, fmt.Errorf("fact check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return datatypes.VerificationResult{}, false,
			fmt.Errorf("fact check API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed factCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return datatypes.VerificationResult{}, false, fmt.Errorf("failed to decode fact check response: %w", err)
	}
	if len(parsed.Claims) == 0 || len(parsed.Claims[0].ClaimReview) == 0 {
		return datatypes.VerificationResult{}, false, nil
	}

	review := parsed.Claims[0].ClaimReview[0]
	verdict := mapTextualRating(review.TextualRating)
	message := fmt.Sprintf("%s rated this claim %q.", review.Publisher.Name, review.TextualRating)
	if review.Title != "" {
		message += " " + review.Title
	}

	return datatypes.VerificationResult{
		Verdict: string(verdict),
		Message: message,
		Details: map[string]any{
			"matched_claim":  parsed.Claims[0].Text,
			"publisher":      review.Publisher.Name,
			"review_url":     review.URL,
			"textual_rating": review.TextualRating,
		},
	}, true, nil
}

// mapTextualRating folds a publisher's free-form rating into a verdict.
// Negation words are checked first so "not true" never maps to true.
func mapTextualRating(rating string) datatypes.Verdict {
	r := strings.ToLower(rating)
	switch {
	case strings.Contains(r, "false"), strings.Contains(r, "pants on fire"),
		strings.Contains(r, "incorrect"), strings.Contains(r, "fake"),
		strings.Contains(r, "not true"), strings.Contains(r, "misleading"):
		return datatypes.VerdictFalse
	case strings.Contains(r, "mixture"), strings.Contains(r, "partly"),
		strings.Contains(r, "half"):
		return datatypes.VerdictMixed
	case strings.Contains(r, "true"), strings.Contains(r, "correct"),
		strings.Contains(r, "accurate"):
		return datatypes.VerdictTrue
	default:
		return datatypes.VerdictUncertain
	}
}

// llmAssessmentPrompt instructs the model to answer with a verdict JSON
// object for a claim no publisher has reviewed.
const llmAssessmentPrompt = `Assess the factual accuracy of the claim below using your general knowledge.

Claim: %s
Context: %s
Date the claim refers to: %s

Respond with only a JSON object: {"verdict": "<true|false|uncertain>", "reasoning": "<one or two sentences>"}. Answer "uncertain" whenever you cannot be confident.`

type llmAssessment struct {
	Verdict   string `json:"verdict"`
	Reasoning string `json:"reasoning"`
}

// assessWithLLM produces a best-effort verdict when no published review
// exists. Output that does not parse degrades to uncertain with the raw
// text as message.
func (v *TextVerifier) assessWithLLM(ctx context.Context, claim, claimContext, claimDate string) (datatypes.VerificationResult, error) {
	if v.llmClient == nil {
		return datatypes.VerificationResult{}, fmt.Errorf("no LLM backend available for claim assessment")
	}

	prompt := fmt.Sprintf(llmAssessmentPrompt, claim, claimContext, claimDate)
	temp := float32(0.1)
	maxTokens := 300
	raw, err := v.llmClient.Generate(ctx, prompt, llm.GenerationParams{Temperature: &temp, MaxTokens: &maxTokens})
	if err != nil {
		return datatypes.VerificationResult{}, fmt.Errorf("LLM assessment failed: %w", err)
	}

	cleaned := stripFence(raw)
	var assessment llmAssessment
	if err := json.Unmarshal([]byte(cleaned), &assessment); err != nil {
		v.logger.Warn("LLM assessment did not parse, degrading to uncertain")
		return datatypes.VerificationResult{
			Verdict: string(datatypes.VerdictUncertain),
			Message: strings.TrimSpace(raw),
			Details: map[string]any{"assessment_source": "llm"},
		}, nil
	}

	verdict := datatypes.NormalizeVerdict(assessment.Verdict)
	switch verdict {
	case datatypes.VerdictTrue, datatypes.VerdictFalse, datatypes.VerdictUncertain:
	default:
		verdict = datatypes.VerdictUncertain
	}

	return datatypes.VerificationResult{
		Verdict: string(verdict),
		Message: assessment.Reasoning,
		Details: map[string]any{"assessment_source": "llm"},
	}, nil
}

// stripFence removes a surrounding markdown code fence.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
