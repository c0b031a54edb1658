// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"strings"

	"github.com/aegislabs/aegis/services/orchestrator/datatypes"
)

// defaultNoContentMessage is returned when a request produced no results.
const defaultNoContentMessage = "No content was provided for verification."

// defaultEmptyMessage covers the case where verifiers returned results but
// none carried any usable text. The user always receives a message field.
const defaultEmptyMessage = "Verification completed, but no summary was returned."

// ComposeOutcome assembles the final user-facing payload for a request.
//
// # Description
//
// Builds the AggregateOutcome from the ordered per-item results:
//
//   - For a batch where every item is audio, the per-item messages are
//     already self-contained LLM prose and are concatenated with blank
//     lines, skipping the JSON-unwrap heuristics entirely.
//   - Otherwise the longest non-empty candidate text (message or summary)
//     is selected as representative and run through NormalizeMessage.
//
// The longest-message tie-break is a heuristic, not a semantic merge; both
// it and the audio concatenation depend on results preserving submission
// order, which the sequential pipeline guarantees.
//
// # Inputs
//
//   - results: Per-item results in submission order.
//   - allAudio: Whether every submitted item declared audio content.
//   - verificationType, claimContext, claimDate: Echoed into details.
//   - received: Upload metadata echoed into details.
func ComposeOutcome(
	results []datatypes.VerificationResult,
	allAudio bool,
	verificationType string,
	claimContext string,
	claimDate string,
	received []datatypes.ReceivedFile,
) datatypes.AggregateOutcome {
	verdict := AggregateVerdicts(results)

	var message string
	switch {
	case len(results) == 0:
		message = defaultNoContentMessage
	case allAudio:
		message = joinAudioMessages(results)
	default:
		message = NormalizeMessage(longestCandidate(results))
	}
	if message == "" {
		message = defaultEmptyMessage
	}

	if received == nil {
		received = []datatypes.ReceivedFile{}
	}
	if results == nil {
		results = []datatypes.VerificationResult{}
	}

	return datatypes.AggregateOutcome{
		Message: message,
		Verdict: verdict,
		Details: datatypes.VerifyDetails{
			Results:            results,
			VerificationType:   verificationType,
			ClaimContext:       claimContext,
			ClaimDate:          claimDate,
			ReceivedFilesCount: len(received),
			ReceivedFiles:      received,
		},
	}
}

// joinAudioMessages concatenates per-item audio summaries with blank lines.
func joinAudioMessages(results []datatypes.VerificationResult) string {
	parts := make([]string, 0, len(results))
	for _, result := range results {
		if msg := strings.TrimSpace(result.Message); msg != "" {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "\n\n")
}

// longestCandidate picks the longest non-empty message or summary across
// all results as the representative text for the batch.
func longestCandidate(results []datatypes.VerificationResult) string {
	var best string
	for _, result := range results {
		for _, candidate := range []string{result.Message, result.Summary} {
			if len(strings.TrimSpace(candidate)) > len(best) {
				best = strings.TrimSpace(candidate)
			}
		}
	}
	return best
}
