// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// Message Normalization
// =============================================================================

// normalizedKind tags the outcome of unwrapping a structured message.
type normalizedKind int

const (
	// normalizedOk means a clean message was extracted from JSON.
	normalizedOk normalizedKind = iota
	// normalizedFallback means parsing failed and the stripped raw text
	// is returned verbatim.
	normalizedFallback
)

// normalized is the tagged result of the JSON-unwrap step. Modeling the
// two outcomes explicitly keeps the unwrap logic total: there is no error
// path, only Ok or Fallback.
type normalized struct {
	kind normalizedKind
	text string
}

// verdictPrefixes are redundant verdict restatements that upstream LLMs
// prepend to their explanations. Matched case-insensitively at the start
// of the normalized text.
var verdictPrefixes = []string{
	"this claim is true:",
	"this claim is false:",
	"this claim is uncertain:",
	"the claim is true:",
	"the claim is false:",
	"the claim is uncertain:",
	"verification result:",
	"result:",
}

// audioDiagnosticPrefix is an internal classifier status line that must
// never reach the user verbatim.
const audioDiagnosticPrefix = "Audio deepfake detection completed"

// audioDiagnosticReplacement is the user-safe sentence substituted for the
// internal diagnostic prefix.
const audioDiagnosticReplacement = "Audio analysis complete."

// NormalizeMessage reduces a verifier's raw message to clean,
// user-presentable text.
//
// # Description
//
// Upstream verifiers return messages in whatever shape their LLM produced:
// plain prose, a raw JSON object serialized as text, or either of those
// wrapped in a markdown code fence. NormalizeMessage tolerates all of them
// and always yields a best-effort display string:
//
//  1. Empty input produces empty output.
//  2. Text that does not look structured (no leading "{" or fence) is
//     treated as already-clean prose.
//  3. Otherwise fences and an optional "json" language tag are stripped
//     and the remainder parsed as JSON. A "message" field wins; failing
//     that, a "verdict" field is rendered as "Verdict: {verdict}.
//     {reasoning}". A parse failure falls back to the stripped text.
//  4. Redundant verdict-restating prefixes are removed case-insensitively.
//  5. A leading internal audio diagnostic is replaced with a user-safe
//     sentence.
//
// # Outputs
//
//   - string: The display text. Never panics and has no error path; every
//     failure mode degrades to a textual fallback.
func NormalizeMessage(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}

	if looksStructured(text) {
		text = unwrapStructured(text).text
	}

	text = stripVerdictPrefix(text)
	return replaceAudioDiagnostic(text)
}

// looksStructured reports whether the text might be JSON or a fenced block.
func looksStructured(text string) bool {
	return strings.HasPrefix(text, "{") || strings.HasPrefix(text, "```")
}

// StripCodeFence removes a leading/trailing triple-backtick fence and an
// optional "json" language tag. Text without a fence is returned trimmed.
// Shared with the claim-extraction path, which expects fenced JSON arrays.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimPrefix(text, "JSON")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// unwrapStructured extracts a display string from JSON-shaped text.
func unwrapStructured(text string) normalized {
	stripped := StripCodeFence(text)

	var payload map[string]any
	if err := json.Unmarshal([]byte(stripped), &payload); err != nil {
		// Not valid JSON after all; the stripped text is the best we have.
		return normalized{kind: normalizedFallback, text: stripped}
	}

	if msg, ok := payload["message"].(string); ok && strings.TrimSpace(msg) != "" {
		return normalized{kind: normalizedOk, text: strings.TrimSpace(msg)}
	}

	if verdict, ok := payload["verdict"].(string); ok && strings.TrimSpace(verdict) != "" {
		out := fmt.Sprintf("Verdict: %s.", strings.TrimSpace(verdict))
		if reasoning, ok := payload["reasoning"].(string); ok && strings.TrimSpace(reasoning) != "" {
			out += " " + strings.TrimSpace(reasoning)
		}
		return normalized{kind: normalizedOk, text: out}
	}

	return normalized{kind: normalizedFallback, text: stripped}
}

// stripVerdictPrefix removes one redundant verdict prefix, if present.
func stripVerdictPrefix(text string) string {
	lower := strings.ToLower(text)
	for _, prefix := range verdictPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(text[len(prefix):])
		}
	}
	return text
}

// replaceAudioDiagnostic swaps the internal classifier status line for a
// user-safe sentence, keeping any trailing explanation.
func replaceAudioDiagnostic(text string) string {
	if !strings.HasPrefix(text, audioDiagnosticPrefix) {
		return text
	}
	rest := strings.TrimSpace(strings.TrimPrefix(text, audioDiagnosticPrefix))
	rest = strings.TrimLeft(rest, ".:;- ")
	if rest == "" {
		return audioDiagnosticReplacement
	}
	return audioDiagnosticReplacement + " " + rest
}
