// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMessage_Empty(t *testing.T) {
	assert.Equal(t, "", NormalizeMessage(""))
	assert.Equal(t, "", NormalizeMessage("   \n  "))
}

func TestNormalizeMessage_PlainProseUntouched(t *testing.T) {
	msg := "The photo was taken in 2019, before the event described."
	assert.Equal(t, msg, NormalizeMessage(msg))
}

func TestNormalizeMessage_FencedJSONMessage(t *testing.T) {
	raw := "```json\n{\"message\": \"All clear\"}\n```"
	assert.Equal(t, "All clear", NormalizeMessage(raw))
}

func TestNormalizeMessage_BareJSONMessage(t *testing.T) {
	raw := `{"message": "The claim checks out.", "confidence": 0.9}`
	assert.Equal(t, "The claim checks out.", NormalizeMessage(raw))
}

func TestNormalizeMessage_VerdictWithReasoning(t *testing.T) {
	raw := `{"verdict": "false", "reasoning": "The footage predates the storm."}`
	assert.Equal(t, "Verdict: false. The footage predates the storm.", NormalizeMessage(raw))
}

func TestNormalizeMessage_VerdictWithoutReasoning(t *testing.T) {
	raw := `{"verdict": "uncertain"}`
	assert.Equal(t, "Verdict: uncertain.", NormalizeMessage(raw))
}

func TestNormalizeMessage_MalformedJSONFallsBack(t *testing.T) {
	raw := "```json\n{not valid json\n```"
	assert.Equal(t, "{not valid json", NormalizeMessage(raw))
}

func TestNormalizeMessage_JSONWithoutKnownFieldsFallsBack(t *testing.T) {
	raw := `{"score": 3}`
	assert.Equal(t, raw, NormalizeMessage(raw))
}

func TestNormalizeMessage_StripsVerdictPrefix(t *testing.T) {
	raw := "This claim is false: the image was staged"
	assert.Equal(t, "the image was staged", NormalizeMessage(raw))
}

func TestNormalizeMessage_VerdictPrefixCaseInsensitive(t *testing.T) {
	raw := "THE CLAIM IS TRUE: confirmed by three outlets"
	assert.Equal(t, "confirmed by three outlets", NormalizeMessage(raw))
}

func TestNormalizeMessage_AudioDiagnosticReplaced(t *testing.T) {
	raw := "Audio deepfake detection completed. The voice shows splicing artifacts."
	assert.Equal(t, "Audio analysis complete. The voice shows splicing artifacts.", NormalizeMessage(raw))
}

func TestNormalizeMessage_AudioDiagnosticAlone(t *testing.T) {
	assert.Equal(t, "Audio analysis complete.", NormalizeMessage("Audio deepfake detection completed."))
}

func TestNormalizeMessage_Idempotent(t *testing.T) {
	inputs := []string{
		"plain text",
		"```json\n{\"message\": \"All clear\"}\n```",
		"This claim is false: staged",
		"Audio deepfake detection completed. Details follow.",
	}
	for _, input := range inputs {
		once := NormalizeMessage(input)
		assert.Equal(t, once, NormalizeMessage(once), "not idempotent for %q", input)
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `["a","b"]`, StripCodeFence("```json\n[\"a\",\"b\"]\n```"))
	assert.Equal(t, `["a"]`, StripCodeFence("```\n[\"a\"]\n```"))
	assert.Equal(t, "no fence here", StripCodeFence("  no fence here "))
}
