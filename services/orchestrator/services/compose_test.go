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

	"github.com/aegislabs/aegis/services/orchestrator/datatypes"
)

func TestComposeOutcome_NoResults(t *testing.T) {
	outcome := ComposeOutcome(nil, false, "none", "ctx", "date", nil)

	assert.Equal(t, datatypes.VerdictNoContent, outcome.Verdict)
	assert.Equal(t, defaultNoContentMessage, outcome.Message)
	assert.NotNil(t, outcome.Details.Results)
	assert.NotNil(t, outcome.Details.ReceivedFiles)
	assert.Equal(t, 0, outcome.Details.ReceivedFilesCount)
}

func TestComposeOutcome_PicksLongestMessage(t *testing.T) {
	results := []datatypes.VerificationResult{
		{Verdict: "true", Message: "Short."},
		{Verdict: "true", Message: "This considerably longer explanation should be the one shown."},
	}
	outcome := ComposeOutcome(results, false, "text", "ctx", "date", nil)

	assert.Equal(t, datatypes.VerdictTrue, outcome.Verdict)
	assert.Equal(t, "This considerably longer explanation should be the one shown.", outcome.Message)
}

func TestComposeOutcome_SummaryCanWin(t *testing.T) {
	results := []datatypes.VerificationResult{
		{Verdict: "true", Message: "ok", Summary: "A longer summary that beats every message in the batch."},
	}
	outcome := ComposeOutcome(results, false, "text", "ctx", "date", nil)
	assert.Equal(t, "A longer summary that beats every message in the batch.", outcome.Message)
}

func TestComposeOutcome_AllAudioConcatenates(t *testing.T) {
	results := []datatypes.VerificationResult{
		{Message: "First clip is clean."},
		{Message: "Second clip shows manipulation."},
	}
	outcome := ComposeOutcome(results, true, "audio", "ctx", "date", nil)

	assert.Equal(t, "First clip is clean.\n\nSecond clip shows manipulation.", outcome.Message)
}

func TestComposeOutcome_EmptyMessagesGetDefault(t *testing.T) {
	results := []datatypes.VerificationResult{{Verdict: "true"}}
	outcome := ComposeOutcome(results, false, "text", "ctx", "date", nil)
	assert.Equal(t, defaultEmptyMessage, outcome.Message)
}

func TestComposeOutcome_DetailsEchoInputs(t *testing.T) {
	received := []datatypes.ReceivedFile{
		{Filename: "a.jpg", ContentType: "image/jpeg", Size: 123},
	}
	results := []datatypes.VerificationResult{{Verdict: "true", Message: "fine"}}
	outcome := ComposeOutcome(results, false, "image", "seen on a forum", "2026-01-01", received)

	assert.Equal(t, "image", outcome.Details.VerificationType)
	assert.Equal(t, "seen on a forum", outcome.Details.ClaimContext)
	assert.Equal(t, "2026-01-01", outcome.Details.ClaimDate)
	assert.Equal(t, 1, outcome.Details.ReceivedFilesCount)
	assert.Equal(t, received, outcome.Details.ReceivedFiles)
	assert.Len(t, outcome.Details.Results, 1)
}

func TestCleanupList_FlushClearsAndCounts(t *testing.T) {
	list := &CleanupList{}
	list.Add("")
	assert.Equal(t, 0, list.Len())

	dir := t.TempDir() + "/scratch"
	list.Add(dir)
	assert.Equal(t, 1, list.Len())

	// Removing a nonexistent path is not a failure for RemoveAll.
	assert.Equal(t, 0, list.Flush())
	assert.Equal(t, 0, list.Len())

	// Second flush is a no-op.
	assert.Equal(t, 0, list.Flush())
}
