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

func boolPtr(v bool) *bool { return &v }

// =============================================================================
// ResolveVerdict
// =============================================================================

func TestResolveVerdict_VerifiedBoolWins(t *testing.T) {
	// The boolean takes precedence even when the string disagrees.
	result := datatypes.VerificationResult{
		Verified: boolPtr(true),
		Verdict:  "false",
	}
	assert.Equal(t, datatypes.VerdictTrue, ResolveVerdict(result))

	result.Verified = boolPtr(false)
	result.Verdict = "true"
	assert.Equal(t, datatypes.VerdictFalse, ResolveVerdict(result))
}

func TestResolveVerdict_VerdictString(t *testing.T) {
	result := datatypes.VerificationResult{Verdict: " Uncertain "}
	assert.Equal(t, datatypes.VerdictUncertain, ResolveVerdict(result))
}

func TestResolveVerdict_DetailsFallback(t *testing.T) {
	result := datatypes.VerificationResult{
		Details: map[string]any{"overall_verdict": "FALSE"},
	}
	assert.Equal(t, datatypes.VerdictFalse, ResolveVerdict(result))
}

func TestResolveVerdict_NothingSupplied(t *testing.T) {
	assert.Equal(t, datatypes.VerdictUnknown, ResolveVerdict(datatypes.VerificationResult{}))
}

func TestResolveVerdict_DetailsNonString(t *testing.T) {
	result := datatypes.VerificationResult{
		Details: map[string]any{"overall_verdict": 42},
	}
	assert.Equal(t, datatypes.VerdictUnknown, ResolveVerdict(result))
}

// =============================================================================
// AggregateVerdicts
// =============================================================================

func TestAggregateVerdicts_Empty(t *testing.T) {
	assert.Equal(t, datatypes.VerdictNoContent, AggregateVerdicts(nil))
	assert.Equal(t, datatypes.VerdictNoContent, AggregateVerdicts([]datatypes.VerificationResult{}))
}

func TestAggregateVerdicts_AnyFalseDominates(t *testing.T) {
	results := []datatypes.VerificationResult{
		{Verdict: "true"},
		{Verdict: "false"},
		{Verdict: "uncertain"},
	}
	assert.Equal(t, datatypes.VerdictFalse, AggregateVerdicts(results))
}

func TestAggregateVerdicts_UncertainBeforeTrue(t *testing.T) {
	results := []datatypes.VerificationResult{
		{Verdict: "true"},
		{Verdict: "uncertain"},
	}
	assert.Equal(t, datatypes.VerdictUncertain, AggregateVerdicts(results))
}

func TestAggregateVerdicts_AllTrue(t *testing.T) {
	results := []datatypes.VerificationResult{
		{Verified: boolPtr(true)},
		{Verdict: "True"},
	}
	assert.Equal(t, datatypes.VerdictTrue, AggregateVerdicts(results))
}

func TestAggregateVerdicts_MixedBatch(t *testing.T) {
	// true + unknown: no false, no uncertain, not all true.
	results := []datatypes.VerificationResult{
		{Verdict: "true"},
		{},
	}
	assert.Equal(t, datatypes.VerdictMixed, AggregateVerdicts(results))
}

func TestAggregateVerdicts_OrderIndependent(t *testing.T) {
	forward := []datatypes.VerificationResult{
		{Verdict: "false"}, {Verdict: "true"}, {Verdict: "uncertain"},
	}
	reversed := []datatypes.VerificationResult{
		{Verdict: "uncertain"}, {Verdict: "true"}, {Verdict: "false"},
	}
	assert.Equal(t, AggregateVerdicts(forward), AggregateVerdicts(reversed))
}

func TestAggregateVerdicts_ErrorResultsAreNotTrue(t *testing.T) {
	results := []datatypes.VerificationResult{
		{Verdict: "true"},
		{Verdict: "error"},
	}
	assert.Equal(t, datatypes.VerdictMixed, AggregateVerdicts(results))
}
