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

// =============================================================================
// Verdict Resolution
// =============================================================================

// ResolveVerdict resolves a single result to exactly one verdict.
//
// # Description
//
// Upstream verifiers are inconsistent about where they put their verdict,
// so resolution follows a fixed precedence, first match wins:
//
//	(a) the explicit Verified boolean (true -> "true", false -> "false")
//	(b) the Verdict string field
//	(c) Details["overall_verdict"]
//	(d) "unknown"
//
// All string comparisons are case-insensitive. Every result resolves to
// something; a verifier that supplied nothing yields VerdictUnknown.
func ResolveVerdict(result datatypes.VerificationResult) datatypes.Verdict {
	if result.Verified != nil {
		if *result.Verified {
			return datatypes.VerdictTrue
		}
		return datatypes.VerdictFalse
	}

	if strings.TrimSpace(result.Verdict) != "" {
		return datatypes.NormalizeVerdict(result.Verdict)
	}

	if result.Details != nil {
		if raw, ok := result.Details["overall_verdict"].(string); ok && strings.TrimSpace(raw) != "" {
			return datatypes.NormalizeVerdict(raw)
		}
	}

	return datatypes.VerdictUnknown
}

// =============================================================================
// Aggregation
// =============================================================================

// AggregateVerdicts combines per-item verdicts into one overall verdict.
//
// # Description
//
// A pure reduction over the resolved verdict multiset, evaluated in fixed
// order:
//
//  1. Empty input -> no_content.
//  2. Any item resolves to "false" -> false. A single debunked sub-claim
//     invalidates the whole batch.
//  3. Else any "uncertain" -> uncertain. Unresolved claims are never
//     silently upgraded to "true".
//  4. Else all items "true" -> true. Full consensus is required.
//  5. Else -> mixed.
//
// The result is deterministic and independent of item order.
func AggregateVerdicts(results []datatypes.VerificationResult) datatypes.Verdict {
	if len(results) == 0 {
		return datatypes.VerdictNoContent
	}

	anyFalse := false
	anyUncertain := false
	allTrue := true

	for _, result := range results {
		switch ResolveVerdict(result) {
		case datatypes.VerdictFalse:
			anyFalse = true
			allTrue = false
		case datatypes.VerdictUncertain:
			anyUncertain = true
			allTrue = false
		case datatypes.VerdictTrue:
			// Keeps allTrue intact.
		default:
			allTrue = false
		}
	}

	switch {
	case anyFalse:
		return datatypes.VerdictFalse
	case anyUncertain:
		return datatypes.VerdictUncertain
	case allTrue:
		return datatypes.VerdictTrue
	default:
		return datatypes.VerdictMixed
	}
}
