// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"

	"github.com/aegislabs/aegis/services/orchestrator/datatypes"
)

// The single-item entry points back the standalone verifier endpoints.
// They bypass batch aggregation but share dispatch, caching, and message
// normalization with the batch path.

// VerifyTextClaim checks one textual claim.
func (s *VerificationService) VerifyTextClaim(ctx context.Context, claim, claimContext, claimDate string) datatypes.VerificationResult {
	result := s.verifyText(ctx, claim, datatypes.SourceTextInput, claimContext, claimDate)
	result.Message = NormalizeMessage(result.Message)
	return result
}

// VerifyImageURL checks one image referenced by URL.
func (s *VerificationService) VerifyImageURL(ctx context.Context, url, claimContext, claimDate string) datatypes.VerificationResult {
	result := s.verifyImage(ctx, "", url, datatypes.SourceURL, claimContext, claimDate)
	result.Message = NormalizeMessage(result.Message)
	return result
}

// VerifyVideoURL checks one video referenced by URL.
func (s *VerificationService) VerifyVideoURL(ctx context.Context, url, claimContext, claimDate string) datatypes.VerificationResult {
	result := s.verifyVideo(ctx, "", url, datatypes.SourceURL, claimContext, claimDate)
	result.Message = NormalizeMessage(result.Message)
	return result
}
