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
	"github.com/aegislabs/aegis/services/orchestrator/media"
)

// TextVerifier checks a textual claim against external evidence.
type TextVerifier interface {
	Verify(ctx context.Context, claim, claimContext, claimDate string) (datatypes.VerificationResult, error)
}

// ImageVerifier analyzes an image for signs of manipulation or
// misattribution. The input is either a local file path or a direct URL;
// exactly one is set.
type ImageVerifier interface {
	Verify(ctx context.Context, path, url, claimContext, claimDate string) (datatypes.VerificationResult, error)
}

// VideoVerifier analyzes a video the same way ImageVerifier analyzes an
// image.
type VideoVerifier interface {
	Verify(ctx context.Context, path, url, claimContext, claimDate string) (datatypes.VerificationResult, error)
}

// AudioClassifier runs deepfake detection on a local audio file.
type AudioClassifier interface {
	IsDeepfake(ctx context.Context, path string) (bool, error)
}

// MediaResolver downloads a social media post's attachment and classifies
// it as image or video.
type MediaResolver interface {
	Resolve(ctx context.Context, url string) (*media.Resolved, error)
}

// CaptionSource extracts a plain text transcript for a video URL. The
// returned tempDir, when non-empty, is owned by the caller.
type CaptionSource interface {
	Extract(ctx context.Context, url string) (transcript string, tempDir string, err error)
}

// VerdictCache memoizes verification results for repeated claims. A miss
// returns ok=false, never an error the caller must branch on.
type VerdictCache interface {
	Get(key string) (datatypes.VerificationResult, bool)
	Set(key string, result datatypes.VerificationResult)
}
