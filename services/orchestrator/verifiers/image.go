// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package verifiers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aegislabs/aegis/services/orchestrator/datatypes"
)

// ImageVerifier posts images to the external image analysis backend.
// The endpoint provider is consulted on every call so configuration
// reloads take effect without a restart.
type ImageVerifier struct {
	endpoint   func() string
	httpClient *http.Client
}

// NewImageVerifier takes an endpoint provider (typically closing over
// the config loader). Returns nil when no endpoint is configured at
// startup so the pipeline degrades image items instead of calling a
// dead endpoint.
func NewImageVerifier(endpoint func() string) *ImageVerifier {
	if endpoint == nil || endpoint() == "" {
		slog.Warn("Image verifier endpoint not configured, image verification disabled")
		return nil
	}
	return &ImageVerifier{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: mediaVerifyTimeout},
	}
}

// NewImageVerifierWithEndpoint wraps a fixed endpoint, used by tests.
func NewImageVerifierWithEndpoint(endpoint string) *ImageVerifier {
	return NewImageVerifier(func() string { return endpoint })
}

// Verify analyzes one image referenced by local path or URL.
func (v *ImageVerifier) Verify(ctx context.Context, path, url, claimContext, claimDate string) (datatypes.VerificationResult, error) {
	ctx, span := verifierTracer.Start(ctx, "ImageVerifier.Verify")
	defer span.End()

	result, err := postVerification(ctx, v.httpClient, v.endpoint(), mediaVerifyRequest{
		FilePath:     path,
		URL:          url,
		ClaimContext: claimContext,
		ClaimDate:    claimDate,
	})
	if err != nil {
		return datatypes.VerificationResult{}, fmt.Errorf("image verification: %w", err)
	}
	return result, nil
}
