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

// VideoVerifier posts videos to the external video analysis backend.
// The endpoint provider is consulted on every call so configuration
// reloads take effect without a restart.
type VideoVerifier struct {
	endpoint   func() string
	httpClient *http.Client
}

// NewVideoVerifier takes an endpoint provider. Returns nil when no
// endpoint is configured at startup.
func NewVideoVerifier(endpoint func() string) *VideoVerifier {
	if endpoint == nil || endpoint() == "" {
		slog.Warn("Video verifier endpoint not configured, video verification disabled")
		return nil
	}
	return &VideoVerifier{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: mediaVerifyTimeout},
	}
}

// NewVideoVerifierWithEndpoint wraps a fixed endpoint, used by tests.
func NewVideoVerifierWithEndpoint(endpoint string) *VideoVerifier {
	return NewVideoVerifier(func() string { return endpoint })
}

// Verify analyzes one video referenced by local path or URL.
func (v *VideoVerifier) Verify(ctx context.Context, path, url, claimContext, claimDate string) (datatypes.VerificationResult, error) {
	ctx, span := verifierTracer.Start(ctx, "VideoVerifier.Verify")
	defer span.End()

	result, err := postVerification(ctx, v.httpClient, v.endpoint(), mediaVerifyRequest{
		FilePath:     path,
		URL:          url,
		ClaimContext: claimContext,
		ClaimDate:    claimDate,
	})
	if err != nil {
		return datatypes.VerificationResult{}, fmt.Errorf("video verification: %w", err)
	}
	return result, nil
}
