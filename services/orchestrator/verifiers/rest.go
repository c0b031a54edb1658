// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package verifiers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aegislabs/aegis/services/orchestrator/datatypes"
)

// mediaVerifyTimeout bounds image and video backend calls. Video models
// are slow; this is deliberately larger than the text timeout.
const mediaVerifyTimeout = 120 * time.Second

// mediaVerifyRequest is the JSON body posted to the image and video
// verification backends. Exactly one of FilePath or URL is set.
type mediaVerifyRequest struct {
	FilePath     string `json:"file_path,omitempty"`
	URL          string `json:"url,omitempty"`
	ClaimContext string `json:"claim_context"`
	ClaimDate    string `json:"claim_date"`
}

// postVerification posts one media verification request and decodes the
// backend's result. The backends all share the VerificationResult shape.
func postVerification(ctx context.Context, client *http.Client, endpoint string, body mediaVerifyRequest) (datatypes.VerificationResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return datatypes.VerificationResult{}, fmt.Errorf("failed to encode verification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return datatypes.VerificationResult{}, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return datatypes.VerificationResult{}, fmt.Errorf("verification backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return datatypes.VerificationResult{},
			fmt.Errorf("verification backend returned status %d: %s", resp.StatusCode, string(raw))
	}

	var result datatypes.VerificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return datatypes.VerificationResult{}, fmt.Errorf("failed to decode verification response: %w", err)
	}
	return result, nil
}
