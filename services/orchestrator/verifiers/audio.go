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
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// audioClassifyTimeout bounds one deepfake classification call.
const audioClassifyTimeout = 60 * time.Second

// AudioClassifier posts audio files to the external deepfake detection
// backend.
//
// # Description
//
// Unlike the image and video backends, the audio backend receives the
// file content itself as a multipart upload; the classifier typically
// runs in a separate container without access to the orchestrator's
// filesystem.
type AudioClassifier struct {
	endpoint   func() string
	httpClient *http.Client
}

// NewAudioClassifier takes an endpoint provider, consulted on every
// call. Returns nil when no endpoint is configured at startup.
func NewAudioClassifier(endpoint func() string) *AudioClassifier {
	if endpoint == nil || endpoint() == "" {
		slog.Warn("Audio classifier endpoint not configured, audio verification disabled")
		return nil
	}
	return &AudioClassifier{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: audioClassifyTimeout},
	}
}

// NewAudioClassifierWithEndpoint wraps a fixed endpoint, used by tests.
func NewAudioClassifierWithEndpoint(endpoint string) *AudioClassifier {
	return NewAudioClassifier(func() string { return endpoint })
}

// IsDeepfake uploads the audio file and returns the classifier's call.
func (c *AudioClassifier) IsDeepfake(ctx context.Context, path string) (bool, error) {
	ctx, span := verifierTracer.Start(ctx, "AudioClassifier.IsDeepfake")
	defer span.End()

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return false, fmt.Errorf("failed to build audio upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return false, fmt.Errorf("failed to read audio file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return false, fmt.Errorf("failed to finalize audio upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), &body)
	if err != nil {
		return false, fmt.Errorf("failed to build audio request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("audio classifier unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("audio classifier returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		IsDeepfake bool    `json:"is_deepfake"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, fmt.Errorf("failed to decode audio classification: %w", err)
	}
	return parsed.IsDeepfake, nil
}
