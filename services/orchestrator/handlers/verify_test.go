// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegislabs/aegis/services/orchestrator/datatypes"
	"github.com/aegislabs/aegis/services/orchestrator/services"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTextVerifier struct {
	result datatypes.VerificationResult
	calls  int
}

func (s *stubTextVerifier) Verify(ctx context.Context, claim, claimContext, claimDate string) (datatypes.VerificationResult, error) {
	s.calls++
	return s.result, nil
}

type stubMediaVerifier struct {
	result datatypes.VerificationResult
	paths  []string
}

func (s *stubMediaVerifier) Verify(ctx context.Context, path, url, claimContext, claimDate string) (datatypes.VerificationResult, error) {
	s.paths = append(s.paths, path)
	return s.result, nil
}

func newVerifyRouter(text services.TextVerifier, image services.ImageVerifier) *gin.Engine {
	svc := services.NewVerificationService(text, image, nil, nil, nil, nil, nil, nil, nil)
	router := gin.New()
	router.POST("/chatbot/verify", HandleChatbotVerify(svc, nil, nil))
	return router
}

// multipartBody builds a multipart form with optional fields and files.
func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func performMultipart(router *gin.Engine, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/chatbot/verify", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// Tests
// =============================================================================

func TestHandleChatbotVerify_TextClaim(t *testing.T) {
	text := &stubTextVerifier{
		result: datatypes.VerificationResult{Verdict: "false", Message: "This was debunked in 2023."},
	}
	router := newVerifyRouter(text, nil)

	body, contentType := multipartBody(t, map[string]string{
		"text_input": "the claim to check",
	}, nil)
	w := performMultipart(router, body, contentType)

	require.Equal(t, http.StatusOK, w.Code)
	var outcome datatypes.AggregateOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.Equal(t, datatypes.VerdictFalse, outcome.Verdict)
	assert.Equal(t, "This was debunked in 2023.", outcome.Message)
	assert.Equal(t, 1, text.calls)
}

func TestHandleChatbotVerify_ImageUpload(t *testing.T) {
	image := &stubMediaVerifier{
		result: datatypes.VerificationResult{Verdict: "true", Message: "No manipulation detected."},
	}
	router := newVerifyRouter(nil, image)

	body, contentType := multipartBody(t, nil, map[string][]byte{
		"photo.jpg": []byte("fakejpegdata"),
	})
	w := performMultipart(router, body, contentType)

	require.Equal(t, http.StatusOK, w.Code)
	var outcome datatypes.AggregateOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.Equal(t, datatypes.VerdictTrue, outcome.Verdict)
	assert.Equal(t, 1, outcome.Details.ReceivedFilesCount)
	require.Len(t, outcome.Details.ReceivedFiles, 1)
	assert.Equal(t, "photo.jpg", outcome.Details.ReceivedFiles[0].Filename)
	require.Len(t, image.paths, 1)
	assert.NotEmpty(t, image.paths[0])
}

func TestHandleChatbotVerify_URLInTextInput(t *testing.T) {
	// A bare URL in text_input routes as a URL item, which without any
	// media verifier degrades to an error result rather than a text call.
	text := &stubTextVerifier{
		result: datatypes.VerificationResult{Verdict: "true", Message: "ok"},
	}
	router := newVerifyRouter(text, nil)

	body, contentType := multipartBody(t, map[string]string{
		"text_input": "https://example.com/photo.jpg",
	}, nil)
	w := performMultipart(router, body, contentType)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, text.calls)
}

func TestHandleChatbotVerify_ClaimContextDefaultsToText(t *testing.T) {
	text := &stubTextVerifier{
		result: datatypes.VerificationResult{Verdict: "true", Message: "ok"},
	}
	router := newVerifyRouter(text, nil)

	body, contentType := multipartBody(t, map[string]string{
		"text_input": "the original claim",
	}, nil)
	w := performMultipart(router, body, contentType)

	require.Equal(t, http.StatusOK, w.Code)
	var outcome datatypes.AggregateOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.Equal(t, "the original claim", outcome.Details.ClaimContext)
	assert.Equal(t, "Unknown date", outcome.Details.ClaimDate)
}

func TestHandleChatbotVerify_UnroutableUploadAnswers200WithError(t *testing.T) {
	router := newVerifyRouter(nil, nil)

	body, contentType := multipartBody(t, nil, map[string][]byte{
		"document.xyz": []byte("binary blob"),
	})
	w := performMultipart(router, body, contentType)

	require.Equal(t, http.StatusOK, w.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "None of the submitted content could be verified")
}

func TestHandleChatbotVerify_EmptyFormYieldsNoContent(t *testing.T) {
	router := newVerifyRouter(nil, nil)

	body, contentType := multipartBody(t, map[string]string{"claim_context": "x"}, nil)
	w := performMultipart(router, body, contentType)

	require.Equal(t, http.StatusOK, w.Code)
	var outcome datatypes.AggregateOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.Equal(t, datatypes.VerdictNoContent, outcome.Verdict)
}

func TestHandleChatbotVerify_NotMultipart(t *testing.T) {
	router := newVerifyRouter(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/chatbot/verify", bytes.NewBufferString(`{"x":1}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassifyUpload(t *testing.T) {
	assert.Equal(t, datatypes.ItemKindImage, classifyUpload("image/png", "x.bin"))
	assert.Equal(t, datatypes.ItemKindVideo, classifyUpload("video/mp4", "x.bin"))
	assert.Equal(t, datatypes.ItemKindAudio, classifyUpload("audio/wav", "x.bin"))
	// Content type missing, extension decides.
	assert.Equal(t, datatypes.ItemKindImage, classifyUpload("", "photo.JPEG"))
	assert.Equal(t, datatypes.ItemKindAudio, classifyUpload("application/octet-stream", "voice.mp3"))
	assert.Equal(t, datatypes.ItemKind(""), classifyUpload("application/pdf", "doc.pdf"))
}

func TestIsWebURL(t *testing.T) {
	assert.True(t, isWebURL("https://example.com/a"))
	assert.True(t, isWebURL("http://example.com"))
	assert.False(t, isWebURL("example.com/no-scheme"))
	assert.False(t, isWebURL("https://example.com with trailing words"))
	assert.False(t, isWebURL("ftp://example.com/file"))
}
