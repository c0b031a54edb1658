// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHealthCheck(t *testing.T) {
	router := gin.New()
	router.GET("/health", HandleHealthCheck)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleSessionHistory_NoStore(t *testing.T) {
	router := gin.New()
	router.GET("/chatbot/history/:sessionId", HandleSessionHistory(nil))

	req := httptest.NewRequest(http.MethodGet, "/chatbot/history/abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleListDebunks_InvalidLimit(t *testing.T) {
	router := gin.New()
	router.GET("/debunks", HandleListDebunks(nil))

	req := httptest.NewRequest(http.MethodGet, "/debunks?limit=-3", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Limit validation runs only when storage is configured; without a
	// store the endpoint reports unavailability first.
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
