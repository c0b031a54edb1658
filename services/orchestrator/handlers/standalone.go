// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/aegislabs/aegis/services/orchestrator/datatypes"
	"github.com/aegislabs/aegis/services/orchestrator/services"
)

// HandleVerifyText checks a single claim submitted as JSON. Unlike the
// chatbot endpoint it takes no files and returns the bare result.
func HandleVerifyText(svc *services.VerificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := verifyTracer.Start(c.Request.Context(), "HandleVerifyText")
		defer span.End()

		var req datatypes.TextVerifyRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the text verify request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.EnsureDefaults()

		result := svc.VerifyTextClaim(ctx, req.Text, req.ClaimContext, req.ClaimDate)
		c.JSON(http.StatusOK, gin.H{"request_id": req.RequestID, "result": result})
	}
}

// HandleVerifyImage checks a single image referenced by URL.
func HandleVerifyImage(svc *services.VerificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := verifyTracer.Start(c.Request.Context(), "HandleVerifyImage")
		defer span.End()

		var req datatypes.URLVerifyRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the image verify request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.EnsureDefaults()

		result := svc.VerifyImageURL(ctx, req.URL, req.ClaimContext, req.ClaimDate)
		c.JSON(http.StatusOK, gin.H{"request_id": req.RequestID, "result": result})
	}
}

// HandleVerifyVideo checks a single video referenced by URL.
func HandleVerifyVideo(svc *services.VerificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := verifyTracer.Start(c.Request.Context(), "HandleVerifyVideo")
		defer span.End()

		var req datatypes.URLVerifyRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the video verify request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.EnsureDefaults()

		result := svc.VerifyVideoURL(ctx, req.URL, req.ClaimContext, req.ClaimDate)
		c.JSON(http.StatusOK, gin.H{"request_id": req.RequestID, "result": result})
	}
}
