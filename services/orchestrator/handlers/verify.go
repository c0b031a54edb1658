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
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aegislabs/aegis/services/orchestrator/datatypes"
	"github.com/aegislabs/aegis/services/orchestrator/observability"
	"github.com/aegislabs/aegis/services/orchestrator/repository"
	"github.com/aegislabs/aegis/services/orchestrator/services"
)

var verifyTracer = otel.Tracer("aegis.orchestrator.handlers")

// HandleChatbotVerify is the main verification endpoint.
//
// # Description
//
// Accepts a multipart form with an optional text_input field (claim text
// or a URL), optional claim_context, claim_date, and session_id fields,
// and up to ten uploaded files. Every part becomes a verification item;
// the whole batch runs through the pipeline and the aggregated outcome is
// returned as JSON.
//
// A request whose parts are all unroutable still answers 200 with an
// error field so the chat frontend can render the message inline. Only
// infrastructure failures answer 500.
//
// # Inputs
//
//   - svc: The verification pipeline. Must not be nil.
//   - history: Optional session persistence; nil skips history writes.
//   - metrics: Optional instrumentation, nil tolerated.
func HandleChatbotVerify(svc *services.VerificationService, history *repository.HistoryRepository, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := verifyTracer.Start(c.Request.Context(), "HandleChatbotVerify")
		defer span.End()

		form, err := c.MultipartForm()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the verification form", "error", err)
			metrics.CountRequest("bad_request")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
			return
		}

		textInput := strings.TrimSpace(c.PostForm("text_input"))
		claimContext := strings.TrimSpace(c.PostForm("claim_context"))
		claimDate := strings.TrimSpace(c.PostForm("claim_date"))
		sessionID := strings.TrimSpace(c.PostForm("session_id"))

		if len(textInput) > datatypes.MaxTextInputBytes {
			metrics.CountRequest("bad_request")
			c.JSON(http.StatusBadRequest, gin.H{"error": "text_input exceeds the maximum size"})
			return
		}

		files := form.File["files"]
		if len(files) > datatypes.MaxFilesPerRequest {
			metrics.CountRequest("bad_request")
			c.JSON(http.StatusBadRequest, gin.H{"error": "too many files in one request"})
			return
		}

		var items []datatypes.VerificationItem
		if textInput != "" {
			items = append(items, itemFromText(textInput))
		}

		uploads := &services.CleanupList{}
		defer uploads.Flush()

		received := make([]datatypes.ReceivedFile, 0, len(files))
		for _, header := range files {
			if header.Size > datatypes.MaxUploadBytes {
				metrics.CountRequest("bad_request")
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "uploaded file " + header.Filename + " exceeds the maximum size",
				})
				return
			}
			item, err := saveUpload(c, header, uploads)
			if err != nil {
				span.RecordError(err)
				slog.Error("Failed to store uploaded file", "filename", header.Filename, "error", err)
				metrics.CountRequest("failure")
				c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to store an uploaded file"})
				return
			}
			items = append(items, item)
			received = append(received, datatypes.ReceivedFile{
				Filename:    item.FileName,
				ContentType: item.ContentType,
				Size:        item.Size,
			})
		}

		routable := routableItems(items)
		if len(items) > 0 && len(routable) == 0 {
			metrics.CountRequest("unroutable")
			c.JSON(http.StatusOK, gin.H{
				"error": "None of the submitted content could be verified. Supported content: text, images, videos, audio, and links.",
			})
			return
		}

		// Claim context defaults to the submitted text so media items are
		// checked against what the user actually said about them.
		if claimContext == "" {
			if textInput != "" {
				claimContext = textInput
			} else {
				claimContext = "Unknown context"
			}
		}
		if claimDate == "" {
			claimDate = "Unknown date"
		}

		span.SetAttributes(
			attribute.Int("verify.items", len(routable)),
			attribute.Int("verify.files", len(received)),
		)

		outcome := svc.Process(ctx, routable, claimContext, claimDate, received)
		metrics.CountRequest("success")

		if sessionID != "" && history != nil {
			entry := &datatypes.HistoryEntry{SessionID: sessionID, Outcome: outcome}
			if err := history.Save(ctx, entry); err != nil {
				// History is best-effort; the verdict still goes back.
				slog.Warn("Failed to persist verification history", "session_id", sessionID, "error", err)
			}
		}

		c.JSON(http.StatusOK, outcome)
	}
}

// itemFromText classifies free text as either a URL item or a claim.
func itemFromText(text string) datatypes.VerificationItem {
	if isWebURL(text) {
		return datatypes.VerificationItem{
			Kind:   datatypes.ItemKindURL,
			Source: datatypes.SourceURL,
			URL:    text,
		}
	}
	return datatypes.VerificationItem{
		Kind:   datatypes.ItemKindText,
		Source: datatypes.SourceTextInput,
		Text:   text,
	}
}

// isWebURL reports whether text is a single http(s) URL and nothing else.
func isWebURL(text string) bool {
	if strings.ContainsAny(text, " \t\n") {
		return false
	}
	u, err := url.Parse(text)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// routableItems filters out items no verifier can handle.
func routableItems(items []datatypes.VerificationItem) []datatypes.VerificationItem {
	routable := make([]datatypes.VerificationItem, 0, len(items))
	for _, item := range items {
		switch item.Kind {
		case datatypes.ItemKindText, datatypes.ItemKindImage, datatypes.ItemKindVideo,
			datatypes.ItemKindAudio, datatypes.ItemKindURL:
			routable = append(routable, item)
		}
	}
	return routable
}
