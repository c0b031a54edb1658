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
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aegislabs/aegis/services/orchestrator/repository"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// wsPingInterval keeps intermediate proxies from dropping idle
// connections while a long verification runs.
const wsPingInterval = 30 * time.Second

// HandleChatWebSocket holds a chat session open.
//
// # Description
//
// On connect the client receives its session ID, which it attaches to
// subsequent /chatbot/verify requests as the session_id form field. The
// socket itself carries only the session handshake and keep-alive pings;
// verification traffic stays on HTTP where multipart uploads are simpler.
func HandleChatWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		sessionID := uuid.New().String()
		slog.Info("New websocket session started", "sessionID", sessionID)

		if err := ws.WriteJSON(map[string]any{
			"action":     "session_start",
			"session_id": sessionID,
		}); err != nil {
			slog.Warn("Failed to send session handshake", "error", err)
			return
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				// Client messages are echoes and pongs; any read error
				// means the client went away.
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				slog.Info("Websocket session closed", "sessionID", sessionID)
				return
			case <-ticker.C:
				deadline := time.Now().Add(10 * time.Second)
				if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					slog.Info("Websocket ping failed, closing", "sessionID", sessionID)
					return
				}
			}
		}
	}
}

// HandleSessionHistory returns a session's verification history, oldest
// first. Answers an empty list for unknown sessions.
func HandleSessionHistory(history *repository.HistoryRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := verifyTracer.Start(c.Request.Context(), "HandleSessionHistory")
		defer span.End()

		if history == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history storage is not configured"})
			return
		}

		sessionID := c.Param("sessionId")
		entries, err := history.BySession(ctx, sessionID)
		if err != nil {
			span.RecordError(err)
			slog.Error("Failed to load session history", "session_id", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "entries": entries})
	}
}

// HandleListDebunks serves the published debunk feed. The limit query
// parameter caps the page size.
func HandleListDebunks(debunks *repository.DebunkRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := verifyTracer.Start(c.Request.Context(), "HandleListDebunks")
		defer span.End()

		if debunks == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "debunk storage is not configured"})
			return
		}

		limit := 0
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			limit = parsed
		}

		posts, err := debunks.Recent(ctx, limit)
		if err != nil {
			span.RecordError(err)
			slog.Error("Failed to load debunk posts", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load debunks"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"posts": posts})
	}
}
