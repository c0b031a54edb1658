// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aegislabs/aegis/services/orchestrator/handlers"
	"github.com/aegislabs/aegis/services/orchestrator/middleware"
	"github.com/aegislabs/aegis/services/orchestrator/observability"
	"github.com/aegislabs/aegis/services/orchestrator/repository"
	"github.com/aegislabs/aegis/services/orchestrator/services"
)

// Deps carries everything the route table needs. Store and Metrics may
// be nil; the handlers degrade the matching endpoints.
type Deps struct {
	Verification *services.VerificationService
	Store        *repository.Store
	Metrics      *observability.Metrics
	Auth         middleware.AuthProvider
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HandleHealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var history *repository.HistoryRepository
	var debunks *repository.DebunkRepository
	if deps.Store != nil {
		history = deps.Store.History()
		debunks = deps.Store.Debunks()
	}

	auth := deps.Auth
	if auth == nil {
		auth = middleware.NopAuthProvider{}
	}

	chatbot := router.Group("/chatbot")
	chatbot.Use(middleware.AuthMiddleware(auth))
	{
		chatbot.POST("/verify", handlers.HandleChatbotVerify(deps.Verification, history, deps.Metrics))
		chatbot.GET("/ws", handlers.HandleChatWebSocket())
		chatbot.GET("/history/:sessionId", handlers.HandleSessionHistory(history))
	}

	router.GET("/debunks", handlers.HandleListDebunks(debunks))

	// Standalone verifier endpoints for service-to-service callers.
	verify := router.Group("/verify")
	verify.Use(middleware.AuthMiddleware(auth))
	{
		verify.POST("/text", handlers.HandleVerifyText(deps.Verification))
		verify.POST("/image", handlers.HandleVerifyImage(deps.Verification))
		verify.POST("/video", handlers.HandleVerifyVideo(deps.Verification))
	}
}
