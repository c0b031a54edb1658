// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/aegislabs/aegis/services/llm"
	"github.com/aegislabs/aegis/services/orchestrator/cache"
	"github.com/aegislabs/aegis/services/orchestrator/config"
	"github.com/aegislabs/aegis/services/orchestrator/media"
	"github.com/aegislabs/aegis/services/orchestrator/middleware"
	"github.com/aegislabs/aegis/services/orchestrator/observability"
	"github.com/aegislabs/aegis/services/orchestrator/repository"
	"github.com/aegislabs/aegis/services/orchestrator/routes"
	"github.com/aegislabs/aegis/services/orchestrator/services"
	"github.com/aegislabs/aegis/services/orchestrator/verifiers"
)

func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if endpoint == "" {
		endpoint = "aegis-otel-collector:4317"
	}
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("aegis-orchestrator")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	configPath := os.Getenv("AEGIS_CONFIG")
	loader, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("FATAL: Could not load configuration: %v", err)
	}
	cfg := loader.Current()
	go func() {
		if err := loader.Watch(); err != nil {
			slog.Warn("Config watcher stopped", "error", err)
		}
	}()

	cleanup, err := initTracer(cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	// MongoDB is optional. Without it the service still verifies content;
	// history and the debunk feed answer 503.
	var store *repository.Store
	store, err = repository.NewStore(context.Background(), cfg.MongoURI)
	if err != nil {
		slog.Warn("MongoDB unavailable, running without persistence", "error", err)
		store = nil
	} else {
		defer store.Close(context.Background())
	}

	var verdictCache services.VerdictCache
	bc, err := cache.NewVerdictCache(cfg.CacheDir, cfg.CacheTTL())
	if err != nil {
		slog.Warn("Verdict cache unavailable, running without caching", "error", err)
	} else {
		verdictCache = bc
		defer bc.Close()
	}

	log.Println("Configuring the LLM Client")
	var llmClient llm.LLMClient
	if oc, err := llm.NewOpenAIClient(cfg.LLMRatePerSec); err != nil {
		slog.Warn("LLM backend unavailable, LLM-assisted verification disabled", "error", err)
	} else {
		llmClient = oc
		loader.OnReload(func(cfg config.Config) {
			oc.SetRate(cfg.LLMRatePerSec)
		})
	}

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	runner := media.NewExecRunner()

	// Endpoint providers re-read the live config so edits to the
	// config file reach the verifiers without a restart.
	svc := services.NewVerificationService(
		verifiers.NewTextVerifier(llmClient),
		orNilImage(verifiers.NewImageVerifier(func() string { return loader.Current().ImageVerifierURL })),
		orNilVideo(verifiers.NewVideoVerifier(func() string { return loader.Current().VideoVerifierURL })),
		orNilAudio(verifiers.NewAudioClassifier(func() string { return loader.Current().AudioClassifierURL })),
		llmClient,
		media.NewResolver("", runner),
		media.NewCaptionExtractor("", runner),
		verdictCache,
		metrics,
	)

	router := gin.Default()
	router.Use(otelgin.Middleware("aegis-orchestrator"))

	routes.SetupRoutes(router, routes.Deps{
		Verification: svc,
		Store:        store,
		Metrics:      metrics,
		Auth:         middleware.NopAuthProvider{},
	})

	port := strconv.Itoa(cfg.Port)
	log.Println("Starting the verification server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// The orNil helpers keep a typed nil pointer from masquerading as a
// non-nil interface inside the service.

func orNilImage(v *verifiers.ImageVerifier) services.ImageVerifier {
	if v == nil {
		return nil
	}
	return v
}

func orNilVideo(v *verifiers.VideoVerifier) services.VideoVerifier {
	if v == nil {
		return nil
	}
	return v
}

func orNilAudio(v *verifiers.AudioClassifier) services.AudioClassifier {
	if v == nil {
		return nil
	}
	return v
}
