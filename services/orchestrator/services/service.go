// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aegislabs/aegis/services/llm"
	"github.com/aegislabs/aegis/services/orchestrator/datatypes"
	"github.com/aegislabs/aegis/services/orchestrator/observability"
)

var verifyTracer = otel.Tracer("aegis.orchestrator.verify")

// VerificationService coordinates the per-item verifiers and reduces their
// results into a single outcome.
//
// # Description
//
// The service is stateless between requests. Items within one request are
// processed strictly in submission order, one at a time; a failure on one
// item degrades that item to an error result and never aborts the batch.
// All construction happens in main; every dependency is injected and the
// optional ones (cache, metrics) tolerate nil.
type VerificationService struct {
	text     TextVerifier
	image    ImageVerifier
	video    VideoVerifier
	audio    AudioClassifier
	llmChat  llm.LLMClient
	resolver MediaResolver
	captions CaptionSource
	cache    VerdictCache
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewVerificationService wires the verification pipeline.
//
// # Inputs
//
//   - text, image, video, audio: The per-kind verifiers. text is required;
//     the others may be nil, in which case matching items degrade to error
//     results instead of panicking.
//   - llmClient: Used for claim extraction, summaries, and audio phrasing.
//   - resolver: Social media attachment downloader.
//   - captions: YouTube transcript source.
//   - cache: Optional verdict cache, nil disables caching.
//   - metrics: Optional Prometheus collectors, nil disables instrumentation.
func NewVerificationService(
	text TextVerifier,
	image ImageVerifier,
	video VideoVerifier,
	audio AudioClassifier,
	llmClient llm.LLMClient,
	resolver MediaResolver,
	captions CaptionSource,
	cache VerdictCache,
	metrics *observability.Metrics,
) *VerificationService {
	return &VerificationService{
		text:     text,
		image:    image,
		video:    video,
		audio:    audio,
		llmChat:  llmClient,
		resolver: resolver,
		captions: captions,
		cache:    cache,
		metrics:  metrics,
		logger:   slog.Default().With("component", "verification_service"),
	}
}

// Process runs every item through its verifier and composes the combined
// outcome.
//
// # Description
//
// Items are handled sequentially in the order given. Temp files created
// during processing (media downloads, caption files) are registered on
// cleanup and flushed exactly once before returning, on success and
// failure alike. Process itself never returns an error: every failure mode
// is representable in the outcome.
func (s *VerificationService) Process(
	ctx context.Context,
	items []datatypes.VerificationItem,
	claimContext string,
	claimDate string,
	received []datatypes.ReceivedFile,
) datatypes.AggregateOutcome {
	ctx, span := verifyTracer.Start(ctx, "VerificationService.Process")
	defer span.End()
	span.SetAttributes(attribute.Int("verify.items", len(items)))

	defer s.metrics.TrackActive()()

	cleanup := &CleanupList{}
	defer s.flushCleanup(cleanup)

	results := make([]datatypes.VerificationResult, 0, len(items))
	allAudio := len(items) > 0
	for _, item := range items {
		if item.Kind != datatypes.ItemKindAudio {
			allAudio = false
		}
		s.metrics.CountItem(string(item.Kind))

		start := time.Now()
		result := s.dispatch(ctx, item, claimContext, claimDate, cleanup)
		s.metrics.ObserveVerifier(string(item.Kind), start)

		result.Message = NormalizeMessage(result.Message)
		results = append(results, result)
	}

	verificationType := classifyBatch(items)
	outcome := ComposeOutcome(results, allAudio, verificationType, claimContext, claimDate, received)
	s.metrics.CountVerdict(string(outcome.Verdict))
	span.SetAttributes(attribute.String("verify.verdict", string(outcome.Verdict)))

	return outcome
}

// flushCleanup removes temp artifacts, feeding failures into metrics.
func (s *VerificationService) flushCleanup(cleanup *CleanupList) {
	for range cleanup.Flush() {
		s.metrics.CountCleanupFailure()
	}
}

// classifyBatch returns the shared item kind, or "mixed" when the batch
// spans kinds. An empty batch classifies as "none".
func classifyBatch(items []datatypes.VerificationItem) string {
	if len(items) == 0 {
		return "none"
	}
	first := items[0].Kind
	for _, item := range items[1:] {
		if item.Kind != first {
			return "mixed"
		}
	}
	return string(first)
}
