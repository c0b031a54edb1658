// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability holds the Prometheus instrumentation for the
// verification pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aegis"

// Metrics bundles the pipeline's Prometheus collectors. A single instance
// is created in main and injected into the verification service.
type Metrics struct {
	RequestsTotal        *prometheus.CounterVec
	VerdictsTotal        *prometheus.CounterVec
	ItemsTotal           *prometheus.CounterVec
	VerifierLatency      *prometheus.HistogramVec
	ActiveRequests       prometheus.Gauge
	CleanupFailuresTotal prometheus.Counter
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
}

// NewMetrics registers the collectors with the given registerer. Pass
// prometheus.DefaultRegisterer in production; a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verify_requests_total",
			Help:      "Verification requests received, by outcome status.",
		}, []string{"status"}),
		VerdictsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Aggregated verdicts produced, by verdict value.",
		}, []string{"verdict"}),
		ItemsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_items_total",
			Help:      "Individual items dispatched to verifiers, by kind.",
		}, []string{"kind"}),
		VerifierLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verifier_latency_seconds",
			Help:      "Wall clock latency of a single verifier call.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"kind"}),
		ActiveRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "verify_active_requests",
			Help:      "Verification requests currently being processed.",
		}),
		CleanupFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Temp file cleanup attempts that failed.",
		}),
		CacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdict_cache_hits_total",
			Help:      "Verdict cache lookups that returned a stored result.",
		}),
		CacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdict_cache_misses_total",
			Help:      "Verdict cache lookups that found nothing.",
		}),
	}
}

// ObserveVerifier records one verifier call's latency.
func (m *Metrics) ObserveVerifier(kind string, start time.Time) {
	if m == nil {
		return
	}
	m.VerifierLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// CountItem increments the per-kind item counter.
func (m *Metrics) CountItem(kind string) {
	if m == nil {
		return
	}
	m.ItemsTotal.WithLabelValues(kind).Inc()
}

// CountVerdict increments the per-verdict counter.
func (m *Metrics) CountVerdict(verdict string) {
	if m == nil {
		return
	}
	m.VerdictsTotal.WithLabelValues(verdict).Inc()
}

// CountRequest increments the request counter for the given status.
func (m *Metrics) CountRequest(status string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(status).Inc()
}

// TrackActive increments the active gauge and returns the matching
// decrement, for use with defer.
func (m *Metrics) TrackActive() func() {
	if m == nil {
		return func() {}
	}
	m.ActiveRequests.Inc()
	return m.ActiveRequests.Dec
}

// CountCleanupFailure records a failed temp file removal.
func (m *Metrics) CountCleanupFailure() {
	if m == nil {
		return
	}
	m.CleanupFailuresTotal.Inc()
}

// CountCacheHit records a verdict cache hit.
func (m *Metrics) CountCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// CountCacheMiss records a verdict cache miss.
func (m *Metrics) CountCacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}
