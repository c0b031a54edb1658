// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache provides the persistent verdict cache.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/aegislabs/aegis/services/orchestrator/datatypes"
)

// defaultTTL is how long a cached verdict stays valid. Fact check
// outcomes can shift as publishers review new claims, so entries expire
// rather than live forever.
const defaultTTL = 24 * time.Hour

// VerdictCache stores verification results keyed by content hash.
//
// # Description
//
// Backed by an embedded Badger store so verdicts survive restarts.
// Lookups are best-effort: any storage error reads as a miss and writes
// are fire-and-forget with a logged warning. The cache must never be the
// reason a verification request fails.
type VerdictCache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// NewVerdictCache opens the store at dir. Pass ttl <= 0 for the default.
func NewVerdictCache(dir string, ttl time.Duration) (*VerdictCache, error) {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open verdict cache at %s: %w", dir, err)
	}
	return &VerdictCache{
		db:     db,
		ttl:    ttl,
		logger: slog.Default().With("component", "verdict_cache"),
	}, nil
}

// Get returns the cached result for key, or ok=false on a miss or any
// storage error.
func (c *VerdictCache) Get(key string) (datatypes.VerificationResult, bool) {
	var result datatypes.VerificationResult
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &result)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn("Verdict cache read failed", "error", err)
		}
		return datatypes.VerificationResult{}, false
	}
	return result, true
}

// Set stores a result under key with the cache's TTL.
func (c *VerdictCache) Set(key string, result datatypes.VerificationResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("Verdict cache encode failed", "error", err)
		return
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), payload).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		c.logger.Warn("Verdict cache write failed", "error", err)
	}
}

// Close releases the underlying store.
func (c *VerdictCache) Close() error {
	return c.db.Close()
}
