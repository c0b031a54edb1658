// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"log/slog"
	"os"
)

// CleanupList accumulates temporary files and directories owned by one
// request. Paths are added incrementally as media is fetched and flushed
// exactly once at the end of request processing, regardless of which
// branch exited.
//
// Not safe for concurrent use; each request owns its own list, which is
// all the sequential pipeline needs.
type CleanupList struct {
	paths []string
}

// Add registers a path for deletion. Empty paths are ignored so callers
// can pass through optional temp dirs without checking.
func (c *CleanupList) Add(path string) {
	if path == "" {
		return
	}
	c.paths = append(c.paths, path)
}

// Len returns the number of registered paths.
func (c *CleanupList) Len() int {
	return len(c.paths)
}

// Flush deletes every registered path and clears the list. Deletion
// failures are logged and counted, never returned as an error; cleanup
// must not mask the real outcome of the request. Safe to call more than
// once.
func (c *CleanupList) Flush() (failed int) {
	for _, path := range c.paths {
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("Failed to remove temp path", "path", path, "error", err)
			failed++
		}
	}
	c.paths = nil
	return failed
}
