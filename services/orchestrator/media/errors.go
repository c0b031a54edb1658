// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package media

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

// ErrorKind categorizes media resolution failures so callers can decide
// between falling back to direct-URL verification and reporting an error
// verdict.
type ErrorKind string

const (
	// KindToolUnavailable means the external media tool is not installed
	// on the execution host.
	KindToolUnavailable ErrorKind = "tool_unavailable"

	// KindMetadataFetch means the metadata-only probe exited non-zero or
	// timed out.
	KindMetadataFetch ErrorKind = "metadata_fetch"

	// KindDownload means the asset download exited non-zero or timed out.
	KindDownload ErrorKind = "download"

	// KindNoFileProduced means the download reported success but left the
	// output directory empty.
	KindNoFileProduced ErrorKind = "no_file_produced"

	// KindNoCaptions means the caption extraction produced no subtitle
	// file or no usable text.
	KindNoCaptions ErrorKind = "no_captions"
)

// MediaError wraps a media tool failure with its category.
type MediaError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *MediaError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("media %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("media %s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *MediaError) Unwrap() error {
	return e.Err
}

// kindOf extracts the ErrorKind from an error chain, or "" if the error
// is not a MediaError.
func kindOf(err error) ErrorKind {
	var me *MediaError
	if errors.As(err, &me) {
		return me.Kind
	}
	return ""
}

// IsToolUnavailable reports whether the media tool is missing from the host.
func IsToolUnavailable(err error) bool {
	return kindOf(err) == KindToolUnavailable
}

// IsMetadataFetchError reports whether the metadata probe failed.
func IsMetadataFetchError(err error) bool {
	return kindOf(err) == KindMetadataFetch
}

// IsDownloadError reports whether the asset download failed.
func IsDownloadError(err error) bool {
	return kindOf(err) == KindDownload
}

// IsNoFileProduced reports whether the download left no file behind.
func IsNoFileProduced(err error) bool {
	return kindOf(err) == KindNoFileProduced
}

// IsNoCaptions reports whether caption extraction found nothing usable.
func IsNoCaptions(err error) bool {
	return kindOf(err) == KindNoCaptions
}
