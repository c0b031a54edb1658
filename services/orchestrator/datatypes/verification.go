// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the orchestrator service.
//
// This file contains the domain types for content verification: the items
// submitted for checking, the per-item results returned by verifiers, and
// the aggregated outcome serialized into the HTTP response.
package datatypes

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxTextInputBytes is the maximum size of the text_input form field.
	// Oversized claims are rejected before any verifier is invoked.
	MaxTextInputBytes = 32 * 1024 // 32KB

	// MaxFilesPerRequest is the maximum number of file parts accepted by
	// the verification endpoint in a single request.
	MaxFilesPerRequest = 10

	// MaxUploadBytes is the maximum size of a single uploaded file.
	MaxUploadBytes = 100 * 1024 * 1024 // 100MB
)

// =============================================================================
// Verdicts
// =============================================================================

// Verdict is the categorical outcome of checking one claim or a whole batch.
//
// # Description
//
// Per-item results resolve to one of: true, false, uncertain, mixed, error,
// unknown. The aggregate for a request additionally uses no_content when the
// request produced no results at all. Comparisons are case-insensitive; use
// NormalizeVerdict before comparing raw upstream strings.
type Verdict string

const (
	VerdictTrue      Verdict = "true"
	VerdictFalse     Verdict = "false"
	VerdictUncertain Verdict = "uncertain"
	VerdictMixed     Verdict = "mixed"
	VerdictError     Verdict = "error"
	VerdictUnknown   Verdict = "unknown"
	VerdictNoContent Verdict = "no_content"
)

// NormalizeVerdict lowercases and trims a raw verdict string so upstream
// variations ("True", " FALSE ") compare equal to the canonical constants.
func NormalizeVerdict(raw string) Verdict {
	return Verdict(strings.ToLower(strings.TrimSpace(raw)))
}

// =============================================================================
// Verification Items
// =============================================================================

// ItemKind identifies what kind of content a VerificationItem carries.
type ItemKind string

const (
	ItemKindText  ItemKind = "text"
	ItemKindImage ItemKind = "image"
	ItemKindVideo ItemKind = "video"
	ItemKindAudio ItemKind = "audio"
	ItemKindURL   ItemKind = "url"
)

// Source tags a result with the provenance of the content it verified.
// Immutable once set on an item.
type Source string

const (
	SourceTextInput    Source = "text_input"
	SourceUploadedFile Source = "uploaded_file"
	SourceURL          Source = "url"
)

// VerificationItem is one unit of content submitted for checking.
//
// # Description
//
// Items are created per request by the handler from the multipart form and
// never persisted beyond the request's lifetime. Exactly one of Text,
// FilePath, or URL is populated depending on Kind.
//
// # Fields
//
//   - Kind: What the payload is (text, image, video, audio, url).
//   - Source: Provenance tag (text_input, uploaded_file, url).
//   - Text: The claim text for Kind == text.
//   - URL: The submitted URL for Kind == url.
//   - FilePath: Local temp path of an uploaded file.
//   - FileName, ContentType, Size: Upload metadata echoed back in details.
type VerificationItem struct {
	Kind        ItemKind
	Source      Source
	Text        string
	URL         string
	FilePath    string
	FileName    string
	ContentType string
	Size        int64
}

// =============================================================================
// Verification Results
// =============================================================================

// VerificationResult is the outcome of verifying one VerificationItem.
//
// # Description
//
// The shape mirrors what the external verifier services return, which is
// intentionally loose: Verified and Verdict may disagree or be absent, the
// Message may be raw LLM output wrapped in JSON or markdown fencing, and
// Details is an open-ended diagnostic map that may itself carry an
// "overall_verdict" fallback. Resolution to exactly one verdict happens in
// the aggregator, never here.
type VerificationResult struct {
	Verified *bool          `json:"verified,omitempty"`
	Verdict  string         `json:"verdict,omitempty"`
	Message  string         `json:"message,omitempty"`
	Summary  string         `json:"summary,omitempty"`
	Source   Source         `json:"source,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// ErrorResult builds a degraded-but-valid result for a failed item. The
// caller supplies a user-safe message; raw error text stays in logs.
func ErrorResult(source Source, message string) VerificationResult {
	return VerificationResult{
		Verdict: string(VerdictError),
		Message: message,
		Source:  source,
	}
}

// ReceivedFile echoes upload metadata back to the caller.
type ReceivedFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// =============================================================================
// Aggregate Outcome
// =============================================================================

// VerifyDetails is the details block of a verification response.
type VerifyDetails struct {
	Results            []VerificationResult `json:"results"`
	VerificationType   string               `json:"verification_type"`
	ClaimContext       string               `json:"claim_context"`
	ClaimDate          string               `json:"claim_date"`
	ReceivedFilesCount int                  `json:"received_files_count"`
	ReceivedFiles      []ReceivedFile       `json:"received_files"`
}

// AggregateOutcome is the final combined state for a request.
//
// # Description
//
// Computed once per request by the response composer and immediately
// serialized into the HTTP response. Results preserve submission order.
// The core never persists outcomes itself; the chat history repository
// stores them on behalf of a session when one is attached.
type AggregateOutcome struct {
	Message string        `json:"message"`
	Verdict Verdict       `json:"verdict"`
	Details VerifyDetails `json:"details"`
}

// =============================================================================
// Standalone Verifier Requests
// =============================================================================

// verifyValidate validates standalone verifier request bodies.
var verifyValidate *validator.Validate

func init() {
	verifyValidate = validator.New()
	_ = verifyValidate.RegisterValidation("maxbytes", validateMaxTextBytes)
}

// validateMaxTextBytes checks byte length (not rune count) so oversized
// payloads cannot slip past the limit via multibyte runes.
func validateMaxTextBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxTextInputBytes
}

// TextVerifyRequest is the request body for POST /verify/text.
//
// # Fields
//
//   - RequestID: Optional client-supplied UUID; generated when absent.
//   - Text: Required. The claim to check, at most 32KB.
//   - ClaimContext: Optional context about where the claim was seen.
//   - ClaimDate: Optional date the claim refers to.
type TextVerifyRequest struct {
	RequestID    string `json:"request_id" validate:"omitempty,uuid4"`
	Text         string `json:"text" validate:"required,maxbytes"`
	ClaimContext string `json:"claim_context"`
	ClaimDate    string `json:"claim_date"`
}

// Validate validates the TextVerifyRequest fields.
func (r *TextVerifyRequest) Validate() error {
	return verifyValidate.Struct(r)
}

// EnsureDefaults populates RequestID and the claim context/date fallbacks
// the verifiers expect when the client omitted them.
func (r *TextVerifyRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.ClaimContext == "" {
		r.ClaimContext = "Unknown context"
	}
	if r.ClaimDate == "" {
		r.ClaimDate = "Unknown date"
	}
}

// URLVerifyRequest is the request body for POST /verify/image and
// POST /verify/video when the content is referenced by URL.
type URLVerifyRequest struct {
	RequestID    string `json:"request_id" validate:"omitempty,uuid4"`
	URL          string `json:"url" validate:"required,url"`
	ClaimContext string `json:"claim_context"`
	ClaimDate    string `json:"claim_date"`
}

// Validate validates the URLVerifyRequest fields.
func (r *URLVerifyRequest) Validate() error {
	return verifyValidate.Struct(r)
}

// EnsureDefaults mirrors TextVerifyRequest.EnsureDefaults.
func (r *URLVerifyRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.ClaimContext == "" {
		r.ClaimContext = "Unknown context"
	}
	if r.ClaimDate == "" {
		r.ClaimDate = "Unknown date"
	}
}

// =============================================================================
// History Types
// =============================================================================

// HistoryEntry is one persisted verification outcome for a chat session.
type HistoryEntry struct {
	ID        string           `bson:"_id,omitempty" json:"id"`
	SessionID string           `bson:"session_id" json:"session_id"`
	Outcome   AggregateOutcome `bson:"outcome" json:"outcome"`
	CreatedAt time.Time        `bson:"created_at" json:"created_at"`
}

// DebunkPost is a published debunk article surfaced on the feed.
type DebunkPost struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Title     string    `bson:"title" json:"title"`
	Claim     string    `bson:"claim" json:"claim"`
	Verdict   string    `bson:"verdict" json:"verdict"`
	Body      string    `bson:"body" json:"body"`
	SourceURL string    `bson:"source_url,omitempty" json:"source_url,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// User is an account record in the document store.
type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Email        string    `bson:"email" json:"email"`
	Name         string    `bson:"name" json:"name"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}
