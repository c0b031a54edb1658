// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package repository provides the MongoDB persistence layer for users,
// session history, and published debunks.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aegislabs/aegis/services/orchestrator/datatypes"
)

const (
	databaseName       = "aegis"
	usersCollection    = "users"
	historyCollection  = "history"
	debunksCollection  = "debunk_posts"
	defaultMongoURI    = "mongodb://localhost:27017"
	connectTimeout     = 10 * time.Second
	defaultRecentLimit = 20
)

// ErrNotFound is returned by lookups that matched no document.
var ErrNotFound = errors.New("document not found")

// Store wraps the Mongo client and exposes the typed repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to MongoDB and pings it.
//
// # Inputs
//
//   - uri: Connection string; empty falls back to MONGO_URI then the
//     local default.
func NewStore(ctx context.Context, uri string) (*Store, error) {
	if uri == "" {
		uri = os.Getenv("MONGO_URI")
	}
	if uri == "" {
		uri = defaultMongoURI
		slog.Info("MONGO_URI not set, using default", "uri", defaultMongoURI)
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping failed: %w", err)
	}

	return &Store{client: client, db: client.Database(databaseName)}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Users returns the user repository.
func (s *Store) Users() *UserRepository {
	return &UserRepository{col: s.db.Collection(usersCollection)}
}

// History returns the session history repository.
func (s *Store) History() *HistoryRepository {
	return &HistoryRepository{col: s.db.Collection(historyCollection)}
}

// Debunks returns the debunk feed repository.
func (s *Store) Debunks() *DebunkRepository {
	return &DebunkRepository{col: s.db.Collection(debunksCollection)}
}

// =============================================================================
// Users
// =============================================================================

// UserRepository stores account records keyed by email.
type UserRepository struct {
	col *mongo.Collection
}

// FindByEmail returns the user with the given email or ErrNotFound.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*datatypes.User, error) {
	var user datatypes.User
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return &user, nil
}

// Insert stores a new user. The email must not already exist; enforce a
// unique index on email in deployment.
func (r *UserRepository) Insert(ctx context.Context, user *datatypes.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if _, err := r.col.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// =============================================================================
// History
// =============================================================================

// HistoryRepository stores verification outcomes per chat session.
type HistoryRepository struct {
	col *mongo.Collection
}

// Save persists one outcome for a session.
func (r *HistoryRepository) Save(ctx context.Context, entry *datatypes.HistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if _, err := r.col.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to save history entry: %w", err)
	}
	return nil
}

// BySession returns a session's entries, oldest first.
func (r *HistoryRepository) BySession(ctx context.Context, sessionID string) ([]datatypes.HistoryEntry, error) {
	cursor, err := r.col.Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []datatypes.HistoryEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode history entries: %w", err)
	}
	return entries, nil
}

// =============================================================================
// Debunks
// =============================================================================

// DebunkRepository serves the published debunk feed.
type DebunkRepository struct {
	col *mongo.Collection
}

// Recent returns the newest posts, most recent first. limit <= 0 uses
// the default.
func (r *DebunkRepository) Recent(ctx context.Context, limit int) ([]datatypes.DebunkPost, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	cursor, err := r.col.Find(ctx,
		bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query debunk posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := []datatypes.DebunkPost{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("failed to decode debunk posts: %w", err)
	}
	return posts, nil
}

// Insert publishes a debunk post to the feed.
func (r *DebunkRepository) Insert(ctx context.Context, post *datatypes.DebunkPost) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	if _, err := r.col.InsertOne(ctx, post); err != nil {
		return fmt.Errorf("failed to insert debunk post: %w", err)
	}
	return nil
}
