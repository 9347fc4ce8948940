// Package store provides per-DID document stores. Each DID owns a set of
// named documents; every document gets a record id when first written.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrRecordMissing is returned by RecordID when no record id has been
	// allocated for a document yet.
	ErrRecordMissing = errors.New("record id not allocated")
)

// Store is a key-value document store scoped to one DID.
type Store interface {
	// Get returns the document stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes the document under key, allocating a record id on first write.
	Set(ctx context.Context, key string, value []byte) error

	// RecordID returns the id allocated for key, or ErrRecordMissing.
	RecordID(ctx context.Context, key string) (string, error)
}

// Opener opens the store of a DID.
type Opener interface {
	Open(ctx context.Context, did string) (Store, error)
}

// GetJSON decodes the document under key into v.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
