// Package storage defines persistence contracts for enrichment cache state.
package storage

import (
	"context"
	"time"
)

// Entry stores one cached enrichment payload for a resource.
type Entry struct {
	ResourceKey string
	Content     string
	StoredAt    time.Time
}

// Store persists enrichment cache entries.
type Store interface {
	GetEntry(ctx context.Context, resourceKey string) (Entry, bool, error)
	PutEntry(ctx context.Context, entry Entry) error
	DeleteEntry(ctx context.Context, resourceKey string) error
	Clear(ctx context.Context) error
	Close() error
}
