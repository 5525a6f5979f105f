// Package enrichcache caches slow enrichment lookups between runs. A cache
// failure is never allowed to fail the caller; every degradation path falls
// back to a miss so the lookup simply runs again.
package enrichcache

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/louisbranch/pressroom/internal/enrichcache/storage"
	"github.com/louisbranch/pressroom/internal/telemetry"
)

// DefaultTTL bounds how long a cached enrichment stays usable. Enrichment
// data drifts slowly, so a week balances freshness against lookup cost.
const DefaultTTL = 7 * 24 * time.Hour

// FormatVersion identifies the cached payload shape. Bumping it drops every
// stored entry on the next open instead of reinterpreting old rows.
const FormatVersion = "1"

// component names this package in telemetry events.
const component = "enrichcache"

// DefaultStorePath returns the cache database location under the user
// cache directory.
func DefaultStorePath() string {
	return filepath.Join(xdg.CacheHome, "pressroom", "enrichment.db")
}

// ErrorDetector decides whether content is an error payload that must not
// be cached.
type ErrorDetector func(content string) bool

// Config defines the inputs for a cache.
type Config struct {
	// Store persists entries across runs.
	Store storage.Store
	// TTL bounds entry lifetime; DefaultTTL when zero.
	TTL time.Duration
	// IsLikelyError screens writes; LooksLikeError when nil.
	IsLikelyError ErrorDetector
	// Emitter receives diagnostics for skipped writes and storage failures.
	Emitter *telemetry.Emitter
}

// Cache is a read-through cache for enrichment payloads.
type Cache struct {
	store         storage.Store
	ttl           time.Duration
	isLikelyError ErrorDetector
	emitter       *telemetry.Emitter
	now           func() time.Time
}

// NewCache creates a cache.
func NewCache(config Config) (*Cache, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	ttl := config.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	isLikelyError := config.IsLikelyError
	if isLikelyError == nil {
		isLikelyError = LooksLikeError
	}
	return &Cache{
		store:         config.Store,
		ttl:           ttl,
		isLikelyError: isLikelyError,
		emitter:       config.Emitter,
		now:           time.Now,
	}, nil
}

// Get returns the cached content for resourceKey. Expired entries and
// storage failures both report a miss; an expired entry is also dropped so
// the next write replaces it cleanly.
func (c *Cache) Get(ctx context.Context, resourceKey string) (string, bool) {
	if c == nil || c.store == nil {
		return "", false
	}
	resourceKey = strings.TrimSpace(resourceKey)
	if resourceKey == "" {
		return "", false
	}

	entry, ok, err := c.store.GetEntry(ctx, resourceKey)
	if err != nil {
		c.warnf(ctx, "cache read for %s failed: %v", resourceKey, err)
		return "", false
	}
	if !ok {
		return "", false
	}
	// An entry is usable strictly under the TTL; at exactly the TTL it is
	// already stale.
	if c.now().Sub(entry.StoredAt) >= c.ttl {
		if err := c.store.DeleteEntry(ctx, resourceKey); err != nil {
			c.warnf(ctx, "drop expired entry %s failed: %v", resourceKey, err)
		}
		return "", false
	}
	return entry.Content, true
}

// Set stores content for resourceKey. Content that reads as an error
// payload is skipped with a diagnostic; caching an upstream failure would
// pin it for the full TTL. Storage failures are swallowed after a
// diagnostic.
func (c *Cache) Set(ctx context.Context, resourceKey, content string) {
	if c == nil || c.store == nil {
		return
	}
	resourceKey = strings.TrimSpace(resourceKey)
	if resourceKey == "" || content == "" {
		return
	}
	if c.isLikelyError(content) {
		c.emitter.Emit(ctx, telemetry.Event{
			Severity:  telemetry.SeverityInfo,
			Component: component,
			Message:   fmt.Sprintf("skipping cache write for %s: content matches an error signature", resourceKey),
		})
		return
	}

	err := c.store.PutEntry(ctx, storage.Entry{
		ResourceKey: resourceKey,
		Content:     content,
		StoredAt:    c.now(),
	})
	if err != nil {
		c.warnf(ctx, "cache write for %s failed: %v", resourceKey, err)
	}
}

// Clear drops every cached entry.
func (c *Cache) Clear(ctx context.Context) error {
	if c == nil || c.store == nil {
		return fmt.Errorf("cache is not configured")
	}
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

func (c *Cache) warnf(ctx context.Context, format string, args ...any) {
	c.emitter.Emit(ctx, telemetry.Event{
		Severity:  telemetry.SeverityWarn,
		Component: component,
		Message:   fmt.Sprintf(format, args...),
	})
}
