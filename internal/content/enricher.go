package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/louisbranch/pressroom/internal/enrichcache"
	"github.com/louisbranch/pressroom/internal/gateway"
)

// defaultEnrichTool is the gateway tool that fetches enrichment payloads.
const defaultEnrichTool = "fetch_enrichment"

// Enricher fetches supplementary payloads for content items through the
// command queue, with the persistent enrichment cache in front. Enrichment
// is best effort: a failed or error-shaped lookup yields no payload, never
// a build failure.
type Enricher struct {
	queue Submitter
	cache *enrichcache.Cache
	tool  string
}

// NewEnricher creates an enricher. The cache is optional; without one every
// lookup goes to the gateway.
func NewEnricher(queue Submitter, cache *enrichcache.Cache) (*Enricher, error) {
	if queue == nil {
		return nil, errors.New("command queue is required")
	}
	return &Enricher{queue: queue, cache: cache, tool: defaultEnrichTool}, nil
}

// Enrich returns the enrichment payload for item as canonical JSON. The
// cache key carries the item's update time, so edited content refetches
// without waiting out the TTL.
func (e *Enricher) Enrich(ctx context.Context, item Item) (string, bool) {
	if e == nil || e.queue == nil {
		return "", false
	}
	if !ValidCategory(item.Category) || strings.TrimSpace(item.Slug) == "" {
		return "", false
	}

	key := fmt.Sprintf("%s/%s@%d", item.Category, item.Slug, item.UpdatedAt.UTC().UnixMilli())
	if cached, ok := e.cache.Get(ctx, key); ok {
		return cached, true
	}

	value, err := e.queue.Submit(ctx, gateway.Command{
		Tool: e.tool,
		Arguments: map[string]any{
			"category": string(item.Category),
			"slug":     item.Slug,
		},
	})
	if err != nil {
		log.Printf("enrichment for %s skipped: %v", key, err)
		return "", false
	}
	if value == nil {
		return "", false
	}

	payload, err := json.Marshal(value)
	if err != nil {
		log.Printf("enrichment for %s skipped: encode: %v", key, err)
		return "", false
	}
	// A gateway that degrades can hand back error prose with a 200; that
	// must neither be cached nor shipped.
	if enrichcache.LooksLikeError(string(payload)) {
		log.Printf("enrichment for %s skipped: payload reads as an error", key)
		return "", false
	}

	e.cache.Set(ctx, key, string(payload))
	return string(payload), true
}
