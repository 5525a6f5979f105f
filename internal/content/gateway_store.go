package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/louisbranch/pressroom/internal/gateway"
)

// defaultQueryTool is the gateway tool that executes read queries.
const defaultQueryTool = "execute_sql"

// slugPattern restricts slugs to safe route and query characters.
var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Submitter queues one command for the gateway. Satisfied by *gateway.Queue;
// all store reads route through it so the rate-limiting guarantee holds.
type Submitter interface {
	Submit(ctx context.Context, cmd gateway.Command) (any, error)
}

// GatewayStore reads content items through the rate-limited command queue.
type GatewayStore struct {
	queue Submitter
	tool  string
}

// NewGatewayStore creates a gateway-backed content store.
func NewGatewayStore(queue Submitter) (*GatewayStore, error) {
	if queue == nil {
		return nil, errors.New("command queue is required")
	}
	return &GatewayStore{queue: queue, tool: defaultQueryTool}, nil
}

// ListPublished returns every published content item ordered by slug.
func (s *GatewayStore) ListPublished(ctx context.Context) ([]Item, error) {
	if s == nil || s.queue == nil {
		return nil, errors.New("content store is not configured")
	}

	query := "SELECT slug, category, title, status, tags, body, updated_at" +
		" FROM content_items WHERE status = 'published' ORDER BY slug"
	value, err := s.queue.Submit(ctx, gateway.Command{
		Tool:      s.tool,
		Arguments: map[string]any{"query": query},
	})
	if err != nil {
		return nil, fmt.Errorf("list published items: %w", err)
	}
	return decodeItems(value)
}

// GetItem returns one published content item by category and slug.
func (s *GatewayStore) GetItem(ctx context.Context, category Category, slug string) (Item, bool, error) {
	if s == nil || s.queue == nil {
		return Item{}, false, errors.New("content store is not configured")
	}
	if !ValidCategory(category) {
		return Item{}, false, fmt.Errorf("unknown content category %q", category)
	}
	slug = strings.TrimSpace(slug)
	if !slugPattern.MatchString(slug) {
		return Item{}, false, fmt.Errorf("invalid content slug %q", slug)
	}

	// Category and slug travel as bind parameters, never inside the query
	// string.
	query := "SELECT slug, category, title, status, tags, body, updated_at" +
		" FROM content_items WHERE category = ? AND slug = ? AND status = 'published'"
	value, err := s.queue.Submit(ctx, gateway.Command{
		Tool: s.tool,
		Arguments: map[string]any{
			"query":  query,
			"params": []any{string(category), slug},
		},
	})
	if err != nil {
		return Item{}, false, fmt.Errorf("get item %s/%s: %w", category, slug, err)
	}

	items, err := decodeItems(value)
	if err != nil {
		return Item{}, false, err
	}
	if len(items) == 0 {
		return Item{}, false, nil
	}
	return items[0], true, nil
}

// decodeItems converts a recovered gateway value into content items. The
// normalizer may hand back raw text when the gateway degrades; that is an
// error here because callers need structured rows.
func decodeItems(value any) ([]Item, error) {
	switch value.(type) {
	case nil:
		return nil, nil
	case []any, map[string]any:
	default:
		return nil, fmt.Errorf("gateway returned unstructured payload (%T)", value)
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("re-encode gateway rows: %w", err)
	}

	var items []Item
	if err := json.Unmarshal(encoded, &items); err != nil {
		// A single row may arrive as a bare object.
		var single Item
		if err := json.Unmarshal(encoded, &single); err != nil {
			return nil, fmt.Errorf("decode gateway rows: %w", err)
		}
		return []Item{single}, nil
	}
	return items, nil
}
