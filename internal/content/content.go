// Package content models the published content items the pipeline reads
// through the command gateway. The content store itself is external; this
// package only reads it.
package content

import (
	"context"
	"time"
)

// Category identifies the kind of a content item.
type Category string

const (
	// CategoryArticle marks long-form article items.
	CategoryArticle Category = "article"
	// CategoryContext marks supporting context documents.
	CategoryContext Category = "context"
)

// StatusPublished is the only status the pipeline materializes.
const StatusPublished = "published"

// Item is one logical unit of published content.
type Item struct {
	// Slug is the stable identifier for the item.
	Slug string `json:"slug"`
	// Category is the item kind.
	Category Category `json:"category"`
	// Title is the display title.
	Title string `json:"title"`
	// Status is the publication status.
	Status string `json:"status"`
	// Tags classifies the item.
	Tags []string `json:"tags"`
	// Body is the item body text.
	Body string `json:"body"`
	// UpdatedAt is the last-modified marker.
	UpdatedAt time.Time `json:"updated_at"`
}

// Store reads content items from the authoritative content store.
type Store interface {
	ListPublished(ctx context.Context) ([]Item, error)
	GetItem(ctx context.Context, category Category, slug string) (Item, bool, error)
}

// ValidCategory reports whether category is one the pipeline publishes.
func ValidCategory(category Category) bool {
	return category == CategoryArticle || category == CategoryContext
}
