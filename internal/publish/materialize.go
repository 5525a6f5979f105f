package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/louisbranch/pressroom/internal/content"
)

// Data script identifiers for materialized page documents. Clients and the
// development server locate the embedded payload by these fixed ids.
const (
	ArticleDataScriptID = "article-data"
	ContextDataScriptID = "context-data"
)

// DataScriptID returns the embedded data script identifier for a category.
func DataScriptID(category content.Category) string {
	if category == content.CategoryContext {
		return ContextDataScriptID
	}
	return ArticleDataScriptID
}

// Materialize renders one content item into its pre-built page document.
// The document is self-sufficient for first paint: it carries exactly one
// embedded data script with the item's canonical JSON, so the client-side
// application hydrates without an additional fetch. Identical items always
// produce identical bytes.
func Materialize(item content.Item) (string, error) {
	if strings.TrimSpace(item.Slug) == "" {
		return "", fmt.Errorf("content item has no slug")
	}
	if !content.ValidCategory(item.Category) {
		return "", fmt.Errorf("content item %s has unknown category %q", item.Slug, item.Category)
	}

	payload, err := canonicalJSON(item)
	if err != nil {
		return "", fmt.Errorf("encode item %s: %w", item.Slug, err)
	}

	var builder strings.Builder
	if err := pageDocument(item, payload).Render(context.Background(), &builder); err != nil {
		return "", fmt.Errorf("render page %s: %w", item.Slug, err)
	}
	return builder.String(), nil
}

// canonicalJSON encodes the item deterministically and keeps the payload
// safe to embed inside a script element.
func canonicalJSON(item content.Item) (string, error) {
	encoded, err := json.Marshal(item)
	if err != nil {
		return "", err
	}
	return escapeScriptPayload(encoded), nil
}

// pageDocument composes the materialized page shell around the data script.
func pageDocument(item content.Item, payload string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		title := item.Title
		if strings.TrimSpace(title) == "" {
			title = item.Slug
		}
		parts := []string{
			"<!doctype html>\n",
			`<html lang="en">`, "\n<head>\n",
			`<meta charset="utf-8">`, "\n",
			`<meta name="viewport" content="width=device-width, initial-scale=1">`, "\n",
			"<title>", html.EscapeString(title), "</title>\n",
			"</head>\n<body>\n",
			`<div id="app"></div>`, "\n",
			fmt.Sprintf("<script id=%q type=\"application/json\">%s</script>", DataScriptID(item.Category), payload), "\n",
			"</body>\n</html>\n",
		}
		for _, part := range parts {
			if _, err := io.WriteString(w, part); err != nil {
				return err
			}
		}
		return nil
	})
}

// EntryDocument renders the site entry shell. The manifest is embedded into
// it after fingerprinting, so the document is produced without one here.
func EntryDocument(siteName string) (string, error) {
	name := strings.TrimSpace(siteName)
	if name == "" {
		name = "pressroom"
	}

	var builder strings.Builder
	component := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		parts := []string{
			"<!doctype html>\n",
			`<html lang="en">`, "\n<head>\n",
			`<meta charset="utf-8">`, "\n",
			`<meta name="viewport" content="width=device-width, initial-scale=1">`, "\n",
			"<title>", html.EscapeString(name), "</title>\n",
			"</head>\n<body>\n",
			`<div id="app"></div>`, "\n",
			"</body>\n</html>\n",
		}
		for _, part := range parts {
			if _, err := io.WriteString(w, part); err != nil {
				return err
			}
		}
		return nil
	})
	if err := component.Render(context.Background(), &builder); err != nil {
		return "", fmt.Errorf("render entry document: %w", err)
	}
	return builder.String(), nil
}

// PagePath returns the artifact-relative path for a materialized page.
func PagePath(category content.Category, slug string) string {
	return string(category) + "/" + slug + "/index.html"
}

// PayloadPath returns the artifact-relative path for a per-item data
// payload; these participate in fingerprinting. Slugs are only unique
// within a category, so the category namespaces the logical key.
func PayloadPath(item content.Item) string {
	return "content/" + string(item.Category) + "/" + item.Slug + ".json"
}

// EnrichmentPath returns the artifact-relative path for a per-item
// enrichment payload; these also participate in fingerprinting.
func EnrichmentPath(item content.Item) string {
	return "enrichment/" + string(item.Category) + "/" + item.Slug + ".json"
}
