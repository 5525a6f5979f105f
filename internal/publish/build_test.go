package publish

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/pressroom/internal/content"
)

// fakeStore serves fixed items.
type fakeStore struct {
	items []content.Item
}

func (f *fakeStore) ListPublished(_ context.Context) ([]content.Item, error) {
	return f.items, nil
}

func (f *fakeStore) GetItem(_ context.Context, category content.Category, slug string) (content.Item, bool, error) {
	for _, item := range f.items {
		if item.Category == category && item.Slug == slug {
			return item, true, nil
		}
	}
	return content.Item{}, false, nil
}

func buildFixtureItems() []content.Item {
	return []content.Item{
		{
			Slug:      "night-harbors",
			Category:  content.CategoryArticle,
			Title:     "Night Harbors",
			Status:    content.StatusPublished,
			Body:      "tide tables",
			UpdatedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			Slug:     "shipping-lanes",
			Category: content.CategoryContext,
			Title:    "Shipping Lanes",
			Status:   content.StatusPublished,
			Body:     "north approach",
		},
	}
}

func TestBuilderRunProducesCompleteArtifacts(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	assetsDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(assetsDir, "app.js"), []byte("boot()"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}

	builder, err := NewBuilder(BuildConfig{
		Store:     &fakeStore{items: buildFixtureItems()},
		OutDir:    outDir,
		AssetsDir: assetsDir,
		SiteName:  "harbor review",
	})
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}

	manifest, err := builder.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Every manifest entry must reference a file that exists on disk.
	for _, entry := range manifest.Items {
		target := filepath.Join(outDir, filepath.FromSlash(strings.TrimPrefix(entry.Path, "/")))
		if _, err := os.Stat(target); err != nil {
			t.Fatalf("manifest references missing file %s: %v", entry.Path, err)
		}
	}

	// One payload per item plus the static asset.
	wantKeys := []string{"app.js", "content/article/night-harbors.json", "content/context/shipping-lanes.json"}
	for _, key := range wantKeys {
		if _, ok := manifest.Lookup(key); !ok {
			t.Fatalf("manifest missing key %s", key)
		}
	}

	for _, page := range []string{"article/night-harbors/index.html", "context/shipping-lanes/index.html"} {
		if _, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(page))); err != nil {
			t.Fatalf("missing page document %s: %v", page, err)
		}
	}

	entry, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	if err != nil {
		t.Fatalf("read entry document: %v", err)
	}
	if !strings.Contains(string(entry), `<script id="asset-manifest"`) {
		t.Fatal("entry document missing embedded manifest")
	}
	if _, err := os.Stat(filepath.Join(outDir, ManifestFileName)); err != nil {
		t.Fatalf("missing manifest document: %v", err)
	}
}

func TestBuilderRunIdenticalContentKeepsAddressedNames(t *testing.T) {
	t.Parallel()

	store := &fakeStore{items: buildFixtureItems()}
	first, err := runBuild(t, store)
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	second, err := runBuild(t, store)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	firstPath, _ := first.Lookup("content/article/night-harbors.json")
	secondPath, _ := second.Lookup("content/article/night-harbors.json")
	if firstPath != secondPath {
		t.Fatalf("addressed path changed without content change: %q vs %q", firstPath, secondPath)
	}
}

func TestBuilderRunContentChangeChangesAddressedName(t *testing.T) {
	t.Parallel()

	items := buildFixtureItems()
	first, err := runBuild(t, &fakeStore{items: items})
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	changed := buildFixtureItems()
	changed[0].Body = "tide tables, revised"
	second, err := runBuild(t, &fakeStore{items: changed})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	firstPath, _ := first.Lookup("content/article/night-harbors.json")
	secondPath, _ := second.Lookup("content/article/night-harbors.json")
	if firstPath == secondPath {
		t.Fatal("addressed path did not change with content change")
	}
}

// staticEnricher serves one payload for every item.
type staticEnricher struct {
	payload string
}

func (s *staticEnricher) Enrich(_ context.Context, _ content.Item) (string, bool) {
	if s.payload == "" {
		return "", false
	}
	return s.payload, true
}

func TestBuilderRunIncludesEnrichmentOutputs(t *testing.T) {
	t.Parallel()

	builder, err := NewBuilder(BuildConfig{
		Store:    &fakeStore{items: buildFixtureItems()},
		Enricher: &staticEnricher{payload: `{"related":["shipping-lanes"]}`},
		OutDir:   t.TempDir(),
		SiteName: "harbor review",
	})
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}

	manifest, err := builder.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	path, ok := manifest.Lookup("enrichment/article/night-harbors.json")
	if !ok {
		t.Fatal("manifest missing enrichment payload")
	}
	if !IsFingerprintedPath(path) {
		t.Fatalf("enrichment path = %q, want addressed name", path)
	}
}

func TestBuilderRunWithoutEnricherOmitsEnrichment(t *testing.T) {
	t.Parallel()

	manifest, err := runBuild(t, &fakeStore{items: buildFixtureItems()})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, ok := manifest.Lookup("enrichment/article/night-harbors.json"); ok {
		t.Fatal("enrichment payload present without an enricher")
	}
}

func TestBuilderRunKeepsCrossCategorySlugsDistinct(t *testing.T) {
	t.Parallel()

	// An article and a context item may legitimately share a slug; their
	// payloads must land under distinct logical keys.
	items := []content.Item{
		{Slug: "harbors", Category: content.CategoryArticle, Title: "Harbors", Status: content.StatusPublished, Body: "article body"},
		{Slug: "harbors", Category: content.CategoryContext, Title: "Harbors", Status: content.StatusPublished, Body: "context body"},
	}
	manifest, err := runBuild(t, &fakeStore{items: items})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	articlePath, ok := manifest.Lookup("content/article/harbors.json")
	if !ok {
		t.Fatal("manifest missing article payload")
	}
	contextPath, ok := manifest.Lookup("content/context/harbors.json")
	if !ok {
		t.Fatal("manifest missing context payload")
	}
	if articlePath == contextPath {
		t.Fatalf("payload paths collide: %q", articlePath)
	}

	keys := make(map[string]int, len(manifest.Items))
	for _, entry := range manifest.Items {
		keys[entry.Key]++
	}
	for key, count := range keys {
		if count != 1 {
			t.Fatalf("key %s appears %d times, want exactly once", key, count)
		}
	}
}

func runBuild(t *testing.T, store content.Store) (Manifest, error) {
	t.Helper()
	builder, err := NewBuilder(BuildConfig{Store: store, OutDir: t.TempDir(), SiteName: "harbor review"})
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	return builder.Run(context.Background())
}
