package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/pressroom/internal/content"
	"github.com/louisbranch/pressroom/internal/telemetry"
)

// ManifestFileName is the manifest's standalone document in the artifact
// directory; the same bytes are embedded in the entry document.
const ManifestFileName = "asset-manifest.json"

// Enricher supplies optional per-item enrichment payloads. Satisfied by
// *content.Enricher.
type Enricher interface {
	Enrich(ctx context.Context, item content.Item) (string, bool)
}

// BuildConfig defines the inputs for a site build.
type BuildConfig struct {
	// Store reads the content items to publish.
	Store content.Store
	// Enricher optionally adds per-item enrichment payloads to the build.
	Enricher Enricher
	// OutDir is the artifact directory; recreated content overwrites in place.
	OutDir string
	// AssetsDir optionally holds static assets (bundles, style sheets) that
	// join the fingerprint set.
	AssetsDir string
	// SiteName titles the entry document.
	SiteName string
	// Emitter records build diagnostics; optional.
	Emitter *telemetry.Emitter
}

// Builder produces one complete set of build artifacts per run: materialized
// pages, fingerprinted assets, and a wholly regenerated manifest.
type Builder struct {
	store     content.Store
	enricher  Enricher
	outDir    string
	assetsDir string
	siteName  string
	emitter   *telemetry.Emitter
	tracer    trace.Tracer
}

// NewBuilder creates a site builder.
func NewBuilder(config BuildConfig) (*Builder, error) {
	if config.Store == nil {
		return nil, errors.New("content store is required")
	}
	if strings.TrimSpace(config.OutDir) == "" {
		return nil, errors.New("output directory is required")
	}
	return &Builder{
		store:     config.Store,
		enricher:  config.Enricher,
		outDir:    filepath.Clean(config.OutDir),
		assetsDir: strings.TrimSpace(config.AssetsDir),
		siteName:  config.SiteName,
		emitter:   config.Emitter,
		tracer:    otel.Tracer("pressroom/publish"),
	}, nil
}

// Run executes one build and returns the manifest it produced.
func (b *Builder) Run(ctx context.Context) (Manifest, error) {
	if b == nil {
		return Manifest{}, errors.New("builder is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := b.tracer.Start(ctx, "publish.build")
	defer span.End()

	items, err := b.store.ListPublished(ctx)
	if err != nil {
		return Manifest{}, fmt.Errorf("read content items: %w", err)
	}
	span.SetAttributes(attribute.Int("publish.items", len(items)))

	pages := make(map[string]string, len(items))
	var outputs []Output
	for _, item := range items {
		document, err := Materialize(item)
		if err != nil {
			_ = b.emitter.Emit(ctx, telemetry.Event{
				Severity:  telemetry.SeverityError,
				Component: "materializer",
				Message:   "skipping item: " + err.Error(),
			})
			continue
		}
		pages[PagePath(item.Category, item.Slug)] = document

		payload, err := json.Marshal(item)
		if err != nil {
			return Manifest{}, fmt.Errorf("encode payload for %s: %w", item.Slug, err)
		}
		outputs = append(outputs, Output{Name: PayloadPath(item), Content: payload})

		if b.enricher != nil {
			if enrichment, ok := b.enricher.Enrich(ctx, item); ok {
				outputs = append(outputs, Output{Name: EnrichmentPath(item), Content: []byte(enrichment)})
			}
		}
	}

	assets, err := b.readAssets()
	if err != nil {
		return Manifest{}, err
	}
	outputs = append(outputs, assets...)

	manifest, renamed, err := BuildManifest(ctx, outputs, b.emitter)
	if err != nil {
		// The one fail-loud case: an inconsistent manifest must never ship.
		span.RecordError(err)
		return Manifest{}, err
	}

	if err := b.writeArtifacts(manifest, renamed, pages); err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}

// readAssets collects static assets from the assets directory.
func (b *Builder) readAssets() ([]Output, error) {
	if b.assetsDir == "" {
		return nil, nil
	}
	var outputs []Output
	err := filepath.WalkDir(b.assetsDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.assetsDir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read asset %s: %w", rel, err)
		}
		outputs = append(outputs, Output{Name: filepath.ToSlash(rel), Content: data})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect assets: %w", err)
	}
	return outputs, nil
}

// writeArtifacts persists every build product into the artifact directory.
func (b *Builder) writeArtifacts(manifest Manifest, renamed []Output, pages map[string]string) error {
	for _, output := range renamed {
		if err := b.writeFile(output.Name, output.Content); err != nil {
			return err
		}
	}
	for name, document := range pages {
		if err := b.writeFile(name, []byte(document)); err != nil {
			return err
		}
	}

	encoded, err := manifest.Encode()
	if err != nil {
		return err
	}
	if err := b.writeFile(ManifestFileName, encoded); err != nil {
		return err
	}

	entry, err := EntryDocument(b.siteName)
	if err != nil {
		return err
	}
	entry, err = EmbedManifest(entry, encoded)
	if err != nil {
		return err
	}
	return b.writeFile("index.html", []byte(entry))
}

// writeFile writes one artifact, creating parent directories as needed.
func (b *Builder) writeFile(name string, data []byte) error {
	target := filepath.Join(b.outDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create artifact dir for %s: %w", name, err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	return nil
}
