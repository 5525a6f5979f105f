// Package build parses build command flags and runs one site build.
package build

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/louisbranch/pressroom/internal/content"
	"github.com/louisbranch/pressroom/internal/enrichcache"
	cachesqlite "github.com/louisbranch/pressroom/internal/enrichcache/storage/sqlite"
	"github.com/louisbranch/pressroom/internal/gateway"
	entrypoint "github.com/louisbranch/pressroom/internal/platform/cmd"
	"github.com/louisbranch/pressroom/internal/publish"
	"github.com/louisbranch/pressroom/internal/telemetry"
)

// Config holds build command configuration.
type Config struct {
	GatewayEndpoint string        `env:"PRESSROOM_GATEWAY_ENDPOINT" envDefault:"http://127.0.0.1:8808/mcp"`
	MinDelay        time.Duration `env:"PRESSROOM_GATEWAY_MIN_DELAY" envDefault:"500ms"`
	OutDir          string        `env:"PRESSROOM_OUT_DIR" envDefault:"dist"`
	AssetsDir       string        `env:"PRESSROOM_ASSETS_DIR" envDefault:""`
	SiteName        string        `env:"PRESSROOM_SITE_NAME" envDefault:"pressroom"`
	CachePath       string        `env:"PRESSROOM_CACHE_PATH" envDefault:""`
	Enrich          bool          `env:"PRESSROOM_ENRICH" envDefault:"true"`
	ClearCache      bool
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.GatewayEndpoint, "gateway", cfg.GatewayEndpoint, "The command gateway endpoint URL")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "The build artifact directory")
	fs.StringVar(&cfg.AssetsDir, "assets", cfg.AssetsDir, "The static assets directory")
	fs.StringVar(&cfg.SiteName, "site", cfg.SiteName, "The site name for the entry document")
	fs.BoolVar(&cfg.Enrich, "enrich", cfg.Enrich, "Fetch enrichment payloads during the build")
	fs.BoolVar(&cfg.ClearCache, "clear-cache", false, "Drop the enrichment cache before building")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes one build against the configured gateway.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceBuild, func(ctx context.Context) error {
		emitter := telemetry.NewEmitter(telemetry.LogSink())

		client, err := gateway.NewClient(gateway.ClientConfig{Endpoint: cfg.GatewayEndpoint})
		if err != nil {
			return err
		}
		queue, err := gateway.NewQueue(client, gateway.QueueConfig{
			MinDelay: cfg.MinDelay,
			Emitter:  emitter,
		})
		if err != nil {
			return err
		}
		store, err := content.NewGatewayStore(queue)
		if err != nil {
			return err
		}

		var enricher publish.Enricher
		if cfg.Enrich {
			enricher, err = buildEnricher(ctx, cfg, queue, emitter)
			if err != nil {
				return err
			}
		}

		builder, err := publish.NewBuilder(publish.BuildConfig{
			Store:     store,
			Enricher:  enricher,
			OutDir:    cfg.OutDir,
			AssetsDir: cfg.AssetsDir,
			SiteName:  cfg.SiteName,
			Emitter:   emitter,
		})
		if err != nil {
			return err
		}

		manifest, err := builder.Run(ctx)
		if err != nil {
			return err
		}
		log.Printf("build wrote %d manifest entries to %s", len(manifest.Items), cfg.OutDir)
		return nil
	})
}

// buildEnricher opens the persistent enrichment cache and wraps the queue.
// A cache that fails to open degrades to uncached enrichment instead of
// failing the build.
func buildEnricher(ctx context.Context, cfg Config, queue content.Submitter, emitter *telemetry.Emitter) (publish.Enricher, error) {
	cachePath := cfg.CachePath
	if cachePath == "" {
		cachePath = enrichcache.DefaultStorePath()
	}

	var cache *enrichcache.Cache
	cacheStore, err := cachesqlite.Open(cachePath, enrichcache.FormatVersion)
	if err != nil {
		log.Printf("enrichment cache unavailable, fetching uncached: %v", err)
	} else {
		cache, err = enrichcache.NewCache(enrichcache.Config{Store: cacheStore, Emitter: emitter})
		if err != nil {
			return nil, err
		}
		if cfg.ClearCache {
			if err := cache.Clear(ctx); err != nil {
				return nil, err
			}
			log.Printf("enrichment cache cleared")
		}
	}

	return content.NewEnricher(queue, cache)
}
