// Package devserver parses dev server flags and launches the service.
package devserver

import (
	"context"
	"flag"

	"github.com/louisbranch/pressroom/internal/devserver"
	entrypoint "github.com/louisbranch/pressroom/internal/platform/cmd"
)

// Config holds dev server command configuration.
type Config struct {
	HTTPAddr    string `env:"PRESSROOM_DEV_HTTP_ADDR" envDefault:":8080"`
	ArtifactDir string `env:"PRESSROOM_OUT_DIR" envDefault:"dist"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "The dev server listen address")
	fs.StringVar(&cfg.ArtifactDir, "artifacts", cfg.ArtifactDir, "The build artifact directory")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the development server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceDevServer, func(ctx context.Context) error {
		server, err := devserver.NewServer(devserver.Config{
			HTTPAddr:    cfg.HTTPAddr,
			ArtifactDir: cfg.ArtifactDir,
		})
		if err != nil {
			return err
		}
		return server.ListenAndServe(ctx)
	})
}
