// Package server parses artifact server flags and launches the service.
package server

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/pressroom/internal/platform/cmd"
	"github.com/louisbranch/pressroom/internal/server"
)

// Config holds artifact server command configuration.
type Config struct {
	HTTPAddr    string `env:"PRESSROOM_HTTP_ADDR" envDefault:":8090"`
	ArtifactDir string `env:"PRESSROOM_OUT_DIR" envDefault:"dist"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "The artifact server listen address")
	fs.StringVar(&cfg.ArtifactDir, "artifacts", cfg.ArtifactDir, "The build artifact directory")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the production artifact server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		srv, err := server.NewServer(server.Config{
			HTTPAddr:    cfg.HTTPAddr,
			ArtifactDir: cfg.ArtifactDir,
		})
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx)
	})
}
