// Package main runs one site build.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	buildcmd "github.com/louisbranch/pressroom/internal/cmd/build"
	"github.com/louisbranch/pressroom/internal/platform/config"
)

func main() {
	cfg, err := buildcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[BUILD] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := buildcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("build failed: %v", err)
	}
}
