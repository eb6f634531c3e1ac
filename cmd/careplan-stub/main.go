// Command careplan-stub serves the care plan order API from memory for local
// development of the careplan CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/config"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/logging"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/processing"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/server"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, closer, err := logging.New("careplan-stub", logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	store := storage.NewMemoryStore()
	processor := processing.New(store, processing.TemplateGenerator{}, cfg.Stub.Workers, cfg.Stub.Step, logger)
	srv := server.New(cfg.Stub, store, processor, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := srv.Serve(ctx); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		closer.Close()
		os.Exit(1)
	}
}
