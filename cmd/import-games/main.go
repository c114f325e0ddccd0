// Package main loads game fixture files into the configured database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lanes/internal/config"
	"github.com/cory-johannsen/lanes/internal/importer"
	"github.com/cory-johannsen/lanes/internal/observability"
	"github.com/cory-johannsen/lanes/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	source := flag.String("source", "", "fixture file or directory of fixture files (required)")
	flag.Parse()

	if *source == "" {
		fmt.Fprintln(os.Stderr, "usage: import-games -source <file|dir> [-config <path>]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if cfg.Storage.Driver != "postgres" {
		log.Fatalf("import-games needs the postgres storage driver, configured %q", cfg.Storage.Driver)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	defer pool.Close()

	imp := importer.New(
		importer.NewFileSource(),
		postgres.NewGameRepository(pool.DB()),
		postgres.NewAccountRepository(pool.DB()),
		logger,
	)
	res, err := imp.Run(ctx, *source)
	if err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}
	fmt.Printf("imported %d game(s), skipped %d\n", res.Imported, res.Skipped)
}
