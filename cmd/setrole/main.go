// Package main provides a CLI tool for setting account roles.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cory-johannsen/lanes/internal/config"
	"github.com/cory-johannsen/lanes/internal/storage"
	"github.com/cory-johannsen/lanes/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	email := flag.String("email", "", "target account email (required)")
	role := flag.String("role", "", "role to assign: bowler or admin (required)")
	flag.Parse()

	if *email == "" || *role == "" {
		flag.Usage()
		os.Exit(1)
	}

	if !storage.ValidRole(*role) {
		log.Fatalf("invalid role %q: must be one of %s, %s", *role, storage.RoleBowler, storage.RoleAdmin)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if cfg.Storage.Driver != "postgres" {
		log.Fatalf("setrole needs the postgres storage driver, configured %q", cfg.Storage.Driver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewAccountRepository(pool.DB())

	acct, err := repo.GetByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("looking up account %q: %v", *email, err)
	}

	if err := repo.SetRole(ctx, acct.ID, *role); err != nil {
		log.Fatalf("setting role: %v", err)
	}

	elapsed := time.Since(start)
	fmt.Fprintf(os.Stdout, "set role for %s (%s): %s -> %s [%s]\n",
		acct.Email, acct.ID, acct.Role, *role, elapsed)
}
