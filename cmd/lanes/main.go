// Package main provides the lanes server binary: the scorekeeping REST API
// plus a gRPC health endpoint.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/cory-johannsen/lanes/internal/api"
	"github.com/cory-johannsen/lanes/internal/auth"
	"github.com/cory-johannsen/lanes/internal/config"
	"github.com/cory-johannsen/lanes/internal/gameserver"
	"github.com/cory-johannsen/lanes/internal/observability"
	"github.com/cory-johannsen/lanes/internal/server"
	"github.com/cory-johannsen/lanes/internal/storage/memory"
	"github.com/cory-johannsen/lanes/internal/storage/postgres"
)

// stores are the backends selected by storage.driver.
type stores struct {
	accounts api.AccountStore
	games    gameserver.GameStore
	pinger   gameserver.Pinger
	close    func()
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (stores, error) {
	if cfg.Storage.Driver == "memory" {
		logger.Warn("using in-memory storage; data is lost on restart")
		games := memory.NewGameStore()
		return stores{
			accounts: memory.NewAccountStore(),
			games:    games,
			pinger:   games,
			close:    func() {},
		}, nil
	}

	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return stores{}, err
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	return stores{
		accounts: postgres.NewAccountRepository(pool.DB()),
		games:    postgres.NewGameRepository(pool.DB()),
		pinger:   pool,
		close:    pool.Close,
	}, nil
}

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting lanes",
		zap.String("http_addr", cfg.HTTP.Addr()),
		zap.String("grpc_addr", cfg.Health.Addr()),
		zap.String("storage", cfg.Storage.Driver),
	)

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening storage", zap.Error(err))
	}
	defer st.close()

	games := gameserver.NewGameService(st.games, logger, gameserver.Options{AutoFinish: cfg.Scoring.AutoFinish})
	tokens := auth.NewIssuer([]byte(cfg.Auth.TokenSecret), cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	health := gameserver.NewHealthService(st.pinger, cfg.Health.ProbeInterval, logger)
	health.Start(ctx)

	grpcServer := grpc.NewServer()
	health.Register(grpcServer)
	reflection.Register(grpcServer)

	apiServer := api.NewServer(api.Deps{
		Games:          games,
		Accounts:       st.accounts,
		Tokens:         tokens,
		Health:         health,
		Logger:         logger,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           apiServer.Handler(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		ErrorLog:          zap.NewStdLog(logger),
	}

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("grpc-health", &server.GRPCService{Server: grpcServer, Addr: cfg.Health.Addr()})
	lifecycle.Add("http", &server.HTTPService{Server: httpServer})
	lifecycle.Add("health-probe", &server.FuncService{
		StartFn: func() error {
			<-ctx.Done()
			return nil
		},
		StopFn: func() {
			health.Shutdown()
			cancel()
		},
	})

	logger.Info("lanes initialized", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
