package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cristianortiz/evauction/internal/auction/application"
	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/cristianortiz/evauction/internal/auction/infra/events"
	pgrepo "github.com/cristianortiz/evauction/internal/auction/infra/repository/postgres"
	sqliterepo "github.com/cristianortiz/evauction/internal/auction/infra/repository/sqlite"
	"github.com/cristianortiz/evauction/internal/auction/infra/rest"
	auctionws "github.com/cristianortiz/evauction/internal/auction/infra/websocket"
	"github.com/cristianortiz/evauction/internal/auction/store"
	"github.com/cristianortiz/evauction/internal/shared/clock"
	"github.com/cristianortiz/evauction/internal/shared/config"
	"github.com/cristianortiz/evauction/internal/shared/db"
	"github.com/cristianortiz/evauction/internal/shared/db/migrations"
	"github.com/cristianortiz/evauction/internal/shared/httpserver"
	"github.com/cristianortiz/evauction/internal/shared/logger"
	"github.com/cristianortiz/evauction/internal/shared/websocket"
	"go.uber.org/zap"
)

func main() {
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting evauction server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal("Server stopped with error", zap.Error(err))
	}
	log.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.GetLogger()

	auctionRepo, bidRepo, closeDB, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	clk := clock.System{}
	opts := []store.Option{store.WithLockTimeout(cfg.LockTimeout)}
	if auctionRepo != nil {
		opts = append(opts, store.WithRepositories(auctionRepo, bidRepo))
	}
	auctionStore := store.New(clk, opts...)
	if err := auctionStore.Load(ctx); err != nil {
		return err
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	sink := events.NewFanOut(
		events.NewLogSink(),
		auctionws.NewBroadcastSink(hub, auctionStore, clk),
	)
	arbiter := application.NewArbiter(auctionStore, clk, sink)

	scheduler := application.NewScheduler(auctionStore, clk, sink, cfg.SchedulerInterval)
	go scheduler.Run(ctx)

	wsHandler := auctionws.NewAuctionWSHandler(arbiter, hub)
	go wsHandler.ListenForMessages(ctx)

	server := httpserver.NewServer()
	rest.NewAuctionHandler(arbiter, cfg.DefaultMinIncrement).RegisterRoutes(server.App())
	wsHandler.RegisterRoutes(ctx, server.App())

	log.Info("Auction service ready",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("storage", cfg.StorageBackend),
		zap.Duration("lockTimeout", cfg.LockTimeout),
		zap.Duration("schedulerInterval", cfg.SchedulerInterval),
	)
	return server.Start(ctx, cfg.HTTPAddr)
}

// openRepositories returns nil repositories for the memory backend.
func openRepositories(ctx context.Context, cfg *config.Config) (domain.AuctionRepository, domain.BidRepository, func(), error) {
	log := logger.GetLogger()
	noop := func() {}

	switch cfg.StorageBackend {
	case config.BackendMemory:
		log.Warn("Using in-memory storage, auctions are lost on restart")
		return nil, nil, noop, nil

	case config.BackendPostgres:
		dsn := cfg.DB.DSN()
		if err := migrations.RunPostgres(dsn); err != nil {
			return nil, nil, noop, fmt.Errorf("database migration failed: %w", err)
		}
		pool, err := db.NewPostgresPool(ctx, dsn)
		if err != nil {
			return nil, nil, noop, err
		}
		log.Info("Connected to postgres", zap.String("host", cfg.DB.Host), zap.String("database", cfg.DB.Name))
		return pgrepo.NewAuctionRepository(pool), pgrepo.NewBidRepository(pool), pool.Close, nil

	case config.BackendSQLite:
		sqlDB, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, noop, err
		}
		if err := migrations.RunSQLite(sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, nil, noop, fmt.Errorf("database migration failed: %w", err)
		}
		log.Info("Opened sqlite database", zap.String("path", cfg.SQLitePath))
		closeDB := func() {
			if err := sqlDB.Close(); err != nil {
				log.Error("Failed to close sqlite database", zap.Error(err))
			}
		}
		return sqliterepo.NewAuctionRepository(sqlDB), sqliterepo.NewBidRepository(sqlDB), closeDB, nil
	}
	return nil, nil, noop, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}
