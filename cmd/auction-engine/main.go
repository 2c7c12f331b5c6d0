package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gavel-auction-engine/internal/adapters/broadcaster"
	"gavel-auction-engine/internal/adapters/db"
	"gavel-auction-engine/internal/adapters/redis"
	"gavel-auction-engine/internal/adapters/scheduler"
	"gavel-auction-engine/internal/adapters/ws"
	"gavel-auction-engine/internal/app"
	"gavel-auction-engine/internal/config"
	"gavel-auction-engine/internal/domain/bid"
	"gavel-auction-engine/internal/domain/shared"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting auction engine...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConn, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()
	log.Info().Msg("Database connection established")

	repoFactory := db.NewRepositoryFactory(dbConn)
	auctionRepo := repoFactory.GetAuctionRepository()
	ledger := repoFactory.GetBidLedger()
	itemRepo := repoFactory.GetItemRepository()
	userRepo := repoFactory.GetUserRepository()
	watchRepo := repoFactory.GetWatchlistRepository()

	redisClient := redis.NewClient(cfg)
	if err := redis.PingRedis(redisClient, cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Redis connection established")

	redisBroadcaster := broadcaster.NewBroadcaster(broadcaster.RedisBroadcasterParams{
		RedisClient: redisClient,
		Logger:      log.Logger,
	})

	clock := shared.SystemClock{}

	biddingEngine := app.NewBiddingEngine(app.BiddingEngineParams{
		AuctionRepo: auctionRepo,
		Ledger:      ledger,
		UserRepo:    userRepo,
		Broadcaster: redisBroadcaster,
		Clock:       clock,
		Increment:   bid.FixedIncrement{StepMinor: cfg.Engine.BidIncrementMinor},
		MaxRetries:  cfg.Engine.BidMaxRetries,
		Logger:      log.Logger,
	})

	settlementEngine := app.NewSettlementEngine(app.SettlementEngineParams{
		AuctionRepo: auctionRepo,
		Broadcaster: redisBroadcaster,
		Clock:       clock,
		MaxRetries:  cfg.Engine.BidMaxRetries,
		Logger:      log.Logger,
	})

	sweeper := scheduler.NewSettlementSweeper(scheduler.SettlementSweeperParams{
		RedisClient: redisClient,
		Settlement:  settlementEngine,
		Interval:    cfg.Engine.SweepInterval,
		BatchSize:   cfg.Engine.SweepBatchSize,
		Logger:      log.Logger,
	})

	auctionService := app.NewAuctionService(app.AuctionServiceParams{
		AuctionRepo: auctionRepo,
		ItemRepo:    itemRepo,
		UserRepo:    userRepo,
		Broadcaster: redisBroadcaster,
		Sweeper:     sweeper,
		Clock:       clock,
		Logger:      log.Logger,
	})

	watchlistService := app.NewWatchlistService(app.WatchlistServiceParams{
		WatchRepo: watchRepo,
		ItemRepo:  itemRepo,
		UserRepo:  userRepo,
		Clock:     clock,
		Logger:    log.Logger,
	})

	log.Info().Msg("Engines and services initialized")

	sweeper.Start()
	log.Info().Msg("Settlement sweeper started")

	wsServer := ws.NewServer(ws.ServerParams{
		Config:      cfg,
		Auctions:    auctionService,
		Bidding:     biddingEngine,
		Settlement:  settlementEngine,
		Watchlist:   watchlistService,
		Broadcaster: redisBroadcaster,
		Logger:      log.Logger,
	})

	go func() {
		if err := wsServer.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start WebSocket server")
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	sweeper.Stop()
	log.Info().Msg("Settlement sweeper stopped")

	if err := wsServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping WebSocket server")
	}

	log.Info().Msg("Graceful shutdown completed")
}

func initLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.DefaultContextLogger = &log.Logger
}
