package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Aeshi-Nero/Mind-Haven/internal/api"
	"github.com/Aeshi-Nero/Mind-Haven/internal/auth"
	"github.com/Aeshi-Nero/Mind-Haven/internal/cache"
	"github.com/Aeshi-Nero/Mind-Haven/internal/chat"
	"github.com/Aeshi-Nero/Mind-Haven/internal/config"
	"github.com/Aeshi-Nero/Mind-Haven/internal/events"
	"github.com/Aeshi-Nero/Mind-Haven/internal/repository"
	"github.com/Aeshi-Nero/Mind-Haven/internal/service"
	"github.com/Aeshi-Nero/Mind-Haven/migrations"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "mindhaven").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.ConnectDB(ctx, cfg.DB, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := migrations.AutoMigrate(ctx, db.DB, 3); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate database")
	}

	var feed service.FeedCache = cache.NoopFeedCache{}
	var revoked auth.RevocationStore = auth.NewMemoryRevocationStore()
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer rdb.Close()

		feed = cache.NewFeedCache(rdb, cfg.FeedCacheTTL)
		revoked = cache.NewRevocationStore(rdb)
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, feed cache disabled and revoked sessions kept in memory")
	}

	hub := chat.NewHub()

	var bus events.Publisher
	var consumers sync.WaitGroup
	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(config.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		defer publisher.Close()
		bus = publisher

		consumer := events.NewConsumer(config.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID), hub.HandleEvent)
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			consumer.Run(ctx)
		}()
	} else {
		logger.Warn().Msg("KAFKA_BROKERS not set, dispatching events in-process")
		bus = events.NewLocalPublisher(hub.HandleEvent)
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	authenticator := auth.NewAuthenticator(userRepo, revoked, cfg.SessionSecret, cfg.SessionTTL)

	userService := service.NewUserService(userRepo, feed, authenticator)
	postService := service.NewPostService(postRepo, feed, bus)
	groupService := service.NewGroupService(groupRepo, messageRepo, bus)

	e := api.NewServer(api.ServerOptions{
		Logger:         logger,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	api.RegisterRoutes(e, authenticator, api.Handlers{
		Auth:   api.NewAuthHandler(userService, cfg.CookieSecure),
		Posts:  api.NewPostHandler(postService),
		Groups: api.NewGroupHandler(groupService),
		Chat:   api.NewChatHandler(groupService, hub),
		Health: api.NewHealthHandler(db),
	})

	go func() {
		logger.Info().Str("env", cfg.Env).Msgf("Listening on %s", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	// hijacked websocket connections are not tracked by the server
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error shutting down HTTP server")
	}

	consumers.Wait()
}
