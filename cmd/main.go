package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/fencing-club/config"
	"github.com/Dosada05/fencing-club/db"
	"github.com/Dosada05/fencing-club/handlers"
	"github.com/Dosada05/fencing-club/logger"
	"github.com/Dosada05/fencing-club/realtime"
	"github.com/Dosada05/fencing-club/repositories"
	api "github.com/Dosada05/fencing-club/routes"
	"github.com/Dosada05/fencing-club/services"
	"github.com/Dosada05/fencing-club/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 15 * time.Second
	clockInterval   = time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("application stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("application exited")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		} else {
			log.Info("database connection closed")
		}
	}()
	if err := db.Migrate(ctx, dbConn); err != nil {
		return err
	}
	log.Info("database connection established")

	// The hub outlives request contexts and stops only on shutdown.
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	wsHub := realtime.NewHub(log.Named("hub"))
	go wsHub.Run(hubCtx)

	var publisher realtime.Publisher = wsHub
	if cfg.RedisURL != "" {
		rdb, err := realtime.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()

		bridge := realtime.NewRedisBridge(rdb, wsHub, realtime.DefaultChannel, log.Named("redis"))
		ready := make(chan struct{})
		go func() {
			if err := bridge.Run(hubCtx, ready); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("redis bridge stopped", zap.Error(err))
			}
		}()
		select {
		case <-ready:
		case <-time.After(5 * time.Second):
			return errors.New("redis bridge did not subscribe in time")
		}
		publisher = bridge
		log.Info("redis change feed enabled", zap.String("channel", realtime.DefaultChannel))
	} else {
		log.Info("redis not configured, events stay on this instance")
	}

	var archive services.ResultsArchiver
	if cfg.ArchiveEnabled() {
		store, err := storage.NewR2Store(ctx, storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize results archive: %w", err)
		}
		archive = storage.NewResultsArchive(store)
		log.Info("results archive enabled", zap.String("bucket", cfg.R2BucketName))
	}

	tx := repositories.NewPostgresTransactor(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	memberRepo := repositories.NewPostgresMemberRepository(dbConn)
	teamMatchRepo := repositories.NewPostgresTeamMatchRepository(dbConn)
	notificationRepo := repositories.NewPostgresNotificationRepository(dbConn)

	timers := services.NewLiveTimers(clockInterval)
	defer timers.StopAll()

	notificationService := services.NewNotificationService(notificationRepo, publisher, log.Named("notifications"))
	memberService := services.NewMemberService(memberRepo, log.Named("members"))
	matchService := services.NewMatchService(tx, matchRepo, tournamentRepo, memberRepo, notificationService, publisher, log.Named("matches"))
	tournamentService := services.NewTournamentService(
		tx,
		tournamentRepo,
		matchRepo,
		memberRepo,
		notificationService,
		publisher,
		archive,
		cfg.TournamentRetention,
		log.Named("tournaments"),
	)
	relayService := services.NewRelayService(tx, teamMatchRepo, memberRepo, timers, publisher, log.Named("relay"))

	scheduler, err := services.NewExpiryScheduler(tournamentService, cfg.ExpirySweepInterval, log.Named("scheduler"))
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			log.Error("failed to stop scheduler", zap.Error(err))
		}
	}()
	log.Info("expiry scheduler started", zap.Duration("interval", cfg.ExpirySweepInterval))

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Health:       handlers.NewHealthHandler(dbConn, log),
		Tournament:   handlers.NewTournamentHandler(tournamentService, log),
		Match:        handlers.NewMatchHandler(matchService, log),
		TeamMatch:    handlers.NewTeamMatchHandler(relayService, log),
		Member:       handlers.NewMemberHandler(memberService, log),
		Notification: handlers.NewNotificationHandler(notificationService, log),
		WebSocket:    handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins, cfg.PollInterval, log),
	}, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         log.Named("http"),
	})

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
		ErrorLog:    zap.NewStdLog(log.Named("http")),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("shutting down server", zap.Duration("timeout", shutdownTimeout))
	timers.StopAll()
	stopHub()
	if err := server.Shutdown(shutdownCtx); err != nil {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("failed to force close server", zap.Error(closeErr))
		}
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server shutdown complete")
	return nil
}
