package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AnshRaj112/talkback-backend/internal/codeimage"
	"github.com/AnshRaj112/talkback-backend/internal/config"
	"github.com/AnshRaj112/talkback-backend/internal/database"
	"github.com/AnshRaj112/talkback-backend/internal/handlers"
	"github.com/AnshRaj112/talkback-backend/internal/logger"
	"github.com/AnshRaj112/talkback-backend/internal/middleware"
	"github.com/AnshRaj112/talkback-backend/internal/relay"
	"github.com/AnshRaj112/talkback-backend/internal/repository"
	"github.com/AnshRaj112/talkback-backend/internal/routes"
	"github.com/AnshRaj112/talkback-backend/internal/services"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	mode := "development"
	if cfg.IsProduction() {
		mode = "production"
	}
	log, err := logger.New(mode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if envErr != nil {
		log.Debug("no .env file found")
	}

	log.Info("connecting to PostgreSQL")
	db, err := database.ConnectPostgres(cfg.PostgresURI)
	if err != nil {
		log.Fatal("failed to connect to PostgreSQL", "error", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatal("migrations failed", "error", err)
	}
	log.Info("schema ready", "version", version, "dirty", dirty)

	log.Info("connecting to Redis")
	rdb, err := database.ConnectRedis(cfg.RedisURI)
	if err != nil {
		log.Fatal("failed to connect to Redis", "error", err)
	}
	defer rdb.Close()

	var mongoDB *mongo.Database
	if cfg.MongoURI != "" {
		client, mdb, err := database.ConnectMongo(cfg.MongoURI)
		if err != nil {
			log.Warn("MongoDB unavailable; share audit disabled", "error", err)
		} else {
			mongoDB = mdb
			defer database.DisconnectMongo(client)
		}
	} else {
		log.Info("MONGODB_URI not set; share audit disabled")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	audit := services.NewAuditLog(mongoDB, log)
	if err := audit.EnsureIndexes(ctx); err != nil {
		log.Warn("failed to ensure share_events indexes", "error", err)
	}
	defer audit.Wait()

	store, err := services.NewObjectStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize object storage", "backend", cfg.StorageBackend, "error", err)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	owners := repository.NewOwnerRepository(db)
	items := services.NewCachedItems(repository.NewItemRepository(db), services.NewCacheService(rdb), log)
	feedback := repository.NewFeedbackRepository(db)

	sessions := services.NewSessionStore(rdb)
	accounts := services.NewAccountService(owners, sessions)

	guard := codeimage.NewGuard(codeimage.NewPipeline(store, items, cfg.QRExportSize, log))
	forwarder := relay.NewForwarder(cfg.WebhookRelayURL, nil, log)
	if cfg.WebhookRelayURL == "" {
		log.Warn("WEBHOOK_RELAY_URL not set; relay and share will fail")
	}

	hub := services.NewFeedbackHub(rdb, log)
	hub.Start(ctx)

	site := handlers.Site{PublicSiteURL: cfg.PublicSiteURL, ExportSize: cfg.QRExportSize, ShareSize: cfg.QRShareSize}
	router := routes.New(routes.Handlers{
		Auth:      handlers.NewAuthHandler(accounts, log),
		Items:     handlers.NewItemHandler(items, feedback, guard, forwarder, audit, site, log),
		Public:    handlers.NewPublicHandler(items, feedback, hub, log),
		Codegen:   handlers.NewCodegenHandler(accounts, items, guard, log),
		Relay:     handlers.NewRelayHandler(forwarder, log),
		Dashboard: handlers.NewDashboardHandler(accounts, items, feedback, hub, cfg.AllowedOrigins, log),
	}, routes.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Production:     cfg.IsProduction(),
		AllowedHost:    cfg.AllowedHost,
		Sessions:       accounts,
		WindowLimit:    middleware.WindowLimit(rdb, "api", 300, time.Minute, log),
		Log:            log,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("talkback backend listening", "port", cfg.Port, "env", cfg.Environment, "storage", cfg.StorageBackend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Info("shutdown requested", "signal", s.String())
	case err := <-serverErr:
		log.Error("HTTP server error", "error", err)
	}

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}
	log.Info("shutdown complete")
}
