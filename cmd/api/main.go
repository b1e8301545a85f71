package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"whiteboard/api/internal/app"
	"whiteboard/api/internal/assets"
	"whiteboard/api/internal/config"
	"whiteboard/api/internal/events"
	"whiteboard/api/internal/search"
	"whiteboard/api/internal/store"
)

func main() {
	log := logrus.New()
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config load failed")
	}
	configureLogger(log, cfg)
	ctx := context.Background()

	poolOpts := store.DefaultPoolOptions()
	poolOpts.MaxOpenConns = cfg.DBMaxOpenConns
	db, err := store.Open(ctx, cfg.DatabaseURL, poolOpts)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	if _, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir, log); err != nil {
		log.WithError(err).Fatal("migrations failed")
	}

	dataStore := store.NewPostgresStore(db)

	var broker events.Broker
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Info("using Redis for page events")
		redisBroker, err := events.NewRedis(cfg.RedisURL, log)
		if err != nil {
			log.WithError(err).Fatal("redis connection failed")
		}
		defer redisBroker.Close()
		broker = redisBroker
	} else {
		log.Info("using in-process page events")
		localBroker := events.NewLocal(log)
		defer localBroker.Close()
		broker = localBroker
	}

	objects, err := openObjectStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("asset store setup failed")
	}

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, log)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts, log)
	if meiliClient != nil {
		go searchService.ReindexAllFromPG(ctx)
	}

	service := app.New(cfg, dataStore, app.Options{
		Events: broker,
		Search: searchService,
		Assets: objects,
		Logger: log,
	})

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Zero: page event streams stay open.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Addr).Info("whiteboard API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown error")
	}
}

func configureLogger(log *logrus.Logger, cfg config.Config) {
	if strings.EqualFold(cfg.LogFormat, "text") {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
}

func openObjectStore(ctx context.Context, cfg config.Config) (assets.ObjectStore, error) {
	var objects assets.ObjectStore
	if strings.TrimSpace(cfg.S3Endpoint) != "" {
		client, err := assets.NewS3Client(assets.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, err
		}
		objects = client
	} else {
		objects = assets.NewLocalStore(cfg.AssetsDir, "")
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return objects, nil
}
