package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memories-backend/internal/config"
	"memories-backend/internal/docstore"
	"memories-backend/internal/handlers"
	"memories-backend/internal/repository"
	"memories-backend/internal/services"
	"memories-backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx := context.Background()

	// Connect to the document store
	store, err := openDocumentStore(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open document store")
	}
	defer store.Close(context.Background())
	log.Info().Str("driver", cfg.Database.Driver).Msg("Document store connection established")

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping Redis")
	}
	log.Info().Msg("Redis connection established")

	// Object store
	objects, err := openObjectStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to open object store")
	}

	// Identity provider
	verifier, err := services.NewFirebaseVerifier(ctx, cfg.Firebase.CredentialsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize identity provider")
	}

	// Push notifications are optional
	var pusher services.PushSender
	if cfg.APNs.CertPath != "" {
		apns, err := services.NewAPNsPusher(cfg.APNs.CertPath, cfg.APNs.Password, cfg.APNs.Topic, cfg.APNs.Production)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize APNs")
		}
		pusher = apns
	} else {
		log.Warn().Msg("APNs certificate not configured, push notifications disabled")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(store)
	friendshipRepo := repository.NewFriendshipRepository(store)
	imageRepo := repository.NewImageRepository(store)
	manualRepo := repository.NewManualContactRepository(rdb)
	sessionRepo := repository.NewSessionRepository(rdb)

	// Initialize services
	wsHub := services.NewWSHub()
	notifier := services.NewNotificationService(wsHub, userRepo, pusher)
	userService := services.NewUserService(userRepo)
	sessionService := services.NewSessionService(verifier, userRepo, sessionRepo, cfg.JWT.Secret, cfg.JWT.SessionTTL)
	friendshipService := services.NewFriendshipService(friendshipRepo, userRepo, notifier)
	imageService := services.NewImageService(imageRepo, objects, notifier)
	viewTracker := services.NewViewTracker(imageService, cfg.Images.Dwell)
	deepLinkService := services.NewDeepLinkService(friendshipService, cfg.DeepLink.Scheme)
	contactService := services.NewContactService(userRepo, manualRepo, friendshipService, deepLinkService)

	// Setup router
	router := handlers.NewRouter(handlers.API{
		Users:       handlers.NewUserHandler(userService, sessionService),
		Friendships: handlers.NewFriendshipHandler(friendshipService),
		Images:      handlers.NewImageHandler(imageService),
		Contacts:    handlers.NewContactHandler(contactService),
		DeepLinks:   handlers.NewDeepLinkHandler(deepLinkService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, sessionService, viewTracker, deepLinkService),
		Health: handlers.NewHealthHandler(map[string]handlers.Check{
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			"docstore": func(ctx context.Context) error { return docstore.Ping(ctx, store) },
		}),
		Validator:      sessionService,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Pending view timers are dropped, open sockets are closed
	viewTracker.Close()
	wsHub.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openDocumentStore connects to the configured document store driver
func openDocumentStore(ctx context.Context, cfg config.DatabaseConfig) (docstore.Store, error) {
	switch cfg.Driver {
	case "postgres":
		return docstore.NewPostgresStore(ctx, cfg.DSN)
	case "mongo":
		return docstore.NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	case "memory":
		log.Warn().Msg("Using in-memory document store, data is lost on restart")
		return docstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// openObjectStore creates the configured object store driver
func openObjectStore(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStore, error) {
	switch cfg.Driver {
	case "s3":
		return storage.NewS3Store(ctx, storage.S3Options{
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Endpoint:  cfg.S3.Endpoint,
			Prefix:    cfg.S3.Prefix,
			ViewTTL:   cfg.ViewTTL,
		})
	case "minio":
		return storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
			Prefix:    cfg.Minio.Prefix,
			ViewTTL:   cfg.ViewTTL,
		})
	case "cloudinary":
		return storage.NewCloudinaryStore(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.Folder)
	case "memory":
		log.Warn().Msg("Using in-memory object store, images are lost on restart")
		return storage.NewMemoryStore("memories"), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
