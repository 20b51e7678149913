package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"tonearm/internal/api"
	"tonearm/internal/artist"
	"tonearm/internal/cache"
	"tonearm/internal/config"
	"tonearm/internal/database"
	"tonearm/internal/encryption"
	"tonearm/internal/logging"
	"tonearm/internal/lookup"
	"tonearm/internal/metadata"
	"tonearm/internal/metadata/discogs"
	"tonearm/internal/metadata/itunes"
	"tonearm/internal/metadata/lastfm"
	"tonearm/internal/metadata/musicbrainz"
	"tonearm/internal/metadata/spotify"
	"tonearm/internal/metadata/wikipedia"
	"tonearm/internal/release"
	"tonearm/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("TA_CONFIG_PATH")
	if configPath == "" {
		configPath = "/data/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, logCloser := logging.New(logging.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.File,
	})
	if logCloser != nil {
		defer logCloser.Close() //nolint:errcheck
	}
	slog.SetDefault(logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	encKey, err := resolveEncryptionKey(cfg, logger)
	if err != nil {
		return fmt.Errorf("resolving encryption key: %w", err)
	}
	encryptor, _, err := encryption.NewEncryptor(encKey)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}

	artistService := artist.NewService(db)
	releaseService := release.NewService(db)

	rateLimiters := metadata.NewRateLimiterMap()
	providerSettings := metadata.NewSettingsService(db, encryptor, cfg)
	providerRegistry := metadata.NewRegistry()

	providerRegistry.Register(musicbrainz.New(cfg.Provider("musicbrainz"), rateLimiters, logger))
	providerRegistry.Register(discogs.New(cfg.Provider("discogs"), rateLimiters, providerSettings, logger))
	providerRegistry.Register(lastfm.New(cfg.Provider("lastfm"), rateLimiters, providerSettings, logger))
	providerRegistry.Register(itunes.New(cfg.Provider("itunes"), rateLimiters, logger))
	providerRegistry.Register(spotify.New(rateLimiters, providerSettings, logger))
	providerRegistry.Register(wikipedia.New(cfg.Provider("wikipedia"), rateLimiters, logger))

	artistEngine := lookup.NewArtistEngine(artistService, providerRegistry, providerSettings, cfg.Lookup, logger)
	releaseEngine := lookup.NewReleaseEngine(releaseService, providerRegistry, providerSettings, cfg.Lookup, logger)

	cacheTTL := time.Duration(cfg.Lookup.CacheTTL) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	searchCache := cache.New(cacheTTL)

	logger.Info("starting tonearm",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	router := api.NewRouter(api.RouterDeps{
		ArtistService:    artistService,
		ReleaseService:   releaseService,
		ArtistEngine:     artistEngine,
		ReleaseEngine:    releaseEngine,
		ProviderSettings: providerSettings,
		ProviderRegistry: providerRegistry,
		SearchCache:      searchCache,
		DB:               db,
		Logger:           logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// resolveEncryptionKey determines the encryption key to use.
// Priority: config/env key > key file next to the database > generate new.
// Keys from either source are shape-checked up front so a malformed key
// fails startup instead of surfacing as undecryptable credentials later.
func resolveEncryptionKey(cfg *config.Config, logger *slog.Logger) (string, error) {
	if cfg.Encryption.Key != "" {
		if _, err := encryption.ParseKey(cfg.Encryption.Key); err != nil {
			return "", fmt.Errorf("configured encryption key: %w", err)
		}
		return cfg.Encryption.Key, nil
	}

	dataDir := filepath.Dir(cfg.Database.Path)
	keyFile := filepath.Join(dataDir, "encryption.key")

	data, err := os.ReadFile(keyFile) //nolint:gosec // G304: path derived from trusted config
	if err == nil {
		key := strings.TrimSpace(string(data))
		if key != "" {
			if _, err := encryption.ParseKey(key); err != nil {
				return "", fmt.Errorf("key file %s: %w", keyFile, err)
			}
			logger.Debug("loaded encryption key from file", slog.String("path", keyFile))
			return key, nil
		}
	}

	key, err := encryption.GenerateKey()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		logger.Warn("could not create data directory for encryption key",
			slog.String("path", dataDir), slog.Any("error", err))
		return key, nil
	}
	if err := os.WriteFile(keyFile, []byte(key+"\n"), 0o600); err != nil {
		logger.Warn("could not save encryption key to file",
			slog.String("path", keyFile), slog.Any("error", err))
	} else {
		logger.Warn("generated new encryption key, back up this file",
			slog.String("path", keyFile))
	}

	return key, nil
}
