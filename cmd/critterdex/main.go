package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"critterdex/internal/accounts"
	"critterdex/internal/catalog"
	"critterdex/internal/cli"
	"critterdex/internal/config"
	"critterdex/internal/favorites"
	"critterdex/internal/filex"
	"critterdex/internal/keystore"
	"critterdex/internal/logging"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()
	log := logging.NewText(os.Stderr, slog.LevelInfo)

	storageDir, err := filex.EnsureDir(cfg.StorageDir)
	if err != nil {
		log.Error(ctx, "cannot create storage directory", "dir", cfg.StorageDir, "error", err)
		os.Exit(1)
	}
	cfg.StorageDir = storageDir

	ks, err := openKeystore(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "cannot open keystore", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	defer ks.Close()

	accts := accounts.New(ks, log, cfg.TombstoneDelay)
	defer accts.Close()

	favs := favorites.New(ks, accts, log)
	defer favs.Close()

	opts := catalog.Options{Timeout: cfg.HTTPTimeout, Logger: log}
	cache, err := catalog.OpenCache(ctx, filepath.Join(cfg.StorageDir, "catalog-cache.db"), catalog.DefaultCacheMaxAge)
	if err != nil {
		// The catalog works without a cache, just slower.
		log.Warn(ctx, "catalog cache unavailable", "error", err)
	} else {
		defer cache.Close()
		opts.Cache = cache
	}
	cat := catalog.NewClient(cfg.APIBaseURL, opts)

	app := cli.NewApp(cfg, accts, favs, cat, log)
	app.Run(ctx)
}

// openKeystore selects the keystore backend from configuration.
func openKeystore(ctx context.Context, cfg *config.Config, log logging.Logger) (keystore.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		return keystore.OpenSQLite(ctx, filepath.Join(cfg.StorageDir, "critterdex.db"), cfg.PollInterval, log)
	case config.BackendFile:
		return keystore.OpenFile(filepath.Join(cfg.StorageDir, "keys"), log)
	case config.BackendMemory:
		return keystore.NewHub().Open(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
