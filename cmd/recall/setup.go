package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/recalld/internal/config"
	"github.com/sandevgo/recalld/internal/core"
	"github.com/sandevgo/recalld/internal/service/memory"
	"github.com/sandevgo/recalld/internal/storage/sqlite"
	"github.com/sandevgo/recalld/internal/transport/mcptool"
	"github.com/sandevgo/recalld/pkg/log"
	"github.com/sandevgo/recalld/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)

	// 2. Storage
	db, entryRepo, relRepo, err := initStorage(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(db.Close))

	// 3. Memory store facade
	store := memory.NewService(appCfg, entryRepo, relRepo)
	if err := store.Warmup(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to warm up memory store")
	}

	// 4. Expiry sweeper
	services = append(services, memory.NewSweeper(store))

	// 5. MCP tool transport
	services = append(services, mcptool.NewServer(store))

	return services
}

func initStorage(ctx context.Context, cfg *config.AppConfig) (*sql.DB, core.EntryRepository, core.RelationshipRepository, error) {
	db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
	if err != nil {
		return nil, nil, nil, err
	}
	return db, sqlite.NewEntryRepo(db), sqlite.NewRelationshipRepo(db), nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
