package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/sandevgo/recalld/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"RECALLD_RUNTIME_PATH" envDefault:".recalld"`

	// Entry limits
	MaxContentLen int `env:"RECALLD_MAX_CONTENT_LEN" envDefault:"10000"`
	MaxTags       int `env:"RECALLD_MAX_TAGS" envDefault:"32"`

	// Query bounds
	DefaultQueryLimit int `env:"RECALLD_DEFAULT_QUERY_LIMIT" envDefault:"10"`
	MaxQueryLimit     int `env:"RECALLD_MAX_QUERY_LIMIT" envDefault:"100"`

	// Graph traversal
	MaxTraverseDepth int `env:"RECALLD_MAX_TRAVERSE_DEPTH" envDefault:"16"`

	// Expiry sweep
	SweepInterval time.Duration `env:"RECALLD_SWEEP_INTERVAL" envDefault:"60s"`
	SweepBatch    int           `env:"RECALLD_SWEEP_BATCH" envDefault:"500"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse app config")
	}
	return c
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "recalld.db")
}
