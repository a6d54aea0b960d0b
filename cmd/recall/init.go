package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sandevgo/recalld/internal/config"
	"github.com/sandevgo/recalld/pkg/env"
	"github.com/sandevgo/recalld/pkg/log"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the runtime directory and a starter .env file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		runtimePath := config.GetRuntimePath()
		if err := os.MkdirAll(runtimePath, 0755); err != nil {
			return fmt.Errorf("create runtime directory: %w", err)
		}

		envFile := filepath.Join(runtimePath, ".env")
		if _, err := os.Stat(envFile); err == nil {
			log.FromCtx(ctx).Info().Str("path", envFile).Msg(".env already exists, leaving it alone")
			return nil
		}

		cfg := config.NewAppConfig(ctx)
		content, err := env.MarshalEnv(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}

		if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
			return fmt.Errorf("write .env: %w", err)
		}

		log.FromCtx(ctx).Info().Str("path", envFile).Msg("wrote starter .env")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
