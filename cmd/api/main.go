package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"taskPlanner/internal/app"
	"taskPlanner/internal/config"
	"taskPlanner/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Multi-user task planner backend",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("загрузка конфигурации: %w", err)
		}
		if err := logger.Init(cfg.Logging.Development); err != nil {
			return fmt.Errorf("инициализация логгера: %w", err)
		}
		cmd.SetContext(withConfig(cmd.Context(), cfg))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a := app.New(configFrom(ctx))
		if err := a.Init(ctx); err != nil {
			return err
		}
		return a.Run(ctx)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigratable(cmd.Context(), func(ctx context.Context, m app.Migratable) error {
			return m.Migrate(ctx)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigratable(cmd.Context(), func(ctx context.Context, m app.Migratable) error {
			return m.Down(ctx)
		})
	},
}

type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFrom(ctx context.Context) *config.Config {
	return ctx.Value(configKey{}).(*config.Config)
}

func withMigratable(ctx context.Context, fn func(context.Context, app.Migratable) error) error {
	cfg := configFrom(ctx)
	store, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	m, ok := store.(app.Migratable)
	if !ok {
		logger.Info("Хранилище не использует миграции", zap.String("repository", cfg.Repository.Type))
		return nil
	}
	return fn(ctx, m)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to config file")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
