package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/wellb3tz/axiscore/internal/config"
	"github.com/wellb3tz/axiscore/internal/logging"
)

var (
	cfg    *config.AppConfig
	logger *zap.Logger
)

var rootCMD = &cobra.Command{
	Use:           "axiscore",
	Short:         "axiscore",
	Long:          `Telegram bot and HTTP API for storing and viewing 3D models`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.LogLevel = lvl
		}

		var err error
		if logger, err = logging.New(cfg.LogLevel); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCMD.PersistentFlags().String("log-level", "", "`debug/info/warn/error`, overrides LOG_LEVEL")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCMD.ExecuteContext(ctx)
	stop()
	if err != nil {
		if logger != nil {
			logger.Error("command failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
