package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
)

var (
	version = "dev"
	envFile string

	v       = config.New()
	cfg     *config.Config
	logger  *applog.Logger
	rootCmd = &cobra.Command{
		Use:               "expensetracker",
		Short:             "Personal expense tracker",
		Long:              "expensetracker records expenses in SQLite and serves a dashboard and a JSON API over them.",
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().String("backend", "", "data backend (sqlite, memory)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path")

	// Flags override the environment only when set explicitly.
	_ = v.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag(config.KeyLogFormat, rootCmd.PersistentFlags().Lookup("log-format"))
	_ = v.BindPFlag(config.KeyDataBackend, rootCmd.PersistentFlags().Lookup("backend"))
	_ = v.BindPFlag(config.KeySQLiteDBPath, rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	if err := cli.LoadEnvFile(envFile); err != nil {
		return err
	}

	var err error
	cfg, err = cli.LoadAndValidateConfig(v)
	if err != nil {
		return err
	}

	logger, err = cli.SetupLogger(cfg, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	slog.Debug("Configuration ready", "command", cmd.Name())
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "expensetracker %s\n", version)
		},
	}
}
