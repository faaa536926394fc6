package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/config"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// cliContext is what every subcommand receives after PersistentPreRunE.
type cliContext struct {
	envFile string
	cfg     *config.Config
	zap     *zap.Logger
	logger  ectologger.Logger
}

func newRootCommand() *cobra.Command {
	cli := &cliContext{}

	root := &cobra.Command{
		Use:           "fern",
		Short:         "Species identification and sighting API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var files []string
			if cli.envFile != "" {
				files = append(files, cli.envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}
			zapLogger, err := newZapLogger(cfg)
			if err != nil {
				return err
			}
			cli.cfg = cfg
			cli.zap = zapLogger
			cli.logger = zapadapter.NewZapEctoLogger(zapLogger, nil)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if cli.zap != nil {
				_ = cli.zap.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cli.cfg, cli.logger)
		},
	}
	root.PersistentFlags().StringVar(&cli.envFile, "env-file", "", "dotenv file to load before reading the environment (default .env)")

	root.AddCommand(
		newServeCommand(cli),
		newMigrateCommand(cli),
		newIdentifyCommand(cli),
	)
	return root
}

func newServeCommand(cli *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cli.cfg, cli.logger)
		},
	}
}

func newZapLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = level

	return zapCfg.Build(zap.Fields(zap.String("service", cfg.AppName), zap.String("version", version)))
}
