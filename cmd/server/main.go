package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mentalytics/internal/config"
	"mentalytics/internal/logging"
)

var (
	configFile string

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mentalytics",
		Short: "Mentalytics study backend",
		Long: `Serves the multilingual study flow (consent, survey, guidance), stores
participant records per device and answers Patient Corner questions with a
local llama.cpp model.

Run without a subcommand to start the HTTP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(configFile, cmd.Flags()); err != nil {
				return err
			}
			if logger, err = logging.New(cfg.LogLevel); err != nil {
				return err
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: runServe,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default: mentalytics.yaml in . or /etc/mentalytics)")
	pf.String("port", "", "HTTP port")
	pf.String("data-dir", "", "directory for device records and chat history")
	pf.String("log-level", "", "debug, info, warn or error")
	pf.String("store", "", "record store backend: file or postgres")
	pf.String("llama-bin", "", "path to the llama-cli binary")
	pf.String("model", "", "path to the GGUF model")

	root.AddCommand(newServeCmd(), newAskCmd(), newExportCmd(), newMigrateCmd())
	return root
}
