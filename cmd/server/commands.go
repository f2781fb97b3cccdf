package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mentalytics/internal/config"
	"mentalytics/internal/store"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := newApp(ctx, cfg, logger, reg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.Store.Backend),
			zap.String("data_dir", cfg.DataDir))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newAskCmd() *cobra.Command {
	var deviceID string
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the Patient Corner model one question",
		Long: `Runs one question through the local model the same way the chat endpoint
does, including the survey context of --device, and appends it to the chat
history.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg, logger, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer a.Close()

			reply, err := a.chat.Ask(cmd.Context(), deviceID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, reply.Answer)
			fmt.Fprintf(out, "\n(%d ms)\n", reply.LatencyMS)
			return nil
		},
	}
	cmd.Flags().StringVar(&deviceID, "device", "", "device id whose survey gives the patient context")
	return cmd
}

func newExportCmd() *cobra.Command {
	var logName string
	cmd := &cobra.Command{
		Use:   "export [device]",
		Short: "Print a device's records",
		Long: `Prints the consent, survey and profile bundle of a device as JSON, or with
--log the raw JSONL of one record log (consent, survey, agreement).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg, logger, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer a.Close()

			var data []byte
			if logName != "" {
				data, err = a.study.ExportLog(cmd.Context(), args[0], logName)
			} else {
				data, err = a.study.Export(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&logName, "log", "", "print the raw log with this name instead of the bundle")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations to the Postgres record store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Store.Backend != config.BackendPostgres {
				return fmt.Errorf("migrate needs the %s store backend, configured: %s", config.BackendPostgres, cfg.Store.Backend)
			}
			if err := store.Migrate(cfg.Store.DatabaseURL, cfg.Store.MigrationsDir); err != nil {
				return err
			}
			logger.Info("migrations applied", zap.String("dir", cfg.Store.MigrationsDir))
			return nil
		},
	}
}
