package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/loykin/ngxvisor"
)

const shutdownTimeout = 5 * time.Second

// createServeCommand creates the serve subcommand
func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}

	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the ngxvisor daemon",
		Long: `Start the daemon that supervises the configured server and exposes the
operation API. Configuration comes from the TOML file and NGXVISOR_* environment
variables.

Examples:
  ngxvisor serve --config=ngxvisor.toml
  ngxvisor serve ngxvisor.toml --listen=127.0.0.1:8081
  ngxvisor serve ngxvisor.toml --daemonize --pidfile=/run/ngxvisor.pid`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serveFlags.ConfigPath = globalFlags.ConfigPath
			if len(args) > 0 {
				serveFlags.ConfigPath = args[0]
			}
			if serveFlags.Daemonize {
				return daemonize(serveFlags.PidFile, serveFlags.LogFile)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, *serveFlags)
		},
	}

	cmd.Flags().StringVar(&serveFlags.Listen, "listen", "", "override server.listen")
	cmd.Flags().BoolVar(&serveFlags.Daemonize, "daemonize", false, "run as daemon in background")
	cmd.Flags().StringVar(&serveFlags.PidFile, "pidfile", "", "write daemon PID to file")
	cmd.Flags().StringVar(&serveFlags.LogFile, "logfile", "", "redirect daemon output to file")

	return cmd
}

// runServe runs the daemon until ctx is cancelled or a listener fails.
func runServe(ctx context.Context, flags ServeFlags) error {
	cfg, err := ngxvisor.LoadConfig(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if flags.Listen != "" {
		cfg.Server.Listen = flags.Listen
	}

	log, logCloser, err := ngxvisor.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(log)

	if flags.PidFile != "" {
		if err := writePidFile(flags.PidFile, os.Getpid()); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = removePidFile(flags.PidFile) }()
	}

	if cfg.Metrics.Enabled {
		if err := ngxvisor.RegisterMetricsDefault(); err != nil {
			slog.Warn("failed to register metrics", "error", err)
		}
	}

	sup, err := ngxvisor.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = sup.Close() }()

	if cfg.AutoStart {
		if err := sup.Start(ctx); err != nil {
			slog.Warn("auto start failed", "error", err)
		}
	}

	mon, err := sup.StartMonitor(ctx)
	if err != nil {
		return err
	}
	defer mon.Stop()

	servers := []*http.Server{ngxvisor.NewHTTPServer(cfg.Server.Listen, cfg.Server.BasePath, sup)}
	if cfg.Metrics.Enabled {
		servers = append(servers, ngxvisor.NewMetricsServer(cfg.Metrics.Listen))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			slog.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			// open event streams never finish on their own
			if err := srv.Shutdown(sctx); err != nil {
				_ = srv.Close()
			}
		}
		return nil
	})
	return g.Wait()
}
