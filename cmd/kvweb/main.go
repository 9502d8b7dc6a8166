package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/heysubinoy/kvweb/internal/api"
	"github.com/heysubinoy/kvweb/internal/logging"
	"github.com/heysubinoy/kvweb/internal/store"
	"github.com/heysubinoy/kvweb/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// shutdownTimeout is the time given for outstanding requests to finish
// before shutdown.
const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.WithField("err", err).Error("kvweb exited")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var (
		configPath string
		logCfg     logging.Config
	)

	cmd := &cobra.Command{
		Use:   "kvweb",
		Short: "HTTP front-end over a key-value store",
		Long: "kvweb serves a JSON API and a web page to store, retrieve, list and delete\n" +
			"records in a key-value store (Redis by default).",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logCfg.Level
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Log.Format = logCfg.Format
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("KVWEB_CONFIG"), "Path to a YAML config file")
	logging.AddFlags(cmd.Flags(), &logCfg)
	cmd.SetArgs(args)

	return cmd.ExecuteContext(ctx)
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}

	if cfg.GopsAgent {
		if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
			logger.WithField("err", err).Warn("Could not start gops agent")
		} else {
			defer agent.Close()
		}
	}

	backend, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.WithField("err", err).Warn("Could not close store")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	instrumented := store.NewInstrumentedStore(backend, reg)
	svc := api.NewService(instrumented)

	httpAPI := api.NewServer(svc, logger)
	httpAPI.Metrics = instrumented
	httpAPI.Gatherer = reg
	httpAPI.RequestLogging = cfg.RequestLogging
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpAPI.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var (
		grpcServer   *grpc.Server
		grpcListener net.Listener
	)
	if cfg.GRPCAddr != "" {
		grpcListener, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
		}
		grpcServer = grpc.NewServer()
		api.NewGRPCServer(svc, logger).Register(grpcServer)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if grpcServer != nil {
		g.Go(func() error {
			logger.WithField("addr", grpcListener.Addr().String()).Info("gRPC server listening")
			return grpcServer.Serve(grpcListener)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
