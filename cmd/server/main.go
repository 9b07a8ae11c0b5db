package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dasmlab/parley/pkg/config"
	"github.com/dasmlab/parley/pkg/server"
	"github.com/dasmlab/parley/pkg/service"
	"github.com/dasmlab/parley/pkg/translate"
)

var version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:   "parley-server",
		Short: "REST gateway for text translation and language detection",
		Long: `Serves /detect and /translate over HTTP, forwarding to the Hugging Face
inference API or to Google Cloud Translation.

Configuration is read from the environment and an optional .env file
(TRANSLATION_PROVIDER, HF_TOKEN, GOOGLE_API_KEY, CORS_ORIGINS, HOST, PORT, ...).
Flags override both.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
				return err
			}
			return run(cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("host", "", "HTTP bind host (env HOST)")
	flags.Int("port", 0, "HTTP port (env PORT)")
	flags.String("log-level", "", "Log level: debug, info, warn, error (env LOG_LEVEL)")
	flags.String("env-file", "", "Path of the .env file to read (env ENV_FILE)")
	flags.Int("grpc-health-port", 0, "gRPC health port, 0 disables (env GRPC_HEALTH_PORT)")

	bindFlag(v, cmd, config.KeyHost, "host")
	bindFlag(v, cmd, config.KeyPort, "port")
	bindFlag(v, cmd, config.KeyLogLevel, "log-level")
	bindFlag(v, cmd, config.KeyEnvFile, "env-file")
	bindFlag(v, cmd, config.KeyGRPCHealthPort, "grpc-health-port")

	return cmd
}

func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

func run(cfg *config.Config) error {
	logger := cfg.NewLogger()

	logger.WithFields(logrus.Fields{
		"addr":             cfg.Addr(),
		"default_provider": cfg.DefaultProvider,
		"provider_timeout": cfg.ProviderTimeout.String(),
		"grpc_health_port": cfg.GRPCHealthPort,
		"env_file":         cfg.EnvFile,
		"log_level":        cfg.LogLevel.String(),
		"version":          version,
	}).Info("Starting parley translation server")

	if cfg.Reload {
		logger.Debug("RELOAD is set; hot reload is not supported and the setting is ignored")
	}
	if cfg.DefaultProvider == translate.ProviderGoogle && cfg.GoogleAPIKey == "" {
		logger.Warn("Default provider is google but GOOGLE_API_KEY is not set; requests will fail with a configuration error")
	}

	providers, err := translate.NewProviders(cfg.ProviderConfig(logger))
	if err != nil {
		logger.WithError(err).Error("Failed to create translation providers")
		return err
	}

	dispatcher, err := service.NewDispatcher(cfg.DefaultProvider, logger, providers...)
	if err != nil {
		logger.WithError(err).Error("Failed to create dispatcher")
		return err
	}
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close providers")
		}
	}()

	// Verify the default provider is healthy
	checkCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	logger.Info("Checking provider health...")
	if err := dispatcher.CheckHealth(checkCtx)[cfg.DefaultProvider]; err != nil {
		logger.WithError(err).Warn("Default provider health check failed, but continuing anyway")
	} else {
		logger.Info("Default provider health check passed")
	}
	cancel()

	httpServer := server.NewHTTPServer(dispatcher, logger, server.Options{
		Addr:        cfg.Addr(),
		CORSOrigins: cfg.CORSOrigins,
	})

	errChan := make(chan error, 2)
	go func() {
		if err := httpServer.Start(); err != nil {
			errChan <- err
		}
	}()

	var healthServer *server.HealthServer
	refreshCtx, refreshCancel := context.WithCancel(context.Background())
	defer refreshCancel()

	if cfg.GRPCHealthPort > 0 {
		lis, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.GRPCHealthPort)))
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"port": cfg.GRPCHealthPort,
			}).Error("Failed to listen on gRPC health port")
			return err
		}
		healthServer = server.NewHealthServer(dispatcher, logger)
		go healthServer.RunRefresher(refreshCtx, 30*time.Second)
		go func() {
			if err := healthServer.Serve(lis); err != nil {
				errChan <- err
			}
		}()
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.WithError(err).Error("Server error")
		return err
	case sig := <-sigChan:
		logger.WithFields(logrus.Fields{
			"signal": sig.String(),
		}).Info("Received signal, shutting down gracefully...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	refreshCancel()
	if healthServer != nil {
		healthServer.Shutdown(ctx)
	}
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("HTTP server did not shut down cleanly")
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
