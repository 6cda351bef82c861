package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relayforge/agentgate/internal/auth"
	"github.com/relayforge/agentgate/internal/common/config"
	"github.com/relayforge/agentgate/internal/core"
	"github.com/relayforge/agentgate/internal/runner"
	"github.com/relayforge/agentgate/internal/session"
	"github.com/relayforge/agentgate/pkg/logger"
	"github.com/relayforge/agentgate/pkg/metrics"
	"github.com/relayforge/agentgate/pkg/version"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of agentgate",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("agentgate version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "agentgate",
		Short: "Agent Gateway",
		Long:  `Agent Gateway serves agent runs over a resumable WebSocket session protocol`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "", "path to the configuration file")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	// Load configuration
	cfgName := "agentgate.yaml"
	if configPath != "" {
		cfgName = configPath
	}
	cfg, cfgPath, err := config.LoadConfig(cfgName)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", cfgPath, err)
	}

	// Initialize logger
	zapLogger, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting agentgate",
		zap.String("version", version.Get()),
		zap.String("config", cfgPath))

	// Initialize the session registry
	registry, err := session.NewRegistry(zapLogger, &cfg.Session, cfg.Protocol.ReplayBufferSize)
	if err != nil {
		zapLogger.Fatal("failed to initialize session registry", zap.Error(err))
	}
	defer registry.Close()

	// Initialize the token validator
	validator, err := auth.NewValidator(zapLogger, &cfg.Auth)
	if err != nil {
		zapLogger.Fatal("failed to initialize auth", zap.Error(err))
	}

	agentRunner := runner.NewEchoRunner(zapLogger, 50*time.Millisecond)
	m := metrics.New(cfg.Metrics)

	srv := core.NewServer(zapLogger, cfg, registry, validator, agentRunner, m)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	case sig := <-quit:
		zapLogger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
