package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solatis/geokeeper/internal/core/config"
	"github.com/solatis/geokeeper/internal/core/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC and HTTP transformation service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "listen host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
	serveCmd.Flags().Int("http-port", 8080, "HTTP server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.db.Close()

	cfg := a.cfg
	if cmd.Flags().Changed("host") {
		cfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("http-port") {
		cfg.HTTPPort, _ = cmd.Flags().GetInt("http-port")
	}
	if cfg.Port == cfg.HTTPPort {
		return fmt.Errorf("gRPC and HTTP ports must differ (both %d)", cfg.Port)
	}
	if err := config.ValidateGridDir(cfg.GridDir); err != nil {
		logger.Warn().Err(err).Str("grid_dir", cfg.GridDir).Msg("grid availability will be reported as missing")
	}

	grpcServer, err := server.NewGRPCServer(cfg, a.service, logger)
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}
	httpServer, err := server.NewHTTPServer(cfg, a.service, logger)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	logger.Info().
		Str("version", Version).
		Str("database", config.RedactURL(databaseURL(cfg))).
		Str("accuracy_policy", cfg.AccuracyPolicy).
		Msg("starting geokeeper")

	errChan := make(chan error, 2)
	go func() { errChan <- grpcServer.Start(ctx) }()
	go func() { errChan <- httpServer.Start(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		httpServer.Shutdown(ctx)
		grpcServer.Shutdown(ctx)
		return err
	case <-sigChan:
		logger.Info().Msg("shutting down gracefully")
		httpErr := httpServer.Shutdown(ctx)
		if err := grpcServer.Shutdown(ctx); err != nil {
			return err
		}
		return httpErr
	}
}
