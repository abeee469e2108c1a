package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"sprint-metrics/config"
	"sprint-metrics/logging"
	"sprint-metrics/pullrequest"
	"sprint-metrics/sprint"
	"sprint-metrics/telemetry"
	"sprint-metrics/web"

	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	var configFile, port string
	flag.StringVar(&configFile, "config", "config.json", "Path to the configuration file")
	flag.StringVar(&port, "port", "", "Port to run the server on (overrides config)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootstrap, _ := zap.NewProduction()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		bootstrap.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		bootstrap.Fatal("failed to create logger", zap.Error(err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	sprints := sprint.Default()
	if cfg.SprintsFile != "" {
		sprints, err = sprint.LoadFile(cfg.SprintsFile)
		if err != nil {
			logger.Fatal("failed to load sprints", zap.String("file", cfg.SprintsFile), zap.Error(err))
		}
	}

	collector := telemetry.NewCollector()
	client := pullrequest.NewClient(cfg, logger.Named("pullrequest"), pullrequest.WithTelemetry(collector))

	if port == "" {
		port = cfg.Port
	}

	// Create and start the server
	server := web.NewServer(cfg, sprints, client, collector, logger.Named("web"))
	srv := server.Start(port)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", zap.Error(err))
	}
	logger.Info("server stopped")
}
