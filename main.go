package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sprint-metrics/batch"
	"sprint-metrics/config"
	"sprint-metrics/logging"
	"sprint-metrics/metrics"
	"sprint-metrics/pullrequest"
	"sprint-metrics/report"
	"sprint-metrics/sprint"

	"go.uber.org/zap"
)

func main() {
	var (
		configFile  string
		sprintsFile string
		jsonOut     string
		csvOut      string
		initConfig  bool
	)
	flag.StringVar(&configFile, "config", "config.json", "Path to the configuration file")
	flag.StringVar(&sprintsFile, "sprints", "", "Path to a sprints JSON file (overrides config)")
	flag.StringVar(&jsonOut, "json", "metrics.json", "JSON report output path (empty to skip)")
	flag.StringVar(&csvOut, "csv", "metrics.csv", "CSV report output path (empty to skip)")
	flag.BoolVar(&initConfig, "init", false, "Write config.sample.json and exit")
	flag.Parse()

	if initConfig {
		if err := config.CreateSampleConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating sample config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✅ Sample configuration written to config.sample.json")
		return
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		fmt.Fprintln(os.Stderr, "   Run with -init to create a sample config, or set PR_API_BASE_URL.")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if sprintsFile == "" {
		sprintsFile = cfg.SprintsFile
	}
	sprints := sprint.Default()
	if sprintsFile != "" {
		sprints, err = sprint.LoadFile(sprintsFile)
		if err != nil {
			logger.Fatal("failed to load sprints", zap.String("file", sprintsFile), zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := pullrequest.NewClient(cfg, logger.Named("pullrequest"))

	fmt.Printf("🔄 Fetching pull requests for %d sprints...\n", len(sprints))
	buckets, warnings, err := batch.FetchBuckets(ctx, client, sprints)
	if err != nil {
		logger.Error("failed to fetch pull requests", zap.Error(err))
		os.Exit(1)
	}

	r := report.New(metrics.BuildSeries(sprints, buckets), len(warnings))
	report.PrintSummary(os.Stdout, r)

	if jsonOut != "" {
		if err := report.ExportToJSON(r, jsonOut); err != nil {
			logger.Error("error exporting to JSON", zap.Error(err))
		} else {
			fmt.Printf("✅ Metrics exported to: %s\n", jsonOut)
		}
	}

	if csvOut != "" {
		if err := report.ExportToCSV(r.Series, csvOut); err != nil {
			logger.Error("error exporting to CSV", zap.Error(err))
		} else {
			fmt.Printf("✅ Metrics exported to: %s\n", csvOut)
		}
	}
}
