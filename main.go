package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"price-matcher/config"
	"price-matcher/services"
	"price-matcher/storage"
	"price-matcher/utils"
)

// sink is one output of a run, opened on demand.
type sink struct {
	name string
	open func() (storage.ResultWriter, error)
}

func main() {
	cfg := config.Load()
	logger := utils.NewLogger(utils.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== Laptop Price Matcher starting ===")
	logger.Info("Config | inputs: %v | concurrency: %d | fuzzy threshold: %.2f | currency: %s",
		cfg.InputPaths, cfg.MaxConcurrency, cfg.FuzzyThreshold, cfg.DefaultCurrency)

	vocab := config.DefaultVocabulary()
	if cfg.VocabularyPath != "" {
		v, err := config.LoadVocabulary(cfg.VocabularyPath)
		if err != nil {
			logger.Error("Failed to load vocabulary: %v", err)
			os.Exit(1)
		}
		vocab = v
	}
	logger.Info("Vocabulary %s: %d brands, %d CPU families", vocab.Version, len(vocab.Brands), len(vocab.CPUFamilies))

	batch, err := storage.NewJSONLReader(logger).ReadFiles(cfg.InputPaths)
	if err != nil {
		logger.Error("Failed to read input: %v", err)
		os.Exit(1)
	}
	if len(batch.Listings) == 0 {
		logger.Error("No listings could be read from %v. Exiting.", cfg.InputPaths)
		os.Exit(1)
	}

	pipeline, err := services.NewPipelineFromConfig(cfg, vocab, logger)
	if err != nil {
		logger.Error("Failed to build pipeline: %v", err)
		os.Exit(1)
	}
	result, err := pipeline.Run(ctx, batch)
	if err != nil {
		logger.Error("Run aborted: %v", err)
		os.Exit(1)
	}

	jsonWriter, err := storage.NewJSONWriter(cfg.OutputDir)
	if err != nil {
		logger.Error("Failed to prepare output dir: %v", err)
		os.Exit(1)
	}

	sinks := []sink{
		{"json", func() (storage.ResultWriter, error) { return jsonWriter, nil }},
		{"csv", func() (storage.ResultWriter, error) { return storage.NewCSVWriter(cfg.CSVOutputPath) }},
	}
	if cfg.SQLitePath != "" {
		sinks = append(sinks, sink{"sqlite", func() (storage.ResultWriter, error) {
			return storage.NewSQLiteWriter(ctx, cfg.SQLitePath, logger)
		}})
	}

	retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: time.Second, Logger: logger}
	if cfg.PostgresEnabled {
		sinks = append(sinks, sink{"postgres", func() (storage.ResultWriter, error) {
			return storage.NewPostgresWriter(ctx, cfg.DSN(), retry, logger)
		}})
	}
	if cfg.NATSURL != "" {
		sinks = append(sinks, sink{"nats", func() (storage.ResultWriter, error) {
			return storage.NewNATSPublisher(ctx, cfg.NATSURL, cfg.NATSSubject, retry, logger)
		}})
	}

	// A failing sink never stops the others: the run is already computed.
	for _, s := range sinks {
		w, err := s.open()
		if err != nil {
			logger.Error("Skipping %s output: %v", s.name, err)
			continue
		}
		if err := w.Write(ctx, result); err != nil {
			logger.Error("%s write failed: %v", s.name, err)
		} else {
			logger.Info("Run written to %s", s.name)
		}
		if err := w.Close(); err != nil {
			logger.Warn("Closing %s output: %v", s.name, err)
		}
	}

	reports := services.NewReportService(cfg.DefaultCurrency, logger)
	report := reports.Generate(result, cfg.TopN)
	if err := jsonWriter.WriteReport(report); err != nil {
		logger.Error("Report write failed: %v", err)
	}
	reports.Print(os.Stdout, report)

	fmt.Printf("  Done. Datasets → %s | CSV → %s\n\n", cfg.OutputDir, cfg.CSVOutputPath)
}
