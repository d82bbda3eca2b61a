package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shpitdev/founder-scout/internal/checkpoint"
	"github.com/shpitdev/founder-scout/internal/classify"
	"github.com/shpitdev/founder-scout/internal/config"
	"github.com/shpitdev/founder-scout/internal/pipeline"
	"github.com/shpitdev/founder-scout/internal/report"
	"github.com/shpitdev/founder-scout/internal/search"
	"github.com/shpitdev/founder-scout/internal/snapshot"
	"github.com/shpitdev/founder-scout/internal/util"
	"github.com/spf13/cobra"
)

const shutdownGrace = 2 * time.Second

func newRunCmd() *cobra.Command {
	var (
		inputPath      string
		outputDir      string
		settingsPath   string
		checkpointPath string
		rateLimitRPS   float64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process a window of founders from the input CSV, resuming from the checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(settingsPath)
			if err != nil {
				return err
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}
			if checkpointPath != "" {
				cfg.CheckpointPath = checkpointPath
			}
			if rateLimitRPS > 0 {
				cfg.FetchRateLimitRPS = rateLimitRPS
			}
			return runPipeline(inputPath, cfg)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "founders.csv", "Input CSV (columns: first name, last name, company, email)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for run outputs (default from settings: output)")
	cmd.Flags().StringVar(&settingsPath, "settings", "", "Optional YAML settings file")
	cmd.Flags().StringVar(&checkpointPath, "checkpoint", "", "Checkpoint file path (default from settings: checkpoint.json)")
	cmd.Flags().Float64Var(&rateLimitRPS, "rate-limit-rps", 0, "Global search request rate limit (RPS), 0 uses settings")
	return cmd
}

func runPipeline(inputPath string, cfg config.Config) error {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	inF, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	records, err := pipeline.ReadFoundersCSV(inF, cfg.TargetDomain, cfg.ExcludeDomain)
	_ = inF.Close()
	if err != nil {
		return fmt.Errorf("read input csv: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("input %s has no founder rows", inputPath)
	}

	cp := checkpoint.Load(cfg.CheckpointPath)
	reset, err := checkpoint.ResetIfComplete(cfg.CheckpointPath, cp, len(records))
	if err != nil {
		return fmt.Errorf("reset checkpoint: %w", err)
	}
	if reset {
		// Wrap-around: the previous run consumed the whole input. The cursor
		// is back at zero so the next invocation restarts from the top.
		logger.Printf("checkpoint cursor=%d past end of %d records; reset to 0", cp.LastProcessedIndex, len(records))
		return nil
	}
	logger.Printf("resuming at cursor=%d of %d records", cp.LastProcessedIndex, len(records))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	searcher, err := search.NewClient(search.Config{
		ProxyURL:       cfg.SearchProxyURL,
		MaxAttempts:    cfg.FetchMaxAttempts,
		BackoffInitial: cfg.FetchBackoffInit.Std(),
		BackoffFactor:  cfg.FetchBackoffFactor,
		BackoffMax:     cfg.FetchBackoffMax.Std(),
		RateLimitRPS:   cfg.FetchRateLimitRPS,
	}, logger)
	if err != nil {
		return err
	}
	resolver, err := snapshot.NewClient(snapshot.Config{
		TriggerURL:            cfg.DatasetTriggerURL,
		SnapshotURL:           cfg.DatasetSnapshotURL,
		Token:                 cfg.DatasetToken,
		ProfileURLPrefix:      "https://" + cfg.TargetDomain + "/",
		PollInterval:          cfg.SnapshotPollInterval.Std(),
		MaxPolls:              cfg.SnapshotMaxPolls,
		AssumeDMOpenOnFailure: cfg.AssumeDMOpen(),
	}, logger)
	if err != nil {
		return err
	}
	classifier, err := classify.New(ctx, classify.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	if err != nil {
		return err
	}

	orch := pipeline.New(searcher, resolver, classifier, pipeline.Options{
		BatchSize:       cfg.BatchSize,
		RunWindow:       cfg.RunWindow,
		PreResolveDelay: cfg.PreResolveDelay.Std(),
		InterBatchDelay: cfg.InterBatchDelay.Std(),
		TargetDomain:    cfg.TargetDomain,
	}, logger)

	next, runErr := orch.Run(ctx, records, cp.LastProcessedIndex)
	interrupted := errors.Is(runErr, context.Canceled)
	if interrupted {
		// Brief settle window before flushing; Run already returned at a
		// batch boundary, so this only covers goroutines draining logs.
		logger.Printf("shutdown: flushing partial results in %s", shutdownGrace)
		time.Sleep(shutdownGrace)
	}

	results := orch.Results()
	status := report.RunPartial
	if !interrupted && next >= len(records) {
		status = report.RunCompleted
	}

	if len(results) > 0 {
		out := report.BuildRunOutput(results, status)
		batchNo := report.NextBatchNumber(cfg.OutputDir)
		path, err := report.WriteRunOutput(cfg.OutputDir, batchNo, out)
		if err != nil {
			return fmt.Errorf("write run output: %w", err)
		}
		logger.Printf("wrote %s: total=%d processed=%d failed=%d errors=%d status=%s",
			filepath.Base(path), out.Metadata.Total, out.Metadata.Processed, out.Metadata.Failed, out.Metadata.Errors, status)

		qualified := report.FilterQualified(results)
		if len(qualified) > 0 {
			jsonPath, textPath, err := report.WriteQualified(cfg.OutputDir, qualified)
			if err != nil {
				return fmt.Errorf("write qualified founders: %w", err)
			}
			logger.Printf("wrote %s and %s: qualified=%d", filepath.Base(jsonPath), filepath.Base(textPath), len(qualified))
		}
	}

	if err := checkpoint.Save(cfg.CheckpointPath, checkpoint.State{LastProcessedIndex: next}); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	logger.Printf("checkpoint saved: cursor=%d", next)

	if interrupted {
		logger.Printf("graceful shutdown complete")
		return nil
	}
	if runErr != nil {
		return fmt.Errorf("pipeline run: %s", util.RedactSecrets(runErr.Error()))
	}
	return nil
}
