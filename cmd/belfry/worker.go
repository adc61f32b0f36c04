package main

import (
	"fmt"
	"log"

	"github.com/belfry-bio/belfry/internal/compiler"
	"github.com/belfry-bio/belfry/internal/notify"
	"github.com/belfry-bio/belfry/internal/sweep"
	"github.com/belfry-bio/belfry/internal/worker"
	"github.com/spf13/cobra"
)

func newWorkerCmd() *cobra.Command {
	var (
		configPath  string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Start the compilation worker pool",
		Long:  "Claims queued documents, compiles them and persists the resulting networks.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd, configPath, concurrency)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "belfry.yaml", "path to Belfry config file")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 0, "worker goroutines (overrides config)")
	return cmd
}

func runWorker(cmd *cobra.Command, configPath string, concurrency int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if concurrency == 0 {
		concurrency = cfg.Worker.Concurrency
	}

	notifier, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		return err
	}

	pool, err := worker.NewPool(worker.Opts{
		DB:           gormDB,
		Compiler:     compiler.NewExec(cfg.Compiler),
		Notifier:     notifier,
		Concurrency:  concurrency,
		PollInterval: cfg.Worker.PollInterval.Std(),
	})
	if err != nil {
		return err
	}

	sweeper, err := sweep.New(sweep.Opts{
		DB:        gormDB,
		Notifier:  notifier,
		Threshold: cfg.Worker.StalenessThreshold.Std(),
		Schedule:  cfg.Notify.DigestCron,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	go func() {
		if err := sweeper.Start(ctx); err != nil {
			log.Printf("sweep: %v", err)
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Worker pool running (%d workers)\n", concurrency)
	pool.Run(ctx)
	return nil
}
