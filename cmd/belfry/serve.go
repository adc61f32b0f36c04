package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/belfry-bio/belfry/internal/config"
	"github.com/belfry-bio/belfry/internal/db"
	"github.com/belfry-bio/belfry/internal/ghimport"
	"github.com/belfry-bio/belfry/internal/web"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long:  "Launches the curation interface and JSON API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "belfry.yaml", "path to Belfry config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.HTTP.Port
	}

	var importer *ghimport.Importer
	if cfg.GitHub.Token != "" {
		importer = ghimport.New(gormDB, cfg.GitHub.Token)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	return web.Start(ctx, web.StartOpts{
		DB:           gormDB,
		Importer:     importer,
		Port:         port,
		StalledAfter: cfg.Worker.StalenessThreshold.Std(),
		Out:          cmd.OutOrStdout(),
	})
}

// connectFromConfig loads the config file and opens the database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, gormDB, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	return ctx, cancel
}
