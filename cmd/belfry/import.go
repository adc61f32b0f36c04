package main

import (
	"context"
	"fmt"

	"github.com/belfry-bio/belfry/internal/ghimport"
	"github.com/belfry-bio/belfry/internal/models"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var (
		configPath string
		email      string
	)

	cmd := &cobra.Command{
		Use:   "import owner/repo/path[@rev]",
		Short: "Import a document from a GitHub repository",
		Long:  "Fetches a BEL document from GitHub and enqueues it for compilation on behalf of a user.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, configPath, email, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "belfry.yaml", "path to Belfry config file")
	cmd.Flags().StringVar(&email, "email", "", "email of the owning user")
	return cmd
}

func runImport(cmd *cobra.Command, configPath, email, refArg string) error {
	if email == "" {
		return fmt.Errorf("import: --email is required")
	}

	ref, err := ghimport.ParseRef(refArg)
	if err != nil {
		return err
	}

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	var user models.User
	if err := gormDB.Where("email = ?", email).First(&user).Error; err != nil {
		return fmt.Errorf("import: user %q: %w", email, err)
	}

	importer := ghimport.New(gormDB, cfg.GitHub.Token)
	r, err := importer.Import(context.Background(), user.ID, ref)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as report %s\n", r.SourceName, r.ID)
	return nil
}
