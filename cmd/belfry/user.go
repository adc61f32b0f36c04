package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/belfry-bio/belfry/internal/db"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
	}

	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var (
		configPath string
		name       string
		email      string
		admin      bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user and print their API key",
		Long:  "Creates (or updates) a user by email. Creating an existing user keeps their API key.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserCreate(cmd, configPath, name, email, admin)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "belfry.yaml", "path to Belfry config file")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant admin rights")
	return cmd
}

func runUserCreate(cmd *cobra.Command, configPath, name, email string, admin bool) error {
	out := cmd.OutOrStdout()

	// Prompt only when attached to a terminal; scripts must pass --email.
	if email == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(out, "Email: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if email == "" {
		return fmt.Errorf("user create: --email is required")
	}

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	user, err := db.SeedUser(gormDB, name, email, admin)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "User %s (id %d)\n", user.Email, user.ID)
	fmt.Fprintf(out, "API key: %s\n", user.APIKey)
	return nil
}
