// Package cli wires the hunt command tree.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = "configs/.env"
	}

	cmd := &cobra.Command{
		Use:          "hunt",
		Short:        "Photo-verified scavenger hunt server",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(envFile)
		},
		// bare "hunt" serves
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", envFile, "dotenv file loaded outside production")
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newOrderCmd())
	return cmd
}

func loadEnvFile(path string) error {
	if os.Getenv("APP_ENV") == "production" || path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
