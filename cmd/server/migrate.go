package main

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"trustcore/internal/platform/config"
	"trustcore/internal/platform/postgres"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all up migrations",
			RunE: func(*cobra.Command, []string) error {
				url, err := databaseURL()
				if err != nil {
					return err
				}
				return postgres.MigrateUp(url)
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (one by default)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n <= 0 {
						return errors.New("steps must be a positive integer")
					}
					steps = n
				}
				url, err := databaseURL()
				if err != nil {
					return err
				}
				return postgres.MigrateDown(url, steps)
			},
		},
	)
	return cmd
}

func databaseURL() (string, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return "", err
	}
	if cfg.Database.URL == "" {
		return "", errors.New("DATABASE_URL is required")
	}
	return cfg.Database.URL, nil
}
