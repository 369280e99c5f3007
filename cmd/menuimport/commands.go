package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/menuimport/internal/admin"
	"github.com/JonMunkholm/menuimport/internal/app"
	"github.com/JonMunkholm/menuimport/internal/config"
	"github.com/JonMunkholm/menuimport/internal/core"
	db "github.com/JonMunkholm/menuimport/internal/database"
)

type loadFunc func() (*config.Config, error)

func newServeCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the import workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := app.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(cmd.Context())
		},
	}
}

func newWorkerCmd(load loadFunc) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process queued imports without serving HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if workers > 0 {
				cfg.Jobs.Workers = workers
			}
			a, err := app.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Work(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "worker count (default JOBS_WORKERS)")
	return cmd
}

func newMigrateCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			pool, err := app.OpenPool(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()
			return db.Migrate(cmd.Context(), pool)
		},
	}
}

func newImportCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import restaurants from a JSON or YAML file",
		Long: "Import restaurants from a JSON or YAML file (by extension) and print\n" +
			"the report as JSON. Exits 1 when the import was rolled back.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			payload, err := core.DecodePayload(f, core.FormatFromFilename(args[0]))
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			a, err := app.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Service.ImportRestaurants(cmd.Context(), core.PermitPayload(payload))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if !report.General.Success {
				return errImportFailed
			}
			return nil
		},
	}
}

func newResetCmd(load loadFunc) *cobra.Command {
	var (
		confirm      bool
		withStatuses bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every restaurant, menu and menu item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("reset deletes all imported data; pass --yes to confirm")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			pool, err := app.OpenPool(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()
			return admin.ResetAll(cmd.Context(), db.New(pool), withStatuses)
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm the reset")
	cmd.Flags().BoolVar(&withStatuses, "import-statuses", false, "also delete the import status history")
	return cmd
}
