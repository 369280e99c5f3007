// Command menuimport runs the restaurant import service and its tools.
//
//	menuimport serve           HTTP API plus import workers
//	menuimport worker          import workers only
//	menuimport migrate         apply database migrations
//	menuimport import FILE     import a JSON or YAML file and print the report
//	menuimport reset --yes     delete all imported data
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/menuimport/internal/config"
	"github.com/JonMunkholm/menuimport/internal/logging"
)

// errImportFailed makes the process exit 1 after the report is printed.
var errImportFailed = errors.New("import failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errImportFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "menuimport",
		Short:         "Restaurant menu bulk import service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	load := func() (*config.Config, error) {
		// a missing file is fine; the environment may already be set
		_ = godotenv.Overload(envFile)

		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		// stdout is reserved for reports
		logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
		return cfg, nil
	}

	root.AddCommand(
		newServeCmd(load),
		newWorkerCmd(load),
		newMigrateCmd(load),
		newImportCmd(load),
		newResetCmd(load),
	)
	return root
}
