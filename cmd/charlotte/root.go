package cli

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var configPath string

// RootCmd builds the charlotte command tree: serve and doctor.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "charlotte",
		Short: "Charlotte exposes browser state and control to autonomous agents",
		Long: `Charlotte drives a single managed Chrome instance over the Chrome
DevTools Protocol and renders each page as a structured, element-addressable
representation for an agent to read and act on.`,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (defaults to the platform config dir)")

	cmd.AddCommand(ServeCmd())
	cmd.AddCommand(DoctorCmd())
	return cmd
}

// newLogger builds the TTY-friendly slog logger shared by serve/doctor.
func newLogger() *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: slog.LevelInfo,
	}))
}
