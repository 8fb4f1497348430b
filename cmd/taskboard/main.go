package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskboard/internal/config"
)

var (
	cfg config.Config

	addrFlag   string
	staticFlag string
	driverFlag string
)

var rootCmd = &cobra.Command{
	Use:           "taskboard",
	Short:         "Multi-user kanban board backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("driver") {
			loaded.Storage.Driver = driverFlag
		}
		cfg = loaded
		return cfg.Validate()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&driverFlag, "driver", config.DriverSupabase, "storage driver: supabase or sqlite")
	rootCmd.AddCommand(serveCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
