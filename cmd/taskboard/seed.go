package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"taskboard/internal/service"
)

var seedOpts service.SeedOptions

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate an empty board with demo categories, a user, a project and a task",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := cfg.Log.NewLogger()

		be, err := openBackend(cfg, logger)
		if err != nil {
			return err
		}
		defer be.close()

		res, err := be.board.Seed(cmd.Context(), seedOpts)
		if err != nil {
			return err
		}

		logger.Info("seed finished",
			slog.Int("categories", len(res.Categories)),
			slog.String("user", res.User.Email),
			slog.Bool("created_user", res.CreatedUser),
			slog.String("project", res.Project.Name),
			slog.Bool("created_task", res.Task != nil),
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOpts.Email, "email", "demo@example.com", "email of the demo user")
	seedCmd.Flags().StringVar(&seedOpts.Password, "password", "123456", "password of the demo user")
}
