package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wizone/it-support-api/internal/database"
	"github.com/wizone/it-support-api/internal/models"
	"github.com/wizone/it-support-api/internal/services"
	"github.com/wizone/it-support-api/internal/worker"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		return database.Migrate(a.db, a.logger)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Close every resolved ticket whose auto-complete time has passed, then exit",
	Long:  `Runs one auto-close pass. Useful from cron when the API runs without its background sweeper.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		sweeper := worker.NewSweeper(a.taskService, worker.NewRedisLocker(a.redis), a.metrics, a.logger, a.cfg.SweepInterval)
		closed := sweeper.RunOnce(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "auto-closed %d tickets\n", closed)
		return nil
	},
}

var (
	adminUsername string
	adminEmail    string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create the first administrator account",
	RunE: func(cmd *cobra.Command, args []string) error {
		password := adminPassword
		if password == "" {
			password = os.Getenv("ADMIN_PASSWORD")
		}
		if password == "" {
			return errors.New("a password is required (--password or ADMIN_PASSWORD)")
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		user, err := a.userService.CreateUser(cmd.Context(), services.CreateUserInput{
			Username:  adminUsername,
			Email:     adminEmail,
			Password:  password,
			FirstName: "System",
			LastName:  "Administrator",
			Role:      string(models.RoleAdmin),
		})
		if err != nil {
			return err
		}

		a.logger.Info("administrator created", zap.Uint64("user_id", user.ID), zap.String("username", user.Username))
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "admin", "Administrator username")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "admin@wizone.local", "Administrator email")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Administrator password (defaults to $ADMIN_PASSWORD)")
}
