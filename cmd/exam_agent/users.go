package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jonathan/exam-automation/internal/config"
	"github.com/jonathan/exam-automation/internal/server"
	"github.com/jonathan/exam-automation/internal/types"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

var (
	adminName        string
	adminEmail       string
	adminPassword    string
	adminPhone       string
	adminDatabaseURL string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	Long:  "Create an admin account. Admins cannot be created through the API; use this to bootstrap the first one.",
	RunE:  runCreateAdmin,
}

func init() {
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "Display name (required)")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Login email (required)")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Password, at least 8 characters (required)")
	createAdminCmd.Flags().StringVar(&adminPhone, "phone", "", "Phone number")
	createAdminCmd.Flags().StringVar(&adminDatabaseURL, "db-url", "", "Database URL (overrides DATABASE_URL env var)")
	_ = createAdminCmd.MarkFlagRequired("name")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")

	usersCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(usersCmd)
}

func runCreateAdmin(cmd *cobra.Command, _ []string) error {
	req := &types.CreateUserRequest{
		Name:     adminName,
		Email:    adminEmail,
		Password: adminPassword,
		Phone:    adminPhone,
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid admin details: %w", err)
	}

	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return fmt.Errorf("failed to create password config: %w", err)
	}

	ctx := context.Background()
	database, err := connectDB(ctx, adminDatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	return createAdmin(ctx, server.NewUserService(database, passwordConfig), req, cmd.OutOrStdout())
}

func createAdmin(ctx context.Context, users *server.UserService, req *types.CreateUserRequest, out io.Writer) error {
	admin, err := users.CreateAdmin(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Created admin %s (%s)\n", admin.Email, admin.ID)
	return nil
}
