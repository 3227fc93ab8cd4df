package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/exam-automation/internal/config"
	"github.com/jonathan/exam-automation/internal/memstore"
	"github.com/jonathan/exam-automation/internal/orchestration"
	"github.com/jonathan/exam-automation/internal/server"
	"github.com/jonathan/exam-automation/internal/types"
	"github.com/spf13/cobra"
)

var (
	servePort          int
	serveInMemory      bool
	serveSeedFile      string
	serveAdminEmail    string
	serveAdminPassword string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes the admin and self-service REST endpoints.

With --in-memory no database is used. --seed and --admin-email/--admin-password
can then populate the store at startup.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT, default 8080)")
	serveCmd.Flags().BoolVar(&serveInMemory, "in-memory", false, "Use an in-memory store instead of PostgreSQL")
	serveCmd.Flags().StringVar(&serveSeedFile, "seed", "", "YAML file of exam configurations to load (--in-memory only)")
	serveCmd.Flags().StringVar(&serveAdminEmail, "admin-email", "", "Email of an admin to create at startup (--in-memory only)")
	serveCmd.Flags().StringVar(&serveAdminPassword, "admin-password", "", "Password for --admin-email")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	if !serveInMemory {
		if serveSeedFile != "" || serveAdminEmail != "" {
			return fmt.Errorf("--seed and --admin-email require --in-memory")
		}
		cfg, err := config.LoadServerConfig()
		if err != nil {
			return err
		}
		if servePort != 0 {
			cfg.Port = servePort
		}

		srv, err := server.Open(context.Background(), cfg)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
		return srv.Start()
	}

	port := servePort
	if port == 0 {
		port = config.DefaultPort
	}
	srv, store, err := server.OpenInMemory(port)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := seedMemoryStore(context.Background(), store); err != nil {
		return err
	}
	return srv.Start()
}

func seedMemoryStore(ctx context.Context, store *memstore.Store) error {
	if serveSeedFile != "" {
		reqs, err := loadExamFile(serveSeedFile)
		if err != nil {
			return err
		}
		service := orchestration.NewService(store, nil)
		for i := range reqs {
			if _, _, err := service.ImportExamConfig(ctx, &reqs[i]); err != nil {
				return fmt.Errorf("failed to seed exam %q: %w", reqs[i].Slug, err)
			}
		}
		log.Printf("[serve] seeded %d exam configurations from %s", len(reqs), serveSeedFile)
	}

	if serveAdminEmail != "" {
		passwordConfig, err := config.NewPasswordConfig()
		if err != nil {
			return fmt.Errorf("failed to create password config: %w", err)
		}
		users := server.NewUserService(store, passwordConfig)
		admin, err := users.CreateAdmin(ctx, &types.CreateUserRequest{
			Name:     "Admin",
			Email:    serveAdminEmail,
			Password: serveAdminPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		log.Printf("[serve] created admin %s (%s)", admin.Email, admin.ID)
	}
	return nil
}
