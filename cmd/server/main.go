package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	_ "kanbanlive/docs"
	"kanbanlive/internal/auth"
	"kanbanlive/internal/config"
	"kanbanlive/internal/logging"
	"kanbanlive/internal/migrations"
	"kanbanlive/internal/model"
	"kanbanlive/internal/repository"
	"kanbanlive/internal/server"
)

// @title           Kanban Live API
// @version         1.0
// @description     Collaborative kanban boards with ordered lists and tasks, live change streams and an activity trail.

// @contact.name   octaview
// @contact.url    t.me/octaview
// @contact.email  octaviewes@gmail.com

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	rootCmd := &cobra.Command{
		Use:   "kanban-server",
		Short: "Kanban Live API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			s, err := server.Init(cfg)
			if err != nil {
				log.Fatalf("❌ Server initialization failed: %v", err)
			}
			s.Run()
			return nil
		},
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedUserCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			return migrations.Up(cfg.MigrateURL(), logging.New(cfg.LogLevel, cfg.LogJSON))
		},
	}
}

// Users come from the host identity provider; this creates one for local work
// and prints a token for it.
func seedUserCmd() *cobra.Command {
	var (
		email string
		name  string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Create a user (if missing) and print a bearer token for it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := server.OpenDB(cfg)
			if err != nil {
				return err
			}
			users := repository.NewUserRepository(db)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			email = strings.ToLower(strings.TrimSpace(email))
			user, err := users.FindByEmail(ctx, email)
			switch {
			case errors.Is(err, repository.ErrUserNotFound):
				user = &model.User{Email: email}
				if name != "" {
					user.FullName = &name
				}
				if err := users.Create(ctx, user); err != nil {
					return fmt.Errorf("create user: %w", err)
				}
			case err != nil:
				return err
			}

			token, err := auth.GenerateToken(cfg.JWTSecret, user.ID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user_id: %s\ntoken:   %s\n", user.ID, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "User email")
	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().DurationVar(&ttl, "ttl", 72*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
