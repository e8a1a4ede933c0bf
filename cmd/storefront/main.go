package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Catalina-leal/Huertohogarapp/internal/app"
	"github.com/Catalina-leal/Huertohogarapp/internal/config"
	"github.com/Catalina-leal/Huertohogarapp/pkg/logger"
	"github.com/Catalina-leal/Huertohogarapp/pkg/middleware"
)

func main() {
	// Load configuration from .env and environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "admin-token" {
		if err := printAdminToken(cfg, os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	// Initialize structured logger.
	log := logger.NewWithOptions(logger.Options{
		Service: app.ServiceName,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
	log.Info("starting storefront",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("store_driver", cfg.StoreDriver),
		slog.Bool("remote_api", cfg.RemoteEnabled()),
		slog.Bool("kafka", cfg.KafkaEnabled()),
	)

	// Create the application with all dependencies wired.
	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create a context that is canceled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Run the application. This blocks until shutdown.
	if err := application.Run(ctx); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("storefront stopped")
}

// printAdminToken mints a bearer token for the admin endpoints.
func printAdminToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("admin-token", flag.ContinueOnError)
	email := fs.String("email", "admin@huertohogar.cl", "operator email")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !cfg.AdminEnabled() {
		return fmt.Errorf("ADMIN_JWT_SECRET is not set")
	}

	token, err := middleware.SignHS256(cfg.AdminJWTSecret, *email, middleware.RoleAdmin, *ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Println(token)
	return nil
}
