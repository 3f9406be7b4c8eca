// Command admin creates an account that can sign in to the management API.
//
//	admin -email ops@example.com            # password read from ADMIN_PASSWORD
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"rollcall/internal/auth"
	"rollcall/internal/config"
	"rollcall/internal/logging"
	"rollcall/internal/store"
)

func main() {
	email := flag.String("email", "", "admin email address")
	password := flag.String("password", "", "admin password (default $ADMIN_PASSWORD)")
	flag.Parse()

	cfg := config.Load()
	logging.Setup(cfg.Production())

	if *password == "" {
		*password = os.Getenv("ADMIN_PASSWORD")
	}
	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.NewDB(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			slog.Error("migrate failed", "error", err)
			os.Exit(1)
		}
	}

	authn := auth.NewAuthenticator(auth.NewStore(db.Client), cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
	admin, err := authn.CreateAdmin(ctx, *email, *password)
	if err != nil {
		slog.Error("create admin failed", "error", err)
		os.Exit(1)
	}
	slog.Info("admin created", "id", admin.ID, "email", admin.Email)
}
