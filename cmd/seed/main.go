// seed inserts a development member for local testing.
// Idempotent: registration reports REGISTERED_MEMBER if the member already exists.
package main

import (
	"context"
	"errors"
	"log"

	authservice "member-auth-service/internal/auth/service"
	"member-auth-service/internal/config"
	"member-auth-service/internal/db"
	"member-auth-service/internal/security"
	"member-auth-service/internal/store"
)

const (
	devMemberEmail = "dev@example.com"
	devPassword    = "password123"
	devMemberName  = "Dev Member"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if cfg.Env == "production" {
		log.Fatal("seed must not run in production")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	// Registration never issues tokens, so no TokenIssuer is needed here.
	svc := authservice.NewAuthService(store.NewPostgres(conn), security.NewHasher(cfg.BcryptCost), nil, cfg.RefreshTTL())

	member, err := svc.Register(context.Background(), devMemberEmail, devPassword, devMemberName)
	switch {
	case err == nil:
		log.Printf("seeded member %s (%s)", member.Email, member.ID)
	case errors.Is(err, authservice.ErrAlreadyRegistered):
		log.Printf("member %s already exists; nothing to do", devMemberEmail)
	default:
		log.Fatalf("seed: %v", err)
	}
}
