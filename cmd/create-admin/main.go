package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
)

// create-admin creates an ADMIN account, or promotes an existing account
// with the same email.  Registration through the API always yields USER.
func main() {
	var (
		name     = flag.String("name", "Admin", "display name for a new account")
		email    = flag.String("email", "", "account email (required)")
		password = flag.String("password", "", "password for a new account")
	)
	flag.Parse()
	if *email == "" {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/create-admin -email admin@example.com -password secret123")
		os.Exit(1)
	}

	cfg := config.Load()
	db, err := database.Open(database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	users := repository.NewUserRepo(db)
	addr := repository.NormalizeEmail(*email)

	_, err = users.GetByEmail(ctx, addr)
	switch {
	case err == nil:
		if err := users.SetRole(ctx, addr, model.RoleAdmin); err != nil {
			log.Fatalf("Failed to promote user: %v", err)
		}
		fmt.Printf("Promoted %s to %s\n", addr, model.RoleAdmin)
	case errors.Is(err, repository.ErrUserNotFound):
		if len(*password) < 6 {
			log.Fatal("password must be at least 6 characters")
		}
		id, err := users.Create(ctx, *name, addr, *password, model.RoleAdmin, cfg.BcryptCost)
		if err != nil {
			log.Fatalf("Failed to create admin user: %v", err)
		}
		fmt.Printf("Created admin user %s with ID %d\n", addr, id)
	default:
		log.Fatalf("Failed to look up user: %v", err)
	}
}
