// Command promote sets a user's role to ADMIN by email address.
// It is used to bootstrap the first admin user.
//
// Usage:
//
//	promote --email=user@example.com
//
// Requires DATABASE_URI to be set.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/heartmarshall/proposal-backend/internal/app"
	"github.com/heartmarshall/proposal-backend/internal/config"
	"github.com/heartmarshall/proposal-backend/internal/domain"
	"github.com/heartmarshall/proposal-backend/internal/query"
)

func main() {
	email := flag.String("email", "", "email of user to promote to admin")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "Usage: promote --email=user@example.com")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := app.Open(ctx, cfg, app.NewLogger(cfg.Log))
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() { _ = st.Close(ctx) }()

	admin := domain.UserRoleAdmin.String()
	n, err := st.DB.User.UpdateMany(ctx,
		query.Where{
			"email": query.Eq{Value: domain.NormalizeEmail(*email)},
			"role":  query.Ne{Value: admin},
		},
		domain.Data{"role": admin},
	)
	if err != nil {
		_ = st.Close(ctx)
		log.Fatalf("update role: %v", err)
	}

	if n == 0 {
		fmt.Printf("No user found with email %q, or already admin.\n", *email)
		_ = st.Close(ctx)
		os.Exit(1)
	}

	fmt.Printf("User %q promoted to admin.\n", *email)
}
