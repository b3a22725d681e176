package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/noah-isme/sma-incentive-api/internal/models"
	"github.com/noah-isme/sma-incentive-api/internal/repository"
	"github.com/noah-isme/sma-incentive-api/internal/service"
	"github.com/noah-isme/sma-incentive-api/pkg/config"
	"github.com/noah-isme/sma-incentive-api/pkg/database"
	"github.com/noah-isme/sma-incentive-api/pkg/logger"
)

func main() {
	var (
		email   string
		name    string
		role    string
		secret  string
		timeout time.Duration
	)

	flag.StringVar(&email, "email", "", "Account email (login identifier)")
	flag.StringVar(&name, "name", "", "Display name")
	flag.StringVar(&role, "role", string(models.RoleStudent), "Role: admin, teacher or student")
	flag.StringVar(&secret, "secret", "", "Secret word used to log in")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	if email == "" || secret == "" {
		flag.Usage()
		os.Exit(2)
	}
	if name == "" {
		name = email
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Store.Backend == config.StoreMemory {
		log.Fatal("usercreate needs a SQL store, STORE_BACKEND=memory keeps nothing")
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	store := repository.NewSQLStore(db)
	auth := service.NewAuthService(store, nil, nil, logr.Named("usercreate"), service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})

	user, err := auth.CreateAccount(ctx, service.CreateAccountRequest{
		Email:  email,
		Name:   name,
		Role:   models.UserRole(role),
		Secret: secret,
	})
	if err != nil {
		log.Fatalf("failed to create account: %v", err)
	}

	fmt.Printf("created %s account %d for %s\n", user.Role, user.ID, user.Email)
}
