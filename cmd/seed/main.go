package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"jogosescolares/internal/audit"
	"jogosescolares/internal/config"
	"jogosescolares/internal/database"
	"jogosescolares/internal/logger"
	"jogosescolares/internal/modality"
	"jogosescolares/internal/user"
	"jogosescolares/internal/util"
	"jogosescolares/internal/validator"
)

//go:embed modalities.yaml
var defaultCatalog []byte

func main() {
	var (
		catalogPath = flag.String("catalog", "", "Modality catalog YAML (defaults to the built-in catalog)")
		adminEmail  = flag.String("admin-email", "admin@jogosescolares.local", "Email of the admin account to ensure")
		adminName   = flag.String("admin-name", "Administrador", "Name of the admin account")
	)
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	slogger := logger.New(cfg)

	db := database.NewDatabase()
	if err := db.Connect(ctx, cfg.Database.DSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	v := validator.New()
	auditor := audit.NewAuditor(slogger)
	users := user.NewManager(slogger, &db, &auditor, v)
	modalities := modality.NewManager(slogger, &db, &auditor, v)

	admin, err := ensureAdmin(ctx, &db, &users, *adminEmail, *adminName)
	if err != nil {
		log.Fatalf("Failed to ensure admin: %v", err)
	}

	var catalog io.Reader = bytes.NewReader(defaultCatalog)
	if *catalogPath != "" {
		f, err := os.Open(*catalogPath)
		if err != nil {
			log.Fatalf("Failed to open catalog: %v", err)
		}
		defer f.Close()
		catalog = f
	}

	result, err := modalities.ImportCatalog(ctx, admin.ID, catalog)
	if err != nil {
		log.Fatalf("Failed to import modality catalog: %v", err)
	}
	fmt.Printf("Modalities created: %d, skipped: %d\n", result.Created, result.Skipped)
}

// ensureAdmin returns the admin account, creating it when missing. A new
// account gets SEED_ADMIN_PASSWORD or a generated password that is printed once.
func ensureAdmin(ctx context.Context, db *database.Database, users *user.Manager, email, name string) (user.User, error) {
	existing, err := db.GetUserByEmail(ctx, user.NormalizeEmail(email))
	if err == nil {
		return user.FromDB(existing), nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return user.User{}, err
	}

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	generated := password == ""
	if generated {
		password, err = util.RandomPassword(16)
		if err != nil {
			return user.User{}, err
		}
	}

	admin, err := users.CreateUser(ctx, user.CreateUserParams{
		Role:     user.RoleAdmin,
		Name:     name,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return user.User{}, err
	}

	fmt.Printf("Created admin %s\n", admin.Email)
	if generated {
		fmt.Printf("Generated password: %s\n", password)
	}
	return admin, nil
}
