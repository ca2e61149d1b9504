// seed creates the initial admin account in the configured store.
// Idempotent: skips the insert if a user with the admin email already exists.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"user-account-service/internal/config"
	"user-account-service/internal/logging"
	"user-account-service/internal/platform/rbac"
	"user-account-service/internal/security"
	"user-account-service/internal/user/domain"
	"user-account-service/internal/user/repository"
)

const (
	defaultAdminEmail = "admin@example.com"
	defaultFirstName  = "Admin"
	seedActor         = "seed"
)

func main() {
	email := flag.String("email", defaultAdminEmail, "Admin account email")
	firstName := flag.String("first-name", defaultFirstName, "Admin first name")
	flag.Parse()

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		log.Fatal("SEED_ADMIN_PASSWORD is not set")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repo, closeStore, err := repository.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("store", zap.Error(err))
	}
	defer func() { _ = closeStore(context.Background()) }()

	adminEmail := strings.ToLower(strings.TrimSpace(*email))
	exists, err := repo.IsExisting(ctx, adminEmail)
	if err != nil {
		logger.Fatal("seed check", zap.Error(err))
	}
	if exists {
		logger.Info("seed already applied, skipping", zap.String("email", adminEmail))
		return
	}

	hash, err := security.NewHasher(cfg.BcryptCost, 1).Hash(ctx, password)
	if err != nil {
		logger.Fatal("hash password", zap.Error(err))
	}

	now := time.Now().UTC()
	admin := &domain.User{
		ID:           uuid.NewString(),
		FirstName:    *firstName,
		Email:        adminEmail,
		PasswordHash: hash,
		LoginType:    domain.LoginTypePassword,
		Role:         rbac.RoleAdmin,
		IsActive:     true,
		Version:      1,
		CreatedAt:    now,
		CreatedBy:    seedActor,
		UpdatedAt:    now,
		UpdatedBy:    seedActor,
		MetaStatus:   domain.MetaStatusCreated,
	}
	if err := admin.Validate(); err != nil {
		logger.Fatal("admin record", zap.Error(err))
	}
	if err := repo.Create(ctx, admin); err != nil {
		logger.Fatal("create admin", zap.Error(err))
	}
	logger.Info("seed completed", zap.String("email", adminEmail), zap.String("user_id", admin.ID))
}
