// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, and issuing JWTs.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/securecloudx/securecloudx/internal/common"
	"github.com/securecloudx/securecloudx/internal/cryptox"
	"github.com/securecloudx/securecloudx/internal/server/auth"
	"github.com/securecloudx/securecloudx/internal/server/config"
	"github.com/securecloudx/securecloudx/internal/server/models"
	"github.com/securecloudx/securecloudx/internal/server/repositories/repomanager"
)

// UserService provides account operations:
// - Register: create an account with a fresh P-256 keypair held in custody
// - Login: verify credentials and mint an access token
// - List: enumerate accounts without key material
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register creates a new account. The service generates the user's keypair
// and stores both halves; the password is kept only as an argon2id hash.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	if _, err := repo.GetByUsername(ctx, username); err == nil {
		return nil, common.ErrorAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error checking username: %w", err)
	}

	keyPair, err := cryptox.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("error generating keypair: %w", err)
	}

	user := &models.User{
		UserName:      username,
		PasswordHash:  cryptox.HashPassword(password),
		PublicKeyPEM:  keyPair.PublicKey,
		PrivateKeyPEM: keyPair.PrivateKey,
	}

	u, err := repo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Login verifies the password against the stored hash and, on success,
// returns a signed access token.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}

	if !cryptox.VerifyPassword(password, user.PasswordHash) {
		return "", common.ErrorUnauthorized
	}

	return auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
}

// GetByUsername resolves an account by its username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByUsername(ctx, username)
}

// List returns all accounts without password or key material.
func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	return s.repomanager.Users(s.db).List(ctx)
}
