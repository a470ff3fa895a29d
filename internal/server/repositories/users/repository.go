// Package users persists registered accounts.
package users

import (
	"context"

	"github.com/securecloudx/securecloudx/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, userName string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// List returns all accounts without key or password material.
	List(ctx context.Context) ([]*models.User, error)
}
