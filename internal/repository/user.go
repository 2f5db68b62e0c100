package repository

import (
	"context"

	"pipersmart/internal/domain"
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByProviderSubject(ctx context.Context, provider domain.AuthProvider, subject string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, name, avatarURL string) error
	Count(ctx context.Context) (int64, error)
}
