package repository

import (
	"context"

	"pipersmart/internal/domain"
)

// NoteRepository defines persistence operations for Note entities.
type NoteRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, note *domain.Note) error
	Get(ctx context.Context, id string) (*domain.Note, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Note, error)
	Update(ctx context.Context, note *domain.Note) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}
