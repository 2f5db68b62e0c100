package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"pipersmart/internal/domain"
	"pipersmart/internal/repository"
)

// ErrNoteNotFound is returned when a note does not exist or belongs to
// another user. Ownership failures are indistinguishable from absence on
// purpose.
var ErrNoteNotFound = errors.New("note not found")

// NoteService coordinates note level operations backed by repositories.
type NoteService interface {
	CreateNote(ctx context.Context, userID int64, title, body string) (*domain.Note, error)
	GetNote(ctx context.Context, userID int64, id string) (*domain.Note, error)
	ListNotes(ctx context.Context, userID int64) ([]domain.Note, error)
	UpdateNote(ctx context.Context, userID int64, id, title, body string) (*domain.Note, error)
	DeleteNote(ctx context.Context, userID int64, id string) error
	CountNotes(ctx context.Context) (int64, error)
}

type noteService struct {
	notes repository.NoteRepository
}

func NewNoteService(notes repository.NoteRepository) NoteService {
	return &noteService{notes: notes}
}

func (s *noteService) CreateNote(ctx context.Context, userID int64, title, body string) (*domain.Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title is required")
	}

	note := &domain.Note{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  title,
		Body:   body,
	}

	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *noteService) GetNote(ctx context.Context, userID int64, id string) (*domain.Note, error) {
	note, err := s.notes.Get(ctx, id)
	if err != nil {
		return nil, ErrNoteNotFound
	}
	if note.UserID != userID {
		return nil, ErrNoteNotFound
	}
	return note, nil
}

func (s *noteService) ListNotes(ctx context.Context, userID int64) ([]domain.Note, error) {
	return s.notes.ListByUser(ctx, userID)
}

func (s *noteService) UpdateNote(ctx context.Context, userID int64, id, title, body string) (*domain.Note, error) {
	note, err := s.GetNote(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title != "" {
		note.Title = title
	}
	note.Body = body

	if err := s.notes.Update(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *noteService) DeleteNote(ctx context.Context, userID int64, id string) error {
	if _, err := s.GetNote(ctx, userID, id); err != nil {
		return err
	}
	return s.notes.Delete(ctx, id)
}

func (s *noteService) CountNotes(ctx context.Context) (int64, error) {
	return s.notes.Count(ctx)
}
