package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipersmart/internal/domain"
)

type memoryNoteRepo struct {
	notes map[string]*domain.Note
}

func newMemoryNoteRepo() *memoryNoteRepo {
	return &memoryNoteRepo{notes: map[string]*domain.Note{}}
}

func (r *memoryNoteRepo) Init(context.Context) error { return nil }

func (r *memoryNoteRepo) Create(_ context.Context, note *domain.Note) error {
	clone := *note
	r.notes[note.ID] = &clone
	return nil
}

func (r *memoryNoteRepo) Get(_ context.Context, id string) (*domain.Note, error) {
	n, ok := r.notes[id]
	if !ok {
		return nil, errors.New("note not found")
	}
	clone := *n
	return &clone, nil
}

func (r *memoryNoteRepo) ListByUser(_ context.Context, userID int64) ([]domain.Note, error) {
	var out []domain.Note
	for _, n := range r.notes {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r *memoryNoteRepo) Update(_ context.Context, note *domain.Note) error {
	if _, ok := r.notes[note.ID]; !ok {
		return errors.New("note not found")
	}
	clone := *note
	r.notes[note.ID] = &clone
	return nil
}

func (r *memoryNoteRepo) Delete(_ context.Context, id string) error {
	delete(r.notes, id)
	return nil
}

func (r *memoryNoteRepo) Count(context.Context) (int64, error) {
	return int64(len(r.notes)), nil
}

func TestNoteLifecycle(t *testing.T) {
	svc := NewNoteService(newMemoryNoteRepo())
	ctx := context.Background()

	note, err := svc.CreateNote(ctx, 1, "Pruning schedule", "Prune after harvest.")
	require.NoError(t, err)
	require.NotEmpty(t, note.ID)

	got, err := svc.GetNote(ctx, 1, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pruning schedule", got.Title)

	updated, err := svc.UpdateNote(ctx, 1, note.ID, "", "Prune in February.")
	require.NoError(t, err)
	assert.Equal(t, "Pruning schedule", updated.Title, "blank title keeps the old one")
	assert.Equal(t, "Prune in February.", updated.Body)

	require.NoError(t, svc.DeleteNote(ctx, 1, note.ID))

	_, err = svc.GetNote(ctx, 1, note.ID)
	assert.ErrorIs(t, err, ErrNoteNotFound)
}

func TestNoteRequiresTitle(t *testing.T) {
	svc := NewNoteService(newMemoryNoteRepo())

	_, err := svc.CreateNote(context.Background(), 1, "   ", "body")
	assert.Error(t, err)
}

func TestNotesAreOwnerScoped(t *testing.T) {
	svc := NewNoteService(newMemoryNoteRepo())
	ctx := context.Background()

	note, err := svc.CreateNote(ctx, 1, "Mine", "body")
	require.NoError(t, err)

	_, err = svc.GetNote(ctx, 2, note.ID)
	assert.ErrorIs(t, err, ErrNoteNotFound, "another user's note reads as absent")

	_, err = svc.UpdateNote(ctx, 2, note.ID, "stolen", "body")
	assert.ErrorIs(t, err, ErrNoteNotFound)

	err = svc.DeleteNote(ctx, 2, note.ID)
	assert.ErrorIs(t, err, ErrNoteNotFound)

	// still there for the owner
	_, err = svc.GetNote(ctx, 1, note.ID)
	assert.NoError(t, err)
}

func TestListNotesFiltersByUser(t *testing.T) {
	svc := NewNoteService(newMemoryNoteRepo())
	ctx := context.Background()

	_, err := svc.CreateNote(ctx, 1, "A", "")
	require.NoError(t, err)
	_, err = svc.CreateNote(ctx, 1, "B", "")
	require.NoError(t, err)
	_, err = svc.CreateNote(ctx, 2, "C", "")
	require.NoError(t, err)

	notes, err := svc.ListNotes(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, notes, 2)

	count, err := svc.CountNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
