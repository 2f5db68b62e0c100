package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"pipersmart/internal/domain"
	"pipersmart/internal/identity"
)

type memoryUserRepo struct {
	nextID int64
	users  map[int64]*domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{nextID: 1, users: map[int64]*domain.User{}}
}

func (r *memoryUserRepo) Init(context.Context) error { return nil }

func (r *memoryUserRepo) Create(_ context.Context, user *domain.User) (int64, error) {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return 0, errors.New("user already exists")
		}
	}
	user.ID = r.nextID
	r.nextID++
	clone := *user
	r.users[user.ID] = &clone
	return user.ID, nil
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, errors.New("user not found")
}

func (r *memoryUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	clone := *u
	return &clone, nil
}

func (r *memoryUserRepo) GetByProviderSubject(_ context.Context, provider domain.AuthProvider, subject string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Provider == provider && u.ProviderSubject == subject {
			clone := *u
			return &clone, nil
		}
	}
	return nil, errors.New("user not found")
}

func (r *memoryUserRepo) UpdateProfile(_ context.Context, id int64, name, avatarURL string) error {
	u, ok := r.users[id]
	if !ok {
		return errors.New("user not found")
	}
	u.Name = name
	u.AvatarURL = avatarURL
	return nil
}

func (r *memoryUserRepo) Count(context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

type stubVerifier struct {
	assertion *identity.Assertion
	err       error
}

func (v *stubVerifier) Verify(context.Context, domain.AuthProvider, string) (*identity.Assertion, error) {
	return v.assertion, v.err
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewUserService(newMemoryUserRepo(), &stubVerifier{})
	ctx := context.Background()

	user, err := svc.Register(ctx, "Anita", "Anita@Example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, "anita@example.com", user.Email)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Empty(t, user.PasswordHash, "hash never leaves the service")

	got, err := svc.Authenticate(ctx, "anita@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewUserService(newMemoryUserRepo(), &stubVerifier{})
	ctx := context.Background()

	cases := []struct {
		name, userName, email, password string
	}{
		{"missing name", "", "a@x.com", "longenough"},
		{"missing email", "A", "", "longenough"},
		{"bad email", "A", "not-an-email", "longenough"},
		{"short password", "A", "a@x.com", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.userName, tc.email, tc.password)
			assert.Error(t, err)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewUserService(newMemoryUserRepo(), &stubVerifier{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "A", "a@x.com", "longenough")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "B", "a@x.com", "longenough")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc := NewUserService(newMemoryUserRepo(), &stubVerifier{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "A", "a@x.com", "longenough")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "a@x.com", "wrongwrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@x.com", "longenough")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateFederatedAccountHasNoPassword(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewUserService(repo, &stubVerifier{assertion: &identity.Assertion{
		Subject: "g-1", Email: "a@x.com", Name: "A",
	}})
	ctx := context.Background()

	_, err := svc.AuthenticateFederated(ctx, domain.ProviderGoogle, "idtok")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "a@x.com", "anything1")
	assert.ErrorIs(t, err, ErrProviderConflict)
}

func TestAuthenticateFederatedCreatesThenFinds(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewUserService(repo, &stubVerifier{assertion: &identity.Assertion{
		Subject: "g-1", Email: "a@x.com", Name: "A", AvatarURL: "http://img/a.png",
	}})
	ctx := context.Background()

	first, err := svc.AuthenticateFederated(ctx, domain.ProviderGoogle, "idtok")
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderGoogle, first.Provider)
	assert.Equal(t, "http://img/a.png", first.AvatarURL)

	second, err := svc.AuthenticateFederated(ctx, domain.ProviderGoogle, "idtok")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "repeat sign-in reuses the account")

	count, err := svc.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAuthenticateFederatedEmailOwnedByLocalAccount(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewUserService(repo, &stubVerifier{assertion: &identity.Assertion{
		Subject: "g-1", Email: "a@x.com", Name: "A",
	}})
	ctx := context.Background()

	_, err := svc.Register(ctx, "A", "a@x.com", "longenough")
	require.NoError(t, err)

	_, err = svc.AuthenticateFederated(ctx, domain.ProviderGoogle, "idtok")
	assert.ErrorIs(t, err, ErrProviderConflict)
}

func TestAuthenticateFederatedRejectedToken(t *testing.T) {
	svc := NewUserService(newMemoryUserRepo(), &stubVerifier{err: identity.ErrTokenRejected})

	_, err := svc.AuthenticateFederated(context.Background(), domain.ProviderGoogle, "bad")
	assert.ErrorIs(t, err, identity.ErrTokenRejected)
}

func TestUpdateProfileKeepsBlankFields(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewUserService(repo, &stubVerifier{})
	ctx := context.Background()

	user, err := svc.Register(ctx, "A", "a@x.com", "longenough")
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, user.ID, "", "http://img/new.png")
	require.NoError(t, err)
	assert.Equal(t, "A", updated.Name)
	assert.Equal(t, "http://img/new.png", updated.AvatarURL)

	updated, err = svc.UpdateProfile(ctx, user.ID, "Anita", "")
	require.NoError(t, err)
	assert.Equal(t, "Anita", updated.Name)
	assert.Equal(t, "http://img/new.png", updated.AvatarURL)
}

func TestSummarize(t *testing.T) {
	summary := Summarize(&domain.User{ID: 5, Name: "A", Email: "a@x.com", Role: domain.RoleAdmin})
	assert.Equal(t, "5", summary.ID)
	assert.Equal(t, domain.RoleAdmin, summary.Role)
}

func TestStoredPasswordIsHashed(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewUserService(repo, &stubVerifier{})

	user, err := svc.Register(context.Background(), "A", "a@x.com", "longenough")
	require.NoError(t, err)

	stored := repo.users[user.ID]
	require.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "longenough", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("longenough")))
}
