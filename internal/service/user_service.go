package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pipersmart/internal/domain"
	"pipersmart/internal/identity"
	"pipersmart/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned when attempting to register with an existing email.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrProviderConflict is returned when an email is already linked to a
	// different sign-in method.
	ErrProviderConflict = errors.New("email is linked to a different sign-in method")
)

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	AuthenticateFederated(ctx context.Context, provider domain.AuthProvider, idToken string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, name, avatarURL string) (*domain.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

type userService struct {
	users    repository.UserRepository
	verifier identity.Verifier
}

func NewUserService(users repository.UserRepository, verifier identity.Verifier) UserService {
	return &userService{
		users:    users,
		verifier: verifier,
	}
}

func (s *userService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)

	if name == "" {
		return nil, errors.New("name is required")
	}
	if email == "" {
		return nil, errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errors.New("email is invalid")
	}
	if password == "" {
		return nil, errors.New("password is required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Provider:     domain.ProviderLocal,
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// accounts created through a federated provider have no local password
	if user.PasswordHash == "" {
		return nil, ErrProviderConflict
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

// AuthenticateFederated verifies the identity token with its provider, then
// finds or creates the matching account. An email already registered under a
// different sign-in method is a conflict, never a silent merge.
func (s *userService) AuthenticateFederated(ctx context.Context, provider domain.AuthProvider, idToken string) (*domain.User, error) {
	if provider != domain.ProviderGoogle && provider != domain.ProviderFacebook {
		return nil, fmt.Errorf("unsupported identity provider %q", provider)
	}

	assertion, err := s.verifier.Verify(ctx, provider, idToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByProviderSubject(ctx, provider, assertion.Subject)
	if err == nil {
		return sanitizeUser(user), nil
	}
	if !strings.Contains(strings.ToLower(err.Error()), "not found") {
		return nil, err
	}

	if existing, err := s.users.GetByEmail(ctx, assertion.Email); err == nil {
		if existing.Provider != provider {
			return nil, ErrProviderConflict
		}
		return sanitizeUser(existing), nil
	} else if !strings.Contains(strings.ToLower(err.Error()), "not found") {
		return nil, err
	}

	user = &domain.User{
		Name:            assertion.Name,
		Email:           assertion.Email,
		Role:            domain.RoleUser,
		AvatarURL:       assertion.AvatarURL,
		Provider:        provider,
		ProviderSubject: assertion.Subject,
	}
	if user.Name == "" {
		user.Name = assertion.Email
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return nil, ErrProviderConflict
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, id int64, name, avatarURL string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = user.Name
	}
	if avatarURL == "" {
		avatarURL = user.AvatarURL
	}

	if err := s.users.UpdateProfile(ctx, id, name, avatarURL); err != nil {
		return nil, err
	}
	user.Name = name
	user.AvatarURL = avatarURL
	user.UpdatedAt = time.Now().UTC()
	return sanitizeUser(user), nil
}

func (s *userService) CountUsers(ctx context.Context) (int64, error) {
	return s.users.Count(ctx)
}

// Summarize converts a user record into the session snapshot shape.
func Summarize(user *domain.User) domain.Summary {
	return domain.Summary{
		ID:        strconv.FormatInt(user.ID, 10),
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		AvatarURL: user.AvatarURL,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		AvatarURL: user.AvatarURL,
		Provider:  user.Provider,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
