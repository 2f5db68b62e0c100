// Package exchange trades credentials for an application session against
// the PiperSmart backend. The backend is the sole authority for minting
// session tokens; an identity token is never used as a bearer credential.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"pipersmart/internal/client/identity"
	"pipersmart/internal/domain"
)

var (
	// ErrInvalidCredentials carries the server's message for a rejected
	// local login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrServerRejected means the exchange response carried no session
	// token, even if the HTTP call nominally succeeded.
	ErrServerRejected = errors.New("server rejected the sign-in")
	// ErrServerUnreachable covers transport failures and timeouts.
	ErrServerUnreachable = errors.New("server unreachable")
)

// InvalidCredentialsError surfaces the server's human-readable message
// verbatim; errors.Is matches ErrInvalidCredentials.
type InvalidCredentialsError struct {
	Message string
}

func (e *InvalidCredentialsError) Error() string { return e.Message }
func (e *InvalidCredentialsError) Unwrap() error { return ErrInvalidCredentials }

const defaultTimeout = 15 * time.Second

// Client performs credential exchanges. It deliberately uses its own bare
// HTTP client: exchange requests must not carry a stale bearer header.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type sessionEnvelope struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	User    struct {
		ID     string `json:"_id"`
		AltID  string `json:"id"`
		Name   string `json:"name"`
		Email  string `json:"email"`
		Role   string `json:"role"`
		Avatar string `json:"avatar"`
	} `json:"user"`
	Message string `json:"message"`
}

// LoginLocal exchanges email/password for a session.
func (c *Client) LoginLocal(ctx context.Context, email, password string) (domain.Session, error) {
	payload := map[string]string{"email": email, "password": password}
	env, status, err := c.post(ctx, "/api/auth/login", payload)
	if err != nil {
		return domain.Session{}, err
	}

	if status == http.StatusUnauthorized || status == http.StatusBadRequest {
		msg := env.Message
		if msg == "" {
			msg = ErrInvalidCredentials.Error()
		}
		return domain.Session{}, &InvalidCredentialsError{Message: msg}
	}
	if status < 200 || status >= 300 {
		return domain.Session{}, statusError(status, env.Message)
	}

	return sessionFromEnvelope(env)
}

// Register creates a local account and returns its first session.
func (c *Client) Register(ctx context.Context, name, email, password string) (domain.Session, error) {
	payload := map[string]string{"name": name, "email": email, "password": password}
	env, status, err := c.post(ctx, "/api/auth/register", payload)
	if err != nil {
		return domain.Session{}, err
	}
	if status < 200 || status >= 300 {
		return domain.Session{}, statusError(status, env.Message)
	}
	return sessionFromEnvelope(env)
}

// LoginFederated presents a provider identity token to the provider-specific
// endpoint. A 2xx response without a session token is a hard failure.
func (c *Client) LoginFederated(ctx context.Context, provider identity.Provider, idToken string) (domain.Session, error) {
	if !provider.Valid() {
		return domain.Session{}, errors.New("unknown identity provider")
	}

	payload := map[string]string{"idToken": idToken}
	env, status, err := c.post(ctx, "/api/auth/"+string(provider), payload)
	if err != nil {
		return domain.Session{}, err
	}

	if status == http.StatusConflict {
		return domain.Session{}, identity.ErrProviderConflict
	}
	if status < 200 || status >= 300 {
		return domain.Session{}, statusError(status, env.Message)
	}

	return sessionFromEnvelope(env)
}

func (c *Client) post(ctx context.Context, path string, payload any) (sessionEnvelope, int, error) {
	var env sessionEnvelope

	body, err := json.Marshal(payload)
	if err != nil {
		return env, 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return env, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return env, 0, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return env, 0, fmt.Errorf("%w: read response: %v", ErrServerUnreachable, err)
	}
	// decode failures fall through: a non-JSON error body still maps by status
	_ = json.Unmarshal(raw, &env)

	return env, resp.StatusCode, nil
}

func sessionFromEnvelope(env sessionEnvelope) (domain.Session, error) {
	if strings.TrimSpace(env.Token) == "" {
		return domain.Session{}, ErrServerRejected
	}

	id := env.User.ID
	if id == "" {
		id = env.User.AltID
	}
	return domain.Session{
		Token: env.Token,
		User: domain.Summary{
			ID:        id,
			Name:      env.User.Name,
			Email:     env.User.Email,
			Role:      domain.ParseRole(env.User.Role),
			AvatarURL: env.User.Avatar,
		},
	}, nil
}

func statusError(status int, message string) error {
	if message != "" {
		return fmt.Errorf("%w: %s", ErrServerRejected, message)
	}
	return fmt.Errorf("%w: status %d", ErrServerRejected, status)
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: request timed out", ErrServerUnreachable)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out", ErrServerUnreachable)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrServerUnreachable, err)
}
