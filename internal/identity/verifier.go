// Package identity verifies federated identity tokens against their issuing
// provider. The backend never trusts an identity token by itself; it is
// exchanged here for the provider's account assertion before a session token
// is minted.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pipersmart/internal/domain"
)

// ErrTokenRejected indicates the provider did not accept the identity token.
var ErrTokenRejected = errors.New("identity token rejected")

// Assertion is the provider-confirmed identity bound to a verified token.
type Assertion struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}

// Verifier checks an identity token with its provider.
type Verifier interface {
	Verify(ctx context.Context, provider domain.AuthProvider, idToken string) (*Assertion, error)
}

// Config holds the provider application credentials used during verification.
type Config struct {
	GoogleClientID    string
	FacebookAppID     string
	FacebookAppSecret string

	// Endpoint overrides for tests; empty means the real provider.
	GoogleTokenInfoURL string
	FacebookGraphURL   string
}

// HTTPVerifier verifies tokens by calling the providers' public endpoints.
type HTTPVerifier struct {
	cfg    Config
	client *http.Client
}

func NewHTTPVerifier(cfg Config) *HTTPVerifier {
	if cfg.GoogleTokenInfoURL == "" {
		cfg.GoogleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	}
	if cfg.FacebookGraphURL == "" {
		cfg.FacebookGraphURL = "https://graph.facebook.com"
	}
	return &HTTPVerifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *HTTPVerifier) Verify(ctx context.Context, provider domain.AuthProvider, idToken string) (*Assertion, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, ErrTokenRejected
	}

	switch provider {
	case domain.ProviderGoogle:
		return v.verifyGoogle(ctx, idToken)
	case domain.ProviderFacebook:
		return v.verifyFacebook(ctx, idToken)
	default:
		return nil, fmt.Errorf("unsupported identity provider %q", provider)
	}
}

func (v *HTTPVerifier) verifyGoogle(ctx context.Context, idToken string) (*Assertion, error) {
	endpoint := v.cfg.GoogleTokenInfoURL + "?id_token=" + url.QueryEscape(idToken)

	var payload struct {
		Sub           string `json:"sub"`
		Aud           string `json:"aud"`
		Email         string `json:"email"`
		EmailVerified string `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := v.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	if payload.Sub == "" || payload.Email == "" {
		return nil, ErrTokenRejected
	}
	if v.cfg.GoogleClientID != "" && payload.Aud != v.cfg.GoogleClientID {
		return nil, fmt.Errorf("%w: audience mismatch", ErrTokenRejected)
	}
	if payload.EmailVerified != "true" {
		return nil, fmt.Errorf("%w: email not verified", ErrTokenRejected)
	}

	return &Assertion{
		Subject:   payload.Sub,
		Email:     strings.ToLower(payload.Email),
		Name:      payload.Name,
		AvatarURL: payload.Picture,
	}, nil
}

func (v *HTTPVerifier) verifyFacebook(ctx context.Context, accessToken string) (*Assertion, error) {
	endpoint := fmt.Sprintf("%s/me?fields=id,name,email,picture&access_token=%s",
		strings.TrimSuffix(v.cfg.FacebookGraphURL, "/"), url.QueryEscape(accessToken))

	var payload struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := v.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	if payload.ID == "" || payload.Email == "" {
		return nil, ErrTokenRejected
	}

	return &Assertion{
		Subject:   payload.ID,
		Email:     strings.ToLower(payload.Email),
		Name:      payload.Name,
		AvatarURL: payload.Picture.Data.URL,
	}, nil
}

func (v *HTTPVerifier) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrTokenRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid identity provider response: %w", err)
	}
	return nil
}

var _ Verifier = (*HTTPVerifier)(nil)
