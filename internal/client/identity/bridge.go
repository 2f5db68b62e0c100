// Package identity wraps the interactive federated sign-in flow and
// normalizes its failure modes.
package identity

import (
	"context"
	"errors"
	"sync"
)

// Provider names a federated identity provider.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
)

// Valid reports whether p names a supported provider.
func (p Provider) Valid() bool {
	return p == ProviderGoogle || p == ProviderFacebook
}

var (
	// ErrUserCancelled means the user dismissed the consent flow. Callers
	// treat it as a silent no-op, never a visible error.
	ErrUserCancelled = errors.New("sign-in was cancelled")
	// ErrPopupBlocked means the consent surface could not be opened.
	ErrPopupBlocked = errors.New("sign-in window was blocked")
	// ErrNetworkUnavailable means the provider could not be reached.
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrProviderConflict means the account's email is already linked to a
	// different sign-in method.
	ErrProviderConflict = errors.New("email is linked to a different sign-in method")
)

// Flow runs one interactive consent round for a provider and resolves with
// a short-lived identity token. Implementations map user dismissal and
// context cancellation to ErrUserCancelled and must not hang.
type Flow interface {
	Authorize(ctx context.Context, provider Provider) (string, error)
}

// CacheResetter clears any cached federated session state (cookies, cached
// accounts) so the next flow forces explicit account selection.
type CacheResetter interface {
	Reset(provider Provider) error
}

// Bridge drives federated sign-in. Before starting a flow for a different
// provider than the last successful one, it resets cached federated state;
// without that, switching providers within one app session can silently
// reuse the wrong account.
type Bridge struct {
	flow  Flow
	cache CacheResetter

	mu           sync.Mutex
	lastProvider Provider
}

func NewBridge(flow Flow, cache CacheResetter) *Bridge {
	return &Bridge{flow: flow, cache: cache}
}

// SignIn launches the consent flow for provider and returns its identity
// token. Failures are one of the package sentinels or a wrapped unknown.
func (b *Bridge) SignIn(ctx context.Context, provider Provider) (string, error) {
	if !provider.Valid() {
		return "", errors.New("unknown identity provider")
	}

	b.mu.Lock()
	switching := b.lastProvider != "" && b.lastProvider != provider
	b.mu.Unlock()

	if switching && b.cache != nil {
		if err := b.cache.Reset(provider); err != nil {
			return "", errors.Join(errors.New("reset federated session state"), err)
		}
	}

	token, err := b.flow.Authorize(ctx, provider)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", ErrUserCancelled
		}
		return "", err
	}
	if token == "" {
		return "", errors.New("provider returned an empty identity token")
	}

	b.mu.Lock()
	b.lastProvider = provider
	b.mu.Unlock()

	return token, nil
}
