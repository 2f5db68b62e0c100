package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFlow struct {
	token string
	err   error
	calls []Provider
}

func (s *stubFlow) Authorize(_ context.Context, provider Provider) (string, error) {
	s.calls = append(s.calls, provider)
	return s.token, s.err
}

type stubResetter struct {
	resets []Provider
	err    error
}

func (s *stubResetter) Reset(provider Provider) error {
	s.resets = append(s.resets, provider)
	return s.err
}

func TestSignInReturnsIdentityToken(t *testing.T) {
	flow := &stubFlow{token: "idtok1"}
	b := NewBridge(flow, &stubResetter{})

	token, err := b.SignIn(context.Background(), ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "idtok1", token)
}

func TestSignInRejectsUnknownProvider(t *testing.T) {
	b := NewBridge(&stubFlow{token: "x"}, nil)
	_, err := b.SignIn(context.Background(), Provider("twitter"))
	assert.Error(t, err)
}

func TestCancelledFlowPropagatesAsUserCancelled(t *testing.T) {
	flow := &stubFlow{err: ErrUserCancelled}
	b := NewBridge(flow, &stubResetter{})

	_, err := b.SignIn(context.Background(), ProviderGoogle)
	assert.ErrorIs(t, err, ErrUserCancelled)
}

func TestContextCancellationResolvesAsUserCancelled(t *testing.T) {
	flow := &stubFlow{err: context.Canceled}
	b := NewBridge(flow, &stubResetter{})

	_, err := b.SignIn(context.Background(), ProviderGoogle)
	assert.ErrorIs(t, err, ErrUserCancelled)
}

func TestSwitchingProviderResetsCachedState(t *testing.T) {
	flow := &stubFlow{token: "idtok1"}
	resetter := &stubResetter{}
	b := NewBridge(flow, resetter)

	_, err := b.SignIn(context.Background(), ProviderGoogle)
	require.NoError(t, err)
	assert.Empty(t, resetter.resets, "first sign-in must not reset")

	_, err = b.SignIn(context.Background(), ProviderFacebook)
	require.NoError(t, err)
	assert.Equal(t, []Provider{ProviderFacebook}, resetter.resets)
}

func TestSameProviderDoesNotReset(t *testing.T) {
	flow := &stubFlow{token: "idtok1"}
	resetter := &stubResetter{}
	b := NewBridge(flow, resetter)

	_, _ = b.SignIn(context.Background(), ProviderGoogle)
	_, _ = b.SignIn(context.Background(), ProviderGoogle)

	assert.Empty(t, resetter.resets)
}

func TestFailedSignInDoesNotRecordProvider(t *testing.T) {
	flow := &stubFlow{err: errors.New("boom")}
	resetter := &stubResetter{}
	b := NewBridge(flow, resetter)

	_, err := b.SignIn(context.Background(), ProviderGoogle)
	require.Error(t, err)

	// the failed google attempt must not count as "last provider"
	flow.err = nil
	flow.token = "idtok2"
	_, err = b.SignIn(context.Background(), ProviderFacebook)
	require.NoError(t, err)
	assert.Empty(t, resetter.resets)
}

func TestEmptyIdentityTokenIsAnError(t *testing.T) {
	b := NewBridge(&stubFlow{token: ""}, nil)
	_, err := b.SignIn(context.Background(), ProviderGoogle)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserCancelled)
}
