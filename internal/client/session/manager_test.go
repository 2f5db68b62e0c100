package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipersmart/internal/client/bus"
	"pipersmart/internal/client/exchange"
	"pipersmart/internal/client/identity"
	"pipersmart/internal/client/router"
	"pipersmart/internal/client/store"
	"pipersmart/internal/domain"
)

type stubFlow struct {
	token string
	err   error
}

func (s *stubFlow) Authorize(context.Context, identity.Provider) (string, error) {
	return s.token, s.err
}

type noopResetter struct{}

func (noopResetter) Reset(identity.Provider) error { return nil }

type fixture struct {
	manager *Manager
	storage *store.MemoryStorage
	backend *httptest.Server
}

// newFixture spins up a fake backend and a manager wired to it. handler may
// be nil when the test never reaches the network.
func newFixture(t *testing.T, flow identity.Flow, handler http.Handler) *fixture {
	t.Helper()

	if handler == nil {
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unexpected request", http.StatusInternalServerError)
		})
	}
	backend := httptest.NewServer(handler)
	t.Cleanup(backend.Close)

	storage := store.NewMemoryStorage()
	manager := NewManager(Config{
		Store:      store.NewTokenStore(storage),
		Bridge:     identity.NewBridge(flow, noopResetter{}),
		Exchange:   exchange.NewClient(backend.URL, 5*time.Second),
		HTTPClient: &http.Client{},
	})

	return &fixture{manager: manager, storage: storage, backend: backend}
}

func loginHandler(t *testing.T, token, role string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login", "/api/auth/google", "/api/auth/facebook", "/api/auth/register":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"token":   token,
				"user": map[string]string{
					"_id": "u1", "name": "A", "email": "a@x.com", "role": role,
				},
			})
		default:
			http.NotFound(w, r)
		}
	})
}

func TestLoginLocalStandardUser(t *testing.T) {
	f := newFixture(t, &stubFlow{}, loginHandler(t, "t1", "user"))
	f.manager.Bootstrap()

	landing, err := f.manager.LoginLocal(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)

	assert.Equal(t, LandingHome, landing)
	assert.Equal(t, "t1", f.manager.Token())
	assert.Equal(t, router.TreeStandard, f.manager.Router().Current())
	assert.True(t, f.manager.IsAuthenticated())
	assert.False(t, f.manager.IsAdmin())

	stored, ok := store.NewTokenStore(f.storage).Read()
	require.True(t, ok)
	assert.Equal(t, "t1", stored.Token)
}

func TestLoginLocalAdminLandsOnDashboard(t *testing.T) {
	f := newFixture(t, &stubFlow{}, loginHandler(t, "t1", "admin"))
	f.manager.Bootstrap()

	landing, err := f.manager.LoginLocal(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)

	assert.Equal(t, LandingAdminDashboard, landing)
	assert.Equal(t, router.TreeAdmin, f.manager.Router().Current())
	assert.True(t, f.manager.IsAdmin())
}

func TestLoginLocalRejectedLeavesNoState(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Invalid credentials"})
	})
	f := newFixture(t, &stubFlow{}, handler)
	f.manager.Bootstrap()

	_, err := f.manager.LoginLocal(context.Background(), "a@x.com", "wrong")
	require.ErrorIs(t, err, exchange.ErrInvalidCredentials)
	assert.Equal(t, "Invalid credentials", err.Error())

	assert.Empty(t, f.manager.Token())
	_, ok := store.NewTokenStore(f.storage).Read()
	assert.False(t, ok)
}

func TestFederatedLoginWithoutSessionTokenIsRejected(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// backend answers 200 but mints no session token
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]string{"_id": "u1", "email": "a@x.com", "role": "user"},
		})
	})
	f := newFixture(t, &stubFlow{token: "idtok1"}, handler)
	f.manager.Bootstrap()

	before := f.manager.Router().Remounts()
	_, err := f.manager.LoginFederated(context.Background(), identity.ProviderGoogle)

	require.ErrorIs(t, err, exchange.ErrServerRejected)
	assert.Empty(t, f.manager.Token())
	assert.Equal(t, before, f.manager.Router().Remounts(), "no navigation change")
	_, ok := store.NewTokenStore(f.storage).Read()
	assert.False(t, ok)
}

func TestCancelledFederatedLoginIsSilent(t *testing.T) {
	f := newFixture(t, &stubFlow{err: identity.ErrUserCancelled}, nil)
	f.manager.Bootstrap()

	var events []bus.Event
	f.manager.Subscribe(func(e bus.Event) { events = append(events, e) })

	_, err := f.manager.LoginFederated(context.Background(), identity.ProviderGoogle)

	assert.ErrorIs(t, err, identity.ErrUserCancelled)
	assert.Empty(t, events, "no auth-change events on cancel")
	assert.Empty(t, f.manager.Token())
	_, ok := store.NewTokenStore(f.storage).Read()
	assert.False(t, ok)
}

func TestLogoutPublishesOnceAndSecondIsNoop(t *testing.T) {
	f := newFixture(t, &stubFlow{}, loginHandler(t, "t1", "user"))
	f.manager.Bootstrap()

	_, err := f.manager.LoginLocal(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)

	var nullEvents int
	f.manager.Subscribe(func(e bus.Event) {
		if e.User == nil {
			nullEvents++
		}
	})

	require.NoError(t, f.manager.Logout())
	require.NoError(t, f.manager.Logout())

	assert.Equal(t, 1, nullEvents)
	assert.False(t, f.manager.IsAuthenticated())
	assert.Equal(t, router.TreeStandard, f.manager.Router().Current())
	_, ok := store.NewTokenStore(f.storage).Read()
	assert.False(t, ok)
}

func TestOutgoingRequestsCarryCurrentToken(t *testing.T) {
	var authHeaders []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/login" {
			loginHandler(t, "t1", "user").ServeHTTP(w, r)
			return
		}
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
	})
	f := newFixture(t, &stubFlow{}, handler)
	f.manager.Bootstrap()

	_, err := f.manager.LoginLocal(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)

	resp, err := f.manager.HTTPClient().Get(f.backend.URL + "/api/notes")
	require.NoError(t, err)
	resp.Body.Close()

	require.NoError(t, f.manager.Logout())

	resp, err = f.manager.HTTPClient().Get(f.backend.URL + "/api/notes")
	require.NoError(t, err)
	resp.Body.Close()

	require.Len(t, authHeaders, 2)
	assert.Equal(t, "Bearer t1", authHeaders[0])
	assert.Empty(t, authHeaders[1], "no bearer header after logout")
}

func TestBootstrapRestoresPersistedSession(t *testing.T) {
	f := newFixture(t, &stubFlow{}, nil)
	require.NoError(t, store.NewTokenStore(f.storage).Save(domain.Session{
		Token: "t9",
		User:  domain.Summary{ID: "u9", Email: "a@x.com", Role: domain.RoleAdmin},
	}))

	assert.Equal(t, router.TreeNone, f.manager.Router().Current(), "nothing mounts before bootstrap")

	f.manager.Bootstrap()

	assert.Equal(t, "t9", f.manager.Token())
	assert.Equal(t, router.TreeAdmin, f.manager.Router().Current())
}

func TestBootstrapWithEmptyStoreMountsStandardTree(t *testing.T) {
	f := newFixture(t, &stubFlow{}, nil)
	f.manager.Bootstrap()

	assert.False(t, f.manager.IsAuthenticated())
	assert.Equal(t, router.TreeStandard, f.manager.Router().Current())
}

func TestStaleLoginAttemptIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)

		token := "t-fast"
		if req["email"] == "slow@x.com" {
			<-release
			token = "t-slow"
		}

		mu.Lock()
		defer mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": token,
			"user":  map[string]string{"_id": "u1", "email": req["email"], "role": "user"},
		})
	})
	f := newFixture(t, &stubFlow{}, handler)
	f.manager.Bootstrap()

	type outcome struct {
		landing Landing
		err     error
	}
	slowDone := make(chan outcome, 1)
	go func() {
		landing, err := f.manager.LoginLocal(context.Background(), "slow@x.com", "pw")
		slowDone <- outcome{landing, err}
	}()

	// let the slow attempt reach the backend before starting the retry
	time.Sleep(50 * time.Millisecond)

	_, err := f.manager.LoginLocal(context.Background(), "fast@x.com", "pw")
	require.NoError(t, err)
	require.Equal(t, "t-fast", f.manager.Token())

	close(release)
	res := <-slowDone

	assert.ErrorIs(t, res.err, ErrSuperseded)
	assert.Equal(t, "t-fast", f.manager.Token(), "stale result must not overwrite the newer session")

	stored, ok := store.NewTokenStore(f.storage).Read()
	require.True(t, ok)
	assert.Equal(t, "t-fast", stored.Token)
}

func TestAuthChangeEventCarriesUser(t *testing.T) {
	f := newFixture(t, &stubFlow{}, loginHandler(t, "t1", "user"))
	f.manager.Bootstrap()

	var events []bus.Event
	unsub := f.manager.Subscribe(func(e bus.Event) { events = append(events, e) })
	defer unsub()

	_, err := f.manager.LoginLocal(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)

	require.Len(t, events, 1)
	require.NotNil(t, events[0].User)
	assert.Equal(t, "a@x.com", events[0].User.Email)
}
