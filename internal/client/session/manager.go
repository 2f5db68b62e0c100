// Package session owns the device's authentication state: how sessions are
// acquired, persisted, propagated onto the HTTP client, and observed.
//
// Within one login attempt the ordering is fixed: the token store write
// completes before the transport adopts the token and before any routing
// happens. Across overlapping attempts only the latest-initiated attempt
// may commit; earlier completions are discarded via a generation counter.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"pipersmart/internal/client/bus"
	"pipersmart/internal/client/exchange"
	"pipersmart/internal/client/identity"
	"pipersmart/internal/client/router"
	"pipersmart/internal/client/store"
	"pipersmart/internal/client/transport"
	"pipersmart/internal/domain"
)

// Landing names the surface a successful login routes to.
type Landing string

const (
	LandingHome           Landing = "home"
	LandingAdminDashboard Landing = "admin-dashboard"
)

// ErrSuperseded means a newer login attempt started while this one was in
// flight; its result was discarded without touching any state.
var ErrSuperseded = errors.New("login attempt superseded")

// Manager is the single owner of session state. All other components
// observe or affect it only through the exported methods here.
type Manager struct {
	store    *store.TokenStore
	bridge   *identity.Bridge
	exchange *exchange.Client
	bus      *bus.Bus
	router   *router.Router
	logger   logrus.FieldLogger

	httpClient *http.Client

	mu      sync.Mutex
	current *domain.Session
	booted  bool
	gen     uint64
}

// Config assembles a Manager. HTTPClient is the shared client the rest of
// the application issues requests with; the manager installs its bearer
// transport on it.
type Config struct {
	Store      *store.TokenStore
	Bridge     *identity.Bridge
	Exchange   *exchange.Client
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	m := &Manager{
		store:      cfg.Store,
		bridge:     cfg.Bridge,
		exchange:   cfg.Exchange,
		bus:        bus.New(),
		router:     router.New(),
		logger:     logger,
		httpClient: client,
	}

	transport.Install(client, transport.TokenFunc(m.Token), logger)
	return m
}

// Bootstrap reads the persisted session and mounts the matching navigation
// tree. Until it runs the router stays unmounted and renders nothing.
func (m *Manager) Bootstrap() {
	session, ok := m.store.Read()

	m.mu.Lock()
	m.booted = true
	if ok {
		m.current = &session
	}
	m.mu.Unlock()

	if ok {
		user := session.User
		m.router.Apply(&user)
	} else {
		m.router.Apply(nil)
	}
}

// LoginLocal exchanges email/password for a session and commits it.
func (m *Manager) LoginLocal(ctx context.Context, email, password string) (Landing, error) {
	gen := m.beginAttempt()

	session, err := m.exchange.LoginLocal(ctx, email, password)
	if err != nil {
		return "", err
	}

	return m.commit(gen, session)
}

// Register creates a local account and commits its first session.
func (m *Manager) Register(ctx context.Context, name, email, password string) (Landing, error) {
	gen := m.beginAttempt()

	session, err := m.exchange.Register(ctx, name, email, password)
	if err != nil {
		return "", err
	}

	return m.commit(gen, session)
}

// LoginFederated runs the provider consent flow, exchanges the identity
// token at the backend, and commits the resulting session. A cancelled
// consent flow returns identity.ErrUserCancelled with no state change.
func (m *Manager) LoginFederated(ctx context.Context, provider identity.Provider) (Landing, error) {
	gen := m.beginAttempt()

	idToken, err := m.bridge.SignIn(ctx, provider)
	if err != nil {
		return "", err
	}

	session, err := m.exchange.LoginFederated(ctx, provider, idToken)
	if err != nil {
		return "", err
	}

	return m.commit(gen, session)
}

func (m *Manager) beginAttempt() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	return m.gen
}

// commit persists and adopts a freshly exchanged session, unless a newer
// attempt has started since gen was issued.
func (m *Manager) commit(gen uint64, session domain.Session) (Landing, error) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.logger.WithField("email", session.User.Email).Info("discarding superseded login result")
		return "", ErrSuperseded
	}

	if err := m.store.Save(session); err != nil {
		m.mu.Unlock()
		return "", err
	}
	m.current = &session
	m.booted = true
	m.mu.Unlock()

	user := session.User
	m.bus.Publish(&user)
	m.router.Apply(&user)

	if session.User.Role == domain.RoleAdmin {
		return LandingAdminDashboard, nil
	}
	return LandingHome, nil
}

// Logout clears the stored session. Logging out when already logged out is
// a no-op and publishes nothing.
func (m *Manager) Logout() error {
	m.mu.Lock()
	wasActive := m.current != nil
	m.current = nil
	m.gen++ // invalidate any in-flight login attempt
	err := m.store.Clear()
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if wasActive {
		m.bus.Publish(nil)
		m.router.Apply(nil)
	}
	return nil
}

// Token returns the active session token, or "". The bearer transport
// reads through this on every outgoing request.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.Token
}

// User returns the identity snapshot captured at login, or nil.
func (m *Manager) User() *domain.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	user := m.current.User
	return &user
}

func (m *Manager) IsAuthenticated() bool {
	return m.Token() != ""
}

func (m *Manager) IsAdmin() bool {
	user := m.User()
	return user != nil && user.Role == domain.RoleAdmin
}

// Subscribe registers an auth-change observer. Events are delivered
// synchronously; late subscribers do not see earlier events.
func (m *Manager) Subscribe(cb bus.Callback) bus.Unsubscribe {
	return m.bus.Subscribe(cb)
}

// Router exposes the navigation state machine for the frontend shell.
func (m *Manager) Router() *router.Router {
	return m.router
}

// HTTPClient returns the shared client carrying the bearer transport.
func (m *Manager) HTTPClient() *http.Client {
	return m.httpClient
}
