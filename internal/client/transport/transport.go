// Package transport attaches the current session token to outgoing requests
// and watches responses for authorization failures.
//
// The bearer state is not ambient: the transport is an explicit
// http.RoundTripper installed on a client the caller owns, and it reads the
// token through an injected TokenSource on every request.
package transport

import (
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
)

// TokenSource yields the session token to attach, or "" for none.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Bearer injects `Authorization: Bearer <token>` on every request whose
// source currently holds a token, and logs any 401 response it observes.
//
// A 401 is returned to the caller unchanged: the transport never logs the
// session out or retries on its own. Callers that want teardown semantics
// set OnUnauthorized.
type Bearer struct {
	Base   http.RoundTripper
	Source TokenSource
	Logger logrus.FieldLogger

	// OnUnauthorized, if set, runs after a 401 is logged, before the
	// response is returned.
	OnUnauthorized func(req *http.Request)
}

func (b *Bearer) RoundTrip(req *http.Request) (*http.Response, error) {
	base := b.Base
	if base == nil {
		base = http.DefaultTransport
	}

	hadToken := false
	if b.Source != nil {
		if tok := b.Source.Token(); tok != "" {
			// clone: RoundTrippers must not mutate the caller's request
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", "Bearer "+tok)
			hadToken = true
		}
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if b.Logger != nil {
			b.Logger.WithFields(logrus.Fields{
				"method":       req.Method,
				"url":          req.URL.Redacted(),
				"bearer_token": hadToken,
			}).Warn("request was rejected as unauthorized")
		}
		if b.OnUnauthorized != nil {
			b.OnUnauthorized(req)
		}
	}

	return resp, nil
}

var installMu sync.Mutex

// Install wraps client's transport with a Bearer bound to source. Installing
// twice on the same client is a no-op re-bind, never a double wrap.
func Install(client *http.Client, source TokenSource, logger logrus.FieldLogger) *Bearer {
	installMu.Lock()
	defer installMu.Unlock()

	if existing, ok := client.Transport.(*Bearer); ok {
		existing.Source = source
		existing.Logger = logger
		return existing
	}

	b := &Bearer{
		Base:   client.Transport,
		Source: source,
		Logger: logger,
	}
	client.Transport = b
	return b
}
