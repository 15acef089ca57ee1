// Package auth owns the elevated bearer credential required for
// schema-mutating datastore operations: acquisition, caching, buffer-window
// refresh, and 401-triggered invalidation. The token lifecycle is an
// explicit four-state machine (Empty, Valid, NearExpiry, Expired) with one
// transition function instead of scattered expiry comparisons.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/timmy/gridport/internal/domain"
	"github.com/timmy/gridport/internal/logger"
)

// Authenticator performs the network authentication call. The datastore
// client implements it.
type Authenticator interface {
	Authenticate(ctx context.Context) (token string, expiresAt time.Time, err error)
}

// State is the token lifecycle state.
type State int

const (
	StateEmpty State = iota
	StateValid
	StateNearExpiry
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateValid:
		return "valid"
	case StateNearExpiry:
		return "near_expiry"
	case StateExpired:
		return "expired"
	}
	return "unknown"
}

// refreshResult is the shared outcome of one in-flight authentication call.
type refreshResult struct {
	done  chan struct{}
	token string
	err   error
}

// Manager caches the bearer credential and coalesces refreshes so
// concurrent callers never trigger redundant authentication calls.
type Manager struct {
	authenticator      Authenticator
	bufferWindow       time.Duration
	minRefreshInterval time.Duration

	mu          sync.Mutex
	token       string
	expiresAt   time.Time
	lastRefresh time.Time
	inflight    *refreshResult

	now func() time.Time // injectable for tests
}

// Options tune the manager; zero values pick defaults.
type Options struct {
	BufferWindow       time.Duration
	MinRefreshInterval time.Duration
}

// NewManager creates a credential manager around an authenticator.
func NewManager(authenticator Authenticator, opts Options) *Manager {
	if opts.BufferWindow <= 0 {
		opts.BufferWindow = 10 * time.Minute
	}
	if opts.MinRefreshInterval <= 0 {
		opts.MinRefreshInterval = 30 * time.Second
	}
	return &Manager{
		authenticator:      authenticator,
		bufferWindow:       opts.BufferWindow,
		minRefreshInterval: opts.MinRefreshInterval,
		now:                time.Now,
	}
}

// stateLocked computes the lifecycle state. Callers hold mu.
func (m *Manager) stateLocked() State {
	switch {
	case m.token == "":
		return StateEmpty
	case m.now().After(m.expiresAt):
		return StateExpired
	case m.now().After(m.expiresAt.Add(-m.bufferWindow)):
		return StateNearExpiry
	default:
		return StateValid
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// GetToken returns a usable bearer credential. Valid and NearExpiry states
// return the cached value with no I/O; Empty and Expired perform the
// authentication call.
func (m *Manager) GetToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	switch m.stateLocked() {
	case StateValid, StateNearExpiry:
		token := m.token
		m.mu.Unlock()
		return token, nil
	}
	return m.refreshLocked(ctx)
}

// EnsureFresh returns a credential good for a long operation, refreshing
// proactively when the cached one is inside the buffer window.
func (m *Manager) EnsureFresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.stateLocked() == StateValid {
		token := m.token
		m.mu.Unlock()
		return token, nil
	}
	return m.refreshLocked(ctx)
}

// Invalidate drops the cached credential, transitioning to Empty. Called on
// a 401 from any downstream operation.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiresAt = time.Time{}
}

// refreshLocked performs (or joins) a single-flight refresh. Entered with mu
// held; returns with mu released.
func (m *Manager) refreshLocked(ctx context.Context) (string, error) {
	// Join an in-flight refresh instead of issuing another call.
	if m.inflight != nil {
		res := m.inflight
		m.mu.Unlock()
		select {
		case <-res.done:
			return res.token, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	// A refresh that just completed satisfies too-soon callers.
	if m.token != "" && m.now().Sub(m.lastRefresh) < m.minRefreshInterval {
		token := m.token
		m.mu.Unlock()
		return token, nil
	}

	res := &refreshResult{done: make(chan struct{})}
	m.inflight = res
	m.mu.Unlock()

	token, expiresAt, err := m.authenticator.Authenticate(ctx)

	m.mu.Lock()
	m.inflight = nil
	if err == nil {
		m.token = token
		m.expiresAt = expiresAt
		m.lastRefresh = m.now()
	} else {
		m.token = ""
		m.expiresAt = time.Time{}
		logger.CtxWarn(ctx, "Credential refresh failed: %v", err)
	}
	m.mu.Unlock()

	res.token = token
	res.err = err
	close(res.done)
	return token, err
}

// WithRetry runs call with a bearer credential, retrying exactly once on a
// 401 after invalidating the cache. A second 401 is terminal for the call.
func (m *Manager) WithRetry(ctx context.Context, call func(token string) error) error {
	token, err := m.GetToken(ctx)
	if err != nil {
		return err
	}
	err = call(token)
	if err == nil || !isUnauthorized(err) {
		return err
	}

	logger.CtxInfo(ctx, "Downstream call returned 401, refreshing credential and retrying once")
	m.Invalidate()
	token, refreshErr := m.GetToken(ctx)
	if refreshErr != nil {
		return refreshErr
	}
	err = call(token)
	if err != nil && isUnauthorized(err) {
		return &domain.AuthenticationError{Status: 401, Message: "still unauthorized after credential refresh"}
	}
	return err
}
