package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/timmy/gridport/internal/datastore"
	"github.com/timmy/gridport/internal/domain"
)

// fakeAuthenticator counts calls and hands out tokens with a fixed lifetime.
type fakeAuthenticator struct {
	calls    int64
	lifetime time.Duration
	err      error
	delay    time.Duration
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context) (string, time.Time, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return "token", time.Now().Add(f.lifetime), nil
}

func newTestManager(fa *fakeAuthenticator) *Manager {
	return NewManager(fa, Options{
		BufferWindow:       5 * time.Minute,
		MinRefreshInterval: 30 * time.Second,
	})
}

func TestGetTokenCachesWhileValid(t *testing.T) {
	fa := &fakeAuthenticator{lifetime: time.Hour}
	m := newTestManager(fa)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := m.GetToken(ctx); err != nil {
			t.Fatalf("GetToken: %v", err)
		}
	}
	if got := atomic.LoadInt64(&fa.calls); got != 1 {
		t.Errorf("authenticate calls = %d, want 1", got)
	}
	if m.State() != StateValid {
		t.Errorf("state = %v, want valid", m.State())
	}
}

func TestEnsureFreshRefreshesInsideBufferWindow(t *testing.T) {
	fa := &fakeAuthenticator{lifetime: time.Hour}
	m := newTestManager(fa)
	ctx := context.Background()

	if _, err := m.GetToken(ctx); err != nil {
		t.Fatalf("GetToken: %v", err)
	}

	// Rewind the cached expiry to 2 minutes out; with a 5 minute buffer the
	// state is NearExpiry and EnsureFresh must refresh exactly once.
	m.mu.Lock()
	m.expiresAt = time.Now().Add(2 * time.Minute)
	m.lastRefresh = time.Now().Add(-time.Minute)
	m.mu.Unlock()

	if m.State() != StateNearExpiry {
		t.Fatalf("state = %v, want near_expiry", m.State())
	}
	// GetToken in NearExpiry still serves the cached value without I/O.
	before := atomic.LoadInt64(&fa.calls)
	if _, err := m.GetToken(ctx); err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if atomic.LoadInt64(&fa.calls) != before {
		t.Error("GetToken in NearExpiry performed I/O")
	}

	if _, err := m.EnsureFresh(ctx); err != nil {
		t.Fatalf("EnsureFresh: %v", err)
	}
	if got := atomic.LoadInt64(&fa.calls); got != before+1 {
		t.Errorf("authenticate calls = %d, want %d", got, before+1)
	}
}

func TestConcurrentRefreshIsSingleFlight(t *testing.T) {
	fa := &fakeAuthenticator{lifetime: time.Hour, delay: 50 * time.Millisecond}
	m := newTestManager(fa)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.GetToken(ctx); err != nil {
				t.Errorf("GetToken: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&fa.calls); got != 1 {
		t.Errorf("authenticate calls = %d, want 1 (single flight)", got)
	}
}

func TestTooSoonRefreshReusesResult(t *testing.T) {
	fa := &fakeAuthenticator{lifetime: time.Minute} // always inside 5m buffer
	m := newTestManager(fa)
	ctx := context.Background()

	if _, err := m.EnsureFresh(ctx); err != nil {
		t.Fatalf("EnsureFresh: %v", err)
	}
	// Immediately asking again is inside the minimum refresh interval; the
	// caller reuses the fresh result instead of authenticating again.
	if _, err := m.EnsureFresh(ctx); err != nil {
		t.Fatalf("EnsureFresh: %v", err)
	}
	if got := atomic.LoadInt64(&fa.calls); got != 1 {
		t.Errorf("authenticate calls = %d, want 1 (coalesced)", got)
	}
}

func TestInvalidateForcesReauthentication(t *testing.T) {
	fa := &fakeAuthenticator{lifetime: time.Hour}
	m := NewManager(fa, Options{BufferWindow: 5 * time.Minute, MinRefreshInterval: time.Nanosecond})
	ctx := context.Background()

	if _, err := m.GetToken(ctx); err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	m.Invalidate()
	if m.State() != StateEmpty {
		t.Fatalf("state after invalidate = %v, want empty", m.State())
	}
	if _, err := m.GetToken(ctx); err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if got := atomic.LoadInt64(&fa.calls); got != 2 {
		t.Errorf("authenticate calls = %d, want 2", got)
	}
}

func TestAuthenticationFailureSurfaces(t *testing.T) {
	fa := &fakeAuthenticator{err: &domain.AuthenticationError{Status: 403, Message: "bad credentials"}}
	m := newTestManager(fa)

	_, err := m.GetToken(context.Background())
	var authErr *domain.AuthenticationError
	if !errors.As(err, &authErr) || authErr.Status != 403 {
		t.Fatalf("err = %v, want AuthenticationError with status 403", err)
	}
	if m.State() != StateEmpty {
		t.Errorf("state after failed refresh = %v, want empty", m.State())
	}
}

func TestWithRetryOn401(t *testing.T) {
	fa := &fakeAuthenticator{lifetime: time.Hour}
	m := NewManager(fa, Options{BufferWindow: 5 * time.Minute, MinRefreshInterval: time.Nanosecond})
	ctx := context.Background()

	calls := 0
	err := m.WithRetry(ctx, func(token string) error {
		calls++
		if calls == 1 {
			return &datastore.APIError{Status: 401, Body: "expired"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if calls != 2 {
		t.Errorf("call count = %d, want 2 (one retry)", calls)
	}
	if got := atomic.LoadInt64(&fa.calls); got != 2 {
		t.Errorf("authenticate calls = %d, want 2 (initial + post-invalidate)", got)
	}
}

func TestWithRetrySecond401IsTerminal(t *testing.T) {
	fa := &fakeAuthenticator{lifetime: time.Hour}
	m := NewManager(fa, Options{BufferWindow: 5 * time.Minute, MinRefreshInterval: time.Nanosecond})

	calls := 0
	err := m.WithRetry(context.Background(), func(token string) error {
		calls++
		return &datastore.APIError{Status: 401, Body: "nope"}
	})
	var authErr *domain.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want terminal AuthenticationError", err)
	}
	if calls != 2 {
		t.Errorf("call count = %d, want exactly 2", calls)
	}
}
