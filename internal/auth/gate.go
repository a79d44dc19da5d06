// Package auth holds the process-wide "is logged in" state and the stored
// credential behind it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	serrors "github.com/strrl/split-specs-dashboard/internal/errors"
)

// Gate is the single source of truth for whether the user is signed in.
// The server stays the authority: the gate only decides which views are
// reachable and which token is sent.
type Gate struct {
	mu       sync.RWMutex
	store    TokenStore
	token    string
	loggedIn bool

	subsMu sync.Mutex
	subs   map[int]func(bool)
	nextID int

	logger zerolog.Logger
	now    func() time.Time
}

// Option customizes a Gate.
type Option func(*Gate)

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate initializes the gate from the persisted token. A stored JWT whose
// exp claim has passed is discarded.
func NewGate(ctx context.Context, store TokenStore, logger zerolog.Logger, opts ...Option) (*Gate, error) {
	g := &Gate{
		store:  store,
		subs:   make(map[int]func(bool)),
		logger: logger.With().Str("component", "auth").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	token, err := store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoToken):
		return g, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load stored token: %w", err)
	}

	if exp, ok := tokenExpiry(token); ok && !g.now().Before(exp) {
		g.logger.Info().Time("expired_at", exp).Msg("stored token expired, clearing")
		if err := store.Clear(ctx); err != nil {
			return nil, err
		}
		return g, nil
	}

	g.token = token
	g.loggedIn = true
	return g, nil
}

// tokenExpiry reads the exp claim without verifying the signature.
func tokenExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// LoggedIn reports the current state.
func (g *Gate) LoggedIn() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.loggedIn
}

// Token returns the current credential, empty when signed out.
func (g *Gate) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token
}

// SignIn persists token and flips the state to logged in.
func (g *Gate) SignIn(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("empty token: %w", serrors.ErrInvalidInput)
	}
	if err := g.store.Save(ctx, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	g.set(token, true)
	g.logger.Info().Msg("signed in")
	return nil
}

// SignOut clears the stored token and flips the state to logged out.
func (g *Gate) SignOut(ctx context.Context) error {
	err := g.store.Clear(ctx)
	g.set("", false)
	g.logger.Info().Msg("signed out")
	if err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// HandleError signs out when err is an access-denied failure and reports
// whether it did.
func (g *Gate) HandleError(ctx context.Context, err error) bool {
	if err == nil || !serrors.IsAccessDenied(err) {
		return false
	}
	g.logger.Warn().Err(err).Msg("access denied, forcing re-authentication")
	if clearErr := g.SignOut(ctx); clearErr != nil {
		g.logger.Error().Err(clearErr).Msg("failed to clear token after access denied")
	}
	return true
}

// Apply attaches the credential to an outgoing request. The server reads the
// raw token from the Authorization header.
func (g *Gate) Apply(req *http.Request) error {
	if token := g.Token(); token != "" {
		req.Header.Set("Authorization", token)
	}
	return nil
}

// Subscribe registers fn to be called with the new state after every change.
// The returned func removes the subscription.
func (g *Gate) Subscribe(fn func(loggedIn bool)) func() {
	g.subsMu.Lock()
	defer g.subsMu.Unlock()
	id := g.nextID
	g.nextID++
	g.subs[id] = fn
	return func() {
		g.subsMu.Lock()
		defer g.subsMu.Unlock()
		delete(g.subs, id)
	}
}

func (g *Gate) set(token string, loggedIn bool) {
	g.mu.Lock()
	changed := g.loggedIn != loggedIn
	g.token = token
	g.loggedIn = loggedIn
	g.mu.Unlock()

	if !changed {
		return
	}

	g.subsMu.Lock()
	subs := make([]func(bool), 0, len(g.subs))
	for _, fn := range g.subs {
		subs = append(subs, fn)
	}
	g.subsMu.Unlock()

	for _, fn := range subs {
		fn(loggedIn)
	}
}
