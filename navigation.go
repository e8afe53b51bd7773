package authflow

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Destination names a place the shell can navigate to. Controllers never
// navigate themselves; they hand one of these to the caller.
type Destination string

const (
	DestinationHome          Destination = "/"
	DestinationLogin         Destination = "/login"
	DestinationResetPassword Destination = "/reset-password"
	DestinationHosts         Destination = "/hosts"
)

// Navigation is an explicit action object returned by a controller and
// interpreted by the calling shell.
type Navigation struct {
	Destination Destination `json:"destination"`
	Replace     bool        `json:"replace"`
}

// NavigateTo builds a history-replacing navigation, the only kind the
// auth flows issue.
func NavigateTo(dest Destination) Navigation {
	return Navigation{Destination: dest, Replace: true}
}

// TokenParam is the query parameter carrying verification and reset
// tokens on incoming navigation targets.
const TokenParam = "token"

// TokenFromTarget extracts the trimmed token from the incoming navigation
// target's query parameters. Absence is a value, not an error.
func TokenFromTarget(target *url.URL) string {
	if target == nil {
		return ""
	}
	return strings.TrimSpace(target.Query().Get(TokenParam))
}

// GuardOption customizes the route guard.
type GuardOption func(*Guard)

// WithGuardLogger overrides the guard logger.
func WithGuardLogger(logger Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGuardActivitySink sets the sink receiving logout events.
func WithGuardActivitySink(sink ActivitySink) GuardOption {
	return func(g *Guard) {
		g.activity = normalizeActivitySink(sink)
	}
}

// WithGuardClock injects a custom clock (useful for tests).
func WithGuardClock(clock func() time.Time) GuardOption {
	return func(g *Guard) {
		if clock != nil {
			g.now = clock
		}
	}
}

// Guard is the boolean check gating the shell's protected routes. It reads
// the session store and never mutates it except through Logout.
type Guard struct {
	sessions *SessionStore
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

// NewGuard returns a guard over the shared session store.
func NewGuard(sessions *SessionStore, opts ...GuardOption) *Guard {
	g := &Guard{
		sessions: sessions,
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Authenticated reports whether a live session token is stored. Tokens
// are opaque; when one happens to be a parseable JWT its exp claim is
// honored, anything else passes on presence alone.
func (g *Guard) Authenticated() bool {
	token, ok := g.sessions.Get()
	if !ok || token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}

	if !exp.After(g.now()) {
		g.logger.Debug("stored session token is expired")
		return false
	}

	return true
}

// Redirect is the navigation the shell performs when the guard rejects.
func (g *Guard) Redirect() Navigation {
	return NavigateTo(DestinationLogin)
}

// Logout clears the stored session.
func (g *Guard) Logout(ctx context.Context) error {
	if err := g.sessions.Clear(); err != nil {
		return err
	}

	recordActivity(ctx, g.activity, g.logger, ActivityEvent{
		EventType: ActivityEventSessionCleared,
	})

	return nil
}
