package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainauth "hostelfinder/internal/domain/auth"
	domainprofile "hostelfinder/internal/domain/profile"
	domainuser "hostelfinder/internal/domain/user"
)

var ErrLookupFailed = errors.New("guard: session lookup failed")

type Outcome string

const (
	Pending Outcome = "pending"
	Denied  Outcome = "denied"
	Granted Outcome = "granted"
)

// Decision is the result of one guard evaluation. A denied decision either
// carries a Redirect target or, for lookup failures on admin routes, an Err
// with Retryable set and no redirect. Granted decisions carry the session's
// ExpiresAt.
type Decision struct {
	Outcome   Outcome
	Redirect  string
	Err       error
	Retryable bool
	UserID    domainuser.ID
	ExpiresAt time.Time
}

func (d Decision) Granted() bool { return d.Outcome == Granted }

func (d Decision) same(other Decision) bool {
	return d.Outcome == other.Outcome &&
		d.Redirect == other.Redirect &&
		d.Retryable == other.Retryable &&
		d.UserID == other.UserID
}

// SessionSource answers "who holds this token" and streams session changes.
// CurrentSession returns (nil, nil) when the token has no live session.
type SessionSource interface {
	CurrentSession(ctx context.Context, token string) (*domainauth.Session, error)
	Subscribe(ctx context.Context) (<-chan domainauth.SessionEvent, func(), error)
}

type Guard struct {
	Sessions SessionSource
	Profiles domainprofile.Repository
	// Admin additionally requires the session's profile to carry the admin flag.
	Admin     bool
	LoginPath string
	HomePath  string
	Logger    *slog.Logger
}

func (g *Guard) Evaluate(ctx context.Context, token string) Decision {
	if g.Sessions == nil {
		return g.lookupFailed(errors.New("session source not configured"), "")
	}
	session, err := g.Sessions.CurrentSession(ctx, token)
	if err != nil {
		if g.Admin {
			return g.lookupFailed(err, "")
		}
		g.log(ctx, "session lookup failed, treating as signed out", err)
		return g.deny(g.loginPath(), "")
	}
	if session == nil {
		return g.deny(g.loginPath(), "")
	}
	if !g.Admin {
		return g.grant(session)
	}

	if g.Profiles == nil {
		return g.lookupFailed(errors.New("profile repository not configured"), session.UserID)
	}
	profile, err := g.Profiles.ByUserID(ctx, session.UserID)
	switch {
	case errors.Is(err, domainprofile.ErrNotFound):
		return g.deny(g.homePath(), session.UserID)
	case err != nil:
		return g.lookupFailed(err, session.UserID)
	case !profile.IsAdmin:
		return g.deny(g.homePath(), session.UserID)
	default:
		return g.grant(session)
	}
}

// Watch emits Pending, then the first evaluation, then a new decision each
// time a session change for this token or its user alters the outcome. A
// granted session is re-evaluated when it reaches ExpiresAt. The channel is
// closed once stop is called or ctx is done.
func (g *Guard) Watch(ctx context.Context, token string) (<-chan Decision, func()) {
	ctx, cancel := context.WithCancel(ctx)
	var once sync.Once
	stop := func() { once.Do(cancel) }

	out := make(chan Decision, 1)
	var (
		events      <-chan domainauth.SessionEvent
		unsubscribe func()
		subErr      error
	)
	if g.Sessions != nil {
		events, unsubscribe, subErr = g.Sessions.Subscribe(ctx)
	}

	go func() {
		defer close(out)
		if unsubscribe != nil {
			defer unsubscribe()
		}
		if !emit(ctx, out, Decision{Outcome: Pending}) {
			return
		}
		current := g.Evaluate(ctx, token)
		if !emit(ctx, out, current) {
			return
		}
		if subErr != nil {
			g.log(ctx, "session subscription unavailable, only expiry will refresh the decision", subErr)
		}

		expiry := newExpiryTimer()
		defer expiry.stop()
		expiry.arm(current)
		for {
			var next Decision
			select {
			case <-ctx.Done():
				return
			case <-expiry.C():
				next = g.Evaluate(ctx, token)
			case ev, ok := <-events:
				if !ok {
					if ctx.Err() != nil {
						return
					}
					g.log(ctx, "session subscription closed", nil)
					emit(ctx, out, g.detached(current))
					return
				}
				if !g.concerns(ev, token, current) {
					continue
				}
				next = g.react(ctx, ev, token)
			}
			expiry.arm(next)
			if next.same(current) {
				continue
			}
			current = next
			if !emit(ctx, out, current) {
				return
			}
		}
	}()
	return out, stop
}

func (g *Guard) concerns(ev domainauth.SessionEvent, token string, current Decision) bool {
	if token != "" && string(ev.Token) == token {
		return true
	}
	return current.UserID != "" && ev.UserID == current.UserID
}

// react denies immediately when the watched token itself ended; anything else
// is re-evaluated against the session source.
func (g *Guard) react(ctx context.Context, ev domainauth.SessionEvent, token string) Decision {
	if string(ev.Token) == token && ev.Kind != domainauth.SessionSignedIn {
		return g.deny(g.loginPath(), "")
	}
	return g.Evaluate(ctx, token)
}

// expiryTimer fires when the current granted session reaches its expiry.
type expiryTimer struct {
	timer *time.Timer
}

func newExpiryTimer() *expiryTimer { return &expiryTimer{} }

func (e *expiryTimer) arm(d Decision) {
	e.stop()
	if d.Granted() && !d.ExpiresAt.IsZero() {
		e.timer = time.NewTimer(time.Until(d.ExpiresAt))
	}
}

func (e *expiryTimer) stop() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// C is nil while disarmed, which blocks forever in a select.
func (e *expiryTimer) C() <-chan time.Time {
	if e.timer == nil {
		return nil
	}
	return e.timer.C
}

func (g *Guard) grant(session *domainauth.Session) Decision {
	return Decision{Outcome: Granted, UserID: session.UserID, ExpiresAt: session.ExpiresAt}
}

// detached is the last decision sent when session events stop arriving: the
// outcome can no longer be tracked, so the client is told to retry.
func (g *Guard) detached(current Decision) Decision {
	return Decision{
		Outcome:   Denied,
		Err:       fmt.Errorf("%w: session event stream closed", ErrLookupFailed),
		Retryable: true,
		UserID:    current.UserID,
	}
}

func emit(ctx context.Context, out chan<- Decision, d Decision) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- d:
		return true
	}
}

func (g *Guard) deny(redirect string, userID domainuser.ID) Decision {
	return Decision{Outcome: Denied, Redirect: redirect, UserID: userID}
}

func (g *Guard) lookupFailed(err error, userID domainuser.ID) Decision {
	return Decision{
		Outcome:   Denied,
		Err:       fmt.Errorf("%w: %w", ErrLookupFailed, err),
		Retryable: true,
		UserID:    userID,
	}
}

func (g *Guard) loginPath() string {
	if g.LoginPath != "" {
		return g.LoginPath
	}
	return "/login"
}

func (g *Guard) homePath() string {
	if g.HomePath != "" {
		return g.HomePath
	}
	return "/"
}

func (g *Guard) log(ctx context.Context, msg string, err error) {
	if g.Logger == nil {
		return
	}
	g.Logger.WarnContext(ctx, msg, "admin", g.Admin, "error", err)
}
