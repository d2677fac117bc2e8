package guard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "hostelfinder/internal/domain/auth"
	domainprofile "hostelfinder/internal/domain/profile"
	domainuser "hostelfinder/internal/domain/user"
)

var errTransport = errors.New("connection reset")

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*domainauth.Session
	err      error
	events   chan domainauth.SessionEvent
	released chan struct{}
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		sessions: map[string]*domainauth.Session{},
		events:   make(chan domainauth.SessionEvent, 8),
		released: make(chan struct{}),
	}
}

func (f *fakeSessions) put(token string, userID domainuser.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[token] = &domainauth.Session{Token: domainauth.Token(token), UserID: userID}
}

func (f *fakeSessions) putUntil(token string, userID domainuser.ID, expiresAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[token] = &domainauth.Session{Token: domainauth.Token(token), UserID: userID, ExpiresAt: expiresAt}
}

func (f *fakeSessions) drop(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
}

func (f *fakeSessions) CurrentSession(ctx context.Context, token string) (*domainauth.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	session := f.sessions[token]
	if session != nil && !session.ExpiresAt.IsZero() && session.Expired(time.Now()) {
		delete(f.sessions, token)
		return nil, nil
	}
	return session, nil
}

func (f *fakeSessions) Subscribe(ctx context.Context) (<-chan domainauth.SessionEvent, func(), error) {
	var once sync.Once
	return f.events, func() { once.Do(func() { close(f.released) }) }, nil
}

type fakeProfiles struct {
	profiles map[domainuser.ID]*domainprofile.Profile
	err      error
}

func (f *fakeProfiles) ByUserID(ctx context.Context, id domainuser.ID) (*domainprofile.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, domainprofile.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) Save(ctx context.Context, p *domainprofile.Profile) error {
	f.profiles[p.UserID] = p
	return nil
}

func adminGuard(sessions SessionSource, profiles domainprofile.Repository) *Guard {
	return &Guard{Sessions: sessions, Profiles: profiles, Admin: true, LoginPath: "/login", HomePath: "/"}
}

func TestAdminGuard_Scenarios(t *testing.T) {
	sessions := newFakeSessions()
	sessions.put("admin-token", "u-admin")
	sessions.put("user-token", "u-plain")
	profiles := &fakeProfiles{profiles: map[domainuser.ID]*domainprofile.Profile{
		"u-admin": {UserID: "u-admin", IsAdmin: true},
		"u-plain": {UserID: "u-plain", IsAdmin: false},
	}}
	g := adminGuard(sessions, profiles)
	ctx := context.Background()

	noSession := g.Evaluate(ctx, "")
	assert.Equal(t, Denied, noSession.Outcome)
	assert.Equal(t, "/login", noSession.Redirect)
	assert.False(t, noSession.Retryable)

	notAdmin := g.Evaluate(ctx, "user-token")
	assert.Equal(t, Denied, notAdmin.Outcome)
	assert.Equal(t, "/", notAdmin.Redirect)

	admin := g.Evaluate(ctx, "admin-token")
	assert.Equal(t, Granted, admin.Outcome)
	assert.Equal(t, domainuser.ID("u-admin"), admin.UserID)
	assert.True(t, admin.Granted())
}

func TestAdminGuard_MissingProfileRedirectsHome(t *testing.T) {
	sessions := newFakeSessions()
	sessions.put("t", "u-ghost")
	g := adminGuard(sessions, &fakeProfiles{profiles: map[domainuser.ID]*domainprofile.Profile{}})

	d := g.Evaluate(context.Background(), "t")
	assert.Equal(t, Denied, d.Outcome)
	assert.Equal(t, "/", d.Redirect)
}

func TestAdminGuard_ProfileTransportErrorIsRetryable(t *testing.T) {
	sessions := newFakeSessions()
	sessions.put("t", "u1")
	g := adminGuard(sessions, &fakeProfiles{err: errTransport})

	d := g.Evaluate(context.Background(), "t")
	assert.Equal(t, Denied, d.Outcome)
	assert.Empty(t, d.Redirect)
	assert.True(t, d.Retryable)
	require.Error(t, d.Err)
	assert.ErrorIs(t, d.Err, ErrLookupFailed)
	assert.ErrorIs(t, d.Err, errTransport)
}

func TestAdminGuard_SessionTransportErrorIsRetryable(t *testing.T) {
	sessions := newFakeSessions()
	sessions.err = errTransport
	g := adminGuard(sessions, &fakeProfiles{})

	d := g.Evaluate(context.Background(), "t")
	assert.True(t, d.Retryable)
	assert.Empty(t, d.Redirect)
}

func TestPlainGuard_CollapsesErrorsToLogin(t *testing.T) {
	sessions := newFakeSessions()
	sessions.put("t", "u1")
	g := &Guard{Sessions: sessions}

	assert.Equal(t, Decision{Outcome: Granted, UserID: "u1"}, g.Evaluate(context.Background(), "t"))
	assert.Equal(t, Decision{Outcome: Denied, Redirect: "/login"}, g.Evaluate(context.Background(), "other"))

	sessions.err = errTransport
	d := g.Evaluate(context.Background(), "t")
	assert.Equal(t, Decision{Outcome: Denied, Redirect: "/login"}, d)
}

func receive(t *testing.T, ch <-chan Decision) Decision {
	t.Helper()
	select {
	case d, ok := <-ch:
		require.True(t, ok, "decision channel closed")
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for decision")
		return Decision{}
	}
}

func TestWatch_DeniesWhenSessionEnds(t *testing.T) {
	sessions := newFakeSessions()
	sessions.put("t", "u1")
	g := &Guard{Sessions: sessions}

	decisions, stop := g.Watch(context.Background(), "t")
	defer stop()

	assert.Equal(t, Pending, receive(t, decisions).Outcome)
	assert.Equal(t, Granted, receive(t, decisions).Outcome)

	sessions.events <- domainauth.SessionEvent{Kind: domainauth.SessionSignedIn, Token: "someone-else", UserID: "u2"}
	sessions.drop("t")
	sessions.events <- domainauth.SessionEvent{Kind: domainauth.SessionSignedOut, Token: "t", UserID: "u1"}

	d := receive(t, decisions)
	assert.Equal(t, Denied, d.Outcome)
	assert.Equal(t, "/login", d.Redirect)
}

func TestWatch_ReevaluatesOnUserEvents(t *testing.T) {
	sessions := newFakeSessions()
	sessions.put("t", "u1")
	g := &Guard{Sessions: sessions}

	decisions, stop := g.Watch(context.Background(), "t")
	defer stop()
	receive(t, decisions)
	receive(t, decisions)

	sessions.drop("t")
	sessions.events <- domainauth.SessionEvent{Kind: domainauth.SessionExpired, Token: "another-device", UserID: "u1"}

	d := receive(t, decisions)
	assert.Equal(t, Denied, d.Outcome)
}

func TestWatch_DeniesWhenSessionExpiresUnobserved(t *testing.T) {
	sessions := newFakeSessions()
	expiresAt := time.Now().Add(150 * time.Millisecond)
	sessions.putUntil("t", "u1", expiresAt)
	g := &Guard{Sessions: sessions}

	decisions, stop := g.Watch(context.Background(), "t")
	defer stop()
	assert.Equal(t, Pending, receive(t, decisions).Outcome)
	granted := receive(t, decisions)
	assert.Equal(t, Granted, granted.Outcome)
	assert.Equal(t, expiresAt, granted.ExpiresAt)

	d := receive(t, decisions)
	assert.Equal(t, Denied, d.Outcome)
	assert.Equal(t, "/login", d.Redirect)
	assert.False(t, time.Now().Before(expiresAt))
}

func TestWatch_ClosedEventStreamEndsWithRetryableDecision(t *testing.T) {
	sessions := newFakeSessions()
	sessions.put("t", "u1")
	g := &Guard{Sessions: sessions}

	decisions, stop := g.Watch(context.Background(), "t")
	defer stop()
	receive(t, decisions)
	receive(t, decisions)

	close(sessions.events)
	d := receive(t, decisions)
	assert.Equal(t, Denied, d.Outcome)
	assert.True(t, d.Retryable)
	assert.Empty(t, d.Redirect)
	assert.ErrorIs(t, d.Err, ErrLookupFailed)

	_, ok := <-decisions
	assert.False(t, ok)
}

func TestWatch_StopReleasesSubscription(t *testing.T) {
	sessions := newFakeSessions()
	g := &Guard{Sessions: sessions}

	decisions, stop := g.Watch(context.Background(), "")
	stop()
	stop()

	select {
	case <-sessions.released:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription was not released")
	}
	for range decisions {
	}
}

func TestWatch_ContextCancelClosesStream(t *testing.T) {
	sessions := newFakeSessions()
	sessions.put("t", "u1")
	g := &Guard{Sessions: sessions}

	ctx, cancel := context.WithCancel(context.Background())
	decisions, stop := g.Watch(ctx, "t")
	defer stop()
	receive(t, decisions)
	receive(t, decisions)
	cancel()

	select {
	case _, ok := <-decisions:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after cancel")
	}
}

type adminCommand struct{ actor domainuser.ID }

func (c adminCommand) ActorID() domainuser.ID { return c.actor }

func TestAdminAuthorizer(t *testing.T) {
	profiles := &fakeProfiles{profiles: map[domainuser.ID]*domainprofile.Profile{
		"a": {UserID: "a", IsAdmin: true},
		"b": {UserID: "b"},
	}}
	auth := AdminAuthorizer{Profiles: profiles}
	ctx := context.Background()

	assert.NoError(t, auth.Authorize(ctx, struct{}{}))
	assert.NoError(t, auth.Authorize(ctx, adminCommand{actor: "a"}))
	assert.ErrorIs(t, auth.Authorize(ctx, adminCommand{actor: "b"}), ErrAdminRequired)
	assert.ErrorIs(t, auth.Authorize(ctx, adminCommand{actor: "nobody"}), ErrAdminRequired)
	assert.ErrorIs(t, auth.Authorize(ctx, adminCommand{}), ErrAdminRequired)

	profiles.err = errTransport
	assert.ErrorIs(t, auth.Authorize(ctx, adminCommand{actor: "a"}), ErrLookupFailed)
}
