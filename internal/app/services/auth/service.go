package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domainauth "hostelfinder/internal/domain/auth"
	domainprofile "hostelfinder/internal/domain/profile"
	domainuser "hostelfinder/internal/domain/user"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
)

const minPasswordLength = 8

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenGenerator mints session tokens. Implementations that also satisfy
// TokenVerifier let CurrentSession reject forged tokens without a store read.
type TokenGenerator interface {
	NewToken(subject string) (string, error)
}

type TokenVerifier interface {
	Verify(token string) error
}

type Service struct {
	Users      domainuser.Repository
	Profiles   domainprofile.Repository
	Sessions   domainauth.SessionStore
	Events     domainauth.SessionEvents
	Passwords  PasswordHasher
	Tokens     TokenGenerator
	SessionTTL time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

type RegisterParams struct {
	Email    string
	Name     string
	Password string
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	User    *domainuser.User
	Profile *domainprofile.Profile
	Session *domainauth.Session
}

func (r *AuthResult) Token() string {
	if r == nil || r.Session == nil {
		return ""
	}
	return string(r.Session.Token)
}

type ResolveResult struct {
	User    *domainuser.User
	Profile *domainprofile.Profile
	Session *domainauth.Session
}

// Register creates the account with a non-admin profile and signs it in.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	name := strings.TrimSpace(params.Name)
	if email == "" {
		return nil, domainuser.ErrEmailRequired
	}
	if name == "" {
		return nil, domainuser.ErrNameRequired
	}
	if err := s.validatePassword(params.Password); err != nil {
		return nil, err
	}
	if _, err := s.Users.ByEmail(ctx, email); err == nil {
		return nil, domainuser.ErrEmailAlreadyUsed
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, err
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
	})
	if err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	profile, err := domainprofile.New(user.ID, false, now)
	if err != nil {
		return nil, err
	}
	if err := s.Profiles.Save(ctx, profile); err != nil {
		return nil, err
	}
	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	}
	return &AuthResult{User: user, Profile: profile, Session: session}, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	profile, err := s.profileOf(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user authenticated", "user_id", user.ID)
	}
	return &AuthResult{User: user, Profile: profile, Session: session}, nil
}

// Logout ends the session behind token. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if errors.Is(err, domainauth.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.Sessions.Delete(ctx, session.Token); err != nil {
		return err
	}
	s.publish(ctx, domainauth.SessionSignedOut, session)
	if s.Logger != nil {
		s.Logger.Info("session terminated", "user_id", session.UserID)
	}
	return nil
}

// CurrentSession returns the live session for token, or nil when there is
// none. Only store failures are reported as errors.
func (s *Service) CurrentSession(ctx context.Context, token string) (*domainauth.Session, error) {
	if s.Sessions == nil {
		return nil, errors.New("auth: session store required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	if verifier, ok := s.Tokens.(TokenVerifier); ok {
		if err := verifier.Verify(token); err != nil {
			return nil, nil
		}
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if errors.Is(err, domainauth.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		if err := s.Sessions.Delete(ctx, session.Token); err != nil {
			return nil, err
		}
		s.publish(ctx, domainauth.SessionExpired, session)
		return nil, nil
	}
	return session, nil
}

// ResolveToken loads the session together with its user and profile.
func (s *Service) ResolveToken(ctx context.Context, token string) (*ResolveResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	session, err := s.CurrentSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domainauth.ErrSessionNotFound
	}
	user, err := s.Users.ByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			_ = s.Sessions.Delete(ctx, session.Token)
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, err
	}
	profile, err := s.profileOf(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &ResolveResult{User: user, Profile: profile, Session: session}, nil
}

// Subscribe streams session changes; see domainauth.SessionEvents.
func (s *Service) Subscribe(ctx context.Context) (<-chan domainauth.SessionEvent, func(), error) {
	if s.Events == nil {
		return nil, nil, errors.New("auth: session events not configured")
	}
	return s.Events.Subscribe(ctx)
}

func (s *Service) profileOf(ctx context.Context, id domainuser.ID) (*domainprofile.Profile, error) {
	profile, err := s.Profiles.ByUserID(ctx, id)
	if errors.Is(err, domainprofile.ErrNotFound) {
		return nil, nil
	}
	return profile, err
}

func (s *Service) issueSession(ctx context.Context, user *domainuser.User) (*domainauth.Session, error) {
	token, err := s.Tokens.NewToken(string(user.ID))
	if err != nil {
		return nil, err
	}
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token:  domainauth.Token(token),
		UserID: user.ID,
		TTL:    s.sessionTTL(),
		Now:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	s.publish(ctx, domainauth.SessionSignedIn, session)
	return session, nil
}

// publish logs broker failures instead of returning them.
func (s *Service) publish(ctx context.Context, kind domainauth.SessionEventKind, session *domainauth.Session) {
	if s.Events == nil || session == nil {
		return
	}
	ev := domainauth.SessionEvent{Kind: kind, Token: session.Token, UserID: session.UserID, At: s.now()}
	if err := s.Events.Publish(ctx, ev); err != nil && s.Logger != nil {
		s.Logger.Warn("session event publish failed", "kind", kind, "user_id", session.UserID, "error", err)
	}
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 24 * time.Hour
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Users == nil:
		return errors.New("auth: user repository required")
	case s.Profiles == nil:
		return errors.New("auth: profile repository required")
	case s.Sessions == nil:
		return errors.New("auth: session store required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token generator required")
	default:
		return nil
	}
}
