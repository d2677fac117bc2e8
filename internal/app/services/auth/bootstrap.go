package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	domainprofile "hostelfinder/internal/domain/profile"
	domainuser "hostelfinder/internal/domain/user"
)

type AdminAccount struct {
	Email    string
	Name     string
	Password string
}

// EnsureAdmin creates the account when missing and flags its profile as admin.
// An existing account keeps its password.
func (s *Service) EnsureAdmin(ctx context.Context, account AdminAccount) (*domainuser.User, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(account.Email)
	if email == "" {
		return nil, domainuser.ErrEmailRequired
	}
	now := s.now()

	user, err := s.Users.ByEmail(ctx, email)
	switch {
	case errors.Is(err, domainuser.ErrNotFound):
		if err := s.validatePassword(account.Password); err != nil {
			return nil, err
		}
		hash, err := s.Passwords.Hash(account.Password)
		if err != nil {
			return nil, err
		}
		name := account.Name
		if name == "" {
			name = "Administrator"
		}
		user, err = domainuser.NewUser(domainuser.CreateParams{
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
	case err != nil:
		return nil, err
	}

	profile, err := s.Profiles.ByUserID(ctx, user.ID)
	switch {
	case errors.Is(err, domainprofile.ErrNotFound):
		profile, err = domainprofile.New(user.ID, true, now)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		profile.Promote(now)
	}
	if err := s.Profiles.Save(ctx, profile); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("admin account ensured", "user_id", user.ID, "email", user.Email)
	}
	return user, nil
}
