package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"hostelfinder/internal/domain/user"
)

var (
	ErrUserRequired = errors.New("profile: user id is required")
	ErrNotFound     = errors.New("profile: not found")
)

// Profile holds per-user flags. IsAdmin gates the admin console.
type Profile struct {
	UserID    user.ID
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository looks profiles up by exact user id; a user has one profile or none.
type Repository interface {
	ByUserID(ctx context.Context, id user.ID) (*Profile, error)
	Save(ctx context.Context, profile *Profile) error
}

func New(id user.ID, admin bool, now time.Time) (*Profile, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, ErrUserRequired
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Profile{UserID: id, IsAdmin: admin, CreatedAt: now, UpdatedAt: now}, nil
}

func (p *Profile) Promote(now time.Time) {
	if p.IsAdmin {
		return
	}
	if now.IsZero() {
		now = time.Now()
	}
	p.IsAdmin = true
	p.UpdatedAt = now.UTC()
}
