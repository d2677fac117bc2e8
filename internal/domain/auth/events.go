package auth

import (
	"context"
	"errors"
	"time"

	"hostelfinder/internal/domain/user"
)

var ErrBrokerClosed = errors.New("auth: session event broker closed")

type SessionEventKind string

const (
	SessionSignedIn  SessionEventKind = "signed_in"
	SessionSignedOut SessionEventKind = "signed_out"
	SessionExpired   SessionEventKind = "expired"
)

// SessionEvent reports a change in a user's authentication state.
type SessionEvent struct {
	Kind   SessionEventKind `json:"kind"`
	Token  Token            `json:"token"`
	UserID user.ID          `json:"user_id"`
	At     time.Time        `json:"at"`
}

// SessionEvents fans session changes out to subscribers. Each subscription
// delivers events in publish order; the returned cancel func detaches the
// subscriber and closes its channel. Cancelling ctx has the same effect.
type SessionEvents interface {
	Publish(ctx context.Context, ev SessionEvent) error
	Subscribe(ctx context.Context) (<-chan SessionEvent, func(), error)
}
