package guard

import (
	"context"
	"errors"
	"fmt"

	domainprofile "hostelfinder/internal/domain/profile"
	domainuser "hostelfinder/internal/domain/user"
)

var ErrAdminRequired = errors.New("guard: admin rights required")

// AdminScoped marks commands and queries that only administrators may run.
type AdminScoped interface {
	ActorID() domainuser.ID
}

// AdminAuthorizer rejects AdminScoped messages whose actor lacks the admin flag.
type AdminAuthorizer struct {
	Profiles domainprofile.Repository
}

func (a AdminAuthorizer) Authorize(ctx context.Context, message any) error {
	scoped, ok := message.(AdminScoped)
	if !ok {
		return nil
	}
	actor := scoped.ActorID()
	if actor == "" {
		return ErrAdminRequired
	}
	if a.Profiles == nil {
		return fmt.Errorf("%w: profile repository not configured", ErrLookupFailed)
	}
	profile, err := a.Profiles.ByUserID(ctx, actor)
	if errors.Is(err, domainprofile.ErrNotFound) {
		return ErrAdminRequired
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	if !profile.IsAdmin {
		return ErrAdminRequired
	}
	return nil
}
