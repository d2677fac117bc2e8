package uow

import (
	"context"

	domainhostels "hostelfinder/internal/domain/hostels"
	domainprofile "hostelfinder/internal/domain/profile"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Hostels() domainhostels.Repository
	RoomTypes() domainhostels.RoomTypeRepository
	Profiles() domainprofile.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}
