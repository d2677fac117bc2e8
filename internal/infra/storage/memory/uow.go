package memory

import (
	"context"
	"errors"

	"hostelfinder/internal/app/uow"
	domainhostels "hostelfinder/internal/domain/hostels"
	domainprofile "hostelfinder/internal/domain/profile"
)

type Factory struct {
	HostelsRepo   domainhostels.Repository
	RoomTypesRepo domainhostels.RoomTypeRepository
	ProfilesRepo  domainprofile.Repository
}

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a unit of work with no isolation; writes are visible
// immediately and Rollback does not undo them.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.HostelsRepo == nil || f.RoomTypesRepo == nil || f.ProfilesRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		hostels:   f.HostelsRepo,
		roomTypes: f.RoomTypesRepo,
		profiles:  f.ProfilesRepo,
	}, nil
}

type Unit struct {
	hostels   domainhostels.Repository
	roomTypes domainhostels.RoomTypeRepository
	profiles  domainprofile.Repository
}

func (u *Unit) Hostels() domainhostels.Repository {
	return u.hostels
}

func (u *Unit) RoomTypes() domainhostels.RoomTypeRepository {
	return u.roomTypes
}

func (u *Unit) Profiles() domainprofile.Repository {
	return u.profiles
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}
