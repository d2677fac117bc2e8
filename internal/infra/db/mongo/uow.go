package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"

	"hostelfinder/internal/app/uow"
	domainhostels "hostelfinder/internal/domain/hostels"
	domainprofile "hostelfinder/internal/domain/profile"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	HostelsRepo   domainhostels.Repository
	RoomTypesRepo domainhostels.RoomTypeRepository
	ProfilesRepo  domainprofile.Repository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction. Read-only units read a snapshot.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if opts.ReadOnly {
		txnOpts = txnOpts.SetReadConcern(readconcern.Snapshot())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		session:   session,
		hostels:   f.HostelsRepo,
		roomTypes: f.RoomTypesRepo,
		profiles:  f.ProfilesRepo,
	}, nil
}

type Unit struct {
	session mongo.Session
	done    bool

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
	if u.done {
		return nil
	}
	u.done = true
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

// Rollback after Commit is a no-op.
func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
