package hostels

import (
	"context"
	"strings"

	"hostelfinder/internal/app/dto"
	"hostelfinder/internal/app/queries"
	"hostelfinder/internal/app/uow"
	domainhostels "hostelfinder/internal/domain/hostels"
	domainuser "hostelfinder/internal/domain/user"
)

const getHostelKey = "admin.hostels.get"

type GetHostelQuery struct {
	Actor domainuser.ID
	ID    string
}

func (q GetHostelQuery) Key() string            { return getHostelKey }
func (q GetHostelQuery) ActorID() domainuser.ID { return q.Actor }

type GetHostelHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetHostelHandler) Handle(ctx context.Context, q GetHostelQuery) (*dto.HostelDetail, error) {
	id := domainhostels.HostelID(strings.TrimSpace(q.ID))
	if id == "" {
		return nil, domainhostels.ErrIDRequired
	}
	unit, ctx, release, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	if release != nil {
		defer release()
	}
	hostel, err := unit.Hostels().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rooms, err := unit.RoomTypes().ByHostelIDs(ctx, []domainhostels.HostelID{id})
	if err != nil {
		return nil, err
	}
	hostel.RoomTypes = rooms
	detail := dto.MapHostelDetail(*hostel)
	return &detail, nil
}

var _ queries.Handler[GetHostelQuery, *dto.HostelDetail] = (*GetHostelHandler)(nil)
