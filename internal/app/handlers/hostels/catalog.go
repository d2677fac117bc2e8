package hostels

import (
	"context"
	"log/slog"

	"hostelfinder/internal/app/dto"
	"hostelfinder/internal/app/queries"
	"hostelfinder/internal/app/uow"
	domainhostels "hostelfinder/internal/domain/hostels"
)

const (
	listHostelsKey = "hostels.catalog"

	NoticeHostelsUnavailable   = "Failed to fetch hostels"
	NoticeRoomTypesUnavailable = "Failed to fetch room types"
)

// ListHostelsQuery filters by Criteria unless Unfiltered is set, in which
// case every stored hostel is returned.
type ListHostelsQuery struct {
	Criteria   domainhostels.Criteria
	Unfiltered bool
}

func (q ListHostelsQuery) Key() string { return listHostelsKey }

// ListHostelsHandler reads every hostel newest first, attaches room types and
// applies the criteria. Read failures degrade the result and are reported as
// notices rather than errors.
type ListHostelsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListHostelsHandler) Handle(ctx context.Context, q ListHostelsQuery) (dto.HostelCatalog, error) {
	joined, notices, err := h.fetch(ctx)
	if err != nil {
		return dto.HostelCatalog{}, err
	}
	filtered := joined
	if !q.Unfiltered {
		filtered = domainhostels.Filter(joined, q.Criteria)
	}
	return dto.MapCatalog(filtered, len(joined), q.Criteria, notices), nil
}

// fetch returns an error only when no unit of work can be started.
func (h *ListHostelsHandler) fetch(ctx context.Context) ([]domainhostels.Hostel, []string, error) {
	unit, ctx, release, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, nil, err
	}
	if release != nil {
		defer release()
	}

	items, err := unit.Hostels().ListNewestFirst(ctx)
	if err != nil {
		h.warn(ctx, "hostel list read failed", err)
		return []domainhostels.Hostel{}, []string{NoticeHostelsUnavailable}, nil
	}
	if len(items) == 0 {
		return []domainhostels.Hostel{}, nil, nil
	}

	var notices []string
	rooms, err := unit.RoomTypes().ByHostelIDs(ctx, domainhostels.IDs(items))
	if err != nil {
		h.warn(ctx, "room type read failed", err)
		notices = append(notices, NoticeRoomTypesUnavailable)
		rooms = nil
	}
	return domainhostels.Join(items, rooms), notices, nil
}

func (h *ListHostelsHandler) warn(ctx context.Context, msg string, err error) {
	if h.Logger != nil {
		h.Logger.WarnContext(ctx, msg, "error", err)
	}
}

var _ queries.Handler[ListHostelsQuery, dto.HostelCatalog] = (*ListHostelsHandler)(nil)
