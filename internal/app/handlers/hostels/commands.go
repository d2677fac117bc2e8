package hostels

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"hostelfinder/internal/app/commands"
	"hostelfinder/internal/app/dto"
	"hostelfinder/internal/app/outbox"
	"hostelfinder/internal/app/policies"
	"hostelfinder/internal/app/uow"
	domainhostels "hostelfinder/internal/domain/hostels"
	domainuser "hostelfinder/internal/domain/user"
)

const (
	createHostelKey = "admin.hostels.create"
	updateHostelKey = "admin.hostels.update"
	deleteHostelKey = "admin.hostels.delete"
)

type CreateHostelCommand struct {
	Actor  domainuser.ID
	Draft  domainhostels.Draft
	Images []Image
}

func (c CreateHostelCommand) Key() string            { return createHostelKey }
func (c CreateHostelCommand) ActorID() domainuser.ID { return c.Actor }

// Validate runs before anything is uploaded or stored.
func (c CreateHostelCommand) Validate() error {
	if _, err := c.Draft.Attributes(); err != nil {
		return err
	}
	if len(c.Images) == 0 {
		return domainhostels.ErrImageRequired
	}
	return nil
}

type UpdateHostelCommand struct {
	Actor  domainuser.ID
	ID     string
	Draft  domainhostels.Draft
	Images []Image
}

func (c UpdateHostelCommand) Key() string            { return updateHostelKey }
func (c UpdateHostelCommand) ActorID() domainuser.ID { return c.Actor }

func (c UpdateHostelCommand) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return domainhostels.ErrIDRequired
	}
	_, err := c.Draft.Attributes()
	return err
}

type DeleteHostelCommand struct {
	Actor domainuser.ID
	ID    string
}

func (c DeleteHostelCommand) Key() string            { return deleteHostelKey }
func (c DeleteHostelCommand) ActorID() domainuser.ID { return c.Actor }

func (c DeleteHostelCommand) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return domainhostels.ErrIDRequired
	}
	return nil
}

// Writer holds what the hostel write handlers share.
type Writer struct {
	UoWFactory uow.UoWFactory
	Images     policies.ImageStore
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

func (w Writer) now() time.Time {
	if w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

func (w Writer) newID() domainhostels.HostelID {
	if w.NewID != nil {
		return domainhostels.HostelID(w.NewID())
	}
	return domainhostels.HostelID(uuid.NewString())
}

func (w Writer) store(ctx context.Context, unit uow.UnitOfWork, hostel *domainhostels.Hostel) error {
	if err := unit.Hostels().Save(ctx, hostel); err != nil {
		return err
	}
	if err := unit.RoomTypes().ReplaceForHostel(ctx, hostel.ID, hostel.RoomTypes); err != nil {
		return err
	}
	if err := outbox.RecordDomainEvents(ctx, w.Outbox, w.Encoder, hostel.PendingEvents()); err != nil {
		return err
	}
	hostel.ClearEvents()
	return nil
}

// within runs fn inside the unit bound to ctx, or inside a new one that is
// committed when fn succeeds.
func (w Writer) within(ctx context.Context, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	unit, execCtx, release, err := uow.Begin(ctx, w.UoWFactory, uow.TxOptions{})
	if err != nil {
		return err
	}
	if release == nil {
		return fn(execCtx, unit)
	}
	defer release()
	if err := fn(execCtx, unit); err != nil {
		return err
	}
	return unit.Commit(execCtx)
}

func (w Writer) logInfo(ctx context.Context, msg string, args ...any) {
	if w.Logger != nil {
		w.Logger.InfoContext(ctx, msg, args...)
	}
}

type CreateHostelHandler struct {
	Writer
}

func (h *CreateHostelHandler) Handle(ctx context.Context, cmd CreateHostelCommand) (*dto.HostelDetail, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	attrs, _ := cmd.Draft.Attributes()
	id := h.newID()
	urls, err := uploadImages(ctx, h.Images, id, cmd.Images)
	if err != nil {
		return nil, err
	}
	hostel, err := domainhostels.NewHostel(domainhostels.CreateParams{
		ID:         id,
		Attributes: attrs,
		Images:     urls,
		Now:        h.now(),
	})
	if err != nil {
		return nil, err
	}

	err = h.within(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		return h.store(ctx, unit, hostel)
	})
	if err != nil {
		return nil, err
	}
	h.logInfo(ctx, "hostel created", "hostel_id", hostel.ID, "images", len(urls))
	detail := dto.MapHostelDetail(*hostel)
	return &detail, nil
}

type UpdateHostelHandler struct {
	Writer
}

func (h *UpdateHostelHandler) Handle(ctx context.Context, cmd UpdateHostelCommand) (*dto.HostelDetail, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	attrs, _ := cmd.Draft.Attributes()
	id := domainhostels.HostelID(strings.TrimSpace(cmd.ID))

	var (
		hostel *domainhostels.Hostel
		urls   []string
	)
	err := h.within(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		hostel, err = unit.Hostels().ByID(ctx, id)
		if err != nil {
			return err
		}
		urls, err = uploadImages(ctx, h.Images, id, cmd.Images)
		if err != nil {
			return err
		}
		now := h.now()
		hostel.Apply(attrs, now)
		if err := hostel.AddImages(urls, now); err != nil {
			return err
		}
		return h.store(ctx, unit, hostel)
	})
	if err != nil {
		return nil, err
	}
	h.logInfo(ctx, "hostel updated", "hostel_id", hostel.ID, "new_images", len(urls))
	detail := dto.MapHostelDetail(*hostel)
	return &detail, nil
}

type DeleteHostelHandler struct {
	Writer
}

func (h *DeleteHostelHandler) Handle(ctx context.Context, cmd DeleteHostelCommand) (struct{}, error) {
	if err := cmd.Validate(); err != nil {
		return struct{}{}, err
	}
	id := domainhostels.HostelID(strings.TrimSpace(cmd.ID))

	err := h.within(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		hostel, err := unit.Hostels().ByID(ctx, id)
		if err != nil {
			return err
		}
		if err := unit.RoomTypes().DeleteForHostel(ctx, id); err != nil {
			return err
		}
		if err := unit.Hostels().Delete(ctx, id); err != nil {
			return err
		}
		hostel.MarkDeleted(h.now())
		return outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, hostel.PendingEvents())
	})
	if err != nil {
		return struct{}{}, err
	}
	h.logInfo(ctx, "hostel deleted", "hostel_id", id)
	return struct{}{}, nil
}

var (
	_ commands.Handler[CreateHostelCommand, *dto.HostelDetail] = (*CreateHostelHandler)(nil)
	_ commands.Handler[UpdateHostelCommand, *dto.HostelDetail] = (*UpdateHostelHandler)(nil)
	_ commands.Handler[DeleteHostelCommand, struct{}]          = (*DeleteHostelHandler)(nil)
)
