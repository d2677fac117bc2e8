package hostels

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"hostelfinder/internal/domain/shared/events"
)

var (
	ErrIDRequired    = errors.New("hostels: id is required")
	ErrNotFound      = errors.New("hostels: hostel not found")
	ErrImageRequired = errors.New("hostels: at least one image is required")
	ErrImageURL      = errors.New("hostels: image url must not be empty")
)

type HostelID string

// Hostel is a student accommodation listing. Room types are stored apart from
// the hostel record and attached by Join.
type Hostel struct {
	ID             HostelID
	Name           string
	Description    string
	OwnerName      string
	OwnerContact   string
	Price          string
	AvailableRooms int
	Images         []string
	ThumbnailURL   string
	RoomTypes      []RoomType
	CreatedAt      time.Time
	UpdatedAt      time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id HostelID) (*Hostel, error)
	ListNewestFirst(ctx context.Context) ([]*Hostel, error)
	Save(ctx context.Context, hostel *Hostel) error
	Delete(ctx context.Context, id HostelID) error
}

type CreateParams struct {
	ID         HostelID
	Attributes Attributes
	Images     []string
	Now        time.Time
}

func NewHostel(params CreateParams) (*Hostel, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	images, err := cleanImages(params.Images)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, ErrImageRequired
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	hostel := &Hostel{
		ID:        params.ID,
		CreatedAt: now,
	}
	hostel.assign(params.Attributes, now)
	hostel.Images = images
	hostel.ThumbnailURL = images[0]
	hostel.Record(HostelCreatedEvent{HostelID: hostel.ID, Name: hostel.Name, At: now})
	return hostel, nil
}

// Apply overwrites the editable attributes and replaces the room types.
func (h *Hostel) Apply(attrs Attributes, now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	h.assign(attrs, now)
	h.Record(HostelUpdatedEvent{HostelID: h.ID, At: now})
}

func (h *Hostel) AddImages(urls []string, now time.Time) error {
	images, err := cleanImages(urls)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return nil
	}
	h.Images = append(h.Images, images...)
	if h.ThumbnailURL == "" {
		h.ThumbnailURL = h.Images[0]
	}
	if now.IsZero() {
		now = time.Now()
	}
	h.UpdatedAt = now.UTC()
	return nil
}

func (h *Hostel) MarkDeleted(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	h.Record(HostelDeletedEvent{HostelID: h.ID, At: now.UTC()})
}

// PriceValue coerces the stored decimal price to a number. A blank price is
// 0; malformed and non-finite values report false.
func (h Hostel) PriceValue() (float64, bool) {
	raw := strings.TrimSpace(h.Price)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// Clone returns a deep copy that shares no slices with h. Pending events are not copied.
func (h Hostel) Clone() Hostel {
	return Hostel{
		ID:             h.ID,
		Name:           h.Name,
		Description:    h.Description,
		OwnerName:      h.OwnerName,
		OwnerContact:   h.OwnerContact,
		Price:          h.Price,
		AvailableRooms: h.AvailableRooms,
		Images:         append([]string(nil), h.Images...),
		ThumbnailURL:   h.ThumbnailURL,
		RoomTypes:      append([]RoomType(nil), h.RoomTypes...),
		CreatedAt:      h.CreatedAt,
		UpdatedAt:      h.UpdatedAt,
	}
}

func (h *Hostel) assign(attrs Attributes, now time.Time) {
	h.Name = attrs.Name
	h.Description = attrs.Description
	h.OwnerName = attrs.OwnerName
	h.OwnerContact = attrs.OwnerContact
	h.Price = attrs.Price
	h.AvailableRooms = attrs.AvailableRooms
	rooms := make([]RoomType, 0, len(attrs.RoomTypes))
	for _, spec := range attrs.RoomTypes {
		rooms = append(rooms, NewRoomType(h.ID, spec.Kind, spec.Price))
	}
	h.RoomTypes = rooms
	h.UpdatedAt = now
}

func cleanImages(urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return nil, ErrImageURL
		}
		out = append(out, trimmed)
	}
	return out, nil
}
