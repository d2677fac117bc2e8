package dto

import (
	"math"
	"time"

	domainhostels "hostelfinder/internal/domain/hostels"
)

type RoomType struct {
	ID    string  `json:"id"`
	Kind  string  `json:"room_type"`
	Price float64 `json:"price"`
}

// HostelCard is the catalog and admin table representation of a hostel.
type HostelCard struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	OwnerName      string     `json:"owner_name"`
	OwnerContact   string     `json:"owner_contact"`
	Price          string     `json:"price"`
	AvailableRooms int        `json:"available_rooms"`
	ThumbnailURL   string     `json:"thumbnail_url"`
	Images         []string   `json:"images"`
	RoomTypes      []RoomType `json:"room_types"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HostelDetail adds the prefilled form values used by the admin edit screen.
type HostelDetail struct {
	HostelCard
	Draft domainhostels.Draft `json:"draft"`
}

// HostelCatalog is the filtered view of all hostels. Notices carry
// non-fatal fetch problems the client should surface to the user.
type HostelCatalog struct {
	Items   []HostelCard   `json:"items"`
	Total   int            `json:"total"`
	Count   int            `json:"count"`
	Filters CatalogFilters `json:"filters"`
	Notices []string       `json:"notices,omitempty"`
}

// CatalogFilters echoes the applied criteria; a nil PriceMax means unbounded.
type CatalogFilters struct {
	Query    string   `json:"q"`
	PriceMin float64  `json:"price_min"`
	PriceMax *float64 `json:"price_max"`
}

type RoomKindOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func MapHostelCard(h domainhostels.Hostel) HostelCard {
	rooms := make([]RoomType, 0, len(h.RoomTypes))
	for _, room := range h.RoomTypes {
		rooms = append(rooms, RoomType{ID: string(room.ID), Kind: string(room.Kind), Price: room.Price})
	}
	images := h.Images
	if images == nil {
		images = []string{}
	}
	return HostelCard{
		ID:             string(h.ID),
		Name:           h.Name,
		Description:    h.Description,
		OwnerName:      h.OwnerName,
		OwnerContact:   h.OwnerContact,
		Price:          h.Price,
		AvailableRooms: h.AvailableRooms,
		ThumbnailURL:   h.ThumbnailURL,
		Images:         append([]string(nil), images...),
		RoomTypes:      rooms,
		CreatedAt:      h.CreatedAt,
		UpdatedAt:      h.UpdatedAt,
	}
}

func MapHostelDetail(h domainhostels.Hostel) HostelDetail {
	return HostelDetail{
		HostelCard: MapHostelCard(h),
		Draft:      domainhostels.DraftFromHostel(h),
	}
}

// MapCatalog builds the catalog from the filtered items. total is the size of
// the unfiltered set.
func MapCatalog(items []domainhostels.Hostel, total int, criteria domainhostels.Criteria, notices []string) HostelCatalog {
	cards := make([]HostelCard, 0, len(items))
	for _, item := range items {
		cards = append(cards, MapHostelCard(item))
	}
	filters := CatalogFilters{Query: criteria.Query}
	if finite(criteria.PriceMin) {
		filters.PriceMin = criteria.PriceMin
	}
	if finite(criteria.PriceMax) {
		max := criteria.PriceMax
		filters.PriceMax = &max
	}
	return HostelCatalog{
		Items:   cards,
		Total:   total,
		Count:   len(cards),
		Filters: filters,
		Notices: notices,
	}
}

// finite guards the JSON encoder, which rejects NaN and infinities.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// RoomKindOptions lists the selectable room types for the admin form.
func RoomKindOptions() []RoomKindOption {
	labels := map[domainhostels.RoomKind]string{
		domainhostels.RoomSingle:    "Single Room",
		domainhostels.RoomDouble:    "Double Room",
		domainhostels.RoomTriple:    "Triple Room",
		domainhostels.RoomQuad:      "Quad Room",
		domainhostels.RoomSuite:     "Suite",
		domainhostels.RoomApartment: "Apartment",
	}
	out := make([]RoomKindOption, 0, len(domainhostels.RoomKinds))
	for _, kind := range domainhostels.RoomKinds {
		out = append(out, RoomKindOption{Value: string(kind), Label: labels[kind]})
	}
	return out
}
