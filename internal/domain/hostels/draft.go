package hostels

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("hostels: validation failed")

// ValidationError maps form field names to messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return ErrValidation.Error() + ": " + strings.Join(names, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; exists {
		return
	}
	e.Fields[field] = message
}

// Draft carries the admin form values as submitted.
type Draft struct {
	Name           string            `json:"name"`
	Price          string            `json:"price"`
	RoomTypes      []string          `json:"room_types"`
	RoomPrices     map[string]string `json:"room_prices"`
	OwnerName      string            `json:"owner_name"`
	OwnerContact   string            `json:"owner_contact"`
	Description    string            `json:"description"`
	AvailableRooms string            `json:"available_rooms"`
}

type RoomSpec struct {
	Kind  RoomKind
	Price float64
}

// Attributes are the validated, normalized draft values.
type Attributes struct {
	Name           string
	Description    string
	OwnerName      string
	OwnerContact   string
	Price          string
	AvailableRooms int
	RoomTypes      []RoomSpec
}

const (
	minNameLength    = 2
	minOwnerLength   = 2
	minContactLength = 10
)

// Attributes validates the draft. Every failing field is reported at once.
func (d Draft) Attributes() (Attributes, error) {
	verr := &ValidationError{}
	attrs := Attributes{
		Name:         strings.TrimSpace(d.Name),
		Description:  strings.TrimSpace(d.Description),
		OwnerName:    strings.TrimSpace(d.OwnerName),
		OwnerContact: strings.TrimSpace(d.OwnerContact),
		Price:        strings.TrimSpace(d.Price),
	}

	if utf8.RuneCountInString(attrs.Name) < minNameLength {
		verr.add("name", "Hostel name must be at least 2 characters.")
	}
	if attrs.Price == "" {
		verr.add("price", "Base price is required.")
	} else if _, ok := parseAmount(attrs.Price); !ok {
		verr.add("price", "Base price must be a non-negative number.")
	}
	if utf8.RuneCountInString(attrs.OwnerName) < minOwnerLength {
		verr.add("owner_name", "Owner name is required.")
	}
	if utf8.RuneCountInString(attrs.OwnerContact) < minContactLength {
		verr.add("owner_contact", "Valid contact number is required.")
	}

	rooms := strings.TrimSpace(d.AvailableRooms)
	if rooms == "" {
		verr.add("available_rooms", "Number of available rooms is required")
	} else if n, err := strconv.Atoi(rooms); err != nil || n < 0 {
		verr.add("available_rooms", "Number of available rooms must be a whole number.")
	} else {
		attrs.AvailableRooms = n
	}

	attrs.RoomTypes = d.roomSpecs(verr)

	if len(verr.Fields) > 0 {
		return Attributes{}, verr
	}
	return attrs, nil
}

func (d Draft) roomSpecs(verr *ValidationError) []RoomSpec {
	seen := make(map[RoomKind]struct{}, len(d.RoomTypes))
	specs := make([]RoomSpec, 0, len(d.RoomTypes))
	for _, raw := range d.RoomTypes {
		kind, ok := ParseRoomKind(raw)
		if !ok {
			verr.add("room_types", "Unknown room type: "+strings.TrimSpace(raw))
			continue
		}
		if _, dup := seen[kind]; dup {
			continue
		}
		seen[kind] = struct{}{}
		field := "room_prices." + string(kind)
		priceRaw := strings.TrimSpace(d.roomPrice(kind))
		if priceRaw == "" {
			verr.add(field, "Price is required for each room type")
			continue
		}
		price, ok := parseAmount(priceRaw)
		if !ok {
			verr.add(field, "Room price must be a non-negative number.")
			continue
		}
		specs = append(specs, RoomSpec{Kind: kind, Price: price})
	}
	if len(seen) == 0 {
		if _, reported := verr.Fields["room_types"]; !reported {
			verr.add("room_types", "Select at least one room type.")
		}
	}
	return specs
}

func (d Draft) roomPrice(kind RoomKind) string {
	if price, ok := d.RoomPrices[string(kind)]; ok {
		return price
	}
	for key, price := range d.RoomPrices {
		if k, ok := ParseRoomKind(key); ok && k == kind {
			return price
		}
	}
	return ""
}

func parseAmount(raw string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, false
	}
	return value, true
}

// DraftFromHostel prefills the edit form.
func DraftFromHostel(h Hostel) Draft {
	draft := Draft{
		Name:           h.Name,
		Price:          h.Price,
		OwnerName:      h.OwnerName,
		OwnerContact:   h.OwnerContact,
		Description:    h.Description,
		AvailableRooms: strconv.Itoa(h.AvailableRooms),
		RoomPrices:     make(map[string]string, len(h.RoomTypes)),
	}
	for _, room := range h.RoomTypes {
		draft.RoomTypes = append(draft.RoomTypes, string(room.Kind))
		draft.RoomPrices[string(room.Kind)] = strconv.FormatFloat(room.Price, 'f', -1, 64)
	}
	return draft
}
