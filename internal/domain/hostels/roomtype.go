package hostels

import (
	"context"
	"strings"
)

type RoomTypeID string

type RoomKind string

const (
	RoomSingle    RoomKind = "single"
	RoomDouble    RoomKind = "double"
	RoomTriple    RoomKind = "triple"
	RoomQuad      RoomKind = "quad"
	RoomSuite     RoomKind = "suite"
	RoomApartment RoomKind = "apartment"
)

// RoomKinds lists the room types an admin may offer, in display order.
var RoomKinds = []RoomKind{RoomSingle, RoomDouble, RoomTriple, RoomQuad, RoomSuite, RoomApartment}

func ParseRoomKind(raw string) (RoomKind, bool) {
	value := RoomKind(strings.ToLower(strings.TrimSpace(raw)))
	for _, kind := range RoomKinds {
		if kind == value {
			return kind, true
		}
	}
	return "", false
}

type RoomType struct {
	ID       RoomTypeID
	HostelID HostelID
	Kind     RoomKind
	Price    float64
}

// NewRoomType derives the row id from the hostel and kind; a hostel offers each kind at most once.
func NewRoomType(hostelID HostelID, kind RoomKind, price float64) RoomType {
	return RoomType{
		ID:       RoomTypeID(string(hostelID) + ":" + string(kind)),
		HostelID: hostelID,
		Kind:     kind,
		Price:    price,
	}
}

type RoomTypeRepository interface {
	ByHostelIDs(ctx context.Context, ids []HostelID) ([]RoomType, error)
	ReplaceForHostel(ctx context.Context, id HostelID, rooms []RoomType) error
	DeleteForHostel(ctx context.Context, id HostelID) error
}

// Join attaches room types to their hostels, preserving the hostel order.
// Room types whose hostel is absent from items are dropped.
func Join(items []*Hostel, rooms []RoomType) []Hostel {
	byHostel := make(map[HostelID][]RoomType, len(items))
	for _, room := range rooms {
		byHostel[room.HostelID] = append(byHostel[room.HostelID], room)
	}
	out := make([]Hostel, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		joined := item.Clone()
		joined.RoomTypes = append([]RoomType(nil), byHostel[item.ID]...)
		out = append(out, joined)
	}
	return out
}

// IDs returns the identifiers of items in order.
func IDs(items []*Hostel) []HostelID {
	ids := make([]HostelID, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		ids = append(ids, item.ID)
	}
	return ids
}
