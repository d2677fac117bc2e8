package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainhostels "hostelfinder/internal/domain/hostels"
)

// HostelRepository stores hostel records without their room types.
type HostelRepository struct {
	col *mongo.Collection
}

func NewHostelRepository(db *mongo.Database) *HostelRepository {
	return &HostelRepository{col: db.Collection(hostelsCollection)}
}

func (r *HostelRepository) ByID(ctx context.Context, id domainhostels.HostelID) (*domainhostels.Hostel, error) {
	var doc hostelDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainhostels.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *HostelRepository) ListNewestFirst(ctx context.Context) ([]*domainhostels.Hostel, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*domainhostels.Hostel, 0)
	for cur.Next(ctx) {
		var doc hostelDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *HostelRepository) Save(ctx context.Context, hostel *domainhostels.Hostel) error {
	if hostel == nil || hostel.ID == "" {
		return domainhostels.ErrIDRequired
	}
	doc := newHostelDocument(hostel)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *HostelRepository) Delete(ctx context.Context, id domainhostels.HostelID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainhostels.ErrNotFound
	}
	return nil
}

type hostelDocument struct {
	ID             string    `bson:"_id"`
	Name           string    `bson:"name"`
	Description    string    `bson:"description"`
	OwnerName      string    `bson:"owner_name"`
	OwnerContact   string    `bson:"owner_contact"`
	Price          string    `bson:"price"`
	AvailableRooms int       `bson:"available_rooms"`
	Images         []string  `bson:"images"`
	ThumbnailURL   string    `bson:"thumbnail_url"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func newHostelDocument(h *domainhostels.Hostel) hostelDocument {
	return hostelDocument{
		ID:             string(h.ID),
		Name:           h.Name,
		Description:    h.Description,
		OwnerName:      h.OwnerName,
		OwnerContact:   h.OwnerContact,
		Price:          h.Price,
		AvailableRooms: h.AvailableRooms,
		Images:         append([]string(nil), h.Images...),
		ThumbnailURL:   h.ThumbnailURL,
		CreatedAt:      h.CreatedAt.UTC(),
		UpdatedAt:      h.UpdatedAt.UTC(),
	}
}

func (d hostelDocument) toAggregate() *domainhostels.Hostel {
	return &domainhostels.Hostel{
		ID:             domainhostels.HostelID(d.ID),
		Name:           d.Name,
		Description:    d.Description,
		OwnerName:      d.OwnerName,
		OwnerContact:   d.OwnerContact,
		Price:          d.Price,
		AvailableRooms: d.AvailableRooms,
		Images:         d.Images,
		ThumbnailURL:   d.ThumbnailURL,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}

// RoomTypeRepository keeps one document per hostel and room kind.
type RoomTypeRepository struct {
	col *mongo.Collection
}

func NewRoomTypeRepository(db *mongo.Database) *RoomTypeRepository {
	return &RoomTypeRepository{col: db.Collection(roomTypesCollection)}
}

// ByHostelIDs returns room types grouped in the order of ids.
func (r *RoomTypeRepository) ByHostelIDs(ctx context.Context, ids []domainhostels.HostelID) ([]domainhostels.RoomType, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, string(id))
	}
	cur, err := r.col.Find(ctx, bson.M{"hostel_id": bson.M{"$in": raw}}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	byHostel := make(map[string][]domainhostels.RoomType, len(ids))
	for cur.Next(ctx) {
		var doc roomTypeDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		byHostel[doc.HostelID] = append(byHostel[doc.HostelID], doc.toRoomType())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	out := make([]domainhostels.RoomType, 0)
	for _, id := range raw {
		out = append(out, byHostel[id]...)
		delete(byHostel, id)
	}
	return out, nil
}

func (r *RoomTypeRepository) ReplaceForHostel(ctx context.Context, id domainhostels.HostelID, rooms []domainhostels.RoomType) error {
	if err := r.DeleteForHostel(ctx, id); err != nil {
		return err
	}
	if len(rooms) == 0 {
		return nil
	}
	docs := make([]any, 0, len(rooms))
	for _, room := range rooms {
		docs = append(docs, roomTypeDocument{
			ID:       string(room.ID),
			HostelID: string(id),
			Kind:     string(room.Kind),
			Price:    room.Price,
		})
	}
	_, err := r.col.InsertMany(ctx, docs)
	return err
}

func (r *RoomTypeRepository) DeleteForHostel(ctx context.Context, id domainhostels.HostelID) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"hostel_id": string(id)})
	return err
}

type roomTypeDocument struct {
	ID       string  `bson:"_id"`
	HostelID string  `bson:"hostel_id"`
	Kind     string  `bson:"room_type"`
	Price    float64 `bson:"price"`
}

func (d roomTypeDocument) toRoomType() domainhostels.RoomType {
	return domainhostels.RoomType{
		ID:       domainhostels.RoomTypeID(d.ID),
		HostelID: domainhostels.HostelID(d.HostelID),
		Kind:     domainhostels.RoomKind(d.Kind),
		Price:    d.Price,
	}
}

var (
	_ domainhostels.Repository         = (*HostelRepository)(nil)
	_ domainhostels.RoomTypeRepository = (*RoomTypeRepository)(nil)
)
