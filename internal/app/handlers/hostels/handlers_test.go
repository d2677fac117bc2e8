package hostels

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainhostels "hostelfinder/internal/domain/hostels"
	"hostelfinder/internal/infra/storage/memory"
)

type fakeImageStore struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (s *fakeImageStore) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if _, err := io.ReadAll(reader); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return "http://images.local/" + key, nil
}

type failingHostels struct {
	domainhostels.Repository
}

func (failingHostels) ListNewestFirst(ctx context.Context) ([]*domainhostels.Hostel, error) {
	return nil, errors.New("connection reset")
}

type failingRooms struct {
	domainhostels.RoomTypeRepository
}

func (failingRooms) ByHostelIDs(ctx context.Context, ids []domainhostels.HostelID) ([]domainhostels.RoomType, error) {
	return nil, errors.New("connection reset")
}

type fixture struct {
	hostels *memory.HostelRepository
	rooms   *memory.RoomTypeRepository
	box     *memory.Outbox
	images  *fakeImageStore
	factory memory.Factory
	writer  Writer
}

func newFixture() *fixture {
	f := &fixture{
		hostels: memory.NewHostelRepository(),
		rooms:   memory.NewRoomTypeRepository(),
		box:     memory.NewOutbox(),
		images:  &fakeImageStore{},
	}
	f.factory = memory.Factory{HostelsRepo: f.hostels, RoomTypesRepo: f.rooms, ProfilesRepo: memory.NewProfileRepository()}
	seq := 0
	clock := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	f.writer = Writer{
		UoWFactory: f.factory,
		Images:     f.images,
		Outbox:     f.box,
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
		NewID: func() string {
			seq++
			return "hostel-" + string(rune('0'+seq))
		},
	}
	return f
}

func draft(name, price string) domainhostels.Draft {
	return domainhostels.Draft{
		Name:           name,
		Price:          price,
		RoomTypes:      []string{"single"},
		RoomPrices:     map[string]string{"single": price},
		OwnerName:      "Kojo",
		OwnerContact:   "0200000000",
		Description:    name + " by the library",
		AvailableRooms: "4",
	}
}

func jpeg(name string) Image {
	return Image{Filename: name, ContentType: "image/jpeg", Data: []byte("\xff\xd8\xff")}
}

func (f *fixture) create(t *testing.T, name, price string) string {
	t.Helper()
	h := &CreateHostelHandler{Writer: f.writer}
	detail, err := h.Handle(context.Background(), CreateHostelCommand{
		Actor:  "admin",
		Draft:  draft(name, price),
		Images: []Image{jpeg("front.jpg")},
	})
	require.NoError(t, err)
	return detail.ID
}

func TestCreateHostel_StoresHostelRoomsAndEvent(t *testing.T) {
	f := newFixture()
	h := &CreateHostelHandler{Writer: f.writer}

	detail, err := h.Handle(context.Background(), CreateHostelCommand{
		Actor:  "admin",
		Draft:  draft("Alpha", "1200"),
		Images: []Image{jpeg("a.jpg"), {Filename: "b", ContentType: "image/png", Data: []byte("png")}},
	})
	require.NoError(t, err)
	require.Len(t, detail.Images, 2)
	assert.Equal(t, detail.Images[0], detail.ThumbnailURL)
	require.Len(t, f.images.keys, 2)
	assert.True(t, strings.HasPrefix(f.images.keys[0], "hostels/hostel-1/"))
	assert.True(t, strings.HasSuffix(f.images.keys[1], ".png"))

	stored, err := f.hostels.ByID(context.Background(), domainhostels.HostelID(detail.ID))
	require.NoError(t, err)
	assert.Equal(t, "Alpha", stored.Name)

	rooms, err := f.rooms.ByHostelIDs(context.Background(), []domainhostels.HostelID{stored.ID})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, 1200.0, rooms[0].Price)
	assert.Equal(t, 1, f.box.Pending())
}

func TestCreateHostel_RejectsBeforeUploading(t *testing.T) {
	f := newFixture()
	h := &CreateHostelHandler{Writer: f.writer}

	_, err := h.Handle(context.Background(), CreateHostelCommand{Draft: draft("Alpha", "1200")})
	assert.ErrorIs(t, err, domainhostels.ErrImageRequired)

	_, err = h.Handle(context.Background(), CreateHostelCommand{Draft: draft("", "x"), Images: []Image{jpeg("a.jpg")}})
	assert.ErrorIs(t, err, domainhostels.ErrValidation)
	assert.Empty(t, f.images.keys)
}

func TestCreateHostel_UploadFailureStoresNothing(t *testing.T) {
	f := newFixture()
	f.images.err = errors.New("bucket gone")
	h := &CreateHostelHandler{Writer: f.writer}

	_, err := h.Handle(context.Background(), CreateHostelCommand{Draft: draft("Alpha", "1200"), Images: []Image{jpeg("a.jpg")}})
	require.Error(t, err)

	items, err := f.hostels.ListNewestFirst(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUpdateHostel_ReplacesAttributesAndAppendsImages(t *testing.T) {
	f := newFixture()
	id := f.create(t, "Alpha", "1200")

	next := draft("Alpha Annex", "900")
	next.RoomTypes = []string{"double", "suite"}
	next.RoomPrices = map[string]string{"double": "900", "suite": "2500"}

	h := &UpdateHostelHandler{Writer: f.writer}
	detail, err := h.Handle(context.Background(), UpdateHostelCommand{ID: id, Draft: next, Images: []Image{jpeg("side.jpg")}})
	require.NoError(t, err)
	assert.Equal(t, "Alpha Annex", detail.Name)
	assert.Len(t, detail.Images, 2)

	rooms, err := f.rooms.ByHostelIDs(context.Background(), []domainhostels.HostelID{domainhostels.HostelID(id)})
	require.NoError(t, err)
	kinds := []domainhostels.RoomKind{}
	for _, room := range rooms {
		kinds = append(kinds, room.Kind)
	}
	assert.ElementsMatch(t, []domainhostels.RoomKind{domainhostels.RoomDouble, domainhostels.RoomSuite}, kinds)
}

func TestUpdateHostel_UnknownID(t *testing.T) {
	f := newFixture()
	h := &UpdateHostelHandler{Writer: f.writer}
	_, err := h.Handle(context.Background(), UpdateHostelCommand{ID: "missing", Draft: draft("A", "1")})
	assert.ErrorIs(t, err, domainhostels.ErrNotFound)
}

func TestDeleteHostel_RemovesHostelAndRooms(t *testing.T) {
	f := newFixture()
	id := f.create(t, "Alpha", "1200")

	h := &DeleteHostelHandler{Writer: f.writer}
	_, err := h.Handle(context.Background(), DeleteHostelCommand{ID: id})
	require.NoError(t, err)

	_, err = f.hostels.ByID(context.Background(), domainhostels.HostelID(id))
	assert.ErrorIs(t, err, domainhostels.ErrNotFound)
	rooms, err := f.rooms.ByHostelIDs(context.Background(), []domainhostels.HostelID{domainhostels.HostelID(id)})
	require.NoError(t, err)
	assert.Empty(t, rooms)
	assert.Equal(t, 2, f.box.Pending())

	_, err = h.Handle(context.Background(), DeleteHostelCommand{ID: " "})
	assert.ErrorIs(t, err, domainhostels.ErrIDRequired)
}

func TestListHostels_FiltersNewestFirst(t *testing.T) {
	f := newFixture()
	f.create(t, "Alpha Hostel", "1200")
	f.create(t, "Beta Lodge", "1800")
	f.create(t, "Gamma Hostel", "2000")

	h := &ListHostelsHandler{UoWFactory: f.factory}
	criteria, err := domainhostels.ParseCriteria("hostel", "1500", "")
	require.NoError(t, err)

	catalog, err := h.Handle(context.Background(), ListHostelsQuery{Criteria: criteria})
	require.NoError(t, err)
	assert.Equal(t, 3, catalog.Total)
	require.Equal(t, 1, catalog.Count)
	assert.Equal(t, "Gamma Hostel", catalog.Items[0].Name)
	require.Len(t, catalog.Items[0].RoomTypes, 1)
	assert.Empty(t, catalog.Notices)

	all, err := h.Handle(context.Background(), ListHostelsQuery{Criteria: domainhostels.AnyCriteria()})
	require.NoError(t, err)
	require.Len(t, all.Items, 3)
	assert.Equal(t, "Gamma Hostel", all.Items[0].Name)
	assert.Equal(t, "Alpha Hostel", all.Items[2].Name)
}

func TestListHostels_UnfilteredKeepsUnpricedHostels(t *testing.T) {
	f := newFixture()
	id := f.create(t, "Alpha", "1200")
	stored, err := f.hostels.ByID(context.Background(), domainhostels.HostelID(id))
	require.NoError(t, err)
	stored.Price = "call us"
	require.NoError(t, f.hostels.Save(context.Background(), stored))

	h := &ListHostelsHandler{UoWFactory: f.factory}
	filtered, err := h.Handle(context.Background(), ListHostelsQuery{Criteria: domainhostels.AnyCriteria()})
	require.NoError(t, err)
	assert.Empty(t, filtered.Items)

	all, err := h.Handle(context.Background(), ListHostelsQuery{Unfiltered: true})
	require.NoError(t, err)
	assert.Len(t, all.Items, 1)
}

func TestListHostels_ReadFailuresBecomeNotices(t *testing.T) {
	f := newFixture()
	f.create(t, "Alpha", "1200")

	broken := f.factory
	broken.HostelsRepo = failingHostels{Repository: f.hostels}
	catalog, err := (&ListHostelsHandler{UoWFactory: broken}).Handle(context.Background(), ListHostelsQuery{Criteria: domainhostels.AnyCriteria()})
	require.NoError(t, err)
	assert.Empty(t, catalog.Items)
	assert.Equal(t, []string{NoticeHostelsUnavailable}, catalog.Notices)

	broken = f.factory
	broken.RoomTypesRepo = failingRooms{RoomTypeRepository: f.rooms}
	catalog, err = (&ListHostelsHandler{UoWFactory: broken}).Handle(context.Background(), ListHostelsQuery{Criteria: domainhostels.AnyCriteria()})
	require.NoError(t, err)
	require.Len(t, catalog.Items, 1)
	assert.Empty(t, catalog.Items[0].RoomTypes)
	assert.Equal(t, []string{NoticeRoomTypesUnavailable}, catalog.Notices)
}

func TestGetHostel_ReturnsPrefilledDraft(t *testing.T) {
	f := newFixture()
	id := f.create(t, "Alpha", "1200")

	detail, err := (&GetHostelHandler{UoWFactory: f.factory}).Handle(context.Background(), GetHostelQuery{ID: id})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", detail.Draft.Name)
	assert.Equal(t, []string{"single"}, detail.Draft.RoomTypes)
	assert.Equal(t, "1200", detail.Draft.RoomPrices["single"])

	_, err = (&GetHostelHandler{UoWFactory: f.factory}).Handle(context.Background(), GetHostelQuery{ID: ""})
	assert.ErrorIs(t, err, domainhostels.ErrIDRequired)
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("a/b c", "photo.JPEG", "application/octet-stream")
	assert.True(t, strings.HasPrefix(key, "hostels/a-b-c/"))
	assert.True(t, strings.HasSuffix(key, ".jpeg"))
	assert.True(t, strings.HasSuffix(ObjectKey("x", "noext", ""), ".img"))
}
