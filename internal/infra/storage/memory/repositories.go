package memory

import (
	"context"
	"sort"
	"sync"

	domainhostels "hostelfinder/internal/domain/hostels"
	domainprofile "hostelfinder/internal/domain/profile"
	domainuser "hostelfinder/internal/domain/user"
)

// HostelRepository keeps hostel records in memory. Room types live in
// RoomTypeRepository and are never stored here.
type HostelRepository struct {
	mu    sync.RWMutex
	items map[domainhostels.HostelID]domainhostels.Hostel
}

func NewHostelRepository() *HostelRepository {
	return &HostelRepository{items: make(map[domainhostels.HostelID]domainhostels.Hostel)}
}

func (r *HostelRepository) ByID(ctx context.Context, id domainhostels.HostelID) (*domainhostels.Hostel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domainhostels.ErrNotFound
	}
	clone := item.Clone()
	return &clone, nil
}

// ListNewestFirst orders by creation time descending, then by id.
func (r *HostelRepository) ListNewestFirst(ctx context.Context) ([]*domainhostels.Hostel, error) {
	r.mu.RLock()
	out := make([]*domainhostels.Hostel, 0, len(r.items))
	for _, item := range r.items {
		clone := item.Clone()
		out = append(out, &clone)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *HostelRepository) Save(ctx context.Context, hostel *domainhostels.Hostel) error {
	if hostel == nil || hostel.ID == "" {
		return domainhostels.ErrIDRequired
	}
	stored := hostel.Clone()
	stored.RoomTypes = nil
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[hostel.ID] = stored
	return nil
}

func (r *HostelRepository) Delete(ctx context.Context, id domainhostels.HostelID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domainhostels.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type RoomTypeRepository struct {
	mu       sync.RWMutex
	byHostel map[domainhostels.HostelID][]domainhostels.RoomType
}

func NewRoomTypeRepository() *RoomTypeRepository {
	return &RoomTypeRepository{byHostel: make(map[domainhostels.HostelID][]domainhostels.RoomType)}
}

// ByHostelIDs returns the room types of the given hostels grouped in ids order.
func (r *RoomTypeRepository) ByHostelIDs(ctx context.Context, ids []domainhostels.HostelID) ([]domainhostels.RoomType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domainhostels.RoomType
	for _, id := range ids {
		out = append(out, r.byHostel[id]...)
	}
	return out, nil
}

func (r *RoomTypeRepository) ReplaceForHostel(ctx context.Context, id domainhostels.HostelID, rooms []domainhostels.RoomType) error {
	if id == "" {
		return domainhostels.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(rooms) == 0 {
		delete(r.byHostel, id)
		return nil
	}
	r.byHostel[id] = append([]domainhostels.RoomType(nil), rooms...)
	return nil
}

func (r *RoomTypeRepository) DeleteForHostel(ctx context.Context, id domainhostels.HostelID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byHostel, id)
	return nil
}

type ProfileRepository struct {
	mu    sync.RWMutex
	items map[domainuser.ID]domainprofile.Profile
}

func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{items: make(map[domainuser.ID]domainprofile.Profile)}
}

func (r *ProfileRepository) ByUserID(ctx context.Context, id domainuser.ID) (*domainprofile.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, domainprofile.ErrNotFound
	}
	return &p, nil
}

func (r *ProfileRepository) Save(ctx context.Context, profile *domainprofile.Profile) error {
	if profile == nil || profile.UserID == "" {
		return domainprofile.ErrUserRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[profile.UserID] = *profile
	return nil
}

var (
	_ domainhostels.Repository         = (*HostelRepository)(nil)
	_ domainhostels.RoomTypeRepository = (*RoomTypeRepository)(nil)
	_ domainprofile.Repository         = (*ProfileRepository)(nil)
)
