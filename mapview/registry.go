package mapview

import (
	"errors"
	"sort"
	"time"

	"travellog/models"
	"travellog/utils"

	cmap "github.com/orcaman/concurrent-map/v2"
)

var ErrViewNotFound = errors.New("map view not found")

// Registry keeps the mounted views of all users, a user may have more than one (several tabs).
// At most maxPerOwner views are kept per user (0 means no limit).
type Registry struct {
	views       cmap.ConcurrentMap[string, *View]
	maxPerOwner int
}

func NewRegistry(maxPerOwner int) *Registry {
	return &Registry{views: cmap.New[*View](), maxPerOwner: maxPerOwner}
}

// Mount creates a mounted view showing entries. When the owner is over the limit
// its least recently active views are unmounted.
func (r *Registry) Mount(ownerID string, opt Options, entries []models.TravelLog) *View {
	view := NewView(utils.Rand8BytesToBase62(), ownerID, opt)
	view.Mount()
	view.SetEntries(entries)
	r.views.Set(view.ID, view)
	if r.maxPerOwner > 0 {
		r.evict(ownerID, view.ID)
	}
	return view
}

func (r *Registry) evict(ownerID, keepID string) {
	owned := r.ownedBy(ownerID)
	if len(owned) <= r.maxPerOwner {
		return
	}
	streaming := make(map[string]bool, len(owned))
	for _, view := range owned {
		streaming[view.ID] = view.Streaming()
	}
	// views with an open stream go last
	sort.Slice(owned, func(i, j int) bool {
		if streaming[owned[i].ID] != streaming[owned[j].ID] {
			return !streaming[owned[i].ID]
		}
		return owned[i].LastActive().Before(owned[j].LastActive())
	})
	excess := len(owned) - r.maxPerOwner
	for _, view := range owned {
		if excess == 0 {
			break
		}
		if view.ID == keepID {
			continue
		}
		if r.Unmount(view.ID, ownerID) == nil {
			excess--
		}
	}
}

// SweepIdle unmounts views without a stream that saw no client operation for maxIdle
func (r *Registry) SweepIdle(now time.Time, maxIdle time.Duration) int {
	count := 0
	for item := range r.views.IterBuffered() {
		view := item.Val
		if view.Streaming() || now.Sub(view.LastActive()) <= maxIdle {
			continue
		}
		if r.Unmount(view.ID, view.OwnerID) == nil {
			count++
		}
	}
	return count
}

// Get only returns views owned by ownerID, anything else is reported as not found
func (r *Registry) Get(id, ownerID string) (*View, error) {
	view, ok := r.views.Get(id)
	if !ok || view.OwnerID != ownerID {
		return nil, ErrViewNotFound
	}
	return view, nil
}

func (r *Registry) Unmount(id, ownerID string) error {
	var removedView *View
	removed := r.views.RemoveCb(id, func(key string, view *View, exists bool) bool {
		if exists && view.OwnerID == ownerID {
			removedView = view
			return true
		}
		return false
	})
	if !removed {
		return ErrViewNotFound
	}
	removedView.Unmount()
	return nil
}

// UnmountOwner drops every view of a user (sign out, account deletion)
func (r *Registry) UnmountOwner(ownerID string) int {
	count := 0
	for _, view := range r.ownedBy(ownerID) {
		if r.Unmount(view.ID, ownerID) == nil {
			count++
		}
	}
	return count
}

// RefreshOwner pushes a new entry set to all views of a user, they reframe right away
func (r *Registry) RefreshOwner(ownerID string, entries []models.TravelLog) {
	for _, view := range r.ownedBy(ownerID) {
		view.SetEntries(entries)
	}
}

func (r *Registry) Count() int {
	return r.views.Count()
}

func (r *Registry) ownedBy(ownerID string) (result []*View) {
	for item := range r.views.IterBuffered() {
		if item.Val.OwnerID == ownerID {
			result = append(result, item.Val)
		}
	}
	return
}
