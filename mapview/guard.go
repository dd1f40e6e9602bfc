package mapview

import "sync"

// Guard turns drag-to-pan off while the pointer is outside the map,
// so scrolling the page doesn't move the map.
// Pointer events are only honoured while the guard is attached to a mounted view.
type Guard struct {
	mu       sync.Mutex
	dragging bool
	attached int
}

func NewGuard() *Guard {
	return &Guard{dragging: true}
}

// Attach starts listening to pointer events; call the returned func to stop
func (g *Guard) Attach() (release func()) {
	g.mu.Lock()
	g.attached++
	g.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.attached--
			g.mu.Unlock()
		})
	}
}

func (g *Guard) Attached() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attached > 0
}

// PointerEnter re-enables dragging. changed is false for repeated or ignored events.
func (g *Guard) PointerEnter() (changed bool) {
	return g.setDragging(true)
}

// PointerLeave disables dragging
func (g *Guard) PointerLeave() (changed bool) {
	return g.setDragging(false)
}

func (g *Guard) DraggingEnabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dragging
}

func (g *Guard) setDragging(enabled bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.attached == 0 || g.dragging == enabled {
		return false
	}
	g.dragging = enabled
	return true
}
