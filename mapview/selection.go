package mapview

import (
	"sync"

	"travellog/geo"
)

// SelectionState is either unselected, or a point the user clicked.
// Place is filled in later by reverse geocoding, when enabled.
type SelectionState struct {
	Selected bool       `json:"selected"`
	Point    *geo.LatLng `json:"point,omitempty"`
	Place    string     `json:"place,omitempty"`
}

type selectionSubscriber struct {
	id int
	fn func(SelectionState)
}

// Selection holds the single selected point of one map view.
// Subscribers are called in subscription order after every change.
type Selection struct {
	mu          sync.Mutex
	state       SelectionState
	subscribers []selectionSubscriber
	nextID      int
}

func NewSelection() *Selection {
	return &Selection{}
}

func (s *Selection) Get() SelectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyState()
}

// Set overwrites any previous selection, no validation on purpose: any clicked point is accepted
func (s *Selection) Set(p geo.LatLng) {
	s.mu.Lock()
	s.state = SelectionState{Selected: true, Point: &p}
	s.notify()
}

func (s *Selection) Clear() {
	s.mu.Lock()
	if !s.state.Selected {
		s.mu.Unlock()
		return
	}
	s.state = SelectionState{}
	s.notify()
}

// Annotate attaches a place name, but only if p is still the selected point
func (s *Selection) Annotate(p geo.LatLng, place string) bool {
	s.mu.Lock()
	if !s.state.Selected || *s.state.Point != p || s.state.Place == place {
		s.mu.Unlock()
		return false
	}
	s.state.Place = place
	s.notify()
	return true
}

// Subscribe returns the function removing the subscription
func (s *Selection) Subscribe(fn func(SelectionState)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.subscribers = append(s.subscribers, selectionSubscriber{id: id, fn: fn})
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subscribers {
				if sub.id == id {
					s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Selection) copyState() SelectionState {
	state := s.state
	if state.Point != nil {
		p := *state.Point
		state.Point = &p
	}
	return state
}

// notify must be called with s.mu held, it unlocks before calling subscribers
func (s *Selection) notify() {
	state := s.copyState()
	subscribers := append([]selectionSubscriber(nil), s.subscribers...)
	s.mu.Unlock()
	for _, sub := range subscribers {
		sub.fn(state)
	}
}
