package mapview

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"travellog/geo"
	"travellog/metrics"
	"travellog/models"
)

var (
	ErrInvalidSize    = errors.New("layout size must be positive")
	ErrStreamAttached = errors.New("map view already has a stream")
	ErrViewNotMounted = errors.New("map view is not mounted")
)

type EventType string

const (
	EventCamera    EventType = "camera"
	EventSelection EventType = "selection"
	EventDragging  EventType = "dragging"
)

// Event is pushed to view subscribers, only the field matching Type is set
type Event struct {
	Type      EventType       `json:"type"`
	Camera    *geo.Camera     `json:"camera,omitempty"`
	Skipped   []string        `json:"skipped,omitempty"`
	Selection *SelectionState `json:"selection,omitempty"`
	Dragging  *bool           `json:"dragging,omitempty"`
}

// State is a snapshot of a view
type State struct {
	ID          string         `json:"id"`
	LayoutReady bool           `json:"layout_ready"`
	Camera      *geo.Camera    `json:"camera"`
	Skipped     []string       `json:"skipped"`
	Selection   SelectionState `json:"selection"`
	Dragging    bool           `json:"dragging"`
	Entries     int            `json:"entries"`
}

type viewListener struct {
	id int
	fn func(Event)
}

// View is one mounted map: its entries, camera, selected point and pan guard.
// Every operation runs to completion before the next one starts, listeners are
// called synchronously from within the operation and must not call back into the view.
type View struct {
	ID      string
	OwnerID string
	Options Options

	serial  sync.Mutex
	entries []models.TravelLog
	points  []geo.LatLng
	skipped []string
	size    geo.Size
	camera  *geo.Camera

	selection *Selection
	guard     *Guard
	release   []func()
	streaming bool
	done      chan struct{}
	closeDone sync.Once
	// unix nanos of the last client operation
	lastActive atomic.Int64

	listenersMu sync.Mutex
	listeners   []viewListener
	nextID      int
}

func NewView(id, ownerID string, opt Options) *View {
	v := &View{
		ID:        id,
		OwnerID:   ownerID,
		Options:   opt,
		skipped:   []string{},
		selection: NewSelection(),
		guard:     NewGuard(),
		done:      make(chan struct{}),
	}
	v.touch()
	return v
}

// Mount attaches the pointer guard and starts forwarding selection changes
func (v *View) Mount() {
	v.serial.Lock()
	defer v.serial.Unlock()
	if len(v.release) > 0 {
		return
	}
	v.release = append(v.release,
		v.guard.Attach(),
		v.selection.Subscribe(func(s SelectionState) {
			v.emit(Event{Type: EventSelection, Selection: &s})
		}),
	)
}

// Unmount releases everything Mount acquired, drops all listeners and closes Done
func (v *View) Unmount() {
	v.serial.Lock()
	defer v.serial.Unlock()
	for _, release := range v.release {
		release()
	}
	v.release = nil
	v.closeDone.Do(func() { close(v.done) })

	v.listenersMu.Lock()
	v.listeners = nil
	v.listenersMu.Unlock()
}

func (v *View) Mounted() bool {
	v.serial.Lock()
	defer v.serial.Unlock()
	return len(v.release) > 0
}

// Done is closed once the view is unmounted, streams must stop then
func (v *View) Done() <-chan struct{} {
	return v.done
}

// AttachStream claims the single event stream of a mounted view
func (v *View) AttachStream() (release func(), err error) {
	v.serial.Lock()
	defer v.serial.Unlock()
	if len(v.release) == 0 {
		return nil, ErrViewNotMounted
	}
	if v.streaming {
		return nil, ErrStreamAttached
	}
	v.streaming = true
	var once sync.Once
	return func() {
		once.Do(func() {
			v.serial.Lock()
			v.streaming = false
			v.serial.Unlock()
			v.touch()
		})
	}, nil
}

func (v *View) Streaming() bool {
	v.serial.Lock()
	defer v.serial.Unlock()
	return v.streaming
}

// LastActive is the time of the last client operation on the view
func (v *View) LastActive() time.Time {
	return time.Unix(0, v.lastActive.Load())
}

func (v *View) touch() {
	v.lastActive.Store(time.Now().UnixNano())
}

// SetEntries replaces the entries and reframes. Entries with invalid coordinates are skipped and reported.
func (v *View) SetEntries(entries []models.TravelLog) {
	v.serial.Lock()
	defer v.serial.Unlock()
	v.entries = append([]models.TravelLog(nil), entries...)
	v.points = make([]geo.LatLng, 0, len(entries))
	v.skipped = []string{}
	for _, entry := range entries {
		p := entry.Position()
		if p.Validate() != nil {
			v.skipped = append(v.skipped, entry.ID)
			continue
		}
		v.points = append(v.points, p)
	}
	v.reframe()
}

// LayoutReady is the signal that the drawable area was measured, no camera is produced before it.
// Calling it again (resize) reframes.
func (v *View) LayoutReady(size geo.Size) error {
	if !size.Valid() {
		return ErrInvalidSize
	}
	v.touch()
	v.serial.Lock()
	defer v.serial.Unlock()
	v.size = size
	v.reframe()
	return nil
}

func (v *View) Camera() (geo.Camera, bool) {
	v.serial.Lock()
	defer v.serial.Unlock()
	if v.camera == nil {
		return geo.Camera{}, false
	}
	return *v.camera, true
}

func (v *View) Entries() []models.TravelLog {
	v.serial.Lock()
	defer v.serial.Unlock()
	return append([]models.TravelLog(nil), v.entries...)
}

func (v *View) Click(p geo.LatLng) {
	v.touch()
	v.serial.Lock()
	defer v.serial.Unlock()
	v.selection.Set(p)
}

func (v *View) ClearSelection() {
	v.touch()
	v.serial.Lock()
	defer v.serial.Unlock()
	v.selection.Clear()
}

func (v *View) AnnotateSelection(p geo.LatLng, place string) bool {
	v.serial.Lock()
	defer v.serial.Unlock()
	return v.selection.Annotate(p, place)
}

func (v *View) Selection() SelectionState {
	return v.selection.Get()
}

func (v *View) PointerEnter() {
	v.touch()
	v.serial.Lock()
	defer v.serial.Unlock()
	if v.guard.PointerEnter() {
		v.emitDragging(true)
	}
}

func (v *View) PointerLeave() {
	v.touch()
	v.serial.Lock()
	defer v.serial.Unlock()
	if v.guard.PointerLeave() {
		v.emitDragging(false)
	}
}

func (v *View) DraggingEnabled() bool {
	return v.guard.DraggingEnabled()
}

func (v *View) State() State {
	v.touch()
	v.serial.Lock()
	defer v.serial.Unlock()
	state := State{
		ID:          v.ID,
		LayoutReady: v.size.Valid(),
		Skipped:     append([]string{}, v.skipped...),
		Selection:   v.selection.Get(),
		Dragging:    v.guard.DraggingEnabled(),
		Entries:     len(v.entries),
	}
	if v.camera != nil {
		camera := *v.camera
		state.Camera = &camera
	}
	return state
}

// Subscribe registers fn for all view events, the returned func removes it
func (v *View) Subscribe(fn func(Event)) (unsubscribe func()) {
	v.listenersMu.Lock()
	defer v.listenersMu.Unlock()
	v.nextID++
	id := v.nextID
	v.listeners = append(v.listeners, viewListener{id: id, fn: fn})
	var once sync.Once
	return func() {
		once.Do(func() {
			v.listenersMu.Lock()
			defer v.listenersMu.Unlock()
			for i, l := range v.listeners {
				if l.id == id {
					v.listeners = append(v.listeners[:i:i], v.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// reframe must be called with v.serial held
func (v *View) reframe() {
	if !v.size.Valid() {
		return
	}
	camera := geo.Frame(v.points, v.size, v.Options.Camera)
	v.camera = &camera
	out := camera
	v.emit(Event{Type: EventCamera, Camera: &out, Skipped: append([]string{}, v.skipped...)})
}

func (v *View) emitDragging(enabled bool) {
	v.emit(Event{Type: EventDragging, Dragging: &enabled})
}

func (v *View) emit(e Event) {
	metrics.ViewEventsTotal.WithLabelValues(string(e.Type)).Inc()
	v.listenersMu.Lock()
	listeners := append([]viewListener(nil), v.listeners...)
	v.listenersMu.Unlock()
	for _, l := range listeners {
		l.fn(e)
	}
}
