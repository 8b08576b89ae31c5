// Package selection holds the view state shared between the 3D view and
// the surrounding UI. It carries no business logic: plain assignments with
// last-write-wins semantics plus change notification.
package selection

import (
	"sync"

	"github.com/google/uuid"

	"decisionmesh/internal/camera"
	"decisionmesh/internal/mesh"
)

type Field string

const (
	FieldSelected Field = "selected"
	FieldHovered  Field = "hovered"
	FieldCategory Field = "category"
	FieldCamera   Field = "camera"
)

// State is a copy of the store contents. Empty ids mean "nothing".
type State struct {
	SelectedID     string        `json:"selected_id,omitempty"`
	HoveredID      string        `json:"hovered_id,omitempty"`
	ActiveCategory mesh.Category `json:"active_category"`
	CameraPose     camera.Pose   `json:"camera_pose"`
}

type Change struct {
	Field Field `json:"field"`
	State State `json:"state"`
}

type Listener func(Change)

type Store struct {
	mu        sync.RWMutex
	state     State
	listeners map[uuid.UUID]Listener
	order     []uuid.UUID
}

func NewStore(pose camera.Pose) *Store {
	return &Store{
		state:     State{ActiveCategory: mesh.All, CameraPose: pose},
		listeners: make(map[uuid.UUID]Listener),
	}
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Selected() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SelectedID, s.state.SelectedID != ""
}

// SetSelected stores id as the selection; the empty id deselects.
func (s *Store) SetSelected(id string) {
	s.update(FieldSelected, func(st *State) bool {
		if st.SelectedID == id {
			return false
		}
		st.SelectedID = id
		return true
	})
}

func (s *Store) ClearSelected() {
	s.SetSelected("")
}

func (s *Store) Hovered() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.HoveredID, s.state.HoveredID != ""
}

func (s *Store) SetHovered(id string) {
	s.update(FieldHovered, func(st *State) bool {
		if st.HoveredID == id {
			return false
		}
		st.HoveredID = id
		return true
	})
}

func (s *Store) ActiveCategory() mesh.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ActiveCategory
}

// SetActiveCategory stores the filter. The empty category is stored as mesh.All.
func (s *Store) SetActiveCategory(c mesh.Category) {
	if c.IsAll() {
		c = mesh.All
	}
	s.update(FieldCategory, func(st *State) bool {
		if st.ActiveCategory == c {
			return false
		}
		st.ActiveCategory = c
		return true
	})
}

func (s *Store) CameraPose() camera.Pose {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CameraPose
}

func (s *Store) SetCameraPose(p camera.Pose) {
	s.update(FieldCamera, func(st *State) bool {
		if st.CameraPose == p {
			return false
		}
		st.CameraPose = p
		return true
	})
}

// Subscribe registers fn for every subsequent change and returns the
// function that removes it. Listeners run synchronously on the mutating
// goroutine, outside the store lock, in subscription order.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	id := uuid.New()
	s.mu.Lock()
	s.listeners[id] = fn
	s.order = append(s.order, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
			for i, existing := range s.order {
				if existing == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (s *Store) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

func (s *Store) update(field Field, apply func(*State) bool) {
	s.mu.Lock()
	if !apply(&s.state) {
		s.mu.Unlock()
		return
	}
	change := Change{Field: field, State: s.state}
	listeners := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
}
