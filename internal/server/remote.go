package server

import (
	"sort"
	"sync"
	"time"

	"decisionmesh/internal/scene"
	"decisionmesh/internal/view"
)

var _ view.Renderer = (*RemoteRenderer)(nil)

// RemoteRenderer presents frames by streaming buffers to websocket clients.
// Upload sends the whole scene; Draw accumulates dirty instances and pushes
// them at most once per interval.
type RemoteRenderer struct {
	hub      *Hub
	interval time.Duration
	now      func() time.Time

	mu           sync.Mutex
	pending      map[int]struct{}
	linesPending bool
	lastPush     time.Time
	lastCount    int
	lastView     [16]float32
	pushes       int
}

func NewRemoteRenderer(hub *Hub, interval time.Duration) *RemoteRenderer {
	return &RemoteRenderer{
		hub:      hub,
		interval: interval,
		now:      time.Now,
		pending:  make(map[int]struct{}),
	}
}

func (r *RemoteRenderer) Upload(s *scene.Scene, f view.FrameInfo) error {
	snap := view.NewSceneSnapshot(s, f)
	r.mu.Lock()
	clear(r.pending)
	r.linesPending = false
	r.lastCount = snap.Buffers.InstanceCount
	r.mu.Unlock()

	r.hub.Broadcast(ServerMessage{Type: msgScene, Scene: &snap})
	return nil
}

func (r *RemoteRenderer) Draw(s *scene.Scene, f view.FrameInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, i := range f.Dirty {
		r.pending[i] = struct{}{}
	}
	r.linesPending = r.linesPending || f.LinesDirty

	// New sessions start from a full snapshot, so nothing queued for an
	// empty hub is worth keeping.
	if r.hub.Len() == 0 {
		clear(r.pending)
		r.linesPending = false
		r.lastCount = s.Len()
		return nil
	}
	now := r.now()
	if !r.lastPush.IsZero() && now.Sub(r.lastPush) < r.interval {
		return nil
	}
	viewMatrix := f.Camera.ViewMatrix()
	if len(r.pending) == 0 && !r.linesPending && s.Len() == r.lastCount && viewMatrix == r.lastView {
		return nil
	}

	indices := make([]int, 0, len(r.pending))
	for i := range r.pending {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	payload := &FramePayload{
		Frame:         f.Frame,
		Version:       s.Version(),
		InstanceCount: s.Len(),
		View:          viewMatrix,
		Projection:    f.Camera.ProjectionMatrix(),
		Updates:       s.Updates(indices),
	}
	if r.linesPending || s.Len() != r.lastCount {
		buffers := s.Buffers()
		payload.IDs = buffers.IDs
		payload.LinePositions = buffers.LinePositions
		payload.LineColors = buffers.LineColors
	}

	r.hub.Broadcast(ServerMessage{Type: msgFrame, Frame: payload})
	clear(r.pending)
	r.linesPending = false
	r.lastCount = s.Len()
	r.lastView = viewMatrix
	r.lastPush = now
	r.pushes++
	return nil
}

func (r *RemoteRenderer) Release() {
	r.mu.Lock()
	clear(r.pending)
	r.linesPending = false
	r.mu.Unlock()
	r.hub.Broadcast(ServerMessage{Type: msgReleased})
}

// Pushes is the number of frame messages broadcast so far.
func (r *RemoteRenderer) Pushes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushes
}
