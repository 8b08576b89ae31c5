package view

import (
	"errors"
	"sync"
	"time"

	"decisionmesh/internal/camera"
	"decisionmesh/internal/picking"
	"decisionmesh/internal/scene"
	"decisionmesh/internal/selection"
)

var (
	// ErrContextLost is returned by a Renderer whose GPU context went away.
	// The view skips frames until ContextRestored is called.
	ErrContextLost = errors.New("render context lost")
	// ErrUnsupported reports a missing renderer capability. It is escalated
	// to the host, which decides on a fallback.
	ErrUnsupported = errors.New("renderer feature unsupported")
	ErrClosed      = errors.New("view closed")
)

type FrameInfo struct {
	Frame      uint64
	Time       time.Time
	Camera     camera.Camera
	Viewport   picking.Viewport
	State      selection.State
	Dirty      []int
	LinesDirty bool
}

// Renderer is the GPU boundary. Upload replaces every buffer, Draw presents
// one frame using the dirty ranges in FrameInfo, Release frees everything
// the renderer owns. Upload receives no dirty ranges.
type Renderer interface {
	Upload(s *scene.Scene, f FrameInfo) error
	Draw(s *scene.Scene, f FrameInfo) error
	Release()
}

// Resizer is implemented by renderers that track the viewport size.
type Resizer interface {
	Resize(width, height int) error
}

// HeadlessRenderer keeps counters instead of GPU state. It backs the CLI and
// tests and can simulate context loss.
type HeadlessRenderer struct {
	mu            sync.Mutex
	uploads       int
	draws         int
	released      bool
	lost          bool
	instances     int
	lineVertices  int
	lastDirty     []int
	width, height int
}

func NewHeadlessRenderer() *HeadlessRenderer {
	return &HeadlessRenderer{}
}

func (h *HeadlessRenderer) Upload(s *scene.Scene, _ FrameInfo) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lost {
		return ErrContextLost
	}
	h.uploads++
	h.released = false
	h.instances = s.Len()
	h.lineVertices = s.LineVertexCount()
	return nil
}

func (h *HeadlessRenderer) Draw(s *scene.Scene, f FrameInfo) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lost {
		return ErrContextLost
	}
	h.draws++
	h.instances = s.Len()
	h.lineVertices = s.LineVertexCount()
	h.lastDirty = append(h.lastDirty[:0], f.Dirty...)
	return nil
}

func (h *HeadlessRenderer) Resize(width, height int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.width, h.height = width, height
	return nil
}

func (h *HeadlessRenderer) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released = true
}

// LoseContext makes every call fail with ErrContextLost until RestoreContext.
func (h *HeadlessRenderer) LoseContext() {
	h.mu.Lock()
	h.lost = true
	h.mu.Unlock()
}

func (h *HeadlessRenderer) RestoreContext() {
	h.mu.Lock()
	h.lost = false
	h.mu.Unlock()
}

type RenderStats struct {
	Uploads      int
	Draws        int
	Released     bool
	Instances    int
	LineVertices int
	LastDirty    []int
	Width        int
	Height       int
}

func (h *HeadlessRenderer) Stats() RenderStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return RenderStats{
		Uploads:      h.uploads,
		Draws:        h.draws,
		Released:     h.released,
		Instances:    h.instances,
		LineVertices: h.lineVertices,
		LastDirty:    append([]int(nil), h.lastDirty...),
		Width:        h.width,
		Height:       h.height,
	}
}
