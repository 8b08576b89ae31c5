// Package scene turns the visible entity and edge subsets into instanced
// render buffers: one shared node geometry drawn once per visible entity and
// one line-segment buffer for every visible edge.
//
// The arena (the ordered slice of visible entities) is the only index→id
// mapping in the system. Instance transforms, instance colors and pick
// resolution all read from it, so they cannot drift apart.
//
// A Scene is not safe for concurrent use.
package scene

import (
	"decisionmesh/internal/config"
	"decisionmesh/internal/mesh"
)

const (
	TransformStride = 16
	ColorStride     = 3
	VertexStride    = 3
)

// Geometry describes the single mesh every node instance shares.
type Geometry struct {
	Kind   string  `json:"kind"`
	Radius float32 `json:"radius"`
}

type Builder struct {
	Palette    *config.Palette
	NodeRadius float32
}

func NewBuilder(palette *config.Palette, nodeRadius float64) *Builder {
	if palette == nil {
		palette = config.DefaultPalette()
	}
	return &Builder{Palette: palette, NodeRadius: float32(nodeRadius)}
}

type Scene struct {
	palette  *config.Palette
	geometry Geometry

	arena   []mesh.Entity
	slots   map[string]int
	offsets []mesh.Vec3

	transforms []float32
	colors     []float32

	edges         []mesh.Edge
	linePositions []float32
	lineColors    []float32

	selectedID string
	hoveredID  string

	dirty      []int
	dirtyBits  []uint64
	linesDirty bool
	linesStale bool
	version    uint64
}

// Build creates a scene for exactly the given visible entities and edges.
// The cost is proportional to the visible set. An empty input yields a
// valid scene with zero instances and zero line vertices.
func (b *Builder) Build(visible []mesh.Entity, edges []mesh.Edge) *Scene {
	s := &Scene{
		palette:       b.Palette,
		geometry:      Geometry{Kind: "sphere", Radius: b.NodeRadius},
		arena:         make([]mesh.Entity, 0, len(visible)),
		slots:         make(map[string]int, len(visible)),
		offsets:       make([]mesh.Vec3, 0, len(visible)),
		transforms:    make([]float32, 0, len(visible)*TransformStride),
		colors:        make([]float32, 0, len(visible)*ColorStride),
		linePositions: []float32{},
		lineColors:    []float32{},
		edges:         []mesh.Edge{},
	}
	for _, e := range visible {
		s.Show(e)
	}
	s.SetEdges(edges)
	return s
}

func (s *Scene) Geometry() Geometry {
	return s.geometry
}

// Len is the instance count.
func (s *Scene) Len() int {
	return len(s.arena)
}

func (s *Scene) Version() uint64 {
	return s.version
}

// IDAt resolves an instance index to its entity id.
func (s *Scene) IDAt(index int) (string, bool) {
	if index < 0 || index >= len(s.arena) {
		return "", false
	}
	return s.arena[index].ID, true
}

func (s *Scene) IndexOf(id string) (int, bool) {
	i, ok := s.slots[id]
	return i, ok
}

func (s *Scene) Contains(id string) bool {
	_, ok := s.slots[id]
	return ok
}

// Entities returns the arena in instance order. Callers must not modify it.
func (s *Scene) Entities() []mesh.Entity {
	return s.arena
}

func (s *Scene) Edges() []mesh.Edge {
	return s.edges
}

func (s *Scene) EdgeCount() int {
	return len(s.edges)
}

func (s *Scene) LineVertexCount() int {
	return len(s.linePositions) / VertexStride
}

// SeedAt is the idle-motion seed of instance i. It follows the entity, not
// the slot.
func (s *Scene) SeedAt(i int) int {
	return s.arena[i].Seed
}

// Center is the world-space center of instance i including its idle offset.
func (s *Scene) Center(i int) mesh.Vec3 {
	return s.arena[i].Position.Add(s.offsets[i])
}

// InstanceRadius is the bounding radius of instance i after tier scaling.
func (s *Scene) InstanceRadius(i int) float64 {
	return float64(s.geometry.Radius * s.palette.ScaleFor(s.arena[i].Tier))
}

// Show appends e as a new instance. It touches only the new slot; showing an
// entity that is already visible is a no-op.
func (s *Scene) Show(e mesh.Entity) {
	if _, ok := s.slots[e.ID]; ok {
		return
	}
	i := len(s.arena)
	s.arena = append(s.arena, e)
	s.slots[e.ID] = i
	s.offsets = append(s.offsets, mesh.Vec3{})
	s.transforms = append(s.transforms, make([]float32, TransformStride)...)
	s.colors = append(s.colors, 0, 0, 0)
	s.writeTransform(i)
	s.writeColor(i)
	s.markDirty(i)
}

// Hide removes the instance for id by moving the last instance into its
// slot. It touches at most two slots.
func (s *Scene) Hide(id string) bool {
	i, ok := s.slots[id]
	if !ok {
		return false
	}
	last := len(s.arena) - 1
	if i != last {
		s.arena[i] = s.arena[last]
		s.offsets[i] = s.offsets[last]
		copy(s.transforms[i*TransformStride:(i+1)*TransformStride], s.transforms[last*TransformStride:])
		copy(s.colors[i*ColorStride:(i+1)*ColorStride], s.colors[last*ColorStride:])
		s.slots[s.arena[i].ID] = i
		s.markDirty(i)
	}
	delete(s.slots, id)
	s.arena = s.arena[:last]
	s.offsets = s.offsets[:last]
	s.transforms = s.transforms[:last*TransformStride]
	s.colors = s.colors[:last*ColorStride]
	s.dropDirty(last)
	s.version++
	return true
}

// SetEdges replaces the line buffer. Edges with an endpoint outside the
// arena are skipped. Endpoints sit at the instance centers, offsets included.
func (s *Scene) SetEdges(edges []mesh.Edge) {
	s.edges = s.edges[:0]
	s.linePositions = s.linePositions[:0]
	s.lineColors = s.lineColors[:0]
	for _, e := range edges {
		si, ok := s.slots[e.SourceID]
		if !ok {
			continue
		}
		ti, ok := s.slots[e.TargetID]
		if !ok {
			continue
		}
		blend := s.palette.ColorFor(s.arena[si].Category).Mix(s.palette.ColorFor(s.arena[ti].Category))
		s.edges = append(s.edges, e)
		s.linePositions = append(s.linePositions, make([]float32, 2*VertexStride)...)
		s.writeLine(len(s.edges)-1, si, ti)
		s.lineColors = append(s.lineColors, blend[0], blend[1], blend[2], blend[0], blend[1], blend[2])
	}
	s.linesDirty = true
	s.linesStale = false
	s.version++
}

func (s *Scene) writeLine(k, si, ti int) {
	src, dst := s.Center(si), s.Center(ti)
	v := s.linePositions[k*2*VertexStride : (k+1)*2*VertexStride]
	v[0], v[1], v[2] = float32(src.X), float32(src.Y), float32(src.Z)
	v[3], v[4], v[5] = float32(dst.X), float32(dst.Y), float32(dst.Z)
}

// refreshLines moves line endpoints to the current instance centers after
// offsets changed.
func (s *Scene) refreshLines() {
	if !s.linesStale {
		return
	}
	s.linesStale = false
	for k, e := range s.edges {
		si, ok := s.slots[e.SourceID]
		if !ok {
			continue
		}
		ti, ok := s.slots[e.TargetID]
		if !ok {
			continue
		}
		s.writeLine(k, si, ti)
	}
	s.linesDirty = true
}

// SetHighlight recolors only the instances whose highlight state changes.
func (s *Scene) SetHighlight(selectedID, hoveredID string) {
	if selectedID == s.selectedID && hoveredID == s.hoveredID {
		return
	}
	touched := []string{s.selectedID, s.hoveredID, selectedID, hoveredID}
	s.selectedID, s.hoveredID = selectedID, hoveredID
	for _, id := range touched {
		if i, ok := s.slots[id]; ok {
			s.writeColor(i)
			s.markDirty(i)
		}
	}
}

func (s *Scene) Highlight() (selectedID, hoveredID string) {
	return s.selectedID, s.hoveredID
}

// SetOffset moves instance i away from its base position. Lines attached to
// the instance follow on the next Flush or Buffers call.
func (s *Scene) SetOffset(i int, offset mesh.Vec3) {
	if s.offsets[i] == offset {
		return
	}
	s.offsets[i] = offset
	s.writeTransform(i)
	s.markDirty(i)
	if len(s.edges) > 0 {
		s.linesStale = true
	}
}

// Dirty reports whether any instance or the line buffer changed since the
// last Flush.
func (s *Scene) Dirty() bool {
	return len(s.dirty) > 0 || s.linesDirty || s.linesStale
}

// Flush returns the instance indices changed since the previous Flush and
// whether the line buffer changed, then clears both.
func (s *Scene) Flush() (instances []int, lines bool) {
	s.refreshLines()
	instances = s.dirty
	lines = s.linesDirty
	for _, i := range instances {
		s.dirtyBits[i/64] &^= 1 << (uint(i) % 64)
	}
	s.dirty = nil
	s.linesDirty = false
	return instances, lines
}

func (s *Scene) writeTransform(i int) {
	e := s.arena[i]
	scale := s.palette.ScaleFor(e.Tier) * s.geometry.Radius
	p := e.Position.Add(s.offsets[i])
	m := s.transforms[i*TransformStride : (i+1)*TransformStride]
	clear(m)
	m[0], m[5], m[10], m[15] = scale, scale, scale, 1
	m[12], m[13], m[14] = float32(p.X), float32(p.Y), float32(p.Z)
}

func (s *Scene) writeColor(i int) {
	e := s.arena[i]
	color := s.palette.ColorFor(e.Category)
	switch e.ID {
	case s.selectedID:
		color = color.Scale(float32(s.palette.Highlight.Selected))
	case s.hoveredID:
		color = color.Scale(float32(s.palette.Highlight.Hovered))
	}
	copy(s.colors[i*ColorStride:], color[:])
}

func (s *Scene) markDirty(i int) {
	s.version++
	word := i / 64
	for len(s.dirtyBits) <= word {
		s.dirtyBits = append(s.dirtyBits, 0)
	}
	bit := uint64(1) << (uint(i) % 64)
	if s.dirtyBits[word]&bit != 0 {
		return
	}
	s.dirtyBits[word] |= bit
	s.dirty = append(s.dirty, i)
}

func (s *Scene) dropDirty(i int) {
	word := i / 64
	if word >= len(s.dirtyBits) {
		return
	}
	bit := uint64(1) << (uint(i) % 64)
	if s.dirtyBits[word]&bit == 0 {
		return
	}
	s.dirtyBits[word] &^= bit
	for x, idx := range s.dirty {
		if idx == i {
			s.dirty = append(s.dirty[:x], s.dirty[x+1:]...)
			break
		}
	}
}
