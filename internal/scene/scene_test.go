package scene

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"decisionmesh/internal/config"
	"decisionmesh/internal/mesh"
)

func testEntities() []mesh.Entity {
	return []mesh.Entity{
		{ID: "a", Category: mesh.CategoryCore, Tier: mesh.TierLow, Position: mesh.Vec3{X: 1}},
		{ID: "b", Category: mesh.CategorySecurity, Tier: mesh.TierCritical, Position: mesh.Vec3{Y: 2}},
		{ID: "c", Category: "astrology", Tier: mesh.TierMedium, Position: mesh.Vec3{Z: 3}},
	}
}

func testBuilder() *Builder {
	return NewBuilder(config.DefaultPalette(), 0.5)
}

func TestBuild(t *testing.T) {
	edges := []mesh.Edge{{SourceID: "a", TargetID: "b"}, {SourceID: "b", TargetID: "ghost"}}
	s := testBuilder().Build(testEntities(), edges)

	if s.Len() != 3 {
		t.Fatalf("expected 3 instances, got %d", s.Len())
	}
	for i, want := range []string{"a", "b", "c"} {
		if id, ok := s.IDAt(i); !ok || id != want {
			t.Fatalf("instance %d: expected %s, got %s", i, want, id)
		}
	}
	if s.EdgeCount() != 1 || s.LineVertexCount() != 2 {
		t.Fatalf("expected one visible edge, got %d edges %d vertices", s.EdgeCount(), s.LineVertexCount())
	}

	b := s.Buffers()
	if len(b.Transforms) != 3*TransformStride || len(b.Colors) != 3*ColorStride {
		t.Fatalf("unexpected buffer sizes %d %d", len(b.Transforms), len(b.Colors))
	}
	p := config.DefaultPalette()
	// b is critical: scale = tier scale * node radius.
	if got, want := b.Transforms[1*TransformStride], p.ScaleFor(mesh.TierCritical)*0.5; got != want {
		t.Fatalf("expected scale %v, got %v", want, got)
	}
	if b.Transforms[1*TransformStride+13] != 2 {
		t.Fatalf("expected translation y=2, got %v", b.Transforms[1*TransformStride+13])
	}
	neutral := p.NeutralColor()
	if diff := cmp.Diff(neutral[:], b.Colors[6:9]); diff != "" {
		t.Fatalf("expected neutral color for unknown category (-want +got):\n%s", diff)
	}
	blend := p.ColorFor(mesh.CategoryCore).Mix(p.ColorFor(mesh.CategorySecurity))
	if diff := cmp.Diff(append(blend[:], blend[:]...), b.LineColors); diff != "" {
		t.Fatalf("unexpected line colors (-want +got):\n%s", diff)
	}
}

func TestBuild_Empty(t *testing.T) {
	s := testBuilder().Build(nil, nil)
	if s.Len() != 0 || s.LineVertexCount() != 0 || s.EdgeCount() != 0 {
		t.Fatalf("expected empty scene")
	}
	b := s.Buffers()
	if b.Transforms == nil || b.Colors == nil || b.LinePositions == nil || b.LineColors == nil {
		t.Fatalf("expected non-nil empty buffers: %+v", b)
	}
	if _, ok := s.IDAt(0); ok {
		t.Fatalf("expected no instance at 0")
	}
}

func TestHide_SwapsLastIntoSlot(t *testing.T) {
	s := testBuilder().Build(testEntities(), nil)
	s.Flush()

	if !s.Hide("a") {
		t.Fatalf("expected hide to succeed")
	}
	if s.Hide("a") {
		t.Fatalf("expected second hide to be a no-op")
	}
	if id, _ := s.IDAt(0); id != "c" {
		t.Fatalf("expected c moved into slot 0, got %s", id)
	}
	if i, ok := s.IndexOf("c"); !ok || i != 0 {
		t.Fatalf("expected c at index 0, got %d", i)
	}
	if s.Contains("a") {
		t.Fatalf("expected a to be gone")
	}
	// the moved instance's transform follows it.
	if got := s.Buffers().Transforms[14]; got != 3 {
		t.Fatalf("expected c's z translation in slot 0, got %v", got)
	}
	dirty, _ := s.Flush()
	if diff := cmp.Diff([]int{0}, dirty); diff != "" {
		t.Fatalf("expected only the refilled slot dirty (-want +got):\n%s", diff)
	}
}

func TestShowHide_TouchesOnlyChangedInstances(t *testing.T) {
	entities := testEntities()
	s := testBuilder().Build(entities[:2], nil)
	s.Flush()

	s.Show(entities[2])
	s.Show(entities[2])
	dirty, _ := s.Flush()
	if diff := cmp.Diff([]int{2}, dirty); diff != "" {
		t.Fatalf("unexpected dirty set (-want +got):\n%s", diff)
	}

	s.Hide("c")
	dirty, _ = s.Flush()
	if len(dirty) != 0 {
		t.Fatalf("hiding the last instance should not dirty others, got %v", dirty)
	}
}

func TestSetHighlight(t *testing.T) {
	p := config.DefaultPalette()
	s := testBuilder().Build(testEntities(), nil)
	s.Flush()

	s.SetHighlight("a", "b")
	dirty, _ := s.Flush()
	sort.Ints(dirty)
	if diff := cmp.Diff([]int{0, 1}, dirty); diff != "" {
		t.Fatalf("unexpected dirty set (-want +got):\n%s", diff)
	}
	b := s.Buffers()
	selected := p.ColorFor(mesh.CategoryCore).Scale(float32(p.Highlight.Selected))
	if diff := cmp.Diff(selected[:], b.Colors[0:3]); diff != "" {
		t.Fatalf("unexpected selected color (-want +got):\n%s", diff)
	}
	hovered := p.ColorFor(mesh.CategorySecurity).Scale(float32(p.Highlight.Hovered))
	if diff := cmp.Diff(hovered[:], b.Colors[3:6]); diff != "" {
		t.Fatalf("unexpected hovered color (-want +got):\n%s", diff)
	}

	s.SetHighlight("a", "b")
	if s.Dirty() {
		t.Fatalf("expected unchanged highlight to leave scene clean")
	}

	s.SetHighlight("", "")
	dirty, _ = s.Flush()
	if len(dirty) != 2 {
		t.Fatalf("expected both instances restored, got %v", dirty)
	}
}

func TestSetOffset(t *testing.T) {
	s := testBuilder().Build(testEntities(), nil)
	s.Flush()
	s.SetOffset(1, mesh.Vec3{Y: 0.25})
	if got := s.Center(1); got != (mesh.Vec3{Y: 2.25}) {
		t.Fatalf("unexpected center %+v", got)
	}
	updates := s.Updates([]int{1, 99})
	if len(updates) != 1 || updates[0].ID != "b" || updates[0].Transform[13] != 2.25 {
		t.Fatalf("unexpected updates %+v", updates)
	}
	dirty, lines := s.Flush()
	if len(dirty) != 1 || lines {
		t.Fatalf("expected one dirty instance and clean lines, got %v %v", dirty, lines)
	}
}

func TestSetOffset_LinesFollowCenters(t *testing.T) {
	s := testBuilder().Build(testEntities(), []mesh.Edge{{SourceID: "a", TargetID: "b"}})
	s.Flush()

	s.SetOffset(1, mesh.Vec3{Y: 0.5})
	if !s.Dirty() {
		t.Fatalf("expected scene dirty after offset")
	}
	_, lines := s.Flush()
	if !lines {
		t.Fatalf("expected lines dirty after moving an endpoint")
	}
	want := []float32{1, 0, 0, 0, 2.5, 0}
	if diff := cmp.Diff(want, s.Buffers().LinePositions); diff != "" {
		t.Fatalf("line endpoints (-want +got):\n%s", diff)
	}

	s.SetOffset(0, mesh.Vec3{Y: -0.25})
	b := s.Buffers()
	if b.LinePositions[1] != -0.25 || b.Transforms[13] != -0.25 {
		t.Fatalf("expected line and instance to agree, got line %v transform %v", b.LinePositions[1], b.Transforms[13])
	}

	s.SetEdges([]mesh.Edge{{SourceID: "b", TargetID: "c"}})
	if got := s.Buffers().LinePositions[1]; got != 2.5 {
		t.Fatalf("expected rebuilt edges to start at the offset center, got %v", got)
	}
}

func TestSetEdges_MarksLinesDirty(t *testing.T) {
	s := testBuilder().Build(testEntities(), nil)
	s.Flush()
	s.SetEdges([]mesh.Edge{{SourceID: "a", TargetID: "c"}, {SourceID: "c", TargetID: "a"}})
	_, lines := s.Flush()
	if !lines {
		t.Fatalf("expected lines dirty")
	}
	if s.LineVertexCount() != 4 {
		t.Fatalf("expected duplicated mutual edges to stay, got %d vertices", s.LineVertexCount())
	}
}
