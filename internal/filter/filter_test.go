package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"decisionmesh/internal/camera"
	"decisionmesh/internal/config"
	"decisionmesh/internal/mesh"
	"decisionmesh/internal/scene"
	"decisionmesh/internal/selection"
)

func testDataset(t *testing.T) (*mesh.Dataset, []mesh.Edge) {
	t.Helper()
	ds, err := mesh.NewDataset([]mesh.Entity{
		{ID: "a", Category: mesh.CategoryCore},
		{ID: "b", Category: mesh.CategorySecurity},
		{ID: "c", Category: mesh.CategoryCore},
		{ID: "d", Category: mesh.CategoryTesting},
	})
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}
	edges := []mesh.Edge{
		{SourceID: "a", TargetID: "c"},
		{SourceID: "a", TargetID: "b"},
		{SourceID: "c", TargetID: "a"},
		{SourceID: "d", TargetID: "b"},
	}
	return ds, edges
}

func ids(entities []mesh.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.ID
	}
	return out
}

func TestCompute(t *testing.T) {
	ds, edges := testDataset(t)

	t.Run("all", func(t *testing.T) {
		for _, c := range []mesh.Category{mesh.All, ""} {
			v := Compute(ds, edges, c)
			if len(v.Entities) != 4 || len(v.Edges) != 4 || v.Category != mesh.All {
				t.Fatalf("expected everything visible, got %+v", v)
			}
		}
	})

	t.Run("category restricts entities and edges", func(t *testing.T) {
		v := Compute(ds, edges, mesh.CategoryCore)
		if diff := cmp.Diff([]string{"a", "c"}, ids(v.Entities)); diff != "" {
			t.Fatalf("unexpected entities (-want +got):\n%s", diff)
		}
		want := []mesh.Edge{{SourceID: "a", TargetID: "c"}, {SourceID: "c", TargetID: "a"}}
		if diff := cmp.Diff(want, v.Edges); diff != "" {
			t.Fatalf("unexpected edges (-want +got):\n%s", diff)
		}
	})

	t.Run("no match yields empty subsets", func(t *testing.T) {
		v := Compute(ds, edges, mesh.CategoryPrompting)
		if v.Entities == nil || v.Edges == nil || len(v.Entities) != 0 || len(v.Edges) != 0 {
			t.Fatalf("expected empty non-nil subsets, got %#v", v)
		}
	})
}

func TestApply_Idempotent(t *testing.T) {
	ds, edges := testDataset(t)
	store := selection.NewStore(camera.NewPose(10))
	store.SetSelected("a")
	c := NewController(ds, edges, store)

	first := c.Apply(mesh.CategoryCore)
	notified := 0
	store.Subscribe(func(selection.Change) { notified++ })
	second := c.Apply(mesh.CategoryCore)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("filter not idempotent (-first +second):\n%s", diff)
	}
	if id, _ := store.Selected(); id != "a" {
		t.Fatalf("expected valid selection untouched, got %q", id)
	}
	if notified != 0 {
		t.Fatalf("expected no store changes on reapply, got %d", notified)
	}
}

func TestApply_ClearsHiddenSelection(t *testing.T) {
	ds, edges := testDataset(t)
	store := selection.NewStore(camera.NewPose(10))
	c := NewController(ds, edges, store)

	store.SetSelected("b")
	store.SetHovered("b")
	c.Apply(mesh.CategoryCore)

	if _, ok := store.Selected(); ok {
		t.Fatalf("expected selection cleared")
	}
	if _, ok := store.Hovered(); ok {
		t.Fatalf("expected hover cleared")
	}
	if store.ActiveCategory() != mesh.CategoryCore {
		t.Fatalf("expected category recorded, got %q", store.ActiveCategory())
	}
}

func TestSync(t *testing.T) {
	ds, edges := testDataset(t)
	s := scene.NewBuilder(config.DefaultPalette(), 0.3).Build(ds.Entities(), edges)
	s.Flush()

	hidden, shown := Sync(s, Compute(ds, edges, mesh.CategoryCore))
	if hidden != 2 || shown != 0 {
		t.Fatalf("expected 2 hidden 0 shown, got %d %d", hidden, shown)
	}
	if s.Len() != 2 || s.EdgeCount() != 2 {
		t.Fatalf("unexpected scene %d instances %d edges", s.Len(), s.EdgeCount())
	}
	s.Flush()

	hidden, shown = Sync(s, Compute(ds, edges, mesh.CategoryCore))
	if hidden != 0 || shown != 0 || s.Dirty() {
		t.Fatalf("expected reapply to leave the scene untouched")
	}

	hidden, shown = Sync(s, Compute(ds, edges, mesh.All))
	if hidden != 0 || shown != 2 || s.Len() != 4 || s.EdgeCount() != 4 {
		t.Fatalf("unexpected restore: %d %d len=%d edges=%d", hidden, shown, s.Len(), s.EdgeCount())
	}
	dirty, _ := s.Flush()
	if len(dirty) != 2 {
		t.Fatalf("expected only entering instances dirty, got %v", dirty)
	}

	Sync(s, Compute(ds, edges, mesh.CategoryPrompting))
	if s.Len() != 0 || s.LineVertexCount() != 0 {
		t.Fatalf("expected empty scene")
	}
}
