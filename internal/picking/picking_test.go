package picking

import (
	"testing"

	"decisionmesh/internal/camera"
	"decisionmesh/internal/config"
	"decisionmesh/internal/mesh"
	"decisionmesh/internal/scene"
)

func testCamera() camera.Camera {
	return camera.Camera{Pose: camera.NewPose(10), FovY: 60, Near: 0.1, Far: 100}
}

func snapshotOf(entities []mesh.Entity) *Snapshot {
	s := scene.NewBuilder(config.DefaultPalette(), 0.5).Build(entities, nil)
	return NewSnapshot(s, testCamera(), Viewport{Width: 800, Height: 600})
}

func TestScreenToNDC(t *testing.T) {
	vp := Viewport{Width: 800, Height: 600}
	tests := []struct {
		x, y         float64
		wantX, wantY float64
	}{
		{400, 300, 0, 0},
		{0, 0, -1, 1},
		{800, 600, 1, -1},
	}
	for _, tt := range tests {
		x, y, ok := ScreenToNDC(tt.x, tt.y, vp)
		if !ok || x != tt.wantX || y != tt.wantY {
			t.Fatalf("ScreenToNDC(%v, %v) = %v, %v", tt.x, tt.y, x, y)
		}
	}
	if _, _, ok := ScreenToNDC(1, 1, Viewport{}); ok {
		t.Fatalf("expected zero viewport to fail")
	}
}

func TestPick_SingleEntityAtOrigin(t *testing.T) {
	snap := snapshotOf([]mesh.Entity{{ID: "origin", Category: mesh.CategoryCore, Tier: mesh.TierHigh}})

	hit, ok := snap.Pick(400, 300)
	if !ok || hit.ID != "origin" || hit.Index != 0 {
		t.Fatalf("expected center click to hit origin, got %+v %v", hit, ok)
	}
	if hit.Distance <= 9 || hit.Distance >= 10 {
		t.Fatalf("expected hit on the near surface, got %f", hit.Distance)
	}

	for _, corner := range [][2]float64{{0, 0}, {800, 0}, {0, 600}, {800, 600}} {
		if hit, ok := snap.Pick(corner[0], corner[1]); ok {
			t.Fatalf("expected corner %v to miss, got %+v", corner, hit)
		}
	}
}

func TestPick_NearestWins(t *testing.T) {
	snap := snapshotOf([]mesh.Entity{
		{ID: "far", Position: mesh.Vec3{Z: -5}},
		{ID: "near", Position: mesh.Vec3{Z: 2}},
	})
	hit, ok := snap.Pick(400, 300)
	if !ok || hit.ID != "near" {
		t.Fatalf("expected nearest entity, got %+v", hit)
	}
}

func TestPick_BehindCameraMisses(t *testing.T) {
	snap := snapshotOf([]mesh.Entity{{ID: "behind", Position: mesh.Vec3{Z: 20}}})
	if hit, ok := snap.Pick(400, 300); ok {
		t.Fatalf("expected miss, got %+v", hit)
	}
}

func TestController(t *testing.T) {
	c := NewController()
	if _, ok := c.Pick(400, 300); ok {
		t.Fatalf("expected empty controller to miss")
	}

	c.Publish(snapshotOf(nil))
	if _, ok := c.Pick(400, 300); ok {
		t.Fatalf("expected empty scene to miss")
	}

	c.Publish(snapshotOf([]mesh.Entity{{ID: "x"}}))
	if hit, ok := c.Pick(400, 300); !ok || hit.ID != "x" {
		t.Fatalf("expected hit, got %+v %v", hit, ok)
	}

	c.Publish(nil)
	if _, ok := c.Pick(400, 300); ok {
		t.Fatalf("expected nil publish to reset")
	}
}
