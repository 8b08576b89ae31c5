package view

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"decisionmesh/internal/animation"
	"decisionmesh/internal/config"
	"decisionmesh/internal/mesh"
	"decisionmesh/internal/scene"
	"decisionmesh/internal/selection"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { close(m.stopped) }

func (m *manualTicker) tick(now time.Time) bool {
	select {
	case m.ch <- now:
		return true
	case <-time.After(50 * time.Millisecond):
		return false
	}
}

func stillConfig() config.ProjectConfig {
	cfg := config.Default()
	off := false
	cfg.Animation.Enabled = &off
	return cfg
}

func mustDataset(t *testing.T, entities ...mesh.Entity) *mesh.Dataset {
	t.Helper()
	ds, err := mesh.NewDataset(entities)
	if err != nil {
		t.Fatalf("building dataset: %v", err)
	}
	return ds
}

func newTestView(t *testing.T, ds *mesh.Dataset, r Renderer, opts Options) *View {
	t.Helper()
	v := New(ds, config.DefaultPalette(), stillConfig(), nil, r, opts)
	t.Cleanup(v.Close)
	return v
}

func TestView_ClickSelectsEntityAtOrigin(t *testing.T) {
	ds := mustDataset(t, mesh.Entity{ID: "a", Label: "A", Category: mesh.CategoryCore, Tier: mesh.TierMedium})
	v := newTestView(t, ds, NewHeadlessRenderer(), Options{})

	if err := v.Frame(time.Now()); err != nil {
		t.Fatalf("unexpected frame error: %v", err)
	}

	hit, ok := v.Click(640, 360)
	if !ok || hit.ID != "a" {
		t.Fatalf("expected hit on a, got %+v ok=%v", hit, ok)
	}
	if id, _ := v.Store().Selected(); id != "a" {
		t.Fatalf("expected a selected, got %q", id)
	}

	if _, ok := v.Click(0, 0); ok {
		t.Fatal("expected corner click to miss")
	}
	if _, ok := v.Store().Selected(); ok {
		t.Fatal("expected miss to deselect")
	}
}

func TestView_PointerMoveSetsHover(t *testing.T) {
	ds := mustDataset(t, mesh.Entity{ID: "a", Category: mesh.CategoryCore})
	v := newTestView(t, ds, NewHeadlessRenderer(), Options{})

	v.PointerMove(640, 360)
	if id, _ := v.Store().Hovered(); id != "a" {
		t.Fatalf("expected a hovered, got %q", id)
	}
	v.PointerMove(5, 5)
	if _, ok := v.Store().Hovered(); ok {
		t.Fatal("expected hover cleared")
	}
}

func TestView_EmptyDataset(t *testing.T) {
	r := NewHeadlessRenderer()
	v := newTestView(t, mustDataset(t), r, Options{})

	if err := v.Frame(time.Now()); err != nil {
		t.Fatalf("unexpected frame error: %v", err)
	}
	if _, ok := v.Pick(640, 360); ok {
		t.Fatal("expected pick on empty scene to miss")
	}
	snap := v.Snapshot()
	if snap.Buffers.InstanceCount != 0 || snap.Buffers.Transforms == nil {
		t.Fatalf("expected empty non-nil buffers, got %+v", snap.Buffers)
	}
	if st := r.Stats(); st.Draws != 1 || st.Uploads != 1 {
		t.Fatalf("expected one upload and one draw, got %+v", st)
	}
}

func TestView_SetFilter(t *testing.T) {
	ds := mustDataset(t,
		mesh.Entity{ID: "core-1", Category: mesh.CategoryCore},
		mesh.Entity{ID: "sec-1", Category: mesh.CategorySecurity, Position: mesh.Vec3{X: 1}},
		mesh.Entity{ID: "sec-2", Category: mesh.CategorySecurity, Position: mesh.Vec3{X: 2}},
	)
	v := newTestView(t, ds, NewHeadlessRenderer(), Options{})

	t.Run("hides selection", func(t *testing.T) {
		if err := v.Select("core-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		visible := v.SetFilter(mesh.CategorySecurity)
		if len(visible.Entities) != 2 {
			t.Fatalf("expected 2 visible, got %d", len(visible.Entities))
		}
		if _, ok := v.Store().Selected(); ok {
			t.Fatal("expected hidden selection to be cleared")
		}
		if err := v.Select("core-1"); err == nil {
			t.Fatal("expected selecting a hidden entity to fail")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		var changes []selection.Change
		unsubscribe := v.Listen(func(c selection.Change) { changes = append(changes, c) })
		defer unsubscribe()

		before := v.Snapshot().Buffers
		v.SetFilter(mesh.CategorySecurity)
		after := v.Snapshot().Buffers
		if len(changes) != 0 {
			t.Fatalf("expected no store changes, got %+v", changes)
		}
		if len(before.IDs) != len(after.IDs) {
			t.Fatalf("expected same instances, got %v and %v", before.IDs, after.IDs)
		}
		for i := range before.IDs {
			if before.IDs[i] != after.IDs[i] {
				t.Fatalf("expected slot %d unchanged, got %q and %q", i, before.IDs[i], after.IDs[i])
			}
		}
	})

	t.Run("all restores", func(t *testing.T) {
		visible := v.SetFilter(mesh.All)
		if len(visible.Entities) != 3 {
			t.Fatalf("expected 3 visible, got %d", len(visible.Entities))
		}
		if got := v.Store().ActiveCategory(); got != mesh.All {
			t.Fatalf("expected all, got %q", got)
		}
	})
}

func TestView_PickResolvesAgainstDrawnFrame(t *testing.T) {
	ds := mustDataset(t,
		mesh.Entity{ID: "a", Category: mesh.CategoryCore},
		mesh.Entity{ID: "s", Category: mesh.CategorySecurity, Position: mesh.Vec3{X: 8}},
	)
	v := newTestView(t, ds, NewHeadlessRenderer(), Options{})
	if err := v.Frame(time.Now()); err != nil {
		t.Fatalf("unexpected frame error: %v", err)
	}

	v.SetFilter(mesh.CategorySecurity)
	if hit, ok := v.Pick(640, 360); !ok || hit.ID != "a" {
		t.Fatalf("expected the drawn frame to still show a, got %+v ok=%v", hit, ok)
	}
	if err := v.Frame(time.Now()); err != nil {
		t.Fatalf("unexpected frame error: %v", err)
	}
	if hit, ok := v.Pick(640, 360); ok {
		t.Fatalf("expected miss once the filtered frame is drawn, got %+v", hit)
	}
}

func TestView_IdleMotionFollowsEntityAcrossFilters(t *testing.T) {
	cfg := config.Default()
	cfg.Animation.OrbitStep = 0
	bob := animation.Bob{Amplitude: 1, Frequency: 1, PhaseStep: 0.9}
	ds := mustDataset(t,
		mesh.Entity{ID: "a", Category: mesh.CategoryCore},
		mesh.Entity{ID: "b", Category: mesh.CategorySecurity, Position: mesh.Vec3{X: 1}},
		mesh.Entity{ID: "c", Category: mesh.CategoryCore, Position: mesh.Vec3{X: 2}},
	)
	v := New(ds, config.DefaultPalette(), cfg, nil, NewHeadlessRenderer(), Options{Motion: bob})
	t.Cleanup(v.Close)

	heightOf := func(id string) float32 {
		t.Helper()
		b := v.Snapshot().Buffers
		for i, got := range b.IDs {
			if got == id {
				return b.Transforms[i*scene.TransformStride+13]
			}
		}
		t.Fatalf("%s not in scene", id)
		return 0
	}

	start := time.Unix(500, 0)
	at := start.Add(200 * time.Millisecond)
	for _, now := range []time.Time{start, at} {
		if err := v.Frame(now); err != nil {
			t.Fatalf("unexpected frame error: %v", err)
		}
	}
	want := float32(bob.Offset(2, 200*time.Millisecond).Y)
	if got := heightOf("c"); got != want {
		t.Fatalf("expected c at %v, got %v", want, got)
	}

	// Hiding b swaps c into b's slot; showing b again appends it after c.
	v.SetFilter(mesh.CategoryCore)
	v.SetFilter(mesh.All)
	if err := v.Frame(at); err != nil {
		t.Fatalf("unexpected frame error: %v", err)
	}
	if ids := v.Snapshot().Buffers.IDs; ids[1] != "c" {
		t.Fatalf("expected c to change slot, got %v", ids)
	}
	if got := heightOf("c"); got != want {
		t.Fatalf("expected c to keep its phase after the filter round trip: want %v, got %v", want, got)
	}
}

func TestView_ContextLoss(t *testing.T) {
	ds := mustDataset(t, mesh.Entity{ID: "a", Category: mesh.CategoryCore})
	r := NewHeadlessRenderer()
	v := newTestView(t, ds, r, Options{})

	if err := v.Frame(time.Now()); err != nil {
		t.Fatalf("unexpected frame error: %v", err)
	}

	r.LoseContext()
	v.ContextLost()
	if err := v.Frame(time.Now()); err != nil {
		t.Fatalf("expected lost frame to be skipped, got %v", err)
	}
	if st := r.Stats(); st.Draws != 1 {
		t.Fatalf("expected no draw while lost, got %d", st.Draws)
	}

	r.RestoreContext()
	v.ContextRestored()
	if v.ContextIsLost() {
		t.Fatal("expected context restored")
	}
	if err := v.Frame(time.Now()); err != nil {
		t.Fatalf("unexpected frame error: %v", err)
	}
	st := r.Stats()
	if st.Uploads != 2 || st.Draws != 2 {
		t.Fatalf("expected full re-upload then draw, got %+v", st)
	}
	if _, ok := v.Pick(640, 360); !ok {
		t.Fatal("expected pick to work after restore")
	}
}

func TestView_DrawContextLossMarksLost(t *testing.T) {
	ds := mustDataset(t, mesh.Entity{ID: "a", Category: mesh.CategoryCore})
	r := NewHeadlessRenderer()
	v := newTestView(t, ds, r, Options{})

	if err := v.Frame(time.Now()); err != nil {
		t.Fatalf("unexpected frame error: %v", err)
	}
	r.LoseContext()
	if err := v.Frame(time.Now()); err != nil {
		t.Fatalf("expected lost frame to be skipped, got %v", err)
	}
	if !v.ContextIsLost() {
		t.Fatal("expected renderer failure to mark context lost")
	}
}

func TestView_Resize(t *testing.T) {
	ds := mustDataset(t, mesh.Entity{ID: "a", Category: mesh.CategoryCore})
	r := NewHeadlessRenderer()
	v := newTestView(t, ds, r, Options{})

	if err := v.Resize(0, 10); err == nil {
		t.Fatal("expected error for zero width")
	}
	if err := v.Resize(400, 300); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st := r.Stats(); st.Width != 400 || st.Height != 300 {
		t.Fatalf("expected renderer resized to 400x300, got %dx%d", st.Width, st.Height)
	}
	if hit, ok := v.Pick(640, 360); !ok || hit.ID != "a" {
		t.Fatalf("expected picks to use the drawn viewport until the next frame, got %+v ok=%v", hit, ok)
	}
	if err := v.Frame(time.Now()); err != nil {
		t.Fatalf("unexpected frame error: %v", err)
	}
	if hit, ok := v.Pick(200, 150); !ok || hit.ID != "a" {
		t.Fatalf("expected center hit after resize, got %+v ok=%v", hit, ok)
	}
}

func TestView_Reload(t *testing.T) {
	v := newTestView(t, mustDataset(t, mesh.Entity{ID: "a", Category: mesh.CategoryCore}), NewHeadlessRenderer(), Options{})
	if err := v.Select("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v.Reload(mustDataset(t, mesh.Entity{ID: "b", Category: mesh.CategoryCore}))
	if v.Dataset().Len() != 1 {
		t.Fatalf("expected 1 entity, got %d", v.Dataset().Len())
	}
	if _, ok := v.Store().Selected(); ok {
		t.Fatal("expected selection of removed entity to be cleared")
	}
	if err := v.Frame(time.Now()); err != nil {
		t.Fatalf("unexpected frame error: %v", err)
	}
	if hit, ok := v.Pick(640, 360); !ok || hit.ID != "b" {
		t.Fatalf("expected hit on b, got %+v ok=%v", hit, ok)
	}
}

type failingRenderer struct {
	*HeadlessRenderer
	err error
}

func (f failingRenderer) Upload(*scene.Scene, FrameInfo) error {
	return f.err
}

func TestView_StartEscalatesUnsupported(t *testing.T) {
	r := failingRenderer{HeadlessRenderer: NewHeadlessRenderer(), err: ErrUnsupported}
	v := newTestView(t, mustDataset(t), r, Options{})

	err := v.Start(context.Background())
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestView_CloseStopsFrameLoop(t *testing.T) {
	ticker := newManualTicker()
	r := NewHeadlessRenderer()
	ds := mustDataset(t, mesh.Entity{ID: "a", Category: mesh.CategoryCore})
	v := New(ds, config.DefaultPalette(), stillConfig(), nil, r, Options{
		Ticker: func(time.Duration) animation.Ticker { return ticker },
	})

	var notified int
	v.Listen(func(selection.Change) { notified++ })

	if err := v.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if !ticker.tick(time.Now()) {
		t.Fatal("expected frame loop to accept a tick")
	}

	v.Close()
	select {
	case <-ticker.stopped:
	case <-time.After(time.Second):
		t.Fatal("expected ticker stopped")
	}
	if ticker.tick(time.Now()) {
		t.Fatal("expected no frames after close")
	}
	if !r.Stats().Released {
		t.Fatal("expected renderer resources released")
	}
	if n := v.Store().Subscribers(); n != 0 {
		t.Fatalf("expected listeners removed, got %d", n)
	}
	if err := v.Frame(time.Now()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	v.Store().SetSelected("a")
	if notified != 0 {
		t.Fatalf("expected no notifications after close, got %d", notified)
	}
	v.Close()
}
