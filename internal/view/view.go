// Package view wires the dataset-to-scene pipeline to a renderer, the
// selection store, pointer input and the frame loop.
package view

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"decisionmesh/internal/animation"
	"decisionmesh/internal/camera"
	"decisionmesh/internal/config"
	"decisionmesh/internal/filter"
	"decisionmesh/internal/graph"
	"decisionmesh/internal/mesh"
	"decisionmesh/internal/metrics"
	"decisionmesh/internal/picking"
	"decisionmesh/internal/scene"
	"decisionmesh/internal/selection"
)

type Options struct {
	Logger   *zap.Logger
	Metrics  metrics.Recorder
	Motion   animation.Motion
	Ticker   animation.TickerFunc
	Viewport picking.Viewport
}

// View owns the live scene. Store listeners registered through Listen run
// while the view may hold its lock and must not call back into the view.
type View struct {
	mu sync.Mutex

	cfg      config.ProjectConfig
	builder  *scene.Builder
	store    *selection.Store
	renderer Renderer
	picker   *picking.Controller
	driver   *animation.Driver
	logger   *zap.Logger
	metrics  metrics.Recorder

	dataset *mesh.Dataset
	edges   []mesh.Edge
	filter  *filter.Controller
	visible filter.Visible
	scene   *scene.Scene

	viewport    picking.Viewport
	frame       uint64
	contextLost bool
	needsUpload bool
	closed      bool

	listeners []func()
	closeOnce sync.Once
}

func New(ds *mesh.Dataset, palette *config.Palette, cfg config.ProjectConfig, store *selection.Store, renderer Renderer, opts Options) *View {
	if ds == nil {
		ds, _ = mesh.NewDataset(nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		opts.Viewport = picking.Viewport{Width: 1280, Height: 720}
	}
	if store == nil {
		store = selection.NewStore(camera.NewPose(cfg.Camera.Distance))
	}
	if renderer == nil {
		renderer = NewHeadlessRenderer()
	}

	motion := opts.Motion
	orbit := cfg.Animation.OrbitStep
	if motion == nil {
		motion = animation.Bob{
			Amplitude: cfg.Animation.BobAmplitude,
			Frequency: cfg.Animation.BobFrequency,
			PhaseStep: cfg.Animation.BobPhaseStep,
		}
	}
	if !cfg.Animation.IsEnabled() {
		motion = animation.Still{}
		orbit = 0
	}
	interval := time.Second / 60
	if cfg.Animation.FrameRate > 0 {
		interval = cfg.Animation.FrameInterval()
	}

	v := &View{
		cfg:         cfg,
		builder:     scene.NewBuilder(palette, cfg.Mesh.NodeRadius),
		store:       store,
		renderer:    renderer,
		picker:      picking.NewController(),
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		viewport:    opts.Viewport,
		needsUpload: true,
	}
	v.driver = animation.NewDriver(store, animation.Options{
		Motion:    motion,
		OrbitStep: orbit,
		Interval:  interval,
		Ticker:    opts.Ticker,
		Logger:    opts.Logger,
	})
	v.driver.OnStop(renderer.Release)

	v.mu.Lock()
	v.loadLocked(ds, "full")
	v.publishLocked()
	v.mu.Unlock()
	return v
}

// loadLocked rebuilds everything derived from ds under the current filter.
func (v *View) loadLocked(ds *mesh.Dataset, kind string) {
	start := time.Now()
	v.dataset = ds
	v.edges = graph.BuildDatasetEdges(ds, v.cfg.Mesh.MaxDistance, v.cfg.Mesh.MaxNeighbors)
	v.filter = filter.NewController(ds, v.edges, v.store)
	v.visible = v.filter.Apply(v.store.ActiveCategory())
	v.scene = v.builder.Build(v.visible.Entities, v.visible.Edges)
	v.syncHighlightLocked()
	v.needsUpload = true
	v.metrics.ObserveRebuild(kind, time.Since(start))
	v.metrics.SetVisible(v.scene.Len())
	v.logger.Debug("scene built",
		zap.String("kind", kind),
		zap.Int("entities", ds.Len()),
		zap.Int("edges", len(v.edges)),
		zap.Int("visible", v.scene.Len()))
}

func (v *View) camera() camera.Camera {
	return camera.Camera{
		Pose:   v.store.CameraPose(),
		FovY:   v.cfg.Camera.FovY,
		Aspect: v.viewport.Aspect(),
		Near:   v.cfg.Camera.Near,
		Far:    v.cfg.Camera.Far,
	}
}

// publishLocked seeds the pick snapshot before the first frame. After that
// only Frame publishes, so picks always resolve against what was drawn.
func (v *View) publishLocked() {
	v.picker.Publish(picking.NewSnapshot(v.scene, v.camera(), v.viewport))
}

func (v *View) frameInfoLocked(now time.Time) FrameInfo {
	return FrameInfo{
		Frame:    v.frame,
		Time:     now,
		Camera:   v.camera(),
		Viewport: v.viewport,
		State:    v.store.State(),
	}
}

func (v *View) syncHighlightLocked() {
	selected, _ := v.store.Selected()
	hovered, _ := v.store.Hovered()
	v.scene.SetHighlight(selected, hovered)
}

func (v *View) Store() *selection.Store {
	return v.store
}

func (v *View) Driver() *animation.Driver {
	return v.driver
}

func (v *View) Dataset() *mesh.Dataset {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dataset
}

// Edges returns the full proximity edge set of the dataset.
func (v *View) Edges() []mesh.Edge {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.edges
}

func (v *View) Visible() filter.Visible {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

func (v *View) Viewport() picking.Viewport {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.viewport
}

// Start uploads the scene and runs the frame loop until ctx is done or
// Close is called. A renderer failure during the first upload is returned.
func (v *View) Start(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	err := v.uploadLocked(time.Now())
	v.mu.Unlock()
	if err != nil && !errors.Is(err, ErrContextLost) {
		return err
	}
	return v.driver.Start(ctx, func(now time.Time) {
		if err := v.Frame(now); err != nil && !errors.Is(err, ErrClosed) {
			v.logger.Error("frame failed", zap.Error(err))
		}
	})
}

func (v *View) uploadLocked(now time.Time) error {
	if err := v.renderer.Upload(v.scene, v.frameInfoLocked(now)); err != nil {
		if errors.Is(err, ErrContextLost) {
			v.loseContextLocked()
		}
		return fmt.Errorf("uploading scene: %w", err)
	}
	v.needsUpload = false
	return nil
}

// Frame runs one tick: idle motion, highlight, flush, draw, then publishes
// the pick snapshot of the completed frame. While the render context is
// lost the frame is skipped.
func (v *View) Frame(now time.Time) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	if v.contextLost {
		v.metrics.FrameSkipped("context_lost")
		return nil
	}
	if v.needsUpload {
		if err := v.uploadLocked(now); err != nil {
			if errors.Is(err, ErrContextLost) {
				v.metrics.FrameSkipped("context_lost")
				return nil
			}
			return err
		}
	}

	v.driver.Step(v.scene, now)
	v.syncHighlightLocked()
	dirty, lines := v.scene.Flush()

	v.frame++
	info := v.frameInfoLocked(now)
	info.Dirty, info.LinesDirty = dirty, lines
	err := v.renderer.Draw(v.scene, info)
	if err != nil {
		if errors.Is(err, ErrContextLost) {
			v.loseContextLocked()
			v.metrics.FrameSkipped("context_lost")
			return nil
		}
		return fmt.Errorf("drawing frame: %w", err)
	}

	v.picker.Publish(picking.NewSnapshot(v.scene, info.Camera, info.Viewport))
	v.metrics.FrameRendered()
	return nil
}

// Pick resolves a pointer position against the last completed frame.
func (v *View) Pick(x, y float64) (picking.Hit, bool) {
	start := time.Now()
	hit, ok := v.picker.Pick(x, y)
	v.metrics.ObservePick(time.Since(start), ok)
	return hit, ok
}

// PointerMove updates the hovered entity.
func (v *View) PointerMove(x, y float64) (picking.Hit, bool) {
	hit, ok := v.Pick(x, y)
	v.store.SetHovered(hit.ID)
	return hit, ok
}

// Click selects the entity under the pointer; clicking empty space deselects.
func (v *View) Click(x, y float64) (picking.Hit, bool) {
	hit, ok := v.Pick(x, y)
	v.store.SetSelected(hit.ID)
	return hit, ok
}

// Select selects id if it is visible. The empty id deselects.
func (v *View) Select(id string) error {
	if id == "" {
		v.store.ClearSelected()
		return nil
	}
	v.mu.Lock()
	visible := v.scene.Contains(id)
	v.mu.Unlock()
	if !visible {
		return fmt.Errorf("entity %q is not visible", id)
	}
	v.store.SetSelected(id)
	return nil
}

// SetFilter applies a category filter, touching only the instances that
// enter or leave visibility. Picks see the change after the next Frame.
func (v *View) SetFilter(category mesh.Category) filter.Visible {
	v.mu.Lock()
	defer v.mu.Unlock()

	start := time.Now()
	v.visible = v.filter.Apply(category)
	hidden, shown := filter.Sync(v.scene, v.visible)
	v.syncHighlightLocked()
	v.metrics.ObserveRebuild("filter", time.Since(start))
	v.metrics.SetVisible(v.scene.Len())
	v.logger.Debug("filter applied",
		zap.String("category", string(v.visible.Category)),
		zap.Int("hidden", hidden),
		zap.Int("shown", shown))
	return v.visible
}

// Resize updates the viewport and camera aspect ratio. Picks keep using the
// previous viewport until the next Frame.
func (v *View) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid viewport %dx%d", width, height)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.viewport = picking.Viewport{Width: float64(width), Height: float64(height)}
	if r, ok := v.renderer.(Resizer); ok {
		if err := r.Resize(width, height); err != nil {
			return fmt.Errorf("resizing renderer: %w", err)
		}
	}
	return nil
}

// SetDragging suppresses the idle orbit while the user drags the camera.
func (v *View) SetDragging(dragging bool) {
	v.driver.SetDragging(dragging)
}

// Reload swaps in a new dataset. Selection that no longer resolves is
// cleared by the filter pass.
func (v *View) Reload(ds *mesh.Dataset) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.loadLocked(ds, "reload")
	v.logger.Info("dataset reloaded", zap.Int("entities", ds.Len()))
}

// ContextLost marks every renderer resource invalid. Frames are skipped
// until ContextRestored.
func (v *View) ContextLost() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loseContextLocked()
}

func (v *View) loseContextLocked() {
	if v.contextLost {
		return
	}
	v.contextLost = true
	v.needsUpload = true
	v.logger.Warn("render context lost")
}

// ContextRestored rebuilds the scene from the dataset and schedules a full
// upload for the next frame.
func (v *View) ContextRestored() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.contextLost || v.closed {
		return
	}
	v.contextLost = false
	v.loadLocked(v.dataset, "restore")
	v.logger.Info("render context restored")
}

func (v *View) ContextIsLost() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.contextLost
}

// Listen subscribes fn to store changes for the lifetime of the view. The
// returned function unsubscribes early.
func (v *View) Listen(fn selection.Listener) func() {
	unsubscribe := v.store.Subscribe(fn)
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		unsubscribe()
		return func() {}
	}
	v.listeners = append(v.listeners, unsubscribe)
	v.mu.Unlock()
	return unsubscribe
}

// Close stops the frame loop, releases renderer resources and removes every
// listener registered through Listen.
func (v *View) Close() {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		v.closed = true
		listeners := v.listeners
		v.listeners = nil
		v.mu.Unlock()

		// Stop runs the renderer release hook once the loop has exited.
		v.driver.Stop()
		for _, unsubscribe := range listeners {
			unsubscribe()
		}
		v.logger.Debug("view closed")
	})
}

// SceneSnapshot is a detached copy of everything a remote renderer needs to
// draw the current scene. It is the only full-scene payload: session joins
// and renderer uploads both send it.
type SceneSnapshot struct {
	Buffers    scene.Buffers    `json:"buffers"`
	View       [16]float32      `json:"view"`
	Projection [16]float32      `json:"projection"`
	Viewport   picking.Viewport `json:"viewport"`
	State      selection.State  `json:"state"`
}

func NewSceneSnapshot(s *scene.Scene, f FrameInfo) SceneSnapshot {
	return SceneSnapshot{
		Buffers:    s.Buffers(),
		View:       f.Camera.ViewMatrix(),
		Projection: f.Camera.ProjectionMatrix(),
		Viewport:   f.Viewport,
		State:      f.State,
	}
}

// Snapshot copies the scene buffers with the current highlight applied.
func (v *View) Snapshot() SceneSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.syncHighlightLocked()
	return NewSceneSnapshot(v.scene, v.frameInfoLocked(time.Now()))
}
