// Package animation drives the per-frame idle motion and camera auto-orbit.
// It is independent of the data pipeline: it only offsets instances that
// already exist and nudges the camera pose.
package animation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"decisionmesh/internal/mesh"
	"decisionmesh/internal/selection"
)

var ErrRunning = errors.New("animation driver already running")

// Animatable is the per-instance surface the driver writes to. SeedAt is the
// motion seed of instance i; it must not change when instances are reordered.
type Animatable interface {
	Len() int
	SeedAt(i int) int
	SetOffset(i int, offset mesh.Vec3)
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFunc func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

type Options struct {
	Motion    Motion
	OrbitStep float64
	Interval  time.Duration
	Ticker    TickerFunc
	Logger    *zap.Logger
}

type Driver struct {
	motion    Motion
	orbitStep float64
	interval  time.Duration
	newTicker TickerFunc
	store     *selection.Store
	logger    *zap.Logger

	dragging atomic.Bool
	frames   atomic.Uint64

	mu        sync.Mutex
	start     time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	releasers []func()
}

func NewDriver(store *selection.Store, opts Options) *Driver {
	if opts.Motion == nil {
		opts.Motion = Still{}
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second / 60
	}
	if opts.Ticker == nil {
		opts.Ticker = NewTimeTicker
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Driver{
		motion:    opts.Motion,
		orbitStep: opts.OrbitStep,
		interval:  opts.Interval,
		newTicker: opts.Ticker,
		store:     store,
		logger:    opts.Logger,
	}
}

// SetMotion swaps the idle motion strategy.
func (d *Driver) SetMotion(m Motion) {
	if m == nil {
		m = Still{}
	}
	d.mu.Lock()
	d.motion = m
	d.mu.Unlock()
}

// SetDragging suppresses auto-orbit while the user drags the camera.
func (d *Driver) SetDragging(dragging bool) {
	d.dragging.Store(dragging)
}

func (d *Driver) Dragging() bool {
	return d.dragging.Load()
}

// Frames is the number of frame callbacks run so far.
func (d *Driver) Frames() uint64 {
	return d.frames.Load()
}

// Step writes the idle offsets for now into target and advances the orbit
// by one increment unless a drag is in progress.
func (d *Driver) Step(target Animatable, now time.Time) {
	d.mu.Lock()
	if d.start.IsZero() {
		d.start = now
	}
	elapsed := now.Sub(d.start)
	motion := d.motion
	d.mu.Unlock()

	if target != nil {
		for i := 0; i < target.Len(); i++ {
			target.SetOffset(i, motion.Offset(target.SeedAt(i), elapsed))
		}
	}
	if d.store != nil && d.orbitStep != 0 && !d.dragging.Load() {
		d.store.SetCameraPose(d.store.CameraPose().Orbit(d.orbitStep))
	}
}

// OnStop registers a release hook run once when the driver stops.
func (d *Driver) OnStop(release func()) {
	d.mu.Lock()
	d.releasers = append(d.releasers, release)
	d.mu.Unlock()
}

// Start runs frame once per interval on its own goroutine until Stop is
// called or ctx is done. Each frame runs to completion before the next tick
// is read. Once the loop has exited the driver can be started again.
func (d *Driver) Start(ctx context.Context, frame func(now time.Time)) error {
	d.mu.Lock()
	if d.done != nil {
		d.mu.Unlock()
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	done := d.done
	ticker := d.newTicker(d.interval)
	d.mu.Unlock()

	d.logger.Debug("animation loop started", zap.Duration("interval", d.interval))
	go func() {
		defer close(done)
		defer func() {
			d.mu.Lock()
			if d.done == done {
				d.cancel, d.done = nil, nil
			}
			d.mu.Unlock()
			cancel()
		}()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C():
				if ctx.Err() != nil {
					return
				}
				frame(now)
				d.frames.Add(1)
			}
		}
	}()
	return nil
}

// Stop halts the frame loop, waits for the in-flight frame to finish and
// runs the release hooks. It is safe to call more than once.
func (d *Driver) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	releasers := d.releasers
	d.cancel, d.done, d.releasers = nil, nil, nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
		d.logger.Debug("animation loop stopped", zap.Uint64("frames", d.frames.Load()))
	}
	for _, release := range releasers {
		release()
	}
}
