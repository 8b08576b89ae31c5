// Package picking resolves pointer positions to entities by casting a ray
// from the camera and intersecting it with the instanced node spheres.
package picking

import (
	"math"
	"sync/atomic"

	"decisionmesh/internal/camera"
	"decisionmesh/internal/mesh"
	"decisionmesh/internal/scene"
)

type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (v Viewport) Aspect() float64 {
	if v.Width <= 0 || v.Height <= 0 {
		return 1
	}
	return v.Width / v.Height
}

// ScreenToNDC maps pixel coordinates (origin top-left) to normalized device
// coordinates in [-1, 1] with +Y up.
func ScreenToNDC(x, y float64, vp Viewport) (float64, float64, bool) {
	if vp.Width <= 0 || vp.Height <= 0 {
		return 0, 0, false
	}
	return 2*x/vp.Width - 1, 1 - 2*y/vp.Height, true
}

// Snapshot is the instance layout of one completed frame. Index i of every
// slice refers to the same instance.
type Snapshot struct {
	IDs      []string
	Centers  []mesh.Vec3
	Radii    []float64
	Camera   camera.Camera
	Viewport Viewport
}

func NewSnapshot(s *scene.Scene, cam camera.Camera, vp Viewport) *Snapshot {
	n := s.Len()
	snap := &Snapshot{
		IDs:      make([]string, n),
		Centers:  make([]mesh.Vec3, n),
		Radii:    make([]float64, n),
		Camera:   cam,
		Viewport: vp,
	}
	for i := 0; i < n; i++ {
		snap.IDs[i], _ = s.IDAt(i)
		snap.Centers[i] = s.Center(i)
		snap.Radii[i] = s.InstanceRadius(i)
	}
	return snap
}

// Hit is a resolved pick.
type Hit struct {
	Index    int       `json:"index"`
	ID       string    `json:"id"`
	Distance float64   `json:"distance"`
	Point    mesh.Vec3 `json:"point"`
}

// Intersect returns the nearest instance the ray enters in front of its
// origin. dir must be unit length.
func (s *Snapshot) Intersect(origin, dir mesh.Vec3) (Hit, bool) {
	best := Hit{Index: -1, Distance: math.Inf(1)}
	for i, center := range s.Centers {
		t, ok := raySphere(origin, dir, center, s.Radii[i])
		if !ok || t >= best.Distance {
			continue
		}
		best = Hit{Index: i, ID: s.IDs[i], Distance: t}
	}
	if best.Index < 0 {
		return Hit{}, false
	}
	best.Point = origin.Add(dir.Scale(best.Distance))
	return best, true
}

// Pick resolves a pointer position against the snapshot.
func (s *Snapshot) Pick(x, y float64) (Hit, bool) {
	if s == nil || len(s.Centers) == 0 {
		return Hit{}, false
	}
	ndcX, ndcY, ok := ScreenToNDC(x, y, s.Viewport)
	if !ok {
		return Hit{}, false
	}
	cam := s.Camera
	cam.Aspect = s.Viewport.Aspect()
	origin, dir := cam.Ray(ndcX, ndcY)
	return s.Intersect(origin, dir)
}

func raySphere(origin, dir, center mesh.Vec3, radius float64) (float64, bool) {
	oc := origin.Sub(center)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		t = -b + sq
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}

// Controller answers pick queries against the most recently published
// frame. Publish and Pick may be called from different goroutines.
type Controller struct {
	current atomic.Pointer[Snapshot]
}

func NewController() *Controller {
	c := &Controller{}
	c.current.Store(&Snapshot{})
	return c
}

func (c *Controller) Publish(s *Snapshot) {
	if s == nil {
		s = &Snapshot{}
	}
	c.current.Store(s)
}

func (c *Controller) Snapshot() *Snapshot {
	return c.current.Load()
}

// Pick returns the entity under the pointer. A miss is reported with
// ok=false, never as an error.
func (c *Controller) Pick(x, y float64) (Hit, bool) {
	return c.current.Load().Pick(x, y)
}
