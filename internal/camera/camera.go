// Package camera models the perspective camera shared by picking, the idle
// orbit and the renderers.
package camera

import (
	"math"

	"decisionmesh/internal/mesh"
)

// Pose is the camera placement. Orientation is derived from Target and Up.
type Pose struct {
	Position mesh.Vec3 `json:"position"`
	Target   mesh.Vec3 `json:"target"`
	Up       mesh.Vec3 `json:"up"`
}

func NewPose(distance float64) Pose {
	return Pose{
		Position: mesh.Vec3{Z: distance},
		Up:       mesh.Vec3{Y: 1},
	}
}

// Orbit rotates the pose position around its target about the world Y axis.
func (p Pose) Orbit(angle float64) Pose {
	rel := p.Position.Sub(p.Target)
	sin, cos := math.Sincos(angle)
	rel = mesh.Vec3{
		X: rel.X*cos + rel.Z*sin,
		Y: rel.Y,
		Z: -rel.X*sin + rel.Z*cos,
	}
	p.Position = p.Target.Add(rel)
	return p
}

type Camera struct {
	Pose   Pose
	FovY   float64 // degrees
	Aspect float64
	Near   float64
	Far    float64
}

func (c Camera) basis() (forward, right, up mesh.Vec3) {
	forward = c.Pose.Target.Sub(c.Pose.Position).Normalize()
	worldUp := c.Pose.Up
	if worldUp == (mesh.Vec3{}) {
		worldUp = mesh.Vec3{Y: 1}
	}
	right = forward.Cross(worldUp).Normalize()
	up = right.Cross(forward)
	return forward, right, up
}

func (c Camera) aspect() float64 {
	if c.Aspect <= 0 {
		return 1
	}
	return c.Aspect
}

// Ray returns the world-space ray through the given normalized device
// coordinates. Direction is unit length.
func (c Camera) Ray(ndcX, ndcY float64) (origin, dir mesh.Vec3) {
	forward, right, up := c.basis()
	tanHalf := math.Tan(c.FovY * math.Pi / 360)
	dir = forward.
		Add(right.Scale(ndcX * tanHalf * c.aspect())).
		Add(up.Scale(ndcY * tanHalf)).
		Normalize()
	return c.Pose.Position, dir
}

// ViewMatrix is the column-major look-at matrix.
func (c Camera) ViewMatrix() [16]float32 {
	f, r, u := c.basis()
	eye := c.Pose.Position
	return [16]float32{
		float32(r.X), float32(u.X), float32(-f.X), 0,
		float32(r.Y), float32(u.Y), float32(-f.Y), 0,
		float32(r.Z), float32(u.Z), float32(-f.Z), 0,
		float32(-r.Dot(eye)), float32(-u.Dot(eye)), float32(f.Dot(eye)), 1,
	}
}

// ProjectionMatrix is the column-major perspective matrix with a -1..1 depth range.
func (c Camera) ProjectionMatrix() [16]float32 {
	top := 1 / math.Tan(c.FovY*math.Pi/360)
	nf := 1 / (c.Near - c.Far)
	return [16]float32{
		float32(top / c.aspect()), 0, 0, 0,
		0, float32(top), 0, 0,
		0, 0, float32((c.Far + c.Near) * nf), -1,
		0, 0, float32(2 * c.Far * c.Near * nf), 0,
	}
}
