package animation

import (
	"math"
	"time"

	"decisionmesh/internal/mesh"
)

// Motion computes the decorative offset for seed at elapsed time. The seed is
// the entity's dataset position, so an entity keeps its phase when filtering
// reorders instances. Implementations must be deterministic.
type Motion interface {
	Offset(seed int, elapsed time.Duration) mesh.Vec3
}

// Bob is a vertical sine oscillation, phase-shifted per seed.
type Bob struct {
	Amplitude float64
	Frequency float64 // Hz
	PhaseStep float64 // radians per seed
}

func (b Bob) Offset(seed int, elapsed time.Duration) mesh.Vec3 {
	phase := 2*math.Pi*b.Frequency*elapsed.Seconds() + float64(seed)*b.PhaseStep
	return mesh.Vec3{Y: b.Amplitude * math.Sin(phase)}
}

// Still never moves anything.
type Still struct{}

func (Still) Offset(int, time.Duration) mesh.Vec3 {
	return mesh.Vec3{}
}
