package mesh

import (
	"math"
	"sort"
)

type LayoutOptions struct {
	Radius float64
}

func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{Radius: 12}
}

var goldenAngle = math.Pi * (3 - math.Sqrt(5))

// tierShell pulls more important entities toward the center of the mesh.
var tierShell = map[Tier]float64{
	TierLow:      1.0,
	TierMedium:   0.9,
	TierHigh:     0.8,
	TierCritical: 0.7,
}

// Place assigns positions to entities[idx] for every idx in targets. Targets
// are grouped by category (categories in order of first appearance) and laid
// along a Fibonacci sphere so each category occupies a contiguous band.
// The result depends only on the input order.
func Place(entities []Entity, targets []int, opts LayoutOptions) {
	n := len(targets)
	if n == 0 {
		return
	}
	radius := opts.Radius
	if radius <= 0 {
		radius = DefaultLayoutOptions().Radius
	}

	rank := make(map[Category]int)
	for _, idx := range targets {
		c := entities[idx].Category
		if _, ok := rank[c]; !ok {
			rank[c] = len(rank)
		}
	}
	ordered := make([]int, n)
	copy(ordered, targets)
	sort.SliceStable(ordered, func(a, b int) bool {
		return rank[entities[ordered[a]].Category] < rank[entities[ordered[b]].Category]
	})

	for slot, idx := range ordered {
		y := 1 - 2*(float64(slot)+0.5)/float64(n)
		r := math.Sqrt(1 - y*y)
		theta := goldenAngle * float64(slot)
		shell := radius * shellFactor(entities[idx].Tier)
		entities[idx].Position = Vec3{
			X: shell * r * math.Cos(theta),
			Y: shell * y,
			Z: shell * r * math.Sin(theta),
		}
	}
}

func shellFactor(t Tier) float64 {
	if f, ok := tierShell[t]; ok {
		return f
	}
	return 1
}
