// Package graph computes the render-only proximity edges of the mesh.
//
// Every builder here is a pure function of its inputs. The neighbor scan is
// O(N²) in the number of entities and is only intended for datasets in the
// hundreds; callers with larger datasets must not route them through it.
package graph

import (
	"cmp"
	"slices"

	"decisionmesh/internal/mesh"
)

type candidate struct {
	index  int
	distSq float64
}

// Neighbors returns, for every position, the indices of its k nearest other
// positions strictly closer than maxDistance, nearest first. Ties are broken
// by ascending index. A non-positive maxDistance or k yields no neighbors.
func Neighbors(positions []mesh.Vec3, maxDistance float64, k int) [][]int {
	out := make([][]int, len(positions))
	if maxDistance <= 0 || k <= 0 {
		return out
	}
	limit := maxDistance * maxDistance
	scratch := make([]candidate, 0, len(positions))
	for i, p := range positions {
		scratch = scratch[:0]
		for j, q := range positions {
			if i == j {
				continue
			}
			d := p.DistSq(q)
			if d < limit {
				scratch = append(scratch, candidate{index: j, distSq: d})
			}
		}
		slices.SortFunc(scratch, func(a, b candidate) int {
			if c := cmp.Compare(a.distSq, b.distSq); c != 0 {
				return c
			}
			return cmp.Compare(a.index, b.index)
		})
		n := min(k, len(scratch))
		if n == 0 {
			continue
		}
		picked := make([]int, n)
		for x := 0; x < n; x++ {
			picked[x] = scratch[x].index
		}
		out[i] = picked
	}
	return out
}

// BuildEdges emits one directional edge per (entity, neighbor) pair in
// dataset order. Mutual neighbors produce two edges; they are not merged.
func BuildEdges(entities []mesh.Entity, maxDistance float64, k int) []mesh.Edge {
	positions := make([]mesh.Vec3, len(entities))
	for i, e := range entities {
		positions[i] = e.Position
	}
	var edges []mesh.Edge
	for i, neighbors := range Neighbors(positions, maxDistance, k) {
		for _, j := range neighbors {
			edges = append(edges, mesh.Edge{SourceID: entities[i].ID, TargetID: entities[j].ID})
		}
	}
	if edges == nil {
		return []mesh.Edge{}
	}
	return edges
}

func BuildDatasetEdges(ds *mesh.Dataset, maxDistance float64, k int) []mesh.Edge {
	return BuildEdges(ds.Entities(), maxDistance, k)
}

// ConnectionEdges lists the authored connections as edges, in dataset order.
func ConnectionEdges(ds *mesh.Dataset) []mesh.Edge {
	edges := []mesh.Edge{}
	for _, e := range ds.Entities() {
		for _, target := range e.Connections {
			edges = append(edges, mesh.Edge{SourceID: e.ID, TargetID: target})
		}
	}
	return edges
}

// Outgoing returns the edges whose source is id.
func Outgoing(edges []mesh.Edge, id string) []mesh.Edge {
	var out []mesh.Edge
	for _, e := range edges {
		if e.SourceID == id {
			out = append(out, e)
		}
	}
	return out
}
