// Package filter derives the visible entity and edge subsets for a category
// filter and applies the difference to a live scene.
package filter

import (
	"decisionmesh/internal/mesh"
	"decisionmesh/internal/scene"
	"decisionmesh/internal/selection"
)

type Visible struct {
	Category mesh.Category
	Entities []mesh.Entity
	Edges    []mesh.Edge
}

func (v Visible) Contains(id string) bool {
	for _, e := range v.Entities {
		if e.ID == id {
			return true
		}
	}
	return false
}

type Controller struct {
	dataset *mesh.Dataset
	edges   []mesh.Edge
	store   *selection.Store
}

// NewController filters ds and its full edge set. store may be nil when
// no selection needs to be kept consistent.
func NewController(ds *mesh.Dataset, edges []mesh.Edge, store *selection.Store) *Controller {
	return &Controller{dataset: ds, edges: edges, store: store}
}

// Compute returns the entities matching category, in dataset order, and the
// edges whose endpoints are both visible. It never fails; a filter that
// matches nothing yields empty, non-nil subsets.
func Compute(ds *mesh.Dataset, edges []mesh.Edge, category mesh.Category) Visible {
	if category.IsAll() {
		category = mesh.All
	}
	v := Visible{Category: category, Entities: []mesh.Entity{}, Edges: []mesh.Edge{}}
	ids := make(map[string]struct{})
	for _, e := range ds.Entities() {
		if category != mesh.All && e.Category != category {
			continue
		}
		v.Entities = append(v.Entities, e)
		ids[e.ID] = struct{}{}
	}
	for _, e := range edges {
		if _, ok := ids[e.SourceID]; !ok {
			continue
		}
		if _, ok := ids[e.TargetID]; !ok {
			continue
		}
		v.Edges = append(v.Edges, e)
	}
	return v
}

// Apply computes the subset for category, records the category in the
// store, and clears a selection or hover that the filter hides. A selection
// that stays visible is left untouched, so applying the same filter twice
// changes nothing.
func (c *Controller) Apply(category mesh.Category) Visible {
	v := Compute(c.dataset, c.edges, category)
	if c.store == nil {
		return v
	}
	c.store.SetActiveCategory(v.Category)
	if id, ok := c.store.Selected(); ok && !v.Contains(id) {
		c.store.ClearSelected()
	}
	if id, ok := c.store.Hovered(); ok && !v.Contains(id) {
		c.store.SetHovered("")
	}
	return v
}

// Sync brings s to exactly the visible subset, hiding leaving entities and
// showing entering ones without touching instances that stay visible.
// It returns how many instances left and entered.
func Sync(s *scene.Scene, v Visible) (hidden, shown int) {
	keep := make(map[string]struct{}, len(v.Entities))
	for _, e := range v.Entities {
		keep[e.ID] = struct{}{}
	}
	var leaving []string
	for _, e := range s.Entities() {
		if _, ok := keep[e.ID]; !ok {
			leaving = append(leaving, e.ID)
		}
	}
	for _, id := range leaving {
		if s.Hide(id) {
			hidden++
		}
	}
	for _, e := range v.Entities {
		if s.Contains(e.ID) {
			continue
		}
		s.Show(e)
		shown++
	}
	if hidden > 0 || shown > 0 || len(s.Edges()) != len(v.Edges) {
		s.SetEdges(v.Edges)
	}
	return hidden, shown
}
