package mesh

import (
	"errors"
	"fmt"
	"strings"
)

var ErrDuplicateID = errors.New("duplicate entity id")

// Dataset is the immutable, ordered entity list the scene pipeline consumes.
// Dataset order is significant: it breaks k-NN ties and seeds idle motion.
type Dataset struct {
	entities []Entity
	index    map[string]int
}

// NewDataset validates id uniqueness and drops connections that point at
// ids outside the dataset. The input slice is copied.
func NewDataset(entities []Entity) (*Dataset, error) {
	ds := &Dataset{
		entities: make([]Entity, len(entities)),
		index:    make(map[string]int, len(entities)),
	}
	for i, e := range entities {
		if strings.TrimSpace(e.ID) == "" {
			return nil, fmt.Errorf("entity %d: id is required", i)
		}
		if _, exists := ds.index[e.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
		}
		ds.index[e.ID] = i
		e.Seed = i
		ds.entities[i] = e
	}
	for i := range ds.entities {
		ds.entities[i].Connections = ds.keepKnown(ds.entities[i].ID, ds.entities[i].Connections)
	}
	return ds, nil
}

func (d *Dataset) keepKnown(self string, ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	kept := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == self {
			continue
		}
		if _, ok := d.index[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		kept = append(kept, id)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// Entities returns the backing slice in dataset order. Callers must not modify it.
func (d *Dataset) Entities() []Entity {
	if d == nil {
		return nil
	}
	return d.entities
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entities)
}

func (d *Dataset) At(i int) Entity {
	return d.entities[i]
}

func (d *Dataset) Lookup(id string) (Entity, bool) {
	i, ok := d.Index(id)
	if !ok {
		return Entity{}, false
	}
	return d.entities[i], true
}

func (d *Dataset) Index(id string) (int, bool) {
	if d == nil {
		return 0, false
	}
	i, ok := d.index[id]
	return i, ok
}

// Positions returns entity positions in dataset order.
func (d *Dataset) Positions() []Vec3 {
	out := make([]Vec3, d.Len())
	for i, e := range d.Entities() {
		out[i] = e.Position
	}
	return out
}

// Categories lists the distinct categories in order of first appearance.
func (d *Dataset) Categories() []Category {
	var out []Category
	seen := make(map[Category]struct{})
	for _, e := range d.Entities() {
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		out = append(out, e.Category)
	}
	return out
}

// FromRecords converts authored records into a dataset, placing entities
// without an authored position using the deterministic layout.
func FromRecords(records []Record, layout LayoutOptions) (*Dataset, error) {
	entities := make([]Entity, 0, len(records))
	var unplaced []int
	for _, r := range records {
		tier, _ := ParseTier(r.Importance)
		e := Entity{
			ID:          strings.TrimSpace(r.ID),
			Label:       r.Label,
			Category:    NormalizeCategory(r.Category),
			Tier:        tier,
			Connections: r.Connections,
			Tags:        r.Tags,
			Description: r.Description,
			SourceFile:  r.SourceFile,
		}
		if e.Label == "" {
			e.Label = e.ID
		}
		if r.Position != nil {
			e.Position = *r.Position
		} else {
			unplaced = append(unplaced, len(entities))
		}
		entities = append(entities, e)
	}
	Place(entities, unplaced, layout)
	return NewDataset(entities)
}
