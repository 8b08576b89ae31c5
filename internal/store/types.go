package store

import "decisionmesh/internal/mesh"

type EntityInput struct {
	ID         string
	Title      string
	Category   string
	Importance string
	Position   *mesh.Vec3
	Tags       []string
	Body       string
	Source     string
	SourceFile string
	SourceHash string
}

type Entity struct {
	ID          string
	Title       string
	Category    string
	Importance  string
	Position    *mesh.Vec3
	Tags        []string
	Connections []string
	Body        string
	Source      string
	SourceFile  string
	SourceHash  string
}

// ListFilter narrows ListEntities. Empty fields match everything.
type ListFilter struct {
	Category string
	Source   string
	Tag      string
}

type Connection struct {
	FromID string
	ToID   string
}

// Record converts a stored entity into the authored form the mesh loads.
func (e Entity) Record() mesh.Record {
	return mesh.Record{
		ID:          e.ID,
		Label:       e.Title,
		Category:    e.Category,
		Importance:  e.Importance,
		Position:    e.Position,
		Connections: e.Connections,
		Tags:        e.Tags,
		Description: e.Body,
		SourceFile:  e.SourceFile,
	}
}

func Records(entities []Entity) []mesh.Record {
	records := make([]mesh.Record, len(entities))
	for i, e := range entities {
		records[i] = e.Record()
	}
	return records
}
