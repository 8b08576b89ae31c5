package scene

// Buffers is a detached copy of the scene's GPU-facing data, suitable for
// uploading or shipping to a remote renderer.
type Buffers struct {
	Version       uint64    `json:"version"`
	Geometry      Geometry  `json:"geometry"`
	InstanceCount int       `json:"instance_count"`
	IDs           []string  `json:"ids"`
	Transforms    []float32 `json:"transforms"`
	Colors        []float32 `json:"colors"`
	LinePositions []float32 `json:"line_positions"`
	LineColors    []float32 `json:"line_colors"`
}

func (s *Scene) Buffers() Buffers {
	s.refreshLines()
	ids := make([]string, len(s.arena))
	for i, e := range s.arena {
		ids[i] = e.ID
	}
	return Buffers{
		Version:       s.version,
		Geometry:      s.geometry,
		InstanceCount: len(s.arena),
		IDs:           ids,
		Transforms:    append([]float32{}, s.transforms...),
		Colors:        append([]float32{}, s.colors...),
		LinePositions: append([]float32{}, s.linePositions...),
		LineColors:    append([]float32{}, s.lineColors...),
	}
}

// InstanceUpdate carries the transform and color of one changed instance.
type InstanceUpdate struct {
	Index     int       `json:"index"`
	ID        string    `json:"id"`
	Transform []float32 `json:"transform"`
	Color     []float32 `json:"color"`
}

// Updates copies the buffer slices of the given instance indices.
func (s *Scene) Updates(indices []int) []InstanceUpdate {
	out := make([]InstanceUpdate, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(s.arena) {
			continue
		}
		out = append(out, InstanceUpdate{
			Index:     i,
			ID:        s.arena[i].ID,
			Transform: append([]float32{}, s.transforms[i*TransformStride:(i+1)*TransformStride]...),
			Color:     append([]float32{}, s.colors[i*ColorStride:(i+1)*ColorStride]...),
		})
	}
	return out
}
