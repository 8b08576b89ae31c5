package server

import (
	"decisionmesh/internal/picking"
	"decisionmesh/internal/scene"
	"decisionmesh/internal/selection"
	"decisionmesh/internal/view"
)

// Inbound websocket message types.
const (
	msgPointerMove     = "pointermove"
	msgClick           = "click"
	msgResize          = "resize"
	msgFilter          = "filter"
	msgDragStart       = "drag_start"
	msgDragEnd         = "drag_end"
	msgContextLost     = "context_lost"
	msgContextRestored = "context_restored"
)

// Outbound websocket message types.
const (
	msgSession   = "session"
	msgScene     = "scene"
	msgFrame     = "frame"
	msgSelection = "selection"
	msgPick      = "pick"
	msgReleased  = "released"
	msgError     = "error"
)

type ClientMessage struct {
	Type     string  `json:"type"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Category string  `json:"category,omitempty"`
}

// ServerMessage is the outbound envelope. A scene message always carries a
// view.SceneSnapshot, whether it greets a new session or follows an upload.
type ServerMessage struct {
	Type      string              `json:"type"`
	SessionID string              `json:"session_id,omitempty"`
	Scene     *view.SceneSnapshot `json:"scene,omitempty"`
	Frame     *FramePayload       `json:"frame,omitempty"`
	Field     selection.Field     `json:"field,omitempty"`
	State     *selection.State    `json:"state,omitempty"`
	Hit       *picking.Hit        `json:"hit,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// FramePayload carries the instances changed since the last push, and the
// full line buffers when the edge set changed.
type FramePayload struct {
	Frame         uint64                 `json:"frame"`
	Version       uint64                 `json:"version"`
	InstanceCount int                    `json:"instance_count"`
	View          [16]float32            `json:"view"`
	Projection    [16]float32            `json:"projection"`
	Updates       []scene.InstanceUpdate `json:"updates"`
	IDs           []string               `json:"ids,omitempty"`
	LinePositions []float32              `json:"line_positions,omitempty"`
	LineColors    []float32              `json:"line_colors,omitempty"`
}
