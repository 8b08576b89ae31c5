// Package mcp exposes the live mesh to agents as Model Context Protocol
// tools.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"decisionmesh/internal/config"
	"decisionmesh/internal/filter"
	"decisionmesh/internal/mesh"
	"decisionmesh/internal/picking"
	"decisionmesh/internal/selection"
)

// MeshView is the part of the live view the tools drive.
type MeshView interface {
	Dataset() *mesh.Dataset
	Edges() []mesh.Edge
	Visible() filter.Visible
	Pick(x, y float64) (picking.Hit, bool)
	SetFilter(category mesh.Category) filter.Visible
	Select(id string) error
	Store() *selection.Store
}

type Server struct {
	palette *config.Palette
	view    MeshView
	mcp     *sdk.Server
}

func NewServer(palette *config.Palette, view MeshView, version string) *Server {
	if palette == nil {
		palette = config.DefaultPalette()
	}
	s := &Server{
		palette: palette,
		view:    view,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "decisionmesh",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
