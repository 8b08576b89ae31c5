package mcp

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"decisionmesh/internal/graph"
	"decisionmesh/internal/mesh"
)

type ListEntitiesInput struct {
	Category    string `json:"category,omitempty" jsonschema:"category filter"`
	Tag         string `json:"tag,omitempty" jsonschema:"tag filter"`
	VisibleOnly bool   `json:"visible_only,omitempty" jsonschema:"only entities passing the active filter"`
}

type GetEntityInput struct {
	ID string `json:"id" jsonschema:"entity id"`
}

type GetNeighborsInput struct {
	ID string `json:"id" jsonschema:"entity id"`
}

type PickInput struct {
	X float64 `json:"x" jsonschema:"pointer x in viewport pixels"`
	Y float64 `json:"y" jsonschema:"pointer y in viewport pixels"`
}

type SetFilterInput struct {
	Category string `json:"category" jsonschema:"category to show, or all"`
}

type SelectEntityInput struct {
	ID string `json:"id,omitempty" jsonschema:"entity id to select; empty clears the selection"`
}

type GetSelectionInput struct{}

type GetPaletteInput struct{}

type EntitySummaryOutput struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Category   string   `json:"category"`
	Importance string   `json:"importance"`
	Tags       []string `json:"tags"`
}

type EntityOutput struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Category    string    `json:"category"`
	Importance  string    `json:"importance"`
	Position    mesh.Vec3 `json:"position"`
	Connections []string  `json:"connections"`
	Neighbors   []string  `json:"neighbors"`
	Tags        []string  `json:"tags"`
	Description string    `json:"description,omitempty"`
	SourceFile  string    `json:"source_file,omitempty"`
	Visible     bool      `json:"visible"`
}

type ListEntitiesOutput struct {
	Entities []EntitySummaryOutput `json:"entities"`
}

type NeighborOutput struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Distance float64 `json:"distance"`
}

type GetNeighborsOutput struct {
	Neighbors   []NeighborOutput `json:"neighbors"`
	Connections []NeighborOutput `json:"connections"`
}

type PickOutput struct {
	Hit      bool      `json:"hit"`
	ID       string    `json:"id,omitempty"`
	Distance float64   `json:"distance,omitempty"`
	Point    mesh.Vec3 `json:"point,omitempty"`
}

type SetFilterOutput struct {
	Category string   `json:"category"`
	Visible  []string `json:"visible"`
	Edges    int      `json:"edges"`
}

type SelectionOutput struct {
	SelectedID     string `json:"selected_id,omitempty"`
	HoveredID      string `json:"hovered_id,omitempty"`
	ActiveCategory string `json:"active_category"`
}

type CategoryColorOutput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type PaletteOutput struct {
	Neutral    string                `json:"neutral"`
	Categories []CategoryColorOutput `json:"categories"`
	Tiers      map[string]float64    `json:"tiers"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_entities",
		Description: "List rule entities with optional category and tag filters",
	}, s.handleListEntities)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_entity",
		Description: "Retrieve one entity with its declared connections and proximity neighbors",
	}, s.handleGetEntity)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_neighbors",
		Description: "List the nearest entities linked to an entity by proximity",
	}, s.handleGetNeighbors)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "pick",
		Description: "Resolve a viewport pixel to the entity under it",
	}, s.handlePick)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "set_filter",
		Description: "Show only one category, or all",
	}, s.handleSetFilter)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_selection",
		Description: "Return the selected and hovered entity and the active category",
	}, s.handleGetSelection)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "select_entity",
		Description: "Select a visible entity, or clear the selection",
	}, s.handleSelectEntity)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_palette",
		Description: "Return the category colors and importance scales",
	}, s.handleGetPalette)
}

func (s *Server) handleListEntities(ctx context.Context, req *sdk.CallToolRequest, input ListEntitiesInput) (*sdk.CallToolResult, ListEntitiesOutput, error) {
	category := mesh.NormalizeCategory(input.Category)
	visible := s.view.Visible()

	output := make([]EntitySummaryOutput, 0)
	for _, e := range s.view.Dataset().Entities() {
		if !category.IsAll() && e.Category != category {
			continue
		}
		if input.Tag != "" && !hasTag(e.Tags, input.Tag) {
			continue
		}
		if input.VisibleOnly && !visible.Contains(e.ID) {
			continue
		}
		output = append(output, entitySummaryOutput(e))
	}
	return nil, ListEntitiesOutput{Entities: output}, nil
}

func (s *Server) handleGetEntity(ctx context.Context, req *sdk.CallToolRequest, input GetEntityInput) (*sdk.CallToolResult, EntityOutput, error) {
	if input.ID == "" {
		return nil, EntityOutput{}, fmt.Errorf("id is required")
	}
	entity, ok := s.view.Dataset().Lookup(input.ID)
	if !ok {
		return nil, EntityOutput{}, fmt.Errorf("entity not found")
	}

	neighbors := make([]string, 0)
	for _, e := range graph.Outgoing(s.view.Edges(), entity.ID) {
		neighbors = append(neighbors, e.TargetID)
	}
	return nil, EntityOutput{
		ID:          entity.ID,
		Label:       entity.Label,
		Category:    string(entity.Category),
		Importance:  entity.Tier.String(),
		Position:    entity.Position,
		Connections: append([]string{}, entity.Connections...),
		Neighbors:   neighbors,
		Tags:        append([]string{}, entity.Tags...),
		Description: entity.Description,
		SourceFile:  entity.SourceFile,
		Visible:     s.view.Visible().Contains(entity.ID),
	}, nil
}

func (s *Server) handleGetNeighbors(ctx context.Context, req *sdk.CallToolRequest, input GetNeighborsInput) (*sdk.CallToolResult, GetNeighborsOutput, error) {
	if input.ID == "" {
		return nil, GetNeighborsOutput{}, fmt.Errorf("id is required")
	}
	ds := s.view.Dataset()
	entity, ok := ds.Lookup(input.ID)
	if !ok {
		return nil, GetNeighborsOutput{}, fmt.Errorf("entity not found")
	}

	return nil, GetNeighborsOutput{
		Neighbors:   neighborOutputs(ds, entity, graph.Outgoing(s.view.Edges(), entity.ID)),
		Connections: neighborOutputs(ds, entity, graph.Outgoing(graph.ConnectionEdges(ds), entity.ID)),
	}, nil
}

func neighborOutputs(ds *mesh.Dataset, from mesh.Entity, edges []mesh.Edge) []NeighborOutput {
	output := make([]NeighborOutput, 0, len(edges))
	for _, e := range edges {
		target, ok := ds.Lookup(e.TargetID)
		if !ok {
			continue
		}
		output = append(output, NeighborOutput{
			ID:       target.ID,
			Label:    target.Label,
			Distance: target.Position.Sub(from.Position).Len(),
		})
	}
	return output
}

func (s *Server) handlePick(ctx context.Context, req *sdk.CallToolRequest, input PickInput) (*sdk.CallToolResult, PickOutput, error) {
	hit, ok := s.view.Pick(input.X, input.Y)
	if !ok {
		return nil, PickOutput{}, nil
	}
	return nil, PickOutput{Hit: true, ID: hit.ID, Distance: hit.Distance, Point: hit.Point}, nil
}

func (s *Server) handleSetFilter(ctx context.Context, req *sdk.CallToolRequest, input SetFilterInput) (*sdk.CallToolResult, SetFilterOutput, error) {
	visible := s.view.SetFilter(mesh.NormalizeCategory(input.Category))
	ids := make([]string, 0, len(visible.Entities))
	for _, e := range visible.Entities {
		ids = append(ids, e.ID)
	}
	return nil, SetFilterOutput{Category: string(visible.Category), Visible: ids, Edges: len(visible.Edges)}, nil
}

func (s *Server) handleGetSelection(ctx context.Context, req *sdk.CallToolRequest, input GetSelectionInput) (*sdk.CallToolResult, SelectionOutput, error) {
	return nil, selectionOutput(s.view), nil
}

func (s *Server) handleSelectEntity(ctx context.Context, req *sdk.CallToolRequest, input SelectEntityInput) (*sdk.CallToolResult, SelectionOutput, error) {
	if err := s.view.Select(strings.TrimSpace(input.ID)); err != nil {
		return nil, SelectionOutput{}, err
	}
	return nil, selectionOutput(s.view), nil
}

func (s *Server) handleGetPalette(ctx context.Context, req *sdk.CallToolRequest, input GetPaletteInput) (*sdk.CallToolResult, PaletteOutput, error) {
	out := PaletteOutput{
		Neutral:    s.palette.NeutralColor().Hex(),
		Categories: make([]CategoryColorOutput, 0, len(s.palette.Categories)),
		Tiers:      make(map[string]float64, 4),
	}
	for _, c := range s.palette.Categories {
		out.Categories = append(out.Categories, CategoryColorOutput{
			Name:  c.Name,
			Color: s.palette.ColorFor(mesh.NormalizeCategory(c.Name)).Hex(),
		})
	}
	for _, tier := range []mesh.Tier{mesh.TierLow, mesh.TierMedium, mesh.TierHigh, mesh.TierCritical} {
		out.Tiers[tier.String()] = float64(s.palette.ScaleFor(tier))
	}
	return nil, out, nil
}

func selectionOutput(view MeshView) SelectionOutput {
	state := view.Store().State()
	return SelectionOutput{
		SelectedID:     state.SelectedID,
		HoveredID:      state.HoveredID,
		ActiveCategory: string(state.ActiveCategory),
	}
}

func entitySummaryOutput(e mesh.Entity) EntitySummaryOutput {
	return EntitySummaryOutput{
		ID:         e.ID,
		Label:      e.Label,
		Category:   string(e.Category),
		Importance: e.Tier.String(),
		Tags:       append([]string{}, e.Tags...),
	}
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
