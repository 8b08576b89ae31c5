// Package validate checks authored rule records for problems the mesh would
// otherwise absorb silently.
package validate

import (
	"fmt"
	"strings"

	"decisionmesh/internal/config"
	"decisionmesh/internal/graph"
	"decisionmesh/internal/mesh"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeMissingID         = "missing_id"
	codeDuplicateID       = "duplicate_id"
	codeDanglingConn      = "dangling_connection"
	codeSelfConnection    = "self_connection"
	codeUnknownCategory   = "unknown_category"
	codeUnknownImportance = "unknown_importance"
	codeIsolatedEntity    = "isolated_entity"
)

type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Entity   string   `json:"entity,omitempty"`
	FilePath string   `json:"file_path,omitempty"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

func (r *Report) Errors() []Issue {
	return r.bySeverity(SeverityError)
}

func (r *Report) Warnings() []Issue {
	return r.bySeverity(SeverityWarn)
}

func (r *Report) HasErrors() bool {
	return len(r.Errors()) > 0
}

func (r *Report) bySeverity(s Severity) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == s {
			out = append(out, issue)
		}
	}
	return out
}

// Run checks records against the palette and the proximity settings in cfg.
// Records with a duplicate or missing id are reported and left out of the
// neighbor check.
func Run(records []mesh.Record, palette *config.Palette, cfg config.MeshConfig) (*Report, error) {
	if palette == nil {
		palette = config.DefaultPalette()
	}

	issues := make([]Issue, 0)
	known := make(map[string]struct{}, len(records))
	unique := make([]mesh.Record, 0, len(records))

	for _, r := range records {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			issues = append(issues, issueFor(r, SeverityError, codeMissingID, "entity has no id"))
			continue
		}
		if _, dup := known[id]; dup {
			issues = append(issues, issueFor(r, SeverityError, codeDuplicateID, fmt.Sprintf("duplicate entity id: %s", id)))
			continue
		}
		known[id] = struct{}{}
		unique = append(unique, r)
	}

	for _, r := range unique {
		category := mesh.NormalizeCategory(r.Category)
		if !palette.HasCategory(category) {
			issues = append(issues, issueFor(r, SeverityWarn, codeUnknownCategory,
				fmt.Sprintf("unknown category %q renders in the neutral color", r.Category)))
		}
		if strings.TrimSpace(r.Importance) != "" {
			if _, ok := mesh.ParseTier(r.Importance); !ok {
				issues = append(issues, issueFor(r, SeverityWarn, codeUnknownImportance,
					fmt.Sprintf("unknown importance %q treated as medium", r.Importance)))
			}
		}
		for _, target := range r.Connections {
			if target == r.ID {
				issues = append(issues, issueFor(r, SeverityWarn, codeSelfConnection, "entity connects to itself"))
				continue
			}
			if _, ok := known[target]; !ok {
				issues = append(issues, issueFor(r, SeverityWarn, codeDanglingConn,
					fmt.Sprintf("connection to unknown entity: %s", target)))
			}
		}
	}

	ds, err := mesh.FromRecords(unique, mesh.LayoutOptions{Radius: cfg.LayoutRadius})
	if err != nil {
		return nil, fmt.Errorf("building dataset: %w", err)
	}
	linked := make(map[string]struct{}, ds.Len())
	edges := append(graph.BuildDatasetEdges(ds, cfg.MaxDistance, cfg.MaxNeighbors), graph.ConnectionEdges(ds)...)
	for _, e := range edges {
		linked[e.SourceID] = struct{}{}
		linked[e.TargetID] = struct{}{}
	}
	for _, e := range ds.Entities() {
		if _, ok := linked[e.ID]; ok {
			continue
		}
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeIsolatedEntity,
			Message:  "entity has no connections and no neighbor within max_distance",
			Entity:   e.ID,
			FilePath: e.SourceFile,
		})
	}

	return &Report{Issues: issues}, nil
}

func issueFor(r mesh.Record, severity Severity, code, message string) Issue {
	return Issue{
		Severity: severity,
		Code:     code,
		Message:  message,
		Entity:   r.ID,
		FilePath: r.SourceFile,
	}
}
