package mesh

import "strings"

type Category string

// All is the filter sentinel meaning "no category filtering".
const All Category = "all"

const (
	CategoryCore         Category = "core"
	CategoryArchitecture Category = "architecture"
	CategorySecurity     Category = "security"
	CategoryTesting      Category = "testing"
	CategoryPrompting    Category = "prompting"
	CategoryWorkflows    Category = "workflows"
	CategoryPerformance  Category = "performance"
)

var KnownCategories = []Category{
	CategoryCore,
	CategoryArchitecture,
	CategorySecurity,
	CategoryTesting,
	CategoryPrompting,
	CategoryWorkflows,
	CategoryPerformance,
}

func NormalizeCategory(s string) Category {
	return Category(strings.ToLower(strings.TrimSpace(s)))
}

// IsAll reports whether c disables filtering. The empty category counts as all.
func (c Category) IsAll() bool {
	return c == "" || c == All
}

func (c Category) Known() bool {
	for _, known := range KnownCategories {
		if c == known {
			return true
		}
	}
	return false
}

type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
	TierCritical
)

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	case TierCritical:
		return "critical"
	default:
		return "medium"
	}
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	*t, _ = ParseTier(string(b))
	return nil
}

// ParseTier maps an importance label to its tier. Unknown or empty labels
// resolve to TierMedium with ok=false.
func ParseTier(s string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return TierLow, true
	case "medium":
		return TierMedium, true
	case "high":
		return TierHigh, true
	case "critical":
		return TierCritical, true
	default:
		return TierMedium, false
	}
}

type Entity struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Category    Category `json:"category"`
	Tier        Tier     `json:"importance"`
	Position    Vec3     `json:"position"`
	Connections []string `json:"connections"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
	SourceFile  string   `json:"source_file,omitempty"`

	// Seed is the entity's position in its Dataset, assigned by NewDataset.
	Seed int `json:"-"`
}

// Edge is a computed, render-only connection. Edges are directional.
type Edge struct {
	SourceID string `json:"source"`
	TargetID string `json:"target"`
}

// Record is the authored form of an entity as supplied by the content
// system or the dataset store. Position is nil when the author left
// placement to the layout.
type Record struct {
	ID          string
	Label       string
	Category    string
	Importance  string
	Position    *Vec3
	Connections []string
	Tags        []string
	Description string
	SourceFile  string
}
