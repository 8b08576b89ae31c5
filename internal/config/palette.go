package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"decisionmesh/internal/mesh"
)

// Color is linear RGB in [0, 1].
type Color [3]float32

func (c Color) Scale(f float32) Color {
	return Color{clamp01(c[0] * f), clamp01(c[1] * f), clamp01(c[2] * f)}
}

func (c Color) Mix(o Color) Color {
	return Color{(c[0] + o[0]) / 2, (c[1] + o[1]) / 2, (c[2] + o[2]) / 2}
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", int(c[0]*255+0.5), int(c[1]*255+0.5), int(c[2]*255+0.5))
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func ParseHexColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{
		float32((v>>16)&0xff) / 255,
		float32((v>>8)&0xff) / 255,
		float32(v&0xff) / 255,
	}, nil
}

type Palette struct {
	Version    int                `yaml:"version"`
	Neutral    string             `yaml:"neutral"`
	Categories []CategoryColor    `yaml:"categories"`
	Tiers      map[string]float64 `yaml:"tiers"`
	Highlight  HighlightConfig    `yaml:"highlight"`

	neutral    Color
	colorIndex map[mesh.Category]Color
	scaleIndex map[mesh.Tier]float32
}

type CategoryColor struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

type HighlightConfig struct {
	Selected float64 `yaml:"selected"`
	Hovered  float64 `yaml:"hovered"`
}

func DefaultPalette() *Palette {
	p := &Palette{
		Version: 1,
		Neutral: "#8a8f98",
		Categories: []CategoryColor{
			{Name: "core", Color: "#4f8cff"},
			{Name: "architecture", Color: "#a66cff"},
			{Name: "security", Color: "#ff5c5c"},
			{Name: "testing", Color: "#3ecf8e"},
			{Name: "prompting", Color: "#ffb020"},
			{Name: "workflows", Color: "#22c3d6"},
			{Name: "performance", Color: "#ff7ac6"},
		},
		Tiers: map[string]float64{
			"low":      0.6,
			"medium":   0.8,
			"high":     1.0,
			"critical": 1.3,
		},
		Highlight: HighlightConfig{Selected: 1.8, Hovered: 1.4},
	}
	if err := p.index(); err != nil {
		panic(err)
	}
	return p
}

func LoadPalette(path string) (*Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading palette: %w", err)
	}

	palette := DefaultPalette()
	palette.Categories = nil
	if err := yaml.Unmarshal(data, palette); err != nil {
		return nil, fmt.Errorf("loading palette: %w", err)
	}

	if err := validatePalette(palette); err != nil {
		return nil, fmt.Errorf("loading palette: %w", err)
	}
	if err := palette.index(); err != nil {
		return nil, fmt.Errorf("loading palette: %w", err)
	}
	return palette, nil
}

// LoadPaletteOrDefault falls back to DefaultPalette when path does not exist.
func LoadPaletteOrDefault(path string) (*Palette, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultPalette(), nil
	}
	return LoadPalette(path)
}

func validatePalette(p *Palette) error {
	if p.Version != 1 {
		return fmt.Errorf("unsupported version: %d", p.Version)
	}
	seen := make(map[string]struct{})
	for i, c := range p.Categories {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" {
			return fmt.Errorf("category %d name is required", i)
		}
		if name == string(mesh.All) {
			return fmt.Errorf("category name %q is reserved", c.Name)
		}
		if _, exists := seen[name]; exists {
			return fmt.Errorf("duplicate category: %s", c.Name)
		}
		seen[name] = struct{}{}
	}
	for name, scale := range p.Tiers {
		if _, ok := mesh.ParseTier(name); !ok {
			return fmt.Errorf("unknown tier: %s", name)
		}
		if scale <= 0 {
			return fmt.Errorf("tier %s scale must be positive", name)
		}
	}
	if p.Highlight.Selected <= 0 || p.Highlight.Hovered <= 0 {
		return fmt.Errorf("highlight multipliers must be positive")
	}
	return nil
}

func (p *Palette) index() error {
	neutral, err := ParseHexColor(p.Neutral)
	if err != nil {
		return fmt.Errorf("neutral: %w", err)
	}
	p.neutral = neutral

	p.colorIndex = make(map[mesh.Category]Color, len(p.Categories))
	for _, c := range p.Categories {
		color, err := ParseHexColor(c.Color)
		if err != nil {
			return fmt.Errorf("category %s: %w", c.Name, err)
		}
		p.colorIndex[mesh.NormalizeCategory(c.Name)] = color
	}

	p.scaleIndex = make(map[mesh.Tier]float32, len(p.Tiers))
	for name, scale := range p.Tiers {
		tier, _ := mesh.ParseTier(name)
		p.scaleIndex[tier] = float32(scale)
	}
	return nil
}

// ColorFor returns the category color, or the neutral color for categories
// the palette does not know.
func (p *Palette) ColorFor(c mesh.Category) Color {
	if color, ok := p.colorIndex[c]; ok {
		return color
	}
	return p.neutral
}

func (p *Palette) NeutralColor() Color {
	return p.neutral
}

func (p *Palette) HasCategory(c mesh.Category) bool {
	_, ok := p.colorIndex[c]
	return ok
}

func (p *Palette) ScaleFor(t mesh.Tier) float32 {
	if scale, ok := p.scaleIndex[t]; ok {
		return scale
	}
	return 1
}
