package parser

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"decisionmesh/internal/mesh"
)

type Document struct {
	Frontmatter map[string]any
	ID          string
	Title       string
	Category    string
	Importance  string
	Position    *mesh.Vec3
	Connections []string
	Tags        []string
	Body        string
	SourceFile  string
}

var (
	ErrNoFrontmatter   = errors.New("no frontmatter found")
	ErrInvalidYAML     = errors.New("invalid YAML in frontmatter")
	ErrMissingTitle    = errors.New("frontmatter missing required 'title' field")
	ErrMissingCategory = errors.New("frontmatter missing required 'category' field")
	ErrInvalidPosition = errors.New("position must be a list of three numbers or a map with x, y, z")
)

func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	doc.SourceFile = path
	return doc, nil
}

func Parse(content []byte) (*Document, error) {
	trimmed := bytes.TrimLeft(content, "\ufeff\n\r\t ")
	trimmed = bytes.ReplaceAll(trimmed, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(trimmed, []byte("---\n")) {
		return nil, ErrNoFrontmatter
	}

	rest := trimmed[len("---\n"):]
	yamlBytes, body, ok := splitFrontmatter(rest)
	if !ok {
		return nil, ErrNoFrontmatter
	}

	var frontmatter map[string]any
	if err := yaml.Unmarshal(yamlBytes, &frontmatter); err != nil {
		return nil, ErrInvalidYAML
	}

	title, ok := frontmatter["title"].(string)
	if !ok || strings.TrimSpace(title) == "" {
		return nil, ErrMissingTitle
	}

	category, ok := frontmatter["category"].(string)
	if !ok || strings.TrimSpace(category) == "" {
		return nil, ErrMissingCategory
	}

	id, _ := frontmatter["id"].(string)
	id = strings.TrimSpace(id)
	if id == "" {
		id = Slug(title)
	}

	importance, err := scalarString(frontmatter["importance"], "importance")
	if err != nil {
		return nil, err
	}

	position, err := parsePosition(frontmatter["position"])
	if err != nil {
		return nil, err
	}

	connections, err := parseStringList(frontmatter["connections"], "connections")
	if err != nil {
		return nil, err
	}

	tags, err := parseStringList(frontmatter["tags"], "tags")
	if err != nil {
		return nil, err
	}

	return &Document{
		Frontmatter: frontmatter,
		ID:          id,
		Title:       strings.TrimSpace(title),
		Category:    strings.TrimSpace(category),
		Importance:  importance,
		Position:    position,
		Connections: connections,
		Tags:        tags,
		Body:        body,
	}, nil
}

// splitFrontmatter finds the closing marker, which must sit on its own line.
// A marker at end of input without a trailing newline is accepted.
func splitFrontmatter(rest []byte) (yamlBytes []byte, body string, ok bool) {
	if bytes.HasPrefix(rest, []byte("---\n")) {
		return nil, string(rest[len("---\n"):]), true
	}
	end := bytes.Index(rest, []byte("\n---\n"))
	if end != -1 {
		return rest[:end+1], string(rest[end+len("\n---\n"):]), true
	}
	if bytes.HasSuffix(rest, []byte("\n---")) {
		return rest[:len(rest)-len("---")], "", true
	}
	return nil, "", false
}

// Record converts the document into the authored entity form.
func (d *Document) Record() mesh.Record {
	return mesh.Record{
		ID:          d.ID,
		Label:       d.Title,
		Category:    d.Category,
		Importance:  d.Importance,
		Position:    d.Position,
		Connections: d.Connections,
		Tags:        d.Tags,
		Description: strings.TrimSpace(d.Body),
		SourceFile:  d.SourceFile,
	}
}

// Slug lowercases s and joins its alphanumeric runs with hyphens.
func Slug(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

func scalarString(value any, field string) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case int, float64, bool:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("%s must be a string", field)
	}
}

func parsePosition(value any) (*mesh.Vec3, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		if len(v) != 3 {
			return nil, ErrInvalidPosition
		}
		var coords [3]float64
		for i, item := range v {
			f, ok := toFloat(item)
			if !ok {
				return nil, ErrInvalidPosition
			}
			coords[i] = f
		}
		return &mesh.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}, nil
	case map[string]any:
		var coords [3]float64
		for i, key := range []string{"x", "y", "z"} {
			f, ok := toFloat(v[key])
			if !ok {
				return nil, ErrInvalidPosition
			}
			coords[i] = f
		}
		return &mesh.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}, nil
	default:
		return nil, ErrInvalidPosition
	}
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func parseStringList(value any, field string) ([]string, error) {
	if value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return []string{strings.TrimSpace(v)}, nil
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be strings", field)
			}
			if strings.TrimSpace(s) == "" {
				continue
			}
			items = append(items, strings.TrimSpace(s))
		}
		if len(items) == 0 {
			return nil, nil
		}
		return items, nil
	default:
		return nil, fmt.Errorf("%s must be string or list of strings", field)
	}
}
