// Package schema holds the data models the admin panel knows about and the
// filter metadata derived from them.
package schema

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/huandu/xstrings"
	"gopkg.in/yaml.v3"

	"github.com/rebelice/lazyadmin/internal/filter"
	"github.com/rebelice/lazyadmin/internal/models"
)

// Model is one table exposed in the panel
type Model struct {
	Name       string                `yaml:"name"`
	Label      string                `yaml:"label,omitempty"`
	Table      string                `yaml:"table,omitempty"`
	DBSchema   string                `yaml:"schema,omitempty"`
	PrimaryKey string                `yaml:"primaryKey,omitempty"`
	Fields     []models.FilterConfig `yaml:"fields"`

	fields map[string]int
}

// Schema is the immutable set of models
type Schema struct {
	Models []*Model `yaml:"models"`

	byName map[string]*Model
}

// New normalizes and validates models and indexes them by name
func New(ms []*Model) (*Schema, error) {
	s := &Schema{
		Models: ms,
		byName: make(map[string]*Model, len(ms)),
	}

	for _, m := range ms {
		if m.Name == "" {
			return nil, fmt.Errorf("model without name")
		}
		if _, dup := s.byName[m.Name]; dup {
			return nil, fmt.Errorf("duplicate model %q", m.Name)
		}
		if err := m.normalize(); err != nil {
			return nil, fmt.Errorf("model %q: %w", m.Name, err)
		}
		s.byName[m.Name] = m
	}

	// Relations can only be checked once every model is known
	for _, m := range ms {
		for _, f := range m.Fields {
			if !f.IsRelation() {
				continue
			}
			if _, ok := s.byName[f.RelationTo]; !ok {
				return nil, fmt.Errorf("model %q: field %q: unknown relation target %q", m.Name, f.Field, f.RelationTo)
			}
			if len(f.RelationFields) != len(f.RelationReferences) {
				return nil, fmt.Errorf("model %q: field %q: relationFields and relationReferences differ in length", m.Name, f.Field)
			}
		}
	}

	return s, nil
}

// Parse reads a YAML model document
func Parse(data []byte) (*Schema, error) {
	var doc struct {
		Models []*Model `yaml:"models"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return New(doc.Models)
}

// LoadFile reads a YAML model file
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(data)
}

// Marshal dumps the schema as YAML
func (s *Schema) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

// Model returns a model by name
func (s *Schema) Model(name string) (*Model, bool) {
	m, ok := s.byName[name]
	return m, ok
}

// Names returns the model names in sorted order
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Model) normalize() error {
	if m.Label == "" {
		m.Label = Humanize(m.Name)
	}
	if m.Table == "" {
		m.Table = m.Name
	}

	m.fields = make(map[string]int, len(m.Fields))
	for i := range m.Fields {
		f := &m.Fields[i]
		if f.Field == "" {
			return fmt.Errorf("field %d has no name", i)
		}
		if _, dup := m.fields[f.Field]; dup {
			return fmt.Errorf("duplicate field %q", f.Field)
		}
		m.fields[f.Field] = i

		if f.Label == "" {
			f.Label = Humanize(f.Field)
		}
		if f.RelationTo != "" && f.Type == "" {
			f.Type = models.TypeRelation
		}
		f.Type = normalizeFieldType(f.Type)

		switch {
		case f.Type == models.TypeRelation:
			if f.RelationTo == "" {
				return fmt.Errorf("relation field %q has no relationTo", f.Field)
			}
			if f.Kind != models.KindObjectList && f.List {
				f.Kind = models.KindObjectList
			}
			if f.Kind != models.KindObjectList {
				f.Kind = models.KindObject
			}
		case f.Type == models.TypeEnum:
			f.Kind = models.KindEnum
		case f.Kind == "":
			f.Kind = models.KindScalar
		}
	}
	return nil
}

func normalizeFieldType(t models.FieldType) models.FieldType {
	switch t {
	case models.TypeString, models.TypeNumber, models.TypeBoolean, models.TypeDateTime,
		models.TypeJSON, models.TypeEnum, models.TypeRelation:
		return t
	}
	return filter.NormalizeType(string(t))
}

// Field returns a field by name
func (m *Model) Field(name string) (models.FilterConfig, bool) {
	i, ok := m.fields[name]
	if !ok {
		return models.FilterConfig{}, false
	}
	return m.Fields[i], true
}

// ScalarFields returns the fields backed by a column of the model's table
func (m *Model) ScalarFields() []models.FilterConfig {
	var out []models.FilterConfig
	for _, f := range m.Fields {
		if !f.IsRelation() {
			out = append(out, f)
		}
	}
	return out
}

// FilterConfigs returns a copy of all field configs
func (m *Model) FilterConfigs() []models.FilterConfig {
	out := make([]models.FilterConfig, len(m.Fields))
	copy(out, m.Fields)
	return out
}

// Humanize turns a field or model name into a label: "createdAt" and
// "created_at" both become "Created at".
func Humanize(name string) string {
	words := strings.ReplaceAll(xstrings.ToSnakeCase(name), "_", " ")
	words = strings.Join(strings.Fields(words), " ")
	if words == "" {
		return name
	}
	return strings.ToUpper(words[:1]) + words[1:]
}
