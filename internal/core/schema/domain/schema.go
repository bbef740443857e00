// Package domain contains the entity descriptors the filter engine reads its schema from.
package domain

import "context"

// Schema represents a parsed schema file.
type Schema struct {
	Models []Model
	Enums  []Enum
}

// Model represents an entity type.
type Model struct {
	Name       string
	Fields     []Field
	Attributes []Attribute
}

// Field represents a declared attribute of a model.
type Field struct {
	Name       string
	Type       FieldType
	IsOptional bool
	IsList     bool
	Attributes []Attribute
}

// FieldType represents field type information.
type FieldType struct {
	Name string
}

// Enum represents an enum entity.
type Enum struct {
	Name   string
	Values []string
}

// Attribute represents a field (@name) or model (@@name) attribute.
type Attribute struct {
	Name      string
	Arguments []Argument
}

// Argument is a positional or named attribute argument.
// Value holds a string, float64, bool, an identifier (Ident) or a []any of those.
type Argument struct {
	Name  string
	Value any
}

// Ident is a bare identifier used as an attribute argument value.
type Ident string

// Relation represents a relation value object.
type Relation struct {
	Name         string
	FromModel    string
	ToModel      string
	FromFields   []string
	ToFields     []string
	RelationType RelationType
}

// RelationType represents the cardinality of a relation.
type RelationType string

const (
	// OneToMany represents a to-many relation seen from the parent side.
	OneToMany RelationType = "OneToMany"
	// ManyToOne represents a to-one relation seen from the child side.
	ManyToOne RelationType = "ManyToOne"
)

// IsToMany reports whether traversing the relation can fan out.
func (r Relation) IsToMany() bool {
	return r.RelationType == OneToMany
}

// Entity is implemented by Go types that describe themselves as a model.
type Entity interface {
	EntityModel() Model
}

// SchemaParser defines the interface for parsing schemas.
type SchemaParser interface {
	// Parse parses schema content from a string.
	Parse(ctx context.Context, content string) (*Schema, error)

	// ParseFile parses schema from a file.
	ParseFile(ctx context.Context, path string) (*Schema, error)
}

// Attribute returns the first attribute with the given name.
func (f Field) Attribute(name string) (Attribute, bool) {
	return findAttribute(f.Attributes, name)
}

// HasAttribute reports whether the field carries the attribute.
func (f Field) HasAttribute(name string) bool {
	_, ok := f.Attribute(name)
	return ok
}

// Attribute returns the first model attribute with the given name.
func (m Model) Attribute(name string) (Attribute, bool) {
	return findAttribute(m.Attributes, name)
}

// Field returns the declared field with the given name.
func (m Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func findAttribute(attrs []Attribute, name string) (Attribute, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Arg returns the named argument, falling back to the positional argument at index
// when no argument carries the name.
func (a Attribute) Arg(name string, index int) (any, bool) {
	for _, arg := range a.Arguments {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	positional := 0
	for _, arg := range a.Arguments {
		if arg.Name != "" {
			continue
		}
		if positional == index {
			return arg.Value, true
		}
		positional++
	}
	return nil, false
}

// StringArg is Arg restricted to string and identifier values.
func (a Attribute) StringArg(name string, index int) (string, bool) {
	v, ok := a.Arg(name, index)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case Ident:
		return string(s), true
	}
	return "", false
}

// ListArg returns a list argument as strings, e.g. fields: [content_id].
func (a Attribute) ListArg(name string) []string {
	v, ok := a.Arg(name, -1)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch s := item.(type) {
		case string:
			out = append(out, s)
		case Ident:
			out = append(out, string(s))
		}
	}
	return out
}
