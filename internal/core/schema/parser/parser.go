// Package parser implements the schema language parser.
package parser

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/afero"

	"github.com/satishbabariya/celquery/internal/core/schema/domain"
)

// Parser implements the SchemaParser interface.
type Parser struct {
	fs afero.Fs
}

// NewParser creates a new schema parser reading files from the OS filesystem.
func NewParser() *Parser {
	return NewParserWithFs(afero.NewOsFs())
}

// NewParserWithFs creates a parser reading files from fs.
func NewParserWithFs(fs afero.Fs) *Parser {
	return &Parser{fs: fs}
}

// Parse parses schema content from a string.
func (p *Parser) Parse(ctx context.Context, content string) (*domain.Schema, error) {
	return p.parse("schema.cq", content)
}

// ParseFile parses schema from a file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*domain.Schema, error) {
	content, err := afero.ReadFile(p.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	return p.parse(path, string(content))
}

func (p *Parser) parse(filename, content string) (*domain.Schema, error) {
	raw, err := schemaParser.ParseString(filename, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return convertSchema(raw)
}

// Ensure Parser implements SchemaParser interface.
var _ domain.SchemaParser = (*Parser)(nil)

func convertSchema(raw *rawSchema) (*domain.Schema, error) {
	schema := &domain.Schema{}
	for _, item := range raw.Items {
		switch {
		case item.Model != nil:
			model, err := convertModel(item.Model)
			if err != nil {
				return nil, err
			}
			schema.Models = append(schema.Models, model)
		case item.Enum != nil:
			schema.Enums = append(schema.Enums, domain.Enum{
				Name:   item.Enum.Name,
				Values: item.Enum.Values,
			})
		}
	}
	return schema, nil
}

func convertModel(raw *rawModel) (domain.Model, error) {
	model := domain.Model{Name: raw.Name}

	seen := make(map[string]bool, len(raw.Fields))
	for _, f := range raw.Fields {
		if seen[f.Name] {
			return domain.Model{}, fmt.Errorf("%s: model %s declares field %s twice", f.Pos, raw.Name, f.Name)
		}
		seen[f.Name] = true

		attrs, err := convertAttributes(f.Attributes)
		if err != nil {
			return domain.Model{}, err
		}
		model.Fields = append(model.Fields, domain.Field{
			Name:       f.Name,
			Type:       domain.FieldType{Name: f.Type},
			IsList:     f.ListSuffix != nil,
			IsOptional: f.OptionalMark != nil,
			Attributes: attrs,
		})
	}

	attrs, err := convertAttributes(raw.BlockAttributes)
	if err != nil {
		return domain.Model{}, err
	}
	model.Attributes = attrs
	return model, nil
}

func convertAttributes(raw []*rawAttribute) ([]domain.Attribute, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	attrs := make([]domain.Attribute, 0, len(raw))
	for _, a := range raw {
		attr := domain.Attribute{Name: a.Name}
		for _, arg := range a.Arguments {
			v, err := convertValue(arg.Value)
			if err != nil {
				return nil, err
			}
			name := ""
			if arg.Name != nil {
				name = *arg.Name
			}
			attr.Arguments = append(attr.Arguments, domain.Argument{Name: name, Value: v})
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func convertValue(v *rawValue) (any, error) {
	switch {
	case v.String != nil:
		return *v.String, nil
	case v.Number != nil:
		n, err := strconv.ParseFloat(*v.Number, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid number %q", v.Pos, *v.Number)
		}
		return n, nil
	case v.Array != nil:
		items := make([]any, 0, len(v.Array.Elements))
		for _, el := range v.Array.Elements {
			item, err := convertValue(el)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case v.Call != nil:
		// Function defaults such as autoincrement() carry no filter metadata.
		return domain.Ident(v.Call.Name + "()"), nil
	case v.Ident != nil:
		switch *v.Ident {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return domain.Ident(*v.Ident), nil
	}
	return nil, fmt.Errorf("%s: empty attribute value", v.Pos)
}
