package environment

import (
	"log/slog"
	"slices"

	"github.com/satishbabariya/celquery/internal/core/filter/domain"
	"github.com/satishbabariya/celquery/internal/core/schema"
	schemadomain "github.com/satishbabariya/celquery/internal/core/schema/domain"
)

var scalarTypes = map[string]domain.ValueType{
	"Int":      domain.TypeInt,
	"BigInt":   domain.TypeInt,
	"String":   domain.TypeString,
	"Boolean":  domain.TypeBool,
	"Float":    domain.TypeDouble,
	"Decimal":  domain.TypeDouble,
	"DateTime": domain.TypeTimestamp,
}

// Builder walks a model's relationship graph.
type Builder struct {
	registry *schema.MetadataRegistry
	logger   *slog.Logger
}

// NewBuilder creates a builder over registry. A nil logger discards output.
func NewBuilder(registry *schema.MetadataRegistry, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{registry: registry, logger: logger}
}

// Build derives the environment of root, minus every blacklisted path.
func (b *Builder) Build(root string, blacklist []string) (*Environment, error) {
	if _, err := b.registry.GetModel(root); err != nil {
		return nil, domain.Errorf(domain.KindUnsupportedSchemaType, "unknown root model %s", root)
	}
	table, err := b.registry.GetTableName(root)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]Field)
	if err := b.walk(root, "", nil, fields); err != nil {
		return nil, err
	}
	for _, path := range blacklist {
		delete(fields, path)
	}

	b.logger.Debug("built schema environment", "root", root, "paths", len(fields), "blacklisted", len(blacklist))
	return &Environment{root: root, table: table, fields: fields}, nil
}

// walk registers the fields of modelName under prefix. ancestors holds the models
// being expanded on the current path only; it is never mutated in place.
func (b *Builder) walk(modelName, prefix string, ancestors []string, fields map[string]Field) error {
	model, err := b.registry.GetModel(modelName)
	if err != nil {
		return domain.Errorf(domain.KindUnsupportedSchemaType, "relation target %s is not a model", modelName)
	}
	ancestors = append(slices.Clip(ancestors), modelName)

	for _, field := range model.Fields {
		path := prefix + field.Name

		switch b.registry.Classify(field.Type.Name) {
		case schema.ScalarType, schema.EnumType:
			t, err := b.scalarType(modelName, field)
			if err != nil {
				return err
			}
			column, err := b.registry.GetColumnName(modelName, field.Name)
			if err != nil {
				return err
			}
			fields[path] = Field{Path: path, Type: t, Model: modelName, Column: column}

		case schema.ModelType:
			if err := b.relation(modelName, prefix, field, ancestors, fields); err != nil {
				return err
			}

		default:
			return domain.Errorf(domain.KindUnsupportedSchemaType,
				"field %s.%s has unsupported type %s", modelName, field.Name, field.Type.Name)
		}
	}
	return nil
}

func (b *Builder) scalarType(modelName string, field schemadomain.Field) (domain.ValueType, error) {
	if field.IsList {
		return domain.TypeListDyn, nil
	}
	if b.registry.IsEnum(field.Type.Name) {
		return domain.TypeString, nil
	}
	t, ok := scalarTypes[field.Type.Name]
	if !ok {
		return 0, domain.Errorf(domain.KindUnsupportedSchemaType,
			"field %s.%s has unsupported type %s", modelName, field.Name, field.Type.Name)
	}
	return t, nil
}

func (b *Builder) relation(modelName, prefix string, field schemadomain.Field, ancestors []string, fields map[string]Field) error {
	rel, err := b.registry.GetRelation(modelName, field.Name)
	if err != nil {
		return err
	}

	if !rel.IsToMany() {
		// Join-key shortcut: expose the foreign key columns, not the related entity.
		for _, fk := range rel.FromFields {
			path := prefix + fk
			if _, declared := fields[path]; declared {
				continue
			}
			column, err := b.registry.GetColumnName(modelName, fk)
			if err != nil {
				return err
			}
			fields[path] = Field{Path: path, Type: domain.TypeInt, Model: modelName, Column: column}
		}
		return nil
	}

	path := prefix + field.Name
	fields[path] = Field{Path: path, Type: domain.TypeListDyn, Model: rel.ToModel}

	if slices.Contains(ancestors, rel.ToModel) {
		b.logger.Debug("skipping cyclic relation", "path", path, "model", rel.ToModel)
		return nil
	}
	return b.walk(rel.ToModel, path+".", ancestors, fields)
}
