// Package schema provides a metadata registry for entity descriptors.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/satishbabariya/celquery/internal/core/schema/domain"
)

// ErrModelNotFound is returned when a model is not registered.
var ErrModelNotFound = errors.New("model not found")

// TypeClass classifies a field's declared type name.
type TypeClass int

const (
	// UnknownType is neither a scalar, an enum nor a registered model.
	UnknownType TypeClass = iota
	// ScalarType is a builtin scalar such as Int or String.
	ScalarType
	// EnumType is a declared enum.
	EnumType
	// ModelType is a registered model, i.e. a relation.
	ModelType
)

var scalars = map[string]bool{
	"String": true, "Boolean": true, "Int": true, "BigInt": true,
	"Float": true, "Decimal": true, "DateTime": true,
	"Json": true, "Bytes": true,
}

// MetadataRegistry stores queryable schema metadata for use by the filter engine.
// It provides fast lookup of models, fields, and relations.
type MetadataRegistry struct {
	mu        sync.RWMutex
	models    map[string]*domain.Model
	relations map[string][]domain.Relation // key: model name
	enums     map[string]*domain.Enum
}

// NewMetadataRegistry creates a new metadata registry.
func NewMetadataRegistry() *MetadataRegistry {
	return &MetadataRegistry{
		models:    make(map[string]*domain.Model),
		relations: make(map[string][]domain.Relation),
		enums:     make(map[string]*domain.Enum),
	}
}

// LoadFromSchema replaces the registry contents with a parsed schema.
func (r *MetadataRegistry) LoadFromSchema(schema *domain.Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.models = make(map[string]*domain.Model)
	r.enums = make(map[string]*domain.Enum)

	for i := range schema.Models {
		model := schema.Models[i]
		if _, dup := r.models[model.Name]; dup {
			return fmt.Errorf("model %s declared twice", model.Name)
		}
		r.models[model.Name] = &model
	}
	for i := range schema.Enums {
		enum := schema.Enums[i]
		r.enums[enum.Name] = &enum
	}

	r.indexRelations()
	return nil
}

// Register adds Go-declared entities to the registry.
func (r *MetadataRegistry) Register(entities ...domain.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range entities {
		model := e.EntityModel()
		if model.Name == "" {
			return errors.New("entity model has no name")
		}
		r.models[model.Name] = &model
	}

	r.indexRelations()
	return nil
}

// indexRelations rebuilds relation metadata. Callers hold the write lock.
func (r *MetadataRegistry) indexRelations() {
	r.relations = make(map[string][]domain.Relation)
	for _, model := range r.models {
		for _, field := range model.Fields {
			if r.classify(field.Type.Name) != ModelType {
				continue
			}
			r.relations[model.Name] = append(r.relations[model.Name], r.buildRelationFromField(model, field))
		}
	}
}

// buildRelationFromField constructs relation metadata from a field.
// FromFields live on FromModel and ToFields on ToModel; they pair up index by index.
func (r *MetadataRegistry) buildRelationFromField(model *domain.Model, field domain.Field) domain.Relation {
	rel := domain.Relation{
		Name:      field.Name,
		FromModel: model.Name,
		ToModel:   field.Type.Name,
	}

	target := r.models[field.Type.Name]

	if !field.IsList {
		rel.RelationType = domain.ManyToOne
		if attr, ok := field.Attribute("relation"); ok {
			rel.FromFields = attr.ListArg("fields")
			rel.ToFields = attr.ListArg("references")
		}
		if len(rel.FromFields) > 0 && len(rel.ToFields) == 0 {
			rel.ToFields = primaryKey(target)
		}
		return rel
	}

	rel.RelationType = domain.OneToMany
	if back, ok := r.backReference(model, field, target); ok {
		if attr, ok := back.Attribute("relation"); ok {
			rel.ToFields = attr.ListArg("fields")
			rel.FromFields = attr.ListArg("references")
		}
	}
	if len(rel.ToFields) == 0 {
		rel.ToFields = []string{strings.ToLower(model.Name) + "_id"}
	}
	if len(rel.FromFields) == 0 {
		rel.FromFields = primaryKey(model)
	}
	return rel
}

// backReference finds the to-one field on target pointing back at model.
// @relation(mappedBy: "field") on the list side picks it explicitly.
func (r *MetadataRegistry) backReference(model *domain.Model, field domain.Field, target *domain.Model) (domain.Field, bool) {
	if target == nil {
		return domain.Field{}, false
	}
	if attr, ok := field.Attribute("relation"); ok {
		if name, ok := attr.StringArg("mappedBy", -1); ok {
			return target.Field(name)
		}
	}
	for _, f := range target.Fields {
		if f.Type.Name == model.Name && !f.IsList {
			return f, true
		}
	}
	return domain.Field{}, false
}

func primaryKey(model *domain.Model) []string {
	if model == nil {
		return []string{"id"}
	}
	var keys []string
	for _, f := range model.Fields {
		if f.HasAttribute("id") {
			keys = append(keys, f.Name)
		}
	}
	if len(keys) == 0 {
		return []string{"id"}
	}
	return keys
}

// GetModel retrieves a model by name.
func (r *MetadataRegistry) GetModel(name string) (*domain.Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	model, exists := r.models[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	return model, nil
}

// LookupModel finds a model by case-insensitive name.
func (r *MetadataRegistry) LookupModel(name string) (*domain.Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.models[name]; ok {
		return m, true
	}
	for key, m := range r.models {
		if strings.EqualFold(key, name) {
			return m, true
		}
	}
	return nil, false
}

// ModelNames returns the registered model names in sorted order.
func (r *MetadataRegistry) ModelNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetRelation retrieves relation metadata for a relation field of a model.
func (r *MetadataRegistry) GetRelation(fromModel, relationName string) (*domain.Relation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rel := range r.relations[fromModel] {
		if rel.Name == relationName {
			rel := rel
			return &rel, nil
		}
	}
	return nil, fmt.Errorf("relation %s not found for model %s", relationName, fromModel)
}

// GetAllRelations returns all relations for a model.
func (r *MetadataRegistry) GetAllRelations(modelName string) []domain.Relation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	relations := r.relations[modelName]
	result := make([]domain.Relation, len(relations))
	copy(result, relations)
	return result
}

// GetField retrieves a field from a model.
func (r *MetadataRegistry) GetField(modelName, fieldName string) (*domain.Field, error) {
	model, err := r.GetModel(modelName)
	if err != nil {
		return nil, err
	}

	for i := range model.Fields {
		if model.Fields[i].Name == fieldName {
			return &model.Fields[i], nil
		}
	}
	return nil, fmt.Errorf("field %s not found in model %s", fieldName, modelName)
}

// IsEnum checks if a type name is an enum.
func (r *MetadataRegistry) IsEnum(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.enums[typeName]
	return exists
}

// Classify reports what kind of type a field type name refers to.
func (r *MetadataRegistry) Classify(typeName string) TypeClass {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.classify(typeName)
}

func (r *MetadataRegistry) classify(typeName string) TypeClass {
	switch {
	case scalars[typeName]:
		return ScalarType
	case r.enums[typeName] != nil:
		return EnumType
	case r.models[typeName] != nil:
		return ModelType
	}
	return UnknownType
}

// GetTableName returns the database table name for a model (handles @@map).
func (r *MetadataRegistry) GetTableName(modelName string) (string, error) {
	model, err := r.GetModel(modelName)
	if err != nil {
		return "", err
	}

	if attr, ok := model.Attribute("map"); ok {
		if name, ok := attr.StringArg("name", 0); ok {
			return name, nil
		}
	}
	return strings.ToLower(model.Name), nil
}

// GetColumnName returns the database column name for a field (handles @map).
// Names that are not declared fields, such as bare join columns, are returned as-is.
func (r *MetadataRegistry) GetColumnName(modelName, fieldName string) (string, error) {
	model, err := r.GetModel(modelName)
	if err != nil {
		return "", err
	}

	field, ok := model.Field(fieldName)
	if !ok {
		return fieldName, nil
	}
	if attr, ok := field.Attribute("map"); ok {
		if name, ok := attr.StringArg("name", 0); ok {
			return name, nil
		}
	}
	return field.Name, nil
}

// GetPrimaryKey returns the primary key field names of a model.
func (r *MetadataRegistry) GetPrimaryKey(modelName string) ([]string, error) {
	model, err := r.GetModel(modelName)
	if err != nil {
		return nil, err
	}
	return primaryKey(model), nil
}
