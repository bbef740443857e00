// Package resolver turns field paths into column references, creating the
// relationship joins a path needs along the way.
package resolver

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/common/ast"

	"github.com/satishbabariya/celquery/internal/core/filter/domain"
	"github.com/satishbabariya/celquery/internal/core/filter/environment"
	"github.com/satishbabariya/celquery/internal/core/schema"
)

// Context is the traversal state of a single translation. Joins are memoised by
// relationship path, so "metadata.datakey" and "metadata.datavalue" share one join.
// A Context must not be shared between translations.
type Context struct {
	env      *environment.Environment
	registry *schema.MetadataRegistry
	joins    map[string]*domain.Join
	order    []*domain.Join
}

// NewContext creates an empty traversal context rooted at env's root model.
func NewContext(env *environment.Environment, registry *schema.MetadataRegistry) *Context {
	return &Context{
		env:      env,
		registry: registry,
		joins:    make(map[string]*domain.Join),
	}
}

// Environment returns the environment paths are validated against.
func (c *Context) Environment() *environment.Environment { return c.env }

// Joins returns the joins introduced so far, parents before children.
func (c *Context) Joins() []*domain.Join {
	out := make([]*domain.Join, len(c.order))
	copy(out, c.order)
	return out
}

// HasJoins reports whether any join was introduced.
func (c *Context) HasJoins() bool { return len(c.order) > 0 }

// ResolveExpr resolves an identifier or select chain.
func (c *Context) ResolveExpr(e ast.Expr) (domain.FieldRef, error) {
	path, err := PathOf(e)
	if err != nil {
		return domain.FieldRef{}, err
	}
	return c.Resolve(path)
}

// PathOf flattens an identifier or a chain of selects into a dotted path.
// Any other node kind in path position is an InvalidFieldPath error.
func PathOf(e ast.Expr) (string, error) {
	switch e.Kind() {
	case ast.IdentKind:
		return e.AsIdent(), nil
	case ast.SelectKind:
		sel := e.AsSelect()
		if sel.IsTestOnly() {
			return "", domain.Errorf(domain.KindInvalidFieldPath, "has() is not a field path").At(e.ID())
		}
		operand, err := PathOf(sel.Operand())
		if err != nil {
			return "", err
		}
		return operand + "." + sel.FieldName(), nil
	}
	return "", domain.Errorf(domain.KindInvalidFieldPath, "%s is not a field path", KindName(e.Kind())).At(e.ID())
}

// Resolve resolves a dotted path. Every segment but the last traverses a to-many
// relationship through a LEFT join; the last names the terminal attribute.
func (c *Context) Resolve(path string) (domain.FieldRef, error) {
	field, ok := c.env.Lookup(path)
	if !ok {
		return domain.FieldRef{}, domain.Errorf(domain.KindInvalidFieldPath, "unknown field %q on %s", path, c.env.Root())
	}

	segments := strings.Split(path, ".")
	model := c.env.Root()
	var parent *domain.Join

	for i, seg := range segments[:len(segments)-1] {
		relPath := strings.Join(segments[:i+1], ".")
		join, err := c.join(parent, model, seg, relPath)
		if err != nil {
			return domain.FieldRef{}, err
		}
		parent = join
		model = join.Model
	}

	ref := domain.FieldRef{
		Path:   path,
		Column: field.Column,
		Type:   field.Type,
		Model:  field.Model,
		Join:   parent,
	}
	return ref, nil
}

// join returns the memoised join for relPath or creates it.
func (c *Context) join(parent *domain.Join, model, relation, relPath string) (*domain.Join, error) {
	if j, ok := c.joins[relPath]; ok {
		return j, nil
	}

	rel, err := c.registry.GetRelation(model, relation)
	if err != nil || !rel.IsToMany() {
		return nil, domain.Errorf(domain.KindInvalidFieldPath, "%s is not a to-many relation of %s", relation, model)
	}
	table, err := c.registry.GetTableName(rel.ToModel)
	if err != nil {
		return nil, err
	}

	on := make([]domain.JoinColumns, 0, len(rel.FromFields))
	for i, from := range rel.FromFields {
		if i >= len(rel.ToFields) {
			return nil, fmt.Errorf("relation %s.%s has unpaired join columns", model, relation)
		}
		parentCol, err := c.registry.GetColumnName(model, from)
		if err != nil {
			return nil, err
		}
		childCol, err := c.registry.GetColumnName(rel.ToModel, rel.ToFields[i])
		if err != nil {
			return nil, err
		}
		on = append(on, domain.JoinColumns{Parent: parentCol, Child: childCol})
	}

	j := &domain.Join{
		Path:     relPath,
		Relation: relation,
		Parent:   parent,
		Model:    rel.ToModel,
		Table:    table,
		Alias:    domain.JoinAlias(relPath),
		Kind:     domain.LeftJoin,
		On:       on,
	}
	c.joins[relPath] = j
	c.order = append(c.order, j)
	return j, nil
}

// KindName names an AST node kind for error messages.
func KindName(k ast.ExprKind) string {
	switch k {
	case ast.CallKind:
		return "call"
	case ast.ComprehensionKind:
		return "comprehension"
	case ast.IdentKind:
		return "identifier"
	case ast.ListKind:
		return "list"
	case ast.LiteralKind:
		return "constant"
	case ast.MapKind:
		return "map"
	case ast.SelectKind:
		return "select"
	case ast.StructKind:
		return "struct"
	}
	return "unspecified expression"
}
