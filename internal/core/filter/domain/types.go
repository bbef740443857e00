// Package domain contains the value types shared by the filter engine: value types,
// field references, joins, the predicate tree and translation errors.
package domain

import (
	"strings"

	"github.com/google/cel-go/cel"
)

// ValueType is the declared type of an environment path.
type ValueType int

const (
	// TypeInt is a 64-bit signed integer.
	TypeInt ValueType = iota + 1
	// TypeString is a string.
	TypeString
	// TypeBool is a boolean.
	TypeBool
	// TypeDouble is a 64-bit float.
	TypeDouble
	// TypeTimestamp is a point in time.
	TypeTimestamp
	// TypeListDyn is a list of dynamically typed values, used for to-many relations.
	TypeListDyn
)

var valueTypeNames = map[ValueType]string{
	TypeInt:       "int",
	TypeString:    "string",
	TypeBool:      "bool",
	TypeDouble:    "double",
	TypeTimestamp: "timestamp",
	TypeListDyn:   "list(dyn)",
}

func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// IsNumeric reports whether ordering comparisons apply.
func (t ValueType) IsNumeric() bool {
	return t == TypeInt || t == TypeDouble
}

// CELType returns the cel-go declaration type.
func (t ValueType) CELType() *cel.Type {
	switch t {
	case TypeInt:
		return cel.IntType
	case TypeString:
		return cel.StringType
	case TypeBool:
		return cel.BoolType
	case TypeDouble:
		return cel.DoubleType
	case TypeTimestamp:
		return cel.TimestampType
	case TypeListDyn:
		return cel.ListType(cel.DynType)
	}
	return cel.DynType
}

// JoinKind is the join semantics used for relationship traversal.
type JoinKind string

// LeftJoin keeps root rows lacking a related record.
const LeftJoin JoinKind = "LEFT JOIN"

// JoinColumns pairs a parent column with the child column it equals.
type JoinColumns struct {
	Parent string
	Child  string
}

// Join is a relationship traversal introduced while resolving a path.
type Join struct {
	// Path is the dotted relationship path from the root, e.g. "metadata".
	Path     string
	Relation string
	// Parent is nil when the join hangs off the root.
	Parent *Join
	Model  string
	Table  string
	Alias  string
	Kind   JoinKind
	On     []JoinColumns
}

// ParentAlias returns the alias the join condition refers to on the parent side.
func (j *Join) ParentAlias(rootAlias string) string {
	if j.Parent == nil {
		return rootAlias
	}
	return j.Parent.Alias
}

// JoinAlias derives a table alias from a relationship path.
func JoinAlias(path string) string {
	return "j_" + strings.ReplaceAll(path, ".", "_")
}

// FieldRef is a resolved terminal attribute.
type FieldRef struct {
	Path   string
	Column string
	Type   ValueType
	Model  string
	// Join is nil when the attribute lives on the root.
	Join *Join
}

// Qualifier returns the table alias owning the column.
func (f FieldRef) Qualifier(rootAlias string) string {
	if f.Join == nil {
		return rootAlias
	}
	return f.Join.Alias
}

// Translation is the result of compiling one expression.
type Translation struct {
	Root      string
	Table     string
	Predicate Predicate
	Joins     []*Join
	// Distinct is set whenever a join was introduced, since to-many joins fan out rows.
	Distinct bool
}

// HasJoins reports whether any relationship join was introduced.
func (t *Translation) HasJoins() bool {
	return len(t.Joins) > 0
}
