package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Predicate is a node of the immutable predicate tree produced by translation.
//
// This is a sealed interface: only types in this package implement it, so
// consumers such as SQL renderers can switch over the variants exhaustively.
//
// Variants:
//   - And, Or, Not: boolean combinations
//   - Compare: field <op> value
//   - InSet: field IN (values)
//   - StringMatch: field LIKE pattern
//   - True, False: constant predicates
type Predicate interface {
	predicateNode()
	String() string
}

// CompareOp is a comparison operator.
type CompareOp string

const (
	OpEq CompareOp = "eq"
	OpNe CompareOp = "ne"
	OpGt CompareOp = "gt"
	OpGe CompareOp = "ge"
	OpLt CompareOp = "lt"
	OpLe CompareOp = "le"
)

// IsOrdering reports whether the operator orders values rather than testing equality.
func (op CompareOp) IsOrdering() bool {
	switch op {
	case OpGt, OpGe, OpLt, OpLe:
		return true
	}
	return false
}

// And is a conjunction.
type And struct {
	Left  Predicate
	Right Predicate
}

// Or is a disjunction.
type Or struct {
	Left  Predicate
	Right Predicate
}

// Not negates its operand.
type Not struct {
	Inner Predicate
}

// Compare tests a field against a typed constant.
// Value is an int64, float64, string, bool or time.Time.
type Compare struct {
	Field FieldRef
	Op    CompareOp
	Value any
}

// InSet tests membership of a field in a literal set.
type InSet struct {
	Field  FieldRef
	Values []any
}

// StringMatch tests a string field against a LIKE pattern. Literal % _ and \
// in user input are escaped with a backslash.
type StringMatch struct {
	Field   FieldRef
	Pattern string
}

// True always holds.
type True struct{}

// False never holds.
type False struct{}

func (And) predicateNode()         {}
func (Or) predicateNode()          {}
func (Not) predicateNode()         {}
func (Compare) predicateNode()     {}
func (InSet) predicateNode()       {}
func (StringMatch) predicateNode() {}
func (True) predicateNode()        {}
func (False) predicateNode()       {}

func (p And) String() string { return fmt.Sprintf("And(%s, %s)", p.Left, p.Right) }
func (p Or) String() string  { return fmt.Sprintf("Or(%s, %s)", p.Left, p.Right) }
func (p Not) String() string { return fmt.Sprintf("Not(%s)", p.Inner) }

func (p Compare) String() string {
	return fmt.Sprintf("Compare(%s, %s, %s)", p.Field.Path, p.Op, FormatValue(p.Value))
}

func (p InSet) String() string {
	parts := make([]string, len(p.Values))
	for i, v := range p.Values {
		parts[i] = FormatValue(v)
	}
	return fmt.Sprintf("InSet(%s, [%s])", p.Field.Path, strings.Join(parts, ", "))
}

func (p StringMatch) String() string {
	return fmt.Sprintf("StringMatch(%s, %q)", p.Field.Path, p.Pattern)
}

func (True) String() string  { return "True" }
func (False) String() string { return "False" }

// FormatValue renders a predicate constant.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return fmt.Sprintf("timestamp(%q)", x.UTC().Format(time.RFC3339Nano))
	}
	return fmt.Sprintf("%v", v)
}

// Describe converts a predicate into nested maps for JSON or YAML output.
func Describe(p Predicate) map[string]any {
	switch n := p.(type) {
	case And:
		return map[string]any{"and": []any{Describe(n.Left), Describe(n.Right)}}
	case Or:
		return map[string]any{"or": []any{Describe(n.Left), Describe(n.Right)}}
	case Not:
		return map[string]any{"not": Describe(n.Inner)}
	case Compare:
		return map[string]any{"compare": map[string]any{
			"path":  n.Field.Path,
			"op":    string(n.Op),
			"value": describeValue(n.Value),
		}}
	case InSet:
		values := make([]any, len(n.Values))
		for i, v := range n.Values {
			values[i] = describeValue(v)
		}
		return map[string]any{"in": map[string]any{"path": n.Field.Path, "values": values}}
	case StringMatch:
		return map[string]any{"like": map[string]any{"path": n.Field.Path, "pattern": n.Pattern}}
	case True:
		return map[string]any{"const": true}
	case False:
		return map[string]any{"const": false}
	}
	return nil
}

func describeValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return v
}

// Walk calls fn for p and every descendant, parents first.
func Walk(p Predicate, fn func(Predicate)) {
	fn(p)
	switch n := p.(type) {
	case And:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case Or:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case Not:
		Walk(n.Inner, fn)
	}
}

// FieldRefs returns every field referenced by p, in tree order.
func FieldRefs(p Predicate) []FieldRef {
	var refs []FieldRef
	Walk(p, func(n Predicate) {
		switch x := n.(type) {
		case Compare:
			refs = append(refs, x.Field)
		case InSet:
			refs = append(refs, x.Field)
		case StringMatch:
			refs = append(refs, x.Field)
		}
	})
	return refs
}
