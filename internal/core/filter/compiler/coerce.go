package compiler

import (
	"math"
	"strings"
	"time"

	"github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/overloads"
	"github.com/google/cel-go/common/types"

	"github.com/satishbabariya/celquery/internal/core/filter/domain"
)

// Expectation is what a call site needs from a constant.
type Expectation int

const (
	// ExpectPredicate turns a constant standing alone into a predicate.
	ExpectPredicate Expectation = iota
	// ExpectComparable coerces to the declared type of the field it is compared with.
	ExpectComparable
	// ExpectNumber requires a numeric constant.
	ExpectNumber
	// ExpectString requires a string constant.
	ExpectString
)

func (e Expectation) String() string {
	switch e {
	case ExpectPredicate:
		return "predicate literal"
	case ExpectComparable:
		return "comparable expression"
	case ExpectNumber:
		return "number"
	case ExpectString:
		return "string"
	}
	return "unknown"
}

// constant extracts the Go value of a literal node: int64, uint64, float64, bool,
// string, or time.Time for timestamp("RFC3339") calls.
func constant(e ast.Expr) (any, error) {
	switch e.Kind() {
	case ast.LiteralKind:
		switch v := e.AsLiteral().(type) {
		case types.Int:
			return int64(v), nil
		case types.Uint:
			return uint64(v), nil
		case types.Double:
			return float64(v), nil
		case types.Bool:
			return bool(v), nil
		case types.String:
			return string(v), nil
		}
		return nil, domain.Errorf(domain.KindUnsupportedConstantType,
			"%s literals are not supported", e.AsLiteral().Type().TypeName()).At(e.ID())

	case ast.CallKind:
		call := e.AsCall()
		if call.FunctionName() == overloads.TypeConvertTimestamp && !call.IsMemberFunction() && len(call.Args()) == 1 {
			arg := call.Args()[0]
			if arg.Kind() == ast.LiteralKind {
				if s, ok := arg.AsLiteral().(types.String); ok {
					return parseTimestamp(string(s), e.ID())
				}
			}
		}
	}
	return nil, domain.Errorf(domain.KindExpectedConstant, "expected a constant, found %s", kindName(e)).At(e.ID())
}

func parseTimestamp(s string, id int64) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, domain.Errorf(domain.KindTypeMismatch, "invalid timestamp %q", s).At(id)
	}
	return t, nil
}

// coercePredicate handles a constant standing alone as a filter clause.
func (c *Compiler) coercePredicate(e ast.Expr) (domain.Predicate, error) {
	v, err := constant(e)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case bool:
		if x {
			return domain.True{}, nil
		}
		return domain.False{}, nil
	case string:
		if c.opts.LegacyTautologies {
			return domain.True{}, nil
		}
		return nil, domain.Errorf(domain.KindUnsupportedExpressionKind, "string constant %q is not a predicate", x).At(e.ID())
	}
	return nil, domain.Errorf(domain.KindTypeMismatch, "constant %v is not a predicate", v).At(e.ID())
}

// coerce converts a constant node to the Go value a call site expects. target is
// the declared type of the field the value meets.
func coerce(e ast.Expr, expect Expectation, target domain.ValueType) (any, error) {
	v, err := constant(e)
	if err != nil {
		return nil, err
	}

	switch expect {
	case ExpectNumber:
		return toNumber(v, target, e.ID())
	case ExpectString:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(e.ID(), v, "string")
		}
		return s, nil
	case ExpectComparable:
		return toFieldType(v, target, e.ID())
	}
	return nil, domain.Errorf(domain.KindTypeMismatch, "cannot coerce to %s", expect).At(e.ID())
}

func toFieldType(v any, target domain.ValueType, id int64) (any, error) {
	switch target {
	case domain.TypeInt, domain.TypeDouble:
		return toNumber(v, target, id)
	case domain.TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case domain.TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case domain.TypeTimestamp:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			return parseTimestamp(x, id)
		}
	}
	return nil, mismatch(id, v, target.String())
}

// toNumber converts a numeric constant to the representation of target.
// Int fields accept integral doubles and uints that fit in an int64.
func toNumber(v any, target domain.ValueType, id int64) (any, error) {
	if target == domain.TypeDouble {
		switch x := v.(type) {
		case int64:
			return float64(x), nil
		case uint64:
			return float64(x), nil
		case float64:
			return x, nil
		}
		return nil, mismatch(id, v, "number")
	}

	switch x := v.(type) {
	case int64:
		return x, nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, domain.Errorf(domain.KindTypeMismatch, "%d overflows int", x).At(id)
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return nil, domain.Errorf(domain.KindTypeMismatch, "%v is not an integer", x).At(id)
		}
		return int64(x), nil
	}
	return nil, mismatch(id, v, "number")
}

func isNumber(v any) bool {
	switch v.(type) {
	case int64, uint64, float64:
		return true
	}
	return false
}

func mismatch(id int64, v any, want string) error {
	return domain.Errorf(domain.KindTypeMismatch, "expected %s, found %s", want, domain.FormatValue(v)).At(id)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
