// Package compiler walks a CEL expression tree and emits a predicate tree.
package compiler

import (
	"log/slog"

	"github.com/google/cel-go/common/ast"

	"github.com/satishbabariya/celquery/internal/core/filter/domain"
	"github.com/satishbabariya/celquery/internal/core/filter/resolver"
)

// Options tunes how degenerate expression shapes compile.
type Options struct {
	// LegacyTautologies compiles a bare identifier or a string constant in predicate
	// position to True and a bare select to an equality against its operand's
	// constant. When unset, a bare Bool field means field == true and every other
	// bare path or string constant is rejected.
	LegacyTautologies bool
}

// Compiler compiles one expression against one traversal context.
type Compiler struct {
	ctx    *resolver.Context
	opts   Options
	logger *slog.Logger
}

// New creates a compiler. A nil logger discards output.
func New(ctx *resolver.Context, opts Options, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Compiler{ctx: ctx, opts: opts, logger: logger}
}

// Compile compiles e into a predicate.
func (c *Compiler) Compile(e ast.Expr) (domain.Predicate, error) {
	c.logger.Debug("processing expression", "kind", kindName(e), "id", e.ID())

	switch e.Kind() {
	case ast.CallKind:
		return c.compileCall(e)
	case ast.LiteralKind:
		return c.coercePredicate(e)
	case ast.IdentKind, ast.SelectKind:
		return c.compileBarePath(e)
	}
	return nil, domain.Errorf(domain.KindUnsupportedExpressionKind, "%s expressions are not supported", kindName(e)).At(e.ID())
}

func (c *Compiler) compileBarePath(e ast.Expr) (domain.Predicate, error) {
	if c.opts.LegacyTautologies {
		if e.Kind() == ast.IdentKind {
			return domain.True{}, nil
		}
		ref, err := c.ctx.ResolveExpr(e)
		if err != nil {
			return nil, err
		}
		v, err := coerce(e.AsSelect().Operand(), ExpectComparable, ref.Type)
		if err != nil {
			return nil, err
		}
		return domain.Compare{Field: ref, Op: domain.OpEq, Value: v}, nil
	}

	ref, err := c.ctx.ResolveExpr(e)
	if err != nil {
		return nil, err
	}
	if ref.Type != domain.TypeBool {
		return nil, domain.Errorf(domain.KindUnsupportedExpressionKind,
			"field %s of type %s is not a predicate", ref.Path, ref.Type).At(e.ID())
	}
	return domain.Compare{Field: ref, Op: domain.OpEq, Value: true}, nil
}

func (c *Compiler) compileCall(e ast.Expr) (domain.Predicate, error) {
	call := e.AsCall()
	op := lookupOperator(call.FunctionName())
	if op == opUnsupported {
		return nil, domain.Errorf(domain.KindUnsupportedOperator, "unsupported function %s", call.FunctionName()).At(e.ID())
	}
	args := call.Args()
	if len(args) != op.arity() {
		return nil, domain.Errorf(domain.KindUnsupportedOperator,
			"%s takes %d argument(s), got %d", op, op.arity(), len(args)).At(e.ID())
	}

	switch op {
	case opAnd, opOr:
		left, err := c.Compile(args[0])
		if err != nil {
			return nil, err
		}
		right, err := c.Compile(args[1])
		if err != nil {
			return nil, err
		}
		if op == opAnd {
			return domain.And{Left: left, Right: right}, nil
		}
		return domain.Or{Left: left, Right: right}, nil

	case opNot:
		return c.negate(args[0])

	case opEq, opNe, opGt, opGe, opLt, opLe:
		ref, err := c.ctx.ResolveExpr(args[0])
		if err != nil {
			return nil, err
		}
		cmp, expect := compareOps[op], ExpectComparable
		if cmp.IsOrdering() {
			if !ref.Type.IsNumeric() {
				return nil, domain.Errorf(domain.KindTypeMismatch,
					"%s needs a numeric field, %s is %s", op, ref.Path, ref.Type).At(e.ID())
			}
			expect = ExpectNumber
		}
		v, err := coerce(args[1], expect, ref.Type)
		if err != nil {
			return nil, err
		}
		return domain.Compare{Field: ref, Op: cmp, Value: v}, nil

	case opIn:
		return c.compileIn(args[0], args[1])

	case opStartsWith, opContains:
		return c.compileStringMatch(e, op)
	}

	return nil, domain.Errorf(domain.KindUnsupportedOperator, "unsupported operator %s", op).At(e.ID())
}

var compareOps = map[Operator]domain.CompareOp{
	opEq: domain.OpEq,
	opNe: domain.OpNe,
	opGt: domain.OpGt,
	opGe: domain.OpGe,
	opLt: domain.OpLt,
	opLe: domain.OpLe,
}

// negate compiles !e, pushing the negation through && and || before the operands
// are compiled and cancelling double negation.
func (c *Compiler) negate(e ast.Expr) (domain.Predicate, error) {
	if e.Kind() == ast.CallKind {
		call := e.AsCall()
		args := call.Args()
		switch op := lookupOperator(call.FunctionName()); {
		case (op == opAnd || op == opOr) && len(args) == 2:
			left, err := c.negate(args[0])
			if err != nil {
				return nil, err
			}
			right, err := c.negate(args[1])
			if err != nil {
				return nil, err
			}
			if op == opAnd {
				return domain.Or{Left: left, Right: right}, nil
			}
			return domain.And{Left: left, Right: right}, nil

		case op == opNot && len(args) == 1:
			return c.Compile(args[0])
		}
	}

	inner, err := c.Compile(e)
	if err != nil {
		return nil, err
	}
	return domain.Not{Inner: inner}, nil
}

func (c *Compiler) compileIn(left, right ast.Expr) (domain.Predicate, error) {
	ref, err := c.ctx.ResolveExpr(left)
	if err != nil {
		return nil, err
	}
	if right.Kind() != ast.ListKind {
		return nil, domain.Errorf(domain.KindExpectedConstant, "IN needs a list literal, found %s", kindName(right)).At(right.ID())
	}

	elems := right.AsList().Elements()
	if len(elems) == 0 {
		return domain.False{}, nil
	}

	values, err := coerceSet(elems, ref)
	if err != nil {
		return nil, err
	}
	if len(values) == 1 {
		return domain.Compare{Field: ref, Op: domain.OpEq, Value: values[0]}, nil
	}
	return domain.InSet{Field: ref, Values: values}, nil
}

// coerceSet coerces list elements to the shared type inferred from the first
// element, which must be a string or a number and must suit the field.
func coerceSet(elems []ast.Expr, ref domain.FieldRef) ([]any, error) {
	first, err := constant(elems[0])
	if err != nil {
		return nil, err
	}

	var expect Expectation
	switch {
	case isNumber(first):
		if !ref.Type.IsNumeric() {
			return nil, domain.Errorf(domain.KindTypeMismatch, "numeric set for %s field %s", ref.Type, ref.Path).At(elems[0].ID())
		}
		expect = ExpectNumber
	case isString(first):
		if ref.Type != domain.TypeString {
			return nil, domain.Errorf(domain.KindTypeMismatch, "string set for %s field %s", ref.Type, ref.Path).At(elems[0].ID())
		}
		expect = ExpectString
	default:
		return nil, domain.Errorf(domain.KindTypeMismatch, "set elements must be strings or numbers, found %s", domain.FormatValue(first)).At(elems[0].ID())
	}

	values := make([]any, 0, len(elems))
	for _, el := range elems {
		v, err := coerce(el, expect, ref.Type)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func (c *Compiler) compileStringMatch(e ast.Expr, op Operator) (domain.Predicate, error) {
	call := e.AsCall()
	if !call.IsMemberFunction() {
		return nil, domain.Errorf(domain.KindInvalidFieldPath, "%s needs a receiver field", call.FunctionName()).At(e.ID())
	}

	ref, err := c.ctx.ResolveExpr(call.Target())
	if err != nil {
		return nil, err
	}
	if ref.Type != domain.TypeString {
		return nil, domain.Errorf(domain.KindTypeMismatch, "%s needs a string field, %s is %s", op, ref.Path, ref.Type).At(e.ID())
	}

	v, err := coerce(call.Args()[0], ExpectString, ref.Type)
	if err != nil {
		return nil, err
	}
	value := escapeLike(v.(string))

	pattern := value + "%"
	if op == opContains {
		pattern = "%" + value + "%"
	}
	return domain.StringMatch{Field: ref, Pattern: pattern}, nil
}

func kindName(e ast.Expr) string {
	return resolver.KindName(e.Kind())
}
