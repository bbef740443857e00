package compiler

import (
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/overloads"
)

// Operator is the closed set of functions the compiler understands.
type Operator int

const (
	opUnsupported Operator = iota
	opAnd
	opOr
	opNot
	opEq
	opNe
	opGt
	opGe
	opLt
	opLe
	opIn
	opStartsWith
	opContains
)

var operatorsByFunction = map[string]Operator{
	operators.LogicalAnd:    opAnd,
	operators.LogicalOr:     opOr,
	operators.LogicalNot:    opNot,
	operators.Equals:        opEq,
	operators.NotEquals:     opNe,
	operators.Greater:       opGt,
	operators.GreaterEquals: opGe,
	operators.Less:          opLt,
	operators.LessEquals:    opLe,
	operators.In:            opIn,
	overloads.StartsWith:    opStartsWith,
	overloads.Contains:      opContains,
}

var operatorNames = map[Operator]string{
	opAnd:        "AND",
	opOr:         "OR",
	opNot:        "NOT",
	opEq:         "EQ",
	opNe:         "NE",
	opGt:         "GT",
	opGe:         "GE",
	opLt:         "LT",
	opLe:         "LE",
	opIn:         "IN",
	opStartsWith: "STARTS_WITH",
	opContains:   "CONTAINS",
}

func lookupOperator(function string) Operator {
	return operatorsByFunction[function]
}

func (op Operator) String() string {
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return "UNSUPPORTED"
}

// arity is the number of call arguments, excluding a receiver.
func (op Operator) arity() int {
	switch op {
	case opNot, opStartsWith, opContains:
		return 1
	case opUnsupported:
		return -1
	}
	return 2
}
