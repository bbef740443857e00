package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a translation failure.
type ErrorKind string

const (
	// KindUnsupportedSchemaType means schema discovery met a type it cannot classify.
	KindUnsupportedSchemaType ErrorKind = "UnsupportedSchemaType"
	// KindUnsupportedExpressionKind means the AST holds a node kind outside the grammar subset.
	KindUnsupportedExpressionKind ErrorKind = "UnsupportedExpressionKind"
	// KindUnsupportedOperator means a call names a function outside the operator set.
	KindUnsupportedOperator ErrorKind = "UnsupportedOperator"
	// KindInvalidFieldPath means a path could not be resolved against the environment.
	KindInvalidFieldPath ErrorKind = "InvalidFieldPath"
	// KindTypeMismatch means an operand's type is incompatible with the operator or field.
	KindTypeMismatch ErrorKind = "TypeMismatch"
	// KindExpectedConstant means a non-constant node sits where a constant is required.
	KindExpectedConstant ErrorKind = "ExpectedConstant"
	// KindUnsupportedConstantType means a literal of an unsupported kind, such as bytes or null.
	KindUnsupportedConstantType ErrorKind = "UnsupportedConstantType"
	// KindSyntax means the expression text did not parse.
	KindSyntax ErrorKind = "Syntax"
)

// Sentinels for errors.Is matching against a translation error's kind.
var (
	ErrUnsupportedSchemaType     = &Error{Kind: KindUnsupportedSchemaType}
	ErrUnsupportedExpressionKind = &Error{Kind: KindUnsupportedExpressionKind}
	ErrUnsupportedOperator       = &Error{Kind: KindUnsupportedOperator}
	ErrInvalidFieldPath          = &Error{Kind: KindInvalidFieldPath}
	ErrTypeMismatch              = &Error{Kind: KindTypeMismatch}
	ErrExpectedConstant          = &Error{Kind: KindExpectedConstant}
	ErrUnsupportedConstantType   = &Error{Kind: KindUnsupportedConstantType}
	ErrSyntax                    = &Error{Kind: KindSyntax}
)

// Error is a translation failure. Every error aborts the whole translation.
type Error struct {
	Kind    ErrorKind
	Message string
	// ExprID is the id of the offending AST node, zero when unknown.
	ExprID int64
}

// Errorf builds an Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// At records the AST node id the error refers to.
func (e *Error) At(id int64) *Error {
	e.ExprID = id
	return e
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of a translation error anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}

// IsClientError reports whether err stems from the caller-supplied expression
// rather than from the developer-supplied schema.
func IsClientError(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind != KindUnsupportedSchemaType
}
