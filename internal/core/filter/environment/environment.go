// Package environment derives the typed variable environment of a root model:
// every filterable field path reachable from the root, with its declared type.
package environment

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/satishbabariya/celquery/internal/core/filter/domain"
)

// Field is one environment entry.
type Field struct {
	Path string
	Type domain.ValueType
	// Model owns the column; for relationship paths it is the related model.
	Model string
	// Column is empty for relationship paths.
	Column string
}

// Environment maps field paths to declared types. It is immutable after Build
// and safe to share across concurrent translations.
type Environment struct {
	root   string
	table  string
	fields map[string]Field

	celOnce sync.Once
	celEnv  *cel.Env
	celErr  error
}

// Root returns the root model name.
func (e *Environment) Root() string { return e.root }

// Table returns the root model's table name.
func (e *Environment) Table() string { return e.table }

// Len returns the number of paths.
func (e *Environment) Len() int { return len(e.fields) }

// Lookup returns the entry for a dotted path.
func (e *Environment) Lookup(path string) (Field, bool) {
	f, ok := e.fields[path]
	return f, ok
}

// Paths returns all paths in sorted order.
func (e *Environment) Paths() []string {
	paths := make([]string, 0, len(e.fields))
	for p := range e.fields {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Fields returns all entries sorted by path.
func (e *Environment) Fields() []Field {
	paths := e.Paths()
	out := make([]Field, len(paths))
	for i, p := range paths {
		out[i] = e.fields[p]
	}
	return out
}

// Declarations returns one cel variable declaration per path.
func (e *Environment) Declarations() []cel.EnvOption {
	opts := make([]cel.EnvOption, 0, len(e.fields))
	for _, f := range e.Fields() {
		opts = append(opts, cel.Variable(f.Path, f.Type.CELType()))
	}
	return opts
}

// CELEnv returns the cel environment declaring every path. It is built on first use.
func (e *Environment) CELEnv() (*cel.Env, error) {
	e.celOnce.Do(func() {
		opts := append([]cel.EnvOption{
			cel.HomogeneousAggregateLiterals(),
			cel.EagerlyValidateDeclarations(true),
		}, e.Declarations()...)
		e.celEnv, e.celErr = cel.NewEnv(opts...)
		if e.celErr != nil {
			e.celErr = fmt.Errorf("failed to build cel environment for %s: %w", e.root, e.celErr)
		}
	})
	return e.celEnv, e.celErr
}
