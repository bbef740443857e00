// Package compiler renders queries and their predicate trees as parameterised SQL.
package compiler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	filter "github.com/satishbabariya/celquery/internal/core/filter/domain"
	"github.com/satishbabariya/celquery/internal/core/query/domain"
)

// RootAlias is the table alias of the root model in every generated statement.
const RootAlias = "root"

// SQLCompiler implements the domain.QueryCompiler interface.
type SQLCompiler struct {
	dialect domain.SQLDialect
}

// NewSQLCompiler creates a new SQL compiler.
func NewSQLCompiler(dialect domain.SQLDialect) *SQLCompiler {
	return &SQLCompiler{
		dialect: dialect,
	}
}

// Dialect returns the dialect the compiler renders.
func (c *SQLCompiler) Dialect() domain.SQLDialect { return c.dialect }

// Compile compiles a query to an executable form.
func (c *SQLCompiler) Compile(ctx context.Context, query *domain.Query) (*domain.CompiledQuery, error) {
	if query.Table == "" {
		return nil, fmt.Errorf("query on %s has no table", query.Model)
	}

	var sql domain.SQL
	var err error

	switch query.Operation {
	case domain.FindMany, domain.FindFirst:
		sql, err = c.compileSelect(query)
	case domain.Count:
		sql, err = c.compileCount(query)
	default:
		return nil, fmt.Errorf("unsupported operation: %s", query.Operation)
	}
	if err != nil {
		return nil, err
	}

	return &domain.CompiledQuery{
		SQL:       sql,
		Model:     query.Model,
		Operation: query.Operation,
		CacheKey:  cacheKey(sql),
	}, nil
}

// compileSelect compiles a SELECT query.
func (c *SQLCompiler) compileSelect(query *domain.Query) (domain.SQL, error) {
	var sb strings.Builder
	var args []any
	argIndex := 1

	sb.WriteString("SELECT ")
	if query.Distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(RootAlias)
	sb.WriteString(".*")

	if err := c.writeFromWhere(&sb, query, &args, &argIndex); err != nil {
		return domain.SQL{}, err
	}

	if len(query.Ordering) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, order := range query.Ordering {
			if i > 0 {
				sb.WriteString(", ")
			}
			dir := order.Direction
			if dir == "" {
				dir = domain.Asc
			}
			fmt.Fprintf(&sb, "%s.%s %s", RootAlias, order.Column, dir)
		}
	}

	take := query.Pagination.Take
	if query.Operation == domain.FindFirst {
		one := 1
		take = &one
	}
	if take != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(c.placeholder(&argIndex))
		args = append(args, *take)
	}
	if skip := query.Pagination.Skip; skip != nil {
		if take == nil {
			sb.WriteString(c.unboundedLimit())
		}
		sb.WriteString(" OFFSET ")
		sb.WriteString(c.placeholder(&argIndex))
		args = append(args, *skip)
	}

	return domain.SQL{Query: sb.String(), Args: args, Dialect: c.dialect}, nil
}

// compileCount wraps the distinct select so fanned-out joins are counted once.
func (c *SQLCompiler) compileCount(query *domain.Query) (domain.SQL, error) {
	var sb strings.Builder
	var args []any
	argIndex := 1

	sb.WriteString("SELECT COUNT(*) AS count FROM (SELECT DISTINCT ")
	sb.WriteString(RootAlias)
	sb.WriteString(".*")
	if err := c.writeFromWhere(&sb, query, &args, &argIndex); err != nil {
		return domain.SQL{}, err
	}
	sb.WriteString(") AS counted")

	return domain.SQL{Query: sb.String(), Args: args, Dialect: c.dialect}, nil
}

func (c *SQLCompiler) writeFromWhere(sb *strings.Builder, query *domain.Query, args *[]any, argIndex *int) error {
	fmt.Fprintf(sb, " FROM %s AS %s", query.Table, RootAlias)

	for _, j := range query.Joins {
		if len(j.On) == 0 {
			return fmt.Errorf("join %s has no join columns", j.Path)
		}
		fmt.Fprintf(sb, " %s %s AS %s ON ", j.Kind, j.Table, j.Alias)
		for i, on := range j.On {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			fmt.Fprintf(sb, "%s.%s = %s.%s", j.Alias, on.Child, j.ParentAlias(RootAlias), on.Parent)
		}
	}

	if query.Filter == nil {
		return nil
	}
	where, whereArgs, err := c.buildPredicate(query.Filter, argIndex)
	if err != nil {
		return err
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(where)
	*args = append(*args, whereArgs...)
	return nil
}

// buildPredicate renders a predicate tree. Connectives are parenthesised so the
// rendered precedence matches the tree.
func (c *SQLCompiler) buildPredicate(p filter.Predicate, argIndex *int) (string, []any, error) {
	switch n := p.(type) {
	case filter.And:
		return c.buildBinary("AND", n.Left, n.Right, argIndex)

	case filter.Or:
		return c.buildBinary("OR", n.Left, n.Right, argIndex)

	case filter.Not:
		inner, args, err := c.buildPredicate(n.Inner, argIndex)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + inner + ")", args, nil

	case filter.Compare:
		op, ok := compareOps[n.Op]
		if !ok {
			return "", nil, fmt.Errorf("unsupported comparison: %s", n.Op)
		}
		return fmt.Sprintf("%s %s %s", column(n.Field), op, c.placeholder(argIndex)), []any{n.Value}, nil

	case filter.InSet:
		placeholders := make([]string, len(n.Values))
		for i := range n.Values {
			placeholders[i] = c.placeholder(argIndex)
		}
		args := make([]any, len(n.Values))
		copy(args, n.Values)
		return fmt.Sprintf("%s IN (%s)", column(n.Field), strings.Join(placeholders, ", ")), args, nil

	case filter.StringMatch:
		return fmt.Sprintf("%s LIKE %s ESCAPE %s", column(n.Field), c.placeholder(argIndex), c.escapeLiteral()), []any{n.Pattern}, nil

	case filter.True:
		return "1 = 1", nil, nil

	case filter.False:
		return "1 = 0", nil, nil
	}
	return "", nil, fmt.Errorf("unsupported predicate %T", p)
}

func (c *SQLCompiler) buildBinary(keyword string, left, right filter.Predicate, argIndex *int) (string, []any, error) {
	l, largs, err := c.buildPredicate(left, argIndex)
	if err != nil {
		return "", nil, err
	}
	r, rargs, err := c.buildPredicate(right, argIndex)
	if err != nil {
		return "", nil, err
	}
	return "(" + l + " " + keyword + " " + r + ")", append(largs, rargs...), nil
}

var compareOps = map[filter.CompareOp]string{
	filter.OpEq: "=",
	filter.OpNe: "<>",
	filter.OpGt: ">",
	filter.OpGe: ">=",
	filter.OpLt: "<",
	filter.OpLe: "<=",
}

func column(ref filter.FieldRef) string {
	return ref.Qualifier(RootAlias) + "." + ref.Column
}

// placeholder returns the appropriate placeholder for the dialect.
func (c *SQLCompiler) placeholder(argIndex *int) string {
	defer func() { *argIndex++ }()

	switch c.dialect {
	case domain.PostgreSQL:
		return fmt.Sprintf("$%d", *argIndex)
	default:
		return "?"
	}
}

// escapeLiteral is the LIKE escape clause. MySQL treats backslash as an escape
// inside string literals.
func (c *SQLCompiler) escapeLiteral() string {
	if c.dialect == domain.MySQL {
		return `'\\'`
	}
	return `'\'`
}

func (c *SQLCompiler) unboundedLimit() string {
	switch c.dialect {
	case domain.SQLite:
		return " LIMIT -1"
	case domain.MySQL:
		return " LIMIT 18446744073709551615"
	}
	return ""
}

func cacheKey(sql domain.SQL) string {
	h := sha256.New()
	h.Write([]byte(sql.Dialect))
	h.Write([]byte(sql.Query))
	for _, arg := range sql.Args {
		fmt.Fprintf(h, "\x00%T:%v", arg, arg)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Ensure SQLCompiler implements QueryCompiler interface.
var _ domain.QueryCompiler = (*SQLCompiler)(nil)
