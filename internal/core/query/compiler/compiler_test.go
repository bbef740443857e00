package compiler_test

import (
	"context"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	filter "github.com/satishbabariya/celquery/internal/core/filter/domain"
	"github.com/satishbabariya/celquery/internal/core/filter/translator"
	"github.com/satishbabariya/celquery/internal/core/query/compiler"
	"github.com/satishbabariya/celquery/internal/core/query/domain"
	"github.com/satishbabariya/celquery/internal/testutil"
)

func render(sql domain.SQL) string {
	args := make([]string, len(sql.Args))
	for i, a := range sql.Args {
		args[i] = filter.FormatValue(a)
	}
	return sql.Query + "\nargs: " + strings.Join(args, ", ") + "\n"
}

func TestCompile_Golden(t *testing.T) {
	tr := translator.New(testutil.ContentRegistry(t))
	take, skip := 10, 20

	tests := []struct {
		name    string
		dialect domain.SQLDialect
		expr    string
		shape   func(q *domain.Query)
	}{
		{name: "top_level_equality", dialect: domain.SQLite, expr: `name == "Foo"`},
		{name: "shared_join_postgres", dialect: domain.PostgreSQL, expr: `metadata.datakey == "author" && metadata.datavalue == "Alice"`},
		{name: "nested_join_mysql", dialect: domain.MySQL, expr: `metadata.notes.body.contains("x") || !(id in [1, 2])`},
		{name: "constants_and_timestamps", dialect: domain.SQLite, expr: `false || createdAt == timestamp("2024-01-02T03:04:05Z")`},
		{
			name:    "ordered_page",
			dialect: domain.SQLite,
			expr:    `rating >= 2.5`,
			shape: func(q *domain.Query) {
				q.Ordering = []domain.OrderBy{{Column: "name", Direction: domain.Desc}}
				q.Pagination = domain.Pagination{Take: &take, Skip: &skip}
			},
		},
		{
			name:    "count_postgres",
			dialect: domain.PostgreSQL,
			expr:    `metadata.datakey == "k"`,
			shape: func(q *domain.Query) {
				q.Operation = domain.Count
			},
		},
	}

	g := goldie.New(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			translation, err := tr.Translate(context.Background(), tt.expr, "Content", nil)
			require.NoError(t, err)

			query := domain.FromTranslation(translation)
			if tt.shape != nil {
				tt.shape(query)
			}

			compiled, err := compiler.NewSQLCompiler(tt.dialect).Compile(context.Background(), query)
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, compiled.SQL.Dialect)
			assert.NotEmpty(t, compiled.CacheKey)

			g.Assert(t, tt.name, []byte(render(compiled.SQL)))
		})
	}
}

func TestCompile_Unfiltered(t *testing.T) {
	comp := compiler.NewSQLCompiler(domain.SQLite)

	compiled, err := comp.Compile(context.Background(), &domain.Query{Model: "Content", Table: "content", Operation: domain.FindMany})
	require.NoError(t, err)
	assert.Equal(t, "SELECT root.* FROM content AS root", compiled.SQL.Query)
	assert.Empty(t, compiled.SQL.Args)
}

func TestCompile_FindFirst(t *testing.T) {
	comp := compiler.NewSQLCompiler(domain.PostgreSQL)

	query := &domain.Query{
		Model:     "Content",
		Table:     "content",
		Operation: domain.FindFirst,
		Filter: filter.Compare{
			Field: filter.FieldRef{Path: "id", Column: "id", Type: filter.TypeInt},
			Op:    filter.OpEq,
			Value: int64(4),
		},
	}

	compiled, err := comp.Compile(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, "SELECT root.* FROM content AS root WHERE root.id = $1 LIMIT $2", compiled.SQL.Query)
	assert.Equal(t, []any{int64(4), 1}, compiled.SQL.Args)
}

func TestCompile_SkipWithoutTake(t *testing.T) {
	skip := 5

	tests := []struct {
		dialect domain.SQLDialect
		want    string
	}{
		{dialect: domain.SQLite, want: "SELECT root.* FROM pair AS root LIMIT -1 OFFSET ?"},
		{dialect: domain.MySQL, want: "SELECT root.* FROM pair AS root LIMIT 18446744073709551615 OFFSET ?"},
		{dialect: domain.PostgreSQL, want: "SELECT root.* FROM pair AS root OFFSET $1"},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			query := &domain.Query{Model: "Pair", Table: "pair", Operation: domain.FindMany, Pagination: domain.Pagination{Skip: &skip}}
			compiled, err := compiler.NewSQLCompiler(tt.dialect).Compile(context.Background(), query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, compiled.SQL.Query)
		})
	}
}

func TestCompile_CacheKeyDependsOnArgs(t *testing.T) {
	tr := translator.New(testutil.ContentRegistry(t))
	comp := compiler.NewSQLCompiler(domain.SQLite)

	keyFor := func(expr string) string {
		translation, err := tr.Translate(context.Background(), expr, "Content", nil)
		require.NoError(t, err)
		compiled, err := comp.Compile(context.Background(), domain.FromTranslation(translation))
		require.NoError(t, err)
		return compiled.CacheKey
	}

	assert.Equal(t, keyFor(`id == 1`), keyFor(`id == 1`))
	assert.NotEqual(t, keyFor(`id == 1`), keyFor(`id == 2`))
}

func TestCompile_Errors(t *testing.T) {
	comp := compiler.NewSQLCompiler(domain.SQLite)

	_, err := comp.Compile(context.Background(), &domain.Query{Model: "Content", Operation: domain.FindMany})
	assert.ErrorContains(t, err, "has no table")

	_, err = comp.Compile(context.Background(), &domain.Query{Model: "Content", Table: "content", Operation: "Delete"})
	assert.ErrorContains(t, err, "unsupported operation")
}
