package executor_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/celquery/internal/adapters/telemetry"
	"github.com/satishbabariya/celquery/internal/core/filter/translator"
	"github.com/satishbabariya/celquery/internal/core/query/compiler"
	"github.com/satishbabariya/celquery/internal/core/query/domain"
	"github.com/satishbabariya/celquery/internal/core/query/executor"
	"github.com/satishbabariya/celquery/internal/testutil"
)

type fixture struct {
	tr   *translator.Translator
	comp *compiler.SQLCompiler
	exec *executor.QueryExecutor
	tel  *telemetry.PrometheusTelemetry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	adapter := testutil.SQLiteContent(t)
	tel := telemetry.NewPrometheusTelemetry(nil, prometheus.NewRegistry())
	return &fixture{
		tr:   translator.New(testutil.ContentRegistry(t)),
		comp: compiler.NewSQLCompiler(adapter.GetDialect()),
		exec: executor.NewQueryExecutor(adapter, tel),
		tel:  tel,
	}
}

func (f *fixture) run(t *testing.T, expr string, op domain.QueryOperation) *domain.CompiledQuery {
	t.Helper()

	translation, err := f.tr.Translate(context.Background(), expr, "Content", nil)
	require.NoError(t, err)
	query := domain.FromTranslation(translation)
	query.Operation = op
	query.Ordering = []domain.OrderBy{{Column: "id"}}
	if op == domain.Count {
		query.Ordering = nil
	}

	compiled, err := f.comp.Compile(context.Background(), query)
	require.NoError(t, err)
	return compiled
}

func ids(rows []domain.Row) []int64 {
	out := make([]int64, len(rows))
	for i, row := range rows {
		out[i] = row["id"].(int64)
	}
	return out
}

func TestExecute_Filters(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		expr string
		want []int64
	}{
		{name: "equality", expr: `name == "Foo"`, want: []int64{1}},
		{name: "shared join is de-duplicated", expr: `metadata.datakey == "author" && metadata.datavalue == "Alice"`, want: []int64{1}},
		{name: "negation pushdown", expr: `!(name == "Foo" || rating < 3)`, want: []int64{3}},
		{name: "escaped underscore", expr: `name.startsWith("Foo_")`, want: []int64{3}},
		{name: "contains", expr: `name.contains("a")`, want: []int64{2, 3}},
		{name: "in set", expr: `id in [1, 3, 99]`, want: []int64{1, 3}},
		{name: "empty in", expr: `id in []`, want: []int64{}},
		{name: "bool field", expr: `published`, want: []int64{1, 3}},
		{name: "enum as string", expr: `status == "DRAFT"`, want: []int64{2, 3}},
		{name: "two hop join", expr: `metadata.notes.body.contains("review")`, want: []int64{1}},
		{name: "join key shortcut", expr: `metadata.content_id == 2`, want: []int64{2}},
		{name: "double ordering", expr: `rating >= 3.5`, want: []int64{1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := f.exec.Execute(context.Background(), f.run(t, tt.expr, domain.FindMany))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(rows))
		})
	}
}

func TestExecute_RowValues(t *testing.T) {
	f := newFixture(t)

	rows, err := f.exec.Execute(context.Background(), f.run(t, `id == 2`, domain.FindFirst))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bar", rows[0]["name"])
	assert.Equal(t, "DRAFT", rows[0]["status"])
	assert.Equal(t, 2.0, rows[0]["rating"])
}

func TestExecute_Count(t *testing.T) {
	f := newFixture(t)

	n, err := f.exec.Count(context.Background(), f.run(t, `metadata.datakey == "author"`, domain.Count))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestExecute_RecordsTelemetry(t *testing.T) {
	f := newFixture(t)

	_, err := f.exec.Execute(context.Background(), f.run(t, `id == 1`, domain.FindMany))
	require.NoError(t, err)
	assert.Equal(t, 1.0, promtest.ToFloat64(f.tel.QueriesTotal.WithLabelValues("Content", "FindMany", "success")))

	_, err = f.exec.Execute(context.Background(), &domain.CompiledQuery{
		SQL:   domain.SQL{Query: "SELECT * FROM missing"},
		Model: "Content",
	})
	require.Error(t, err)
	assert.Equal(t, 1.0, promtest.ToFloat64(f.tel.QueriesTotal.WithLabelValues("Content", "FindMany", "error")))
}

func TestExecute_NoAdapter(t *testing.T) {
	_, err := executor.NewQueryExecutor(nil, nil).Execute(context.Background(), &domain.CompiledQuery{})
	assert.ErrorContains(t, err, "not initialized")
}
