package resolver_test

import (
	"testing"

	"github.com/google/cel-go/common/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/celquery/internal/core/filter/domain"
	"github.com/satishbabariya/celquery/internal/core/filter/environment"
	"github.com/satishbabariya/celquery/internal/core/filter/resolver"
	"github.com/satishbabariya/celquery/internal/testutil"
)

func newContext(t *testing.T, root string) *resolver.Context {
	t.Helper()

	registry := testutil.ContentRegistry(t)
	env, err := environment.NewBuilder(registry, nil).Build(root, nil)
	require.NoError(t, err)
	return resolver.NewContext(env, registry)
}

func TestPathOf(t *testing.T) {
	fac := ast.NewExprFactory()

	path, err := resolver.PathOf(fac.NewSelect(1, fac.NewSelect(2, fac.NewIdent(3, "metadata"), "notes"), "body"))
	require.NoError(t, err)
	assert.Equal(t, "metadata.notes.body", path)

	_, err = resolver.PathOf(fac.NewCall(1, "size", fac.NewIdent(2, "name")))
	assert.ErrorIs(t, err, domain.ErrInvalidFieldPath)

	_, err = resolver.PathOf(fac.NewSelect(1, fac.NewCall(2, "f"), "x"))
	assert.ErrorIs(t, err, domain.ErrInvalidFieldPath)
}

func TestResolve_TopLevel(t *testing.T) {
	rc := newContext(t, "Content")

	ref, err := rc.Resolve("createdAt")
	require.NoError(t, err)
	assert.Equal(t, "created_at", ref.Column)
	assert.Equal(t, domain.TypeTimestamp, ref.Type)
	assert.Nil(t, ref.Join)
	assert.Equal(t, "root", ref.Qualifier("root"))
	assert.False(t, rc.HasJoins())
}

func TestResolve_MemoisesJoins(t *testing.T) {
	rc := newContext(t, "Content")

	key, err := rc.Resolve("metadata.datakey")
	require.NoError(t, err)
	value, err := rc.Resolve("metadata.datavalue")
	require.NoError(t, err)
	body, err := rc.Resolve("metadata.notes.body")
	require.NoError(t, err)

	joins := rc.Joins()
	require.Len(t, joins, 2)
	assert.Same(t, key.Join, value.Join)
	assert.Same(t, joins[0], body.Join.Parent)
	assert.Equal(t, "j_metadata", key.Qualifier("root"))
	assert.Equal(t, "j_metadata_notes", body.Qualifier("root"))
	assert.Equal(t, "root", joins[0].ParentAlias("root"))
	assert.Equal(t, "j_metadata", joins[1].ParentAlias("root"))
	assert.Equal(t, "Note", body.Model)
}

func TestResolve_JoinsReturnsCopy(t *testing.T) {
	rc := newContext(t, "Content")

	_, err := rc.Resolve("metadata.datakey")
	require.NoError(t, err)

	joins := rc.Joins()
	joins[0] = nil
	assert.NotNil(t, rc.Joins()[0])
}

func TestResolve_UnknownPath(t *testing.T) {
	rc := newContext(t, "Content")

	_, err := rc.Resolve("metadata.missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidFieldPath)
	assert.Contains(t, err.Error(), `"metadata.missing"`)
	assert.False(t, rc.HasJoins())
}

func TestResolve_DiamondPaths(t *testing.T) {
	rc := newContext(t, "Author")

	drafts, err := rc.Resolve("drafts.title")
	require.NoError(t, err)
	posts, err := rc.Resolve("posts.title")
	require.NoError(t, err)

	assert.NotSame(t, drafts.Join, posts.Join)
	assert.Equal(t, []domain.JoinColumns{{Parent: "id", Child: "draft_author_id"}}, drafts.Join.On)
	assert.Equal(t, []domain.JoinColumns{{Parent: "id", Child: "author_id"}}, posts.Join.On)
}
