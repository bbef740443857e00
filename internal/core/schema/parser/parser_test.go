package parser_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/celquery/internal/core/schema/domain"
	"github.com/satishbabariya/celquery/internal/core/schema/parser"
	"github.com/satishbabariya/celquery/internal/testutil"
)

func TestParse_ContentSchema(t *testing.T) {
	schema, err := parser.NewParser().Parse(context.Background(), testutil.ContentSchema)
	require.NoError(t, err)

	require.Len(t, schema.Enums, 1)
	assert.Equal(t, "Status", schema.Enums[0].Name)
	assert.Equal(t, []string{"DRAFT", "PUBLISHED"}, schema.Enums[0].Values)

	names := make([]string, 0, len(schema.Models))
	for _, m := range schema.Models {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Content", "Metadata", "Note", "Pair", "Category", "Author", "Post"}, names)

	content := schema.Models[0]
	table, ok := content.Attribute("map")
	require.True(t, ok)
	name, ok := table.StringArg("name", 0)
	require.True(t, ok)
	assert.Equal(t, "content", name)

	createdAt, ok := content.Field("createdAt")
	require.True(t, ok)
	assert.Equal(t, "DateTime", createdAt.Type.Name)
	column, ok := createdAt.Attribute("map")
	require.True(t, ok)
	col, _ := column.StringArg("name", 0)
	assert.Equal(t, "created_at", col)

	metadata, ok := content.Field("metadata")
	require.True(t, ok)
	assert.True(t, metadata.IsList)
	rel, ok := metadata.Attribute("relation")
	require.True(t, ok)
	mappedBy, ok := rel.StringArg("mappedBy", -1)
	require.True(t, ok)
	assert.Equal(t, "content", mappedBy)

	tags, ok := content.Field("tags")
	require.True(t, ok)
	assert.True(t, tags.IsList)
	assert.Equal(t, "String", tags.Type.Name)
}

func TestParse_RelationArguments(t *testing.T) {
	schema, err := parser.NewParser().Parse(context.Background(), testutil.ContentSchema)
	require.NoError(t, err)

	var metadata domain.Model
	for _, m := range schema.Models {
		if m.Name == "Metadata" {
			metadata = m
		}
	}

	content, ok := metadata.Field("content")
	require.True(t, ok)
	assert.False(t, content.IsList)

	rel, ok := content.Attribute("relation")
	require.True(t, ok)
	assert.Equal(t, []string{"content_id"}, rel.ListArg("fields"))
	assert.Equal(t, []string{"id"}, rel.ListArg("references"))
}

func TestParse_OptionalAndDefaults(t *testing.T) {
	src := `
model User {
  id     Int     @id @default(autoincrement())
  email  String? @unique
  active Boolean @default(true)
  score  Float   @default(1.5)
  // comments are ignored
  @@map("users")
}
`
	schema, err := parser.NewParser().Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, schema.Models, 1)

	user := schema.Models[0]
	email, ok := user.Field("email")
	require.True(t, ok)
	assert.True(t, email.IsOptional)
	assert.True(t, email.HasAttribute("unique"))

	active, _ := user.Field("active")
	def, ok := active.Attribute("default")
	require.True(t, ok)
	v, ok := def.Arg("value", 0)
	require.True(t, ok)
	assert.Equal(t, true, v)

	score, _ := user.Field("score")
	def, _ = score.Attribute("default")
	v, _ = def.Arg("value", 0)
	assert.Equal(t, 1.5, v)

	id, _ := user.Field("id")
	def, _ = id.Attribute("default")
	v, _ = def.Arg("value", 0)
	assert.Equal(t, domain.Ident("autoincrement()"), v)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "missing model name",
			src:     "model { id Int }",
			wantErr: "failed to parse schema",
		},
		{
			name:    "unterminated block",
			src:     "model User { id Int",
			wantErr: "failed to parse schema",
		},
		{
			name:    "duplicate field",
			src:     "model User {\n id Int\n id String\n}",
			wantErr: "declares field id twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.NewParser().Parse(context.Background(), tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/schema/app.cq", []byte(testutil.ContentSchema), 0o644))

	p := parser.NewParserWithFs(fs)
	schema, err := p.ParseFile(context.Background(), "/schema/app.cq")
	require.NoError(t, err)
	assert.Len(t, schema.Models, 7)

	_, err = p.ParseFile(context.Background(), "/schema/missing.cq")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read schema file")
}
