// Package testutil holds schema fixtures shared by package tests.
package testutil

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/celquery/internal/adapters/database"
	"github.com/satishbabariya/celquery/internal/core/schema"
	"github.com/satishbabariya/celquery/internal/core/schema/parser"
)

// ContentSchema models content items with key/value metadata, plus a few models
// that exercise cycles, diamonds and numeric pairs.
const ContentSchema = `
enum Status {
  DRAFT
  PUBLISHED
}

model Content {
  id        Int        @id
  createdAt DateTime   @map("created_at")
  name      String
  rating    Float
  published Boolean
  status    Status
  tags      String[]
  metadata  Metadata[] @relation(mappedBy: "content")
  @@map("content")
}

model Metadata {
  id        Int     @id
  content   Content @relation(fields: [content_id], references: [id])
  datakey   String
  datavalue String
  notes     Note[]
  @@map("metadata")
}

model Note {
  id       Int      @id
  metadata Metadata @relation(fields: [metadata_id], references: [id])
  body     String
  @@map("note")
}

model Pair {
  id Int @id
  a  Int
  b  Int
  @@map("pair")
}

model Category {
  id       Int        @id
  label    String
  parent   Category?  @relation(fields: [parent_id], references: [id])
  children Category[]
  @@map("category")
}

model Author {
  id      Int    @id
  name    String
  drafts  Post[] @relation(mappedBy: "draftAuthor")
  posts   Post[] @relation(mappedBy: "author")
}

model Post {
  id          Int    @id
  title       String
  author      Author @relation(fields: [author_id], references: [id])
  draftAuthor Author @relation(fields: [draft_author_id], references: [id])
}
`

// NewRegistry parses src into a fresh registry.
func NewRegistry(t testing.TB, src string) *schema.MetadataRegistry {
	t.Helper()

	parsed, err := parser.NewParser().Parse(context.Background(), src)
	require.NoError(t, err)

	registry := schema.NewMetadataRegistry()
	require.NoError(t, registry.LoadFromSchema(parsed))
	return registry
}

// ContentRegistry returns a registry loaded with ContentSchema.
func ContentRegistry(t testing.TB) *schema.MetadataRegistry {
	t.Helper()
	return NewRegistry(t, ContentSchema)
}

// ContentDDL creates the tables behind ContentSchema's Content, Metadata and Note models.
var ContentDDL = []string{
	`CREATE TABLE content (
		id INTEGER PRIMARY KEY,
		created_at DATETIME,
		name TEXT NOT NULL,
		rating REAL,
		published BOOLEAN,
		status TEXT
	)`,
	`CREATE TABLE metadata (
		id INTEGER PRIMARY KEY,
		content_id INTEGER REFERENCES content(id),
		datakey TEXT,
		datavalue TEXT
	)`,
	`CREATE TABLE note (
		id INTEGER PRIMARY KEY,
		metadata_id INTEGER REFERENCES metadata(id),
		body TEXT
	)`,
}

// ContentSeed fills the tables created by ContentDDL. Content 1 carries two
// identical author=Alice metadata rows so joins fan out.
var ContentSeed = []string{
	`INSERT INTO content (id, created_at, name, rating, published, status) VALUES
		(1, '2024-01-01 00:00:00', 'Foo', 4.5, 1, 'PUBLISHED'),
		(2, '2024-02-01 00:00:00', 'Bar', 2.0, 0, 'DRAFT'),
		(3, '2024-03-01 00:00:00', 'Foo_Baz', 3.5, 1, 'DRAFT')`,
	`INSERT INTO metadata (id, content_id, datakey, datavalue) VALUES
		(1, 1, 'author', 'Alice'),
		(2, 1, 'author', 'Alice'),
		(3, 1, 'editor', 'Carol'),
		(4, 2, 'author', 'Bob')`,
	`INSERT INTO note (id, metadata_id, body) VALUES
		(1, 3, 'needs review'),
		(2, 4, 'approved')`,
}

// SQLiteContent returns a connected in-memory SQLite adapter holding ContentSeed.
func SQLiteContent(t testing.TB) *database.SQLAdapter {
	t.Helper()
	ctx := context.Background()

	adapter, err := database.NewAdapter(database.Config{Provider: "sqlite", URL: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, adapter.Connect(ctx))
	t.Cleanup(func() { _ = adapter.Disconnect(ctx) })

	for _, stmt := range append(slices.Clone(ContentDDL), ContentSeed...) {
		_, err := adapter.Execute(ctx, stmt)
		require.NoError(t, err)
	}
	return adapter
}
