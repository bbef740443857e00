package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	DisableColor()
	var out, errOut bytes.Buffer
	oldOut, oldErr := Out, Err
	Out, Err = &out, &errOut
	t.Cleanup(func() { Out, Err = oldOut, oldErr })
	return &out, &errOut
}

func TestPrintKV(t *testing.T) {
	out, _ := capture(t)

	PrintKV([][2]string{{"root", "Content"}, {"distinct", "true"}})
	assert.Equal(t, "root:     Content\ndistinct: true\n", out.String())
}

func TestPrintMessages(t *testing.T) {
	out, errOut := capture(t)

	PrintSuccess("%d fields", 3)
	PrintError("bad %s", "filter")
	assert.Contains(t, out.String(), "3 fields")
	assert.Contains(t, errOut.String(), "bad filter")
}

func TestRenderTable(t *testing.T) {
	capture(t)

	table, err := RenderTable([]string{"PATH", "TYPE"}, [][]string{{"name", "String"}, {"metadata.datakey", "String"}})
	require.NoError(t, err)
	assert.Contains(t, table, "PATH")
	assert.Contains(t, table, "metadata.datakey")
}

func TestRenderMarkdown(t *testing.T) {
	capture(t)

	out, err := RenderMarkdown("# Translation\n\n`name == \"Foo\"`\n", 60)
	require.NoError(t, err)
	assert.Contains(t, out, "Translation")
	assert.Contains(t, out, `name == "Foo"`)
}
