package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownRendersFormatting(t *testing.T) {
	html, err := Markdown("**bold** and `code`")
	require.NoError(t, err)

	assert.Contains(t, html, "<strong>bold</strong>")
	assert.Contains(t, html, "<code>code</code>")
}

func TestMarkdownStripsScripts(t *testing.T) {
	html, err := Markdown("hello <script>alert(1)</script>")
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "hello")
}

func TestPendingAppendsCursor(t *testing.T) {
	assert.Equal(t, "partial"+Cursor, Pending("partial"))
	assert.Equal(t, Cursor, Pending(""))
}
