// Package render turns committed chat turns into safe HTML for the page.
package render

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Cursor suffixes the pending reply while it is still streaming.
const Cursor = "▌"

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	policy   = bluemonday.UGCPolicy()
)

// Markdown renders src as sanitised HTML.
func Markdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return string(policy.SanitizeBytes(buf.Bytes())), nil
}

// Pending is the text shown in the live slot while a reply streams.
func Pending(buffer string) string {
	return buffer + Cursor
}
