package models

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
)

// markdown has raw HTML rendering disabled, which is goldmark's default, so model output cannot inject markup.
var markdown = goldmark.New()

// RenderContent converts Markdown text produced by the assistant into HTML that is safe to place in a page.
func RenderContent(content string) (template.HTML, error) {
	if content == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
