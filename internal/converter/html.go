package converter

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// HTMLConverter renders Markdown to HTML with goldmark.
// The goldmark instance is built once and is safe to share across goroutines.
type HTMLConverter struct {
	md goldmark.Markdown
}

// NewHTML builds the injection converter: CommonMark plus tables and
// strikethrough, nothing else. Inline HTML in the source is passed through
// untouched; the Markdown is not sanitised.
func NewHTML() *HTMLConverter {
	return &HTMLConverter{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.Table,
				extension.Strikethrough,
			),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

func (c *HTMLConverter) Convert(markdown []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.md.Convert(markdown, &buf); err != nil {
		return nil, fmt.Errorf("markdown convert: %w", err)
	}
	return buf.Bytes(), nil
}
