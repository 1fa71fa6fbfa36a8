package converter

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// TerminalConverter renders Markdown as ANSI text for the preview command.
type TerminalConverter struct {
	r *glamour.TermRenderer
}

func NewTerminal(width int) (*TerminalConverter, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return &TerminalConverter{r: r}, nil
}

// NewPlainTerminal renders without colors. Useful when output is piped.
func NewPlainTerminal(width int) (*TerminalConverter, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return &TerminalConverter{r: r}, nil
}

func (c *TerminalConverter) Convert(markdown []byte) ([]byte, error) {
	out, err := c.r.RenderBytes(markdown)
	if err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
