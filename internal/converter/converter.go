// Package converter turns Markdown source into a presentable form.
//
// The HTML converter is the one used for page injection. Its extension set is
// fixed to tables and strikethrough and is not exposed to callers.
package converter

import (
	"fmt"
	"sort"
	"strings"
)

// Converter renders Markdown text.
// Implementations must be safe for concurrent use.
type Converter interface {
	Convert(markdown []byte) ([]byte, error)
}

// ConverterFunc adapts a plain function to Converter.
type ConverterFunc func(markdown []byte) ([]byte, error)

func (f ConverterFunc) Convert(markdown []byte) ([]byte, error) {
	return f(markdown)
}

const (
	NameHTML     = "html"
	NameTerminal = "terminal"
)

// New returns the named converter. Width only applies to the terminal
// converter; zero means 80 columns.
func New(name string, width int) (Converter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameHTML:
		return NewHTML(), nil
	case NameTerminal:
		return NewTerminal(width)
	default:
		names := []string{NameHTML, NameTerminal}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown converter %q: available converters=%v", name, names)
	}
}
