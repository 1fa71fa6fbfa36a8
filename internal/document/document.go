// Package document is the presentation boundary: it addresses elements of an
// HTML document by id and replaces their content.
package document

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// ErrElementNotFound is returned when no element carries the requested id.
var ErrElementNotFound = errors.New("element not found")

// ContentSetter replaces the full content of the element identified by
// elementID with html.
type ContentSetter interface {
	SetContent(elementID, html string) error
}

// ContentGetter reads the current content of an element.
type ContentGetter interface {
	Content(elementID string) (string, error)
}

// ContentStore is a setter that can also report what it currently holds.
type ContentStore interface {
	ContentSetter
	ContentGetter
}

// SetterFunc adapts a function to ContentSetter.
type SetterFunc func(elementID, html string) error

func (f SetterFunc) SetContent(elementID, html string) error { return f(elementID, html) }

// Document is an in-memory HTML document. It is safe for concurrent use.
type Document struct {
	mu  sync.RWMutex
	doc *goquery.Document
}

// Parse reads a full or partial HTML document.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc}, nil
}

// ParseString is Parse for an in-memory string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// find returns the first element whose id attribute equals id, matching
// getElementById. The id is compared verbatim so it never reaches the
// selector engine.
func (d *Document) find(id string) *goquery.Selection {
	return d.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	}).First()
}

// Has reports whether an element with the given id exists.
func (d *Document) Has(elementID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.find(elementID).Length() > 0
}

// SetContent replaces every child of the element with the parsed html.
func (d *Document) SetContent(elementID, html string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := d.find(elementID)
	if sel.Length() == 0 {
		return fmt.Errorf("%w: %q", ErrElementNotFound, elementID)
	}
	sel.SetHtml(html)
	return nil
}

// Content returns the inner HTML of the element.
func (d *Document) Content(elementID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	sel := d.find(elementID)
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: %q", ErrElementNotFound, elementID)
	}
	return sel.Html()
}

// IDs lists the element ids present in document order.
func (d *Document) IDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var ids []string
	d.doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("id"); ok && v != "" {
			ids = append(ids, v)
		}
	})
	return ids
}

// HTML serialises the whole document.
func (d *Document) HTML() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out, err := d.doc.Html()
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return out, nil
}

// WriteTo writes the serialised document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	out, err := d.HTML()
	if err != nil {
		return 0, err
	}
	n, err := io.WriteString(w, out)
	return int64(n), err
}
