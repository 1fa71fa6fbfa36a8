package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/raysh454/mdinject/internal/document"
)

// PageSetter exposes a stored page as a document.ContentStore. Every write
// loads the current html, replaces the element and saves the page back.
type PageSetter struct {
	reg     *Registry
	pageID  string
	timeout time.Duration

	mu sync.Mutex
}

// NewPageSetter returns a setter for the page with the given id.
func (r *Registry) NewPageSetter(pageID string) *PageSetter {
	return &PageSetter{reg: r, pageID: pageID, timeout: 10 * time.Second}
}

func (s *PageSetter) load(ctx context.Context) (*document.Document, error) {
	page, err := s.reg.GetPage(ctx, s.pageID)
	if err != nil {
		return nil, err
	}
	return document.ParseString(page.HTML)
}

func (s *PageSetter) SetContent(elementID, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := doc.SetContent(elementID, html); err != nil {
		return err
	}
	out, err := doc.HTML()
	if err != nil {
		return err
	}
	if err := s.reg.UpdatePageHTML(ctx, s.pageID, out); err != nil {
		return fmt.Errorf("save page: %w", err)
	}
	return nil
}

func (s *PageSetter) Content(elementID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	doc, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	return doc.Content(elementID)
}
