// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/raysh454/mdinject/internal/document"
	"github.com/raysh454/mdinject/internal/logging"
	"github.com/raysh454/mdinject/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, _ ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, _ ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, _ ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, _ ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// WarnCount returns the number of recorded warnings.
func (l *DummyLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warns)
}

// ─── WebClient ─────────────────────────────────────────────────────────

// DummyWebClient implements webclient.WebClient.
// Bodies maps a URL to its body; unknown URLs answer "ok:<url>" with 200.
// Set FailURLs[url] = true to force a transport error and Statuses[url] to
// override the status code. Gate, when non-nil, blocks every request until
// it is closed or the request context ends.
type DummyWebClient struct {
	ResponseDelay time.Duration
	Bodies        map[string]string
	Statuses      map[string]int
	FailURLs      map[string]bool
	Gate          chan struct{}

	mu       sync.Mutex
	Requests []*webclient.Request
}

func (d *DummyWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	d.mu.Lock()
	d.Requests = append(d.Requests, req)
	delay, gate := d.ResponseDelay, d.Gate
	body, hasBody := d.Bodies[req.URL]
	status, hasStatus := d.Statuses[req.URL]
	fail := d.FailURLs[req.URL]
	d.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if fail {
		return nil, fmt.Errorf("dummy fetch fail for %s", req.URL)
	}
	if !hasBody {
		body = "ok:" + req.URL
	}
	if !hasStatus {
		status = 200
	}

	return &webclient.Response{
		Request:    req,
		Body:       []byte(body),
		StatusCode: status,
		FetchedAt:  time.Now(),
	}, nil
}

func (d *DummyWebClient) Get(ctx context.Context, url string) (*webclient.Response, error) {
	return d.Do(ctx, &webclient.Request{Method: "GET", URL: url})
}

func (d *DummyWebClient) Close() error { return nil }

// SetBody changes the body served for url.
func (d *DummyWebClient) SetBody(url, body string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Bodies == nil {
		d.Bodies = map[string]string{}
	}
	d.Bodies[url] = body
}

// RequestCount returns how many requests have been issued.
func (d *DummyWebClient) RequestCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Requests)
}

// ─── Converter ─────────────────────────────────────────────────────────

// StubConverter wraps the input in <md>…</md>, or fails with Err.
type StubConverter struct {
	Err error

	mu    sync.Mutex
	Calls []string
}

func (c *StubConverter) Convert(markdown []byte) ([]byte, error) {
	c.mu.Lock()
	c.Calls = append(c.Calls, string(markdown))
	c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return []byte("<md>" + string(markdown) + "</md>"), nil
}

// ─── ContentSetter ─────────────────────────────────────────────────────

// MapSetter is an in-memory document.ContentStore over a fixed set of ids.
// Writes to ids not present in Elements fail with document.ErrElementNotFound.
type MapSetter struct {
	mu       sync.Mutex
	Elements map[string]string
	Writes   []string
}

// NewMapSetter creates a MapSetter with the given element ids, all empty.
func NewMapSetter(ids ...string) *MapSetter {
	m := &MapSetter{Elements: map[string]string{}}
	for _, id := range ids {
		m.Elements[id] = ""
	}
	return m
}

func (m *MapSetter) SetContent(elementID, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Elements[elementID]; !ok {
		return fmt.Errorf("%w: %q", document.ErrElementNotFound, elementID)
	}
	m.Elements[elementID] = html
	m.Writes = append(m.Writes, elementID+"="+html)
	return nil
}

func (m *MapSetter) Content(elementID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Elements[elementID]
	if !ok {
		return "", fmt.Errorf("%w: %q", document.ErrElementNotFound, elementID)
	}
	return v, nil
}

// Get returns the current content of elementID, empty when missing.
func (m *MapSetter) Get(elementID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Elements[elementID]
}

// WriteCount returns how many successful writes happened.
func (m *MapSetter) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Writes)
}

// ─── Misc ──────────────────────────────────────────────────────────────

// HostPage is a small host document used by several package tests.
const HostPage = `<!doctype html><html><head><title>host</title></head><body>` +
	`<main id="content"><p>placeholder</p></main><nav id="nav"></nav></body></html>`

// Contains reports whether every needle is in haystack.
func Contains(haystack string, needles ...string) bool {
	for _, n := range needles {
		if !strings.Contains(haystack, n) {
			return false
		}
	}
	return true
}
