// Package injector fetches a remote Markdown document, converts it and writes
// the result into one element of a host document.
package injector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raysh454/mdinject/internal/converter"
	"github.com/raysh454/mdinject/internal/document"
	"github.com/raysh454/mdinject/internal/fetcher"
	"github.com/raysh454/mdinject/internal/logging"
	"github.com/raysh454/mdinject/internal/utils"
)

// SourceFetcher retrieves a source document. *fetcher.Fetcher implements it.
type SourceFetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Source, error)
}

type Config struct {
	// BaseURL resolves relative source URLs, like the page a script runs on.
	BaseURL string

	// DropTrackingParams strips utm_* and friends from source URLs.
	DropTrackingParams bool

	// EmptyOnFailure writes the rendering of an empty document when the
	// fetch fails, instead of leaving the element untouched. The fetch error
	// is still returned.
	EmptyOnFailure bool
}

// Result describes a completed injection.
type Result struct {
	ElementID     string        `json:"element_id"`
	SourceURL     string        `json:"source_url"`
	StatusCode    int           `json:"status_code"`
	MarkdownBytes int           `json:"markdown_bytes"`
	HTML          string        `json:"html"`
	Previous      string        `json:"previous,omitempty"`
	Changed       bool          `json:"changed"`
	Changes       ChangeSummary `json:"changes"`
	StartedAt     time.Time     `json:"started_at"`
	EndedAt       time.Time     `json:"ended_at"`
}

type elementState struct {
	mu        sync.Mutex
	committed uint64
}

// Injector is safe for concurrent use. Injections into the same element are
// ordered by start: once a later injection has written, an earlier one that
// finishes afterwards is dropped with ErrSuperseded.
type Injector struct {
	cfg    Config
	fetch  SourceFetcher
	conv   converter.Converter
	target document.ContentSetter
	logger logging.Logger

	seq      atomic.Uint64
	mu       sync.Mutex
	elements map[string]*elementState
}

// New wires an Injector. A nil converter selects the HTML converter.
func New(cfg Config, f SourceFetcher, conv converter.Converter, target document.ContentSetter, logger logging.Logger) (*Injector, error) {
	if f == nil {
		return nil, errors.New("injector: fetcher is nil")
	}
	if target == nil {
		return nil, errors.New("injector: content setter is nil")
	}
	if conv == nil {
		conv = converter.NewHTML()
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Injector{
		cfg:      cfg,
		fetch:    f,
		conv:     conv,
		target:   target,
		logger:   logger.With(logging.Field{Key: "component", Value: "injector"}),
		elements: make(map[string]*elementState),
	}, nil
}

func (i *Injector) state(elementID string) *elementState {
	i.mu.Lock()
	defer i.mu.Unlock()
	st, ok := i.elements[elementID]
	if !ok {
		st = &elementState{}
		i.elements[elementID] = st
	}
	return st
}

// SourceURL resolves and canonicalises raw the way Inject does.
func (i *Injector) SourceURL(raw string) (string, error) {
	resolved, err := utils.ResolveReference(i.cfg.BaseURL, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSourceURL, err)
	}
	canonical, err := utils.Canonicalize(resolved, utils.CanonicalizeOptions{
		DropTrackingParams: i.cfg.DropTrackingParams,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSourceURL, err)
	}
	return canonical, nil
}

// Inject fetches sourceURL, converts it and replaces the content of
// elementID. Nothing is written unless every step succeeds, except in
// EmptyOnFailure mode where a failed fetch writes the empty rendering and
// both a Result and the error are returned.
func (i *Injector) Inject(ctx context.Context, elementID, sourceURL string) (*Result, error) {
	return i.injectWithSeq(ctx, i.fetch, i.seq.Add(1), elementID, sourceURL)
}

// InjectFrom is Inject with the source taken from f instead of the
// injector's own fetcher. f is asked for the resolved source URL.
func (i *Injector) InjectFrom(ctx context.Context, f SourceFetcher, elementID, sourceURL string) (*Result, error) {
	if f == nil {
		f = i.fetch
	}
	return i.injectWithSeq(ctx, f, i.seq.Add(1), elementID, sourceURL)
}

func (i *Injector) injectWithSeq(ctx context.Context, f SourceFetcher, seq uint64, elementID, sourceURL string) (*Result, error) {
	started := time.Now().UTC()

	if strings.TrimSpace(elementID) == "" {
		return nil, ErrEmptyElementID
	}
	src, err := i.SourceURL(sourceURL)
	if err != nil {
		return nil, err
	}

	log := i.logger.With(
		logging.Field{Key: "element", Value: elementID},
		logging.Field{Key: "source", Value: src})

	res := &Result{ElementID: elementID, SourceURL: src, StartedAt: started}

	var markdown []byte
	source, fetchErr := f.Fetch(ctx, src)
	if fetchErr != nil {
		fetchErr = fmt.Errorf("%w: %w", ErrFetch, fetchErr)
		if !i.cfg.EmptyOnFailure {
			log.Warn("injection aborted", logging.Field{Key: "error", Value: fetchErr})
			return nil, fetchErr
		}
		var fe *fetcher.FetchError
		if errors.As(fetchErr, &fe) {
			res.StatusCode = fe.StatusCode
		}
	} else {
		markdown = source.Body
		res.StatusCode = source.StatusCode
	}
	res.MarkdownBytes = len(markdown)

	html, err := i.conv.Convert(markdown)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrConvert, err)
		log.Warn("injection aborted", logging.Field{Key: "error", Value: err})
		return nil, err
	}
	res.HTML = string(html)

	if err := i.commit(seq, res); err != nil {
		log.Warn("injection not written", logging.Field{Key: "error", Value: err})
		return nil, err
	}
	res.EndedAt = time.Now().UTC()

	if fetchErr != nil {
		log.Warn("wrote empty rendering after failed fetch", logging.Field{Key: "error", Value: fetchErr})
		return res, fetchErr
	}

	log.Info("injected markdown",
		logging.Field{Key: "bytes", Value: res.MarkdownBytes},
		logging.Field{Key: "changed", Value: res.Changed})
	return res, nil
}

// commit performs the single write for an injection, honouring start order.
func (i *Injector) commit(seq uint64, res *Result) error {
	st := i.state(res.ElementID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.committed > seq {
		return ErrSuperseded
	}

	getter, canRead := i.target.(document.ContentGetter)
	if canRead {
		prev, err := getter.Content(res.ElementID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSetContent, err)
		}
		res.Previous = prev
	}

	if err := i.target.SetContent(res.ElementID, res.HTML); err != nil {
		return fmt.Errorf("%w: %w", ErrSetContent, err)
	}
	st.committed = seq

	if canRead {
		// Targets may re-serialise what they store, so compare stored forms.
		stored, err := getter.Content(res.ElementID)
		if err != nil {
			stored = res.HTML
		}
		res.Changes = summarize(res.Previous, stored)
		res.Changed = res.Previous != stored
	} else {
		res.Changed = true
	}
	return nil
}

// Pending is the handle of an asynchronous injection.
type Pending struct {
	done chan struct{}
	res  *Result
	err  error
}

// Done is closed once the injection has finished.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Result returns the outcome. It must only be called after Done is closed.
func (p *Pending) Result() (*Result, error) { return p.res, p.err }

// Wait blocks until the injection finishes or ctx ends. Ending ctx does not
// cancel the injection itself; cancel the context given to InjectAsync for that.
func (p *Pending) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-p.done:
		return p.res, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InjectAsync runs Inject in its own goroutine. The start order used for
// superseding is taken when InjectAsync is called.
func (i *Injector) InjectAsync(ctx context.Context, elementID, sourceURL string) *Pending {
	p := &Pending{done: make(chan struct{})}
	seq := i.seq.Add(1)
	go func() {
		defer close(p.done)
		p.res, p.err = i.injectWithSeq(ctx, i.fetch, seq, elementID, sourceURL)
	}()
	return p
}
