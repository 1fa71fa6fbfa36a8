package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/raysh454/mdinject/internal/logging"
	"github.com/raysh454/mdinject/internal/webclient"
)

var (
	ErrStatus   = errors.New("unexpected status")
	ErrTooLarge = errors.New("source exceeds size limit")
)

// FetchError describes a failed retrieval of a source document.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %v (status %d)", e.URL, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Source is a retrieved Markdown document. It is owned by the caller and is
// never retained by the fetcher.
type Source struct {
	URL         string
	Body        []byte
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

// Result pairs a URL with its outcome in FetchAll.
type Result struct {
	URL    string
	Source *Source
	Err    error
}

// Module: fetcher
// Retrieves source documents over a webclient and validates the response.
type Fetcher struct {
	cfg    Config
	wc     webclient.WebClient
	logger logging.Logger
}

// New creates a new Fetcher with the given webclient and logger
func New(cfg Config, wc webclient.WebClient, logger logging.Logger) (*Fetcher, error) {
	if wc == nil {
		return nil, fmt.Errorf("fetcher: webclient is nil")
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	return &Fetcher{
		cfg:    cfg,
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "fetcher"}),
	}, nil
}

// Fetch issues a single GET for url. Transport failures, non-2xx statuses
// and oversize bodies are returned as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Source, error) {
	resp, err := f.wc.Get(ctx, url)
	if err != nil {
		f.logger.Warn("error while fetching source",
			logging.Field{Key: "url", Value: url},
			logging.Field{Key: "error", Value: err})
		return nil, &FetchError{URL: url, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Warn("source returned non-success status",
			logging.Field{Key: "url", Value: url},
			logging.Field{Key: "status", Value: resp.StatusCode})
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: ErrStatus}
	}

	if f.cfg.MaxBodyBytes > 0 && int64(len(resp.Body)) > f.cfg.MaxBodyBytes {
		return nil, &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(resp.Body), f.cfg.MaxBodyBytes),
		}
	}

	f.logger.Debug("fetched source",
		logging.Field{Key: "url", Value: url},
		logging.Field{Key: "bytes", Value: len(resp.Body)})

	fetchedAt := resp.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	return &Source{
		URL:         url,
		Body:        resp.Body,
		StatusCode:  resp.StatusCode,
		ContentType: resp.ContentType(),
		FetchedAt:   fetchedAt,
	}, nil
}

// FetchAll fetches urls concurrently, at most MaxConcurrency at a time.
// Results are returned in input order. A canceled context marks the
// remaining URLs with ctx.Err().
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))
	var wg sync.WaitGroup
	sem := make(chan struct{}, f.cfg.MaxConcurrency)

	for i, u := range urls {
		results[i].URL = u

		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i].Err = ctx.Err()
				return
			}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				results[i].Err = ctx.Err()
				return
			}
			results[i].Source, results[i].Err = f.Fetch(ctx, u)
		}(i, u)
	}

	wg.Wait()
	return results
}
