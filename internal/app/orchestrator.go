package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/raysh454/mdinject/internal/converter"
	"github.com/raysh454/mdinject/internal/fetcher"
	"github.com/raysh454/mdinject/internal/injector"
	"github.com/raysh454/mdinject/internal/logging"
	"github.com/raysh454/mdinject/internal/registry"
	"github.com/raysh454/mdinject/internal/webclient"
)

var ErrOrchestratorClosed = errors.New("orchestrator is closed")

type JobEventType string

const (
	JobEventStatus JobEventType = "status"
	JobEventResult JobEventType = "result"
)

type JobEvent struct {
	JobID string       `json:"job_id"`
	Type  JobEventType `json:"type"`

	// For status changes
	Status JobStatus `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`

	Result *injector.Result `json:"result,omitempty"`
}

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

type Job struct {
	ID        string        `json:"id"`
	Page      string        `json:"page"`
	ElementID string        `json:"element_id"`
	SourceURL string        `json:"source_url"`
	Status    JobStatus     `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Events    chan JobEvent `json:"-"`

	Result *injector.Result `json:"result,omitempty"`
}

// InjectRequest names one element and its source.
type InjectRequest struct {
	ElementID string `json:"element_id"`
	SourceURL string `json:"source_url"`
}

type BatchResult struct {
	InjectRequest
	Result *injector.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Orchestrator owns the shared fetch stack and one injector per stored page,
// and runs injections either synchronously or as jobs.
type Orchestrator struct {
	cfg      *Config
	registry *registry.Registry
	logger   logging.Logger

	wc      webclient.WebClient
	fetcher *fetcher.Fetcher
	conv    converter.Converter

	pagesMu   sync.Mutex
	injectors map[string]*injector.Injector

	jobsMu     sync.Mutex
	jobs       map[string]*Job
	jobCancels map[string]context.CancelFunc
	jobsWG     sync.WaitGroup
	closed     bool
}

// NewOrchestrator ties together config, registry and logger. A nil wc builds
// the backend named in cfg.WebClientCfg; the orchestrator closes it either way.
func NewOrchestrator(cfg *Config, reg *registry.Registry, wc webclient.WebClient, logger logging.Logger) (*Orchestrator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if reg == nil {
		return nil, errors.New("registry is nil")
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}

	if wc == nil {
		var err error
		wc, err = webclient.NewWebClient(cfg.WebClientCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("new webclient: %w", err)
		}
	}

	f, err := fetcher.New(cfg.FetcherCfg, wc, logger)
	if err != nil {
		_ = wc.Close()
		return nil, fmt.Errorf("new fetcher: %w", err)
	}

	return &Orchestrator{
		cfg:        cfg,
		registry:   reg,
		logger:     logger.With(logging.Field{Key: "component", Value: "orchestrator"}),
		wc:         wc,
		fetcher:    f,
		conv:       converter.NewHTML(),
		injectors:  make(map[string]*injector.Injector),
		jobs:       make(map[string]*Job),
		jobCancels: make(map[string]context.CancelFunc),
	}, nil
}

// injectorFor returns the injector writing into page. Reusing one injector
// per page keeps per-element ordering across requests.
func (o *Orchestrator) injectorFor(page *registry.Page) (*injector.Injector, error) {
	o.pagesMu.Lock()
	defer o.pagesMu.Unlock()

	if inj, ok := o.injectors[page.ID]; ok {
		return inj, nil
	}

	cfg := o.cfg.InjectorCfg
	if page.BaseURL != "" {
		cfg.BaseURL = page.BaseURL
	}
	inj, err := injector.New(cfg, o.fetcher, o.conv, o.registry.NewPageSetter(page.ID),
		o.logger.With(logging.Field{Key: "page", Value: page.Slug}))
	if err != nil {
		return nil, err
	}
	o.injectors[page.ID] = inj
	return inj, nil
}

func (o *Orchestrator) CreatePage(ctx context.Context, slug, name, baseURL, html string) (*registry.Page, error) {
	return o.registry.CreatePage(ctx, slug, name, baseURL, html)
}

func (o *Orchestrator) ListPages(ctx context.Context) ([]registry.Page, error) {
	return o.registry.ListPages(ctx)
}

func (o *Orchestrator) GetPage(ctx context.Context, page string) (*registry.Page, error) {
	return o.registry.GetPage(ctx, page)
}

func (o *Orchestrator) ListInjections(ctx context.Context, page string, limit int) ([]registry.Injection, error) {
	return o.registry.ListInjections(ctx, page, limit)
}

// InjectPage runs one injection into a stored page and records it in the
// injection log. The log entry is written even when the injection fails.
func (o *Orchestrator) InjectPage(ctx context.Context, page, elementID, sourceURL string) (*injector.Result, error) {
	p, err := o.registry.GetPage(ctx, page)
	if err != nil {
		return nil, err
	}
	inj, err := o.injectorFor(p)
	if err != nil {
		return nil, err
	}
	return o.injectRecorded(ctx, p, inj, nil, elementID, sourceURL)
}

func (o *Orchestrator) injectRecorded(ctx context.Context, p *registry.Page, inj *injector.Injector, f injector.SourceFetcher, elementID, sourceURL string) (*injector.Result, error) {
	started := time.Now()
	res, err := inj.InjectFrom(ctx, f, elementID, sourceURL)
	o.record(ctx, p, elementID, sourceURL, started, res, err)
	return res, err
}

func injectionStatus(ctx context.Context, err error) registry.InjectionStatus {
	switch {
	case err == nil:
		return registry.InjectionDone
	case errors.Is(err, injector.ErrSuperseded):
		return registry.InjectionSuperseded
	case ctx.Err() != nil:
		return registry.InjectionCanceled
	default:
		return registry.InjectionFailed
	}
}

func (o *Orchestrator) record(ctx context.Context, p *registry.Page, elementID, sourceURL string, started time.Time, res *injector.Result, injErr error) {
	rec := &registry.Injection{
		PageID:    p.ID,
		ElementID: elementID,
		SourceURL: sourceURL,
		Status:    injectionStatus(ctx, injErr),
		StartedAt: started.UnixMilli(),
		EndedAt:   time.Now().UnixMilli(),
	}
	if injErr != nil {
		rec.Error = injErr.Error()
		var fe *fetcher.FetchError
		if errors.As(injErr, &fe) {
			rec.StatusCode = fe.StatusCode
		}
	}
	if res != nil {
		rec.SourceURL = res.SourceURL
		rec.StatusCode = res.StatusCode
		rec.Bytes = res.MarkdownBytes
		rec.Changed = res.Changed
		if b, err := json.Marshal(res.Changes); err == nil {
			rec.ChangesJSON = string(b)
		}
	}

	if err := o.registry.RecordInjection(context.WithoutCancel(ctx), rec); err != nil {
		o.logger.Warn("failed to record injection",
			logging.Field{Key: "page", Value: p.Slug},
			logging.Field{Key: "element", Value: elementID},
			logging.Field{Key: "error", Value: err})
	}
}

// prefetched serves sources fetched ahead of a batch.
type prefetched map[string]fetcher.Result

func (p prefetched) Fetch(ctx context.Context, url string) (*fetcher.Source, error) {
	r, ok := p[url]
	if !ok {
		return nil, &fetcher.FetchError{URL: url, Err: errors.New("source not prefetched")}
	}
	return r.Source, r.Err
}

// InjectBatch runs several injections into one page. Distinct sources are
// fetched once up front through FetchAll, then the writes run at most
// BatchConcurrency at a time. A failing item does not stop the others.
func (o *Orchestrator) InjectBatch(ctx context.Context, page string, reqs []InjectRequest) ([]BatchResult, error) {
	p, err := o.registry.GetPage(ctx, page)
	if err != nil {
		return nil, err
	}
	inj, err := o.injectorFor(p)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var urls []string
	for _, req := range reqs {
		u, err := inj.SourceURL(req.SourceURL)
		if err != nil || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	sources := make(prefetched, len(urls))
	for _, r := range o.fetcher.FetchAll(ctx, urls) {
		sources[r.URL] = r
	}

	limit := o.cfg.BatchConcurrency
	if limit <= 0 {
		limit = 1
	}

	out := make([]BatchResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := o.injectRecorded(gctx, p, inj, sources, req.ElementID, req.SourceURL)
			out[i] = BatchResult{InjectRequest: req, Result: res}
			if err != nil {
				out[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()
	return out, ctx.Err()
}

func (o *Orchestrator) emitJobEvent(jobID string, ev JobEvent) {
	o.jobsMu.Lock()
	job, ok := o.jobs[jobID]
	o.jobsMu.Unlock()
	if !ok || job == nil || job.Events == nil {
		return
	}

	// Non-blocking send; drop if buffer is full.
	select {
	case job.Events <- ev:
	default:
	}
}

func (o *Orchestrator) setStatus(jobID string, status JobStatus, errMsg string, res *injector.Result) {
	o.jobsMu.Lock()
	if j, ok := o.jobs[jobID]; ok {
		j.Status = status
		j.Error = errMsg
		if res != nil {
			j.Result = res
		}
	}
	o.jobsMu.Unlock()

	evType := JobEventStatus
	if status == JobDone {
		evType = JobEventResult
	}
	o.emitJobEvent(jobID, JobEvent{
		JobID:  jobID,
		Type:   evType,
		Status: status,
		Error:  errMsg,
		Result: res,
	})
}

// StartInjectJob starts an asynchronous injection into page. The job is not
// bound to ctx's cancellation; use CancelJob or Close to stop it. Events
// receives pending, running and one terminal event, then is closed.
func (o *Orchestrator) StartInjectJob(ctx context.Context, page, elementID, sourceURL string) (*Job, error) {
	p, err := o.registry.GetPage(ctx, page)
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:        uuid.New().String(),
		Page:      p.Slug,
		ElementID: elementID,
		SourceURL: sourceURL,
		Status:    JobPending,
		StartedAt: time.Now().UTC(),
		Events:    make(chan JobEvent, 16),
	}
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	o.jobsMu.Lock()
	if o.closed {
		o.jobsMu.Unlock()
		cancel()
		return nil, ErrOrchestratorClosed
	}
	o.jobs[job.ID] = job
	o.jobCancels[job.ID] = cancel
	o.jobsWG.Add(1)
	o.jobsMu.Unlock()

	o.emitJobEvent(job.ID, JobEvent{JobID: job.ID, Type: JobEventStatus, Status: JobPending})

	go func() {
		defer o.jobsWG.Done()
		defer func() {
			cancel()
			o.jobsMu.Lock()
			if j, ok := o.jobs[job.ID]; ok {
				j.EndedAt = time.Now().UTC()
			}
			delete(o.jobCancels, job.ID)
			o.jobsMu.Unlock()

			// Close events channel so websocket loop can terminate cleanly
			close(job.Events)
		}()

		o.setStatus(job.ID, JobRunning, "", nil)

		res, err := o.InjectPage(jobCtx, p.ID, elementID, sourceURL)
		switch {
		case jobCtx.Err() != nil && err != nil:
			o.setStatus(job.ID, JobCanceled, jobCtx.Err().Error(), nil)
		case err != nil:
			o.setStatus(job.ID, JobFailed, err.Error(), res)
		default:
			o.setStatus(job.ID, JobDone, "", res)
		}
	}()

	snap := o.GetJob(job.ID)
	return snap, nil
}

// CancelJob cancels a running job and reports whether it was running.
func (o *Orchestrator) CancelJob(jobID string) bool {
	o.jobsMu.Lock()
	cancel := o.jobCancels[jobID]
	o.jobsMu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// GetJob returns a copy of the job, or nil when unknown. The copy shares
// the Events channel.
func (o *Orchestrator) GetJob(jobID string) *Job {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	j, ok := o.jobs[jobID]
	if !ok {
		return nil
	}
	cp := *j
	return &cp
}

// ListJobs returns copies of all known jobs, oldest first.
func (o *Orchestrator) ListJobs() []Job {
	o.jobsMu.Lock()
	out := make([]Job, 0, len(o.jobs))
	for _, j := range o.jobs {
		out = append(out, *j)
	}
	o.jobsMu.Unlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].StartedAt.Equal(out[b].StartedAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].StartedAt.Before(out[b].StartedAt)
	})
	return out
}

// Close cancels running jobs, waits for them to record their outcome and
// releases the web client.
func (o *Orchestrator) Close() error {
	o.jobsMu.Lock()
	if o.closed {
		o.jobsMu.Unlock()
		return nil
	}
	o.closed = true
	for _, cancel := range o.jobCancels {
		cancel()
	}
	o.jobsMu.Unlock()

	o.jobsWG.Wait()
	return o.wc.Close()
}
