package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/mdinject/internal/registry"
	"github.com/raysh454/mdinject/internal/testutil"
)

// newTestOrchestrator creates an Orchestrator over a TempDir registry and the
// given dummy web client.
func newTestOrchestrator(t *testing.T, wc *testutil.DummyWebClient) (*Orchestrator, *registry.Registry) {
	t.Helper()

	dir := t.TempDir()
	db, err := registry.Open(filepath.Join(dir, "registry.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := &testutil.DummyLogger{}
	reg, err := registry.NewRegistry(db, logger)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	cfg := DefaultConfig()
	cfg.StorageRoot = dir
	o, err := NewOrchestrator(cfg, reg, wc, logger)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	t.Cleanup(func() { o.Close() })
	return o, reg
}

func createHomePage(t *testing.T, o *Orchestrator) *registry.Page {
	t.Helper()
	p, err := o.CreatePage(context.Background(), "home", "Home", "https://src.test/docs/", testutil.HostPage)
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	return p
}

func waitJob(t *testing.T, o *Orchestrator, job *Job) []JobEvent {
	t.Helper()
	var events []JobEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-job.Events:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("job %s did not finish", job.ID)
		}
	}
}

// ─── Construction ──────────────────────────────────────────────────────

func TestNewOrchestrator_NilRegistry(t *testing.T) {
	t.Parallel()
	if _, err := NewOrchestrator(nil, nil, &testutil.DummyWebClient{}, nil); err == nil {
		t.Fatal("expected error for nil registry")
	}
}

// ─── Synchronous injection ─────────────────────────────────────────────

func TestInjectPage_WritesStoredPageAndRecords(t *testing.T) {
	t.Parallel()
	wc := &testutil.DummyWebClient{Bodies: map[string]string{
		"https://src.test/docs/intro.md": "# Intro\n\n**bold**",
	}}
	o, reg := newTestOrchestrator(t, wc)
	p := createHomePage(t, o)
	ctx := context.Background()

	res, err := o.InjectPage(ctx, "home", "content", "intro.md")
	if err != nil {
		t.Fatalf("InjectPage: %v", err)
	}
	if res.SourceURL != "https://src.test/docs/intro.md" {
		t.Errorf("source url = %q", res.SourceURL)
	}
	if !res.Changed {
		t.Error("expected first injection to change the page")
	}

	stored, err := reg.GetPage(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if !testutil.Contains(stored.HTML, "<h1>Intro</h1>", "<strong>bold</strong>") {
		t.Errorf("stored html missing injected content: %s", stored.HTML)
	}

	log, err := o.ListInjections(ctx, "home", 10)
	if err != nil {
		t.Fatalf("ListInjections: %v", err)
	}
	if len(log) != 1 || log[0].Status != registry.InjectionDone || log[0].StatusCode != 200 {
		t.Fatalf("unexpected injection log %+v", log)
	}
	if !strings.Contains(log[0].ChangesJSON, "added") {
		t.Errorf("changes not recorded: %s", log[0].ChangesJSON)
	}
}

func TestInjectPage_AlwaysRendersHTML(t *testing.T) {
	t.Parallel()
	wc := &testutil.DummyWebClient{Bodies: map[string]string{
		"https://src.test/docs/a.md": "**bold** ~~gone~~\n\n| a |\n|---|\n| 1 |\n",
	}}
	o, reg := newTestOrchestrator(t, wc)
	p := createHomePage(t, o)

	if _, err := o.InjectPage(context.Background(), "home", "content", "a.md"); err != nil {
		t.Fatalf("InjectPage: %v", err)
	}
	stored, _ := reg.GetPage(context.Background(), p.ID)
	if !testutil.Contains(stored.HTML, "<strong>bold</strong>", "<del>gone</del>", "<table>") {
		t.Errorf("stored html is not the HTML rendering: %s", stored.HTML)
	}
}

func TestInjectPage_RepeatReportsNoChange(t *testing.T) {
	t.Parallel()
	wc := &testutil.DummyWebClient{Bodies: map[string]string{
		"https://src.test/docs/q.md": "say \"hi\"\n\n---\n\nafter",
	}}
	o, _ := newTestOrchestrator(t, wc)
	createHomePage(t, o)
	ctx := context.Background()

	if _, err := o.InjectPage(ctx, "home", "content", "q.md"); err != nil {
		t.Fatalf("first InjectPage: %v", err)
	}
	second, err := o.InjectPage(ctx, "home", "content", "q.md")
	if err != nil {
		t.Fatalf("second InjectPage: %v", err)
	}
	if second.Changed || second.Changes.Added != 0 || second.Changes.Removed != 0 {
		t.Errorf("repeat injection reported a change: %+v", second.Changes)
	}
	log, _ := o.ListInjections(ctx, "home", 1)
	if len(log) != 1 || log[0].Changed {
		t.Errorf("latest log entry should be unchanged: %+v", log)
	}
}

func TestInjectPage_FailureRecordedAndPageUntouched(t *testing.T) {
	t.Parallel()
	wc := &testutil.DummyWebClient{Statuses: map[string]int{"https://src.test/docs/gone.md": 404}}
	o, reg := newTestOrchestrator(t, wc)
	p := createHomePage(t, o)
	ctx := context.Background()

	if _, err := o.InjectPage(ctx, "home", "content", "gone.md"); err == nil {
		t.Fatal("expected error for 404 source")
	}

	stored, _ := reg.GetPage(ctx, p.ID)
	if stored.HTML != testutil.HostPage {
		t.Error("page changed after failed injection")
	}
	log, _ := o.ListInjections(ctx, "home", 10)
	if len(log) != 1 || log[0].Status != registry.InjectionFailed || log[0].StatusCode != 404 || log[0].Error == "" {
		t.Fatalf("unexpected injection log %+v", log)
	}
}

func TestInjectPage_UnknownPage(t *testing.T) {
	t.Parallel()
	o, _ := newTestOrchestrator(t, &testutil.DummyWebClient{})

	if _, err := o.InjectPage(context.Background(), "missing", "content", "https://src.test/a.md"); !errors.Is(err, registry.ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound, got %v", err)
	}
}

func TestInjectBatch_IndependentItems(t *testing.T) {
	t.Parallel()
	wc := &testutil.DummyWebClient{
		Bodies:   map[string]string{"https://src.test/docs/a.md": "A", "https://src.test/docs/n.md": "N"},
		FailURLs: map[string]bool{"https://src.test/docs/bad.md": true},
	}
	o, reg := newTestOrchestrator(t, wc)
	p := createHomePage(t, o)
	ctx := context.Background()

	results, err := o.InjectBatch(ctx, "home", []InjectRequest{
		{ElementID: "content", SourceURL: "a.md"},
		{ElementID: "nav", SourceURL: "n.md"},
		{ElementID: "missing", SourceURL: "bad.md"},
	})
	if err != nil {
		t.Fatalf("InjectBatch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Error != "" || results[1].Error != "" {
		t.Errorf("unexpected errors: %+v", results)
	}
	if results[2].Error == "" {
		t.Error("expected error for failing item")
	}

	stored, _ := reg.GetPage(ctx, p.ID)
	if !testutil.Contains(stored.HTML, "<p>A</p>", "<p>N</p>") {
		t.Errorf("batch writes missing: %s", stored.HTML)
	}
}

func TestInjectBatch_FetchesSharedSourceOnce(t *testing.T) {
	t.Parallel()
	wc := &testutil.DummyWebClient{Bodies: map[string]string{"https://src.test/docs/shared.md": "S"}}
	o, reg := newTestOrchestrator(t, wc)
	p := createHomePage(t, o)
	ctx := context.Background()

	results, err := o.InjectBatch(ctx, "home", []InjectRequest{
		{ElementID: "content", SourceURL: "shared.md"},
		{ElementID: "nav", SourceURL: "https://src.test/docs/shared.md"},
		{ElementID: "content", SourceURL: "http://%zz"},
	})
	if err != nil {
		t.Fatalf("InjectBatch: %v", err)
	}
	if results[0].Error != "" || results[1].Error != "" || results[2].Error == "" {
		t.Errorf("unexpected results: %+v", results)
	}
	if n := wc.RequestCount(); n != 1 {
		t.Errorf("expected one fetch for the shared source, got %d", n)
	}
	stored, _ := reg.GetPage(ctx, p.ID)
	if strings.Count(stored.HTML, "<p>S</p>") != 2 {
		t.Errorf("shared source not written to both elements: %s", stored.HTML)
	}
}

// ─── Job management ────────────────────────────────────────────────────

func TestGetJob_ReturnsNilForUnknown(t *testing.T) {
	t.Parallel()
	o, _ := newTestOrchestrator(t, &testutil.DummyWebClient{})

	if j := o.GetJob("nonexistent"); j != nil {
		t.Errorf("expected nil for unknown job, got %+v", j)
	}
	if len(o.ListJobs()) != 0 {
		t.Error("expected no jobs")
	}
	if o.CancelJob("does-not-exist") {
		t.Error("CancelJob reported success for unknown job")
	}
}

func TestStartInjectJob_TransitionsToDone(t *testing.T) {
	t.Parallel()
	wc := &testutil.DummyWebClient{Bodies: map[string]string{"https://src.test/docs/a.md": "~~old~~"}}
	o, _ := newTestOrchestrator(t, wc)
	createHomePage(t, o)

	job, err := o.StartInjectJob(context.Background(), "home", "content", "a.md")
	if err != nil {
		t.Fatalf("StartInjectJob: %v", err)
	}
	if job.ID == "" || job.Page != "home" {
		t.Fatalf("unexpected job %+v", job)
	}

	events := waitJob(t, o, job)
	if len(events) < 3 {
		t.Fatalf("expected pending, running and result events, got %+v", events)
	}
	if events[0].Status != JobPending || events[1].Status != JobRunning {
		t.Errorf("unexpected event order %+v", events)
	}
	last := events[len(events)-1]
	if last.Type != JobEventResult || last.Result == nil || !strings.Contains(last.Result.HTML, "<del>old</del>") {
		t.Errorf("unexpected result event %+v", last)
	}

	final := o.GetJob(job.ID)
	if final.Status != JobDone || final.EndedAt.IsZero() {
		t.Errorf("unexpected final job %+v", final)
	}
	if jobs := o.ListJobs(); len(jobs) != 1 {
		t.Errorf("expected 1 job, got %d", len(jobs))
	}
}

func TestStartInjectJob_FailureStatus(t *testing.T) {
	t.Parallel()
	wc := &testutil.DummyWebClient{FailURLs: map[string]bool{"https://src.test/docs/a.md": true}}
	o, _ := newTestOrchestrator(t, wc)
	createHomePage(t, o)

	job, err := o.StartInjectJob(context.Background(), "home", "content", "a.md")
	if err != nil {
		t.Fatalf("StartInjectJob: %v", err)
	}
	waitJob(t, o, job)

	if final := o.GetJob(job.ID); final.Status != JobFailed || final.Error == "" {
		t.Errorf("expected failed job, got %+v", final)
	}
}

func TestStartInjectJob_CancelJobTransitionsToCanceled(t *testing.T) {
	t.Parallel()
	wc := &testutil.DummyWebClient{Gate: make(chan struct{})}
	o, _ := newTestOrchestrator(t, wc)
	createHomePage(t, o)

	job, err := o.StartInjectJob(context.Background(), "home", "content", "a.md")
	if err != nil {
		t.Fatalf("StartInjectJob: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for wc.RequestCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !o.CancelJob(job.ID) {
		t.Fatal("CancelJob reported job not running")
	}
	waitJob(t, o, job)

	if final := o.GetJob(job.ID); final.Status != JobCanceled {
		t.Errorf("expected canceled job, got %+v", final)
	}
	log, _ := o.ListInjections(context.Background(), "home", 10)
	if len(log) != 1 || log[0].Status != registry.InjectionCanceled {
		t.Errorf("unexpected injection log %+v", log)
	}
}

func TestStartInjectJob_UnknownPage(t *testing.T) {
	t.Parallel()
	o, _ := newTestOrchestrator(t, &testutil.DummyWebClient{})

	if _, err := o.StartInjectJob(context.Background(), "nope", "content", "https://src.test/a.md"); !errors.Is(err, registry.ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound, got %v", err)
	}
}

func TestStartInjectJob_RejectsWhenClosed(t *testing.T) {
	t.Parallel()
	o, _ := newTestOrchestrator(t, &testutil.DummyWebClient{})
	createHomePage(t, o)
	o.Close()

	if _, err := o.StartInjectJob(context.Background(), "home", "content", "a.md"); !errors.Is(err, ErrOrchestratorClosed) {
		t.Fatalf("expected ErrOrchestratorClosed, got %v", err)
	}
}

func TestClose_WaitsForRunningJobs(t *testing.T) {
	t.Parallel()
	wc := &testutil.DummyWebClient{Gate: make(chan struct{})}
	o, _ := newTestOrchestrator(t, wc)
	createHomePage(t, o)

	job, err := o.StartInjectJob(context.Background(), "home", "content", "a.md")
	if err != nil {
		t.Fatalf("StartInjectJob: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for wc.RequestCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := o.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if final := o.GetJob(job.ID); final.Status != JobCanceled || final.EndedAt.IsZero() {
		t.Errorf("job not finished when Close returned: %+v", final)
	}
	log, err := o.ListInjections(context.Background(), "home", 10)
	if err != nil {
		t.Fatalf("ListInjections: %v", err)
	}
	if len(log) != 1 || log[0].Status != registry.InjectionCanceled {
		t.Errorf("canceled job not recorded before Close returned: %+v", log)
	}
}
