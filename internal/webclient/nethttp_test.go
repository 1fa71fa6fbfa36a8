package webclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/mdinject/internal/logging"
	"github.com/raysh454/mdinject/internal/webclient"
)

func newClient(t *testing.T, cfg webclient.Config, hc *http.Client) *webclient.NetHTTPClient {
	t.Helper()
	client, err := webclient.NewNetHTTPClient(cfg, logging.NopLogger{}, hc)
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// ─── Construction ──────────────────────────────────────────────────────

func TestNewNetHTTPClient_DefaultTimeout(t *testing.T) {
	t.Parallel()
	client := newClient(t, webclient.Config{}, nil)
	if got := client.HTTPClient().Timeout; got != 30*time.Second {
		t.Errorf("expected 30s default timeout, got %s", got)
	}
}

func TestNewNetHTTPClient_ConfiguredTimeout(t *testing.T) {
	t.Parallel()
	client := newClient(t, webclient.Config{Timeout: 5 * time.Second}, nil)
	if got := client.HTTPClient().Timeout; got != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", got)
	}
}

// ─── Do ────────────────────────────────────────────────────────────────

func TestNetHTTPClient_Get_ReturnsMarkdownBody(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, "# Title\n\n**bold**")
	}))
	defer ts.Close()

	client := newClient(t, webclient.Config{}, ts.Client())
	resp, err := client.Get(context.Background(), ts.URL+"/README.md")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if string(resp.Body) != "# Title\n\n**bold**" {
		t.Errorf("unexpected body %q", resp.Body)
	}
	if !strings.HasPrefix(resp.ContentType(), "text/markdown") {
		t.Errorf("unexpected content type %q", resp.ContentType())
	}
	if resp.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}

func TestNetHTTPClient_Do_SendsDefaultAcceptAndUserAgent(t *testing.T) {
	t.Parallel()
	var accept, ua string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		ua = r.Header.Get("User-Agent")
	}))
	defer ts.Close()

	client := newClient(t, webclient.Config{UserAgent: "mdinject-test"}, ts.Client())
	if _, err := client.Get(context.Background(), ts.URL); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if accept != webclient.DefaultAccept {
		t.Errorf("Accept = %q", accept)
	}
	if ua != "mdinject-test" {
		t.Errorf("User-Agent = %q", ua)
	}
}

func TestNetHTTPClient_Do_ExplicitHeadersWin(t *testing.T) {
	t.Parallel()
	var accept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
	}))
	defer ts.Close()

	client := newClient(t, webclient.Config{}, ts.Client())
	hdrs := http.Header{}
	hdrs.Set("Accept", "text/plain")
	_, err := client.Do(context.Background(), &webclient.Request{URL: ts.URL, Headers: hdrs})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if accept != "text/plain" {
		t.Errorf("Accept = %q", accept)
	}
}

func TestNetHTTPClient_Do_PropagatesStatusCode(t *testing.T) {
	t.Parallel()
	for _, code := range []int{200, 404, 500} {
		code := code
		t.Run(http.StatusText(code), func(t *testing.T) {
			t.Parallel()
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(code)
			}))
			defer ts.Close()

			client := newClient(t, webclient.Config{}, ts.Client())
			resp, err := client.Get(context.Background(), ts.URL)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if resp.StatusCode != code {
				t.Errorf("expected %d, got %d", code, resp.StatusCode)
			}
		})
	}
}

func TestNetHTTPClient_Do_NilRequest_ReturnsError(t *testing.T) {
	t.Parallel()
	client := newClient(t, webclient.Config{}, nil)
	if _, err := client.Do(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil request")
	}
}

func TestNetHTTPClient_Do_ConnectionRefused_ReturnsError(t *testing.T) {
	t.Parallel()
	client := newClient(t, webclient.Config{}, &http.Client{Timeout: time.Second})
	if _, err := client.Get(context.Background(), "http://127.0.0.1:1/doc.md"); err == nil {
		t.Fatal("expected error for connection refused")
	}
}

func TestNetHTTPClient_Do_ContextCanceled_ReturnsError(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	client := newClient(t, webclient.Config{}, ts.Client())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Get(ctx, ts.URL); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
