package cli_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raysh454/mdinject/internal/cli"
	"github.com/raysh454/mdinject/internal/testutil"
)

func newSourceServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/a.md", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/markdown")
		_, _ = w.Write([]byte("# Title\n\n**bold** and ~~gone~~\n"))
	})
	mux.HandleFunc("/docs/missing.md", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func writePage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, []byte(testutil.HostPage), 0o644); err != nil {
		t.Fatalf("write page: %v", err)
	}
	return path
}

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := cli.Execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestInject_WritesDocumentToStdout(t *testing.T) {
	t.Parallel()
	ts := newSourceServer(t)
	page := writePage(t)

	code, out, errOut := run("inject", "--page", page, "--element", "content", "--source", ts.URL+"/docs/a.md")
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, errOut)
	}
	if !testutil.Contains(out, "<h1>Title</h1>", "<strong>bold</strong>", "<del>gone</del>", `id="nav"`) {
		t.Errorf("unexpected output: %s", out)
	}
	if strings.Contains(out, "placeholder") {
		t.Error("previous content not replaced")
	}
	if !strings.Contains(errOut, "content <- ") {
		t.Errorf("missing summary line: %s", errOut)
	}
}

func TestInject_RelativeSourceAndOutFile(t *testing.T) {
	t.Parallel()
	ts := newSourceServer(t)
	page := writePage(t)
	out := filepath.Join(t.TempDir(), "out.html")

	code, stdout, errOut := run("inject", "--page", page, "--element", "nav",
		"--base-url", ts.URL+"/docs/", "--source", "a.md", "--out", out)
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, errOut)
	}
	if stdout != "" {
		t.Errorf("expected nothing on stdout, got %q", stdout)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read out: %v", err)
	}
	if !strings.Contains(string(b), "<h1>Title</h1>") {
		t.Errorf("out file missing content: %s", b)
	}
}

func TestInject_FailureExitsNonZeroAndWritesNothing(t *testing.T) {
	t.Parallel()
	ts := newSourceServer(t)
	page := writePage(t)

	code, out, errOut := run("inject", "--page", page, "--element", "content", "--source", ts.URL+"/docs/missing.md")
	if code == 0 {
		t.Fatal("expected non-zero exit code")
	}
	if out != "" {
		t.Errorf("expected no document on failure, got %q", out)
	}
	if !strings.Contains(errOut, "404") {
		t.Errorf("error output should mention the status: %s", errOut)
	}
}

func TestInject_EmptyOnFailureWritesEmptyElement(t *testing.T) {
	t.Parallel()
	ts := newSourceServer(t)
	page := writePage(t)

	code, out, _ := run("inject", "--page", page, "--element", "content",
		"--source", ts.URL+"/docs/missing.md", "--empty-on-failure")
	if code == 0 {
		t.Fatal("expected non-zero exit code")
	}
	if !strings.Contains(out, `<main id="content"></main>`) {
		t.Errorf("expected emptied element, got %s", out)
	}
}

func TestInject_UnknownElement(t *testing.T) {
	t.Parallel()
	page := writePage(t)

	// The element is checked before anything is fetched.
	code, _, errOut := run("inject", "--page", page, "--element", "sidebar", "--source", "http://127.0.0.1:1/docs/a.md")
	if code == 0 {
		t.Fatal("expected non-zero exit code")
	}
	if !testutil.Contains(errOut, "element not found", `"sidebar"`, "content") {
		t.Errorf("unexpected error output: %s", errOut)
	}
}

func TestInject_RequiresFlags(t *testing.T) {
	t.Parallel()
	code, _, errOut := run("inject", "--element", "content")
	if code == 0 {
		t.Fatal("expected non-zero exit code")
	}
	if !strings.Contains(errOut, "required flag") {
		t.Errorf("unexpected error output: %s", errOut)
	}
}

func TestPreview_PlainAndHTML(t *testing.T) {
	t.Parallel()
	ts := newSourceServer(t)

	code, out, errOut := run("preview", "--plain", "--source", ts.URL+"/docs/a.md")
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, errOut)
	}
	if !strings.Contains(out, "Title") || strings.Contains(out, "<h1>") {
		t.Errorf("unexpected terminal rendering: %q", out)
	}

	code, out, _ = run("preview", "--html", "--source", ts.URL+"/docs/a.md")
	if code != 0 || !strings.Contains(out, "<h1>Title</h1>") {
		t.Errorf("unexpected html preview (%d): %q", code, out)
	}
}

func TestRoot_BadConfigFile(t *testing.T) {
	t.Parallel()
	cfg := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfg, []byte("batch_concurrency = 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	code, _, errOut := run("--config", cfg, "preview", "--source", "https://example.com/a.md")
	if code == 0 {
		t.Fatal("expected non-zero exit code")
	}
	if !strings.Contains(errOut, "batch_concurrency") {
		t.Errorf("unexpected error output: %s", errOut)
	}
}
