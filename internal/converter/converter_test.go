package converter_test

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/raysh454/mdinject/internal/converter"
)

func convert(t *testing.T, c converter.Converter, md string) string {
	t.Helper()
	out, err := c.Convert([]byte(md))
	if err != nil {
		t.Fatalf("Convert(%q): %v", md, err)
	}
	return string(out)
}

func TestHTML_Bold(t *testing.T) {
	t.Parallel()
	got := convert(t, converter.NewHTML(), "**bold**")
	if !strings.Contains(got, "<strong>bold</strong>") {
		t.Errorf("expected <strong>bold</strong>, got %q", got)
	}
}

func TestHTML_Table(t *testing.T) {
	t.Parallel()
	md := "| a | b |\n|---|---|\n| 1 | 2 |\n"
	got := convert(t, converter.NewHTML(), md)
	for _, want := range []string{"<table>", "<th>a</th>", "<td>2</td>"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %s in %q", want, got)
		}
	}
}

func TestHTML_Strikethrough(t *testing.T) {
	t.Parallel()
	got := convert(t, converter.NewHTML(), "~~struck~~")
	if !strings.Contains(got, "<del>struck</del>") {
		t.Errorf("expected <del>struck</del>, got %q", got)
	}
}

func TestHTML_EmptyInput(t *testing.T) {
	t.Parallel()
	got := convert(t, converter.NewHTML(), "")
	if strings.TrimSpace(got) != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestHTML_OnlyTablesAndStrikethrough(t *testing.T) {
	t.Parallel()
	c := converter.NewHTML()

	// Linkify is not enabled: bare URLs stay text.
	got := convert(t, c, "see https://example.com now")
	if strings.Contains(got, "<a ") {
		t.Errorf("unexpected autolink in %q", got)
	}

	// Task lists are not enabled.
	got = convert(t, c, "- [x] done\n")
	if strings.Contains(got, "<input") {
		t.Errorf("unexpected task list checkbox in %q", got)
	}
}

func TestHTML_PassesInlineHTML(t *testing.T) {
	t.Parallel()
	got := convert(t, converter.NewHTML(), "<span class=\"x\">hi</span>\n")
	if !strings.Contains(got, `<span class="x">hi</span>`) {
		t.Errorf("expected inline HTML to pass through, got %q", got)
	}
}

func TestHTML_Deterministic(t *testing.T) {
	t.Parallel()
	c := converter.NewHTML()
	md := "# Title\n\n| x |\n|---|\n| ~~y~~ |\n"
	if convert(t, c, md) != convert(t, c, md) {
		t.Fatal("same input produced different output")
	}
}

func TestHTML_ConcurrentUse(t *testing.T) {
	t.Parallel()
	c := converter.NewHTML()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := c.Convert([]byte("**x**"))
			if err != nil || !strings.Contains(string(out), "<strong>x</strong>") {
				t.Errorf("concurrent convert: %q, %v", out, err)
			}
		}()
	}
	wg.Wait()
}

func TestTerminal_RendersText(t *testing.T) {
	t.Parallel()
	c, err := converter.NewPlainTerminal(60)
	if err != nil {
		t.Fatalf("NewPlainTerminal: %v", err)
	}
	got := convert(t, c, "# Heading\n\nsome **bold** text")
	if !strings.Contains(got, "bold") || !strings.Contains(got, "Heading") {
		t.Errorf("unexpected terminal output %q", got)
	}
}

func TestNew_ByName(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"", "html", "HTML", "terminal"} {
		c, err := converter.New(name, 0)
		if err != nil || c == nil {
			t.Errorf("New(%q) = %v, %v", name, c, err)
		}
	}
	if _, err := converter.New("pdf", 0); err == nil {
		t.Error("expected error for unknown converter")
	}
}

func TestConverterFunc(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	var c converter.Converter = converter.ConverterFunc(func([]byte) ([]byte, error) { return nil, boom })
	if _, err := c.Convert(nil); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
