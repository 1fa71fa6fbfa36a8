package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raysh454/mdinject/internal/converter"
	"github.com/raysh454/mdinject/internal/document"
	"github.com/raysh454/mdinject/internal/fetcher"
	"github.com/raysh454/mdinject/internal/injector"
	"github.com/raysh454/mdinject/internal/webclient"
)

type injectOptions struct {
	page           string
	element        string
	source         string
	out            string
	baseURL        string
	emptyOnFailure bool
}

func newInjectCmd(st *state) *cobra.Command {
	opts := &injectOptions{}
	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Inject rendered Markdown into an element of a local HTML file",
		Long: `Parse the HTML file given by --page, fetch --source, render it and replace
the content of the element whose id is --element. The resulting document is
written to --out, or stdout. Nothing is written when the injection fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runInject(ctx, st, opts)
		},
	}

	cmd.Flags().StringVar(&opts.page, "page", "", "host HTML file (required)")
	cmd.Flags().StringVar(&opts.element, "element", "", "id of the element to fill (required)")
	cmd.Flags().StringVar(&opts.source, "source", "", "Markdown source URL (required)")
	cmd.Flags().StringVar(&opts.out, "out", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "base for a relative --source")
	cmd.Flags().BoolVar(&opts.emptyOnFailure, "empty-on-failure", false, "write an empty rendering when the fetch fails")
	_ = cmd.MarkFlagRequired("page")
	_ = cmd.MarkFlagRequired("element")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func runInject(ctx context.Context, st *state, opts *injectOptions) error {
	raw, err := os.ReadFile(opts.page)
	if err != nil {
		return fmt.Errorf("read page: %w", err)
	}
	doc, err := document.Parse(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	if !doc.Has(opts.element) {
		return fmt.Errorf("%w: %q (ids on page: %s)", document.ErrElementNotFound, opts.element, strings.Join(doc.IDs(), ", "))
	}

	wc, err := webclient.NewWebClient(st.cfg.WebClientCfg, st.logger)
	if err != nil {
		return err
	}
	defer wc.Close()

	f, err := fetcher.New(st.cfg.FetcherCfg, wc, st.logger)
	if err != nil {
		return err
	}

	cfg := st.cfg.InjectorCfg
	if opts.baseURL != "" {
		cfg.BaseURL = opts.baseURL
	}
	if opts.emptyOnFailure {
		cfg.EmptyOnFailure = true
	}
	inj, err := injector.New(cfg, f, converter.NewHTML(), doc, st.logger)
	if err != nil {
		return err
	}

	res, injErr := inj.Inject(ctx, opts.element, opts.source)
	if res == nil {
		return injErr
	}

	if err := writeDocument(doc, opts.out, st); err != nil {
		return err
	}
	fmt.Fprintf(st.stderr, "%s <- %s (%d bytes, +%d/-%d)\n",
		res.ElementID, res.SourceURL, res.MarkdownBytes, res.Changes.Added, res.Changes.Removed)
	return injErr
}

func writeDocument(doc *document.Document, out string, st *state) error {
	if out == "" {
		_, err := doc.WriteTo(st.stdout)
		return err
	}
	html, err := doc.HTML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
