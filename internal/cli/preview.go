package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raysh454/mdinject/internal/converter"
	"github.com/raysh454/mdinject/internal/fetcher"
	"github.com/raysh454/mdinject/internal/utils"
	"github.com/raysh454/mdinject/internal/webclient"
)

func newPreviewCmd(st *state) *cobra.Command {
	var (
		source string
		width  int
		plain  bool
		asHTML bool
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Fetch a Markdown source and render it in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := utils.Canonicalize(source, utils.CanonicalizeOptions{})
			if err != nil {
				return err
			}

			name := converter.NameTerminal
			if asHTML {
				name = converter.NameHTML
			}
			var conv converter.Converter
			if plain && !asHTML {
				conv, err = converter.NewPlainTerminal(width)
			} else {
				conv, err = converter.New(name, width)
			}
			if err != nil {
				return err
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
			doc, err := f.Fetch(cmd.Context(), src)
			if err != nil {
				return err
			}

			out, err := conv.Convert(doc.Body)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			_, err = st.stdout.Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Markdown source URL (required)")
	cmd.Flags().IntVar(&width, "width", 80, "word wrap width")
	cmd.Flags().BoolVar(&plain, "plain", false, "render without colors")
	cmd.Flags().BoolVar(&asHTML, "html", false, "print the HTML the injector would write")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}
