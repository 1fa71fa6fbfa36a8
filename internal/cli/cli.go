// Package cli contains the mdinject command tree.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/raysh454/mdinject/internal/app"
	"github.com/raysh454/mdinject/internal/logging"
)

// state is shared by the subcommands of one root command.
type state struct {
	cfgFile string
	cfg     *app.Config
	logger  logging.Logger
	stdout  io.Writer
	stderr  io.Writer
}

// NewRootCmd builds the command tree. Output goes to stdout and logs and
// diagnostics to stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	st := &state{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "mdinject",
		Short: "Render remote Markdown into elements of an HTML page",
		Long: `mdinject fetches a Markdown document, converts it to HTML (tables and
strikethrough enabled) and writes it as the content of one element of a host
page.

Example usage:
  mdinject inject --page index.html --element content --source https://example.com/README.md
  mdinject preview --source https://example.com/README.md
  mdinject serve`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.initConfig()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&st.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/mdinject/config.toml)")

	root.AddCommand(
		newInjectCmd(st),
		newPreviewCmd(st),
		newServeCmd(st),
	)
	return root
}

// Execute runs the command tree against args and returns the exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

// initConfig reads in config file and ENV variables if set.
func (st *state) initConfig() error {
	v := viper.New()
	if st.cfgFile != "" {
		v.SetConfigFile(st.cfgFile)
	}
	cfg, err := app.LoadConfig(v)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	st.cfg = cfg
	st.logger = logging.NewLogger(st.stderr, "cli", logging.ParseLevel(cfg.LogLevel))
	st.logger.Debug("configuration loaded",
		logging.Field{Key: "config_file", Value: v.ConfigFileUsed()},
		logging.Field{Key: "webclient", Value: string(cfg.WebClientCfg.Client)})
	return nil
}
