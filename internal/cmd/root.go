// Package cmd provides the CLI command for slate.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/fsio"
)

// Format flags parse straight into format IDs.
var _ pflag.Value = (*format.ID)(nil)

// options holds the parsed command-line flags.
type options struct {
	output        string
	from          format.ID
	to            format.ID
	templatePath  string
	selectPath    string
	units         bool
	stripComments bool
	renderInput   bool
	diff          bool
	verbose       int
}

// NewRootCommand builds the slate command over fsys. Every invocation gets
// fresh flag state.
func NewRootCommand(fsys *fsio.FS) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "slate [input|-]",
		Short: "Convert structured data between serialization formats",
		Long: `slate converts a document from one serialization format to another
through a common value tree.

Formats are inferred from file extensions (after any .gz, .zst or .lz4
suffix) or given with --from and --to. Reading stdin requires --from; with
no output path the result goes to stdout, in the input format unless --to
says otherwise.

Formats: ` + strings.Join(format.Names(), ", ") + `

The systemd and quadlet outputs emit unit files from a mapping of sections.
With --units the top level maps unit or file names to their sections and
-o names a directory.`,
		Example: `  slate config.yaml -o config.toml
  cat data.json | slate --from json --to pretty-ron
  slate settings.json --select '["servers", 0]' --to yaml
  slate backup.yaml --to systemd --units -o ~/.config/systemd/user
  slate app.yaml -t app.conf.tmpl -o app.conf`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return run(cmd, fsys, opts, input)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "Output file (directory with --units); stdout when omitted")
	flags.VarP(&opts.from, "from", "f", "Input format (required for stdin)")
	flags.Var(&opts.to, "to", "Output format")
	flags.StringVarP(&opts.templatePath, "template", "t", "", "Render the data through a Go template file instead of a format")
	flags.StringVar(&opts.selectPath, "select", "", `Convert only the subtree at a JSON array path, e.g. '["a", 0]'`)
	flags.BoolVar(&opts.units, "units", false, "Treat the top level as multiple units (systemd and quadlet only)")
	flags.BoolVar(&opts.stripComments, "strip-comments", false, "Strip // and /* */ comments from JSON input")
	flags.BoolVar(&opts.renderInput, "render-input", false, "Render the input as a template (with .Env) before decoding")
	flags.BoolVar(&opts.diff, "diff", false, "Print a diff against the existing output instead of writing it")
	flags.CountVarP(&opts.verbose, "verbose", "v", "Log progress to stderr (repeat for debug)")

	return cmd
}

// Execute runs the root command against the host filesystem and exits
// non-zero on failure.
func Execute() {
	if err := NewRootCommand(fsio.OS()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "slate: %v\n", err)
		os.Exit(1)
	}
}
