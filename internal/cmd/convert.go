package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/thirteen37/slate/internal/compress"
	"github.com/thirteen37/slate/internal/config"
	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/format/registry"
	"github.com/thirteen37/slate/internal/fsio"
	"github.com/thirteen37/slate/internal/logging"
	"github.com/thirteen37/slate/internal/path"
	"github.com/thirteen37/slate/internal/template"
	"github.com/thirteen37/slate/internal/unit"
	"github.com/thirteen37/slate/internal/value"
)

// output is one file the invocation will produce. An empty path means
// stdout.
type output struct {
	path   string
	data   []byte
	binary bool
}

// run performs one conversion. Every output is fully computed before the
// first byte is written.
func run(cmd *cobra.Command, fsys *fsio.FS, opts *options, input string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cmd, cfg, opts.verbose)

	stripComments := opts.stripComments || cfg.Options.StripComments
	if err := validate(opts); err != nil {
		return err
	}

	tree, inID, err := readInput(cmd, fsys, opts, input, stripComments)
	if err != nil {
		return err
	}

	if opts.selectPath != "" {
		p, err := path.ParseArrayPath(opts.selectPath)
		if err != nil {
			return err
		}
		if tree, err = path.Lookup(tree, p); err != nil {
			return err
		}
		logging.Debug().Str("path", p.String()).Str("kind", value.KindOf(tree).String()).Msg("selected subtree")
	}

	outputs, err := render(fsys, opts, cfg, input, tree, inID)
	if err != nil {
		return err
	}

	if opts.diff {
		return printDiffs(cmd.OutOrStdout(), fsys, outputs)
	}
	return writeOutputs(cmd.OutOrStdout(), fsys, outputs)
}

func validate(opts *options) error {
	if opts.templatePath != "" && (opts.to != format.Unknown || opts.units) {
		return errors.New("--template replaces the output format and cannot be combined with --to or --units")
	}
	if opts.units && !opts.to.IsSpecial() {
		return errors.New("--units requires --to systemd or --to quadlet")
	}
	if opts.diff && opts.output == "" {
		return errors.New("--diff needs an output path to compare against")
	}
	return nil
}

func setupLogging(cmd *cobra.Command, cfg *config.Config, verbose int) {
	level := logging.ParseLevel(cfg.LogLevel)
	switch {
	case verbose >= 2:
		level = logging.DebugLevel
	case verbose == 1:
		level = logging.InfoLevel
	}
	logging.Init(logging.Config{Level: level, Output: cmd.ErrOrStderr(), Pretty: true})
}

// readInput reads, decompresses, optionally pre-renders and decodes the
// input document.
func readInput(cmd *cobra.Command, fsys *fsio.FS, opts *options, input string, stripComments bool) (value.Value, format.ID, error) {
	var (
		data []byte
		err  error
	)
	if input == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, format.Unknown, &fsio.IOError{Op: "read", Path: "stdin", Err: err}
		}
	} else {
		data, err = fsys.ReadFile(input)
		if err != nil {
			return nil, format.Unknown, err
		}
	}

	codec, stripped := compress.Detect(input)
	if data, err = codec.Decompress(data); err != nil {
		return nil, format.Unknown, fmt.Errorf("%s: %w", input, err)
	}

	inID, err := format.ResolveInput(opts.from, stripped)
	if err != nil {
		return nil, format.Unknown, err
	}
	logging.Info().Str("input", input).Str("format", inID.String()).Str("compression", codec.String()).Msg("reading input")

	if opts.renderInput {
		rendered, err := template.RenderInput(filepath.Base(input), string(data))
		if err != nil {
			return nil, format.Unknown, err
		}
		logging.Debug().Str("rendered", rendered).Msg("pre-rendered input")
		data = []byte(rendered)
	}

	dec, err := registry.Lookup(inID)
	if err != nil {
		return nil, format.Unknown, err
	}
	tree, err := dec.Decode(data, format.DecodeOptions{StripComments: stripComments})
	if err != nil {
		return nil, format.Unknown, fmt.Errorf("%s: %w", input, err)
	}
	return tree, inID, nil
}

// render turns the tree into the outputs of the invocation: a template
// rendering, a set of unit files, or one encoded document.
func render(fsys *fsio.FS, opts *options, cfg *config.Config, input string, tree value.Value, inID format.ID) ([]output, error) {
	if opts.templatePath != "" {
		src, err := fsys.ReadFile(opts.templatePath)
		if err != nil {
			return nil, err
		}
		text, err := template.RenderTree(filepath.Base(opts.templatePath), string(src), tree)
		if err != nil {
			return nil, err
		}
		return compressOutput(output{path: opts.output, data: []byte(text)})
	}

	target, err := targetPath(fsys, opts, input, inID)
	if err != nil {
		return nil, err
	}
	codec, stripped := compress.Detect(target)
	outID, err := format.ResolveOutput(opts.to, stripped, inID)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("output", target).Str("format", outID.String()).Str("compression", codec.String()).Msg("writing output")

	if outID.IsSpecial() {
		return renderUnits(opts, target, outID, tree)
	}

	enc, err := registry.Lookup(outID)
	if err != nil {
		return nil, err
	}
	data, err := enc.Encode(tree, format.EncodeOptions{Indent: cfg.Options.Indent})
	if err != nil {
		return nil, err
	}
	return compressOutput(output{path: target, data: data, binary: outID.IsBinary()})
}

// targetPath returns the output path. When -o names an existing directory
// the file inside it is named after the input, with the canonical extension
// of the output format.
func targetPath(fsys *fsio.FS, opts *options, input string, inID format.ID) (string, error) {
	if opts.output == "" || opts.output == "-" || opts.units {
		return opts.output, nil
	}
	isDir, err := fsys.IsDir(opts.output)
	if err != nil || !isDir {
		return opts.output, err
	}
	if input == "-" {
		return "", fmt.Errorf("%s is a directory and stdin has no name to write under", opts.output)
	}

	outID, err := format.ResolveOutput(opts.to, "", inID)
	if err != nil {
		return "", err
	}
	ext := outID.Extension()
	if ext == "" {
		return "", fmt.Errorf("%s is a directory: %s output needs --units to write into it", opts.output, outID)
	}
	_, stripped := compress.Detect(input)
	base := filepath.Base(stripped)
	return filepath.Join(opts.output, strings.TrimSuffix(base, filepath.Ext(base))+"."+ext), nil
}

func compressOutput(out output) ([]output, error) {
	codec, _ := compress.Detect(out.path)
	if codec == compress.None {
		return []output{out}, nil
	}
	data, err := codec.Compress(out.data)
	if err != nil {
		return nil, err
	}
	return []output{{path: out.path, data: data, binary: true}}, nil
}

func renderUnits(opts *options, target string, id format.ID, tree value.Value) ([]output, error) {
	dialect := unit.Systemd
	if id == format.Quadlet {
		dialect = unit.Quadlet
	}

	if !opts.units {
		data, err := dialect.Emit(tree)
		if err != nil {
			return nil, err
		}
		return []output{{path: target, data: data}}, nil
	}

	files, err := dialect.Plan(tree)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &unit.StructureError{Dialect: dialect.Name, Msg: "no units to write"}
	}
	if opts.output == "" {
		return []output{{data: unit.Bundle(files)}}, nil
	}

	outputs := make([]output, len(files))
	for i, f := range files {
		outputs[i] = output{path: filepath.Join(opts.output, f.Name), data: f.Content}
	}
	return outputs, nil
}

func writeOutputs(stdout io.Writer, fsys *fsio.FS, outputs []output) error {
	for _, out := range outputs {
		if out.path == "" || out.path == "-" {
			data := out.data
			if !out.binary && len(data) > 0 && data[len(data)-1] != '\n' {
				data = append(data, '\n')
			}
			if _, err := stdout.Write(data); err != nil {
				return &fsio.IOError{Op: "write", Path: "stdout", Err: err}
			}
			continue
		}

		if dir := filepath.Dir(out.path); dir != "." {
			if err := fsys.MkdirAll(dir); err != nil {
				return err
			}
		}
		if err := fsys.WriteFile(out.path, out.data); err != nil {
			return err
		}
		logging.Info().Str("path", out.path).Int("bytes", len(out.data)).Msg("wrote file")
	}
	return nil
}

func printDiffs(stdout io.Writer, fsys *fsio.FS, outputs []output) error {
	for _, out := range outputs {
		if out.binary {
			return fmt.Errorf("cannot diff binary output %s", out.path)
		}
		diff, err := fsys.DiffFile(out.path, out.data)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(stdout, diff); err != nil {
			return &fsio.IOError{Op: "write", Path: "stdout", Err: err}
		}
	}
	return nil
}
