// Package template renders text/template sources against a value tree.
package template

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/format/json"
	"github.com/thirteen37/slate/internal/format/toml"
	"github.com/thirteen37/slate/internal/format/yaml"
	"github.com/thirteen37/slate/internal/value"
)

// Error is returned when a template fails to parse or execute. Nothing has
// been written when it is returned.
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("template %s: %v", e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Funcs returns the function map available to every template: sprig's text
// functions plus toJson, toYaml and toToml, which encode their argument with
// the matching format handler. Go maps reaching the helpers are written with
// sorted keys.
func Funcs() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["toJson"] = encodeWith(json.New())
	funcs["toYaml"] = encodeWith(yaml.New())
	funcs["toToml"] = encodeWith(toml.New())
	return funcs
}

func encodeWith(codec format.Codec) func(any) (string, error) {
	return func(x any) (string, error) {
		v, err := value.FromNative(x)
		if err != nil {
			return "", err
		}
		out, err := codec.Encode(v, format.EncodeOptions{})
		if err != nil {
			return "", err
		}
		return strings.TrimSuffix(string(out), "\n"), nil
	}
}

// Render parses src and executes it with data as the context. Missing map
// keys are errors rather than "<no value>". A nil funcs uses Funcs().
func Render(name, src string, data any, funcs template.FuncMap) (string, error) {
	if funcs == nil {
		funcs = Funcs()
	}

	tmpl, err := template.New(name).Option("missingkey=error").Funcs(funcs).Parse(src)
	if err != nil {
		return "", &Error{Name: name, Err: err}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", &Error{Name: name, Err: err}
	}
	return buf.String(), nil
}

// RenderTree renders src with the tree, converted to plain Go values, as
// the context: {{ .server.host }} reads a nested mapping entry.
func RenderTree(name, src string, tree value.Value) (string, error) {
	return Render(name, src, value.ToNative(tree), nil)
}

// RenderInput renders raw input text before it is decoded. The context holds
// the process environment under .Env.
func RenderInput(name, src string) (string, error) {
	return Render(name, src, map[string]any{"Env": envMap()}, nil)
}

// envMap returns environment variables as a map.
func envMap() map[string]string {
	env := make(map[string]string)
	for _, e := range os.Environ() {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) == 2 {
			env[parts[0]] = parts[1]
		}
	}
	return env
}
