// Package unit emits systemd unit files and Podman Quadlet files from a
// value tree of sections.
//
// The tree is a mapping of section names to mappings of keys. Each key is
// written as Key=Value in insertion order; a sequence repeats its key once
// per element.
package unit

import (
	"fmt"
	"strings"

	"github.com/thirteen37/slate/internal/logging"
	"github.com/thirteen37/slate/internal/value"
)

// StructureError reports a tree whose shape does not fit a unit file.
type StructureError struct {
	Dialect string
	Path    []string
	Msg     string
}

func (e *StructureError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("%s: %s", e.Dialect, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Dialect, strings.Join(e.Path, "."), e.Msg)
}

// Dialect is a unit file convention: its name and the sections it knows.
type Dialect struct {
	Name     string
	Sections []string

	// Strict rejects sections that are neither known nor X- extensions;
	// otherwise they are logged and emitted.
	Strict bool
}

// Systemd accepts any section and warns about the ones systemd does not
// define.
var Systemd = &Dialect{
	Name: "systemd",
	Sections: []string{
		"Unit", "Install", "Service", "Socket", "Mount", "Automount",
		"Swap", "Path", "Timer", "Slice", "Scope",
	},
}

// Quadlet only accepts the sections Podman's generator reads.
var Quadlet = &Dialect{
	Name: "quadlet",
	Sections: []string{
		"Unit", "Install", "Service", "Container", "Pod", "Volume",
		"Network", "Kube", "Image", "Build", "Artifact", "Quadlet",
	},
	Strict: true,
}

func (d *Dialect) known(section string) bool {
	if strings.HasPrefix(section, "X-") {
		return true
	}
	for _, s := range d.Sections {
		if s == section {
			return true
		}
	}
	return false
}

func (d *Dialect) errorf(path []string, msg string, args ...any) error {
	return &StructureError{Dialect: d.Name, Path: path, Msg: fmt.Sprintf(msg, args...)}
}

// Emit renders v as a unit file. Sections are separated by one blank line
// and the output ends with a newline.
func (d *Dialect) Emit(v value.Value) ([]byte, error) {
	top, ok := v.(*value.Mapping)
	if !ok {
		return nil, d.errorf(nil, "top level must be a mapping of sections, got %s", value.KindOf(v))
	}

	var sb strings.Builder
	for i, e := range top.Entries() {
		name := value.KeyString(e.Key)
		if err := d.checkSection(name); err != nil {
			return nil, err
		}
		section, ok := e.Value.(*value.Mapping)
		if !ok {
			return nil, d.errorf([]string{name}, "section must be a mapping, got %s", value.KindOf(e.Value))
		}

		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "[%s]\n", name)
		for _, entry := range section.Entries() {
			if err := d.writeEntry(&sb, name, entry); err != nil {
				return nil, err
			}
		}
	}
	return []byte(sb.String()), nil
}

func (d *Dialect) checkSection(name string) error {
	if name == "" || strings.ContainsAny(name, "[]\n") {
		return d.errorf([]string{name}, "invalid section name %q", name)
	}
	if d.known(name) {
		return nil
	}
	if d.Strict {
		return d.errorf([]string{name}, "unknown section (known: %s, or X- prefixed)", strings.Join(d.Sections, ", "))
	}
	logging.Warn().Str("dialect", d.Name).Str("section", name).Msg("unknown section")
	return nil
}

func (d *Dialect) writeEntry(sb *strings.Builder, section string, e value.Entry) error {
	key := value.KeyString(e.Key)
	path := []string{section, key}
	if key == "" || strings.ContainsAny(key, "=\n") {
		return d.errorf(path, "invalid key %q", key)
	}

	switch val := e.Value.(type) {
	case *value.Mapping:
		return d.errorf(path, "value must be a scalar or a sequence of scalars, got mapping")
	case value.Sequence:
		if len(val) == 0 {
			// An empty assignment resets a list setting.
			fmt.Fprintf(sb, "%s=\n", key)
			return nil
		}
		for _, item := range val {
			text, ok := value.ScalarText(item)
			if !ok {
				return d.errorf(path, "sequence elements must be scalars, got %s", value.KindOf(item))
			}
			writeLine(sb, key, text)
		}
		return nil
	}

	text, _ := value.ScalarText(e.Value)
	writeLine(sb, key, text)
	return nil
}

// writeLine writes Key=Value. Embedded newlines become backslash
// continuations, which systemd joins back with spaces.
func writeLine(sb *strings.Builder, key, text string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	fmt.Fprintf(sb, "%s=%s\n", key, strings.ReplaceAll(text, "\n", "\\\n"))
}
