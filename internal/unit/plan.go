package unit

import (
	"path/filepath"
	"strings"

	"github.com/thirteen37/slate/internal/value"
)

// File is one unit file produced from a multi-unit tree.
type File struct {
	Name     string
	Sections *value.Mapping
	Content  []byte
}

// quadletExtensions are the file types Podman's generator reads.
var quadletExtensions = []string{
	".container", ".pod", ".volume", ".network", ".kube", ".image", ".build", ".artifact",
}

const containerAfter = "local-fs.target network-online.target systemd-networkd-wait-online.service"

// Plan splits tree with the dialect's planner and renders each file.
func (d *Dialect) Plan(tree value.Value) ([]File, error) {
	var (
		files []File
		err   error
	)
	switch d {
	case Quadlet:
		files, err = PlanQuadlet(tree)
	default:
		files, err = PlanSystemd(tree)
	}
	if err != nil {
		return nil, err
	}

	for i := range files {
		content, err := d.Emit(files[i].Sections)
		if err != nil {
			return nil, err
		}
		files[i].Content = content
	}
	return files, nil
}

// units walks the top level of a multi-unit tree: file or unit names mapped
// to section mappings. The sections are deep copies.
func units(d *Dialect, tree value.Value, visit func(name string, sections *value.Mapping) error) error {
	top, ok := tree.(*value.Mapping)
	if !ok {
		return d.errorf(nil, "top level must map unit names to sections, got %s", value.KindOf(tree))
	}
	for _, e := range top.Entries() {
		name := value.KeyString(e.Key)
		if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\n") {
			return d.errorf([]string{name}, "invalid unit name %q", name)
		}
		sections, ok := e.Value.(*value.Mapping)
		if !ok {
			return d.errorf([]string{name}, "unit must be a mapping of sections, got %s", value.KindOf(e.Value))
		}
		if err := visit(name, sections.Clone()); err != nil {
			return err
		}
	}
	return nil
}

// section returns the named section of m, appending an empty one when it is
// missing.
func section(d *Dialect, m *value.Mapping, unit, name string) (*value.Mapping, error) {
	v, ok := m.GetString(name)
	if !ok {
		s := value.NewMapping()
		m.SetString(name, s)
		return s, nil
	}
	s, ok := v.(*value.Mapping)
	if !ok {
		return nil, d.errorf([]string{unit, name}, "section must be a mapping, got %s", value.KindOf(v))
	}
	return s, nil
}

func setDefault(m *value.Mapping, key, val string) {
	if !m.Has(value.String(key)) {
		m.SetString(key, value.String(val))
	}
}

// PlanSystemd turns each unit into <name>.service. A Timer section moves to
// a separate <name>.timer that activates the service; timed services
// default to Type=oneshot. Service output always goes to the journal.
func PlanSystemd(tree value.Value) ([]File, error) {
	var files []File
	err := units(Systemd, tree, func(name string, sections *value.Mapping) error {
		service := value.NewMapping()
		var timer *value.Mapping
		for _, e := range sections.Entries() {
			if value.KeyString(e.Key) == "Timer" {
				t, ok := e.Value.(*value.Mapping)
				if !ok {
					return Systemd.errorf([]string{name, "Timer"}, "section must be a mapping, got %s", value.KindOf(e.Value))
				}
				timer = t
				continue
			}
			service.Set(e.Key, e.Value)
		}

		svc, err := section(Systemd, service, name, "Service")
		if err != nil {
			return err
		}
		if timer != nil {
			setDefault(svc, "Type", "oneshot")
		}
		svc.SetString("StandardOutput", value.String("journal"))
		svc.SetString("StandardError", value.String("journal"))
		files = append(files, File{Name: name + ".service", Sections: service})

		if timer != nil {
			files = append(files, File{Name: name + ".timer", Sections: timerUnit(name, timer)})
		}
		return nil
	})
	return files, err
}

func timerUnit(name string, timer *value.Mapping) *value.Mapping {
	unit := value.NewMapping()
	schedule := value.NewMapping()
	for _, e := range timer.Entries() {
		if value.KeyString(e.Key) == "Description" {
			unit.Set(e.Key, e.Value)
			continue
		}
		schedule.Set(e.Key, e.Value)
	}
	setDefault(unit, "Description", "Timer for "+name)
	schedule.SetString("Unit", value.String(name+".service"))

	install := value.NewMapping()
	install.SetString("WantedBy", value.String("timers.target"))

	out := value.NewMapping()
	out.SetString("Unit", unit)
	out.SetString("Timer", schedule)
	out.SetString("Install", install)
	return out
}

// PlanQuadlet keeps each file as given and fills in defaults: pods are
// wanted by default.target, containers start after the network is online
// and auto-update from their registry when the image is fully qualified.
func PlanQuadlet(tree value.Value) ([]File, error) {
	var files []File
	err := units(Quadlet, tree, func(name string, sections *value.Mapping) error {
		ext := filepath.Ext(name)
		if !isQuadletExtension(ext) {
			return Quadlet.errorf([]string{name}, "file name must end in one of %s", strings.Join(quadletExtensions, ", "))
		}

		switch ext {
		case ".pod":
			install, err := section(Quadlet, sections, name, "Install")
			if err != nil {
				return err
			}
			setDefault(install, "WantedBy", "default.target")
		case ".container":
			unit, err := section(Quadlet, sections, name, "Unit")
			if err != nil {
				return err
			}
			setDefault(unit, "After", containerAfter)

			container, err := section(Quadlet, sections, name, "Container")
			if err != nil {
				return err
			}
			setDefault(container, "AutoUpdate", autoUpdate(container))
		}

		files = append(files, File{Name: name, Sections: sections})
		return nil
	})
	return files, err
}

func isQuadletExtension(ext string) bool {
	for _, e := range quadletExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// autoUpdate picks "registry" for images with a registry host (a dot in the
// name) and "local" otherwise.
func autoUpdate(container *value.Mapping) string {
	if image, ok := container.GetString("Image"); ok {
		if text, ok := value.ScalarText(image); ok && strings.Contains(text, ".") {
			return "registry"
		}
	}
	return "local"
}

// Bundle joins files into one stream of "# name" blocks separated by ---
// lines.
func Bundle(files []File) []byte {
	var sb strings.Builder
	for i, f := range files {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		sb.WriteString("# ")
		sb.WriteString(f.Name)
		sb.WriteByte('\n')
		sb.Write(f.Content)
	}
	return []byte(sb.String())
}
