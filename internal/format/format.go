package format

import (
	"path/filepath"
	"strings"
)

// ID identifies a serialization format or special emitter.
type ID int

const (
	Unknown ID = iota
	JSON
	PrettyJSON
	YAML
	CBOR
	RON
	PrettyRON
	TOML
	BSON
	Pickle
	Bincode
	Postcard
	Flexbuffers
	INI
	Systemd
	Quadlet
)

type info struct {
	flag       string
	name       string
	extensions []string // first entry is the canonical output extension
	decodable  bool
	binary     bool
	special    bool
}

var formats = map[ID]info{
	JSON:        {flag: "json", name: "JSON", extensions: []string{"json"}, decodable: true},
	PrettyJSON:  {flag: "pretty-json", name: "pretty JSON", extensions: []string{"hjson"}, decodable: true},
	YAML:        {flag: "yaml", name: "YAML", extensions: []string{"yaml", "yml"}, decodable: true},
	CBOR:        {flag: "cbor", name: "CBOR", extensions: []string{"cbor", "cb"}, decodable: true, binary: true},
	RON:         {flag: "ron", name: "RON", extensions: []string{"ron"}, decodable: true},
	PrettyRON:   {flag: "pretty-ron", name: "pretty RON", extensions: []string{"hron"}, decodable: true},
	TOML:        {flag: "toml", name: "TOML", extensions: []string{"toml"}, decodable: true},
	BSON:        {flag: "bson", name: "BSON", extensions: []string{"bson", "bs"}, decodable: true, binary: true},
	Pickle:      {flag: "pickle", name: "Pickle", extensions: []string{"pickle", "pkl"}, decodable: true, binary: true},
	Bincode:     {flag: "bincode", name: "Bincode", extensions: []string{"bincode", "bc"}, binary: true},
	Postcard:    {flag: "postcard", name: "Postcard", extensions: []string{"postcard", "pc"}, binary: true},
	Flexbuffers: {flag: "flexbuffers", name: "FlexBuffers", extensions: []string{"flexbuffers", "fb"}, decodable: true, binary: true},
	INI:         {flag: "ini", name: "INI", extensions: []string{"ini"}, decodable: true},
	Systemd:     {flag: "systemd", name: "systemd unit", special: true},
	Quadlet:     {flag: "quadlet", name: "Podman Quadlet", special: true},
}

// byExtension maps a lowercase extension (without dot) to its format.
var byExtension = func() map[string]ID {
	m := make(map[string]ID)
	for id, f := range formats {
		for _, ext := range f.extensions {
			m[ext] = id
		}
	}
	return m
}()

// All returns every known format in declaration order.
func All() []ID {
	ids := make([]ID, 0, len(formats))
	for id := JSON; id <= Quadlet; id++ {
		ids = append(ids, id)
	}
	return ids
}

// String returns the flag name of the format (e.g. "pretty-json").
func (id ID) String() string {
	return formats[id].flag
}

// Name returns a human-readable name.
func (id ID) Name() string {
	if f, ok := formats[id]; ok {
		return f.name
	}
	return "unknown format"
}

// Extension returns the canonical file extension without the leading dot.
// Special emitters have none.
func (id ID) Extension() string {
	if exts := formats[id].extensions; len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// IsSpecial reports whether the format is a special emitter.
func (id ID) IsSpecial() bool {
	return formats[id].special
}

// CanDecode reports whether input in this format can be read.
func (id ID) CanDecode() bool {
	return formats[id].decodable
}

// IsBinary reports whether encoded output is not text.
func (id ID) IsBinary() bool {
	return formats[id].binary
}

// Set implements pflag.Value.
func (id *ID) Set(s string) error {
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Type implements pflag.Value.
func (id *ID) Type() string {
	return "format"
}

// Parse resolves a format flag name. Matching ignores case, '-' and '_'.
func Parse(name string) (ID, error) {
	want := normalizeName(name)
	for id, f := range formats {
		if normalizeName(f.flag) == want {
			return id, nil
		}
	}
	return Unknown, &UnknownFormatError{Input: name, Reason: "not a known format name"}
}

// Names returns the flag names of every format, for help text.
func Names() []string {
	names := make([]string, 0, len(formats))
	for _, id := range All() {
		names = append(names, id.String())
	}
	return names
}

// FromExtension returns the format registered for the extension of path.
// Matching is case-insensitive; special emitters are never returned.
func FromExtension(path string) (ID, bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return Unknown, false
	}
	id, ok := byExtension[strings.ToLower(ext)]
	return id, ok
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "").Replace(s)
}
