// Package registry maps format identifiers to their handlers.
package registry

import (
	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/format/bincode"
	"github.com/thirteen37/slate/internal/format/bson"
	"github.com/thirteen37/slate/internal/format/cbor"
	"github.com/thirteen37/slate/internal/format/flexbuffers"
	"github.com/thirteen37/slate/internal/format/ini"
	"github.com/thirteen37/slate/internal/format/json"
	"github.com/thirteen37/slate/internal/format/pickle"
	"github.com/thirteen37/slate/internal/format/postcard"
	"github.com/thirteen37/slate/internal/format/ron"
	"github.com/thirteen37/slate/internal/format/toml"
	"github.com/thirteen37/slate/internal/format/yaml"
)

var constructors = map[format.ID]func() format.Codec{
	format.JSON:        func() format.Codec { return json.New() },
	format.PrettyJSON:  func() format.Codec { return json.NewPretty() },
	format.YAML:        func() format.Codec { return yaml.New() },
	format.CBOR:        func() format.Codec { return cbor.New() },
	format.RON:         func() format.Codec { return ron.New() },
	format.PrettyRON:   func() format.Codec { return ron.NewPretty() },
	format.TOML:        func() format.Codec { return toml.New() },
	format.BSON:        func() format.Codec { return bson.New() },
	format.Pickle:      func() format.Codec { return pickle.New() },
	format.Bincode:     func() format.Codec { return bincode.New() },
	format.Postcard:    func() format.Codec { return postcard.New() },
	format.Flexbuffers: func() format.Codec { return flexbuffers.New() },
	format.INI:         func() format.Codec { return ini.New() },
}

// Lookup returns the handler for id. Special emitters have no handler and
// are reported as an UnknownFormatError.
func Lookup(id format.ID) (format.Codec, error) {
	newCodec, ok := constructors[id]
	if !ok {
		reason := "no handler registered"
		if id.IsSpecial() {
			reason = "special emitters are not codecs"
		}
		return nil, &format.UnknownFormatError{Input: id.String(), Reason: reason}
	}
	return newCodec(), nil
}
