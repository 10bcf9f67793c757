package format

import "github.com/thirteen37/slate/internal/value"

// StringKeys returns the keys of m coerced with value.KeyString, in order.
// Two distinct keys that coerce to the same string are an error, since
// writing both would silently drop one.
func StringKeys(id ID, m *value.Mapping) ([]string, error) {
	keys := make([]string, 0, m.Len())
	seen := make(map[string]value.Value, m.Len())
	for _, e := range m.Entries() {
		k := value.KeyString(e.Key)
		if prev, dup := seen[k]; dup {
			return nil, Unsupported(id, m, "keys %s and %s both become %q", value.Canonical(prev), value.Canonical(e.Key), k)
		}
		seen[k] = e.Key
		keys = append(keys, k)
	}
	return keys, nil
}
