package value

// Entry is a single key/value pair of a Mapping.
type Entry struct {
	Key   Value
	Value Value
}

// Mapping is an ordered collection of entries with unique keys.
// Keys may be any Value; uniqueness follows Equal.
type Mapping struct {
	entries []Entry
	index   map[string]int
}

// NewMapping creates an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{index: make(map[string]int)}
}

// Kind implements Value.
func (m *Mapping) Kind() Kind { return KindMapping }

// Len returns the number of entries.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Set stores value under key. An existing key keeps its position and has its
// value replaced.
func (m *Mapping) Set(key, val Value) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if key == nil {
		key = Null{}
	}
	if val == nil {
		val = Null{}
	}
	id := identity(key)
	if i, ok := m.index[id]; ok {
		m.entries[i].Value = val
		return
	}
	m.index[id] = len(m.entries)
	m.entries = append(m.entries, Entry{Key: key, Value: val})
}

// SetString is Set with a string key.
func (m *Mapping) SetString(key string, val Value) {
	m.Set(String(key), val)
}

// Get returns the value stored under key.
func (m *Mapping) Get(key Value) (Value, bool) {
	if m == nil || m.index == nil {
		return nil, false
	}
	i, ok := m.index[identity(key)]
	if !ok {
		return nil, false
	}
	return m.entries[i].Value, true
}

// GetString is Get with a string key.
func (m *Mapping) GetString(key string) (Value, bool) {
	return m.Get(String(key))
}

// Has reports whether key is present.
func (m *Mapping) Has(key Value) bool {
	_, ok := m.Get(key)
	return ok
}

// Entries returns the entries in insertion order.
// The returned slice must not be modified.
func (m *Mapping) Entries() []Entry {
	if m == nil {
		return nil
	}
	return m.entries
}

// Keys returns the keys in insertion order.
func (m *Mapping) Keys() []Value {
	keys := make([]Value, len(m.Entries()))
	for i, e := range m.Entries() {
		keys[i] = e.Key
	}
	return keys
}

// Clone returns a deep copy of m.
func (m *Mapping) Clone() *Mapping {
	out := NewMapping()
	for _, e := range m.Entries() {
		out.Set(Clone(e.Key), Clone(e.Value))
	}
	return out
}

// Clone returns a deep copy of v.
func Clone(v Value) Value {
	switch val := v.(type) {
	case *Mapping:
		return val.Clone()
	case Sequence:
		out := make(Sequence, len(val))
		for i, item := range val {
			out[i] = Clone(item)
		}
		return out
	case Bytes:
		return append(Bytes(nil), val...)
	case nil:
		return Null{}
	default:
		// Remaining variants are immutable.
		return val
	}
}
