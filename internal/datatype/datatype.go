// Package datatype models the store's replicated datatypes (counters, sets
// and maps, plus the register and flag values that only live inside maps)
// and converts wire elements into them.
package datatype

import (
	"bytes"
	"fmt"
)

// Kind tags a datatype or a map field.
type Kind int

// Datatype kinds. The numeric values match the map field types of the
// binary protocol.
const (
	KindUnknown Kind = iota
	KindCounter
	KindSet
	KindRegister
	KindFlag
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindSet:
		return "set"
	case KindRegister:
		return "register"
	case KindFlag:
		return "flag"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a lower-case kind name to its Kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range []Kind{KindCounter, KindSet, KindRegister, KindFlag, KindMap} {
		if k.String() == s {
			return k, true
		}
	}
	return KindUnknown, false
}

// Datatype is implemented by every typed value.
type Datatype interface {
	Kind() Kind
}

// Counter is a replicated integer counter.
type Counter struct {
	value int64
}

// NewCounter returns a counter holding v.
func NewCounter(v int64) *Counter { return &Counter{value: v} }

func (*Counter) Kind() Kind { return KindCounter }

// Value returns the counter value.
func (c *Counter) Value() int64 { return c.value }

// Set is a replicated set of opaque elements. Elements are unique and keep
// the order in which they were first seen.
type Set struct {
	elems [][]byte
	index map[string]struct{}
}

// NewSet returns a set of elems, dropping duplicates.
func NewSet(elems ...[]byte) *Set {
	s := &Set{
		elems: make([][]byte, 0, len(elems)),
		index: make(map[string]struct{}, len(elems)),
	}
	for _, e := range elems {
		if _, dup := s.index[string(e)]; dup {
			continue
		}
		s.index[string(e)] = struct{}{}
		s.elems = append(s.elems, bytes.Clone(e))
	}
	return s
}

func (*Set) Kind() Kind { return KindSet }

// Len returns the number of elements.
func (s *Set) Len() int { return len(s.elems) }

// Contains reports whether e is an element.
func (s *Set) Contains(e []byte) bool {
	_, ok := s.index[string(e)]
	return ok
}

// Elements returns a copy of the elements.
func (s *Set) Elements() [][]byte {
	out := make([][]byte, len(s.elems))
	for i, e := range s.elems {
		out[i] = bytes.Clone(e)
	}
	return out
}

// Strings returns the elements as strings.
func (s *Set) Strings() []string {
	out := make([]string, len(s.elems))
	for i, e := range s.elems {
		out[i] = string(e)
	}
	return out
}

// Register is a last-write-wins value inside a map.
type Register struct {
	value []byte
}

// NewRegister returns a register holding v.
func NewRegister(v []byte) *Register { return &Register{value: bytes.Clone(v)} }

func (*Register) Kind() Kind { return KindRegister }

// Value returns a copy of the register contents.
func (r *Register) Value() []byte { return bytes.Clone(r.value) }

// Flag is an enable/disable flag inside a map.
type Flag struct {
	enabled bool
}

// NewFlag returns a flag in the given state.
func NewFlag(enabled bool) *Flag { return &Flag{enabled: enabled} }

func (*Flag) Kind() Kind { return KindFlag }

// Enabled reports the flag state.
func (f *Flag) Enabled() bool { return f.enabled }

// MapKey identifies a map field. Two fields with the same name but
// different kinds are distinct.
type MapKey struct {
	Name string
	Kind Kind
}

// Map is a replicated map from typed field names to nested datatypes.
type Map struct {
	keys    []MapKey
	entries map[MapKey]Datatype
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{entries: map[MapKey]Datatype{}}
}

func (*Map) Kind() Kind { return KindMap }

// Len returns the number of fields.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the field keys in insertion order.
func (m *Map) Keys() []MapKey { return append([]MapKey(nil), m.keys...) }

// Get returns the field stored under key.
func (m *Map) Get(key MapKey) (Datatype, bool) {
	d, ok := m.entries[key]
	return d, ok
}

// Put stores d under (name, d.Kind()), replacing any previous value.
func (m *Map) Put(name string, d Datatype) {
	key := MapKey{Name: name, Kind: d.Kind()}
	if _, ok := m.entries[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = d
}

// Counter returns the counter field name.
func (m *Map) Counter(name string) (*Counter, bool) { return mapField[*Counter](m, name, KindCounter) }

// Set returns the set field name.
func (m *Map) Set(name string) (*Set, bool) { return mapField[*Set](m, name, KindSet) }

// Register returns the register field name.
func (m *Map) Register(name string) (*Register, bool) {
	return mapField[*Register](m, name, KindRegister)
}

// Flag returns the flag field name.
func (m *Map) Flag(name string) (*Flag, bool) { return mapField[*Flag](m, name, KindFlag) }

// Map returns the nested map field name.
func (m *Map) Map(name string) (*Map, bool) { return mapField[*Map](m, name, KindMap) }

func mapField[T Datatype](m *Map, name string, kind Kind) (T, bool) {
	var zero T
	d, ok := m.entries[MapKey{Name: name, Kind: kind}]
	if !ok {
		return zero, false
	}
	t, ok := d.(T)
	return t, ok
}
