package datatype

// Element is the untyped datatype value carried by a fetch response. Only
// the member selected by Kind is meaningful.
type Element struct {
	Kind    Kind
	Counter int64
	Set     [][]byte
	Map     []MapEntry
}

// MapEntry is one field of a wire map. Only the member selected by
// Field.Kind is meaningful.
type MapEntry struct {
	Field    MapKey
	Counter  int64
	Set      [][]byte
	Register []byte
	Flag     bool
	Map      []MapEntry
}

// CounterElement returns a counter wire element.
func CounterElement(v int64) Element { return Element{Kind: KindCounter, Counter: v} }

// SetElement returns a set wire element.
func SetElement(elems ...[]byte) Element { return Element{Kind: KindSet, Set: elems} }

// MapElement returns a map wire element.
func MapElement(entries ...MapEntry) Element { return Element{Kind: KindMap, Map: entries} }
