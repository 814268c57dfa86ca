// Package jsonvalue implements an explicit, order-preserving JSON value tree.
//
// Codecs in this module operate on Value instead of map[string]any so that
// the shape of a document is visible in the type: every node is exactly one
// of null, bool, number, string, array or object.
package jsonvalue

import (
	"encoding/json"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single JSON node. The zero Value is null.
//
// Arrays and objects are held by pointer, so copies of a Value share the
// same container; use Clone for an independent tree.
type Value struct {
	kind Kind
	b    bool
	s    string // string contents or number literal
	arr  *Array
	obj  *Object
}

// Null returns the JSON null value.
func Null() Value { return Value{} }

// Bool wraps b.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String wraps s.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Number wraps a numeric literal. The literal is kept verbatim.
func Number(n json.Number) Value { return Value{kind: KindNumber, s: n.String()} }

// Int wraps an integer.
func Int(n int64) Value { return Value{kind: KindNumber, s: strconv.FormatInt(n, 10)} }

// ArrayValue wraps a (possibly nil) array; nil becomes an empty array.
func ArrayValue(a *Array) Value {
	if a == nil {
		a = NewArray()
	}
	return Value{kind: KindArray, arr: a}
}

// ObjectValue wraps a (possibly nil) object; nil becomes an empty object.
func ObjectValue(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

// Strings builds an array value holding the given strings.
func Strings(ss ...string) Value {
	a := NewArray()
	for _, s := range ss {
		a.Append(String(s))
	}
	return ArrayValue(a)
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is JSON null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsNumber returns the numeric literal held by v.
func (v Value) AsNumber() (json.Number, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	return json.Number(v.s), true
}

// AsArray returns the array held by v.
func (v Value) AsArray() (*Array, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// AsObject returns the object held by v.
func (v Value) AsObject() (*Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// Text renders scalars the way a lenient string accessor would: strings as
// themselves, numbers and bools as their literals, null as "", and
// containers as compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber, KindString:
		return v.s
	default:
		raw, err := v.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		return ArrayValue(v.arr.Clone())
	case KindObject:
		return ObjectValue(v.obj.Clone())
	default:
		return v
	}
}

// Equal reports whether a and b hold the same JSON document. Object key
// order is ignored; array order is not.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber, KindString:
		return a.s == b.s
	case KindArray:
		if a.arr.Len() != b.arr.Len() {
			return false
		}
		for i := 0; i < a.arr.Len(); i++ {
			if !Equal(a.arr.At(i), b.arr.At(i)) {
				return false
			}
		}
		return true
	case KindObject:
		if a.obj.Len() != b.obj.Len() {
			return false
		}
		for _, k := range a.obj.keys {
			bv, ok := b.obj.Get(k)
			if !ok || !Equal(a.obj.vals[k], bv) {
				return false
			}
		}
		return true
	}
	return false
}

// Array is an ordered list of values.
type Array struct {
	items []Value
}

// NewArray returns an array holding vals.
func NewArray(vals ...Value) *Array {
	return &Array{items: append([]Value(nil), vals...)}
}

// Len returns the number of elements.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.items)
}

// At returns the element at i, or null when i is out of range.
func (a *Array) At(i int) Value {
	if a == nil || i < 0 || i >= len(a.items) {
		return Null()
	}
	return a.items[i]
}

// Append adds vals to the end of the array.
func (a *Array) Append(vals ...Value) {
	a.items = append(a.items, vals...)
}

// Values returns a copy of the elements.
func (a *Array) Values() []Value {
	if a == nil {
		return nil
	}
	return append([]Value(nil), a.items...)
}

// Clone returns a deep copy of a.
func (a *Array) Clone() *Array {
	out := &Array{items: make([]Value, 0, a.Len())}
	if a == nil {
		return out
	}
	for _, v := range a.items {
		out.items = append(out.items, v.Clone())
	}
	return out
}

// Object is a JSON object with unique keys that remembers insertion order.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Len returns the number of members.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Get returns the member named key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Null(), false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Has reports whether a member named key exists.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores v under key. An existing key keeps its position.
func (o *Object) Set(key string, v Value) {
	if o.vals == nil {
		o.vals = make(map[string]Value)
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Delete removes key if present.
func (o *Object) Delete(key string) {
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns member names in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return append([]string(nil), o.keys...)
}

// Clone returns a deep copy of o.
func (o *Object) Clone() *Object {
	out := NewObject()
	if o == nil {
		return out
	}
	for _, k := range o.keys {
		out.Set(k, o.vals[k].Clone())
	}
	return out
}
