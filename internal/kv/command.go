// Package kv implements the in-memory datatype store served by the
// development node.
package kv

import (
	"fmt"

	"github.com/i-melnichenko/riak-wire/internal/datatype"
)

// CommandType identifies a store mutation.
type CommandType string

// Supported commands.
const (
	PutCmd       CommandType = "put"
	IncrementCmd CommandType = "increment"
	DeleteCmd    CommandType = "delete"
)

// Command is the serialized mutation applied to the store. Seed files are
// JSON arrays of commands.
type Command struct {
	Type       CommandType `json:"type"`
	BucketType string      `json:"bucket_type,omitempty"`
	Bucket     string      `json:"bucket"`
	Key        string      `json:"key"`
	Value      *Value      `json:"value,omitempty"`
	Delta      int64       `json:"delta,omitempty"`
}

// Value is the JSON form of a datatype. Exactly one member must be set.
type Value struct {
	Counter *int64   `json:"counter,omitempty"`
	Set     []string `json:"set,omitempty"`
	Map     []Field  `json:"map,omitempty"`
}

// Field is one map field in JSON form. Type is counter, set, register,
// flag or map.
type Field struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Counter  int64    `json:"counter,omitempty"`
	Set      []string `json:"set,omitempty"`
	Register string   `json:"register,omitempty"`
	Flag     bool     `json:"flag,omitempty"`
	Map      []Field  `json:"map,omitempty"`
}

// Element converts v to its wire element.
func (v *Value) Element() (datatype.Element, error) {
	if v == nil {
		return datatype.Element{}, fmt.Errorf("kv: missing value")
	}
	set := 0
	for _, present := range []bool{v.Counter != nil, v.Set != nil, v.Map != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return datatype.Element{}, fmt.Errorf("kv: value must hold exactly one of counter, set, map")
	}

	switch {
	case v.Counter != nil:
		return datatype.CounterElement(*v.Counter), nil
	case v.Set != nil:
		return datatype.SetElement(byteSlices(v.Set)...), nil
	default:
		entries, err := fieldsToEntries(v.Map)
		if err != nil {
			return datatype.Element{}, err
		}
		return datatype.MapElement(entries...), nil
	}
}

func fieldsToEntries(fields []Field) ([]datatype.MapEntry, error) {
	entries := make([]datatype.MapEntry, 0, len(fields))
	for _, f := range fields {
		kind, ok := datatype.ParseKind(f.Type)
		if !ok {
			return nil, fmt.Errorf("kv: map field %q: unknown type %q", f.Name, f.Type)
		}
		e := datatype.MapEntry{Field: datatype.MapKey{Name: f.Name, Kind: kind}}
		switch kind {
		case datatype.KindCounter:
			e.Counter = f.Counter
		case datatype.KindSet:
			e.Set = byteSlices(f.Set)
		case datatype.KindRegister:
			e.Register = []byte(f.Register)
		case datatype.KindFlag:
			e.Flag = f.Flag
		case datatype.KindMap:
			nested, err := fieldsToEntries(f.Map)
			if err != nil {
				return nil, err
			}
			e.Map = nested
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func byteSlices(ss []string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}
