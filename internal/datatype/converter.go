package datatype

import (
	"errors"
	"fmt"
)

// ErrTypeMismatch is matched by every *TypeMismatchError.
var ErrTypeMismatch = errors.New("datatype: type mismatch")

// TypeMismatchError reports a wire element whose tag does not match the
// datatype a converter produces.
type TypeMismatchError struct {
	Want Kind
	Got  Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("datatype: expected %s, got %s", e.Want, e.Got)
}

// Is makes errors.Is(err, ErrTypeMismatch) hold.
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// Converter turns a wire element into a typed datatype.
type Converter[T Datatype] interface {
	Kind() Kind
	Convert(Element) (T, error)
}

type converterFunc[T Datatype] struct {
	kind    Kind
	convert func(Element) T
}

func (c converterFunc[T]) Kind() Kind { return c.kind }

func (c converterFunc[T]) Convert(e Element) (T, error) {
	if e.Kind != c.kind {
		var zero T
		return zero, &TypeMismatchError{Want: c.kind, Got: e.Kind}
	}
	return c.convert(e), nil
}

// AsCounter converts counter elements.
func AsCounter() Converter[*Counter] {
	return converterFunc[*Counter]{
		kind:    KindCounter,
		convert: func(e Element) *Counter { return NewCounter(e.Counter) },
	}
}

// AsSet converts set elements.
func AsSet() Converter[*Set] {
	return converterFunc[*Set]{
		kind:    KindSet,
		convert: func(e Element) *Set { return NewSet(e.Set...) },
	}
}

// AsMap converts map elements, recursing into nested maps. Entries whose
// field kind is unknown are skipped.
func AsMap() Converter[*Map] {
	return converterFunc[*Map]{
		kind:    KindMap,
		convert: func(e Element) *Map { return convertMap(e.Map) },
	}
}

func convertMap(entries []MapEntry) *Map {
	m := NewMap()
	for _, entry := range entries {
		if d, ok := convertEntry(entry); ok {
			m.Put(entry.Field.Name, d)
		}
	}
	return m
}

func convertEntry(entry MapEntry) (Datatype, bool) {
	switch entry.Field.Kind {
	case KindCounter:
		return NewCounter(entry.Counter), true
	case KindSet:
		return NewSet(entry.Set...), true
	case KindRegister:
		return NewRegister(entry.Register), true
	case KindFlag:
		return NewFlag(entry.Flag), true
	case KindMap:
		return convertMap(entry.Map), true
	default:
		return nil, false
	}
}
