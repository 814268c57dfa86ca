package jsonvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNotObject is returned by ParseObject when the document is valid JSON
// but not an object.
var ErrNotObject = errors.New("jsonvalue: document is not an object")

// Parse decodes a single JSON document. Trailing data is an error.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return Null(), fmt.Errorf("jsonvalue: parse: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Null(), fmt.Errorf("jsonvalue: parse: trailing data after document")
	}
	return v, nil
}

// ParseObject decodes a document that must be a JSON object.
func ParseObject(data []byte) (*Object, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("%w (got %s)", ErrNotObject, v.Kind())
	}
	return obj, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Null(), io.ErrUnexpectedEOF
		}
		return Null(), err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		default:
			return Null(), fmt.Errorf("unexpected delimiter %q", t)
		}
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t), nil
	case string:
		return String(t), nil
	case nil:
		return Null(), nil
	default:
		return Null(), fmt.Errorf("unexpected token %T", tok)
	}
}

func parseObject(dec *json.Decoder) (Value, error) {
	obj := NewObject()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Null(), err
		}
		key, ok := tok.(string)
		if !ok {
			return Null(), fmt.Errorf("object key is %T, not string", tok)
		}
		val, err := parseValue(dec)
		if err != nil {
			return Null(), err
		}
		obj.Set(key, val)
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return Null(), err
	}
	return ObjectValue(obj), nil
}

func parseArray(dec *json.Decoder) (Value, error) {
	arr := NewArray()
	for dec.More() {
		val, err := parseValue(dec)
		if err != nil {
			return Null(), err
		}
		arr.Append(val)
	}
	if _, err := dec.Token(); err != nil { // closing ']'
		return Null(), err
	}
	return ArrayValue(arr), nil
}

// MarshalJSON renders v as compact JSON. Object members are written in
// insertion order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.appendJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Quote renders s as a JSON string literal without HTML escaping.
func Quote(s string) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (v Value) appendJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		if !json.Valid([]byte(v.s)) {
			return fmt.Errorf("jsonvalue: invalid number literal %q", v.s)
		}
		buf.WriteString(v.s)
	case KindString:
		q, err := Quote(v.s)
		if err != nil {
			return err
		}
		buf.Write(q)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.arr.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.obj.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			q, err := Quote(k)
			if err != nil {
				return err
			}
			buf.Write(q)
			buf.WriteByte(':')
			if err := v.obj.vals[k].appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("jsonvalue: unknown kind %s", v.kind)
	}
	return nil
}
