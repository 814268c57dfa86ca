package jsonvalue

import (
	"errors"
	"testing"
)

func TestParse_PreservesOrderAndLiterals(t *testing.T) {
	v, err := Parse([]byte(`{"b":1.50,"a":[true,null,"x"],"c":{"n":-3}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	obj, ok := v.AsObject()
	if !ok {
		t.Fatalf("expected object, got %s", v.Kind())
	}
	if got := obj.Keys(); len(got) != 3 || got[0] != "b" || got[1] != "a" || got[2] != "c" {
		t.Fatalf("unexpected key order: %v", got)
	}

	raw, err := v.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if want := `{"b":1.50,"a":[true,null,"x"],"c":{"n":-3}}`; string(raw) != want {
		t.Fatalf("expected %s, got %s", want, raw)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "trailing data", input: `{} x`},
		{name: "two documents", input: `{}{}`},
		{name: "unterminated", input: `{"a":`},
		{name: "bare word", input: `hello`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.input)); err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
		})
	}
}

func TestParseObject_RejectsNonObject(t *testing.T) {
	_, err := ParseObject([]byte(`[1,2]`))
	if !errors.Is(err, ErrNotObject) {
		t.Fatalf("expected ErrNotObject, got %v", err)
	}
}

func TestObject_SetKeepsPositionAndDelete(t *testing.T) {
	obj := NewObject()
	obj.Set("x", Int(1))
	obj.Set("y", Int(2))
	obj.Set("x", String("again"))
	obj.Delete("y")
	obj.Delete("missing")

	if got := obj.Keys(); len(got) != 1 || got[0] != "x" {
		t.Fatalf("unexpected keys: %v", got)
	}
	v, _ := obj.Get("x")
	if s, _ := v.AsString(); s != "again" {
		t.Fatalf("expected overwritten value, got %q", s)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	orig := NewObject()
	inner := NewObject()
	inner.Set("k", String("v"))
	orig.Set("inner", ObjectValue(inner))

	cp := ObjectValue(orig).Clone()
	cpObj, _ := cp.AsObject()
	cpInnerVal, _ := cpObj.Get("inner")
	cpInner, _ := cpInnerVal.AsObject()
	cpInner.Set("k", String("changed"))

	v, _ := inner.Get("k")
	if s, _ := v.AsString(); s != "v" {
		t.Fatalf("clone mutated original: %q", s)
	}
}

func TestEqual_IgnoresObjectOrder(t *testing.T) {
	a, _ := Parse([]byte(`{"a":1,"b":[1,2]}`))
	b, _ := Parse([]byte(`{"b":[1,2],"a":1}`))
	c, _ := Parse([]byte(`{"b":[2,1],"a":1}`))
	if !Equal(a, b) {
		t.Fatalf("expected documents to be equal")
	}
	if Equal(a, c) {
		t.Fatalf("expected array order to matter")
	}
}

func TestQuote_DoesNotEscapeHTML(t *testing.T) {
	q, err := Quote(`<a href="x">&</a>`)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if want := `"<a href=\"x\">&</a>"`; string(q) != want {
		t.Fatalf("expected %s, got %s", want, q)
	}
}

func TestText(t *testing.T) {
	if got := Int(42).Text(); got != "42" {
		t.Fatalf("expected 42, got %q", got)
	}
	if got := Null().Text(); got != "" {
		t.Fatalf("expected empty text for null, got %q", got)
	}
	if got := Strings("a", "b").Text(); got != `["a","b"]` {
		t.Fatalf("unexpected array text %q", got)
	}
}
