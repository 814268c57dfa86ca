package dtpb

import (
	"errors"
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/i-melnichenko/riak-wire/internal/datatype"
)

func ptr[T any](v T) *T { return &v }

func TestFetchRequest_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		req  FetchRequest
	}{
		{
			name: "identity only",
			req:  FetchRequest{Bucket: []byte("b"), Key: []byte("k"), Type: []byte("maps")},
		},
		{
			name: "all options",
			req: FetchRequest{
				Bucket:         []byte("b"),
				Key:            []byte("k"),
				Type:           []byte("sets"),
				R:              ptr(uint32(0xfffffffd)),
				PR:             ptr(uint32(2)),
				BasicQuorum:    ptr(true),
				NotFoundOK:     ptr(false),
				Timeout:        ptr(uint32(1500)),
				SloppyQuorum:   ptr(true),
				NVal:           ptr(uint32(3)),
				IncludeContext: ptr(false),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalFetchRequest(tt.req.Marshal())
			if err != nil {
				t.Fatalf("UnmarshalFetchRequest: %v", err)
			}
			if !reflect.DeepEqual(*got, tt.req) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *got, tt.req)
			}
		})
	}
}

func TestFetchRequest_FieldNumbers(t *testing.T) {
	req := FetchRequest{Bucket: []byte("b"), Key: []byte("k"), Type: []byte("t"), IncludeContext: ptr(true)}
	b := req.Marshal()

	var nums []protowire.Number
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			t.Fatalf("bad tag: %v", protowire.ParseError(n))
		}
		b = b[n:]
		nums = append(nums, num)
		n = protowire.ConsumeFieldValue(num, typ, b)
		b = b[n:]
	}
	if want := []protowire.Number{1, 2, 3, 11}; !reflect.DeepEqual(nums, want) {
		t.Fatalf("field numbers = %v, want %v", nums, want)
	}
}

func TestFetchResponse_NestedMap(t *testing.T) {
	el := datatype.MapElement(
		datatype.MapEntry{Field: datatype.MapKey{Name: "hits", Kind: datatype.KindCounter}, Counter: -3},
		datatype.MapEntry{Field: datatype.MapKey{Name: "tags", Kind: datatype.KindSet}, Set: [][]byte{[]byte("a"), []byte("b")}},
		datatype.MapEntry{Field: datatype.MapKey{Name: "on", Kind: datatype.KindFlag}, Flag: true},
		datatype.MapEntry{Field: datatype.MapKey{Name: "inner", Kind: datatype.KindMap}, Map: []datatype.MapEntry{
			{Field: datatype.MapKey{Name: "name", Kind: datatype.KindRegister}, Register: []byte("x")},
		}},
	)
	resp, err := NewFetchResponse(el, []byte("ctx"))
	if err != nil {
		t.Fatalf("NewFetchResponse: %v", err)
	}

	decoded, err := UnmarshalFetchResponse(resp.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalFetchResponse: %v", err)
	}
	if string(decoded.Context) != "ctx" || decoded.Type != DataTypeMap {
		t.Fatalf("unexpected header fields: %+v", decoded)
	}
	got, err := decoded.Element()
	if err != nil {
		t.Fatalf("Element: %v", err)
	}
	if !reflect.DeepEqual(got, el) {
		t.Fatalf("element mismatch:\n got %+v\nwant %+v", got, el)
	}
}

func TestFetchResponse_CounterWithoutValue(t *testing.T) {
	resp := FetchResponse{Type: DataTypeCounter}
	decoded, err := UnmarshalFetchResponse(resp.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalFetchResponse: %v", err)
	}
	el, err := decoded.Element()
	if err != nil {
		t.Fatalf("Element: %v", err)
	}
	if el.Kind != datatype.KindCounter || el.Counter != 0 {
		t.Fatalf("unexpected element %+v", el)
	}
}

func TestFetchResponse_SkipsUnknownFields(t *testing.T) {
	resp := FetchResponse{Type: DataTypeCounter, Value: &Value{CounterValue: ptr(int64(9))}}
	b := resp.Marshal()
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("future"))

	decoded, err := UnmarshalFetchResponse(b)
	if err != nil {
		t.Fatalf("UnmarshalFetchResponse: %v", err)
	}
	if decoded.Value == nil || *decoded.Value.CounterValue != 9 {
		t.Fatalf("unexpected value %+v", decoded.Value)
	}
}

func TestUnmarshal_Malformed(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{name: "truncated bytes", run: func() error {
			_, err := UnmarshalFetchResponse([]byte{0x0a, 0x05, 'a'})
			return err
		}},
		{name: "wrong wire type", run: func() error {
			_, err := UnmarshalFetchRequest(protowire.AppendVarint(protowire.AppendTag(nil, 1, protowire.VarintType), 1))
			return err
		}},
		{name: "truncated error", run: func() error {
			_, err := UnmarshalErrorResponse([]byte{0x10})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestErrorResponse_RoundTrip(t *testing.T) {
	in := ErrorResponse{Message: []byte("overload"), Code: 7}
	got, err := UnmarshalErrorResponse(in.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalErrorResponse: %v", err)
	}
	if !reflect.DeepEqual(*got, in) {
		t.Fatalf("got %+v want %+v", *got, in)
	}
}

func TestNewFetchResponse_RejectsEmbeddedKinds(t *testing.T) {
	if _, err := NewFetchResponse(datatype.Element{Kind: datatype.KindFlag}, nil); err == nil {
		t.Fatalf("expected error for flag element")
	}
}
