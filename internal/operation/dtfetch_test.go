package operation

import (
	"errors"
	"testing"

	"github.com/i-melnichenko/riak-wire/internal/datatype"
	"github.com/i-melnichenko/riak-wire/internal/object"
	"github.com/i-melnichenko/riak-wire/internal/protocol/dtpb"
)

func TestDtFetchBuilder_Build(t *testing.T) {
	b := NewDtFetchBuilder("b", "k").WithR(2).WithIncludeContext(true)
	op, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Later builder changes must not leak into the built operation.
	b.WithR(5).WithBucketType("maps")

	req := op.Request()
	if string(req.Type) != DefaultBucketType {
		t.Fatalf("expected default bucket type, got %q", req.Type)
	}
	if req.R == nil || *req.R != 2 {
		t.Fatalf("expected r=2, got %v", req.R)
	}
	if req.IncludeContext == nil || !*req.IncludeContext {
		t.Fatalf("expected include_context=true")
	}
	if req.PR != nil || req.Timeout != nil {
		t.Fatalf("unexpected options set: %+v", req)
	}

	*req.R = 9
	if again := op.Request(); *again.R != 2 {
		t.Fatalf("Request must return a copy")
	}
}

func TestDtFetchBuilder_MissingIdentity(t *testing.T) {
	tests := []struct {
		name    string
		builder *DtFetchBuilder
	}{
		{name: "bucket", builder: NewDtFetchBuilder("", "k")},
		{name: "key", builder: NewDtFetchBuilder("b", "")},
		{name: "bucket type", builder: NewDtFetchBuilder("b", "k").WithBucketType("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.builder.Build(); !errors.Is(err, object.ErrMissingField) {
				t.Fatalf("expected ErrMissingField, got %v", err)
			}
		})
	}
}

func TestDtFetch_Decode(t *testing.T) {
	op, err := NewDtFetchBuilder("b", "k").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := op.Response(); !errors.Is(err, ErrNoResponse) {
		t.Fatalf("expected ErrNoResponse, got %v", err)
	}

	resp, err := dtpb.NewFetchResponse(datatype.CounterElement(12), []byte("ctx"))
	if err != nil {
		t.Fatalf("NewFetchResponse: %v", err)
	}
	if err := op.Decode(dtpb.MsgDtFetchResp, resp.Marshal()); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := op.Response()
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	if got.Element.Kind != datatype.KindCounter || got.Element.Counter != 12 || string(got.Context) != "ctx" {
		t.Fatalf("unexpected response %+v", got)
	}
}

func TestDtFetch_DecodeServerError(t *testing.T) {
	op, err := NewDtFetchBuilder("b", "k").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	payload := (&dtpb.ErrorResponse{Message: []byte("no such bucket type"), Code: 1}).Marshal()
	err = op.Decode(dtpb.MsgErrorResp, payload)
	if !errors.Is(err, ErrServer) {
		t.Fatalf("expected ErrServer, got %v", err)
	}
	var serverErr *ServerError
	if !errors.As(err, &serverErr) || serverErr.Code != 1 || serverErr.Message != "no such bucket type" {
		t.Fatalf("unexpected server error %v", err)
	}

	if err := op.Decode(42, nil); err == nil {
		t.Fatalf("expected error for unexpected code")
	}
}
