// Package dtpb encodes and decodes the protocol buffer messages used to
// fetch replicated datatypes: DtFetchReq, DtFetchResp and RpbErrorResp.
// Field numbers follow riak_dt.proto; unknown fields are skipped.
package dtpb

import (
	"bytes"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message codes that prefix every frame.
const (
	MsgErrorResp   byte = 0
	MsgDtFetchReq  byte = 80
	MsgDtFetchResp byte = 81
)

// ErrMalformed is wrapped by every decoding error.
var ErrMalformed = errors.New("dtpb: malformed message")

// fieldReader walks the fields of one encoded message.
type fieldReader struct {
	b   []byte
	err error
}

func (r *fieldReader) next() (protowire.Number, protowire.Type, bool) {
	if r.err != nil || len(r.b) == 0 {
		return 0, 0, false
	}
	num, typ, n := protowire.ConsumeTag(r.b)
	if n < 0 {
		r.fail(n)
		return 0, 0, false
	}
	r.b = r.b[n:]
	return num, typ, true
}

func (r *fieldReader) bytes() []byte {
	v, n := protowire.ConsumeBytes(r.b)
	if n < 0 {
		r.fail(n)
		return nil
	}
	r.b = r.b[n:]
	return bytes.Clone(v)
}

func (r *fieldReader) varint() uint64 {
	v, n := protowire.ConsumeVarint(r.b)
	if n < 0 {
		r.fail(n)
		return 0
	}
	r.b = r.b[n:]
	return v
}

func (r *fieldReader) skip(num protowire.Number, typ protowire.Type) {
	n := protowire.ConsumeFieldValue(num, typ, r.b)
	if n < 0 {
		r.fail(n)
		return
	}
	r.b = r.b[n:]
}

func (r *fieldReader) fail(n int) {
	r.err = fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
}

func (r *fieldReader) wrongType(num protowire.Number, typ protowire.Type) {
	r.err = fmt.Errorf("%w: field %d has wire type %d", ErrMalformed, num, typ)
}

// expect reports whether the current field has the wanted wire type and
// records an error otherwise.
func (r *fieldReader) expect(num protowire.Number, got, want protowire.Type) bool {
	if got != want {
		r.wrongType(num, got)
		return false
	}
	return true
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBoolField(b []byte, num protowire.Number, v bool) []byte {
	return appendVarintField(b, num, protowire.EncodeBool(v))
}

func appendSint64Field(b []byte, num protowire.Number, v int64) []byte {
	return appendVarintField(b, num, protowire.EncodeZigZag(v))
}
