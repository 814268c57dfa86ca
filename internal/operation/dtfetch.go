// Package operation implements the store operations submitted through a
// cluster.Cluster.
package operation

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/i-melnichenko/riak-wire/internal/datatype"
	"github.com/i-melnichenko/riak-wire/internal/object"
	"github.com/i-melnichenko/riak-wire/internal/protocol/dtpb"
)

// DefaultBucketType is sent when no bucket type is chosen.
const DefaultBucketType = "default"

// ErrNoResponse is returned by Response before a successful execution.
var ErrNoResponse = errors.New("operation: no response yet")

// DtFetchBuilder assembles a datatype fetch. The built operation does not
// share state with the builder.
type DtFetchBuilder struct {
	req dtpb.FetchRequest
}

// NewDtFetchBuilder starts a fetch of bucket/key in the default bucket type.
func NewDtFetchBuilder(bucket, key string) *DtFetchBuilder {
	return &DtFetchBuilder{req: dtpb.FetchRequest{
		Bucket: []byte(bucket),
		Key:    []byte(key),
		Type:   []byte(DefaultBucketType),
	}}
}

func (b *DtFetchBuilder) WithBucketType(t string) *DtFetchBuilder {
	b.req.Type = []byte(t)
	return b
}

func (b *DtFetchBuilder) WithR(r uint32) *DtFetchBuilder {
	b.req.R = &r
	return b
}

func (b *DtFetchBuilder) WithPR(pr uint32) *DtFetchBuilder {
	b.req.PR = &pr
	return b
}

func (b *DtFetchBuilder) WithBasicQuorum(v bool) *DtFetchBuilder {
	b.req.BasicQuorum = &v
	return b
}

func (b *DtFetchBuilder) WithNotFoundOK(v bool) *DtFetchBuilder {
	b.req.NotFoundOK = &v
	return b
}

// WithTimeout sets the server-side timeout in milliseconds.
func (b *DtFetchBuilder) WithTimeout(ms uint32) *DtFetchBuilder {
	b.req.Timeout = &ms
	return b
}

func (b *DtFetchBuilder) WithSloppyQuorum(v bool) *DtFetchBuilder {
	b.req.SloppyQuorum = &v
	return b
}

func (b *DtFetchBuilder) WithNVal(n uint32) *DtFetchBuilder {
	b.req.NVal = &n
	return b
}

func (b *DtFetchBuilder) WithIncludeContext(v bool) *DtFetchBuilder {
	b.req.IncludeContext = &v
	return b
}

// Build returns the operation. Bucket, key and bucket type must be set.
func (b *DtFetchBuilder) Build() (*DtFetch, error) {
	switch {
	case len(b.req.Bucket) == 0:
		return nil, &object.MissingFieldError{Field: "bucket"}
	case len(b.req.Key) == 0:
		return nil, &object.MissingFieldError{Field: "key"}
	case len(b.req.Type) == 0:
		return nil, &object.MissingFieldError{Field: "bucket type"}
	}
	return &DtFetch{req: copyRequest(b.req)}, nil
}

// DtFetch fetches one datatype. The request is fixed at build time.
type DtFetch struct {
	req  dtpb.FetchRequest
	resp *DtFetchResponse
}

// DtFetchResponse is the decoded reply of a DtFetch.
type DtFetchResponse struct {
	Element datatype.Element
	Context []byte
}

func (*DtFetch) Name() string { return "DtFetch" }

func (*DtFetch) RequestCode() byte { return dtpb.MsgDtFetchReq }

// Request returns a copy of the request.
func (op *DtFetch) Request() dtpb.FetchRequest { return copyRequest(op.req) }

func (op *DtFetch) Encode() ([]byte, error) {
	return op.req.Marshal(), nil
}

// Decode consumes a DtFetchResp or an RpbErrorResp frame.
func (op *DtFetch) Decode(code byte, payload []byte) error {
	switch code {
	case dtpb.MsgDtFetchResp:
		msg, err := dtpb.UnmarshalFetchResponse(payload)
		if err != nil {
			return err
		}
		el, err := msg.Element()
		if err != nil {
			return err
		}
		op.resp = &DtFetchResponse{Element: el, Context: msg.Context}
		return nil
	case dtpb.MsgErrorResp:
		return DecodeServerError(payload)
	default:
		return fmt.Errorf("operation: %s: unexpected response code %d", op.Name(), code)
	}
}

// Response returns the decoded reply, or ErrNoResponse.
func (op *DtFetch) Response() (*DtFetchResponse, error) {
	if op.resp == nil {
		return nil, ErrNoResponse
	}
	return op.resp, nil
}

func copyRequest(r dtpb.FetchRequest) dtpb.FetchRequest {
	out := r
	out.Bucket = bytes.Clone(r.Bucket)
	out.Key = bytes.Clone(r.Key)
	out.Type = bytes.Clone(r.Type)
	out.R = clonePtr(r.R)
	out.PR = clonePtr(r.PR)
	out.BasicQuorum = clonePtr(r.BasicQuorum)
	out.NotFoundOK = clonePtr(r.NotFoundOK)
	out.Timeout = clonePtr(r.Timeout)
	out.SloppyQuorum = clonePtr(r.SloppyQuorum)
	out.NVal = clonePtr(r.NVal)
	out.IncludeContext = clonePtr(r.IncludeContext)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
