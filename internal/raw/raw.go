// Package raw converts the store's HTTP representation (headers plus a
// single or multipart/mixed body) into canonical objects, and back.
package raw

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"strings"

	"github.com/i-melnichenko/riak-wire/internal/linkheader"
	"github.com/i-melnichenko/riak-wire/internal/multipart"
	"github.com/i-melnichenko/riak-wire/internal/object"
)

// HTTP header names used by the raw interface.
const (
	HeaderLink           = "Link"
	HeaderLocation       = "Location"
	HeaderContentType    = "Content-Type"
	HeaderLastModified   = "Last-Modified"
	HeaderETag           = "ETag"
	HeaderVclock         = "X-Riak-Vclock"
	HeaderUsermetaPrefix = "X-Riak-Meta-"
)

// DefaultPrefix is the URL prefix under which the raw interface is mounted.
const DefaultPrefix = "/riak"

// ParseLinkHeader returns the links carried by a Link header value.
func ParseLinkHeader(header string) []object.Link {
	return linkheader.Parse(header)
}

// ParseUsermeta selects the user metadata headers and strips their prefix.
// The prefix match ignores case; the remainder keeps its case. When a name
// repeats, the last value wins.
func ParseUsermeta(h multipart.Header) map[string]string {
	meta := map[string]string{}
	for _, f := range h {
		if len(f.Name) <= len(HeaderUsermetaPrefix) {
			continue
		}
		if !strings.EqualFold(f.Name[:len(HeaderUsermetaPrefix)], HeaderUsermetaPrefix) {
			continue
		}
		meta[f.Name[len(HeaderUsermetaPrefix):]] = f.Value
	}
	return meta
}

// ParseObject builds the object described by a single-part response.
func ParseObject(bucket, key string, h multipart.Header, body []byte) (object.Object, error) {
	return buildObject(bucket, key, h, h.Get(HeaderVclock), body)
}

// ParseMultipart builds one object per sibling in a multipart/mixed
// response. Every sibling shares the response-level vclock. A part's
// Location header, when it names at least two path segments, overrides the
// enclosing bucket and key. The result is never nil.
func ParseMultipart(bucket, key string, h multipart.Header, body []byte) []object.Object {
	vclock := h.Get(HeaderVclock)
	objects := []object.Object{}
	for _, part := range multipart.Parse(h.Get(HeaderContentType), body) {
		partBucket, partKey := bucket, key
		if loc, ok := part.Header.Lookup(HeaderLocation); ok {
			if b, k, ok := linkheader.LastTwoSegments(loc); ok {
				partBucket, partKey = b, k
			}
		}
		o, err := buildObject(partBucket, partKey, part.Header, vclock, part.Body)
		if err != nil {
			continue
		}
		objects = append(objects, o)
	}
	return objects
}

// ParseResponse reads resp and returns its objects: the siblings of a
// multipart/mixed body, or the single object otherwise. The body is closed.
func ParseResponse(bucket, key string, resp *http.Response) ([]object.Object, error) {
	if resp == nil || resp.Body == nil {
		return nil, fmt.Errorf("raw: response has no body")
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("raw: read body: %w", err)
	}

	h := multipart.FromHTTP(resp.Header)
	if IsMultipart(h.Get(HeaderContentType)) {
		return ParseMultipart(bucket, key, h, body), nil
	}
	o, err := ParseObject(bucket, key, h, body)
	if err != nil {
		return nil, err
	}
	return []object.Object{o}, nil
}

// IsMultipart reports whether contentType names a multipart media type.
func IsMultipart(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

// EncodeHeaders renders the headers used to store o through the raw
// interface: content type, causal token, links rooted at prefix and user
// metadata with the prefix re-added.
func EncodeHeaders(o object.Object, prefix string) multipart.Header {
	h := multipart.Header{}
	if o.ContentType != "" {
		h.Add(HeaderContentType, o.ContentType)
	}
	if o.Vclock != "" {
		h.Add(HeaderVclock, o.Vclock)
	}
	if len(o.Links) > 0 {
		h.Add(HeaderLink, linkheader.Format(prefix, o.Links))
	}

	names := make([]string, 0, len(o.Usermeta))
	for name := range o.Usermeta {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.Add(HeaderUsermetaPrefix+name, o.Usermeta[name])
	}
	return h
}

func buildObject(bucket, key string, h multipart.Header, vclock string, body []byte) (object.Object, error) {
	return object.New(bucket, key,
		object.WithValue(body),
		object.WithLinks(ParseLinkHeader(h.Get(HeaderLink))),
		object.WithUsermeta(ParseUsermeta(h)),
		object.WithContentType(h.Get(HeaderContentType)),
		object.WithVclock(vclock),
		object.WithLastModified(h.Get(HeaderLastModified)),
		object.WithVTag(h.Get(HeaderETag)),
	)
}
