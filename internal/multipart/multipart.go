// Package multipart splits multipart/mixed bodies into parts while keeping
// each part's header names exactly as received.
package multipart

import (
	"bytes"
	"mime"
	"strings"
)

// Part is one body part of a multipart document.
type Part struct {
	Header Header
	Body   []byte
}

// Boundary extracts the boundary parameter from a multipart Content-Type.
func Boundary(contentType string) (string, bool) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return "", false
	}
	b := params["boundary"]
	return b, b != ""
}

// Parse splits body into parts using the boundary named by contentType.
// It never returns nil: a missing boundary, an empty body or a body without
// any part yields an empty slice. Parts lacking the blank line that
// separates headers from body are dropped. A missing close delimiter still
// yields the final part.
func Parse(contentType string, body []byte) []Part {
	parts := []Part{}
	boundary, ok := Boundary(contentType)
	if !ok || len(body) == 0 {
		return parts
	}

	for _, raw := range split(body, []byte("--"+boundary)) {
		if p, ok := parsePart(raw); ok {
			parts = append(parts, p)
		}
	}
	return parts
}

// split returns the raw contents between consecutive delimiter lines.
// Preamble and epilogue are discarded. Without a close delimiter the rest
// of the body after the last delimiter is the final part.
func split(body, delim []byte) [][]byte {
	var out [][]byte

	pos := delimiterAt(body, delim, 0)
	for pos >= 0 {
		after := pos + len(delim)
		if bytes.HasPrefix(body[after:], []byte("--")) {
			break // close delimiter
		}
		start := len(body)
		if nl := bytes.IndexByte(body[after:], '\n'); nl >= 0 {
			start = after + nl + 1
		}

		next := delimiterAt(body, delim, start)
		if next < 0 {
			out = append(out, trimLineEnd(body[start:]))
			break
		}
		out = append(out, trimLineEnd(body[start:next]))
		pos = next
	}
	return out
}

// delimiterAt finds the next occurrence of delim at the beginning of a line,
// searching from offset from.
func delimiterAt(body, delim []byte, from int) int {
	for from <= len(body) {
		i := bytes.Index(body[from:], delim)
		if i < 0 {
			return -1
		}
		at := from + i
		if (at == 0 || body[at-1] == '\n') && delimiterEnds(body[at+len(delim):]) {
			return at
		}
		from = at + 1
	}
	return -1
}

// delimiterEnds reports whether rest may follow a boundary delimiter:
// end of input, a line end, transport padding or the close marker.
func delimiterEnds(rest []byte) bool {
	if len(rest) == 0 {
		return true
	}
	switch rest[0] {
	case '\r', '\n', ' ', '\t':
		return true
	}
	return bytes.HasPrefix(rest, []byte("--"))
}

func trimLineEnd(b []byte) []byte {
	if bytes.HasSuffix(b, []byte("\r\n")) {
		return b[:len(b)-2]
	}
	if bytes.HasSuffix(b, []byte("\n")) {
		return b[:len(b)-1]
	}
	return b
}

func parsePart(raw []byte) (Part, bool) {
	headerBlock, body, ok := cutHeaders(raw)
	if !ok {
		return Part{}, false
	}
	return Part{
		Header: parseHeaderBlock(headerBlock),
		Body:   append([]byte(nil), body...),
	}, true
}

func cutHeaders(raw []byte) (headers, body []byte, ok bool) {
	// A part with no headers starts directly with the blank line.
	if bytes.HasPrefix(raw, []byte("\r\n")) {
		return nil, raw[2:], true
	}
	if bytes.HasPrefix(raw, []byte("\n")) {
		return nil, raw[1:], true
	}

	crlf := bytes.Index(raw, []byte("\r\n\r\n"))
	lf := bytes.Index(raw, []byte("\n\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return raw[:crlf], raw[crlf+4:], true
	case lf >= 0:
		return raw[:lf], raw[lf+2:], true
	default:
		return nil, nil, false
	}
}

func parseHeaderBlock(block []byte) Header {
	h := Header{}
	for _, line := range strings.Split(string(block), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && len(h) > 0 {
			last := &h[len(h)-1]
			last.Value += " " + strings.TrimSpace(line)
			continue
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		h.Add(name, strings.TrimSpace(value))
	}
	return h
}
