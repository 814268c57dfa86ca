package multipart

import (
	"net/http"
	"testing"
)

const siblingsBody = "\r\n--AbCd\r\n" +
	"Content-Type: text/plain\r\n" +
	"X-Riak-Meta-Color: red\r\n" +
	"Link: </riak/b/other>; riaktag=\"t\"\r\n" +
	"\r\n" +
	"first value\r\n" +
	"--AbCd\r\n" +
	"Content-Type: application/json\r\n" +
	"\r\n" +
	"{\"n\":2}\r\n" +
	"--AbCd--\r\n"

func TestParse_TwoParts(t *testing.T) {
	parts := Parse(`multipart/mixed; boundary=AbCd`, []byte(siblingsBody))
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}

	if got := string(parts[0].Body); got != "first value" {
		t.Fatalf("unexpected first body %q", got)
	}
	if got := parts[0].Header.Get("content-type"); got != "text/plain" {
		t.Fatalf("unexpected first content type %q", got)
	}
	if got := parts[0].Header[1].Name; got != "X-Riak-Meta-Color" {
		t.Fatalf("expected header name case preserved, got %q", got)
	}
	if got := string(parts[1].Body); got != `{"n":2}` {
		t.Fatalf("unexpected second body %q", got)
	}
}

func TestParse_EmptyCases(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{name: "empty body", contentType: "multipart/mixed; boundary=x", body: ""},
		{name: "no boundary", contentType: "multipart/mixed", body: siblingsBody},
		{name: "not multipart", contentType: "text/plain", body: siblingsBody},
		{name: "bad content type", contentType: ";;;", body: siblingsBody},
		{name: "only close delimiter", contentType: "multipart/mixed; boundary=x", body: "--x--\r\n"},
		{name: "unterminated part without separator", contentType: "multipart/mixed; boundary=x", body: "--x\r\nA: b\r\nbody"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := Parse(tt.contentType, []byte(tt.body))
			if parts == nil {
				t.Fatalf("expected non-nil slice")
			}
			if len(parts) != 0 {
				t.Fatalf("expected no parts, got %d", len(parts))
			}
		})
	}
}

func TestParse_LFOnlyAndHeaderlessPart(t *testing.T) {
	body := "preamble\n--x\n\nno headers here\n--x\nA: 1\n continued\n\nbody\n--x--\nepilogue"
	parts := Parse("multipart/mixed; boundary=x", []byte(body))
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if len(parts[0].Header) != 0 || string(parts[0].Body) != "no headers here" {
		t.Fatalf("unexpected headerless part: %+v", parts[0])
	}
	if got := parts[1].Header.Get("a"); got != "1 continued" {
		t.Fatalf("expected folded header, got %q", got)
	}
}

func TestParse_DropsPartWithoutSeparator(t *testing.T) {
	body := "--x\r\nA: 1\r\n--x\r\nB: 2\r\n\r\nok\r\n--x--"
	parts := Parse("multipart/mixed; boundary=x", []byte(body))
	if len(parts) != 1 || string(parts[0].Body) != "ok" {
		t.Fatalf("expected only the well-formed part, got %+v", parts)
	}
}

func TestParse_KeepsFinalPartWithoutCloseDelimiter(t *testing.T) {
	body := "--b\r\nContent-Type: text/plain\r\n\r\none\r\n--b\r\nContent-Type: text/plain\r\n\r\ntwo\r\n"
	parts := Parse("multipart/mixed; boundary=b", []byte(body))
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if got := string(parts[1].Body); got != "two" {
		t.Fatalf("unexpected final body %q", got)
	}
	if got := parts[1].Header.Get("content-type"); got != "text/plain" {
		t.Fatalf("unexpected final header %q", got)
	}
}

func TestParse_IgnoresBoundaryPrefixInsideBody(t *testing.T) {
	body := "--x\r\n\r\nline\r\n--xy not a delimiter\r\n--x--"
	parts := Parse("multipart/mixed; boundary=x", []byte(body))
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	if got := string(parts[0].Body); got != "line\r\n--xy not a delimiter" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestHeader_SetAndHTTP(t *testing.T) {
	h := FromHTTP(http.Header{"B": {"2"}, "A": {"1", "1b"}})
	if len(h) != 3 || h[0].Name != "A" {
		t.Fatalf("unexpected conversion: %+v", h)
	}
	h.Set("a", "replaced")
	if got := h.Get("A"); got != "replaced" {
		t.Fatalf("expected replaced value, got %q", got)
	}
	if got := h.HTTP().Values("A"); len(got) != 1 {
		t.Fatalf("expected single A value, got %v", got)
	}
}
