package linkheader

import (
	"reflect"
	"testing"

	"github.com/i-melnichenko/riak-wire/internal/object"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   []object.Link
	}{
		{
			name:   "two links in header order",
			header: `</riak/b/k1>; riaktag="t1", </riak/b/k2>; riaktag="t2"`,
			want: []object.Link{
				{Bucket: "b", Key: "k1", Tag: "t1"},
				{Bucket: "b", Key: "k2", Tag: "t2"},
			},
		},
		{
			name:   "single segment path is dropped",
			header: `</k1>; riaktag="t1"`,
			want:   []object.Link{},
		},
		{
			name:   "entry without tag is dropped",
			header: `</riak/b>; rel="up", </riak/b/k>; riaktag="t"`,
			want:   []object.Link{{Bucket: "b", Key: "k", Tag: "t"}},
		},
		{
			name:   "duplicates kept",
			header: `</riak/b/k>; riaktag="t", </riak/b/k>; riaktag="t"`,
			want: []object.Link{
				{Bucket: "b", Key: "k", Tag: "t"},
				{Bucket: "b", Key: "k", Tag: "t"},
			},
		},
		{
			name:   "quoted comma and unquoted tag",
			header: `</riak/b/k1>; riaktag="a,b", </riak/b/k2>; riaktag=plain`,
			want: []object.Link{
				{Bucket: "b", Key: "k1", Tag: "a,b"},
				{Bucket: "b", Key: "k2", Tag: "plain"},
			},
		},
		{
			name:   "absolute url and escaped segments",
			header: `<http://host:8098/riak/my%20bucket/k%2F1>; RiakTag="t"`,
			want:   []object.Link{{Bucket: "my bucket", Key: "k/1", Tag: "t"}},
		},
		{
			name:   "empty header",
			header: "",
			want:   []object.Link{},
		},
		{
			name:   "garbage entries",
			header: `nonsense, <unterminated; riaktag="x"`,
			want:   []object.Link{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.header)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.header, got, tt.want)
			}
		})
	}
}

func TestParseEntries_FirstParamWins(t *testing.T) {
	entries := ParseEntries(`</riak/b/k>; riaktag="first"; riaktag="second"; rel=next`)
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if got := entries[0].Params[TagParam]; got != "first" {
		t.Fatalf("expected first tag to win, got %q", got)
	}
	if got := entries[0].Params["rel"]; got != "next" {
		t.Fatalf("expected rel=next, got %q", got)
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	links := []object.Link{
		{Bucket: "people", Key: "alice", Tag: "friend"},
		{Bucket: "odd bucket", Key: "k/1", Tag: `say "hi"`},
	}
	header := Format("/riak/", links)
	if got := Parse(header); !reflect.DeepEqual(got, links) {
		t.Fatalf("round trip mismatch:\nheader=%s\ngot=%+v", header, got)
	}
}

func TestLastTwoSegments(t *testing.T) {
	b, k, ok := LastTwoSegments("/riak/b/k/?vtag=1")
	if !ok || b != "b" || k != "k" {
		t.Fatalf("unexpected result: %q %q %v", b, k, ok)
	}
	if _, _, ok := LastTwoSegments("/only"); ok {
		t.Fatalf("expected single segment to fail")
	}
}
