// Package linkheader parses and renders HTTP Link header values carrying
// object links.
package linkheader

import (
	"net/url"
	"strings"

	"github.com/i-melnichenko/riak-wire/internal/object"
)

// TagParam is the link parameter naming the link tag.
const TagParam = "riaktag"

// Entry is one `<url>; name=value ...` element of a Link header.
// Parameter names are lower-cased; the first occurrence of a name wins.
type Entry struct {
	URL    string
	Params map[string]string
}

// ParseEntries splits a Link header into entries, in header order and
// without deduplication. Elements that are not of the form `<url>...` are
// skipped.
func ParseEntries(header string) []Entry {
	entries := []Entry{}
	for _, raw := range splitTopLevel(header, ',') {
		if e, ok := parseEntry(raw); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// Parse returns the links described by a Link header. Entries without a tag
// parameter, or whose URL path has fewer than two segments, are dropped.
func Parse(header string) []object.Link {
	links := []object.Link{}
	for _, e := range ParseEntries(header) {
		if l, ok := parseLink(e); ok {
			links = append(links, l)
		}
	}
	return links
}

func parseLink(e Entry) (object.Link, bool) {
	tag, ok := e.Params[TagParam]
	if !ok {
		return object.Link{}, false
	}
	bucket, key, ok := LastTwoSegments(e.URL)
	if !ok {
		return object.Link{}, false
	}
	return object.Link{Bucket: bucket, Key: key, Tag: tag}, true
}

// LastTwoSegments returns the last two non-empty `/`-separated segments of
// a URL path, path-unescaped. ok is false when fewer than two exist.
func LastTwoSegments(rawURL string) (bucket, key string, ok bool) {
	path := rawURL
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	segs := make([]string, 0, 4)
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) < 2 {
		return "", "", false
	}
	return unescape(segs[len(segs)-2]), unescape(segs[len(segs)-1]), true
}

// Format renders links as a Link header value rooted at prefix
// (for example "/riak").
func Format(prefix string, links []object.Link) string {
	prefix = strings.TrimRight(prefix, "/")
	parts := make([]string, 0, len(links))
	for _, l := range links {
		var b strings.Builder
		b.WriteString("<")
		b.WriteString(prefix)
		b.WriteString("/")
		b.WriteString(url.PathEscape(l.Bucket))
		b.WriteString("/")
		b.WriteString(url.PathEscape(l.Key))
		b.WriteString(">; ")
		b.WriteString(TagParam)
		b.WriteString("=")
		b.WriteString(quote(l.Tag))
		parts = append(parts, b.String())
	}
	return strings.Join(parts, ", ")
}

func parseEntry(raw string) (Entry, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "<") {
		return Entry{}, false
	}
	end := strings.IndexByte(raw, '>')
	if end < 0 {
		return Entry{}, false
	}

	e := Entry{URL: strings.TrimSpace(raw[1:end]), Params: map[string]string{}}
	for _, p := range splitTopLevel(raw[end+1:], ';') {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		name, val, _ := strings.Cut(p, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, seen := e.Params[name]; seen {
			continue
		}
		e.Params[name] = unquote(strings.TrimSpace(val))
	}
	return e, true
}

// splitTopLevel splits s on sep, ignoring separators inside <...> or a
// quoted string.
func splitTopLevel(s string, sep byte) []string {
	var (
		out     []string
		start   int
		inAngle bool
		inQuote bool
		escaped bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inQuote && c == '\\':
			escaped = true
		case c == '"' && !inAngle:
			inQuote = !inQuote
		case inQuote:
		case c == '<':
			inAngle = true
		case c == '>':
			inAngle = false
		case c == sep && !inAngle:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

func unquote(v string) string {
	if len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
		return v
	}
	v = v[1 : len(v)-1]
	if !strings.Contains(v, `\`) {
		return v
	}
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' && i+1 < len(v) {
			i++
		}
		b.WriteByte(v[i])
	}
	return b.String()
}

func quote(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}

func unescape(seg string) string {
	if u, err := url.PathUnescape(seg); err == nil {
		return u
	}
	return seg
}
