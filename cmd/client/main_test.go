package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/i-melnichenko/riak-wire/internal/cluster"
	"github.com/i-melnichenko/riak-wire/internal/command"
	"github.com/i-melnichenko/riak-wire/internal/datatype"
	"github.com/i-melnichenko/riak-wire/internal/operation"
	"github.com/i-melnichenko/riak-wire/internal/protocol/dtpb"
)

// replyCluster answers every operation with a fixed frame.
type replyCluster struct {
	code    byte
	payload []byte
	err     error
}

func (c replyCluster) Execute(_ context.Context, op cluster.Operation) error {
	if c.err != nil {
		return c.err
	}
	return op.Decode(c.code, c.payload)
}

func testInstruments() instruments {
	return instruments{
		logger: slog.New(slog.DiscardHandler),
		tracer: noop.NewTracerProvider().Tracer("test/cmd/client"),
	}
}

func mapReply(t *testing.T) replyCluster {
	t.Helper()
	el := datatype.MapElement(
		datatype.MapEntry{Field: datatype.MapKey{Name: "visits", Kind: datatype.KindCounter}, Counter: 3},
		datatype.MapEntry{Field: datatype.MapKey{Name: "admin", Kind: datatype.KindFlag}, Flag: true},
		datatype.MapEntry{
			Field: datatype.MapKey{Name: "address", Kind: datatype.KindMap},
			Map: []datatype.MapEntry{
				{Field: datatype.MapKey{Name: "city", Kind: datatype.KindRegister}, Register: []byte("Oslo")},
			},
		},
	)
	resp, err := dtpb.NewFetchResponse(el, []byte{0xbe, 0xef})
	if err != nil {
		t.Fatalf("NewFetchResponse: %v", err)
	}
	return replyCluster{code: dtpb.MsgDtFetchResp, payload: resp.Marshal()}
}

func TestFetchView_FlattensMap(t *testing.T) {
	loc := command.NewLocation("users", "ann").WithBucketType("maps")
	v, err := fetchView(context.Background(), mapReply(t), datatype.KindMap, loc, nil, testInstruments())
	if err != nil {
		t.Fatalf("fetchView: %v", err)
	}
	if v.kind != datatype.KindMap || v.size != 3 {
		t.Fatalf("unexpected view header %s/%d", v.kind, v.size)
	}

	var got []string
	for _, r := range v.rows {
		got = append(got, fmt.Sprintf("%s=%s", r.path, r.value))
	}
	want := `admin=enabled|address.city="Oslo"|visits=3`
	if strings.Join(got, "|") != want {
		t.Fatalf("unexpected rows %q, want %q", strings.Join(got, "|"), want)
	}

	var out bytes.Buffer
	printView(&out, loc, v)
	if !strings.Contains(out.String(), "maps/users/ann map (3)") || !strings.Contains(out.String(), "context beef") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestFetchView_TypeMismatch(t *testing.T) {
	_, err := fetchView(context.Background(), mapReply(t), datatype.KindCounter, command.NewLocation("b", "k"), nil, testInstruments())
	if !errors.Is(err, datatype.ErrTypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
	if errorKind(err) != "TYPE_MISMATCH" {
		t.Fatalf("unexpected error kind %q", errorKind(err))
	}
}

func TestParseFetchKind(t *testing.T) {
	tests := []struct {
		in      string
		want    datatype.Kind
		wantErr bool
	}{
		{in: "counter", want: datatype.KindCounter},
		{in: "set", want: datatype.KindSet},
		{in: "map", want: datatype.KindMap},
		{in: "flag", wantErr: true},
		{in: "register", wantErr: true},
		{in: "hll", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFetchKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFetchKind(%q) err = %v", tt.in, err)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("parseFetchKind(%q) = %s", tt.in, got)
			}
		})
	}
}

func TestRegisterFetchFlags(t *testing.T) {
	fs := newFlagSet("test")
	ff := registerFetchFlags(fs)
	args := []string{
		"--type", "maps",
		"--r", "one",
		"--pr", "2",
		"--include-context=false",
		"--server-timeout", "250ms",
		"--n-val", "3",
		"map", "b", "k",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if fs.NArg() != 3 {
		t.Fatalf("expected 3 positional args, got %d", fs.NArg())
	}

	cmd := command.FetchMap(ff.location("b", "k")).WithOption(ff.opts...)
	if cmd.Location().BucketType != "maps" {
		t.Fatalf("unexpected bucket type %q", cmd.Location().BucketType)
	}
	opts := cmd.Options()
	if opts.R == nil || *opts.R != command.QuorumOne {
		t.Fatalf("unexpected r %v", opts.R)
	}
	if opts.PR == nil || *opts.PR != 2 {
		t.Fatalf("unexpected pr %v", opts.PR)
	}
	if opts.IncludeContext == nil || *opts.IncludeContext {
		t.Fatalf("expected include_context=false")
	}
	if opts.Timeout == nil || *opts.Timeout != 250*time.Millisecond {
		t.Fatalf("unexpected timeout %v", opts.Timeout)
	}
	if opts.NVal == nil || *opts.NVal != 3 {
		t.Fatalf("unexpected n_val %v", opts.NVal)
	}
}

func TestRegisterFetchFlags_RejectsBadQuorum(t *testing.T) {
	fs := newFlagSet("test")
	registerFetchFlags(fs)
	if err := fs.Parse([]string{"--r", "most"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestCmdJiak(t *testing.T) {
	in := `{"bucket":"b","key":"k","value":{"name":"ann","usermeta":{"team":"red"}},"links":[["b2","k2","t"]],"vclock":"vc"}`

	var out bytes.Buffer
	if err := cmdJiak(&out, strings.NewReader(in), "/riak", false); err != nil {
		t.Fatalf("cmdJiak: %v", err)
	}
	if !strings.Contains(out.String(), `"vclock":"vc"`) || !strings.Contains(out.String(), `"usermeta":{"team":"red"}`) {
		t.Fatalf("unexpected encoding %s", out.String())
	}

	out.Reset()
	if err := cmdJiak(&out, strings.NewReader(in), "/riak", true); err != nil {
		t.Fatalf("cmdJiak headers: %v", err)
	}
	for _, want := range []string{
		"Content-Type: application/json",
		"X-Riak-Vclock: vc",
		`Link: </riak/b2/k2>; riaktag="t"`,
		"X-Riak-Meta-team: red",
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("missing %q in\n%s", want, out.String())
		}
	}
}

func TestCmdJiak_MissingKey(t *testing.T) {
	err := cmdJiak(&bytes.Buffer{}, strings.NewReader(`{"bucket":"b"}`), "/riak", false)
	if err == nil {
		t.Fatalf("expected error for missing key")
	}
}

const siblingsBody = "\r\n--boundary1\r\n" +
	"Content-Type: text/plain\r\n" +
	"Location: /riak/fruit/apple\r\n" +
	"\r\n" +
	"red\r\n" +
	"--boundary1\r\n" +
	"Content-Type: application/json\r\n" +
	"\r\n" +
	"{\"colour\":\"green\"}\r\n" +
	"--boundary1--\r\n"

func siblingsDump() string {
	return "HTTP/1.1 300 Multiple Choices\r\n" +
		"X-Riak-Vclock: vc1\r\n" +
		"Content-Type: multipart/mixed; boundary=boundary1\r\n" +
		"Content-Length: " + strconv.Itoa(len(siblingsBody)) + "\r\n" +
		"\r\n" + siblingsBody
}

func TestCmdSiblings(t *testing.T) {
	var out bytes.Buffer
	if err := cmdSiblings(&out, strings.NewReader(siblingsDump()), "fruit", "pear", "/riak", false); err != nil {
		t.Fatalf("cmdSiblings: %v", err)
	}
	s := out.String()
	for _, want := range []string{"2 sibling(s)", "[1] fruit/apple", "[2] fruit/pear", "X-Riak-Vclock: vc1", "red"} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %q in\n%s", want, s)
		}
	}
}

func TestCmdSiblings_AsJiak(t *testing.T) {
	var out bytes.Buffer
	if err := cmdSiblings(&out, strings.NewReader(siblingsDump()), "fruit", "pear", "/riak", true); err != nil {
		t.Fatalf("cmdSiblings: %v", err)
	}
	s := out.String()
	if !strings.Contains(s, `"value":{"v":"\"red\""}`) {
		t.Fatalf("expected quoted fallback for text sibling in\n%s", s)
	}
	if !strings.Contains(s, `"value":{"colour":"green"}`) {
		t.Fatalf("expected JSON sibling value in\n%s", s)
	}
}

type recordingSink struct {
	location, kind string
	size           int64
	calls          int
}

func (s *recordingSink) SetWatchedSize(location, kind string, size int64) {
	s.location, s.kind, s.size = location, kind, size
	s.calls++
}

func TestWatchModel_Snapshots(t *testing.T) {
	sink := &recordingSink{}
	loc := command.NewLocation("stats", "hits")
	m := newWatchModel(loc, datatype.KindCounter, nil, sink, time.Second, time.Second)

	next, cmd := m.Update(snapshotMsg{
		view: newView(datatype.NewCounter(7)),
		ts:   time.Now(),
	})
	if cmd == nil {
		t.Fatalf("expected the next tick to be scheduled")
	}
	wm := next.(watchModel)
	if sink.calls != 1 || sink.size != 7 || sink.location != "stats/hits" || sink.kind != "counter" {
		t.Fatalf("unexpected sink state %+v", sink)
	}
	if !strings.Contains(wm.View(), "Watch counter stats/hits") {
		t.Fatalf("unexpected view:\n%s", wm.View())
	}

	notFound := fmt.Errorf("fetch datatype stats/hits: %w", &operation.ServerError{Code: 1, Message: "notfound"})
	next, _ = wm.Update(snapshotMsg{err: notFound, ts: time.Now()})
	wm = next.(watchModel)
	if wm.errCount != 1 || wm.view.size != 7 || sink.calls != 1 {
		t.Fatalf("error poll must keep the last view, got %+v", wm)
	}
	if !strings.Contains(wm.View(), "NOT_FOUND") {
		t.Fatalf("expected error section in view:\n%s", wm.View())
	}
}
