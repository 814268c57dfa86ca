package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/i-melnichenko/riak-wire/internal/cluster"
	"github.com/i-melnichenko/riak-wire/internal/command"
	"github.com/i-melnichenko/riak-wire/internal/datatype"
	"github.com/i-melnichenko/riak-wire/internal/operation"
)

// fetchFlags collects per-request options shared by fetch, fetch-batch and
// watch.
type fetchFlags struct {
	bucketType string
	opts       []command.FetchOption
}

func registerFetchFlags(fs *flag.FlagSet) *fetchFlags {
	ff := &fetchFlags{}
	fs.StringVar(&ff.bucketType, "type", operation.DefaultBucketType, "bucket type")
	ff.quorum(fs, "r", "read quorum (one|quorum|all|default|N)", command.WithR)
	ff.quorum(fs, "pr", "primary read quorum (one|quorum|all|default|N)", command.WithPR)
	ff.boolean(fs, "basic-quorum", "return early on a basic quorum of failures", command.WithBasicQuorum)
	ff.boolean(fs, "notfound-ok", "count not-found replies toward the quorum", command.WithNotFoundOK)
	ff.boolean(fs, "sloppy-quorum", "allow fallback replicas", command.WithSloppyQuorum)
	ff.boolean(fs, "include-context", "request the causal context (default true)", command.WithIncludeContext)
	fs.Func("server-timeout", "server-side timeout (e.g. 500ms)", func(s string) error {
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		ff.opts = append(ff.opts, command.WithTimeout(d))
		return nil
	})
	fs.Func("n-val", "number of replicas to consult", func(s string) error {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return err
		}
		ff.opts = append(ff.opts, command.WithNVal(uint32(n)))
		return nil
	})
	return ff
}

func (ff *fetchFlags) quorum(fs *flag.FlagSet, name, usage string, with func(command.Quorum) command.FetchOption) {
	fs.Func(name, usage, func(s string) error {
		q, err := command.ParseQuorum(s)
		if err != nil {
			return err
		}
		ff.opts = append(ff.opts, with(q))
		return nil
	})
}

func (ff *fetchFlags) boolean(fs *flag.FlagSet, name, usage string, with func(bool) command.FetchOption) {
	fs.Func(name, usage, func(s string) error {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		ff.opts = append(ff.opts, with(v))
		return nil
	})
}

func (ff *fetchFlags) location(bucket, key string) command.Location {
	return command.NewLocation(bucket, key).WithBucketType(ff.bucketType)
}

// parseFetchKind accepts the datatypes that can be fetched on their own.
func parseFetchKind(s string) (datatype.Kind, error) {
	kind, ok := datatype.ParseKind(s)
	switch {
	case !ok:
		return datatype.KindUnknown, fmt.Errorf("unknown datatype %q", s)
	case kind == datatype.KindCounter, kind == datatype.KindSet, kind == datatype.KindMap:
		return kind, nil
	default:
		return datatype.KindUnknown, fmt.Errorf("%s cannot be fetched on its own, use counter|set|map", kind)
	}
}

// instruments carries the observability sinks handed to every command.
type instruments struct {
	logger  command.Logger
	metrics command.Metrics
	tracer  oteltrace.Tracer
}

// viewRow is one rendered datatype entry. Map fields are flattened into
// dotted paths.
type viewRow struct {
	path  string
	kind  datatype.Kind
	value string
}

// datatypeView is the printable form of a fetched datatype. size is the
// counter value, or the element count of a set or map.
type datatypeView struct {
	kind    datatype.Kind
	size    int64
	rows    []viewRow
	context []byte
}

func fetchView(ctx context.Context, cl cluster.Cluster, kind datatype.Kind, loc command.Location, opts []command.FetchOption, inst instruments) (datatypeView, error) {
	switch kind {
	case datatype.KindCounter:
		return runFetch(ctx, cl, command.FetchCounter(loc), opts, inst)
	case datatype.KindSet:
		return runFetch(ctx, cl, command.FetchSet(loc), opts, inst)
	case datatype.KindMap:
		return runFetch(ctx, cl, command.FetchMap(loc), opts, inst)
	default:
		return datatypeView{}, fmt.Errorf("unsupported datatype %s", kind)
	}
}

func runFetch[T datatype.Datatype](ctx context.Context, cl cluster.Cluster, cmd *command.FetchDatatype[T], opts []command.FetchOption, inst instruments) (datatypeView, error) {
	resp, err := cmd.WithOption(opts...).
		WithLogger(inst.logger).
		WithMetrics(inst.metrics).
		WithTracer(inst.tracer).
		Execute(ctx, cl)
	if err != nil {
		return datatypeView{}, err
	}
	v := newView(resp.Datatype())
	v.context = resp.Context()
	return v, nil
}

func newView(d datatype.Datatype) datatypeView {
	v := datatypeView{kind: d.Kind()}
	switch d := d.(type) {
	case *datatype.Counter:
		v.size = d.Value()
		v.rows = []viewRow{{path: "value", kind: datatype.KindCounter, value: strconv.FormatInt(d.Value(), 10)}}
	case *datatype.Set:
		v.size = int64(d.Len())
		for i, e := range d.Strings() {
			v.rows = append(v.rows, viewRow{path: "#" + strconv.Itoa(i+1), kind: datatype.KindSet, value: e})
		}
	case *datatype.Map:
		v.size = int64(d.Len())
		v.rows = flattenMap("", d)
	}
	return v
}

func flattenMap(prefix string, m *datatype.Map) []viewRow {
	var rows []viewRow
	for _, key := range m.Keys() {
		field, ok := m.Get(key)
		if !ok {
			continue
		}
		path := key.Name
		if prefix != "" {
			path = prefix + "." + key.Name
		}
		switch f := field.(type) {
		case *datatype.Counter:
			rows = append(rows, viewRow{path: path, kind: key.Kind, value: strconv.FormatInt(f.Value(), 10)})
		case *datatype.Set:
			rows = append(rows, viewRow{path: path, kind: key.Kind, value: "{" + strings.Join(f.Strings(), ", ") + "}"})
		case *datatype.Register:
			rows = append(rows, viewRow{path: path, kind: key.Kind, value: strconv.Quote(string(f.Value()))})
		case *datatype.Flag:
			state := "disabled"
			if f.Enabled() {
				state = "enabled"
			}
			rows = append(rows, viewRow{path: path, kind: key.Kind, value: state})
		case *datatype.Map:
			nested := flattenMap(path, f)
			if len(nested) == 0 {
				rows = append(rows, viewRow{path: path, kind: key.Kind, value: "{}"})
			}
			rows = append(rows, nested...)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].path < rows[j].path })
	return rows
}

func printView(w io.Writer, loc command.Location, v datatypeView) {
	_, _ = fmt.Fprintf(w, "%s %s (%d)\n", loc, v.kind, v.size)
	for _, r := range v.rows {
		if v.kind == datatype.KindMap {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\n", r.path, r.kind, r.value)
			continue
		}
		_, _ = fmt.Fprintf(w, "  %s\t%s\n", r.path, r.value)
	}
	if len(v.context) > 0 {
		_, _ = fmt.Fprintf(w, "context %s\n", hex.EncodeToString(v.context))
	}
}

func cmdFetch(ctx context.Context, cl cluster.Cluster, kind datatype.Kind, loc command.Location, ff *fetchFlags, inst instruments) error {
	v, err := fetchView(ctx, cl, kind, loc, ff.opts, inst)
	if err != nil {
		if errors.Is(err, operation.ErrServer) {
			return fmt.Errorf("server rejected fetch: %w", err)
		}
		return err
	}
	printView(os.Stdout, loc, v)
	return nil
}

// cmdFetchBatch fetches one location per input line (bucket<TAB>key) with
// a shared client, printing a TSV status line per request.
func cmdFetchBatch(cl cluster.Cluster, kind datatype.Kind, ff *fetchFlags, inst instruments, timeout time.Duration, inPath string) error {
	var (
		r   io.Reader = os.Stdin
		f   *os.File
		err error
	)
	if inPath != "-" {
		// #nosec G304 -- CLI intentionally reads a user-provided local input file.
		f, err = os.Open(inPath)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	scanner := bufio.NewScanner(r)
	seq := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		seq++
		bucket, key, ok := strings.Cut(line, "\t")
		if !ok {
			fmt.Printf("err\t%d\t0\t\tinvalid_tsv_line\n", seq)
			continue
		}
		loc := ff.location(bucket, key)

		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		v, fetchErr := fetchView(ctx, cl, kind, loc, ff.opts, inst)
		cancel()
		us := time.Since(start).Microseconds()

		switch {
		case fetchErr == nil:
			fmt.Printf("ok\t%d\t%d\t%s\t%d\n", seq, us, loc, v.size)
		case isNotFound(fetchErr):
			fmt.Printf("notfound\t%d\t%d\t%s\t0\n", seq, us, loc)
		case errors.Is(fetchErr, context.DeadlineExceeded), status.Code(fetchErr) == codes.DeadlineExceeded:
			fmt.Printf("timeout\t%d\t%d\t%s\t%s\n", seq, us, loc, oneLineErr(fetchErr))
		default:
			fmt.Printf("err\t%d\t%d\t%s\t%s\n", seq, us, loc, oneLineErr(fetchErr))
		}
	}
	return scanner.Err()
}

func isNotFound(err error) bool {
	var se *operation.ServerError
	return errors.As(err, &se) && se.Message == "notfound"
}

func oneLineErr(err error) string {
	if err == nil {
		return ""
	}
	return strings.ReplaceAll(err.Error(), "\n", " ")
}
