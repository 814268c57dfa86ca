// Package command implements typed client commands on top of the cluster
// boundary.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/i-melnichenko/riak-wire/internal/cluster"
	"github.com/i-melnichenko/riak-wire/internal/datatype"
	"github.com/i-melnichenko/riak-wire/internal/operation"
)

//go:generate mockgen -source=../cluster/cluster.go -destination=mocks_test.go -package=$GOPACKAGE

const tracerName = "github.com/i-melnichenko/riak-wire/internal/command"

// ErrNilCluster is returned when Execute is given no cluster.
var ErrNilCluster = errors.New("command: nil cluster")

// Logger is a minimal structured logger interface, compatible with slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// Metrics captures command-level metric sinks.
type Metrics interface {
	ObserveCommandDuration(command string, d time.Duration, ok bool)
	IncCommandResult(command, result string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveCommandDuration(string, time.Duration, bool) {}
func (noopMetrics) IncCommandResult(string, string)                    {}

// Command results reported to Metrics.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultMismatch = "type_mismatch"
)

// FetchDatatype fetches the datatype at a location and converts it to T.
// Options may be changed between executions; each Execute works on a
// snapshot taken when it starts. A command must not run Execute
// concurrently with itself.
type FetchDatatype[T datatype.Datatype] struct {
	location  Location
	converter datatype.Converter[T]

	mu      sync.Mutex
	options FetchOptions

	logger  Logger
	tracer  oteltrace.Tracer
	metrics Metrics
}

// NewFetchDatatype returns a fetch of loc converted with conv. The causal
// context is requested unless WithIncludeContext(false) is applied.
func NewFetchDatatype[T datatype.Datatype](loc Location, conv datatype.Converter[T]) *FetchDatatype[T] {
	c := &FetchDatatype[T]{
		location:  loc,
		converter: conv,
		logger:    slog.New(slog.DiscardHandler),
		tracer:    otel.Tracer(tracerName),
		metrics:   noopMetrics{},
	}
	WithIncludeContext(true)(&c.options)
	return c
}

// FetchCounter fetches a counter.
func FetchCounter(loc Location) *FetchDatatype[*datatype.Counter] {
	return NewFetchDatatype(loc, datatype.AsCounter())
}

// FetchSet fetches a set.
func FetchSet(loc Location) *FetchDatatype[*datatype.Set] {
	return NewFetchDatatype(loc, datatype.AsSet())
}

// FetchMap fetches a map.
func FetchMap(loc Location) *FetchDatatype[*datatype.Map] {
	return NewFetchDatatype(loc, datatype.AsMap())
}

// WithOption applies opts. Later values win.
func (c *FetchDatatype[T]) WithOption(opts ...FetchOption) *FetchDatatype[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, opt := range opts {
		opt(&c.options)
	}
	return c
}

// WithLogger sets the logger. nil is ignored.
func (c *FetchDatatype[T]) WithLogger(l Logger) *FetchDatatype[T] {
	if l != nil {
		c.logger = l
	}
	return c
}

// WithTracer sets the tracer. nil is ignored.
func (c *FetchDatatype[T]) WithTracer(t oteltrace.Tracer) *FetchDatatype[T] {
	if t != nil {
		c.tracer = t
	}
	return c
}

// WithMetrics sets the metrics sink. nil is ignored.
func (c *FetchDatatype[T]) WithMetrics(m Metrics) *FetchDatatype[T] {
	if m != nil {
		c.metrics = m
	}
	return c
}

// Location returns the fetched location.
func (c *FetchDatatype[T]) Location() Location { return c.location }

// Options returns a copy of the current options.
func (c *FetchDatatype[T]) Options() FetchOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.options.clone()
}

// Operation builds the fetch operation for the current options without
// executing it.
func (c *FetchDatatype[T]) Operation() (*operation.DtFetch, error) {
	return c.buildOperation(c.Options())
}

func (c *FetchDatatype[T]) buildOperation(opts FetchOptions) (*operation.DtFetch, error) {
	if err := c.location.Validate(); err != nil {
		return nil, err
	}
	b := operation.NewDtFetchBuilder(c.location.Bucket, c.location.Key)
	if !c.location.HasDefaultBucketType() {
		b.WithBucketType(c.location.BucketType)
	}
	if err := opts.apply(b); err != nil {
		return nil, err
	}
	return b.Build()
}

// Execute submits the fetch to cl and waits for the typed result. Errors
// from cl are returned wrapped, without retry.
func (c *FetchDatatype[T]) Execute(ctx context.Context, cl cluster.Cluster) (*Response[T], error) {
	const name = "FetchDatatype"

	ctx, span := c.startSpan(ctx, "riak.command.FetchDatatype",
		attribute.String("riak.bucket_type", c.location.BucketType),
		attribute.String("riak.bucket", c.location.Bucket),
		attribute.String("riak.key", c.location.Key),
		attribute.String("riak.datatype", c.converter.Kind().String()),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.execute(ctx, cl)
	c.metrics.ObserveCommandDuration(name, time.Since(start), err == nil)

	switch {
	case err == nil:
		c.metrics.IncCommandResult(name, ResultOK)
		c.logger.Debug("datatype fetched", "location", c.location.String(), "has_context", resp.HasContext())
	case errors.Is(err, datatype.ErrTypeMismatch):
		c.metrics.IncCommandResult(name, ResultMismatch)
		spanRecordError(span, err)
	default:
		c.metrics.IncCommandResult(name, ResultError)
		spanRecordError(span, err)
		c.logger.Debug("datatype fetch failed", "location", c.location.String(), "error", err)
	}
	return resp, err
}

func (c *FetchDatatype[T]) execute(ctx context.Context, cl cluster.Cluster) (*Response[T], error) {
	if cl == nil {
		return nil, ErrNilCluster
	}
	op, err := c.buildOperation(c.Options())
	if err != nil {
		return nil, fmt.Errorf("fetch datatype %s: %w", c.location, err)
	}
	if err := cl.Execute(ctx, op); err != nil {
		return nil, fmt.Errorf("fetch datatype %s: %w", c.location, err)
	}
	raw, err := op.Response()
	if err != nil {
		return nil, fmt.Errorf("fetch datatype %s: %w", c.location, err)
	}
	value, err := c.converter.Convert(raw.Element)
	if err != nil {
		return nil, fmt.Errorf("fetch datatype %s: %w", c.location, err)
	}
	return &Response[T]{value: value, context: raw.Context}, nil
}

func (c *FetchDatatype[T]) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := c.tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func spanRecordError(span oteltrace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
}

// Response is the typed result of a fetch.
type Response[T datatype.Datatype] struct {
	value   T
	context []byte
}

// Datatype returns the fetched value.
func (r *Response[T]) Datatype() T { return r.value }

// Context returns the opaque causal context, or nil when none was
// returned.
func (r *Response[T]) Context() []byte { return r.context }

// HasContext reports whether a causal context was returned.
func (r *Response[T]) HasContext() bool { return len(r.context) > 0 }
