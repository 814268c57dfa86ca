// Package service contains application services exposed via transports.
package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/i-melnichenko/riak-wire/internal/kv"
	"github.com/i-melnichenko/riak-wire/internal/protocol/dtpb"
)

// Error codes carried in RpbErrorResp replies.
const (
	ErrCodeGeneric  uint32 = 0
	ErrCodeNotFound uint32 = 1
)

// Logger is a minimal structured logger interface, compatible with slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// Metrics captures node-side metric sinks used by Datatypes.
type Metrics interface {
	ObserveNodeRequestDuration(nodeID, message string, d time.Duration)
	IncNodeRequest(nodeID, message, result string)
	SetNodeStoreItems(nodeID string, n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveNodeRequestDuration(string, string, time.Duration) {}
func (noopMetrics) IncNodeRequest(string, string, string)                    {}
func (noopMetrics) SetNodeStoreItems(string, int)                            {}

// Datatypes answers datatype request frames from an in-memory store.
type Datatypes struct {
	store   *kv.Store
	logger  Logger
	tracer  oteltrace.Tracer
	metrics Metrics
	nodeID  string
}

// NewDatatypes creates the frame handler for store.
func NewDatatypes(store *kv.Store, logger Logger, tracer oteltrace.Tracer, metrics Metrics, nodeID string) *Datatypes {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Datatypes{
		store:   store,
		logger:  logger,
		tracer:  tracer,
		metrics: metrics,
		nodeID:  nodeID,
	}
}

func (s *Datatypes) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := s.tracer.Start(ctx, name)
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

// Load seeds the store from a JSON array of commands.
func (s *Datatypes) Load(ctx context.Context, raw []byte) error {
	ctx, span := s.startSpan(ctx, "datatypes.service.Load")
	defer span.End()

	err := s.store.Load(ctx, raw)
	s.metrics.SetNodeStoreItems(s.nodeID, s.store.Len())
	if err != nil {
		spanRecordError(span, err)
		return err
	}
	s.logger.Info("store seeded", "items", s.store.Len())
	return nil
}

// Handle answers one request frame. Unknown message codes and lookups that
// miss are answered with RpbErrorResp.
func (s *Datatypes) Handle(ctx context.Context, code byte, payload []byte) (byte, []byte, error) {
	start := time.Now()
	message, result := messageName(code), "ok"
	defer func() {
		s.metrics.ObserveNodeRequestDuration(s.nodeID, message, time.Since(start))
		s.metrics.IncNodeRequest(s.nodeID, message, result)
	}()

	switch code {
	case dtpb.MsgDtFetchReq:
		respCode, resp, res := s.fetch(ctx, payload)
		result = res
		return respCode, resp, nil
	default:
		result = "unsupported"
		s.logger.Debug("unsupported message code", "code", code)
		return errorReply(ErrCodeGeneric, fmt.Sprintf("unknown message code: %d", code))
	}
}

func (s *Datatypes) fetch(ctx context.Context, payload []byte) (byte, []byte, string) {
	_, span := s.startSpan(ctx, "datatypes.service.Fetch")
	defer span.End()

	req, err := dtpb.UnmarshalFetchRequest(payload)
	if err != nil {
		spanRecordError(span, err)
		code, body, _ := errorReply(ErrCodeGeneric, err.Error())
		return code, body, "bad_request"
	}

	key := kv.Key{BucketType: string(req.Type), Bucket: string(req.Bucket), Key: string(req.Key)}
	span.SetAttributes(
		attribute.String("riak.bucket_type", key.BucketType),
		attribute.String("riak.bucket", key.Bucket),
		attribute.String("riak.key", key.Key),
	)

	el, vclock, ok := s.store.Get(key)
	if !ok {
		s.logger.Debug("datatype not found", "bucket", key.Bucket, "key", key.Key)
		code, body, _ := errorReply(ErrCodeNotFound, "notfound")
		return code, body, "notfound"
	}
	if req.IncludeContext != nil && !*req.IncludeContext {
		vclock = nil
	}

	resp, err := dtpb.NewFetchResponse(el, vclock)
	if err != nil {
		spanRecordError(span, err)
		code, body, _ := errorReply(ErrCodeGeneric, err.Error())
		return code, body, "error"
	}
	span.SetAttributes(attribute.String("riak.datatype", el.Kind.String()))
	return dtpb.MsgDtFetchResp, resp.Marshal(), "ok"
}

func errorReply(code uint32, msg string) (byte, []byte, error) {
	resp := &dtpb.ErrorResponse{Message: []byte(msg), Code: code}
	return dtpb.MsgErrorResp, resp.Marshal(), nil
}

func messageName(code byte) string {
	switch code {
	case dtpb.MsgDtFetchReq:
		return "DtFetchReq"
	default:
		return "unknown"
	}
}
