package clustergrpc

import (
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/i-melnichenko/riak-wire/internal/cluster"
)

func recordSpanError(span oteltrace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
}

func clientAttrs(target string, op cluster.Operation) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("riak.node.target", target),
		attribute.String("riak.operation", op.Name()),
		attribute.Int("riak.request.code", int(op.RequestCode())),
	}
}

func serverAttrs(req *Frame) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("riak.request.code", int(req.Code)),
		attribute.Int("riak.request.bytes", len(req.Payload)),
	}
}
