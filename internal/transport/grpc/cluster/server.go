package clustergrpc

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrUnsupported is returned by a Handler for message codes it does not
// serve.
var ErrUnsupported = errors.New("cluster: unsupported message code")

// Handler answers request frames. An error reply the client should decode
// (for example RpbErrorResp) is a reply, not an error.
type Handler interface {
	Handle(ctx context.Context, code byte, payload []byte) (respCode byte, respPayload []byte, err error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, code byte, payload []byte) (byte, []byte, error)

func (f HandlerFunc) Handle(ctx context.Context, code byte, payload []byte) (byte, []byte, error) {
	return f(ctx, code, payload)
}

// Server serves frames by delegating to a Handler.
type Server struct {
	handler Handler
	tracer  oteltrace.Tracer
}

// NewServer creates a server adapter for handler.
func NewServer(handler Handler, tracer oteltrace.Tracer) *Server {
	return &Server{handler: handler, tracer: tracer}
}

// Register attaches srv to a gRPC server.
func Register(s grpc.ServiceRegistrar, srv *Server) {
	s.RegisterService(&serviceDesc, srv)
}

// Execute handles one request frame.
func (s *Server) Execute(ctx context.Context, req *Frame) (*Frame, error) {
	ctx, span := s.tracer.Start(ctx, "clustergrpc.server.Execute",
		oteltrace.WithSpanKind(oteltrace.SpanKindServer),
		oteltrace.WithAttributes(serverAttrs(req)...),
	)
	defer span.End()

	code, payload, err := s.handler.Handle(ctx, req.Code, req.Payload)
	if err != nil {
		recordSpanError(span, err)
		return nil, toGRPCStatus(err)
	}
	span.SetAttributes(attribute.Int("riak.response.code", int(code)))
	return &Frame{Code: code, Payload: payload}, nil
}

func toGRPCStatus(err error) error {
	switch {
	case errors.Is(err, ErrUnsupported):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
