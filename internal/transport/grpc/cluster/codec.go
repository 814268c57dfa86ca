package clustergrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// codecName is the content subtype under which frames travel.
const codecName = "riakframe"

const (
	serviceName   = "riak.v1.RiakService"
	executeMethod = "/" + serviceName + "/Execute"
)

func init() {
	encoding.RegisterCodec(frameCodec{})
}

// Frame is one protocol message: a message code followed by its encoded
// body. On the wire the code is the first byte.
type Frame struct {
	Code    byte
	Payload []byte
}

// frameCodec marshals *Frame values without any protobuf envelope.
type frameCodec struct{}

func (frameCodec) Name() string { return codecName }

func (frameCodec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*Frame)
	if !ok {
		return nil, fmt.Errorf("cluster codec: cannot marshal %T", v)
	}
	out := make([]byte, 0, 1+len(f.Payload))
	out = append(out, f.Code)
	return append(out, f.Payload...), nil
}

func (frameCodec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*Frame)
	if !ok {
		return fmt.Errorf("cluster codec: cannot unmarshal into %T", v)
	}
	if len(data) == 0 {
		return fmt.Errorf("cluster codec: empty frame")
	}
	f.Code = data[0]
	f.Payload = append([]byte(nil), data[1:]...)
	return nil
}

// frameServer is the service implementation behind serviceDesc.
type frameServer interface {
	Execute(ctx context.Context, req *Frame) (*Frame, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*frameServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Execute", Handler: executeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "riak/v1/riak.proto",
}

func executeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Frame)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(frameServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: executeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(frameServer).Execute(ctx, req.(*Frame))
	}
	return interceptor(ctx, in, info, handler)
}
