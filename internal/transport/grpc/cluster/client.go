// Package clustergrpc carries cluster operations over gRPC as opaque
// protocol frames, and serves them from a frame handler.
package clustergrpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/i-melnichenko/riak-wire/internal/cluster"
)

// ErrUnavailable is returned by ClusterClient when no node answered.
var ErrUnavailable = errors.New("cluster client: no node available")

// Metrics captures transport-level metric sinks.
type Metrics interface {
	ObserveClientRPCDuration(target, op string, d time.Duration, result string)
	IncClientFailover(target string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveClientRPCDuration(string, string, time.Duration, string) {}
func (noopMetrics) IncClientFailover(string)                                       {}

// Client sends frames to a single node.
type Client struct {
	conn    *grpc.ClientConn
	target  string
	tracer  oteltrace.Tracer
	metrics Metrics
}

// Dial connects to a node at target. The connection is established lazily
// on the first call.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("cluster client: dial %s: %w", target, err)
	}
	return &Client{
		conn:    conn,
		target:  target,
		tracer:  noop.NewTracerProvider().Tracer("clustergrpc"),
		metrics: noopMetrics{},
	}, nil
}

// Target returns the dialed address.
func (c *Client) Target() string { return c.target }

// Close closes the underlying gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Execute runs op on this node.
func (c *Client) Execute(ctx context.Context, op cluster.Operation) error {
	payload, err := encode(op)
	if err != nil {
		return err
	}
	reply, err := c.roundTrip(ctx, op, payload)
	if err != nil {
		return err
	}
	return op.Decode(reply.Code, reply.Payload)
}

func encode(op cluster.Operation) ([]byte, error) {
	payload, err := op.Encode()
	if err != nil {
		return nil, fmt.Errorf("cluster client: encode %s: %w", op.Name(), err)
	}
	return payload, nil
}

// roundTrip sends the encoded request and returns the reply frame. Only
// transport failures are reported; the reply is not interpreted.
func (c *Client) roundTrip(ctx context.Context, op cluster.Operation, payload []byte) (*Frame, error) {
	ctx, span := c.tracer.Start(ctx, "clustergrpc.client.Execute",
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(clientAttrs(c.target, op)...),
	)
	defer span.End()

	start := time.Now()
	reply := new(Frame)
	err := c.conn.Invoke(ctx, executeMethod, &Frame{Code: op.RequestCode(), Payload: payload}, reply,
		grpc.CallContentSubtype(codecName))
	c.metrics.ObserveClientRPCDuration(c.target, op.Name(), time.Since(start), status.Code(err).String())
	if err != nil {
		recordSpanError(span, err)
		return nil, fromGRPCStatus(err)
	}
	span.SetAttributes(
		attribute.Int("riak.response.code", int(reply.Code)),
		attribute.Int("riak.response.bytes", len(reply.Payload)),
	)
	return reply, nil
}

// ClusterClient implements cluster.Cluster over several nodes. Each
// operation is tried on the nodes in random order until one answers.
type ClusterClient struct {
	clients []*Client
	metrics Metrics
}

// DialCluster connects to all provided addresses. Connections are lazy, so
// this succeeds even if nodes are temporarily unavailable. A nil tracer or
// metrics sink disables that concern.
func DialCluster(addrs []string, tracer oteltrace.Tracer, metrics Metrics, opts ...grpc.DialOption) (*ClusterClient, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("cluster client: no addresses provided")
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	clients := make([]*Client, 0, len(addrs))
	for _, addr := range addrs {
		c, err := Dial(addr, opts...)
		if err != nil {
			for _, cc := range clients {
				_ = cc.Close()
			}
			return nil, err
		}
		if tracer != nil {
			c.tracer = tracer
		}
		c.metrics = metrics
		clients = append(clients, c)
	}
	return &ClusterClient{clients: clients, metrics: metrics}, nil
}

// Close closes all underlying node connections.
func (c *ClusterClient) Close() error {
	var errs []error
	for _, client := range c.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Execute runs op on the first node that answers. A node that answers with
// an error reply is not retried elsewhere, and a request that cannot be
// encoded is not sent at all.
func (c *ClusterClient) Execute(ctx context.Context, op cluster.Operation) error {
	payload, err := encode(op)
	if err != nil {
		return err
	}

	var lastErr error
	for n, i := range rand.Perm(len(c.clients)) {
		client := c.clients[i]
		if n > 0 {
			c.metrics.IncClientFailover(client.target)
		}
		reply, err := client.roundTrip(ctx, op, payload)
		if err == nil {
			return op.Decode(reply.Code, reply.Payload)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
	}
	return fmt.Errorf("%w: all %d nodes failed: %w", ErrUnavailable, len(c.clients), lastErr)
}

var _ cluster.Cluster = (*ClusterClient)(nil)
var _ cluster.Cluster = (*Client)(nil)

func fromGRPCStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unimplemented:
		return fmt.Errorf("%w: %s", ErrUnsupported, st.Message())
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	default:
		return err
	}
}
