// Package cluster defines the boundary between commands and whatever
// carries their operations to the store.
package cluster

import "context"

// Operation is one request/response exchange with the store. The request
// is encoded once per Execute, whichever node receives it; a successful Decode leaves the response on
// the operation.
type Operation interface {
	// Name is a short label used for logs, spans and metrics.
	Name() string
	// RequestCode is the message code of the encoded request.
	RequestCode() byte
	Encode() ([]byte, error)
	// Decode consumes the reply frame. Server error replies are reported
	// as errors.
	Decode(code byte, payload []byte) error
}

// Cluster executes operations against the store.
type Cluster interface {
	// Execute blocks until op has completed or failed, or ctx is done.
	Execute(ctx context.Context, op Operation) error
}
