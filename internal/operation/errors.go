package operation

import (
	"errors"
	"fmt"

	"github.com/i-melnichenko/riak-wire/internal/protocol/dtpb"
)

// ErrServer is matched by every *ServerError.
var ErrServer = errors.New("operation: server error")

// ServerError is an error reply sent by the store.
type ServerError struct {
	Code    uint32
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("riak server error %d: %s", e.Code, e.Message)
}

// Is makes errors.Is(err, ErrServer) hold.
func (e *ServerError) Is(target error) bool {
	return target == ErrServer
}

// DecodeServerError turns an RpbErrorResp payload into a *ServerError. A
// payload that cannot be decoded is reported as such.
func DecodeServerError(payload []byte) error {
	msg, err := dtpb.UnmarshalErrorResponse(payload)
	if err != nil {
		return err
	}
	return &ServerError{Code: msg.Code, Message: string(msg.Message)}
}
