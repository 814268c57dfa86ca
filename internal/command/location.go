package command

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/i-melnichenko/riak-wire/internal/object"
	"github.com/i-melnichenko/riak-wire/internal/operation"
)

// Location addresses one key: bucket type, bucket and key.
type Location struct {
	BucketType string
	Bucket     string
	Key        string
}

// NewLocation returns the location of key in bucket under the default
// bucket type.
func NewLocation(bucket, key string) Location {
	return Location{BucketType: operation.DefaultBucketType, Bucket: bucket, Key: key}
}

// WithBucketType returns a copy of l in bucket type t.
func (l Location) WithBucketType(t string) Location {
	l.BucketType = t
	return l
}

// HasDefaultBucketType reports whether l uses the default bucket type.
func (l Location) HasDefaultBucketType() bool {
	return l.BucketType == "" || l.BucketType == operation.DefaultBucketType
}

// Validate reports a missing bucket or key.
func (l Location) Validate() error {
	if l.Bucket == "" {
		return &object.MissingFieldError{Field: "bucket"}
	}
	if l.Key == "" {
		return &object.MissingFieldError{Field: "key"}
	}
	return nil
}

func (l Location) String() string {
	if l.HasDefaultBucketType() {
		return l.Bucket + "/" + l.Key
	}
	return l.BucketType + "/" + l.Bucket + "/" + l.Key
}

// Quorum is a replica count for R, PR and similar options: either a
// positive number of replicas or one of the symbolic values below.
type Quorum int32

// Symbolic quorums. On the wire they travel as the matching uint32 values
// (4294967294 for one, and so on).
const (
	QuorumOne     Quorum = -2
	QuorumQuorum  Quorum = -3
	QuorumAll     Quorum = -4
	QuorumDefault Quorum = -5
)

// Valid reports whether q is positive or symbolic.
func (q Quorum) Valid() bool {
	return q > 0 || (q <= QuorumOne && q >= QuorumDefault)
}

// Wire returns the protocol encoding of q.
func (q Quorum) Wire() uint32 {
	return uint32(q)
}

func (q Quorum) String() string {
	switch q {
	case QuorumOne:
		return "one"
	case QuorumQuorum:
		return "quorum"
	case QuorumAll:
		return "all"
	case QuorumDefault:
		return "default"
	default:
		return strconv.Itoa(int(q))
	}
}

// ParseQuorum accepts one, quorum, all, default or a positive integer.
func ParseQuorum(s string) (Quorum, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "one":
		return QuorumOne, nil
	case "quorum":
		return QuorumQuorum, nil
	case "all":
		return QuorumAll, nil
	case "default":
		return QuorumDefault, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil || n <= 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("command: invalid quorum %q", s)
	}
	return Quorum(n), nil
}
