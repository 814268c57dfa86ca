package command

import (
	"fmt"
	"math"
	"time"

	"github.com/i-melnichenko/riak-wire/internal/object"
	"github.com/i-melnichenko/riak-wire/internal/operation"
)

// OptionKey names a fetch option.
type OptionKey int

// Fetch options, in declaration order.
const (
	OptR OptionKey = iota
	OptPR
	OptBasicQuorum
	OptNotFoundOK
	OptTimeout
	OptSloppyQuorum
	OptNVal
	OptIncludeContext
)

var optionNames = [...]string{
	OptR:              "r",
	OptPR:             "pr",
	OptBasicQuorum:    "basic_quorum",
	OptNotFoundOK:     "notfound_ok",
	OptTimeout:        "timeout",
	OptSloppyQuorum:   "sloppy_quorum",
	OptNVal:           "n_val",
	OptIncludeContext: "include_context",
}

func (k OptionKey) String() string {
	if k < 0 || int(k) >= len(optionNames) {
		return fmt.Sprintf("option(%d)", int(k))
	}
	return optionNames[k]
}

// FetchOptions holds the tuning parameters of a fetch. Nil fields are not
// sent and the server default applies.
type FetchOptions struct {
	R              *Quorum
	PR             *Quorum
	BasicQuorum    *bool
	NotFoundOK     *bool
	Timeout        *time.Duration
	SloppyQuorum   *bool
	NVal           *uint32
	IncludeContext *bool
}

// FetchOption sets one field of FetchOptions.
type FetchOption func(*FetchOptions)

func WithR(q Quorum) FetchOption  { return func(o *FetchOptions) { o.R = &q } }
func WithPR(q Quorum) FetchOption { return func(o *FetchOptions) { o.PR = &q } }

func WithBasicQuorum(v bool) FetchOption { return func(o *FetchOptions) { o.BasicQuorum = &v } }
func WithNotFoundOK(v bool) FetchOption  { return func(o *FetchOptions) { o.NotFoundOK = &v } }

// WithTimeout forwards a server-side timeout. It is sent in whole
// milliseconds, rounded up, so a positive timeout never reaches the server
// as zero. The client does not enforce it.
func WithTimeout(d time.Duration) FetchOption { return func(o *FetchOptions) { o.Timeout = &d } }

func WithSloppyQuorum(v bool) FetchOption { return func(o *FetchOptions) { o.SloppyQuorum = &v } }
func WithNVal(n uint32) FetchOption       { return func(o *FetchOptions) { o.NVal = &n } }

// WithIncludeContext controls whether the causal context is returned.
func WithIncludeContext(v bool) FetchOption {
	return func(o *FetchOptions) { o.IncludeContext = &v }
}

// Set lists the options that have a value, in declaration order.
func (o FetchOptions) Set() []OptionKey {
	var keys []OptionKey
	add := func(k OptionKey, set bool) {
		if set {
			keys = append(keys, k)
		}
	}
	add(OptR, o.R != nil)
	add(OptPR, o.PR != nil)
	add(OptBasicQuorum, o.BasicQuorum != nil)
	add(OptNotFoundOK, o.NotFoundOK != nil)
	add(OptTimeout, o.Timeout != nil)
	add(OptSloppyQuorum, o.SloppyQuorum != nil)
	add(OptNVal, o.NVal != nil)
	add(OptIncludeContext, o.IncludeContext != nil)
	return keys
}

func (o FetchOptions) clone() FetchOptions {
	return FetchOptions{
		R:              clonePtr(o.R),
		PR:             clonePtr(o.PR),
		BasicQuorum:    clonePtr(o.BasicQuorum),
		NotFoundOK:     clonePtr(o.NotFoundOK),
		Timeout:        clonePtr(o.Timeout),
		SloppyQuorum:   clonePtr(o.SloppyQuorum),
		NVal:           clonePtr(o.NVal),
		IncludeContext: clonePtr(o.IncludeContext),
	}
}

// apply copies the set options onto b.
func (o FetchOptions) apply(b *operation.DtFetchBuilder) error {
	if o.R != nil {
		if !o.R.Valid() {
			return &object.ValueError{Reason: fmt.Sprintf("invalid r %d", int(*o.R))}
		}
		b.WithR(o.R.Wire())
	}
	if o.PR != nil {
		if !o.PR.Valid() {
			return &object.ValueError{Reason: fmt.Sprintf("invalid pr %d", int(*o.PR))}
		}
		b.WithPR(o.PR.Wire())
	}
	if o.BasicQuorum != nil {
		b.WithBasicQuorum(*o.BasicQuorum)
	}
	if o.NotFoundOK != nil {
		b.WithNotFoundOK(*o.NotFoundOK)
	}
	if o.Timeout != nil {
		ms, ok := timeoutMillis(*o.Timeout)
		if !ok {
			return &object.ValueError{Reason: fmt.Sprintf("timeout %s out of range", *o.Timeout)}
		}
		b.WithTimeout(ms)
	}
	if o.SloppyQuorum != nil {
		b.WithSloppyQuorum(*o.SloppyQuorum)
	}
	if o.NVal != nil {
		b.WithNVal(*o.NVal)
	}
	if o.IncludeContext != nil {
		b.WithIncludeContext(*o.IncludeContext)
	}
	return nil
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func timeoutMillis(d time.Duration) (uint32, bool) {
	if d < 0 {
		return 0, false
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	if ms > math.MaxUint32 {
		return 0, false
	}
	return uint32(ms), true
}
