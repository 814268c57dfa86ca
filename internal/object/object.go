// Package object defines the canonical in-memory representation of a stored
// value, shared by every wire codec in this module.
package object

import "maps"

// Link is a tagged, directed reference to another stored object.
type Link struct {
	Bucket string
	Key    string
	Tag    string
}

// Object is one stored value with its links, user metadata and causal
// metadata. Objects are built fresh by every parse or convert call.
type Object struct {
	Bucket      string
	Key         string
	Value       []byte
	ContentType string
	Links       []Link
	Usermeta    map[string]string

	// Vclock is the opaque causal token the object was read at. It must be
	// echoed on the next write of the same key.
	Vclock       string
	LastModified string
	VTag         string
}

// Option configures an Object built by New.
type Option func(*Object)

// WithValue sets the payload. The slice is copied.
func WithValue(v []byte) Option {
	return func(o *Object) {
		o.Value = append([]byte(nil), v...)
	}
}

// WithContentType sets the payload content type.
func WithContentType(ct string) Option {
	return func(o *Object) {
		o.ContentType = ct
	}
}

// WithLinks sets the links, preserving order and duplicates.
func WithLinks(links []Link) Option {
	return func(o *Object) {
		o.Links = append([]Link(nil), links...)
	}
}

// WithUsermeta sets the user metadata. The map is copied.
func WithUsermeta(meta map[string]string) Option {
	return func(o *Object) {
		o.Usermeta = maps.Clone(meta)
	}
}

// WithVclock sets the causal token.
func WithVclock(vclock string) Option {
	return func(o *Object) {
		o.Vclock = vclock
	}
}

// WithLastModified sets the last-modified timestamp.
func WithLastModified(ts string) Option {
	return func(o *Object) {
		o.LastModified = ts
	}
}

// WithVTag sets the entity tag.
func WithVTag(vtag string) Option {
	return func(o *Object) {
		o.VTag = vtag
	}
}

// New builds an Object. Bucket and key are mandatory; an empty value for
// either is reported as a *MissingFieldError.
func New(bucket, key string, opts ...Option) (Object, error) {
	if bucket == "" {
		return Object{}, &MissingFieldError{Field: "bucket"}
	}
	if key == "" {
		return Object{}, &MissingFieldError{Field: "key"}
	}

	o := Object{Bucket: bucket, Key: key}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Links == nil {
		o.Links = []Link{}
	}
	if o.Usermeta == nil {
		o.Usermeta = map[string]string{}
	}
	return o, nil
}

// UpdateMeta refreshes the causal metadata after a successful store.
func (o *Object) UpdateMeta(vclock, lastModified, vtag string) {
	o.Vclock = vclock
	o.LastModified = lastModified
	o.VTag = vtag
}

// HasVclock reports whether the object carries a causal token.
func (o Object) HasVclock() bool {
	return o.Vclock != ""
}
