// Package jiak implements the JSON ("Jiak") wire form of a stored object.
//
// A Jiak document looks like
//
//	{"bucket":"b","key":"k","value":{...,"usermeta":{...}},
//	 "links":[["b2","k2","tag"]],"vclock":"...","lastmod":"...","vtag":"..."}
//
// User metadata travels nested under value.usermeta but is exposed as its
// own field: it is lifted out of the value on decode and folded back in on
// encode.
package jiak

import (
	"fmt"
	"maps"
	"slices"

	"github.com/i-melnichenko/riak-wire/internal/jsonvalue"
	"github.com/i-melnichenko/riak-wire/internal/object"
)

// Document field names.
const (
	FieldBucket       = "bucket"
	FieldKey          = "key"
	FieldValue        = "value"
	FieldLinks        = "links"
	FieldVclock       = "vclock"
	FieldLastModified = "lastmod"
	FieldVTag         = "vtag"
	FieldUsermeta     = "usermeta"

	// FallbackField holds the quoted payload of a non-JSON value copied in
	// through CopyData.
	FallbackField = "v"
)

// ContentType is the content type of every Jiak object.
const ContentType = "application/json"

// Object is a stored object in its Jiak form. Value, links and usermeta are
// kept as JSON trees; typed views are produced on request.
type Object struct {
	bucket   string
	key      string
	value    *jsonvalue.Object
	links    *jsonvalue.Array
	usermeta *jsonvalue.Object
	vclock   string
	lastmod  string
	vtag     string
}

// New returns an empty Jiak object. Bucket and key are required.
func New(bucket, key string) (*Object, error) {
	if bucket == "" {
		return nil, &object.MissingFieldError{Field: FieldBucket}
	}
	if key == "" {
		return nil, &object.MissingFieldError{Field: FieldKey}
	}
	return &Object{
		bucket:   bucket,
		key:      key,
		value:    jsonvalue.NewObject(),
		links:    jsonvalue.NewArray(),
		usermeta: jsonvalue.NewObject(),
	}, nil
}

// Decode parses a Jiak document.
func Decode(data []byte) (*Object, error) {
	doc, err := jsonvalue.ParseObject(data)
	if err != nil {
		return nil, &object.ValueError{Reason: "jiak document must be a JSON object", Err: err}
	}
	return FromJSON(doc)
}

// FromJSON builds an Object from a parsed document. It fails with a
// *object.MissingFieldError when bucket or key is absent, null or empty.
func FromJSON(doc *jsonvalue.Object) (*Object, error) {
	bucket, ok := requiredText(doc, FieldBucket)
	if !ok {
		return nil, &object.MissingFieldError{Field: FieldBucket}
	}
	key, ok := requiredText(doc, FieldKey)
	if !ok {
		return nil, &object.MissingFieldError{Field: FieldKey}
	}

	o, err := New(bucket, key)
	if err != nil {
		return nil, err
	}
	if v, ok := doc.Get(FieldValue); ok {
		if obj, ok := v.AsObject(); ok {
			o.value = obj.Clone()
		}
	}
	if v, ok := doc.Get(FieldLinks); ok {
		if arr, ok := v.AsArray(); ok {
			o.links = arr.Clone()
		}
	}
	if um, ok := o.value.Get(FieldUsermeta); ok {
		if obj, ok := um.AsObject(); ok {
			o.usermeta = obj
			o.value.Delete(FieldUsermeta)
		}
	}
	o.vclock = optionalText(doc, FieldVclock)
	o.lastmod = optionalText(doc, FieldLastModified)
	o.vtag = optionalText(doc, FieldVTag)
	return o, nil
}

// FromObject converts a canonical object into its Jiak form. See CopyData
// for how the payload is interpreted.
func FromObject(src object.Object) (*Object, error) {
	o, err := New(src.Bucket, src.Key)
	if err != nil {
		return nil, err
	}
	o.CopyData(src)
	return o, nil
}

// CopyData replaces value, links, usermeta and causal metadata with those
// of src. A payload that is not a JSON object is kept as
// {"v": "<payload as a quoted JSON string>"}; an empty payload becomes {}.
func (o *Object) CopyData(src object.Object) {
	switch {
	case len(src.Value) == 0:
		o.value = jsonvalue.NewObject()
	default:
		if obj, err := jsonvalue.ParseObject(src.Value); err == nil {
			o.value = obj
		} else {
			o.value = jsonvalue.NewObject()
			o.value.Set(FallbackField, jsonvalue.String(string(mustQuote(string(src.Value)))))
		}
	}

	o.SetLinks(src.Links)
	o.SetUsermeta(src.Usermeta)
	o.vclock = src.Vclock
	o.lastmod = src.LastModified
	o.vtag = src.VTag
}

// UpdateMeta refreshes the causal metadata after a successful store.
func (o *Object) UpdateMeta(vclock, lastModified, vtag string) {
	o.vclock = vclock
	o.lastmod = lastModified
	o.vtag = vtag
}

// Bucket returns the bucket name.
func (o *Object) Bucket() string { return o.bucket }

// Key returns the key.
func (o *Object) Key() string { return o.key }

// ContentType always reports application/json.
func (o *Object) ContentType() string { return ContentType }

// Vclock returns the causal token, or "".
func (o *Object) Vclock() string { return o.vclock }

// LastModified returns the last-modified timestamp, or "".
func (o *Object) LastModified() string { return o.lastmod }

// VTag returns the entity tag, or "".
func (o *Object) VTag() string { return o.vtag }

// Value renders the value object as compact JSON.
func (o *Object) Value() string {
	return string(mustMarshal("value", jsonvalue.ObjectValue(o.value)))
}

// ValueJSON returns the mutable value object.
func (o *Object) ValueJSON() *jsonvalue.Object { return o.value }

// SetValue replaces the value with the JSON object in s. An empty string
// resets the value to {}; anything that is not a JSON object is rejected
// with a *object.ValueError.
func (o *Object) SetValue(s string) error {
	if s == "" {
		o.value = jsonvalue.NewObject()
		return nil
	}
	obj, err := jsonvalue.ParseObject([]byte(s))
	if err != nil {
		return &object.ValueError{Reason: "jiak value must be a JSON object", Err: err}
	}
	o.value = obj
	return nil
}

// SetValueJSON replaces the value. nil resets it to {}.
func (o *Object) SetValueJSON(v *jsonvalue.Object) {
	if v == nil {
		v = jsonvalue.NewObject()
	}
	o.value = v
}

// Get returns the named member of the value.
func (o *Object) Get(name string) (jsonvalue.Value, bool) {
	return o.value.Get(name)
}

// Set stores a member of the value.
func (o *Object) Set(name string, v jsonvalue.Value) {
	o.value.Set(name, v)
}

// Links returns the typed links. Entries that are not arrays of exactly
// three strings are skipped.
func (o *Object) Links() []object.Link {
	links := make([]object.Link, 0, o.links.Len())
	for _, entry := range o.links.Values() {
		if l, ok := linkFromJSON(entry); ok {
			links = append(links, l)
		}
	}
	return links
}

// LinksJSON returns the mutable links array. Each link is a
// [bucket, key, tag] array.
func (o *Object) LinksJSON() *jsonvalue.Array { return o.links }

// SetLinksJSON replaces the links array. nil resets it to [].
func (o *Object) SetLinksJSON(a *jsonvalue.Array) {
	if a == nil {
		a = jsonvalue.NewArray()
	}
	o.links = a
}

// SetLinks replaces the links.
func (o *Object) SetLinks(links []object.Link) {
	o.links = jsonvalue.NewArray()
	for _, l := range links {
		o.AddLink(l)
	}
}

// AddLink appends a link.
func (o *Object) AddLink(l object.Link) {
	o.links.Append(jsonvalue.Strings(l.Bucket, l.Key, l.Tag))
}

// Usermeta returns a copy of the user metadata. Non-string members are
// rendered as text.
func (o *Object) Usermeta() map[string]string {
	meta := make(map[string]string, o.usermeta.Len())
	for _, k := range o.usermeta.Keys() {
		v, _ := o.usermeta.Get(k)
		meta[k] = v.Text()
	}
	return meta
}

// UsermetaJSON returns the mutable usermeta object.
func (o *Object) UsermetaJSON() *jsonvalue.Object { return o.usermeta }

// SetUsermetaJSON replaces the usermeta object. nil resets it to {}.
func (o *Object) SetUsermetaJSON(meta *jsonvalue.Object) {
	if meta == nil {
		meta = jsonvalue.NewObject()
	}
	o.usermeta = meta
}

// SetUsermeta replaces the user metadata. Keys are stored in sorted order.
func (o *Object) SetUsermeta(meta map[string]string) {
	o.usermeta = jsonvalue.NewObject()
	for _, k := range slices.Sorted(maps.Keys(meta)) {
		o.usermeta.Set(k, jsonvalue.String(meta[k]))
	}
}

// ToJSON builds the wire document. Usermeta is folded into value.usermeta
// only when there is usermeta and the value has no usermeta member of its
// own; an existing member is never overwritten. The receiver is not
// modified.
func (o *Object) ToJSON() *jsonvalue.Object {
	value := o.value
	if o.usermeta.Len() > 0 && !value.Has(FieldUsermeta) {
		value = value.Clone()
		value.Set(FieldUsermeta, jsonvalue.ObjectValue(o.usermeta.Clone()))
	}

	doc := jsonvalue.NewObject()
	doc.Set(FieldBucket, jsonvalue.String(o.bucket))
	doc.Set(FieldKey, jsonvalue.String(o.key))
	doc.Set(FieldValue, jsonvalue.ObjectValue(value))
	doc.Set(FieldLinks, jsonvalue.ArrayValue(o.links))
	if o.vclock != "" {
		doc.Set(FieldVclock, jsonvalue.String(o.vclock))
	}
	if o.lastmod != "" {
		doc.Set(FieldLastModified, jsonvalue.String(o.lastmod))
	}
	if o.vtag != "" {
		doc.Set(FieldVTag, jsonvalue.String(o.vtag))
	}
	return doc
}

// Encode renders the wire document as compact JSON.
func (o *Object) Encode() []byte {
	return mustMarshal("document", jsonvalue.ObjectValue(o.ToJSON()))
}

// ToObject converts to the canonical object. The payload is the value
// rendered as JSON, without the lifted usermeta.
func (o *Object) ToObject() (object.Object, error) {
	return object.New(o.bucket, o.key,
		object.WithValue([]byte(o.Value())),
		object.WithContentType(ContentType),
		object.WithLinks(o.Links()),
		object.WithUsermeta(o.Usermeta()),
		object.WithVclock(o.vclock),
		object.WithLastModified(o.lastmod),
		object.WithVTag(o.vtag),
	)
}

func linkFromJSON(v jsonvalue.Value) (object.Link, bool) {
	arr, ok := v.AsArray()
	if !ok || arr.Len() != 3 {
		return object.Link{}, false
	}
	var parts [3]string
	for i := range parts {
		s, ok := arr.At(i).AsString()
		if !ok {
			return object.Link{}, false
		}
		parts[i] = s
	}
	return object.Link{Bucket: parts[0], Key: parts[1], Tag: parts[2]}, true
}

func requiredText(doc *jsonvalue.Object, field string) (string, bool) {
	v, ok := doc.Get(field)
	if !ok || v.IsNull() {
		return "", false
	}
	s := v.Text()
	return s, s != ""
}

func optionalText(doc *jsonvalue.Object, field string) string {
	v, ok := doc.Get(field)
	if !ok {
		return ""
	}
	return v.Text()
}

func mustQuote(s string) []byte {
	q, err := jsonvalue.Quote(s)
	if err != nil {
		panic(&object.InvariantError{Op: "jiak quote", Err: err})
	}
	return q
}

func mustMarshal(what string, v jsonvalue.Value) []byte {
	raw, err := v.MarshalJSON()
	if err != nil {
		panic(&object.InvariantError{Op: fmt.Sprintf("jiak encode %s", what), Err: err})
	}
	return raw
}
