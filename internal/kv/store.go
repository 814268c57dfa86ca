package kv

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/i-melnichenko/riak-wire/internal/datatype"
)

// Key addresses one datatype. An empty BucketType means "default".
type Key struct {
	BucketType string
	Bucket     string
	Key        string
}

func (k Key) normalize() Key {
	if k.BucketType == "" {
		k.BucketType = "default"
	}
	return k
}

type entry struct {
	element datatype.Element
	version uint64
}

// Store is an in-memory datatype store. Every mutation of a key bumps its
// version; the version is handed out as the key's causal context.
type Store struct {
	mu     sync.RWMutex
	data   map[Key]entry
	tracer oteltrace.Tracer
}

// NewStore creates an empty store.
func NewStore(tracer oteltrace.Tracer) *Store {
	return &Store{
		data:   make(map[Key]entry),
		tracer: tracer,
	}
}

// Get returns the element stored at key and its causal context.
func (s *Store) Get(key Key) (datatype.Element, []byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key.normalize()]
	if !ok {
		return datatype.Element{}, nil, false
	}
	return e.element, versionContext(e.version), true
}

// Len returns the number of stored datatypes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Apply decodes and applies a serialized command.
func (s *Store) Apply(ctx context.Context, raw []byte) error {
	_, span := s.tracer.Start(ctx, "kv.store.Apply", oteltrace.WithAttributes(attribute.Int("kv.command.bytes", len(raw))))
	defer span.End()

	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("kv: decode command: %w", err)
	}
	if err := s.apply(cmd); err != nil {
		recordSpanError(span, err)
		return err
	}
	span.SetAttributes(
		attribute.String("kv.command.type", string(cmd.Type)),
		attribute.String("kv.bucket", cmd.Bucket),
		attribute.String("kv.key", cmd.Key),
	)
	return nil
}

// Load applies a JSON array of commands, in order. Commands before the
// first failing one stay applied.
func (s *Store) Load(ctx context.Context, raw []byte) error {
	_, span := s.tracer.Start(ctx, "kv.store.Load", oteltrace.WithAttributes(attribute.Int("kv.seed.bytes", len(raw))))
	defer span.End()

	var cmds []Command
	if err := json.Unmarshal(raw, &cmds); err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("kv: decode seed: %w", err)
	}
	for i, cmd := range cmds {
		if err := s.apply(cmd); err != nil {
			recordSpanError(span, err)
			return fmt.Errorf("kv: seed command %d: %w", i, err)
		}
	}
	span.SetAttributes(attribute.Int("kv.store.items", s.Len()))
	return nil
}

func (s *Store) apply(cmd Command) error {
	if cmd.Bucket == "" || cmd.Key == "" {
		return fmt.Errorf("kv: %s needs bucket and key", cmd.Type)
	}
	key := Key{BucketType: cmd.BucketType, Bucket: cmd.Bucket, Key: cmd.Key}

	switch cmd.Type {
	case PutCmd:
		el, err := cmd.Value.Element()
		if err != nil {
			return err
		}
		s.applyPut(key, el)
	case IncrementCmd:
		return s.applyIncrement(key, cmd.Delta)
	case DeleteCmd:
		s.applyDelete(key)
	default:
		return fmt.Errorf("kv: unknown command type %q", cmd.Type)
	}
	return nil
}

func (s *Store) applyPut(key Key, el datatype.Element) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = key.normalize()
	s.data[key] = entry{element: el, version: s.data[key].version + 1}
}

func (s *Store) applyIncrement(key Key, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = key.normalize()
	e, ok := s.data[key]
	if !ok {
		e.element = datatype.CounterElement(0)
	}
	if e.element.Kind != datatype.KindCounter {
		return fmt.Errorf("kv: increment of %s at %s/%s", e.element.Kind, key.Bucket, key.Key)
	}
	e.element.Counter += delta
	e.version++
	s.data[key] = e
	return nil
}

func (s *Store) applyDelete(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key.normalize())
}

func versionContext(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func recordSpanError(span oteltrace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
}
