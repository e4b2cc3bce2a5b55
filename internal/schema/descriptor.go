package schema

import (
	"reflect"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/netabase/netabase/internal/errs"
)

// keyTagNamespace is the struct tag namespace schemas use to mark their key
// field, e.g. `netabase:"key"`.
const keyTagNamespace = "netabase"
const keyTagValue = "key"

// Descriptor is the realized schema contract for T: it knows how to derive
// T's key and how to encode/decode T's value. It is produced once by
// Register and is safe for concurrent use — it holds no mutable state of
// its own.
type Descriptor[T any, PT ValuePtr[T]] struct {
	typ      reflect.Type
	keyIndex int // -1 when keyFunc is used instead of a tagged field
	keyFunc  func(T) (Key, error)
}

// Option configures a Register call.
type Option[T any] func(*registerConfig[T])

type registerConfig[T any] struct {
	keyFunc func(T) (Key, error)
}

// WithKeyFunc registers T with a whole-value key function instead of a
// struct-tagged key field. Generation fails if T also carries a tagged key
// field: the two key sources are mutually exclusive.
func WithKeyFunc[T any](fn func(T) (Key, error)) Option[T] {
	return func(c *registerConfig[T]) { c.keyFunc = fn }
}

// WithContentKey registers T using ContentKey over its marshaled value as
// the whole-value key function — the common case for option (ii) schemas.
func WithContentKey[T any, PT ValuePtr[T]]() Option[T] {
	return func(c *registerConfig[T]) {
		c.keyFunc = func(v T) (Key, error) {
			payload, err := PT(&v).MarshalValue()
			if err != nil {
				return Key{}, errs.Wrap("schema.WithContentKey", errs.KindSchemaGeneration, err)
			}
			return ContentKey(payload), nil
		}
	}
}

// Register validates T's schema and returns a Descriptor able to derive
// keys and encode/decode values for it. The reflection pass below runs
// once, here, rather than at every encode/decode call: this is Netabase's
// stand-in for a compile-time code generation step.
//
// Exactly one key source is permitted: either a single struct field tagged
// `netabase:"key"`, or a key function supplied via WithKeyFunc/WithContentKey.
// Declaring both, or neither, is a generation-time error.
func Register[T any, PT ValuePtr[T]](opts ...Option[T]) (*Descriptor[T, PT], error) {
	var cfg registerConfig[T]
	for _, opt := range opts {
		opt(&cfg)
	}

	typ := reflect.TypeOf(*new(T))

	taggedIndex, hasTag, err := findKeyField(typ)
	if err != nil {
		return nil, err
	}

	switch {
	case cfg.keyFunc != nil && hasTag:
		return nil, errs.New("schema.Register", errs.KindSchemaGeneration)
	case cfg.keyFunc == nil && !hasTag:
		return nil, errs.New("schema.Register", errs.KindSchemaGeneration)
	case cfg.keyFunc != nil:
		return &Descriptor[T, PT]{typ: typ, keyIndex: -1, keyFunc: cfg.keyFunc}, nil
	default:
		if err := validateKeyFieldType(typ.Field(taggedIndex).Type); err != nil {
			return nil, err
		}
		return &Descriptor[T, PT]{typ: typ, keyIndex: taggedIndex, keyFunc: nil}, nil
	}
}

// findKeyField locates the single field tagged `netabase:"key"` on typ. It
// returns hasTag=false, no error, if typ carries no such field or is not a
// struct; it errors if more than one field carries the tag.
func findKeyField(typ reflect.Type) (index int, hasTag bool, err error) {
	if typ.Kind() != reflect.Struct {
		return -1, false, nil
	}
	index = -1
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get(keyTagNamespace)
		if tag != keyTagValue {
			continue
		}
		if hasTag {
			return -1, false, errs.New("schema.Register", errs.KindSchemaGeneration)
		}
		hasTag = true
		index = i
	}
	return index, hasTag, nil
}

var keyerType = reflect.TypeOf((*Keyer)(nil)).Elem()

// validateKeyFieldType rejects a tagged key field whose type cannot be
// turned into deterministic bytes: it must implement Keyer, or be a string,
// []byte, or fixed-size byte array.
func validateKeyFieldType(t reflect.Type) error {
	if t.Implements(keyerType) || reflect.PointerTo(t).Implements(keyerType) {
		return nil
	}
	switch t.Kind() {
	case reflect.String:
		return nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return nil
		}
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return nil
		}
	}
	return errs.New("schema.Register", errs.KindSchemaGeneration)
}

// keyBytesFromFieldValue extracts deterministic bytes from a validated key
// field's reflect.Value.
func keyBytesFromFieldValue(fv reflect.Value) []byte {
	if fv.CanInterface() {
		if k, ok := fv.Interface().(Keyer); ok {
			return k.KeyBytes()
		}
		if fv.CanAddr() {
			if k, ok := fv.Addr().Interface().(Keyer); ok {
				return k.KeyBytes()
			}
		}
	}
	switch fv.Kind() {
	case reflect.String:
		return []byte(fv.String())
	case reflect.Slice:
		return fv.Bytes()
	case reflect.Array:
		b := make([]byte, fv.Len())
		reflect.Copy(reflect.ValueOf(b), fv)
		return b
	}
	return nil
}

// KeyOf derives v's DHT key, recomputed fresh on every call — Netabase never
// caches a key accessor's result across calls, so a mutated value always
// yields its current key.
func (d *Descriptor[T, PT]) KeyOf(v T) (Key, error) {
	if d.keyFunc != nil {
		return d.keyFunc(v)
	}
	rv := reflect.ValueOf(v)
	fv := rv.Field(d.keyIndex)
	b := keyBytesFromFieldValue(fv)
	if b == nil {
		return Key{}, errs.New("schema.KeyOf", errs.KindSchemaGeneration)
	}
	return KeyFromBytes(b), nil
}

// ToRecord derives v's key and produces the Record Netabase's swarm
// supervisor hands to PutValue, stamping the optional publisher/expiry
// metadata into the wire envelope.
func (d *Descriptor[T, PT]) ToRecord(v T, publisher *peer.ID, expiresAt *time.Time) (Record, error) {
	key, err := d.KeyOf(v)
	if err != nil {
		return Record{}, err
	}
	payload, err := PT(&v).MarshalValue()
	if err != nil {
		return Record{}, errs.Wrap("schema.ToRecord", errs.KindMalformed, err)
	}
	var expiresUnix *int64
	if expiresAt != nil {
		u := expiresAt.Unix()
		expiresUnix = &u
	}
	wire := encodeEnvelope(payload, publisher, expiresUnix)
	return Record{Key: key, Value: wire, Publisher: publisher, ExpiresAt: expiresAt}, nil
}

// FromRecord decodes value bytes retrieved from the DHT back into a T and
// its envelope metadata.
func (d *Descriptor[T, PT]) FromRecord(value []byte) (v T, publisher *peer.ID, expiresAt *time.Time, err error) {
	payload, pub, expUnix, err := decodeEnvelope(value)
	if err != nil {
		return v, nil, nil, err
	}
	if err := PT(&v).UnmarshalValue(payload); err != nil {
		return v, nil, nil, errs.Wrap("schema.FromRecord", errs.KindMalformed, err)
	}
	if expUnix != nil {
		t := time.Unix(*expUnix, 0).UTC()
		expiresAt = &t
	}
	return v, pub, expiresAt, nil
}
