package schema

// Value is the contract a schema type's value payload must satisfy. It is
// total: every instance a caller constructs must encode without error: there
// is no partial or lossy representation.
type Value interface {
	// MarshalValue encodes the instance's payload, excluding whatever the
	// schema uses to derive its key.
	MarshalValue() ([]byte, error)
}

// ValuePtr constrains a pointer-to-T type to additionally support decoding,
// so Register can hand back a Descriptor able to both encode and decode T.
// The Go compiler itself rejects a T whose *T does not satisfy both halves
// of the round trip.
type ValuePtr[T any] interface {
	*T
	Value
	UnmarshalValue([]byte) error
}
