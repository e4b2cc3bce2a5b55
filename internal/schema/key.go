// Package schema defines the compile-time-declared contract a Go type must
// satisfy to be stored in Netabase: how its DHT key is derived, and how its
// value round-trips to and from the wire. A code generator running ahead of
// compilation has no direct Go equivalent, so Register derives the same
// guarantees via generics plus a single reflection-based validation pass the
// first time a type is registered. See DESIGN.md for the rationale.
package schema

import "encoding/hex"

// Key is the typed wrapper around a record's DHT key. It never exposes its
// backing slice directly, so callers cannot mutate a key after derivation.
type Key struct {
	raw []byte
}

// KeyFromBytes copies b into a new Key.
func KeyFromBytes(b []byte) Key {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Key{raw: cp}
}

// KeyFromDHTKey rebuilds a Key from the raw string go-libp2p-kad-dht uses as
// its key argument.
func KeyFromDHTKey(s string) Key {
	return KeyFromBytes([]byte(s))
}

// Bytes returns a copy of the key's backing bytes.
func (k Key) Bytes() []byte {
	cp := make([]byte, len(k.raw))
	copy(cp, k.raw)
	return cp
}

// DHTKey renders the key in the string form go-libp2p-kad-dht's
// PutValue/GetValue expect.
func (k Key) DHTKey() string {
	return string(k.raw)
}

// String renders the key as lowercase hex, for logging and diagnostics.
func (k Key) String() string {
	return hex.EncodeToString(k.raw)
}

// Equal reports whether two keys carry identical bytes.
func (k Key) Equal(other Key) bool {
	if len(k.raw) != len(other.raw) {
		return false
	}
	for i := range k.raw {
		if k.raw[i] != other.raw[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether the key was never assigned any bytes.
func (k Key) IsZero() bool {
	return len(k.raw) == 0
}

// Keyer is implemented by a key field's type when that type needs a custom
// deterministic byte encoding. Built-in support exists for string, []byte,
// and fixed-size byte arrays without implementing this interface.
type Keyer interface {
	KeyBytes() []byte
}
