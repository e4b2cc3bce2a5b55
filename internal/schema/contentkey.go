package schema

import "github.com/zeebo/blake3"

// ContentKey derives a content-addressed Key as the BLAKE3 digest of the
// canonical encoded payload — the default whole-value key function for
// schemas that choose the "key := f(value)" option over a declared key
// field. Identical payloads always yield identical keys; any change to the
// payload changes the key.
func ContentKey(payload []byte) Key {
	sum := blake3.Sum256(payload)
	return KeyFromBytes(sum[:])
}
