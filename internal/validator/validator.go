// Package validator implements an optional go-libp2p-record.Validator
// that can be plugged into the DHT so stored values must carry a signature
// that verifies against their embedded public key; it does not bind that
// key to the DHT key being written. Grounded on the teacher's pkg/crypto/signature.go:
// the same secp256k1/Schnorr primitives used there to sign transactions are
// reused here to sign and verify DHT record values, swapping "transaction
// hash" for "record payload hash".
package validator

import (
	"bytes"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
	"github.com/zeebo/blake3"

	"github.com/netabase/netabase/internal/errs"
)

const (
	pubKeyLen = 33 // compressed secp256k1 public key
	sigLen    = 64 // Schnorr signature
	headerLen = pubKeyLen + sigLen
)

// Sign wraps payload with a detached Schnorr signature over its BLAKE3
// hash, producing the wire format Validate/Unwrap expect:
// [pubkey(33)][signature(64)][payload...].
func Sign(priv *secp256k1.PrivateKey, payload []byte) ([]byte, error) {
	hash := blake3.Sum256(payload)
	sig, err := schnorr.Sign(priv, hash[:])
	if err != nil {
		return nil, errs.Wrap("validator.Sign", errs.KindMalformed, err)
	}
	out := make([]byte, 0, headerLen+len(payload))
	out = append(out, priv.PubKey().SerializeCompressed()...)
	out = append(out, sig.Serialize()...)
	out = append(out, payload...)
	return out, nil
}

// Unwrap strips a Sign-produced header and returns the original payload
// plus the signer's compressed public key, without re-verifying the
// signature — callers that haven't already gone through Validate must not
// treat the result as trusted.
func Unwrap(value []byte) (payload []byte, pubKey []byte, err error) {
	if len(value) < headerLen {
		return nil, nil, errs.New("validator.Unwrap", errs.KindTruncated)
	}
	return value[headerLen:], value[:pubKeyLen], nil
}

// Validator is a github.com/libp2p/go-libp2p-record.Validator that accepts
// only values produced by Sign, verified against their embedded public
// key. It does not check that the public key is the one authorized to
// write a given key — ownership binding is out of scope — only that the
// value's signature is internally self-consistent.
type Validator struct{}

// Validate verifies value's embedded Schnorr signature against its
// embedded public key and the BLAKE3 hash of its payload.
func (Validator) Validate(key string, value []byte) error {
	payload, rawPubKey, err := Unwrap(value)
	if err != nil {
		return err
	}
	pubKey, err := secp256k1.ParsePubKey(rawPubKey)
	if err != nil {
		return errs.Wrap("validator.Validate", errs.KindMalformed, err)
	}
	sig, err := schnorr.ParseSignature(value[pubKeyLen:headerLen])
	if err != nil {
		return errs.Wrap("validator.Validate", errs.KindMalformed, err)
	}
	hash := blake3.Sum256(payload)
	if !sig.Verify(hash[:], pubKey) {
		return errs.New("validator.Validate", errs.KindMalformed)
	}
	return nil
}

// Select picks the record whose payload sorts greatest under byte-wise
// comparison. Netabase's wire envelope carries no sequence number to break
// ties on (see internal/schema), so this is a deterministic, if arbitrary,
// last-writer convention: every well-behaved writer observes the same
// ordering and converges on the same winner.
func (Validator) Select(key string, values [][]byte) (int, error) {
	if len(values) == 0 {
		return 0, errs.New("validator.Select", errs.KindMalformed)
	}
	best := 0
	bestPayload, _, err := Unwrap(values[0])
	if err != nil {
		return 0, err
	}
	for i := 1; i < len(values); i++ {
		payload, _, err := Unwrap(values[i])
		if err != nil {
			continue
		}
		if bytes.Compare(payload, bestPayload) > 0 {
			best = i
			bestPayload = payload
		}
	}
	return best, nil
}
