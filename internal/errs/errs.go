// Package errs defines the stable error taxonomy shared by every layer of
// Netabase. Facade operations return one of {Ok(result), Err(kind)}: kinds
// are stable across releases, messages are advisory only.
package errs

import "fmt"

// Kind identifies a stable error category. Callers should branch on Kind,
// never on the formatted message.
type Kind int

const (
	// KindUnknown is the zero value. It is also returned for underlying
	// storage and I/O failures that fit no more specific kind.
	KindUnknown Kind = iota

	// Configuration kinds.
	KindInvalidAddress
	KindInvalidProtocolName
	KindInvalidQuorum
	KindSchemaGeneration

	// Transport kinds.
	KindBindFailed
	KindDialFailed
	KindConnectionReset

	// DHT kinds.
	KindNotFound
	KindQuorumFailed
	KindTimeout
	KindModeMismatch

	// Encoding kinds.
	KindUnsupportedVersion
	KindMalformed
	KindTruncated

	// Lifecycle kinds.
	KindCancelled
	KindBusy
)

// String renders a human-readable (but non-stable) name for the kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidAddress:
		return "invalid_address"
	case KindInvalidProtocolName:
		return "invalid_protocol_name"
	case KindInvalidQuorum:
		return "invalid_quorum"
	case KindSchemaGeneration:
		return "schema_generation"
	case KindBindFailed:
		return "bind_failed"
	case KindDialFailed:
		return "dial_failed"
	case KindConnectionReset:
		return "connection_reset"
	case KindNotFound:
		return "not_found"
	case KindQuorumFailed:
		return "quorum_failed"
	case KindTimeout:
		return "timeout"
	case KindModeMismatch:
		return "mode_mismatch"
	case KindUnsupportedVersion:
		return "unsupported_version"
	case KindMalformed:
		return "malformed"
	case KindTruncated:
		return "truncated"
	case KindCancelled:
		return "cancelled"
	case KindBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Error is a Netabase error carrying a stable Kind, the operation that
// failed, and (optionally) an underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an *Error with no underlying cause.
func New(op string, kind Kind) *Error {
	return &Error{Kind: kind, Op: op}
}

// Wrap builds an *Error around an underlying cause.
func Wrap(op string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Err
			continue
		}
		break
	}
	return false
}

// QuorumFailedDetail carries the reached/required replica counts for a
// KindQuorumFailed error.
type QuorumFailedDetail struct {
	Reached  int
	Required int
}

// WrapQuorumFailed builds a KindQuorumFailed error carrying reached/required counts.
func WrapQuorumFailed(op string, reached, required int) *Error {
	return &Error{
		Kind: KindQuorumFailed,
		Op:   op,
		Err:  fmt.Errorf("reached %d of %d required replicas", reached, required),
	}
}
