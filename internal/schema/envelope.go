package schema

import (
	"encoding/binary"
	"fmt"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/netabase/netabase/internal/errs"
)

// wireVersion tags every record value Netabase writes to the DHT. It has no
// relation to go-libp2p-kad-dht's own record protobuf framing: Netabase
// layers its own versioned envelope on top of the opaque []byte the DHT
// stores, since the high-level PutValue/GetValue API exposes no publisher or
// expiry metadata of its own.
const wireVersion = 0x01

const (
	flagHasPublisher byte = 1 << 0
	flagHasExpiry    byte = 1 << 1
)

// encodeEnvelope wraps payload with Netabase's record framing: a version
// byte, a flags byte, an optional publisher peer ID, an optional expiry
// (unix seconds, big-endian), and the payload itself.
func encodeEnvelope(payload []byte, publisher *peer.ID, expiresAt *int64) []byte {
	var flags byte
	var publisherBytes []byte
	if publisher != nil {
		flags |= flagHasPublisher
		publisherBytes = []byte(*publisher)
	}
	if expiresAt != nil {
		flags |= flagHasExpiry
	}

	size := 2 + len(payload)
	if publisher != nil {
		size += binary.MaxVarintLen64 + len(publisherBytes)
	}
	if expiresAt != nil {
		size += 8
	}

	buf := make([]byte, 0, size)
	buf = append(buf, wireVersion, flags)
	if publisher != nil {
		var lenBuf [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(lenBuf[:], uint64(len(publisherBytes)))
		buf = append(buf, lenBuf[:n]...)
		buf = append(buf, publisherBytes...)
	}
	if expiresAt != nil {
		buf = binary.BigEndian.AppendUint64(buf, uint64(*expiresAt))
	}
	buf = append(buf, payload...)
	return buf
}

// decodeEnvelope is the inverse of encodeEnvelope.
func decodeEnvelope(data []byte) (payload []byte, publisher *peer.ID, expiresAt *int64, err error) {
	if len(data) < 2 {
		return nil, nil, nil, errs.New("schema.decodeEnvelope", errs.KindTruncated)
	}
	if data[0] != wireVersion {
		return nil, nil, nil, errs.Wrap("schema.decodeEnvelope", errs.KindUnsupportedVersion,
			fmt.Errorf("wire version %d", data[0]))
	}
	flags := data[1]
	rest := data[2:]

	if flags&flagHasPublisher != 0 {
		length, n := binary.Uvarint(rest)
		if n <= 0 {
			return nil, nil, nil, errs.New("schema.decodeEnvelope", errs.KindMalformed)
		}
		rest = rest[n:]
		if uint64(len(rest)) < length {
			return nil, nil, nil, errs.New("schema.decodeEnvelope", errs.KindTruncated)
		}
		id := peer.ID(rest[:length])
		publisher = &id
		rest = rest[length:]
	}

	if flags&flagHasExpiry != 0 {
		if len(rest) < 8 {
			return nil, nil, nil, errs.New("schema.decodeEnvelope", errs.KindTruncated)
		}
		ts := int64(binary.BigEndian.Uint64(rest[:8]))
		expiresAt = &ts
		rest = rest[8:]
	}

	payload = rest
	return payload, publisher, expiresAt, nil
}
