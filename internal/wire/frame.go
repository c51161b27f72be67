package wire

import (
	"errors"
	"hash/crc32"

	"google.golang.org/protobuf/encoding/protowire"
)

// MessageID is the fixed 16-byte opaque correlation token chosen by the
// client. The server never interprets its contents, only its equality.
type MessageID [16]byte

// Msg field numbers, fixed by the wire schema.
const (
	msgFieldMessageID protowire.Number = 1
	msgFieldPayload   protowire.Number = 2
	msgFieldChecksum  protowire.Number = 3
)

var (
	// ErrInvalidFraming is returned when a buffer cannot be parsed as a Msg
	// envelope at all (truncated, bad tag, wrong wire type, missing field).
	ErrInvalidFraming = errors.New("wire: invalid framing")
	// ErrInvalidChecksumWire is returned when a Msg parses cleanly but its
	// checksum field does not match the recomputed CRC32 of message_id ∥ payload.
	ErrInvalidChecksumWire = errors.New("wire: checksum mismatch")
)

// EncodeFrame serialises messageID and payload into a Msg envelope,
// recomputing the checksum field. The IEEE CRC32 of message_id ∥ payload is
// stored zero-extended in the low 32 bits of the 64-bit checksum field.
func EncodeFrame(messageID MessageID, payload []byte) []byte {
	sum := checksumOf(messageID, payload)

	b := protowire.AppendTag(nil, msgFieldMessageID, protowire.BytesType)
	b = protowire.AppendBytes(b, messageID[:])
	b = protowire.AppendTag(b, msgFieldPayload, protowire.BytesType)
	b = protowire.AppendBytes(b, payload)
	b = protowire.AppendTag(b, msgFieldChecksum, protowire.VarintType)
	b = protowire.AppendVarint(b, sum)
	return b
}

// DecodeFrame parses a Msg envelope and verifies its checksum. It returns
// ErrInvalidFraming if the envelope cannot be parsed, or ErrInvalidChecksumWire
// if it parses but the checksum field doesn't match.
func DecodeFrame(frame []byte) (messageID MessageID, payload []byte, err error) {
	var haveID, haveChecksum bool
	var checksum uint64

	b := frame
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return MessageID{}, nil, ErrInvalidFraming
		}
		b = b[n:]

		switch num {
		case msgFieldMessageID:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 || typ != protowire.BytesType || len(v) != 16 {
				return MessageID{}, nil, ErrInvalidFraming
			}
			copy(messageID[:], v)
			haveID = true
			b = b[n:]
		case msgFieldPayload:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 || typ != protowire.BytesType {
				return MessageID{}, nil, ErrInvalidFraming
			}
			payload = append([]byte(nil), v...)
			b = b[n:]
		case msgFieldChecksum:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 || typ != protowire.VarintType {
				return MessageID{}, nil, ErrInvalidFraming
			}
			checksum = v
			haveChecksum = true
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return MessageID{}, nil, ErrInvalidFraming
			}
			b = b[n:]
		}
	}

	if !haveID || !haveChecksum {
		return MessageID{}, nil, ErrInvalidFraming
	}
	if want := checksumOf(messageID, payload); checksum != want {
		return MessageID{}, nil, ErrInvalidChecksumWire
	}
	return messageID, payload, nil
}

func checksumOf(messageID MessageID, payload []byte) uint64 {
	h := crc32.NewIEEE()
	h.Write(messageID[:])
	h.Write(payload)
	return uint64(h.Sum32())
}
