package wire

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := []struct {
		name      string
		messageID MessageID
		payload   []byte
	}{
		{"empty payload", MessageID{1, 2, 3}, nil},
		{"typical payload", MessageID{0xde, 0xad, 0xbe, 0xef}, []byte{0x01, 0x02, 0x03}},
		{"large payload", MessageID{}, make([]byte, 4096)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := EncodeFrame(tc.messageID, tc.payload)

			gotID, gotPayload, err := DecodeFrame(encoded)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.messageID, gotID); diff != "" {
				t.Errorf("message id mismatch (-want +got):\n%s", diff)
			}
			if len(tc.payload) == 0 && len(gotPayload) == 0 {
				return
			}
			if diff := cmp.Diff(tc.payload, gotPayload); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFrameChecksumDetection(t *testing.T) {
	encoded := EncodeFrame(MessageID{9, 9, 9}, []byte("hello"))

	var flips, detected int
	for i := range encoded {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), encoded...)
			tampered[i] ^= 1 << bit
			flips++

			if _, _, err := DecodeFrame(tampered); err != nil {
				detected++
			}
		}
	}

	// Every single-bit flip must be detected: it either breaks the
	// length-delimited framing (caught as ErrInvalidFraming) or survives
	// framing but changes message_id/payload/checksum bytes, which CRC32
	// catches with overwhelming probability.
	require.Equal(t, flips, detected, "some single-bit corruption went undetected")

	// The final byte is always checksum payload; flipping it must always be
	// caught, by construction (not merely "with high probability").
	tampered := append([]byte(nil), encoded...)
	tampered[len(tampered)-1] ^= 0xFF
	_, _, err := DecodeFrame(tampered)
	require.Error(t, err)
}

func TestFrameDecodeInvalidFraming(t *testing.T) {
	_, _, err := DecodeFrame([]byte{0xFF, 0xFF, 0xFF})
	require.ErrorIs(t, err, ErrInvalidFraming)
}

func TestFrameDecodeMissingMessageID(t *testing.T) {
	// Build a frame with only a payload field: no message_id, no checksum.
	var b []byte
	b = appendBytesFieldForTest(b, 2, []byte("x"))
	_, _, err := DecodeFrame(b)
	require.ErrorIs(t, err, ErrInvalidFraming)
}

func appendBytesFieldForTest(b []byte, num int, v []byte) []byte {
	// Minimal tag+length-delimited encoder, independent of the production
	// encoder, so the test doesn't validate itself against its own code path.
	tag := (num << 3) | 2
	b = appendVarintForTest(b, uint64(tag))
	b = appendVarintForTest(b, uint64(len(v)))
	return append(b, v...)
}

func appendVarintForTest(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}
