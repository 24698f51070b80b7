package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Serial frame envelope. One frame is marker(1) | length(u16 LE) | payload.
// The two link directions use distinct marker bytes.
const (
	MarkerToRadio   byte = 0x3C // '<'
	MarkerFromRadio byte = 0x3E // '>'

	headerLen = 3
)

var (
	ErrNotAFrame       = errors.New("frame: not a protocol frame")
	ErrShortHeader     = errors.New("frame: short frame header")
	ErrEmptyFrame      = errors.New("frame: zero-length payload")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes int
}

func DefaultLimits() Limits {
	// The firmware caps its own frames at 172 bytes; 300 leaves headroom
	// for newer builds while still bounding a corrupt length field.
	return Limits{MaxPayloadBytes: 300}
}

// ReadFrame consumes one radio-to-host frame and returns its payload.
//
// The payload length always comes from the two-byte length field and
// exactly that many bytes are consumed. Payload bytes are opaque: values
// that collide with command codes or line terminators (0x0A in
// particular) must pass through untouched, so no delimiter scan is ever
// applied.
//
// A first byte that is not the frame marker returns ErrNotAFrame wrapping
// the byte value; the caller resynchronizes by reading again. That traffic
// is expected link noise, not an error condition.
func ReadFrame(r io.Reader, limits Limits) ([]byte, error) {
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return nil, err
	}
	if first[0] != MarkerFromRadio {
		return nil, fmt.Errorf("%w: leading byte 0x%02x", ErrNotAFrame, first[0])
	}

	var lb [2]byte
	if _, err := io.ReadFull(r, lb[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}

	length := int(binary.LittleEndian.Uint16(lb[:]))
	if length == 0 {
		return nil, ErrEmptyFrame
	}
	if length > limits.MaxPayloadBytes {
		return nil, fmt.Errorf("%w: declared %d, limit %d", ErrPayloadTooLarge, length, limits.MaxPayloadBytes)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes one host-to-radio frame wrapping payload.
func WriteFrame(w io.Writer, payload []byte, limits Limits) error {
	buf, err := Encode(payload, limits)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// Encode wraps payload in the host-to-radio envelope.
func Encode(payload []byte, limits Limits) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyFrame
	}
	if len(payload) > limits.MaxPayloadBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, len(payload), limits.MaxPayloadBytes)
	}
	buf := make([]byte, headerLen+len(payload))
	buf[0] = MarkerToRadio
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(payload)))
	copy(buf[headerLen:], payload)
	return buf, nil
}
