package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// HeaderLen is the size of the length prefix in front of every payload.
const HeaderLen = 4

var (
	ErrShortHeader       = errors.New("frame: short length header")
	ErrTruncatedPayload  = errors.New("frame: truncated payload")
	ErrPayloadTooLarge   = errors.New("frame: payload too large")
	ErrUnknownByteOrder  = errors.New("frame: unknown byte order")
	ErrInvalidHeaderSize = errors.New("frame: invalid header size")
)

// Options fixes the header byte order and bounds payload memory use.
type Options struct {
	Order           binary.ByteOrder
	MaxPayloadBytes uint32
}

func DefaultOptions() Options {
	return Options{
		Order:           binary.LittleEndian,
		MaxPayloadBytes: 8 * 1024 * 1024,
	}
}

func (o Options) withDefaults() Options {
	if o.Order == nil {
		o.Order = binary.LittleEndian
	}
	if o.MaxPayloadBytes == 0 {
		o.MaxPayloadBytes = DefaultOptions().MaxPayloadBytes
	}
	return o
}

// ParseByteOrder maps a config value to a byte order. Empty means little-endian.
func ParseByteOrder(raw string) (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "little", "le", "little-endian":
		return binary.LittleEndian, nil
	case "big", "be", "big-endian", "network":
		return binary.BigEndian, nil
	case "native", "host":
		return binary.NativeEndian, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownByteOrder, raw)
	}
}

// Encode returns the length header followed by payload.
func Encode(payload []byte, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	if uint64(len(payload)) > uint64(opts.MaxPayloadBytes) {
		return nil, ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderLen+len(payload))
	opts.Order.PutUint32(buf[:HeaderLen], uint32(len(payload)))
	copy(buf[HeaderLen:], payload)
	return buf, nil
}

// PayloadLen decodes a length header.
func PayloadLen(header []byte, order binary.ByteOrder) (uint32, error) {
	if len(header) < HeaderLen {
		return 0, fmt.Errorf("%w: %d", ErrInvalidHeaderSize, len(header))
	}
	if order == nil {
		order = binary.LittleEndian
	}
	return order.Uint32(header[:HeaderLen]), nil
}

// ReadFrame reads one header and exactly the payload it announces.
func ReadFrame(r io.Reader, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	var header [HeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}

	n, _ := PayloadLen(header[:], opts.Order)
	if n > opts.MaxPayloadBytes {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, n, opts.MaxPayloadBytes)
	}

	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return nil, ErrTruncatedPayload
			}
			return nil, err
		}
	}
	return payload, nil
}

// WriteFrame writes header and payload with a single buffered write, retrying
// short writes until the whole frame is out.
func WriteFrame(w io.Writer, payload []byte, opts Options) error {
	buf, err := Encode(payload, opts)
	if err != nil {
		return err
	}
	return writeAll(w, buf)
}

func writeAll(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		buf = buf[n:]
	}
	return nil
}
