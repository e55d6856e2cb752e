package protocol

import (
	"bytes"
	"strconv"

	"github.com/danmuck/artwire/internal/protocol/tlv"
)

// TLV field ids used by the fielded layout.
const (
	fieldIndex    uint8 = 1
	fieldFlag     uint8 = 2
	fieldCaption  uint8 = 3
	fieldImage    uint8 = 4
	fieldHash     uint8 = 5
	fieldPassword uint8 = 6
)

// EncodeCount returns the legacy count payload.
func EncodeCount() []byte {
	return []byte{byte(OpCount)}
}

// EncodeQuit returns the legacy quit payload.
func EncodeQuit() []byte {
	return []byte{byte(OpQuit)}
}

// EncodeGet returns 'g', the decimal index and a NUL terminator.
func EncodeGet(index uint32) []byte {
	out := make([]byte, 0, 12)
	out = append(out, byte(OpGet))
	out = strconv.AppendUint(out, uint64(index), 10)
	return append(out, 0)
}

// EncodeAdd returns 'a', the flag byte, NUL-terminated caption and image, then
// the raw hash bytes. Caption and image must not contain NUL.
func EncodeAdd(req AddImage) ([]byte, error) {
	if containsNUL(req.Caption) || containsNUL(req.Image) {
		return nil, ErrEmbeddedNUL
	}
	out := make([]byte, 0, 4+len(req.Caption)+len(req.Image)+len(req.Hash))
	out = append(out, byte(OpAdd), flagByte(req.RequiresLogin))
	out = append(out, req.Caption...)
	out = append(out, 0)
	out = append(out, req.Image...)
	out = append(out, 0)
	return append(out, req.Hash...), nil
}

// EncodeLogin returns 'l' followed by the password. The outer frame length
// delimits the password.
func EncodeLogin(password string) []byte {
	out := make([]byte, 0, 1+len(password))
	out = append(out, byte(OpLogin))
	return append(out, password...)
}

// Codec encodes and decodes command payloads for one layout.
type Codec struct {
	Layout Layout
}

func NewCodec(layout Layout) Codec {
	if layout == "" {
		layout = LayoutLegacy
	}
	return Codec{Layout: layout}
}

func (c Codec) Count() []byte { return EncodeCount() }

func (c Codec) Quit() []byte { return EncodeQuit() }

func (c Codec) Get(index uint32) []byte {
	if c.fielded() {
		return withFields(OpGet, tlv.U32(fieldIndex, index))
	}
	return EncodeGet(index)
}

func (c Codec) Add(req AddImage) ([]byte, error) {
	if c.fielded() {
		return withFields(OpAdd,
			tlv.Bool(fieldFlag, req.RequiresLogin),
			tlv.String(fieldCaption, req.Caption),
			tlv.String(fieldImage, req.Image),
			tlv.Bytes(fieldHash, req.Hash),
		), nil
	}
	return EncodeAdd(req)
}

func (c Codec) Login(password string) []byte {
	if c.fielded() {
		return withFields(OpLogin, tlv.String(fieldPassword, password))
	}
	return EncodeLogin(password)
}

func (c Codec) fielded() bool {
	return c.Layout == LayoutFielded
}

func withFields(op Opcode, fields ...tlv.Field) []byte {
	body := tlv.EncodeFields(fields)
	out := make([]byte, 0, 1+len(body))
	out = append(out, byte(op))
	return append(out, body...)
}

func flagByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func containsNUL(s string) bool {
	return bytes.IndexByte([]byte(s), 0) >= 0
}
