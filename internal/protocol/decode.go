package protocol

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/danmuck/artwire/internal/protocol/tlv"
)

// Decode parses one request payload according to the codec layout. Unknown
// opcodes return the opcode together with ErrUnknownOpcode so callers can
// still report it.
func (c Codec) Decode(payload []byte) (Command, error) {
	if len(payload) == 0 {
		return Command{}, ErrEmptyPayload
	}
	cmd := Command{Op: Opcode(payload[0])}
	args := payload[1:]

	switch cmd.Op {
	case OpCount, OpQuit:
		return cmd, nil
	case OpGet, OpAdd, OpLogin:
	default:
		return cmd, fmt.Errorf("%w: %q", ErrUnknownOpcode, payload[0])
	}

	var err error
	if c.fielded() {
		err = decodeFielded(&cmd, args)
	} else {
		err = decodeLegacy(&cmd, args)
	}
	if err != nil {
		return Command{Op: cmd.Op}, err
	}
	return cmd, nil
}

func decodeLegacy(cmd *Command, args []byte) error {
	switch cmd.Op {
	case OpGet:
		digits := args
		if i := bytes.IndexByte(args, 0); i >= 0 {
			digits = args[:i]
		}
		n, err := strconv.ParseUint(string(digits), 10, 32)
		if err != nil {
			return fmt.Errorf("%w: get index %q", ErrMalformedPayload, digits)
		}
		cmd.Index = uint32(n)
	case OpAdd:
		if len(args) < 1 {
			return fmt.Errorf("%w: add missing flag", ErrMalformedPayload)
		}
		cmd.Add.RequiresLogin = args[0] != 0
		rest := args[1:]
		caption, rest, ok := cutNUL(rest)
		if !ok {
			return fmt.Errorf("%w: add caption not terminated", ErrMalformedPayload)
		}
		image, rest, ok := cutNUL(rest)
		if !ok {
			return fmt.Errorf("%w: add image not terminated", ErrMalformedPayload)
		}
		cmd.Add.Caption = string(caption)
		cmd.Add.Image = string(image)
		cmd.Add.Hash = append([]byte(nil), rest...)
	case OpLogin:
		// Older clients NUL-terminate the password.
		cmd.Password = string(bytes.TrimSuffix(args, []byte{0}))
	}
	return nil
}

func decodeFielded(cmd *Command, args []byte) error {
	fields, err := tlv.DecodeFields(args)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	switch cmd.Op {
	case OpGet:
		f, err := tlv.Require(fields, fieldIndex, tlv.TypeU32)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
		cmd.Index, err = tlv.U32FromBytes(f.Value)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
	case OpAdd:
		flag, err := tlv.Require(fields, fieldFlag, tlv.TypeBool)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
		if len(flag.Value) != 1 {
			return fmt.Errorf("%w: add flag length %d", ErrMalformedPayload, len(flag.Value))
		}
		caption, err := tlv.Require(fields, fieldCaption, tlv.TypeString)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
		image, err := tlv.Require(fields, fieldImage, tlv.TypeString)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
		hash, err := tlv.Require(fields, fieldHash, tlv.TypeBytes)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
		cmd.Add = AddImage{
			RequiresLogin: flag.Value[0] != 0,
			Caption:       string(caption.Value),
			Image:         string(image.Value),
			Hash:          hash.Value,
		}
	case OpLogin:
		f, err := tlv.Require(fields, fieldPassword, tlv.TypeString)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
		cmd.Password = string(f.Value)
	}
	return nil
}

func cutNUL(b []byte) (before, after []byte, ok bool) {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return nil, nil, false
	}
	return b[:i], b[i+1:], true
}
