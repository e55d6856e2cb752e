package protocol

import (
	"fmt"
	"strings"
)

// Opcode is the first payload byte.
type Opcode byte

const (
	OpCount Opcode = 'c'
	OpGet   Opcode = 'g'
	OpAdd   Opcode = 'a'
	OpLogin Opcode = 'l'
	OpQuit  Opcode = 'q'
)

func (o Opcode) String() string {
	switch o {
	case OpCount:
		return "count"
	case OpGet:
		return "get"
	case OpAdd:
		return "add"
	case OpLogin:
		return "login"
	case OpQuit:
		return "quit"
	default:
		return fmt.Sprintf("opcode(%q)", byte(o))
	}
}

func (o Opcode) Known() bool {
	switch o {
	case OpCount, OpGet, OpAdd, OpLogin, OpQuit:
		return true
	}
	return false
}

// Layout selects how command arguments are delimited after the opcode.
type Layout string

const (
	// LayoutLegacy is wire compatible with deployed image servers: NUL-terminated
	// get/add fields, un-terminated login password.
	LayoutLegacy Layout = "legacy"
	// LayoutFielded encodes every argument as a length-prefixed TLV field.
	LayoutFielded Layout = "fielded"
)

func ParseLayout(raw string) (Layout, error) {
	switch Layout(strings.ToLower(strings.TrimSpace(raw))) {
	case "", LayoutLegacy:
		return LayoutLegacy, nil
	case LayoutFielded:
		return LayoutFielded, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLayout, raw)
	}
}

// AddImage carries the arguments of the add command.
type AddImage struct {
	RequiresLogin bool
	Caption       string
	Image         string
	Hash          []byte
}

// Command is one decoded request payload.
type Command struct {
	Op       Opcode
	Index    uint32
	Add      AddImage
	Password string
}
