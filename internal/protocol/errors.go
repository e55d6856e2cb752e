package protocol

import "errors"

var (
	ErrEmptyPayload     = errors.New("protocol: empty payload")
	ErrUnknownOpcode    = errors.New("protocol: unknown opcode")
	ErrMalformedPayload = errors.New("protocol: malformed payload")
	ErrEmbeddedNUL      = errors.New("protocol: field contains NUL byte")
	ErrUnknownLayout    = errors.New("protocol: unknown payload layout")
	ErrUnexpectedReply  = errors.New("protocol: unexpected reply")
)
