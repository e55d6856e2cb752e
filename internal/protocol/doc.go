// Package protocol owns the image server wire contract.
//
// Ownership boundary:
// - opcodes and command payload layouts (legacy NUL-delimited, fielded TLV)
// - payload decoding for the server side
// - fixed reply sentences shared by server and client
//
// Framing lives in protocol/frame; sub-field encoding in protocol/tlv.
package protocol
