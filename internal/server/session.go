package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/artwire/internal/auth"
	"github.com/danmuck/artwire/internal/imagehash"
	"github.com/danmuck/artwire/internal/observability"
	"github.com/danmuck/artwire/internal/protocol"
	"github.com/rs/zerolog"
)

// Session is the per-connection command state. Login does not outlive the
// connection.
type Session struct {
	ID       string
	loggedIn bool

	store     *Store
	validator auth.Validator
	codec     protocol.Codec
	log       zerolog.Logger
}

func (s *Session) LoggedIn() bool {
	return s.loggedIn
}

// Request outcomes recorded per command.
const (
	outcomeOK          = "ok"
	outcomeDenied      = "denied"
	outcomeMissing     = "out_of_range"
	outcomeLoginFailed = "login_failed"
	outcomeDuplicate   = "duplicate"
	outcomeFull        = "full"
	outcomeMalformed   = "malformed"
	outcomeUnknown     = "unknown"
)

// Handle decodes one request payload and returns the reply text and whether
// the client asked to disconnect.
func (s *Session) Handle(payload []byte) (string, bool) {
	start := time.Now()
	reply, op, outcome, quit := s.dispatch(payload)
	observability.RecordRequest(op, outcome, time.Since(start))
	return reply, quit
}

func (s *Session) dispatch(payload []byte) (reply, op, outcome string, quit bool) {
	cmd, err := s.codec.Decode(payload)
	switch {
	case errors.Is(err, protocol.ErrEmptyPayload):
		return protocol.MalformedReply(err), "empty", outcomeMalformed, false
	case errors.Is(err, protocol.ErrUnknownOpcode):
		s.log.Debug().Str("opcode", string(rune(cmd.Op))).Msg("server.Session unknown command")
		return protocol.UnknownCommandReply(byte(cmd.Op)), "unknown", outcomeUnknown, false
	case err != nil:
		s.log.Debug().Err(err).Str("op", cmd.Op.String()).Msg("server.Session malformed command")
		return protocol.MalformedReply(err), cmd.Op.String(), outcomeMalformed, false
	}

	op = cmd.Op.String()
	s.log.Debug().Str("op", op).Msg("server.Session command")
	switch cmd.Op {
	case protocol.OpCount:
		return protocol.CountReply(s.store.Len()), op, outcomeOK, false
	case protocol.OpGet:
		reply, outcome = s.get(cmd.Index)
	case protocol.OpLogin:
		reply, outcome = s.login(cmd.Password)
	case protocol.OpAdd:
		reply, outcome = s.add(cmd.Add)
	case protocol.OpQuit:
		return protocol.ReplyGoodbye, op, outcomeOK, true
	}
	return reply, op, outcome, false
}

func (s *Session) get(index uint32) (string, string) {
	total := s.store.Len()
	if uint64(index) >= uint64(total) {
		return protocol.OutOfRangeReply(index, total), outcomeMissing
	}
	img, _ := s.store.Get(int(index))
	if img.Restricted && !s.loggedIn {
		return protocol.RestrictedReply(img.Caption), outcomeDenied
	}
	var b strings.Builder
	b.WriteString(protocol.ReplyImageHeader)
	b.WriteString(img.Caption)
	fmt.Fprintf(&b, "\n%s\n\n", img.Body)
	return b.String(), outcomeOK
}

func (s *Session) login(password string) (string, string) {
	if err := s.validator.Validate(password); err != nil {
		s.loggedIn = false
		s.log.Info().Msg("server.Session login rejected")
		return protocol.ReplyLoginFailed, outcomeLoginFailed
	}
	s.loggedIn = true
	s.log.Info().Msg("server.Session login accepted")
	return protocol.ReplyLoginOK, outcomeOK
}

func (s *Session) add(req protocol.AddImage) (string, string) {
	if len(req.Hash) != imagehash.Len {
		return protocol.HashLengthReply(imagehash.Len, len(req.Hash)), outcomeMalformed
	}

	var b strings.Builder
	b.WriteString(protocol.ReplyCheckingImage)
	width, height := dimensions(req.Image)
	fmt.Fprintf(&b, "Width %d and height %d\n", width, height)

	index, err := s.store.Add(Image{
		Caption:    req.Caption,
		Body:       req.Image,
		Hash:       req.Hash,
		Restricted: req.RequiresLogin,
	})
	outcome := outcomeOK
	switch {
	case errors.Is(err, ErrDuplicate):
		outcome = outcomeDuplicate
		b.WriteString(protocol.DuplicateReply(req.Caption))
	case errors.Is(err, ErrStoreFull):
		outcome = outcomeFull
		b.WriteString(protocol.ReplyServerFull)
	case err != nil:
		outcome = outcomeMalformed
		b.WriteString(protocol.MalformedReply(err))
	default:
		s.log.Info().Int("index", index).Bool("restricted", req.RequiresLogin).Msg("server.Session image added")
		observability.SetImageCount(s.store.Len())
		b.WriteString(protocol.AddedReply(index))
	}
	return b.String(), outcome
}

// dimensions returns the first line length and the newline count.
func dimensions(image string) (width, height int) {
	width = strings.IndexByte(image, '\n')
	if width < 0 {
		width = len(image)
	}
	return width, strings.Count(image, "\n")
}
