package server

import (
	"bytes"
	"strings"
	"testing"

	"github.com/danmuck/artwire/internal/auth"
	"github.com/danmuck/artwire/internal/imagehash"
	"github.com/danmuck/artwire/internal/protocol"
	"github.com/danmuck/artwire/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
)

func newTestSession(layout protocol.Layout) *Session {
	store := NewStore(DefaultMaxImages)
	for _, img := range DefaultImages() {
		_, _ = store.Add(img)
	}
	return &Session{
		ID:        "test",
		store:     store,
		validator: auth.StaticToken{Token: "hunter2"},
		codec:     protocol.NewCodec(layout),
		log:       log.Logger,
	}
}

func TestSessionCountGetLogin(t *testing.T) {
	testlog.Start(t)
	s := newTestSession(protocol.LayoutLegacy)

	if reply, quit := s.Handle(protocol.EncodeCount()); reply != protocol.CountReply(2) || quit {
		t.Fatalf("count reply=%q quit=%v", reply, quit)
	}

	reply, _ := s.Handle(protocol.EncodeGet(0))
	if !strings.Contains(reply, "Access to the image with caption 'Access Restricted' is restricted") {
		t.Fatalf("expected restricted reply, got %q", reply)
	}

	reply, _ = s.Handle(protocol.EncodeGet(1))
	if !strings.HasPrefix(reply, protocol.ReplyImageHeader) || !strings.Contains(reply, "(((---(((") {
		t.Fatalf("expected public image, got %q", reply)
	}

	reply, _ = s.Handle(protocol.EncodeGet(7))
	if reply != protocol.OutOfRangeReply(7, 2) {
		t.Fatalf("unexpected out of range reply: %q", reply)
	}

	if reply, _ := s.Handle(protocol.EncodeLogin("wrong")); reply != protocol.ReplyLoginFailed || s.LoggedIn() {
		t.Fatalf("bad login reply=%q logged_in=%v", reply, s.LoggedIn())
	}
	if reply, _ := s.Handle(append(protocol.EncodeLogin("hunter2"), 0)); reply != protocol.ReplyLoginOK || !s.LoggedIn() {
		t.Fatalf("login reply=%q logged_in=%v", reply, s.LoggedIn())
	}
	reply, _ = s.Handle(protocol.EncodeGet(0))
	if !strings.HasPrefix(reply, protocol.ReplyImageHeader+"Access Restricted\n") {
		t.Fatalf("expected restricted image after login, got %q", reply)
	}

	if reply, _ := s.Handle(protocol.EncodeLogin("wrong")); reply != protocol.ReplyLoginFailed || s.LoggedIn() {
		t.Fatalf("failed login should log out: reply=%q logged_in=%v", reply, s.LoggedIn())
	}
}

func TestSessionAdd(t *testing.T) {
	testlog.Start(t)
	for _, layout := range []protocol.Layout{protocol.LayoutLegacy, protocol.LayoutFielded} {
		s := newTestSession(layout)
		codec := protocol.NewCodec(layout)
		body := "+--+\n|  |\n+--+\n"
		payload, err := codec.Add(protocol.AddImage{Caption: "box", Image: body, Hash: imagehash.Sum(body)})
		if err != nil {
			t.Fatalf("%s encode: %v", layout, err)
		}

		reply, _ := s.Handle(payload)
		if !strings.Contains(reply, protocol.AddedReply(2)) || !strings.Contains(reply, "Width 4 and height 3") {
			t.Fatalf("%s add reply=%q", layout, reply)
		}
		reply, _ = s.Handle(payload)
		if !strings.Contains(reply, protocol.DuplicateReply("box")) {
			t.Fatalf("%s duplicate reply=%q", layout, reply)
		}

		short, _ := codec.Add(protocol.AddImage{Caption: "short", Image: "x\n", Hash: []byte{1, 2, 3}})
		reply, _ = s.Handle(short)
		if reply != protocol.HashLengthReply(imagehash.Len, 3) {
			t.Fatalf("%s hash length reply=%q", layout, reply)
		}
		if s.store.Len() != 3 {
			t.Fatalf("%s unexpected store len: %d", layout, s.store.Len())
		}
	}
}

func TestSessionFullStore(t *testing.T) {
	testlog.Start(t)
	s := newTestSession(protocol.LayoutLegacy)
	s.store = NewStore(1)
	_, _ = s.store.Add(Image{Body: "seed\n", Hash: imagehash.Sum("seed\n")})
	payload, _ := protocol.EncodeAdd(protocol.AddImage{Caption: "late", Image: "y\n", Hash: imagehash.Sum("y\n")})
	reply, _ := s.Handle(payload)
	if !strings.HasSuffix(reply, protocol.ReplyServerFull) {
		t.Fatalf("expected full reply, got %q", reply)
	}
}

func TestSessionUnknownMalformedAndQuit(t *testing.T) {
	testlog.Start(t)
	s := newTestSession(protocol.LayoutLegacy)

	if reply, quit := s.Handle([]byte("z")); reply != protocol.UnknownCommandReply('z') || quit {
		t.Fatalf("unknown reply=%q quit=%v", reply, quit)
	}
	if reply, _ := s.Handle([]byte("gNaN\x00")); !strings.HasPrefix(reply, "Malformed command") {
		t.Fatalf("malformed reply=%q", reply)
	}
	if reply, _ := s.Handle(nil); !strings.HasPrefix(reply, "Malformed command") {
		t.Fatalf("empty reply=%q", reply)
	}
	reply, quit := s.Handle(protocol.EncodeQuit())
	if reply != protocol.ReplyGoodbye || !quit {
		t.Fatalf("quit reply=%q quit=%v", reply, quit)
	}
}

func TestDimensions(t *testing.T) {
	w, h := dimensions("abc\nde\n")
	if w != 3 || h != 2 {
		t.Fatalf("dimensions=%d,%d", w, h)
	}
	w, h = dimensions("no newline")
	if w != 10 || h != 0 {
		t.Fatalf("dimensions=%d,%d", w, h)
	}
	if !bytes.Contains([]byte(protocol.WelcomeBanner()), []byte("Welcome to the image server")) {
		t.Fatalf("banner missing greeting")
	}
}
