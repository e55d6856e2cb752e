package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/artwire/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
)

func TestStaticTokenValidate(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name    string
		stored  string
		input   string
		wantErr error
	}{
		{name: "empty token denied", stored: "", input: "", wantErr: ErrUnauthorized},
		{name: "mismatched token denied", stored: "abc", input: "xyz", wantErr: ErrUnauthorized},
		{name: "prefix denied", stored: "abcdef", input: "abc", wantErr: ErrUnauthorized},
		{name: "matching token accepted", stored: "abc", input: "abc", wantErr: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := (StaticToken{Token: tc.stored}).Validate(tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v, got %v", tc.wantErr, err)
			}
			log.Debug().Str("case", tc.name).AnErr("result", err).Msg("auth/static-token")
		})
	}
}

func TestGeneratePassword(t *testing.T) {
	testlog.Start(t)
	a, err := GeneratePassword()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := GeneratePassword()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(a) != PasswordLen {
		t.Fatalf("unexpected length: %d", len(a))
	}
	if !strings.HasPrefix(a, GeneratedPrefix) {
		t.Fatalf("missing prefix: %q", a[:8])
	}
	for _, r := range a[len(GeneratedPrefix):] {
		if r < 'a' || r > 'z' {
			t.Fatalf("unexpected rune %q", r)
		}
	}
	if a == b {
		t.Fatalf("generated passwords should differ")
	}
}
