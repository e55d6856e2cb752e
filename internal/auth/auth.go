// Package auth provides the image server's login check.
//
// It only compares passwords; it does not model users or sessions.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"math/big"
)

var ErrUnauthorized = errors.New("auth: unauthorized")

// PasswordLen matches the server's fixed password buffer minus its terminator.
const PasswordLen = 0x60 - 1

// GeneratedPrefix starts every generated password.
const GeneratedPrefix = "_1!0"

// Validator validates a login password.
type Validator interface {
	Validate(password string) error
}

// StaticToken validates against a single shared password.
type StaticToken struct {
	Token string
}

func (s StaticToken) Validate(token string) error {
	if s.Token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.Token), []byte(token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// GeneratePassword returns GeneratedPrefix followed by random lowercase
// letters, PasswordLen bytes in total.
func GeneratePassword() (string, error) {
	buf := make([]byte, PasswordLen)
	copy(buf, GeneratedPrefix)
	max := big.NewInt(26)
	for i := len(GeneratedPrefix); i < len(buf); i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = 'a' + byte(n.Int64())
	}
	return string(buf), nil
}
