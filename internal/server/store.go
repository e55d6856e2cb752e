package server

import (
	"bytes"
	"errors"
	"sync"
	"unicode/utf8"
)

const (
	DefaultMaxImages = 100
	// MaxCaptionLen matches the server's fixed caption buffer minus its terminator.
	MaxCaptionLen = 0x60 - 1
)

var (
	ErrStoreFull = errors.New("server: image store full")
	ErrDuplicate = errors.New("server: image already present")
)

// Image is one stored ASCII-art image.
type Image struct {
	Caption    string
	Body       string
	Hash       []byte
	Restricted bool
}

// Store holds images in insertion order; the index is the wire index.
type Store struct {
	mu     sync.RWMutex
	images []Image
	max    int
}

func NewStore(max int) *Store {
	if max <= 0 {
		max = DefaultMaxImages
	}
	return &Store{max: max, images: make([]Image, 0, max)}
}

// Add appends img and returns its index. Captions longer than MaxCaptionLen
// bytes are truncated on a rune boundary.
func (s *Store) Add(img Image) (int, error) {
	img.Caption = truncateCaption(img.Caption)
	img.Hash = append([]byte(nil), img.Hash...)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.images {
		if existing.Body == img.Body && bytes.Equal(existing.Hash, img.Hash) {
			return -1, ErrDuplicate
		}
	}
	if len(s.images) >= s.max {
		return -1, ErrStoreFull
	}
	s.images = append(s.images, img)
	return len(s.images) - 1, nil
}

func (s *Store) Get(index int) (Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.images) {
		return Image{}, false
	}
	return s.images[index], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

func truncateCaption(caption string) string {
	if len(caption) <= MaxCaptionLen {
		return caption
	}
	cut := MaxCaptionLen
	for cut > 0 && !utf8.RuneStart(caption[cut]) {
		cut--
	}
	return caption[:cut]
}
