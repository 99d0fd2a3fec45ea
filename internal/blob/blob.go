// Package blob is the thin in-memory file store backing message file
// references. Entries share the message retention window and expire
// destructively.
package blob

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTooLarge rejects an upload over the size ceiling before storage.
	ErrTooLarge = errors.New("blob: file exceeds the size ceiling")
	// ErrNotFound covers both unknown and already-expired blobs.
	ErrNotFound = errors.New("blob: not found or expired")
)

// Blob is one stored file. Immutable after creation.
type Blob struct {
	ID        string
	Data      []byte
	MimeType  string
	Name      string
	CreatedAt time.Time
}

// Store holds blobs keyed by id, capped at maxBytes each.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	maxBytes int64
	blobs    map[string]Blob
}

func New(ttl time.Duration, maxBytes int64) *Store {
	return &Store{
		ttl:      ttl,
		maxBytes: maxBytes,
		blobs:    make(map[string]Blob),
	}
}

// MaxBytes reports the size ceiling, for error reporting.
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// TTL reports the retention window.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Put stores a file and returns its generated id. The size ceiling is
// enforced before acceptance.
func (s *Store) Put(data []byte, mimeType, name string, now time.Time) (string, error) {
	if int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}

	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = Blob{
		ID:        id,
		Data:      data,
		MimeType:  mimeType,
		Name:      name,
		CreatedAt: now,
	}
	return id, nil
}

// Fetch returns a stored blob. Entries past the retention window report
// ErrNotFound even before the next sweep removes them.
func (s *Store) Fetch(id string, now time.Time) (Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[id]
	if !ok || now.Sub(b.CreatedAt) > s.ttl {
		return Blob{}, ErrNotFound
	}
	return b, nil
}

// Sweep permanently removes every expired blob and returns the number
// removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, b := range s.blobs {
		if now.Sub(b.CreatedAt) > s.ttl {
			delete(s.blobs, id)
			removed++
		}
	}
	return removed
}

// Count reports the number of stored blobs for the stats endpoint.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}
