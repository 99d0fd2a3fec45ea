// Package store holds the in-memory, time-boxed message log. Expiry is
// destructive: once a message falls outside the retention window it is
// gone for good, there is no soft-delete state.
package store

import (
	"sync"
	"time"

	"github.com/vaporchat/vapor/internal/model"
)

// Store is a per-room ordered message log with TTL-based visibility.
// Messages are kept in arrival order, which matches timestamp order for
// single-process arrival; timestamp ties keep their arrival sequence.
type Store struct {
	mu    sync.Mutex
	ttl   time.Duration
	rooms map[string][]model.Message
	count int
}

// New returns an empty store retaining messages for ttl.
func New(ttl time.Duration) *Store {
	return &Store{
		ttl:   ttl,
		rooms: make(map[string][]model.Message),
	}
}

// TTL reports the retention window.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Append inserts a message at the tail of its room's log.
func (s *Store) Append(roomID string, msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms[roomID] = append(s.rooms[roomID], msg)
	s.count++
}

// Visible returns, in ascending createdAt order, every message of the
// room still inside the retention window at now, each annotated with its
// remaining lifetime.
func (s *Store) Visible(roomID string, now time.Time) []model.VisibleMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.rooms[roomID]
	visible := make([]model.VisibleMessage, 0, len(msgs))
	for _, m := range msgs {
		age := now.Sub(m.CreatedAt)
		if age > s.ttl {
			continue
		}
		visible = append(visible, model.VisibleMessage{
			Message:     m,
			RemainingMs: (s.ttl - age).Milliseconds(),
		})
	}
	return visible
}

// Sweep permanently removes every expired message across all rooms and
// returns the number removed. Safe to run concurrently with appends and
// idempotent for a fixed now.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for roomID, msgs := range s.rooms {
		kept := msgs[:0:0]
		for _, m := range msgs {
			if now.Sub(m.CreatedAt) > s.ttl {
				removed++
				continue
			}
			kept = append(kept, m)
		}
		if len(kept) == 0 {
			delete(s.rooms, roomID)
		} else {
			s.rooms[roomID] = kept
		}
	}
	s.count -= removed
	return removed
}

// DropRoom deletes a room's entire log, used when a private room
// destructs. Returns the number of messages dropped.
func (s *Store) DropRoom(roomID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.rooms[roomID])
	delete(s.rooms, roomID)
	s.count -= n
	return n
}

// Count reports the number of stored messages, expired or not, for the
// stats endpoint.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
