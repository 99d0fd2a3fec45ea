// Package room owns room membership, naming and lifecycle. The registry
// is the single authority: rooms hold member handles for lookup and
// broadcast only, never for lifetime control.
package room

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"

	"github.com/vaporchat/vapor/internal/names"
	"github.com/vaporchat/vapor/internal/store"
)

// GlobalID is the well-known default room. It exists for the lifetime of
// the process, is never private and is never destroyed.
const GlobalID = "global"

const maxNameLen = 20

// Default display names when the submitted one is empty after trimming.
const (
	HostName  = "Host"
	GuestName = "Guest"
)

var (
	// ErrInvalidRoomOrSecret deliberately covers both an unknown room and
	// a wrong secret so a prober cannot tell which one it hit.
	ErrInvalidRoomOrSecret = errors.New("room: invalid room or secret")
	ErrDuplicateName       = errors.New("room: display name already taken in this room")
	ErrNameLength          = errors.New("room: display name must be 1-20 characters")
)

// Member is one entry of a room's member list.
type Member struct {
	ID   uuid.UUID
	Name string
}

type record struct {
	private    bool
	secretHash string
	order      []uuid.UUID
	members    map[uuid.UUID]string
}

// Registry tracks every live room. It keeps a reference to the message
// store so a dying room can take its log with it.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*record
	store *store.Store
}

// NewRegistry returns a registry holding only the global room.
func NewRegistry(st *store.Store) *Registry {
	return &Registry{
		rooms: map[string]*record{
			GlobalID: {members: make(map[uuid.UUID]string)},
		},
		store: st,
	}
}

// ValidateName trims the submitted display name and enforces the length
// rule. An empty result falls back to the role default; only explicitly
// out-of-range names are rejected.
func ValidateName(raw, fallback string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return fallback, nil
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "", ErrNameLength
	}
	return name, nil
}

// newSecret returns a short random token. It gates access as a shared
// password and says nothing about identity.
func newSecret() string {
	rnd := make([]byte, 4)

	// rand.Read() never returns an error.
	_, _ = rand.Read(rnd)
	return hex.EncodeToString(rnd)
}

// Create makes a private room with the creator as its only member and
// returns the plaintext secret exactly once; only its hash is kept.
func (r *Registry) Create(creator uuid.UUID, name string) (roomID, secret, effectiveName string, err error) {
	effectiveName, err = ValidateName(name, HostName)
	if err != nil {
		return "", "", "", err
	}

	secret = newSecret()
	hash, err := argon2id.CreateHash(secret, argon2id.DefaultParams)
	if err != nil {
		return "", "", "", fmt.Errorf("room: secret hash failed: %w", err)
	}

	roomID = uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[roomID] = &record{
		private:    true,
		secretHash: hash,
		order:      []uuid.UUID{creator},
		members:    map[uuid.UUID]string{creator: effectiveName},
	}
	return roomID, secret, effectiveName, nil
}

// Join adds the identity to a room after checking the secret and the
// display name. An identity that is already a member keeps its existing
// name; the caller handles leaving its prior room.
func (r *Registry) Join(id uuid.UUID, roomID, secret, name string) (string, error) {
	r.mu.Lock()
	rec, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return "", ErrInvalidRoomOrSecret
	}
	private, hash := rec.private, rec.secretHash
	r.mu.Unlock()

	// Verify outside the lock; argon2id comparison is deliberately slow.
	if private {
		match, err := argon2id.ComparePasswordAndHash(secret, hash)
		if err != nil || !match {
			return "", ErrInvalidRoomOrSecret
		}
	}

	effectiveName, err := ValidateName(name, GuestName)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// The room may have died while we were hashing.
	rec, ok = r.rooms[roomID]
	if !ok {
		return "", ErrInvalidRoomOrSecret
	}
	// An identity already in the room keeps its name; renames mid
	// membership are not supported.
	if current, already := rec.members[id]; already {
		return current, nil
	}

	for memberID, memberName := range rec.members {
		if memberID != id && memberName == effectiveName {
			return "", ErrDuplicateName
		}
	}

	rec.order = append(rec.order, id)
	rec.members[id] = effectiveName
	return effectiveName, nil
}

// JoinDefault places the identity into the global room. No secret or
// length check applies; a colliding pseudonym is regenerated so the
// per-room uniqueness invariant holds.
func (r *Registry) JoinDefault(id uuid.UUID, preferred string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.rooms[GlobalID]
	name := preferred
	for taken(rec, id, name) {
		name = names.Pseudonym()
	}

	if _, already := rec.members[id]; !already {
		rec.order = append(rec.order, id)
	}
	rec.members[id] = name
	return name
}

func taken(rec *record, id uuid.UUID, name string) bool {
	for memberID, memberName := range rec.members {
		if memberID != id && memberName == name {
			return true
		}
	}
	return false
}

// Leave removes the identity from a room. A private room whose last
// member leaves is destroyed on the spot, along with its message log.
func (r *Registry) Leave(id uuid.UUID, roomID string) (destroyed bool, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[roomID]
	if !ok {
		return false, 0
	}
	if _, member := rec.members[id]; !member {
		return false, len(rec.members)
	}

	delete(rec.members, id)
	for i, memberID := range rec.order {
		if memberID == id {
			rec.order = append(rec.order[:i], rec.order[i+1:]...)
			break
		}
	}

	if rec.private && len(rec.members) == 0 {
		delete(r.rooms, roomID)
		r.store.DropRoom(roomID)
		return true, 0
	}
	return false, len(rec.members)
}

// Users returns the room's member list in join order.
func (r *Registry) Users(roomID string) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	users := make([]Member, 0, len(rec.order))
	for _, id := range rec.order {
		users = append(users, Member{ID: id, Name: rec.members[id]})
	}
	return users
}

// MemberCount reports the membership of a room, 0 for unknown rooms.
func (r *Registry) MemberCount(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[roomID]
	if !ok {
		return 0
	}
	return len(rec.members)
}

// Exists reports whether a room is still alive.
func (r *Registry) Exists(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[roomID]
	return ok
}

// Count reports the number of live rooms for the stats endpoint.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
