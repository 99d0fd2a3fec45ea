// Package ws owns the connection lifecycle: identity assignment, room
// transitions, inbound command dispatch and per-room fan-out.
package ws

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/vaporchat/vapor/internal/model"
	"github.com/vaporchat/vapor/internal/ratelimit"
	"github.com/vaporchat/vapor/internal/room"
	"github.com/vaporchat/vapor/internal/store"
)

type sanitizer interface {
	Sanitize(s string) string
}

// Hub routes every inbound command and fan-out. Fan-out happens
// synchronously from whichever connection handler produced the event;
// enqueues are non-blocking, so holding the hub lock across them never
// stalls on a slow connection while still preserving per-room order.
type Hub struct {
	mu        sync.Mutex
	clients   map[uuid.UUID]*Client
	registry  *room.Registry
	store     *store.Store
	cooldown  *ratelimit.Cooldown
	sanitizer sanitizer
}

// NewHub wires the hub to its lock-guarded collaborators. Nothing here
// is a singleton; tests build as many hubs as they like.
func NewHub(registry *room.Registry, st *store.Store, cooldown *ratelimit.Cooldown) *Hub {
	return &Hub{
		clients:   make(map[uuid.UUID]*Client),
		registry:  registry,
		store:     st,
		cooldown:  cooldown,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Register assigns the client its identity envelope and places it into
// the global room. The identity envelope is enqueued first so it always
// precedes any room envelope on the wire.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.ID] = c
	c.enqueue(model.Envelope{Type: model.KindIdentity, Data: model.IdentityData{
		UserID:    c.ID,
		Pseudonym: c.Pseudonym,
	}})
	h.placeInGlobalLocked(c)
}

// Unregister removes the client from every room it belonged to, fires
// the membership updates, drops its rate entry and closes its outbound
// queue. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	h.leaveCurrentLocked(c)
	h.cooldown.Forget(c.ID.String())
	c.close()
}

// ConnectionCount reports the number of open connections.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dispatch handles one inbound frame. A malformed payload yields an
// error envelope to the sender only, with no state mutation and no
// disconnect.
func (h *Hub) Dispatch(c *Client, raw []byte) {
	frame, err := model.DecodeFrame(raw)
	if err != nil {
		c.enqueue(errEnvelope(model.CodeValidation, "malformed frame"))
		return
	}

	switch frame.Type {
	case model.KindPing:
		c.enqueue(model.Envelope{Type: model.KindPong})
	case model.KindMessage:
		h.handleMessage(c, frame.Data)
	case model.KindCreateRoom:
		h.handleCreateRoom(c, frame.Data)
	case model.KindJoinRoom:
		h.handleJoinRoom(c, frame.Data)
	case model.KindLeaveRoom:
		h.handleLeaveRoom(c)
	default:
		c.enqueue(errEnvelope(model.CodeValidation, "unknown frame type "+frame.Type))
	}
}

func (h *Hub) handleMessage(c *Client, data json.RawMessage) {
	var p model.SendPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.enqueue(errEnvelope(model.CodeValidation, "malformed message payload"))
		return
	}

	text := strings.TrimSpace(h.sanitizer.Sanitize(p.Text))
	if text == "" && p.FileID == "" {
		c.enqueue(errEnvelope(model.CodeValidation, "message is empty"))
		return
	}

	if !h.cooldown.Allow(c.ID.String(), time.Now().UTC()) {
		c.enqueue(errEnvelope(model.CodeRateLimited, "sending too fast, slow down"))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Stamped under the lock so append order never inverts createdAt
	// across concurrent senders.
	msg := model.Message{
		ID:        uuid.New(),
		RoomID:    c.room,
		Text:      text,
		Sender:    c.name,
		SenderID:  c.ID,
		FileID:    p.FileID,
		CreatedAt: time.Now().UTC(),
	}
	h.store.Append(c.room, msg)
	h.broadcastLocked(c.room, model.Envelope{Type: model.KindNewMessage, Data: model.VisibleMessage{
		Message:     msg,
		RemainingMs: h.store.TTL().Milliseconds(),
	}})
}

func (h *Hub) handleCreateRoom(c *Client, data json.RawMessage) {
	var p model.CreateRoomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.enqueue(errEnvelope(model.CodeValidation, "malformed create_room payload"))
		return
	}

	// Create before taking the hub lock; hashing the room secret is slow
	// on purpose and must not stall other rooms.
	roomID, secret, name, err := h.registry.Create(c.ID, p.Name)
	if err != nil {
		c.enqueue(roomError(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveCurrentLocked(c)
	c.room, c.name = roomID, name
	c.names[roomID] = name

	c.enqueue(model.Envelope{Type: model.KindRoomCreated, Data: model.RoomCreatedData{
		RoomID: roomID,
		Secret: secret,
	}})
	h.systemNoticeLocked(roomID, name+" joined the room")
	h.membershipChangedLocked(roomID)
	h.sendInitLocked(c)
}

func (h *Hub) handleJoinRoom(c *Client, data json.RawMessage) {
	var p model.JoinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.enqueue(errEnvelope(model.CodeValidation, "malformed join_room payload"))
		return
	}

	// Rejoining the current room would amount to a mid-session rename,
	// which is not supported.
	h.mu.Lock()
	if c.room == p.RoomID {
		h.mu.Unlock()
		c.enqueue(errEnvelope(model.CodeValidation, "already in this room"))
		return
	}
	h.mu.Unlock()

	// Secret verification happens outside the hub lock for the same
	// reason room creation does. On any failure the connection stays in
	// its prior room untouched.
	name, err := h.registry.Join(c.ID, p.RoomID, p.Secret, p.Name)
	if err != nil {
		c.enqueue(roomError(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveCurrentLocked(c)
	c.room, c.name = p.RoomID, name
	c.names[p.RoomID] = name

	c.enqueue(model.Envelope{Type: model.KindRoomJoined, Data: model.RoomJoinedData{
		RoomID: p.RoomID,
		Name:   name,
	}})
	h.systemNoticeLocked(p.RoomID, name+" joined the room")
	h.membershipChangedLocked(p.RoomID)
	h.sendInitLocked(c)
}

func (h *Hub) handleLeaveRoom(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.room == room.GlobalID {
		c.enqueue(errEnvelope(model.CodeValidation, "already in the global room"))
		return
	}
	h.leaveCurrentLocked(c)
	h.placeInGlobalLocked(c)
}

// placeInGlobalLocked moves the client into the global room under its
// remembered global name, falling back to its pseudonym.
func (h *Hub) placeInGlobalLocked(c *Client) {
	preferred := c.names[room.GlobalID]
	if preferred == "" {
		preferred = c.Pseudonym
	}
	name := h.registry.JoinDefault(c.ID, preferred)
	c.room, c.name = room.GlobalID, name
	c.names[room.GlobalID] = name

	h.systemNoticeLocked(room.GlobalID, name+" joined the room")
	h.membershipChangedLocked(room.GlobalID)
	h.sendInitLocked(c)
}

// leaveCurrentLocked removes the client from its current room. The
// "left" notice and membership updates fire only if the room survives
// with at least one member.
func (h *Hub) leaveCurrentLocked(c *Client) {
	prior := c.room
	if prior == "" {
		return
	}
	priorName := c.name
	c.room, c.name = "", ""

	destroyed, remaining := h.registry.Leave(c.ID, prior)
	if destroyed || remaining == 0 {
		return
	}
	h.systemNoticeLocked(prior, priorName+" left the room")
	h.membershipChangedLocked(prior)
}

// membershipChangedLocked fires the two broadcasts every membership
// change owes its room: updated count, then updated list.
func (h *Hub) membershipChangedLocked(roomID string) {
	members := h.registry.Users(roomID)
	users := make([]model.RoomUser, 0, len(members))
	for _, m := range members {
		users = append(users, model.RoomUser{UserID: m.ID, Name: m.Name})
	}

	h.broadcastLocked(roomID, model.Envelope{Type: model.KindRoomUsers, Data: model.RoomUsersData{
		RoomID: roomID,
		Count:  len(members),
	}})
	h.broadcastLocked(roomID, model.Envelope{Type: model.KindRoomUserList, Data: model.RoomUserListData{
		RoomID: roomID,
		Users:  users,
	}})
}

// systemNoticeLocked broadcasts a transient presence notice. Notices are
// not appended to the store, so they never show up in later snapshots.
func (h *Hub) systemNoticeLocked(roomID, text string) {
	h.broadcastLocked(roomID, model.Envelope{Type: model.KindNewMessage, Data: model.VisibleMessage{
		Message: model.Message{
			ID:        uuid.New(),
			RoomID:    roomID,
			Text:      text,
			Sender:    "system",
			System:    true,
			CreatedAt: time.Now().UTC(),
		},
	}})
}

func (h *Hub) sendInitLocked(c *Client) {
	c.enqueue(model.Envelope{Type: model.KindInit, Data: model.InitData{
		RoomID:   c.room,
		Name:     c.name,
		Messages: h.store.Visible(c.room, time.Now().UTC()),
	}})
}

// broadcastLocked delivers to every open connection whose identity is a
// member of the room right now. Sends to closed or slow connections are
// dropped, never errors.
func (h *Hub) broadcastLocked(roomID string, env model.Envelope) {
	for _, m := range h.registry.Users(roomID) {
		if c, ok := h.clients[m.ID]; ok {
			c.enqueue(env)
		}
	}
}

func errEnvelope(code, message string) model.Envelope {
	return model.Envelope{Type: model.KindError, Data: model.ErrorData{
		Code:    code,
		Message: message,
	}}
}

func roomError(err error) model.Envelope {
	switch {
	case errors.Is(err, room.ErrInvalidRoomOrSecret):
		return errEnvelope(model.CodeUnauthorized, "invalid room or secret")
	case errors.Is(err, room.ErrDuplicateName):
		return errEnvelope(model.CodeUnauthorized, "display name already taken in this room")
	case errors.Is(err, room.ErrNameLength):
		return errEnvelope(model.CodeValidation, "display name must be 1-20 characters")
	default:
		return errEnvelope(model.CodeValidation, err.Error())
	}
}
