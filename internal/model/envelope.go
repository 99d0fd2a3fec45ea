// Package model defines the wire envelopes and message records shared
// across the server.
package model

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Server to client envelope kinds.
const (
	KindIdentity     = "identity"
	KindInit         = "init"
	KindNewMessage   = "new_message"
	KindRoomCreated  = "room_created"
	KindRoomJoined   = "room_joined"
	KindRoomUsers    = "room_users"
	KindRoomUserList = "room_user_list"
	KindError        = "error"
	KindPong         = "pong"
)

// Client to server frame kinds.
const (
	KindPing       = "ping"
	KindMessage    = "message"
	KindCreateRoom = "create_room"
	KindJoinRoom   = "join_room"
	KindLeaveRoom  = "leave_room"
)

// Error codes carried by KindError envelopes.
const (
	CodeValidation   = "validation"
	CodeRateLimited  = "rate_limited"
	CodeNotFound     = "not_found"
	CodeTooLarge     = "too_large"
	CodeUnauthorized = "unauthorized"
)

// Envelope is a single server to client frame.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Frame is a single client to server frame. Data stays raw until the
// dispatcher knows which payload shape to decode.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DecodeFrame parses a raw websocket payload into a Frame.
func DecodeFrame(p []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(p, &f); err != nil {
		return Frame{}, fmt.Errorf("model: malformed frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("model: frame is missing a type tag")
	}
	return f, nil
}

// SendPayload is the body of a KindMessage frame. A message must carry
// text, a file reference, or both.
type SendPayload struct {
	Text   string `json:"text"`
	FileID string `json:"file_id,omitempty"`
}

// CreateRoomPayload carries the creator's chosen display name.
type CreateRoomPayload struct {
	Name string `json:"name"`
}

// JoinRoomPayload carries the target room, the presented secret and the
// joiner's chosen display name.
type JoinRoomPayload struct {
	RoomID string `json:"room_id"`
	Secret string `json:"secret,omitempty"`
	Name   string `json:"name"`
}

// IdentityData is sent once, before any room envelope.
type IdentityData struct {
	UserID    uuid.UUID `json:"user_id"`
	Pseudonym string    `json:"pseudonym"`
}

// InitData is the room snapshot sent to a connection after every room
// transition.
type InitData struct {
	RoomID   string           `json:"room_id"`
	Name     string           `json:"name"`
	Messages []VisibleMessage `json:"messages"`
}

// RoomCreatedData is unicast to the creator. The secret is shown exactly
// once; only its hash is retained server side.
type RoomCreatedData struct {
	RoomID string `json:"room_id"`
	Secret string `json:"secret"`
}

// RoomJoinedData acknowledges a successful join with the effective
// display name.
type RoomJoinedData struct {
	RoomID string `json:"room_id"`
	Name   string `json:"name"`
}

// RoomUsersData carries the member count of a room.
type RoomUsersData struct {
	RoomID string `json:"room_id"`
	Count  int    `json:"count"`
}

// RoomUser is one entry of a room member list.
type RoomUser struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
}

// RoomUserListData carries the member list of a room in join order.
type RoomUserListData struct {
	RoomID string     `json:"room_id"`
	Users  []RoomUser `json:"users"`
}

// ErrorData reports a connection-local failure.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
