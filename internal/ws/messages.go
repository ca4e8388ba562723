package ws

import (
	"encoding/json"

	"votesyncgo/internal/services/room"
)

// Envelope wraps every WS frame in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ─────────────────────────── Client → server bodies ──────────────────────────

type JoinRoomRequest struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

type VoteRequest struct {
	RoomID string `json:"roomId"`
	Vote   string `json:"vote"`
}

// RoomRequest is the body shared by reveal, reestimate, reset and the
// suspend/resume toggles.
type RoomRequest struct {
	RoomID string `json:"roomId"`
}

type UpdateStoryRequest struct {
	RoomID string      `json:"roomId"`
	Story  *room.Story `json:"story"`
}

type UpdateNameRequest struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

// ─────────────────────────── Server → client bodies ──────────────────────────

// ParticipantVoted announces that someone voted without leaking the value
// before reveal.
type ParticipantVoted struct {
	ID      string `json:"id"`
	HasVote bool   `json:"hasVote"`
}

type StoryUpdated struct {
	Story *room.Story `json:"story"`
}
