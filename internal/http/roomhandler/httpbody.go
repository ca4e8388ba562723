package roomhandler

import "votesyncgo/internal/services/room"

type ErrorResponse struct {
	Error string `json:"error"`
}

type ParticipantInfo struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Vote    *string `json:"vote,omitempty"`
	HasVote bool    `json:"hasVote"`
	Paused  bool    `json:"paused,omitempty"`
}

type RoomInfo struct {
	ID           string            `json:"id"`
	Participants []ParticipantInfo `json:"participants"`
	Revealed     bool              `json:"revealed"`
	Story        *room.Story       `json:"story"`
	LastRound    *room.Round       `json:"lastRound"`
	ReadyVoted   int               `json:"readyVoted"`
	ReadyOf      int               `json:"readyOf"`
}

func toRoomInfo(id string, snap room.Snapshot) RoomInfo {
	voted, eligible := snap.Ready()

	parts := make([]ParticipantInfo, 0, len(snap.Participants))
	for _, p := range snap.Participants {
		pi := ParticipantInfo{
			ID:      p.ID,
			Name:    p.Name,
			HasVote: p.Vote != nil && *p.Vote != "",
			Paused:  p.Paused,
		}
		if snap.Revealed {
			pi.Vote = p.Vote
		}
		parts = append(parts, pi)
	}

	return RoomInfo{
		ID:           id,
		Participants: parts,
		Revealed:     snap.Revealed,
		Story:        snap.Story,
		LastRound:    snap.LastRound,
		ReadyVoted:   voted,
		ReadyOf:      eligible,
	}
}
