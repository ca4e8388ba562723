package room

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Participant is one voting identity inside a room. Identity survives
// reconnects by name: a rejoin with a known name adopts that participant's
// state under the new connection id.
type Participant struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Vote   *string `json:"vote"`
	Paused bool    `json:"paused,omitempty"`
}

type Story struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Round is an immutable copy of the votes captured at reveal time. It never
// aliases the live participant map.
type Round struct {
	ID           string        `json:"id"`
	Participants []Participant `json:"participants"`
}

// Snapshot is a deep copy of a room's visible state.
type Snapshot struct {
	Participants []Participant `json:"participants"`
	Revealed     bool          `json:"revealed"`
	Story        *Story        `json:"story"`
	LastRound    *Round        `json:"lastRound"`
}

// Ready reports how many unpaused participants have voted and how many are
// expected to. Paused participants count in neither number.
func (s Snapshot) Ready() (voted, eligible int) {
	for _, p := range s.Participants {
		if p.Paused {
			continue
		}
		eligible++
		if p.Vote != nil && *p.Vote != "" {
			voted++
		}
	}
	return voted, eligible
}

// RevealResult carries the payload of a "revealed" broadcast.
type RevealResult struct {
	Participants []Participant `json:"participants"`
	LastRound    *Round        `json:"lastRound"`
}

// ResetResult carries the payload of a "room-reset" broadcast.
type ResetResult struct {
	Participants []Participant `json:"participants"`
	Story        *Story        `json:"story"`
}

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrNotParticipant = errors.New("connection has no participant in room")
)

type IRoomService interface {
	GetOrCreate(roomID string) *Room
	Join(roomID, connID, name string) Snapshot
	Vote(roomID, connID, vote string) (bool, error)
	Reveal(roomID string) (RevealResult, error)
	Reestimate(roomID string) (Snapshot, error)
	Reset(roomID string) (ResetResult, error)
	UpdateStory(roomID string, story *Story) (*Story, error)
	Rename(roomID, connID, name string) (Snapshot, error)
	Suspend(roomID, connID string) (Snapshot, error)
	Resume(roomID, connID string) (Snapshot, error)
	Snapshot(roomID string) (Snapshot, error)
	ParticipantIDs(roomID string) ([]string, error)
}

// Room owns its own lock; operations on distinct rooms never contend.
type Room struct {
	id           string
	mu           sync.RWMutex
	participants map[string]*Participant
	revealed     bool
	story        *Story
	lastRound    *Round
}

type roomService struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRoomService() IRoomService {
	return &roomService{rooms: make(map[string]*Room)}
}

// GetOrCreate returns the room for roomID, creating it on first use.
// Concurrent callers for the same id always observe the same instance.
func (svc *roomService) GetOrCreate(roomID string) *Room {
	svc.mu.RLock()
	r, ok := svc.rooms[roomID]
	svc.mu.RUnlock()
	if ok {
		return r
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if r, ok = svc.rooms[roomID]; ok {
		return r
	}
	r = &Room{
		id:           roomID,
		participants: make(map[string]*Participant),
	}
	svc.rooms[roomID] = r
	return r
}

func (svc *roomService) get(roomID string) (*Room, bool) {
	svc.mu.RLock()
	r, ok := svc.rooms[roomID]
	svc.mu.RUnlock()
	return r, ok
}

// Join creates the room lazily and upserts the caller's participant. A
// participant already carrying the same name is treated as a previous
// connection of the same person: their vote and paused state move onto the
// caller's connection id and the stale entry is dropped.
func (svc *roomService) Join(roomID, connID, name string) Snapshot {
	r := svc.GetOrCreate(roomID)

	r.mu.Lock()
	var oldID string
	var prior *Participant
	for id, p := range r.participants {
		if p.Name == name {
			oldID, prior = id, p
			break
		}
	}

	next := &Participant{ID: connID, Name: name}
	if prior != nil {
		next.Vote = cloneVote(prior.Vote)
		next.Paused = prior.Paused
		delete(r.participants, oldID)
	}
	r.participants[connID] = next

	snap := r.snapshotLocked()
	r.mu.Unlock()
	return snap
}

// Vote records the caller's vote; an empty string clears it. The returned
// flag tells whether the participant now holds a vote.
func (svc *roomService) Vote(roomID, connID, vote string) (bool, error) {
	r, ok := svc.get(roomID)
	if !ok {
		return false, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[connID]
	if !ok {
		return false, ErrNotParticipant
	}
	if vote == "" {
		p.Vote = nil
	} else {
		v := vote
		p.Vote = &v
	}
	return vote != "", nil
}

// Reveal freezes the current votes into a new round and marks the room
// revealed. The round is a deep copy: later mutations of the live map never
// reach it.
func (svc *roomService) Reveal(roomID string) (RevealResult, error) {
	r, ok := svc.get(roomID)
	if !ok {
		return RevealResult{}, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.revealed = true
	r.lastRound = &Round{
		ID:           uuid.NewString(),
		Participants: r.participantsLocked(),
	}
	return RevealResult{
		Participants: r.participantsLocked(),
		LastRound:    cloneRound(r.lastRound),
	}, nil
}

// Reestimate starts a fresh round: votes are cleared for everyone, paused or
// not, while story and the previous round stay for display.
func (svc *roomService) Reestimate(roomID string) (Snapshot, error) {
	r, ok := svc.get(roomID)
	if !ok {
		return Snapshot{}, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.revealed = false
	for _, p := range r.participants {
		p.Vote = nil
	}
	return r.snapshotLocked(), nil
}

// Reset clears votes, story and round history but keeps participant
// identities so reconnect continuity survives.
func (svc *roomService) Reset(roomID string) (ResetResult, error) {
	r, ok := svc.get(roomID)
	if !ok {
		return ResetResult{}, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.revealed = false
	for _, p := range r.participants {
		p.Vote = nil
	}
	r.story = nil
	r.lastRound = nil
	return ResetResult{
		Participants: r.participantsLocked(),
		Story:        nil,
	}, nil
}

// UpdateStory replaces the room's story; nil clears it.
func (svc *roomService) UpdateStory(roomID string, story *Story) (*Story, error) {
	r, ok := svc.get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if story != nil {
		s := *story
		r.story = &s
	} else {
		r.story = nil
	}
	return cloneStory(r.story), nil
}

// Rename changes the caller's own display name in place. No identity
// transfer happens here; that is join's job.
func (svc *roomService) Rename(roomID, connID, name string) (Snapshot, error) {
	r, ok := svc.get(roomID)
	if !ok {
		return Snapshot{}, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[connID]
	if !ok {
		return Snapshot{}, ErrNotParticipant
	}
	p.Name = name
	return r.snapshotLocked(), nil
}

func (svc *roomService) Suspend(roomID, connID string) (Snapshot, error) {
	r, ok := svc.get(roomID)
	if !ok {
		return Snapshot{}, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[connID]
	if !ok {
		return Snapshot{}, ErrNotParticipant
	}
	p.Paused = true
	return r.snapshotLocked(), nil
}

// Resume unpauses the caller and clears their vote so a stale estimate never
// leaks into the running round.
func (svc *roomService) Resume(roomID, connID string) (Snapshot, error) {
	r, ok := svc.get(roomID)
	if !ok {
		return Snapshot{}, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[connID]
	if !ok {
		return Snapshot{}, ErrNotParticipant
	}
	p.Paused = false
	p.Vote = nil
	return r.snapshotLocked(), nil
}

// Snapshot returns a read-only deep copy of the room's state.
func (svc *roomService) Snapshot(roomID string) (Snapshot, error) {
	r, ok := svc.get(roomID)
	if !ok {
		return Snapshot{}, ErrRoomNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked(), nil
}

// ParticipantIDs lists the ids currently keyed in the room, for fan-out.
func (svc *roomService) ParticipantIDs(roomID string) ([]string, error) {
	r, ok := svc.get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.participants))
	for id := range r.participants {
		ids = append(ids, id)
	}
	return ids, nil
}

// callers must hold r.mu (read or write)

func (r *Room) participantsLocked() []Participant {
	out := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		cp := *p
		cp.Vote = cloneVote(p.Vote)
		out = append(out, cp)
	}
	return out
}

func (r *Room) snapshotLocked() Snapshot {
	return Snapshot{
		Participants: r.participantsLocked(),
		Revealed:     r.revealed,
		Story:        cloneStory(r.story),
		LastRound:    cloneRound(r.lastRound),
	}
}

// helpers
func cloneVote(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneStory(s *Story) *Story {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func cloneRound(rd *Round) *Round {
	if rd == nil {
		return nil
	}
	out := &Round{ID: rd.ID, Participants: make([]Participant, len(rd.Participants))}
	for i, p := range rd.Participants {
		cp := p
		cp.Vote = cloneVote(p.Vote)
		out.Participants[i] = cp
	}
	return out
}
