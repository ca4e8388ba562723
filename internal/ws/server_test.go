package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"votesyncgo/internal/services/room"
)

type harness struct {
	srv     *WsServer
	roomSvc room.IRoomService
	httpSrv *httptest.Server
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	roomSvc := room.NewRoomService()
	srv := NewWsServer(context.Background(), roomSvc, nil, opts)

	engine := gin.New()
	engine.GET("/ws", srv.Handle)
	httpSrv := httptest.NewServer(engine)

	t.Cleanup(httpSrv.Close)
	t.Cleanup(srv.Shutdown)
	return &harness{srv: srv, roomSvc: roomSvc, httpSrv: httpSrv}
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(h.httpSrv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	body, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Type: msgType, Data: body}))
}

func read(t *testing.T, conn *websocket.Conn, within time.Duration) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(within)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func expectNothing(t *testing.T, conn *websocket.Conn, within time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(within)))
	var env Envelope
	err := conn.ReadJSON(&env)
	require.Error(t, err, "unexpected frame: %+v", env)
}

func decodeSnapshot(t *testing.T, env Envelope) room.Snapshot {
	t.Helper()
	var snap room.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	return snap
}

func TestJoin_BroadcastsRoomStateToWholeRoom(t *testing.T) {
	h := newHarness(t, Options{})
	alice := h.dial(t)
	bob := h.dial(t)

	send(t, alice, "join-room", JoinRoomRequest{RoomID: "R1", Name: "Alice"})
	env := read(t, alice, 2*time.Second)
	require.Equal(t, "room-state", env.Type)
	snap := decodeSnapshot(t, env)
	require.Len(t, snap.Participants, 1)
	assert.Equal(t, "Alice", snap.Participants[0].Name)
	assert.False(t, snap.Revealed)

	send(t, bob, "join-room", JoinRoomRequest{RoomID: "R1", Name: "Bob"})

	// the sender and the existing member both get the new full state
	for _, conn := range []*websocket.Conn{alice, bob} {
		env := read(t, conn, 2*time.Second)
		require.Equal(t, "room-state", env.Type)
		assert.Len(t, decodeSnapshot(t, env).Participants, 2)
	}
}

func TestVote_AnnouncesWithoutValue(t *testing.T) {
	h := newHarness(t, Options{})
	alice := h.dial(t)
	bob := h.dial(t)

	send(t, alice, "join-room", JoinRoomRequest{RoomID: "R1", Name: "Alice"})
	aliceID := decodeSnapshot(t, read(t, alice, 2*time.Second)).Participants[0].ID
	send(t, bob, "join-room", JoinRoomRequest{RoomID: "R1", Name: "Bob"})
	read(t, alice, 2*time.Second)
	read(t, bob, 2*time.Second)

	send(t, alice, "vote", VoteRequest{RoomID: "R1", Vote: "5"})

	for _, conn := range []*websocket.Conn{alice, bob} {
		env := read(t, conn, 2*time.Second)
		require.Equal(t, "participant-voted", env.Type)
		var pv ParticipantVoted
		require.NoError(t, json.Unmarshal(env.Data, &pv))
		assert.Equal(t, aliceID, pv.ID)
		assert.True(t, pv.HasVote)
		assert.NotContains(t, string(env.Data), `"5"`, "vote value stays hidden until reveal")
	}
}

func TestReveal_PublishesRoundWithValues(t *testing.T) {
	h := newHarness(t, Options{})
	alice := h.dial(t)

	send(t, alice, "join-room", JoinRoomRequest{RoomID: "R1", Name: "Alice"})
	read(t, alice, 2*time.Second)
	send(t, alice, "vote", VoteRequest{RoomID: "R1", Vote: "5"})
	read(t, alice, 2*time.Second)

	send(t, alice, "reveal", RoomRequest{RoomID: "R1"})
	env := read(t, alice, 2*time.Second)
	require.Equal(t, "revealed", env.Type)

	var res room.RevealResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotNil(t, res.LastRound)
	require.Len(t, res.LastRound.Participants, 1)
	require.NotNil(t, res.LastRound.Participants[0].Vote)
	assert.Equal(t, "5", *res.LastRound.Participants[0].Vote)
}

func TestBroadcast_NeverLeavesTheRoom(t *testing.T) {
	h := newHarness(t, Options{})
	alice := h.dial(t)
	eve := h.dial(t)

	send(t, alice, "join-room", JoinRoomRequest{RoomID: "R1", Name: "Alice"})
	read(t, alice, 2*time.Second)
	send(t, eve, "join-room", JoinRoomRequest{RoomID: "R2", Name: "Eve"})
	read(t, eve, 2*time.Second)

	send(t, alice, "vote", VoteRequest{RoomID: "R1", Vote: "8"})
	read(t, alice, 2*time.Second)

	expectNothing(t, eve, 200*time.Millisecond)
}

func TestBadFramesAreSilentlyIgnored(t *testing.T) {
	h := newHarness(t, Options{})
	conn := h.dial(t)

	// unknown type
	send(t, conn, "self-destruct", RoomRequest{RoomID: "R1"})
	// mistyped payload
	require.NoError(t, conn.WriteJSON(Envelope{Type: "vote", Data: json.RawMessage(`{"roomId":7}`)}))
	// operation on a room that does not exist
	send(t, conn, "reveal", RoomRequest{RoomID: "ghost"})
	// join without a room id
	send(t, conn, "join-room", JoinRoomRequest{Name: "Alice"})

	// no error replies, and the connection is still usable
	send(t, conn, "join-room", JoinRoomRequest{RoomID: "R1", Name: "Alice"})
	env := read(t, conn, 2*time.Second)
	assert.Equal(t, "room-state", env.Type)
}

func TestDeliver_ExcludeIDSuppressesOneRecipient(t *testing.T) {
	h := newHarness(t, Options{})
	alice := h.dial(t)
	bob := h.dial(t)

	send(t, alice, "join-room", JoinRoomRequest{RoomID: "R1", Name: "Alice"})
	aliceID := decodeSnapshot(t, read(t, alice, 2*time.Second)).Participants[0].ID
	send(t, bob, "join-room", JoinRoomRequest{RoomID: "R1", Name: "Bob"})
	read(t, alice, 2*time.Second)
	read(t, bob, 2*time.Second)

	// simulate a bridged rebroadcast that already reached Alice elsewhere
	h.srv.emitter.deliver("R1", "story-updated", json.RawMessage(`{"story":null}`), aliceID)

	env := read(t, bob, 2*time.Second)
	assert.Equal(t, "story-updated", env.Type)
	expectNothing(t, alice, 200*time.Millisecond)
}

func TestReconnect_SameNamePicksUpState(t *testing.T) {
	h := newHarness(t, Options{})

	first := h.dial(t)
	send(t, first, "join-room", JoinRoomRequest{RoomID: "R1", Name: "Bob"})
	read(t, first, 2*time.Second)
	send(t, first, "vote", VoteRequest{RoomID: "R1", Vote: "5"})
	read(t, first, 2*time.Second)
	require.NoError(t, first.Close())

	second := h.dial(t)
	send(t, second, "join-room", JoinRoomRequest{RoomID: "R1", Name: "Bob"})
	snap := decodeSnapshot(t, read(t, second, 2*time.Second))

	require.Len(t, snap.Participants, 1, "exactly one Bob after reconnect")
	require.NotNil(t, snap.Participants[0].Vote)
	assert.Equal(t, "5", *snap.Participants[0].Vote)
}

func TestHeartbeat_PrunesSilentConnections(t *testing.T) {
	h := newHarness(t, Options{HeartbeatInterval: 50 * time.Millisecond})
	conn := h.dial(t)

	send(t, conn, "join-room", JoinRoomRequest{RoomID: "R1", Name: "Alice"})
	read(t, conn, 2*time.Second)
	require.Equal(t, 1, h.srv.reg.len())

	// The client stops reading, so it never answers the server's pings.
	// First tick clears the flag and probes; second tick force-closes.
	assert.Eventually(t, func() bool {
		return h.srv.reg.len() == 0
	}, 2*time.Second, 20*time.Millisecond)

	// the participant stays behind for a future reconnect
	ids, err := h.roomSvc.ParticipantIDs("R1")
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}
