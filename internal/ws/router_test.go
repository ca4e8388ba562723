package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_DispatchTypedRequest(t *testing.T) {
	r := NewRouter()

	var got VoteRequest
	Register(r, "vote", func(ctx context.Context, c *connContext, req VoteRequest) error {
		got = req
		return nil
	})

	err := r.dispatch(context.Background(), &connContext{}, Envelope{
		Type: "vote",
		Data: json.RawMessage(`{"roomId":"R1","vote":"5"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, VoteRequest{RoomID: "R1", Vote: "5"}, got)
}

func TestRouter_UnknownTypeIsAnError(t *testing.T) {
	r := NewRouter()

	err := r.dispatch(context.Background(), &connContext{}, Envelope{Type: "no-such-op"})
	assert.ErrorIs(t, err, errUnknownType)
}

func TestRouter_MalformedBodyNeverReachesHandler(t *testing.T) {
	r := NewRouter()

	called := false
	Register(r, "vote", func(ctx context.Context, c *connContext, req VoteRequest) error {
		called = true
		return nil
	})

	err := r.dispatch(context.Background(), &connContext{}, Envelope{
		Type: "vote",
		Data: json.RawMessage(`{"roomId":42}`),
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestRouter_EmptyBodyYieldsZeroRequest(t *testing.T) {
	r := NewRouter()

	var got RoomRequest
	Register(r, "reveal", func(ctx context.Context, c *connContext, req RoomRequest) error {
		got = req
		return nil
	})

	err := r.dispatch(context.Background(), &connContext{}, Envelope{Type: "reveal"})
	require.NoError(t, err)
	assert.Equal(t, RoomRequest{}, got)
}
