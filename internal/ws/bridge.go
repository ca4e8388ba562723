package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// bridgeChannel is the one well-known pub/sub channel shared by every
// instance serving the same logical rooms.
const bridgeChannel = "room-broadcast"

// bridgeMessage is the tuple republished for other instances. Origin is the
// publishing instance's id: subscribers drop their own messages, which makes
// redelivery idempotent without assuming exactly-once from Redis.
type bridgeMessage struct {
	Origin    string          `json:"origin"`
	RoomID    string          `json:"roomId"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	ExcludeID string          `json:"excludeId,omitempty"`
}

// Bridge republishes broadcasts over Redis pub/sub so participants connected
// to another instance still receive room updates.
type Bridge struct {
	rdc        *redis.Client
	instanceID string
}

func NewBridge(rdc *redis.Client) *Bridge {
	return &Bridge{rdc: rdc, instanceID: uuid.NewString()}
}

func (b *Bridge) Publish(ctx context.Context, roomID, msgType string, data json.RawMessage, excludeID string) {
	payload, err := json.Marshal(bridgeMessage{
		Origin:    b.instanceID,
		RoomID:    roomID,
		Type:      msgType,
		Data:      data,
		ExcludeID: excludeID,
	})
	if err != nil {
		zap.L().Error("bridge.marshal", zap.Error(err))
		return
	}

	if err := b.rdc.Publish(ctx, bridgeChannel, payload).Err(); err != nil {
		zap.L().Warn("bridge.publish", zap.String("room", roomID), zap.Error(err))
	}
}

// Subscribe fans messages from other instances back into the local
// broadcaster. It returns after spawning the subscriber goroutine, which
// stops when ctx is cancelled.
func (b *Bridge) Subscribe(ctx context.Context, deliver func(roomID, msgType string, data json.RawMessage, excludeID string)) {
	ps := b.rdc.Subscribe(ctx, bridgeChannel)

	go func() {
		defer ps.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ps.Channel():
				if !ok {
					return
				}
				roomID, msgType, data, excludeID, ok := b.decode([]byte(m.Payload))
				if !ok {
					continue
				}
				deliver(roomID, msgType, data, excludeID)
			}
		}
	}()
}

// decode unpacks a bridge message and filters out messages this instance
// published itself.
func (b *Bridge) decode(payload []byte) (roomID, msgType string, data json.RawMessage, excludeID string, ok bool) {
	var msg bridgeMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		zap.L().Warn("bridge.decode", zap.Error(err))
		return "", "", nil, "", false
	}
	if msg.Origin == b.instanceID {
		return "", "", nil, "", false
	}
	return msg.RoomID, msg.Type, msg.Data, msg.ExcludeID, true
}
