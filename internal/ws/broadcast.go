package ws

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"votesyncgo/internal/services/room"
)

// Emitter fans a message out to a room's live connections and, when a bridge
// is configured, republishes it for the other instances.
type Emitter struct {
	reg     *registry
	roomSvc room.IRoomService
	bridge  *Bridge // nil in single-instance mode
}

func newEmitter(reg *registry, roomSvc room.IRoomService, bridge *Bridge) *Emitter {
	return &Emitter{reg: reg, roomSvc: roomSvc, bridge: bridge}
}

// Emit serializes the payload once, delivers it locally and hands it to the
// bridge. excludeID suppresses at most one recipient.
func (e *Emitter) Emit(ctx context.Context, roomID, msgType string, payload any, excludeID string) {
	data, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("ws.emit_marshal", zap.String("type", msgType), zap.Error(err))
		return
	}

	e.deliver(roomID, msgType, data, excludeID)

	if e.bridge != nil {
		e.bridge.Publish(ctx, roomID, msgType, data, excludeID)
	}
}

// deliver resolves the room's participant ids to live connections and writes
// outside every lock. Participants without a live connection are skipped;
// a failed write is logged and the loop continues — at-most-once, no retry.
func (e *Emitter) deliver(roomID, msgType string, data json.RawMessage, excludeID string) {
	ids, err := e.roomSvc.ParticipantIDs(roomID)
	if err != nil {
		return
	}

	frame, err := json.Marshal(Envelope{Type: msgType, Data: data})
	if err != nil {
		zap.L().Error("ws.frame_marshal", zap.String("type", msgType), zap.Error(err))
		return
	}

	for _, id := range ids {
		if id == excludeID {
			continue
		}
		c, ok := e.reg.get(id)
		if !ok {
			continue
		}
		if err := c.write(websocket.TextMessage, frame); err != nil {
			zap.L().Warn("ws.broadcast_write",
				zap.String("conn", id),
				zap.String("room", roomID),
				zap.Error(err))
		}
	}
}
