package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var (
	errUnknownType  = errors.New("unknown message type")
	errMissingField = errors.New("missing required field")
)

// internal (untyped) handler signature.
type rawHandler func(ctx context.Context, c *connContext, data json.RawMessage) error

// connContext carries per-connection state into handlers.
type connContext struct {
	Conn *clientConn
}

// Router keeps a map[type]handler for inbound frames. Handlers broadcast on
// success and return an error when the frame should be dropped; the protocol
// has no error replies.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
}

func NewRouter() *Router { return &Router{handlers: make(map[string]rawHandler)} }

// Register binds a message type to a strongly-typed handler.
func Register[Req any](
	r *Router,
	msgType string,
	h func(ctx context.Context, c *connContext, req Req) error,
) {
	if msgType == "" {
		panic("ws router: empty message type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[msgType] = func(ctx context.Context, c *connContext, data json.RawMessage) error {
		var req Req
		if len(data) > 0 {
			if err := json.Unmarshal(data, &req); err != nil {
				return err
			}
		}
		return h(ctx, c, req)
	}
}

// dispatch is called by the server's reader loop.
func (r *Router) dispatch(ctx context.Context, c *connContext, env Envelope) error {
	r.mu.RLock()
	h, ok := r.handlers[env.Type]
	r.mu.RUnlock()
	if !ok {
		return errUnknownType
	}
	return h(ctx, c, env.Data)
}
