package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"votesyncgo/internal/services/room"
)

const (
	readLimit       = 4096
	dispatchTimeout = 2 * time.Second
)

type Options struct {
	HeartbeatInterval time.Duration
	AllowedOrigins    []string // empty allows any origin
}

type WsServer struct {
	reg      *registry
	roomSvc  room.IRoomService
	emitter  *Emitter
	router   *Router
	upgrader websocket.Upgrader
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewWsServer(parent context.Context, roomSvc room.IRoomService, bridge *Bridge, opts Options) *WsServer {
	ctx, cancel := context.WithCancel(parent)
	reg := newRegistry()

	srv := &WsServer{
		reg:     reg,
		roomSvc: roomSvc,
		emitter: newEmitter(reg, roomSvc, bridge),
		router:  NewRouter(),
		ctx:     ctx,
		cancel:  cancel,
	}
	srv.upgrader = websocket.Upgrader{CheckOrigin: originChecker(opts.AllowedOrigins)}
	srv.registerHandlers() // ← all protocol operations configured here

	interval := opts.HeartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	runHeartbeat(ctx, reg, interval)

	if bridge != nil {
		bridge.Subscribe(ctx, srv.emitter.deliver)
	}
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(readLimit)

	// ─────────────────── Client connected ────────────────────────
	wsConn := &clientConn{rawConn: rawConn}
	wsConn.alive.Store(true)
	id := s.reg.add(wsConn)

	rawConn.SetPongHandler(func(string) error {
		wsConn.alive.Store(true)
		return nil
	})

	zap.L().Debug("ws.connected", zap.String("conn", id))
	s.reader(wsConn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

// reader decodes frames until the connection dies. Bad frames never close
// the connection and never produce error replies; they are dropped.
func (s *WsServer) reader(c *clientConn) {
	defer func() {
		s.reg.remove(c.id)
		_ = c.close()
		// The participant stays in the room so a rejoin under the same name
		// picks the old vote and paused state back up.
		zap.L().Debug("ws.disconnected", zap.String("conn", c.id), zap.String("room", c.roomID))
	}()

	cc := &connContext{Conn: c}

	for {
		var env Envelope
		if err := c.rawConn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				zap.L().Warn("ws.read", zap.String("conn", c.id), zap.Error(err))
			}
			return
		}

		ctx, cancel := context.WithTimeout(s.ctx, dispatchTimeout)
		if err := s.router.dispatch(ctx, cc, env); err != nil {
			zap.L().Debug("ws.frame_ignored",
				zap.String("conn", c.id),
				zap.String("type", env.Type),
				zap.Error(err))
		}
		cancel()
	}
}

func (s *WsServer) registerHandlers() {
	// 🔹 join-room ------------------------------------------------------------
	Register(s.router, "join-room",
		func(ctx context.Context, c *connContext, req JoinRoomRequest) error {
			if req.RoomID == "" {
				return errMissingField
			}
			c.Conn.roomID = req.RoomID
			snap := s.roomSvc.Join(req.RoomID, c.Conn.id, req.Name)
			s.emitter.Emit(ctx, req.RoomID, "room-state", snap, "")
			return nil
		})

	// 🔹 vote -----------------------------------------------------------------
	Register(s.router, "vote",
		func(ctx context.Context, c *connContext, req VoteRequest) error {
			hasVote, err := s.roomSvc.Vote(req.RoomID, c.Conn.id, req.Vote)
			if err != nil {
				return err
			}
			// Value is withheld until reveal.
			s.emitter.Emit(ctx, req.RoomID, "participant-voted",
				ParticipantVoted{ID: c.Conn.id, HasVote: hasVote}, "")
			return nil
		})

	// 🔹 reveal ---------------------------------------------------------------
	Register(s.router, "reveal",
		func(ctx context.Context, c *connContext, req RoomRequest) error {
			res, err := s.roomSvc.Reveal(req.RoomID)
			if err != nil {
				return err
			}
			s.emitter.Emit(ctx, req.RoomID, "revealed", res, "")
			return nil
		})

	// 🔹 reestimate -----------------------------------------------------------
	Register(s.router, "reestimate",
		func(ctx context.Context, c *connContext, req RoomRequest) error {
			snap, err := s.roomSvc.Reestimate(req.RoomID)
			if err != nil {
				return err
			}
			s.emitter.Emit(ctx, req.RoomID, "room-state", snap, "")
			return nil
		})

	// 🔹 reset ----------------------------------------------------------------
	Register(s.router, "reset",
		func(ctx context.Context, c *connContext, req RoomRequest) error {
			res, err := s.roomSvc.Reset(req.RoomID)
			if err != nil {
				return err
			}
			s.emitter.Emit(ctx, req.RoomID, "room-reset", res, "")
			return nil
		})

	// 🔹 update-story ---------------------------------------------------------
	Register(s.router, "update-story",
		func(ctx context.Context, c *connContext, req UpdateStoryRequest) error {
			story, err := s.roomSvc.UpdateStory(req.RoomID, req.Story)
			if err != nil {
				return err
			}
			s.emitter.Emit(ctx, req.RoomID, "story-updated", StoryUpdated{Story: story}, "")
			return nil
		})

	// 🔹 update-name ----------------------------------------------------------
	Register(s.router, "update-name",
		func(ctx context.Context, c *connContext, req UpdateNameRequest) error {
			snap, err := s.roomSvc.Rename(req.RoomID, c.Conn.id, req.Name)
			if err != nil {
				return err
			}
			s.emitter.Emit(ctx, req.RoomID, "room-state", snap, "")
			return nil
		})

	// 🔹 suspend-voting / resume-voting --------------------------------------
	Register(s.router, "suspend-voting",
		func(ctx context.Context, c *connContext, req RoomRequest) error {
			snap, err := s.roomSvc.Suspend(req.RoomID, c.Conn.id)
			if err != nil {
				return err
			}
			s.emitter.Emit(ctx, req.RoomID, "room-state", snap, "")
			return nil
		})

	Register(s.router, "resume-voting",
		func(ctx context.Context, c *connContext, req RoomRequest) error {
			snap, err := s.roomSvc.Resume(req.RoomID, c.Conn.id)
			if err != nil {
				return err
			}
			s.emitter.Emit(ctx, req.RoomID, "room-state", snap, "")
			return nil
		})
}

// Shutdown stops the heartbeat and the bridge subscriber and closes every
// open connection. In-flight broadcasts may be dropped.
func (s *WsServer) Shutdown() {
	s.cancel()
	s.reg.closeAll()
	zap.L().Info("ws.shutdown_complete")
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // native clients send no Origin header
		}
		if len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if origin == a {
				return true
			}
		}
		zap.L().Warn("ws.origin_rejected", zap.String("origin", origin))
		return false
	}
}
