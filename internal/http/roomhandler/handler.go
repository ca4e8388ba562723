package roomhandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"votesyncgo/internal/services/room"
)

// Handler exposes a read-only introspection API over the in-memory rooms.
// All mutation happens over the websocket protocol.
type Handler struct {
	svc room.IRoomService
}

func New(svc room.IRoomService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/api/health", h.health)
	r.GET("/api/rooms/:id", h.info)
}

func (h *Handler) health(ginCtx *gin.Context) {
	ginCtx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// info returns a snapshot of one room. Votes are masked to a has-vote flag
// while the room is unrevealed, same as on the wire.
func (h *Handler) info(ginCtx *gin.Context) {
	snap, err := h.svc.Snapshot(ginCtx.Param("id"))
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			ginCtx.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		ginCtx.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, toRoomInfo(ginCtx.Param("id"), snap))
}
