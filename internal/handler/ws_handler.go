package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/tugas-backend/internal/middleware"
	"github.com/stemsi/tugas-backend/internal/progress"
	"github.com/stemsi/tugas-backend/internal/response"
	ws "github.com/stemsi/tugas-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// ProgressSubscriber opens a stream of one caller's upload events.
type ProgressSubscriber interface {
	Subscribe(ctx context.Context, userID, uploadID string) (progress.Subscription, error)
}

// WSHandler streams upload progress over WebSocket.
type WSHandler struct {
	subscriber ProgressSubscriber
	log        zerolog.Logger
	upgrader   websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(subscriber ProgressSubscriber, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		subscriber: subscriber,
		log:        log.With().Str("component", "ws_handler").Logger(),
		upgrader:   buildUpgrader(allowedOrigins),
	}
}

// UploadProgressStream godoc
// WS /ws/v1/uploads/:upload_id/progress?token=...
// Subscribes before upgrading, so a client that connects before starting the
// upload sees every event. The stream ends after the stored or failed event.
func (h *WSHandler) UploadProgressStream(c *gin.Context) {
	caller := middleware.GetIdentity(c)
	if caller == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	uploadID := c.Param("upload_id")
	if uploadID == "" || len(uploadID) > 64 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := h.subscriber.Subscribe(ctx, caller.UserID, uploadID)
	if err != nil {
		h.log.Error().Err(err).Str("upload_id", uploadID).Msg("Progress subscribe failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", caller.UserID).
		Str("upload_id", uploadID).
		Logger()
	wsLog.Debug().Msg("Progress subscriber connected")

	// Reader goroutine: the only reader on conn. Pings are answered by the
	// writer loop below so conn has a single writer.
	pings := make(chan struct{}, 1)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
			if msg.Action == ws.ActionPing {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	for {
		select {
		case <-closed:
			wsLog.Debug().Msg("Connection closed")
			return
		case <-pings:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		case ev, ok := <-sub.Events():
			if !ok {
				ws.WriteError(conn, "progress stream ended")
				return
			}
			msg := ws.NewProgressResponse(ev)
			if err := ws.WriteTyped(conn, msg); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
				return
			}
			if msg.Terminal() {
				ws.CloseNormal(conn, string(msg.Event))
				return
			}
		}
	}
}
