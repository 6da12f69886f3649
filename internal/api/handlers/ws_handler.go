package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ayush-jadaun/midnfull/internal/utils"
)

// WSHandler streams turn processing over a WebSocket. Clients submit turns;
// the handler queues them on the turn stream and forwards whatever the
// workers publish on the session's response and status channels.
type WSHandler struct {
	redis    *redis.Client
	log      *logrus.Logger
	stream   string
	upgrader websocket.Upgrader
}

func NewWSHandler(rdb *redis.Client, log *logrus.Logger, stream string) *WSHandler {
	if stream == "" {
		stream = "turns:stream"
	}
	return &WSHandler{
		redis:  rdb,
		log:    log,
		stream: stream,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsClientMsg struct {
	Type     string `json:"type"` // "turn"
	Text     string `json:"text"`
	Language string `json:"language"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteJSON(v)
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *WSHandler) SessionWS(c *gin.Context) {
	const op = "WSHandler.SessionWS"

	if h.redis == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "turn streaming is not available", nil))
		return
	}

	sessionID := c.Param("session_id")
	if sessionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing session_id", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	ws := &wsConn{c: conn}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer conn.Close()

	respCh := "session:" + sessionID + ":response"
	statusCh := "session:" + sessionID + ":status"

	pubsub := h.redis.Subscribe(ctx, respCh, statusCh)
	defer pubsub.Close()

	// Forward worker publications to the socket.
	go func() {
		for msg := range pubsub.Channel() {
			if err := ws.writeText([]byte(msg.Payload)); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		var msg wsClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "turn":
			if msg.Text == "" {
				_ = ws.writeJSON(gin.H{"type": "error", "message": "text is required"})
				continue
			}
			err := h.redis.XAdd(ctx, &redis.XAddArgs{
				Stream: h.stream,
				Values: map[string]any{
					"session_id": sessionID,
					"text":       msg.Text,
					"language":   msg.Language,
				},
			}).Err()
			if err != nil {
				h.log.WithError(err).WithField("session_id", sessionID).Error("failed to enqueue turn")
				_ = ws.writeJSON(gin.H{"type": "error", "message": "failed to enqueue turn"})
				continue
			}
			_ = ws.writeJSON(gin.H{"type": "status", "status": "queued"})
		default:
			_ = ws.writeJSON(gin.H{"type": "error", "message": "unknown message type"})
		}
	}
}
