package ws

import (
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	clip "github.com/happy-forks/ipcd/internal/clipboard"
	"github.com/happy-forks/ipcd/internal/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Handler streams clipboard change events to WebSocket clients.
type Handler struct {
	store  *clip.Store
	logger *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(store *clip.Store, logger *logging.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// HandleConnection upgrades the connection and forwards clipboard events
// until the client disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, stop := h.store.Watch()
	defer stop()

	var writeMu sync.Mutex
	send := func(payload interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(payload)
	}

	if err := send(map[string]interface{}{
		"type": "system",
		"seq":  h.store.Seq(),
	}); err != nil {
		return
	}

	// Reader goroutine: answers pings and signals disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg struct {
				Type string `json:"type"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == "ping" {
				if err := send(map[string]interface{}{"type": "pong"}); err != nil {
					return
				}
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := send(eventPayload(event)); err != nil {
				h.logger.Debug("WebSocket write failed", zap.Error(err))
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func eventPayload(event clip.Event) map[string]interface{} {
	payload := map[string]interface{}{
		"type":   event.Type,
		"seq":    event.Seq,
		"global": event.Global,
	}
	if event.Entry != nil {
		payload["entry"] = map[string]interface{}{
			"id":     event.Entry.ID,
			"data":   base64.StdEncoding.EncodeToString(event.Entry.Data),
			"format": event.Entry.Format,
		}
	}
	return payload
}
