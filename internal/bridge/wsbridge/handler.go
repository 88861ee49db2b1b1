package wsbridge

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"querybridge/internal/bridge"
	"querybridge/internal/logger"
)

// Handler serves bridge envelopes arriving on a WebSocket by passing each
// one to host. Requests are handled concurrently; each reply is written as
// soon as it is ready.
type Handler struct {
	host     bridge.Sender
	upgrader websocket.Upgrader
}

func NewHandler(host bridge.Sender) *Handler {
	return &Handler{
		host: host,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The endpoint serves local tooling.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("bridge upgrade (%s): %v", r.RemoteAddr, err)
		return
	}
	logger.Info("bridge client connected (%s)", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	var (
		writeMu sync.Mutex
		wg      sync.WaitGroup
	)
	defer func() {
		cancel()
		wg.Wait()
		conn.Close()
		logger.Info("bridge client disconnected (%s)", r.RemoteAddr)
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Error("bridge read (%s): %v", r.RemoteAddr, err)
			}
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply, err := h.host.Send(ctx, msg)
			if err != nil {
				logger.Warn("bridge request failed: %v", err)
				if reply = errorReply(msg, err); reply == nil {
					return
				}
			}
			writeMu.Lock()
			defer writeMu.Unlock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
				logger.Warn("bridge write: %v", err)
			}
		}()
	}
}

// errorReply answers a request the host could not serve. It is nil when the
// request carries no requestId to answer to.
func errorReply(request []byte, cause error) []byte {
	id, err := requestID(request)
	if err != nil {
		return nil
	}
	reply, err := json.Marshal(bridge.Reply{RequestID: id, Error: cause.Error()})
	if err != nil {
		return nil
	}
	return reply
}
