// Package wsbridge carries bridge envelopes over a WebSocket. Replies are
// correlated to requests by requestId, so many requests may be in flight on
// one connection and answered in any order. The sender puts its own unique
// requestId on the wire and restores the caller's on the reply, so callers
// may reuse ids across overlapping requests.
package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"querybridge/internal/bridge"
	"querybridge/internal/logger"
)

// ErrClosed is returned for requests on a closed connection.
var ErrClosed = errors.New("bridge connection closed")

const writeTimeout = 10 * time.Second

type envelopeID struct {
	RequestID string `json:"requestId"`
}

func requestID(msg []byte) (string, error) {
	var id envelopeID
	if err := json.Unmarshal(msg, &id); err != nil {
		return "", err
	}
	if id.RequestID == "" {
		return "", errors.New("envelope without requestId")
	}
	return id.RequestID, nil
}

// withRequestID returns msg with its requestId replaced by id.
func withRequestID(msg []byte, id string) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(msg, &fields); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	fields["requestId"] = raw
	return json.Marshal(fields)
}

// Sender is a bridge.Sender over a client WebSocket connection.
type Sender struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan []byte
	err     error
	done    chan struct{}
}

var _ bridge.Sender = (*Sender)(nil)

// Dial connects to the host's WebSocket endpoint.
func Dial(ctx context.Context, url string, header http.Header) (*Sender, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	s := &Sender{
		conn:    conn,
		pending: make(map[string]chan []byte),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	logger.Info("bridge connected to %s", url)
	return s, nil
}

// Send writes request and waits for the reply carrying the same requestId.
func (s *Sender) Send(ctx context.Context, request []byte) ([]byte, error) {
	id, err := requestID(request)
	if err != nil {
		return nil, err
	}

	wireID := uuid.NewString()
	wire, err := withRequestID(request, wireID)
	if err != nil {
		return nil, err
	}

	ch := make(chan []byte, 1)
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return nil, s.err
	}
	s.pending[wireID] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, wireID)
		s.mu.Unlock()
	}()

	if err := s.write(wire); err != nil {
		return nil, err
	}

	select {
	case reply := <-ch:
		return withRequestID(reply, id)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, s.closeErr()
	}
}

func (s *Sender) write(msg []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (s *Sender) readLoop() {
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Error("bridge read: %v", err)
			}
			s.fail(ErrClosed)
			return
		}
		id, err := requestID(msg)
		if err != nil {
			logger.Warn("bridge reply dropped: %v", err)
			continue
		}
		s.mu.Lock()
		ch, ok := s.pending[id]
		s.mu.Unlock()
		if !ok {
			logger.Debug("bridge reply for unknown request %s", id)
			continue
		}
		select {
		case ch <- msg:
		default:
			logger.Debug("bridge duplicate reply for %s", id)
		}
	}
}

func (s *Sender) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
		close(s.done)
	}
}

func (s *Sender) closeErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the connection; in-flight requests fail with ErrClosed.
func (s *Sender) Close() error {
	s.writeMu.Lock()
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.writeMu.Unlock()
	s.fail(ErrClosed)
	return s.conn.Close()
}
