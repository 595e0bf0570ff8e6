package sht30logger

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

// WebSocketServer pushes every record as a JSON text message to all
// connected clients.
type WebSocketServer struct {
	logger     *slog.Logger
	clients    map[*websocket.Conn]bool
	broadcast  chan any
	done       chan struct{}
	closeOnce  sync.Once
	upgrader   websocket.Upgrader
	clientsMux sync.Mutex
}

func NewWebSocketServer(logger *slog.Logger) *WebSocketServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &WebSocketServer{
		logger:    logger,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 16),
		done:      make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
	}
	go s.handleBroadcasts()
	return s
}

// ServeHTTP upgrades the request and keeps the client until it disconnects.
func (s *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer ws.Close()

	s.clientsMux.Lock()
	s.clients[ws] = true
	s.clientsMux.Unlock()

	s.logger.Info("websocket client connected", "remote", r.RemoteAddr)
	defer func() {
		s.clientsMux.Lock()
		delete(s.clients, ws)
		s.clientsMux.Unlock()
		s.logger.Info("websocket client disconnected", "remote", r.RemoteAddr)
	}()

	for {
		// Reads only detect the close.
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *WebSocketServer) handleBroadcasts() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.broadcast:
			message, err := json.Marshal(msg)
			if err != nil {
				s.logger.Error("websocket marshal failed", "err", err)
				continue
			}
			s.clientsMux.Lock()
			for client := range s.clients {
				client.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					s.logger.Warn("websocket write failed", "err", err)
					client.Close()
					delete(s.clients, client)
				}
			}
			s.clientsMux.Unlock()
		}
	}
}

// Broadcast queues msg for every client. Messages are dropped rather than
// blocking the caller when the queue is full.
func (s *WebSocketServer) Broadcast(msg any) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.broadcast <- msg:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of connected clients.
func (s *WebSocketServer) ClientCount() int {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()
	return len(s.clients)
}

// WriteRecord implements Sink. A full queue is not an error.
func (s *WebSocketServer) WriteRecord(r Record) error {
	if !s.Broadcast(r) {
		s.logger.Debug("websocket queue full, record dropped", "seq", r.Seq)
	}
	return nil
}

// Close disconnects all clients.
func (s *WebSocketServer) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.clientsMux.Lock()
		for client := range s.clients {
			client.Close()
			delete(s.clients, client)
		}
		s.clientsMux.Unlock()
	})
	return nil
}
