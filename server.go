package sht30logger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Server exposes the recorder's state over HTTP:
//
//	GET /status  session, counters and the active configuration
//	GET /latest  the most recent record, 204 before the first one
//	GET /ws      websocket stream of records
type Server struct {
	rec    *Recorder
	ws     *WebSocketServer
	cfg    Config
	logger *slog.Logger
	mux    *http.ServeMux
}

type statusMessage struct {
	Session  string  `json:"session"`
	Stats    Stats   `json:"stats"`
	Bus      string  `json:"bus"`
	Address  uint16  `json:"address"`
	Interval float64 `json:"interval_seconds"`
	Duration float64 `json:"duration_seconds"`
	Alpha    float64 `json:"alpha"`
	Window   int     `json:"window"`
	Clients  int     `json:"websocket_clients"`
}

func NewServer(rec *Recorder, ws *WebSocketServer, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{rec: rec, ws: ws, cfg: cfg, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/latest", s.handleLatest)
	if ws != nil {
		s.mux.Handle("/ws", ws)
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting web server", "addr", addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	msg := statusMessage{
		Session:  s.rec.Session(),
		Stats:    s.rec.Stats(),
		Bus:      s.cfg.Bus,
		Address:  s.cfg.Address,
		Interval: s.cfg.Interval.Duration().Seconds(),
		Duration: s.cfg.Duration.Duration().Seconds(),
		Alpha:    s.cfg.Alpha,
		Window:   s.cfg.Window,
	}
	if s.ws != nil {
		msg.Clients = s.ws.ClientCount()
	}
	s.writeJSON(w, msg)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rec, ok := s.rec.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, rec)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "err", err)
	}
}
