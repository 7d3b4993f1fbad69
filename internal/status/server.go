package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type Config struct {
	Display []string `help:"Status displays to drive" enum:"log,terminal,websocket" default:"log" sep:"," env:"OGXBRIDGE_STATUS_DISPLAY"`
	Addr    string   `help:"Listen address of the websocket status feed" default:"127.0.0.1:8081" env:"OGXBRIDGE_STATUS_ADDR"`
}

// Enabled reports whether display name was selected.
func (c Config) Enabled(name string) bool {
	for _, d := range c.Display {
		if d == name {
			return true
		}
	}
	return false
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local tool
	},
}

// Server serves the hub on /ws and the current summary on /.
type Server struct {
	hub        *Hub
	logger     *slog.Logger
	httpServer *http.Server
}

func NewServer(addr string, hub *Hub, logger *slog.Logger) *Server {
	s := &Server{hub: hub, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/", s.handleIndex)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	c := NewClient(s.hub, conn)
	s.hub.Register(c)
	go c.WritePump()
	go c.ReadPump()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.hub.mu.RLock()
	last := s.hub.last
	s.hub.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	if last == nil {
		_, _ = w.Write([]byte("{}"))
		return
	}
	_, _ = w.Write(last)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("status feed listening", "addr", "ws://"+ln.Addr().String()+"/ws")
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

// ListenAndServe binds the configured address and serves.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
