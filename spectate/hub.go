package spectate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/flappy/game"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
)

var upgrader = websocket.Upgrader{
	// Viewers are read-only; any origin may watch.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type viewer struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans frames out to connected viewers. It implements game.FrameSink
// and http.Handler. Publish never blocks: a viewer whose buffer is full
// misses frames.
type Hub struct {
	welcome []byte
	buffer  int

	mu      sync.Mutex
	viewers map[*viewer]struct{}
	dropped int
}

// NewHub creates a hub for episodes run with opts. buffer is the number of
// frames queued per viewer.
func NewHub(opts game.Options, buffer int) (*Hub, error) {
	welcome, err := Encode(MsgWelcome, Welcome{
		Variant: opts.Variant,
		Title:   opts.Title,
		Width:   opts.Width,
		Height:  opts.Height,
	})
	if err != nil {
		return nil, err
	}
	return &Hub{
		welcome: welcome,
		buffer:  max(buffer, 1),
		viewers: make(map[*viewer]struct{}),
	}, nil
}

// Viewers returns the number of connected viewers.
func (h *Hub) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

// Dropped returns how many frame deliveries were skipped for slow viewers.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Publish encodes the frame once and queues it for every viewer.
func (h *Hub) Publish(f *game.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.viewers) == 0 {
		return
	}

	b, err := Encode(MsgFrame, FrameMessage{Frame: f, Digest: game.Digest(f)})
	if err != nil {
		slog.Error("encoding frame", "tick", f.Tick, "error", err)
		return
	}
	for v := range h.viewers {
		select {
		case v.send <- b:
		default:
			h.dropped++
		}
	}
}

// ServeHTTP upgrades the request and streams frames until the viewer leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	v := &viewer{conn: conn, send: make(chan []byte, h.buffer)}
	v.send <- h.welcome
	h.mu.Lock()
	h.viewers[v] = struct{}{}
	h.mu.Unlock()
	slog.Info("viewer joined", "remote", r.RemoteAddr, "viewers", h.Viewers())

	done := make(chan struct{})
	go h.writeLoop(v, done)
	h.readLoop(v)

	h.mu.Lock()
	delete(h.viewers, v)
	h.mu.Unlock()
	close(done)
	_ = conn.Close()
	slog.Info("viewer left", "remote", r.RemoteAddr, "viewers", h.Viewers())
}

// readLoop discards viewer messages and returns when the connection drops.
func (h *Hub) readLoop(v *viewer) {
	v.conn.SetReadLimit(1 << 10)
	_ = v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(v *viewer, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case b := <-v.send:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				_ = v.conn.Close()
				return
			}
		case <-ticker.C:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = v.conn.Close()
				return
			}
		}
	}
}

// Serve listens on addr with the hub at /ws until ctx is cancelled.
func Serve(ctx context.Context, addr string, h *Hub) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("spectator server listening", "addr", addr, "endpoint", "/ws")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("spectator server: %w", err)
	}
	return nil
}
