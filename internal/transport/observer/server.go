package observer

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"skirmish.gg/internal/observerproto"
	"skirmish.gg/internal/protocol"
	"skirmish.gg/internal/sim/arena"
)

// Server streams snapshots to read-only spectators. Observers poll the world loop through
// state requests, so they never show up in the player roster or the broadcast fan-out.
type Server struct {
	world    *arena.World
	serverID string
	log      *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *arena.World, serverID string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		world:    w,
		serverID: serverID,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := decodeSubscribe(msg)
		if !ok {
			closeWith(conn, websocket.ClosePolicyViolation, protocol.ErrProtoBadRequest)
			return
		}
		if sub.ProtocolVersion != observerproto.Version {
			closeWith(conn, websocket.ClosePolicyViolation, protocol.ErrBadVersion)
			return
		}
		hz := s.normalizeHz(sub.Hz)

		boot := observerproto.BootstrapMsg{
			Type:            observerproto.TypeBootstrap,
			ProtocolVersion: observerproto.Version,
			ServerID:        s.serverID,
			Hz:              hz,
			World:           s.world.Params(),
		}
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(boot); err != nil {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		rates := make(chan int, 1)
		writeErr := make(chan error, 1)
		go func() { writeErr <- s.stream(ctx, conn, hz, rates) }()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			sub, ok := decodeSubscribe(msg)
			if !ok || sub.ProtocolVersion != observerproto.Version {
				continue
			}
			select {
			case <-rates:
			default:
			}
			rates <- s.normalizeHz(sub.Hz)
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// stream writes one SNAPSHOT per period, skipping periods in which the world did not tick.
func (s *Server) stream(ctx context.Context, conn *websocket.Conn, hz int, rates <-chan int) error {
	t := time.NewTicker(time.Second / time.Duration(hz))
	defer t.Stop()

	var lastTick uint64
	sent := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.world.Done():
			closeWith(conn, websocket.CloseGoingAway, protocol.ErrShuttingDown)
			return nil
		case hz = <-rates:
			t.Reset(time.Second / time.Duration(hz))
		case <-t.C:
			snap, err := s.world.RequestSnapshot(ctx)
			if err != nil {
				continue
			}
			if sent && snap.Tick == lastTick {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(snap); err != nil {
				s.log.Printf("observer write: %v", err)
				return err
			}
			lastTick, sent = snap.Tick, true
		}
	}
}

func (s *Server) normalizeHz(hz int) int {
	cfg := s.world.Config()
	if hz <= 0 {
		hz = cfg.BroadcastHz
	}
	if hz > cfg.TickRateHz {
		hz = cfg.TickRateHz
	}
	if hz < 1 {
		hz = 1
	}
	return hz
}

func decodeSubscribe(b []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(b, &sub); err != nil {
		return sub, false
	}
	return sub, sub.Type == observerproto.TypeSubscribe
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
