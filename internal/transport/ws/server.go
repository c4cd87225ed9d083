package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"skirmish.gg/internal/protocol"
	"skirmish.gg/internal/sim/arena"
)

const (
	handshakeTimeout = 5 * time.Second
	readTimeout      = 60 * time.Second
	writeTimeout     = 5 * time.Second

	defaultQueue = 8
	maxQueue     = 64
)

type Server struct {
	world *arena.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *arena.World, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, encoding, out := s.handshake(conn)
		if id == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		frameType := websocket.TextMessage
		if encoding == protocol.EncodingMsgpack {
			frameType = websocket.BinaryMessage
		}

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						// World stopped.
						_ = conn.WriteControl(websocket.CloseMessage,
							websocket.FormatCloseMessage(websocket.CloseGoingAway, protocol.ErrShuttingDown),
							time.Now().Add(time.Second))
						cancel()
						_ = conn.Close()
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(frameType, b); err != nil {
						cancel()
						_ = conn.Close()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeInput {
				continue
			}
			in, err := protocol.DecodeInput(msg)
			if err != nil {
				continue
			}
			select {
			case s.world.Inbox() <- arena.InputEnvelope{SessionID: id, Input: in}:
			case <-s.world.Done():
				return
			}
		}

		// Cleanup.
		select {
		case s.world.Disconnect() <- id:
		case <-s.world.Done():
		}
		s.log.Printf("session closed id=%s", id)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (id, encoding string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, websocket.ClosePolicyViolation, protocol.ErrProtoBadRequest)
		return "", "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, protocol.ErrProtoBadRequest)
		return "", "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, websocket.ClosePolicyViolation, protocol.ErrBadVersion)
		return "", "", nil
	}
	if hello.Name == "" {
		hello.Name = "player"
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = defaultQueue
	}
	if maxQ > maxQueue {
		maxQ = maxQueue
	}
	out = make(chan []byte, maxQ)

	respCh := make(chan arena.ConnectResponse, 1)
	req := arena.ConnectRequest{
		Name:     hello.Name,
		Encoding: hello.Encoding,
		Out:      out,
		Resp:     respCh,
	}
	var resp arena.ConnectResponse
	select {
	case s.world.Connect() <- req:
	case <-s.world.Done():
		closeWith(conn, websocket.CloseGoingAway, protocol.ErrShuttingDown)
		return "", "", nil
	}
	select {
	case resp = <-respCh:
	case <-s.world.Done():
		closeWith(conn, websocket.CloseGoingAway, protocol.ErrShuttingDown)
		return "", "", nil
	}

	if resp.Refused != "" {
		closeWith(conn, websocket.CloseTryAgainLater, resp.Refused)
		return "", "", nil
	}

	// Send welcome immediately.
	if err := writeJSON(conn, resp.Welcome); err != nil {
		select {
		case s.world.Disconnect() <- resp.Welcome.ID:
		case <-s.world.Done():
		}
		return "", "", nil
	}
	s.log.Printf("session open id=%s name=%q encoding=%s queue=%d", resp.Welcome.ID, hello.Name, resp.Welcome.Encoding, maxQ)
	return resp.Welcome.ID, resp.Welcome.Encoding, out
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
