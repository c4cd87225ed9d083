package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"skirmish.gg/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "player name prefix")
		count    = flag.Int("n", 1, "number of bots")
		encoding = flag.String("encoding", protocol.EncodingJSON, "snapshot encoding (json|msgpack)")
		inputHz  = flag.Int("input_hz", 10, "inputs sent per second")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < *count; i++ {
		botName := *name
		if *count > 1 {
			botName = fmt.Sprintf("%s-%d", *name, i+1)
		}
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			if err := runBot(ctx, *url, botName, protocol.NormalizeEncoding(*encoding), *inputHz, seed, logger); err != nil {
				logger.Printf("%s: %v", botName, err)
			}
		}(time.Now().UnixNano() + int64(i))
	}
	wg.Wait()
}

func runBot(ctx context.Context, url, name, encoding string, inputHz int, seed int64, logger *log.Logger) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Name:            name,
		Encoding:        encoding,
		MaxQueue:        4,
	}
	if err := conn.WriteJSON(hello); err != nil {
		return fmt.Errorf("send HELLO: %w", err)
	}

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read WELCOME: %w", err)
	}
	var wel protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &wel); err != nil || wel.Type != protocol.TypeWelcome {
		return fmt.Errorf("expected WELCOME, got %q", msg)
	}
	logger.Printf("WELCOME name=%s id=%s world=%.0fx%.0f encoding=%s", name, wel.ID, wel.World.Width, wel.World.Height, wel.Encoding)

	var (
		mu     sync.Mutex
		latest protocol.SnapshotMsg
		have   bool
	)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			snap, err := protocol.DecodeSnapshot(b, wel.Encoding)
			if err != nil || snap.Type != protocol.TypeSnapshot {
				continue
			}
			mu.Lock()
			latest, have = snap, true
			mu.Unlock()
		}
	}()

	if inputHz <= 0 {
		inputHz = 10
	}
	ticker := time.NewTicker(time.Second / time.Duration(inputHz))
	defer ticker.Stop()
	b := newBrain(wel.ID, wel.World, rand.New(rand.NewSource(seed)))

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return nil
		case err := <-readErr:
			return fmt.Errorf("read: %w", err)
		case <-ticker.C:
			mu.Lock()
			snap, ok := latest, have
			mu.Unlock()
			if !ok {
				continue
			}
			in := b.decide(snap)
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(in); err != nil {
				return fmt.Errorf("send INPUT: %w", err)
			}
		}
	}
}
