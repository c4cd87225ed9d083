package arena

import (
	"context"
	"errors"
	"time"

	"skirmish.gg/internal/protocol"
)

// StateRequest asks the world loop for a copy of the current snapshot.
type StateRequest struct {
	Resp chan protocol.SnapshotMsg
}

// ErrStopped is returned by RequestSnapshot once the world loop has exited.
var ErrStopped = errors.New("world stopped")

func (w *World) StateRequests() chan<- StateRequest { return w.stateReq }

// RequestSnapshot asks a running world loop for a snapshot and waits for the reply. It is safe
// to call from any goroutine.
func (w *World) RequestSnapshot(ctx context.Context) (protocol.SnapshotMsg, error) {
	ch := make(chan protocol.SnapshotMsg, 1)
	select {
	case w.stateReq <- StateRequest{Resp: ch}:
	case <-w.done:
		return protocol.SnapshotMsg{}, ErrStopped
	case <-ctx.Done():
		return protocol.SnapshotMsg{}, ctx.Err()
	}
	select {
	case snap := <-ch:
		return snap, nil
	case <-w.done:
		return protocol.SnapshotMsg{}, ErrStopped
	case <-ctx.Done():
		return protocol.SnapshotMsg{}, ctx.Err()
	}
}

// Snapshot builds a point-in-time copy of the world, players and projectiles in ascending id
// order. It must be called from the world loop goroutine (or before Run starts).
func (w *World) Snapshot() protocol.SnapshotMsg {
	return w.buildSnapshot(w.clock.Now())
}

func (w *World) buildSnapshot(now time.Time) protocol.SnapshotMsg {
	players := w.store.Players()
	bullets := w.store.Projectiles()

	snap := protocol.SnapshotMsg{
		Type:    protocol.TypeSnapshot,
		Time:    now.UnixMilli(),
		Tick:    w.tick,
		Players: make([]protocol.PlayerState, 0, len(players)),
		Bullets: make([]protocol.BulletState, 0, len(bullets)),
	}
	for _, p := range players {
		snap.Players = append(snap.Players, protocol.PlayerState{
			ID:     p.ID,
			X:      p.X,
			Y:      p.Y,
			Angle:  p.Angle,
			Health: p.Health,
			Alive:  p.Alive,
		})
	}
	for _, b := range bullets {
		snap.Bullets = append(snap.Bullets, protocol.BulletState{ID: b.ID, X: b.X, Y: b.Y})
	}
	return snap
}

// broadcast sends the same snapshot to every connected client, encoded once per encoding.
// A slow client loses its oldest queued frame instead of stalling the loop.
func (w *World) broadcast(now time.Time) {
	if len(w.clients) == 0 {
		return
	}
	snap := w.buildSnapshot(now)
	frames := map[string][]byte{}

	for id, c := range w.clients {
		if c.Out == nil {
			continue
		}
		b, ok := frames[c.Encoding]
		if !ok {
			var err error
			b, err = protocol.EncodeSnapshot(snap, c.Encoding)
			if err != nil {
				w.logger.Printf("encode snapshot client=%s encoding=%s: %v", id, c.Encoding, err)
				continue
			}
			frames[c.Encoding] = b
		}
		if sendLatest(c.Out, b) {
			w.counters.dropped++
		}
	}
	w.counters.broadcasts++
}

func (w *World) handleStateRequest(req StateRequest) {
	if req.Resp == nil {
		return
	}
	select {
	case req.Resp <- w.buildSnapshot(w.clock.Now()):
	default:
	}
}
