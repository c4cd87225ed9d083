package arena

import (
	"context"
	"time"
)

// Run owns the world until ctx is cancelled or Stop is called. Inputs, connects and
// disconnects are applied as they arrive; the simulation steps at TickRateHz and snapshots
// go out at BroadcastHz.
func (w *World) Run(ctx context.Context) error {
	defer w.shutdown()

	simTicker := time.NewTicker(time.Second / time.Duration(w.cfg.TickRateHz))
	defer simTicker.Stop()
	bcastTicker := time.NewTicker(time.Second / time.Duration(w.cfg.BroadcastHz))
	defer bcastTicker.Stop()

	w.lastStep = w.clock.Now()
	w.logger.Printf("running tick_rate=%dHz broadcast=%dHz world=%.0fx%.0f", w.cfg.TickRateHz, w.cfg.BroadcastHz, w.cfg.Width, w.cfg.Height)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.connect:
			w.handleConnect(req)
		case id := <-w.disconnect:
			w.handleDisconnect(id)
		case env := <-w.inbox:
			w.handleInput(env)
		case req := <-w.stateReq:
			w.handleStateRequest(req)
		case <-simTicker.C:
			w.step(w.clock.Now())
		case <-bcastTicker.C:
			w.broadcast(w.clock.Now())
		}
	}
}

// Stop asks Run to return. It is safe to call more than once.
func (w *World) Stop() {
	if w.stopped.CompareAndSwap(false, true) {
		close(w.stop)
	}
}

func (w *World) shutdown() {
	w.flushEvents(w.tick, w.clock.Now())
	for id, c := range w.clients {
		if c.Out != nil {
			close(c.Out)
		}
		delete(w.clients, id)
	}
	w.publishMetrics(0)
	close(w.done)
}

// sendLatest delivers b without blocking, evicting the oldest queued frame when ch is full.
// It reports whether a frame was dropped.
func sendLatest(ch chan []byte, b []byte) (dropped bool) {
	select {
	case ch <- b:
		return false
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
	return true
}
