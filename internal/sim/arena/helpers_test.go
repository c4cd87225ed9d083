package arena

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingTickLogger struct {
	entries []TickLogEntry
}

func (r *recordingTickLogger) WriteTick(e TickLogEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordingTickLogger) kinds() []string {
	var out []string
	for _, e := range r.entries {
		for _, ev := range e.Events {
			out = append(out, ev.Kind)
		}
	}
	return out
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("p%02d", n)
	}
}

func newTestWorld(t *testing.T, mutate ...func(*Config)) (*World, *fakeClock) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = 1
	for _, m := range mutate {
		m(&cfg)
	}
	clk := newFakeClock()
	w, err := New(cfg, WithClock(clk), WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)
	return w, clk
}

func join(t *testing.T, w *World) string {
	t.Helper()
	resp := w.joinPlayer(ConnectRequest{Name: "tester"})
	require.Empty(t, resp.Refused)
	require.NotEmpty(t, resp.Welcome.ID)
	return resp.Welcome.ID
}

func place(w *World, id string, x, y float64) *Player {
	p := w.store.Player(id)
	p.X, p.Y = x, y
	return p
}

// drop puts a motionless projectile owned by owner at (x, y).
func drop(w *World, owner string, x, y float64) uint64 {
	b := &Projectile{
		ID:        w.store.NextProjectileID(),
		OwnerID:   owner,
		X:         x,
		Y:         y,
		SpawnedAt: w.clock.Now(),
	}
	w.store.AddProjectile(b)
	return b.ID
}

// advance moves the clock forward in steps of at most 50ms, stepping the world each time.
func advance(w *World, clk *fakeClock, d time.Duration) {
	for d > 0 {
		s := min(d, 50*time.Millisecond)
		clk.Advance(s)
		w.step(clk.Now())
		d -= s
	}
}

func boolp(b bool) *bool { return &b }
func floatp(f float64) *float64 { return &f }
