package arena

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skirmish.gg/internal/protocol"
)

func TestJoinSpawnsInsideMargin(t *testing.T) {
	w, _ := newTestWorld(t)
	resp := w.joinPlayer(ConnectRequest{Name: "  alice ", Encoding: "MSGPACK"})
	require.Empty(t, resp.Refused)

	wel := resp.Welcome
	assert.Equal(t, protocol.TypeWelcome, wel.Type)
	assert.Equal(t, protocol.Version, wel.ProtocolVersion)
	assert.Equal(t, protocol.EncodingMsgpack, wel.Encoding)
	assert.Equal(t, 1200.0, wel.World.Width)

	p := w.store.Player(wel.ID)
	require.NotNil(t, p)
	assert.True(t, p.Alive)
	assert.Equal(t, 100, p.Health)
	assert.GreaterOrEqual(t, p.X, 100.0)
	assert.LessOrEqual(t, p.X, 1100.0)
	assert.GreaterOrEqual(t, p.Y, 100.0)
	assert.LessOrEqual(t, p.Y, 700.0)
	assert.Equal(t, "alice", w.clients[wel.ID].Name)
}

func TestJoinRefusedWhenFull(t *testing.T) {
	w, _ := newTestWorld(t, func(c *Config) { c.MaxPlayers = 2 })
	join(t, w)
	join(t, w)

	resp := w.joinPlayer(ConnectRequest{})
	assert.Equal(t, protocol.ErrServerFull, resp.Refused)
	assert.Equal(t, 2, w.store.NumPlayers())
}

func TestJoinSkipsDuplicateIDs(t *testing.T) {
	ids := []string{"dup", "dup", "other"}
	cfg := DefaultConfig()
	w, err := New(cfg, WithClock(newFakeClock()), WithIDGenerator(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))
	require.NoError(t, err)

	a := w.joinPlayer(ConnectRequest{}).Welcome.ID
	b := w.joinPlayer(ConnectRequest{}).Welcome.ID
	assert.Equal(t, "dup", a)
	assert.Equal(t, "other", b)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	rec := &recordingTickLogger{}
	w, clk := newTestWorld(t)
	w.SetTickLogger(rec)
	a := join(t, w)
	b := join(t, w)

	w.handleDisconnect(a)
	w.handleDisconnect(a)
	w.handleDisconnect("never-joined")

	assert.Nil(t, w.store.Player(a))
	assert.NotNil(t, w.store.Player(b))
	assert.Equal(t, 1, w.store.NumPlayers())
	_, ok := w.clients[a]
	assert.False(t, ok)

	advance(w, clk, 16*time.Millisecond)
	assert.Equal(t, []string{EventJoin, EventJoin, EventLeave}, rec.kinds())
}

func TestEventsAttributedToNextTick(t *testing.T) {
	rec := &recordingTickLogger{}
	w, clk := newTestWorld(t)
	w.SetTickLogger(rec)

	advance(w, clk, 16*time.Millisecond) // tick 0, nothing logged
	join(t, w)
	advance(w, clk, 16*time.Millisecond)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, uint64(1), rec.entries[0].Tick)
	assert.Equal(t, clk.Now().UnixMilli(), rec.entries[0].Time)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickRateHz = 0
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.PlayerRadius = 700
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestRunLoop(t *testing.T) {
	w, _ := newTestWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	out := make(chan []byte, 4)
	resp := make(chan ConnectResponse, 1)
	w.Connect() <- ConnectRequest{Name: "bot", Out: out, Resp: resp}

	var id string
	select {
	case r := <-resp:
		require.Empty(t, r.Refused)
		id = r.Welcome.ID
	case <-time.After(2 * time.Second):
		t.Fatal("no welcome")
	}

	w.Inbox() <- InputEnvelope{SessionID: id, Input: protocol.InputMsg{AimAngle: floatp(0), Shoot: boolp(true)}}
	require.Eventually(t, func() bool { return w.Metrics().Projectiles == 1 }, 2*time.Second, 5*time.Millisecond)

	select {
	case frame := <-out:
		snap, err := protocol.DecodeSnapshot(frame, protocol.EncodingJSON)
		require.NoError(t, err)
		assert.Equal(t, protocol.TypeSnapshot, snap.Type)
		require.Len(t, snap.Players, 1)
		assert.Equal(t, id, snap.Players[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot")
	}

	state := make(chan protocol.SnapshotMsg, 1)
	w.StateRequests() <- StateRequest{Resp: state}
	select {
	case snap := <-state:
		require.Len(t, snap.Players, 1)
		assert.Len(t, snap.Bullets, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no state")
	}

	w.Stop()
	w.Stop()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	<-w.Done()

	for range out {
	}
	assert.Equal(t, 0, w.Metrics().Clients)
}
