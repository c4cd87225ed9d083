package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"skirmish.gg/internal/sim/arena"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestSQLiteIndex_Leaderboard(t *testing.T) {
	idx := openTestIndex(t)

	entries := []arena.TickLogEntry{
		{Tick: 0, Time: 1000, Events: []arena.Event{
			{Kind: arena.EventJoin, Player: "a", Name: "alice"},
			{Kind: arena.EventJoin, Player: "b", Name: "bob"},
			{Kind: arena.EventJoin, Player: "c", Name: "carol"},
		}},
		{Tick: 5, Time: 1080, Events: []arena.Event{
			{Kind: arena.EventShot, Player: "a", Bullet: 1},
			{Kind: arena.EventShot, Player: "a", Bullet: 2},
			{Kind: arena.EventShot, Player: "c", Bullet: 3},
		}},
		{Tick: 9, Time: 1150, Events: []arena.Event{
			{Kind: arena.EventHit, Player: "b", Other: "a", Bullet: 1, Damage: 25, Health: 0},
			{Kind: arena.EventKill, Player: "b", Other: "a", Bullet: 1},
			{Kind: arena.EventHit, Player: "a", Other: "c", Bullet: 3, Damage: 25, Health: 75},
		}},
		{Tick: 12, Time: 1200, Events: []arena.Event{
			{Kind: arena.EventLeave, Player: "c"},
		}},
	}
	for _, e := range entries {
		if err := idx.WriteTick(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := idx.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	top, err := idx.TopKillers(context.Background(), 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("rows=%d want=3", len(top))
	}
	if top[0].ID != "a" || top[0].Name != "alice" || top[0].Kills != 1 || top[0].Hits != 1 || top[0].Shots != 2 {
		t.Fatalf("top[0]=%+v", top[0])
	}
	// c has no kills and no deaths, so it ranks above b who died once.
	if top[1].ID != "c" || top[2].ID != "b" || top[2].Deaths != 1 {
		t.Fatalf("order=%+v", top)
	}

	var leftTick sql.NullInt64
	if err := idx.db.QueryRow(`SELECT left_tick FROM sessions WHERE id='c'`).Scan(&leftTick); err != nil {
		t.Fatalf("query: %v", err)
	}
	if !leftTick.Valid || leftTick.Int64 != 12 {
		t.Fatalf("left_tick=%v", leftTick)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: arena.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(arena.TickLogEntry{Tick: 2})
	_ = s.WriteTick(arena.TickLogEntry{Tick: 3})

	st := s.Stats()
	if st.DropTickTotal != 2 {
		t.Fatalf("DropTickTotal=%d want=2", st.DropTickTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_ClosedIgnoresWrites(t *testing.T) {
	idx := openTestIndex(t)
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := idx.WriteTick(arena.TickLogEntry{Tick: 1}); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSQLiteIndex_ReopenKeepsEarlierRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combat.sqlite")
	ctx := context.Background()

	// Ticks restart at 0 after a server restart; both runs must survive.
	runs := [][]arena.TickLogEntry{
		{
			{Tick: 0, Time: 1000, Events: []arena.Event{
				{Kind: arena.EventJoin, Player: "a", Name: "alice"},
				{Kind: arena.EventJoin, Player: "b", Name: "bob"},
			}},
			{Tick: 10, Time: 1160, Events: []arena.Event{
				{Kind: arena.EventHit, Player: "b", Other: "a", Bullet: 1, Damage: 25, Health: 0},
				{Kind: arena.EventKill, Player: "b", Other: "a", Bullet: 1},
			}},
		},
		{
			{Tick: 0, Time: 9000, Events: []arena.Event{
				{Kind: arena.EventJoin, Player: "c", Name: "carol"},
				{Kind: arena.EventJoin, Player: "d", Name: "dave"},
			}},
			{Tick: 10, Time: 9160, Events: []arena.Event{
				{Kind: arena.EventHit, Player: "d", Other: "c", Bullet: 1, Damage: 25, Health: 0},
				{Kind: arena.EventKill, Player: "d", Other: "c", Bullet: 1},
			}},
		},
	}
	for _, run := range runs {
		idx, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		for _, e := range run {
			if err := idx.WriteTick(e); err != nil {
				t.Fatalf("write: %v", err)
			}
		}
		if err := idx.Flush(ctx); err != nil {
			t.Fatalf("flush: %v", err)
		}
		if err := idx.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	top, err := idx.TopKillers(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	byID := map[string]PlayerStats{}
	for _, p := range top {
		byID[p.ID] = p
	}
	if a := byID["a"]; a.Kills != 1 || a.Hits != 1 {
		t.Fatalf("a=%+v", a)
	}
	if c := byID["c"]; c.Kills != 1 || c.Hits != 1 {
		t.Fatalf("c=%+v", c)
	}
	if byID["b"].Deaths != 1 || byID["d"].Deaths != 1 {
		t.Fatalf("deaths b=%+v d=%+v", byID["b"], byID["d"])
	}
}

func TestSQLiteIndex_WritesRacingCloseDoNotPanic(t *testing.T) {
	idx := openTestIndex(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 200; n++ {
				_ = idx.WriteTick(arena.TickLogEntry{Tick: uint64(n), Events: []arena.Event{{Kind: arena.EventShot, Player: "a", Bullet: uint64(i*1000 + n)}}})
				_ = idx.Flush(context.Background())
			}
		}(i)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	wg.Wait()
}
