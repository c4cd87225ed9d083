package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"skirmish.gg/internal/persistence/indexdb"
	"skirmish.gg/internal/sim/arena"
)

func hit(victim, shooter string, bullet uint64, health int) arena.Event {
	return arena.Event{Kind: arena.EventHit, Player: victim, Other: shooter, Bullet: bullet, Damage: 25, Health: health}
}

func duel() []arena.TickLogEntry {
	return []arena.TickLogEntry{
		{Tick: 0, Events: []arena.Event{
			{Kind: arena.EventJoin, Player: "a", Name: "alice"},
			{Kind: arena.EventJoin, Player: "b", Name: "bob"},
		}},
		{Tick: 3, Events: []arena.Event{{Kind: arena.EventShot, Player: "a", Bullet: 1}}},
		{Tick: 5, Events: []arena.Event{hit("b", "a", 1, 75)}},
		{Tick: 9, Events: []arena.Event{hit("b", "a", 2, 50)}},
		{Tick: 12, Events: []arena.Event{hit("b", "a", 3, 25)}},
		{Tick: 15, Events: []arena.Event{
			hit("b", "a", 4, 0),
			{Kind: arena.EventKill, Player: "b", Other: "a", Bullet: 4},
		}},
		{Tick: 140, Events: []arena.Event{{Kind: arena.EventRespawn, Player: "b", Health: 100}}},
		{Tick: 150, Events: []arena.Event{{Kind: arena.EventLeave, Player: "a"}}},
	}
}

func TestVerifierAcceptsDuel(t *testing.T) {
	v := newVerifier(100)
	for _, e := range duel() {
		v.apply(e)
	}
	if len(v.violations) != 0 {
		t.Fatalf("violations: %v", v.violations)
	}
	board := v.scoreboard()
	if len(board) != 2 || board[0].ID != "a" || board[0].Kills != 1 || board[0].Hits != 4 || board[0].Shots != 1 {
		t.Fatalf("board=%+v", board)
	}
	if board[1].ID != "b" || board[1].Deaths != 1 || board[1].Name != "bob" {
		t.Fatalf("board=%+v", board)
	}
	if v.runs != 1 || v.untracked != 0 {
		t.Fatalf("runs=%d untracked=%d", v.runs, v.untracked)
	}
}

func TestVerifierFlagsImpossibleSequences(t *testing.T) {
	cases := []struct {
		name    string
		entries []arena.TickLogEntry
		want    string
	}{
		{
			name: "kill without lethal hit",
			entries: []arena.TickLogEntry{
				{Tick: 1, Events: []arena.Event{{Kind: arena.EventJoin, Player: "a"}, {Kind: arena.EventJoin, Player: "b"}}},
				{Tick: 2, Events: []arena.Event{hit("b", "a", 1, 75), {Kind: arena.EventKill, Player: "b", Other: "a"}}},
			},
			want: "without a lethal hit",
		},
		{
			name: "wrong health",
			entries: []arena.TickLogEntry{
				{Tick: 1, Events: []arena.Event{{Kind: arena.EventJoin, Player: "a"}, {Kind: arena.EventJoin, Player: "b"}}},
				{Tick: 2, Events: []arena.Event{hit("b", "a", 1, 80)}},
			},
			want: "health=80 after hit, want 75",
		},
		{
			name: "dead shooter",
			entries: []arena.TickLogEntry{
				{Tick: 1, Events: []arena.Event{{Kind: arena.EventJoin, Player: "a"}, {Kind: arena.EventJoin, Player: "b"}}},
				{Tick: 2, Events: []arena.Event{hit("b", "a", 1, 75)}},
				{Tick: 3, Events: []arena.Event{hit("b", "a", 2, 50)}},
				{Tick: 4, Events: []arena.Event{hit("b", "a", 3, 25)}},
				{Tick: 5, Events: []arena.Event{hit("b", "a", 4, 0), {Kind: arena.EventKill, Player: "b", Other: "a"}}},
				{Tick: 6, Events: []arena.Event{{Kind: arena.EventShot, Player: "b", Bullet: 5}}},
			},
			want: "dead player b fired",
		},
		{
			name: "self hit",
			entries: []arena.TickLogEntry{
				{Tick: 1, Events: []arena.Event{{Kind: arena.EventJoin, Player: "a"}}},
				{Tick: 2, Events: []arena.Event{hit("a", "a", 1, 75)}},
			},
			want: "hit by own bullet",
		},
		{
			name: "respawn while alive",
			entries: []arena.TickLogEntry{
				{Tick: 1, Events: []arena.Event{{Kind: arena.EventJoin, Player: "a"}}},
				{Tick: 2, Events: []arena.Event{{Kind: arena.EventRespawn, Player: "a", Health: 100}}},
			},
			want: "RESPAWN for living player",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := newVerifier(100)
			for _, e := range tc.entries {
				v.apply(e)
			}
			if len(v.violations) == 0 || !strings.Contains(strings.Join(v.violations, "\n"), tc.want) {
				t.Fatalf("violations=%v want %q", v.violations, tc.want)
			}
		})
	}
}

func TestVerifierTreatsTickResetAsRestart(t *testing.T) {
	v := newVerifier(100)
	v.apply(arena.TickLogEntry{Tick: 50, Events: []arena.Event{{Kind: arena.EventJoin, Player: "a"}}})
	v.apply(arena.TickLogEntry{Tick: 2, Events: []arena.Event{{Kind: arena.EventJoin, Player: "c"}}})
	if len(v.violations) != 0 || v.runs != 2 {
		t.Fatalf("runs=%d violations=%v", v.runs, v.violations)
	}
}

func TestCompareIndexAgainstSQLite(t *testing.T) {
	idx, err := indexdb.OpenSQLite(filepath.Join(t.TempDir(), "combat.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	v := newVerifier(100)
	for _, e := range duel() {
		e.Time = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC).UnixMilli()
		v.apply(e)
		if err := idx.WriteTick(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := idx.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	indexed, err := idx.TopKillers(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if m := compareIndex(v.scoreboard(), indexed); len(m) != 0 {
		t.Fatalf("mismatches: %v", m)
	}

	// A drifted counter is reported.
	board := v.scoreboard()
	board[0].Kills++
	if m := compareIndex(board, indexed); len(m) != 1 || !strings.Contains(m[0], "player a") {
		t.Fatalf("mismatches=%v", m)
	}
}
