package main

import (
	"fmt"
	"sort"

	"skirmish.gg/internal/persistence/indexdb"
	"skirmish.gg/internal/sim/arena"
)

type liveState struct {
	health int
	alive  bool
}

// verifier replays combat log entries and flags sequences the simulation cannot produce.
// Ticks restart from zero when the server restarts; a backwards tick starts a new run.
type verifier struct {
	maxHealth int

	lastTick   uint64
	seen       bool
	runs       int
	checked    uint64
	live       map[string]*liveState
	stats      map[string]*indexdb.PlayerStats
	untracked  int
	violations []string
}

func newVerifier(maxHealth int) *verifier {
	return &verifier{
		maxHealth: maxHealth,
		live:      map[string]*liveState{},
		stats:     map[string]*indexdb.PlayerStats{},
	}
}

func (v *verifier) failf(tick uint64, format string, args ...any) {
	v.violations = append(v.violations, fmt.Sprintf("run=%d tick=%d: ", v.runs, tick)+fmt.Sprintf(format, args...))
}

func (v *verifier) statsFor(id string) *indexdb.PlayerStats {
	s := v.stats[id]
	if s == nil {
		s = &indexdb.PlayerStats{ID: id}
		v.stats[id] = s
	}
	return s
}

// player returns the live state of id, creating it for players whose JOIN predates the log.
func (v *verifier) player(id string) *liveState {
	p := v.live[id]
	if p == nil {
		v.untracked++
		p = &liveState{health: v.maxHealth, alive: true}
		v.live[id] = p
	}
	return p
}

func (v *verifier) apply(e arena.TickLogEntry) {
	if !v.seen || e.Tick < v.lastTick {
		v.runs++
		v.live = map[string]*liveState{}
	}
	v.lastTick, v.seen = e.Tick, true
	v.checked++

	for _, ev := range e.Events {
		switch ev.Kind {
		case arena.EventJoin:
			if _, ok := v.live[ev.Player]; ok {
				v.failf(e.Tick, "duplicate JOIN for %s", ev.Player)
			}
			v.live[ev.Player] = &liveState{health: v.maxHealth, alive: true}
			v.statsFor(ev.Player).Name = ev.Name

		case arena.EventLeave:
			if _, ok := v.live[ev.Player]; !ok {
				v.failf(e.Tick, "LEAVE for unknown player %s", ev.Player)
			}
			delete(v.live, ev.Player)

		case arena.EventShot:
			if p := v.player(ev.Player); !p.alive {
				v.failf(e.Tick, "dead player %s fired bullet %d", ev.Player, ev.Bullet)
			}
			v.statsFor(ev.Player).Shots++

		case arena.EventHit:
			p := v.player(ev.Player)
			if !p.alive {
				v.failf(e.Tick, "dead player %s was hit by bullet %d", ev.Player, ev.Bullet)
			}
			if ev.Player == ev.Other {
				v.failf(e.Tick, "player %s hit by own bullet %d", ev.Player, ev.Bullet)
			}
			if want := max(p.health-ev.Damage, 0); ev.Health != want {
				v.failf(e.Tick, "player %s health=%d after hit, want %d", ev.Player, ev.Health, want)
			}
			p.health = ev.Health
			if ev.Other != "" {
				v.statsFor(ev.Other).Hits++
			}

		case arena.EventKill:
			p := v.player(ev.Player)
			if !p.alive || p.health != 0 {
				v.failf(e.Tick, "KILL for %s without a lethal hit (alive=%v health=%d)", ev.Player, p.alive, p.health)
			}
			p.alive = false
			v.statsFor(ev.Player).Deaths++
			if ev.Other != "" {
				v.statsFor(ev.Other).Kills++
			}

		case arena.EventRespawn:
			p := v.player(ev.Player)
			if p.alive {
				v.failf(e.Tick, "RESPAWN for living player %s", ev.Player)
			}
			if ev.Health != v.maxHealth {
				v.failf(e.Tick, "player %s respawned with health=%d, want %d", ev.Player, ev.Health, v.maxHealth)
			}
			p.alive = true
			p.health = ev.Health

		default:
			v.failf(e.Tick, "unknown event kind %q", ev.Kind)
		}
	}
}

// scoreboard ranks every player seen in the log the way the index ranks them.
func (v *verifier) scoreboard() []indexdb.PlayerStats {
	out := make([]indexdb.PlayerStats, 0, len(v.stats))
	for _, s := range v.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kills != out[j].Kills {
			return out[i].Kills > out[j].Kills
		}
		if out[i].Deaths != out[j].Deaths {
			return out[i].Deaths < out[j].Deaths
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// compareIndex reports counters that disagree between the replay and the index for players
// present in both.
func compareIndex(replayed, indexed []indexdb.PlayerStats) []string {
	byID := make(map[string]indexdb.PlayerStats, len(replayed))
	for _, p := range replayed {
		byID[p.ID] = p
	}
	var out []string
	for _, ix := range indexed {
		rp, ok := byID[ix.ID]
		if !ok {
			continue
		}
		if rp.Kills != ix.Kills || rp.Deaths != ix.Deaths || rp.Hits != ix.Hits || rp.Shots != ix.Shots {
			out = append(out, fmt.Sprintf("player %s: log k/d/h/s=%d/%d/%d/%d index=%d/%d/%d/%d",
				ix.ID, rp.Kills, rp.Deaths, rp.Hits, rp.Shots, ix.Kills, ix.Deaths, ix.Hits, ix.Shots))
		}
	}
	return out
}
