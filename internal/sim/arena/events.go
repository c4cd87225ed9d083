package arena

import "time"

// Combat event kinds.
const (
	EventJoin    = "JOIN"
	EventLeave   = "LEAVE"
	EventShot    = "SHOT"
	EventHit     = "HIT"
	EventKill    = "KILL"
	EventRespawn = "RESPAWN"
)

// Event is one entry of the combat log. Player is the subject (joiner, shooter, victim);
// Other is the shooter for HIT and KILL. Name is set on JOIN.
type Event struct {
	Kind   string  `json:"kind"`
	Player string  `json:"player"`
	Name   string  `json:"name,omitempty"`
	Other  string  `json:"other,omitempty"`
	Bullet uint64  `json:"bullet,omitempty"`
	Damage int     `json:"damage,omitempty"`
	Health int     `json:"health,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// TickLogEntry groups the events attributed to one simulation tick. Events raised by the
// event domain (joins, shots) between two steps belong to the following tick.
type TickLogEntry struct {
	Tick   uint64  `json:"tick"`
	Time   int64   `json:"time"` // unix ms
	Events []Event `json:"events"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type counters struct {
	shots      uint64
	hits       uint64
	kills      uint64
	overruns   uint64
	broadcasts uint64
	dropped    uint64
}

func (w *World) record(ev Event) {
	switch ev.Kind {
	case EventShot:
		w.counters.shots++
	case EventHit:
		w.counters.hits++
	case EventKill:
		w.counters.kills++
	}
	if w.tickLogger == nil {
		return
	}
	w.pending = append(w.pending, ev)
}

func (w *World) flushEvents(tick uint64, now time.Time) {
	if w.tickLogger == nil || len(w.pending) == 0 {
		return
	}
	evs := make([]Event, len(w.pending))
	copy(evs, w.pending)
	w.pending = w.pending[:0]
	if err := w.tickLogger.WriteTick(TickLogEntry{Tick: tick, Time: now.UnixMilli(), Events: evs}); err != nil {
		w.logger.Printf("tick log: %v", err)
	}
}
