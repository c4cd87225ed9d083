package arena

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Players     int `json:"players"`
	Alive       int `json:"alive"`
	Projectiles int `json:"projectiles"`
	Clients     int `json:"clients"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS   float64 `json:"step_ms"`
	Overruns uint64  `json:"overruns"`

	ShotsTotal      uint64 `json:"shots_total"`
	HitsTotal       uint64 `json:"hits_total"`
	KillsTotal      uint64 `json:"kills_total"`
	BroadcastsTotal uint64 `json:"broadcasts_total"`
	DroppedFrames   uint64 `json:"dropped_frames"`
}

type QueueDepths struct {
	Connect    int `json:"connect"`
	Disconnect int `json:"disconnect"`
	Inbox      int `json:"inbox"`
}

func (w *World) publishMetrics(stepMS float64) {
	alive := 0
	for _, p := range w.store.Players() {
		if p.Alive {
			alive++
		}
	}
	w.metrics.Store(WorldMetrics{
		Tick:        w.tick,
		Players:     w.store.NumPlayers(),
		Alive:       alive,
		Projectiles: w.store.NumProjectiles(),
		Clients:     len(w.clients),
		QueueDepths: QueueDepths{
			Connect:    len(w.connect),
			Disconnect: len(w.disconnect),
			Inbox:      len(w.inbox),
		},
		StepMS:          stepMS,
		Overruns:        w.counters.overruns,
		ShotsTotal:      w.counters.shots,
		HitsTotal:       w.counters.hits,
		KillsTotal:      w.counters.kills,
		BroadcastsTotal: w.counters.broadcasts,
		DroppedFrames:   w.counters.dropped,
	})
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}
