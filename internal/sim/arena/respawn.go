package arena

import "time"

func (w *World) scheduleRespawn(p *Player, now time.Time) {
	p.RespawnAt = now.Add(w.cfg.RespawnDelay)
}

// maybeRespawn brings a dead player back once its deadline has passed.
func (w *World) maybeRespawn(p *Player, now time.Time) bool {
	if p.Alive || p.RespawnAt.IsZero() || now.Before(p.RespawnAt) {
		return false
	}
	p.X, p.Y = w.randomSpawn()
	p.Health = w.cfg.PlayerMaxHealth
	p.RespawnAt = time.Time{}
	p.Alive = true
	w.record(Event{Kind: EventRespawn, Player: p.ID, Health: p.Health, X: p.X, Y: p.Y})
	return true
}
