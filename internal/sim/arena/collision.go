package arena

import "time"

// resolveProjectile checks b against every living player except its owner, in ascending id
// order. The first overlap takes the damage and consumes the projectile.
func (w *World) resolveProjectile(b *Projectile, now time.Time) bool {
	reach := w.cfg.PlayerRadius + w.cfg.ProjectileRadius
	reach2 := reach * reach

	for _, p := range w.store.Players() {
		if !p.Alive || p.ID == b.OwnerID {
			continue
		}
		dx := p.X - b.X
		dy := p.Y - b.Y
		if dx*dx+dy*dy > reach2 {
			continue
		}

		w.applyDamage(p, b, now)
		w.store.RemoveProjectile(b.ID)
		return true
	}
	return false
}

func (w *World) applyDamage(p *Player, b *Projectile, now time.Time) {
	p.Health -= w.cfg.Damage
	w.record(Event{Kind: EventHit, Player: p.ID, Other: b.OwnerID, Bullet: b.ID, Damage: w.cfg.Damage, Health: max(p.Health, 0), X: p.X, Y: p.Y})
	if p.Health > 0 {
		return
	}
	p.Health = 0
	p.Alive = false
	p.VX, p.VY = 0, 0
	w.scheduleRespawn(p, now)
	w.record(Event{Kind: EventKill, Player: p.ID, Other: b.OwnerID, Bullet: b.ID, X: p.X, Y: p.Y})
	w.logger.Printf("kill victim=%s by=%s", p.ID, b.OwnerID)
}
