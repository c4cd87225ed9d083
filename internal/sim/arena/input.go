package arena

import (
	"math"
	"time"
)

// handleInput stages an input frame and, when it asks to shoot, spawns the projectile right
// away. Frames for unknown sessions are dropped.
func (w *World) handleInput(env InputEnvelope) {
	p := w.store.Player(env.SessionID)
	if p == nil {
		return
	}
	in := env.Input
	if in.Up != nil {
		p.Input.Up = *in.Up
	}
	if in.Down != nil {
		p.Input.Down = *in.Down
	}
	if in.Left != nil {
		p.Input.Left = *in.Left
	}
	if in.Right != nil {
		p.Input.Right = *in.Right
	}
	if in.AimAngle != nil && !math.IsNaN(*in.AimAngle) && !math.IsInf(*in.AimAngle, 0) {
		p.Input.Aim = *in.AimAngle
		p.Input.HasAim = true
	}
	if in.Shoot != nil && *in.Shoot {
		w.tryShoot(p, w.clock.Now())
	}
}

func (w *World) canShoot(p *Player, now time.Time) bool {
	if !p.Alive {
		return false
	}
	return p.LastShot.IsZero() || now.Sub(p.LastShot) >= w.cfg.ShootCooldown
}

// tryShoot spawns a projectile for p if the cooldown allows it. An ineligible request is
// dropped without any side effect.
func (w *World) tryShoot(p *Player, now time.Time) *Projectile {
	if !w.canShoot(p, now) {
		return nil
	}
	p.LastShot = now

	aim := p.Angle
	if p.Input.HasAim {
		aim = p.Input.Aim
	}
	cos, sin := math.Cos(aim), math.Sin(aim)
	offset := w.cfg.PlayerRadius + w.cfg.ProjectileRadius + w.cfg.ProjectileSpawnClearance

	b := &Projectile{
		ID:        w.store.NextProjectileID(),
		OwnerID:   p.ID,
		X:         p.X + cos*offset,
		Y:         p.Y + sin*offset,
		VX:        cos * w.cfg.ProjectileSpeed,
		VY:        sin * w.cfg.ProjectileSpeed,
		SpawnedAt: now,
	}
	w.store.AddProjectile(b)
	w.record(Event{Kind: EventShot, Player: p.ID, Bullet: b.ID, X: b.X, Y: b.Y})
	return b
}
