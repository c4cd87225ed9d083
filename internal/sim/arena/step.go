package arena

import (
	"math"
	"time"
)

// step advances the world by the real time elapsed since the previous step, clamped to
// MaxStep. Players move first, then projectiles move and resolve collisions one by one.
func (w *World) step(now time.Time) {
	stepStart := time.Now()

	dt := now.Sub(w.lastStep)
	if dt < 0 {
		dt = 0
	}
	if dt > w.cfg.MaxStep {
		dt = w.cfg.MaxStep
		w.counters.overruns++
	}
	w.lastStep = now
	secs := dt.Seconds()

	for _, p := range w.store.Players() {
		w.stepPlayer(p, now, secs)
	}
	for _, b := range w.store.Projectiles() {
		w.stepProjectile(b, now, secs)
	}

	w.flushEvents(w.tick, now)
	w.tick++
	w.publishMetrics(float64(time.Since(stepStart).Microseconds()) / 1000.0)
}

func (w *World) stepPlayer(p *Player, now time.Time, secs float64) {
	if !p.Alive {
		w.maybeRespawn(p, now)
		return
	}

	dx, dy := 0.0, 0.0
	if p.Input.Up {
		dy--
	}
	if p.Input.Down {
		dy++
	}
	if p.Input.Left {
		dx--
	}
	if p.Input.Right {
		dx++
	}
	p.VX, p.VY = 0, 0
	if mag := math.Hypot(dx, dy); mag > 0 {
		p.VX = dx / mag * w.cfg.PlayerSpeed
		p.VY = dy / mag * w.cfg.PlayerSpeed
	}

	p.X = clamp(p.X+p.VX*secs, w.cfg.PlayerRadius, w.cfg.Width-w.cfg.PlayerRadius)
	p.Y = clamp(p.Y+p.VY*secs, w.cfg.PlayerRadius, w.cfg.Height-w.cfg.PlayerRadius)

	if p.Input.HasAim {
		p.Angle = p.Input.Aim
	}
}

func (w *World) stepProjectile(b *Projectile, now time.Time, secs float64) {
	b.X += b.VX * secs
	b.Y += b.VY * secs

	if now.Sub(b.SpawnedAt) >= w.cfg.ProjectileLifetime || w.outOfBounds(b) {
		w.store.RemoveProjectile(b.ID)
		return
	}
	w.resolveProjectile(b, now)
}

func (w *World) outOfBounds(b *Projectile) bool {
	m := w.cfg.ProjectileBoundsMargin
	return b.X < -m || b.X > w.cfg.Width+m || b.Y < -m || b.Y > w.cfg.Height+m
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
