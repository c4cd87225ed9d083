package arena

import (
	"errors"
	"fmt"
	"time"

	"skirmish.gg/internal/sim/tuning"
)

type Config struct {
	Width, Height float64
	SpawnMargin   float64

	PlayerRadius    float64
	PlayerSpeed     float64
	PlayerMaxHealth int
	RespawnDelay    time.Duration
	ShootCooldown   time.Duration

	ProjectileSpeed          float64
	ProjectileRadius         float64
	ProjectileLifetime       time.Duration
	ProjectileBoundsMargin   float64
	ProjectileSpawnClearance float64
	Damage                   int

	TickRateHz  int
	BroadcastHz int
	MaxStep     time.Duration

	MaxPlayers int // 0: unlimited
	Seed       int64
}

func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{
		Width:                    t.World.Width,
		Height:                   t.World.Height,
		SpawnMargin:              t.World.SpawnMargin,
		PlayerRadius:             t.Player.Radius,
		PlayerSpeed:              t.Player.Speed,
		PlayerMaxHealth:          t.Player.MaxHealth,
		RespawnDelay:             t.RespawnDelay(),
		ShootCooldown:            t.ShootCooldown(),
		ProjectileSpeed:          t.Projectile.Speed,
		ProjectileRadius:         t.Projectile.Radius,
		ProjectileLifetime:       t.ProjectileLifetime(),
		ProjectileBoundsMargin:   t.Projectile.BoundsMargin,
		ProjectileSpawnClearance: t.Projectile.SpawnClearance,
		Damage:                   t.Projectile.Damage,
		TickRateHz:               t.TickRateHz,
		BroadcastHz:              t.BroadcastHz,
		MaxStep:                  t.MaxStep(),
		MaxPlayers:               t.MaxPlayers,
		Seed:                     t.Seed,
	}
}

func DefaultConfig() Config { return ConfigFromTuning(tuning.Defaults()) }

func (c Config) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("world size must be positive (got %vx%v)", c.Width, c.Height)
	}
	if c.PlayerRadius <= 0 || 2*c.PlayerRadius >= c.Width || 2*c.PlayerRadius >= c.Height {
		return fmt.Errorf("player radius %v does not fit a %vx%v world", c.PlayerRadius, c.Width, c.Height)
	}
	if c.TickRateHz <= 0 || c.BroadcastHz <= 0 {
		return errors.New("tick and broadcast rates must be positive")
	}
	if c.MaxStep <= 0 {
		return errors.New("max step must be positive")
	}
	if c.PlayerMaxHealth <= 0 || c.Damage <= 0 {
		return errors.New("max health and damage must be positive")
	}
	return nil
}

// spawnInset is the distance kept from every edge when placing a player.
func (c Config) spawnInset() float64 {
	m := c.SpawnMargin
	if m < c.PlayerRadius {
		m = c.PlayerRadius
	}
	// Keep a usable spawn band even on worlds smaller than twice the margin.
	if 2*m >= c.Width || 2*m >= c.Height {
		m = c.PlayerRadius
	}
	return m
}
