package tuning

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning is the operational configuration of an arena. Durations are in milliseconds,
// distances in world units, speeds in units per second.
type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz  int   `yaml:"tick_rate_hz"`
	BroadcastHz int   `yaml:"broadcast_hz"`
	MaxStepMs   int   `yaml:"max_step_ms"`
	MaxPlayers  int   `yaml:"max_players"`
	Seed        int64 `yaml:"seed"`

	World      WorldTuning      `yaml:"world"`
	Player     PlayerTuning     `yaml:"player"`
	Projectile ProjectileTuning `yaml:"projectile"`
}

type WorldTuning struct {
	Width       float64 `yaml:"width"`
	Height      float64 `yaml:"height"`
	SpawnMargin float64 `yaml:"spawn_margin"`
}

type PlayerTuning struct {
	Radius          float64 `yaml:"radius"`
	Speed           float64 `yaml:"speed"`
	MaxHealth       int     `yaml:"max_health"`
	RespawnDelayMs  int     `yaml:"respawn_delay_ms"`
	ShootCooldownMs int     `yaml:"shoot_cooldown_ms"`
}

type ProjectileTuning struct {
	Speed          float64 `yaml:"speed"`
	Radius         float64 `yaml:"radius"`
	LifetimeMs     int     `yaml:"lifetime_ms"`
	BoundsMargin   float64 `yaml:"bounds_margin"`
	SpawnClearance float64 `yaml:"spawn_clearance"`
	Damage         int     `yaml:"damage"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickRateHz:      60,
		BroadcastHz:     20,
		MaxStepMs:       100,
		World: WorldTuning{
			Width:       1200,
			Height:      800,
			SpawnMargin: 100,
		},
		Player: PlayerTuning{
			Radius:          20,
			Speed:           200,
			MaxHealth:       100,
			RespawnDelayMs:  2000,
			ShootCooldownMs: 200,
		},
		Projectile: ProjectileTuning{
			Speed:          500,
			Radius:         5,
			LifetimeMs:     2000,
			BoundsMargin:   50,
			SpawnClearance: 2,
			Damage:         25,
		},
	}
}

// Load reads a yaml file on top of Defaults, so keys missing from the file keep their
// default value.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if !(v > 0) {
			errs = append(errs, fmt.Errorf("%s must be > 0 (got %v)", name, v))
		}
	}
	positive("tick_rate_hz", float64(t.TickRateHz))
	positive("broadcast_hz", float64(t.BroadcastHz))
	positive("max_step_ms", float64(t.MaxStepMs))
	positive("world.width", t.World.Width)
	positive("world.height", t.World.Height)
	positive("player.radius", t.Player.Radius)
	positive("player.speed", t.Player.Speed)
	positive("player.max_health", float64(t.Player.MaxHealth))
	positive("projectile.speed", t.Projectile.Speed)
	positive("projectile.radius", t.Projectile.Radius)
	positive("projectile.lifetime_ms", float64(t.Projectile.LifetimeMs))
	positive("projectile.damage", float64(t.Projectile.Damage))
	if t.Player.RespawnDelayMs < 0 {
		errs = append(errs, fmt.Errorf("player.respawn_delay_ms must be >= 0"))
	}
	if t.Player.ShootCooldownMs < 0 {
		errs = append(errs, fmt.Errorf("player.shoot_cooldown_ms must be >= 0"))
	}
	if t.Projectile.BoundsMargin < 0 || t.Projectile.SpawnClearance < 0 || t.World.SpawnMargin < 0 {
		errs = append(errs, fmt.Errorf("margins and clearance must be >= 0"))
	}
	if t.MaxPlayers < 0 {
		errs = append(errs, fmt.Errorf("max_players must be >= 0"))
	}
	if 2*t.Player.Radius >= t.World.Width || 2*t.Player.Radius >= t.World.Height {
		errs = append(errs, fmt.Errorf("player.radius does not fit the world"))
	}
	return errors.Join(errs...)
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (t Tuning) MaxStep() time.Duration       { return ms(t.MaxStepMs) }
func (t Tuning) RespawnDelay() time.Duration  { return ms(t.Player.RespawnDelayMs) }
func (t Tuning) ShootCooldown() time.Duration { return ms(t.Player.ShootCooldownMs) }
func (t Tuning) ProjectileLifetime() time.Duration {
	return ms(t.Projectile.LifetimeMs)
}
