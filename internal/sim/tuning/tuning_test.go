package tuning

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_RepoConfigMatchesDefaults(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Defaults()
	want.MaxPlayers = got.MaxPlayers
	if got != want {
		t.Fatalf("configs/tuning.yaml drifted from Defaults:\n got=%+v\nwant=%+v", got, want)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("tick_rate_hz: 30\nplayer:\n  speed: 150\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TickRateHz != 30 || got.Player.Speed != 150 {
		t.Fatalf("overrides not applied: %+v", got)
	}
	if got.BroadcastHz != 20 || got.Player.MaxHealth != 100 || got.Projectile.Damage != 25 {
		t.Fatalf("defaults lost: %+v", got)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("broadcast_hz: 0\nworld:\n  width: -5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestDurations(t *testing.T) {
	d := Defaults()
	if d.ShootCooldown() != 200*time.Millisecond {
		t.Fatalf("cooldown=%v", d.ShootCooldown())
	}
	if d.RespawnDelay() != 2*time.Second || d.ProjectileLifetime() != 2*time.Second {
		t.Fatalf("respawn=%v lifetime=%v", d.RespawnDelay(), d.ProjectileLifetime())
	}
	if d.MaxStep() != 100*time.Millisecond {
		t.Fatalf("max step=%v", d.MaxStep())
	}
}
