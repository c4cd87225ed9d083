package main

import (
	"math"
	"math/rand"

	"skirmish.gg/internal/protocol"
)

// brain wanders, re-picking a heading now and then, and shoots at the nearest living enemy.
type brain struct {
	self  string
	world protocol.WorldParams
	rng   *rand.Rand

	up, down, left, right bool
	untilTurn             int
}

func newBrain(self string, world protocol.WorldParams, rng *rand.Rand) *brain {
	return &brain{self: self, world: world, rng: rng}
}

func (b *brain) decide(snap protocol.SnapshotMsg) protocol.InputMsg {
	var me *protocol.PlayerState
	for i := range snap.Players {
		if snap.Players[i].ID == b.self {
			me = &snap.Players[i]
			break
		}
	}

	if b.untilTurn <= 0 {
		b.up, b.down = b.rng.Intn(3) == 0, b.rng.Intn(3) == 0
		b.left, b.right = b.rng.Intn(3) == 0, b.rng.Intn(3) == 0
		b.untilTurn = 5 + b.rng.Intn(20)
	}
	b.untilTurn--

	in := protocol.InputMsg{
		Type:  protocol.TypeInput,
		Up:    ptr(b.up),
		Down:  ptr(b.down),
		Left:  ptr(b.left),
		Right: ptr(b.right),
		Shoot: ptr(false),
	}
	if me == nil || !me.Alive {
		return in
	}

	// Steer away from walls.
	margin := 2 * b.world.PlayerRadius
	if me.X < margin {
		in.Left, in.Right = ptr(false), ptr(true)
	} else if me.X > b.world.Width-margin {
		in.Left, in.Right = ptr(true), ptr(false)
	}
	if me.Y < margin {
		in.Up, in.Down = ptr(false), ptr(true)
	} else if me.Y > b.world.Height-margin {
		in.Up, in.Down = ptr(true), ptr(false)
	}

	target, ok := nearestEnemy(snap.Players, me)
	if !ok {
		return in
	}
	aim := math.Atan2(target.Y-me.Y, target.X-me.X) + (b.rng.Float64()-0.5)*0.1
	in.AimAngle = &aim
	in.Shoot = ptr(true)
	return in
}

func nearestEnemy(players []protocol.PlayerState, me *protocol.PlayerState) (protocol.PlayerState, bool) {
	best := -1.0
	var out protocol.PlayerState
	for _, p := range players {
		if p.ID == me.ID || !p.Alive {
			continue
		}
		d := (p.X-me.X)*(p.X-me.X) + (p.Y-me.Y)*(p.Y-me.Y)
		if best < 0 || d < best {
			best = d
			out = p
		}
	}
	return out, best >= 0
}

func ptr[T any](v T) *T { return &v }
