package arena

import (
	"slices"
	"time"
)

// StagedInput is the latest validated input of a player. The simulation step reads it; the
// input gateway overwrites it field by field.
type StagedInput struct {
	Up, Down, Left, Right bool

	Aim    float64
	HasAim bool
}

type Player struct {
	ID string

	X, Y   float64
	VX, VY float64
	Angle  float64

	Health int
	Alive  bool

	LastShot  time.Time // zero: never shot
	RespawnAt time.Time // zero: no respawn pending

	Input StagedInput
}

type Projectile struct {
	ID      uint64
	OwnerID string

	X, Y   float64
	VX, VY float64

	SpawnedAt time.Time
}

// Store holds every player and projectile of a world. It keeps the ids sorted next to the
// maps so iteration order is ascending id, independent of map order.
// Store is not safe for concurrent use; the world loop owns it.
type Store struct {
	players     map[string]*Player
	playerOrder []string

	projectiles     map[uint64]*Projectile
	projectileOrder []uint64
	lastProjectile  uint64
}

func NewStore() *Store {
	return &Store{
		players:     map[string]*Player{},
		projectiles: map[uint64]*Projectile{},
	}
}

func (s *Store) AddPlayer(p *Player) {
	if p == nil {
		return
	}
	if _, ok := s.players[p.ID]; !ok {
		i, _ := slices.BinarySearch(s.playerOrder, p.ID)
		s.playerOrder = slices.Insert(s.playerOrder, i, p.ID)
	}
	s.players[p.ID] = p
}

// RemovePlayer deletes a player and reports whether it existed.
func (s *Store) RemovePlayer(id string) bool {
	if _, ok := s.players[id]; !ok {
		return false
	}
	delete(s.players, id)
	if i, found := slices.BinarySearch(s.playerOrder, id); found {
		s.playerOrder = slices.Delete(s.playerOrder, i, i+1)
	}
	return true
}

func (s *Store) Player(id string) *Player { return s.players[id] }
func (s *Store) NumPlayers() int          { return len(s.players) }

// Players returns the players in ascending id order. The slice is freshly allocated, so
// callers may add or remove players while ranging over it.
func (s *Store) Players() []*Player {
	out := make([]*Player, 0, len(s.playerOrder))
	for _, id := range s.playerOrder {
		out = append(out, s.players[id])
	}
	return out
}

// NextProjectileID hands out ids 1, 2, 3, ... for the lifetime of the store.
func (s *Store) NextProjectileID() uint64 {
	s.lastProjectile++
	return s.lastProjectile
}

func (s *Store) AddProjectile(b *Projectile) {
	if b == nil {
		return
	}
	if _, ok := s.projectiles[b.ID]; !ok {
		i, _ := slices.BinarySearch(s.projectileOrder, b.ID)
		s.projectileOrder = slices.Insert(s.projectileOrder, i, b.ID)
	}
	s.projectiles[b.ID] = b
}

func (s *Store) RemoveProjectile(id uint64) bool {
	if _, ok := s.projectiles[id]; !ok {
		return false
	}
	delete(s.projectiles, id)
	if i, found := slices.BinarySearch(s.projectileOrder, id); found {
		s.projectileOrder = slices.Delete(s.projectileOrder, i, i+1)
	}
	return true
}

func (s *Store) Projectile(id uint64) *Projectile { return s.projectiles[id] }
func (s *Store) NumProjectiles() int              { return len(s.projectiles) }

func (s *Store) Projectiles() []*Projectile {
	out := make([]*Projectile, 0, len(s.projectileOrder))
	for _, id := range s.projectileOrder {
		out = append(out, s.projectiles[id])
	}
	return out
}
