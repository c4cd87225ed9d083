package arena

import (
	"strings"

	"skirmish.gg/internal/protocol"
)

func (w *World) handleConnect(req ConnectRequest) {
	resp := w.joinPlayer(req)
	if req.Resp != nil {
		req.Resp <- resp
	}
}

func (w *World) joinPlayer(req ConnectRequest) ConnectResponse {
	if w.cfg.MaxPlayers > 0 && w.store.NumPlayers() >= w.cfg.MaxPlayers {
		return ConnectResponse{Refused: protocol.ErrServerFull}
	}

	id := w.newID()
	for id == "" || w.store.Player(id) != nil {
		id = w.newID()
	}
	x, y := w.randomSpawn()
	w.store.AddPlayer(&Player{
		ID:     id,
		X:      x,
		Y:      y,
		Health: w.cfg.PlayerMaxHealth,
		Alive:  true,
	})

	encoding := protocol.NormalizeEncoding(req.Encoding)
	name := strings.TrimSpace(req.Name)
	w.clients[id] = &clientState{
		Name:     name,
		Encoding: encoding,
		Out:      req.Out,
	}
	w.record(Event{Kind: EventJoin, Player: id, Name: name, X: x, Y: y})
	w.logger.Printf("join id=%s name=%q players=%d", id, name, w.store.NumPlayers())
	return ConnectResponse{Welcome: w.welcome(id, encoding)}
}

// handleDisconnect removes the session unconditionally. Unknown ids are ignored.
func (w *World) handleDisconnect(id string) {
	delete(w.clients, id)
	if !w.store.RemovePlayer(id) {
		return
	}
	w.record(Event{Kind: EventLeave, Player: id})
	w.logger.Printf("leave id=%s players=%d", id, w.store.NumPlayers())
}

// randomSpawn picks a uniformly random point inset from every edge.
func (w *World) randomSpawn() (x, y float64) {
	m := w.cfg.spawnInset()
	x = m + w.rng.Float64()*(w.cfg.Width-2*m)
	y = m + w.rng.Float64()*(w.cfg.Height-2*m)
	return x, y
}
