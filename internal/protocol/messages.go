package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name,omitempty"`
	Encoding        string `json:"encoding,omitempty"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	ID              string      `json:"id"`
	Encoding        string      `json:"encoding"`
	World           WorldParams `json:"world"`
}

type WorldParams struct {
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	TickRateHz   int     `json:"tick_rate_hz"`
	BroadcastHz  int     `json:"broadcast_hz"`
	PlayerRadius float64 `json:"player_radius"`
	BulletRadius float64 `json:"bullet_radius"`
}

// INPUT (client -> server). Every field is optional; see DecodeInput for how absent or
// mistyped fields are treated.
type InputMsg struct {
	Type     string   `json:"type"`
	Up       *bool    `json:"up,omitempty"`
	Down     *bool    `json:"down,omitempty"`
	Left     *bool    `json:"left,omitempty"`
	Right    *bool    `json:"right,omitempty"`
	AimAngle *float64 `json:"aimAngle,omitempty"`
	Shoot    *bool    `json:"shoot,omitempty"`
}

// SNAPSHOT (server -> all clients)
type SnapshotMsg struct {
	Type    string        `json:"type" msgpack:"type"`
	Time    int64         `json:"time" msgpack:"time"` // unix ms
	Tick    uint64        `json:"tick" msgpack:"tick"`
	Players []PlayerState `json:"players" msgpack:"players"`
	Bullets []BulletState `json:"bullets" msgpack:"bullets"`
}

type PlayerState struct {
	ID     string  `json:"id" msgpack:"id"`
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Angle  float64 `json:"angle" msgpack:"angle"`
	Health int     `json:"health" msgpack:"health"`
	Alive  bool    `json:"alive" msgpack:"alive"`
}

type BulletState struct {
	ID uint64  `json:"id" msgpack:"id"`
	X  float64 `json:"x" msgpack:"x"`
	Y  float64 `json:"y" msgpack:"y"`
}
