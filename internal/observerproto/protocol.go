package observerproto

import "skirmish.gg/internal/protocol"

// Version is the observer protocol version (separate from the player WS protocol).
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeBootstrap = "BOOTSTRAP"
)

// Client -> Server. First message on the observer WS connection, and can be re-sent to change
// the frame rate. Observers never own a player entity.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// Hz is the requested snapshot rate; 0 means the server broadcast rate.
	Hz int `json:"hz,omitempty"`
}

// Server -> Client. Sent once after a valid SUBSCRIBE; SNAPSHOT frames follow.
type BootstrapMsg struct {
	Type            string               `json:"type"`
	ProtocolVersion string               `json:"protocol_version"`
	ServerID        string               `json:"server_id"`
	Hz              int                  `json:"hz"`
	World           protocol.WorldParams `json:"world"`
}
