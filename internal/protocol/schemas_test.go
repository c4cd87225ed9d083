package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"skirmish.gg/internal/protocol"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func validateJSON(t *testing.T, s *jsonschema.Schema, b []byte) {
	t.Helper()
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(v); err != nil {
		t.Fatalf("validate: %v\n%s", err, b)
	}
}

func TestSchemas_ValidateSamples(t *testing.T) {
	helloSchema := compileSchema(t, "hello.schema.json")
	inputSchema := compileSchema(t, "input.schema.json")

	validateJSON(t, helloSchema, []byte(`{"type":"HELLO","protocol_version":"1.0","name":"bot1","encoding":"msgpack","max_queue":8}`))
	validateJSON(t, inputSchema, []byte(`{"type":"INPUT","up":true,"right":true,"aimAngle":-1.57,"shoot":false}`))
	validateJSON(t, inputSchema, []byte(`{"type":"INPUT"}`))
}

func TestSchemas_ServerMessagesConform(t *testing.T) {
	welcomeSchema := compileSchema(t, "welcome.schema.json")
	snapshotSchema := compileSchema(t, "snapshot.schema.json")

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		ID:              "3f1c0a4e-8d4b-4a57-9a43-3c5e0c1a2b7d",
		Encoding:        protocol.EncodingJSON,
		World: protocol.WorldParams{
			Width: 1200, Height: 800, TickRateHz: 60, BroadcastHz: 20, PlayerRadius: 20, BulletRadius: 5,
		},
	}
	b, err := json.Marshal(welcome)
	if err != nil {
		t.Fatalf("marshal welcome: %v", err)
	}
	validateJSON(t, welcomeSchema, b)

	snap := protocol.SnapshotMsg{
		Type: protocol.TypeSnapshot,
		Time: 1700000000000,
		Tick: 42,
		Players: []protocol.PlayerState{
			{ID: "a", X: 100, Y: 200, Angle: 0.5, Health: 75, Alive: true},
			{ID: "b", X: 300, Y: 400, Angle: -3, Health: 0, Alive: false},
		},
		Bullets: []protocol.BulletState{{ID: 7, X: 10.5, Y: -20}},
	}
	b, err = protocol.EncodeSnapshot(snap, protocol.EncodingJSON)
	if err != nil {
		t.Fatalf("encode snapshot: %v", err)
	}
	validateJSON(t, snapshotSchema, b)

	empty := protocol.SnapshotMsg{Type: protocol.TypeSnapshot, Players: []protocol.PlayerState{}, Bullets: []protocol.BulletState{}}
	b, err = protocol.EncodeSnapshot(empty, protocol.EncodingJSON)
	if err != nil {
		t.Fatalf("encode empty snapshot: %v", err)
	}
	validateJSON(t, snapshotSchema, b)
}
