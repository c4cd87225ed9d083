package protocol

import "testing"

func TestNormalizeEncoding(t *testing.T) {
	cases := map[string]string{
		"":          EncodingJSON,
		"json":      EncodingJSON,
		" MsgPack ": EncodingMsgpack,
		"cbor":      EncodingJSON,
	}
	for in, want := range cases {
		if got := NormalizeEncoding(in); got != want {
			t.Fatalf("NormalizeEncoding(%q)=%q want %q", in, got, want)
		}
	}
}

func TestSnapshotCodecs(t *testing.T) {
	snap := SnapshotMsg{
		Type:    TypeSnapshot,
		Time:    123,
		Tick:    9,
		Players: []PlayerState{{ID: "p", X: 1.5, Y: 2.5, Angle: 3, Health: 50, Alive: true}},
		Bullets: []BulletState{{ID: 4, X: 5, Y: 6}},
	}
	for _, enc := range []string{EncodingJSON, EncodingMsgpack} {
		b, err := EncodeSnapshot(snap, enc)
		if err != nil {
			t.Fatalf("%s encode: %v", enc, err)
		}
		got, err := DecodeSnapshot(b, enc)
		if err != nil {
			t.Fatalf("%s decode: %v", enc, err)
		}
		if got.Tick != 9 || len(got.Players) != 1 || got.Players[0] != snap.Players[0] || len(got.Bullets) != 1 || got.Bullets[0] != snap.Bullets[0] {
			t.Fatalf("%s mismatch: %+v", enc, got)
		}
	}
	if _, err := EncodeSnapshot(snap, "xml"); err == nil {
		t.Fatalf("expected error for unknown encoding")
	}
}
