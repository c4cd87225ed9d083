package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// NormalizeEncoding maps a HELLO encoding request to a supported snapshot encoding.
// Unknown or empty values fall back to JSON.
func NormalizeEncoding(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case EncodingMsgpack:
		return EncodingMsgpack
	default:
		return EncodingJSON
	}
}

// EncodeSnapshot serialises a snapshot for the wire. JSON frames go out as websocket text
// messages, msgpack frames as binary messages.
func EncodeSnapshot(s SnapshotMsg, encoding string) ([]byte, error) {
	switch encoding {
	case EncodingJSON, "":
		return json.Marshal(s)
	case EncodingMsgpack:
		return msgpack.Marshal(&s)
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

func DecodeSnapshot(b []byte, encoding string) (SnapshotMsg, error) {
	var s SnapshotMsg
	var err error
	switch encoding {
	case EncodingJSON, "":
		err = json.Unmarshal(b, &s)
	case EncodingMsgpack:
		err = msgpack.Unmarshal(b, &s)
	default:
		err = fmt.Errorf("unsupported encoding %q", encoding)
	}
	return s, err
}
