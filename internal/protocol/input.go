package protocol

import (
	"encoding/json"
	"math"
)

// DecodeInput reads an INPUT frame field by field. A field that is absent, null or of the
// wrong JSON type stays nil in the result; only a frame that is not a JSON object at all
// is an error.
func DecodeInput(b []byte) (InputMsg, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return InputMsg{}, err
	}
	in := InputMsg{Type: TypeInput}
	in.Up = rawBool(raw["up"])
	in.Down = rawBool(raw["down"])
	in.Left = rawBool(raw["left"])
	in.Right = rawBool(raw["right"])
	in.Shoot = rawBool(raw["shoot"])
	in.AimAngle = rawNumber(raw["aimAngle"])
	return in, nil
}

func rawBool(r json.RawMessage) *bool {
	if len(r) == 0 {
		return nil
	}
	var v *bool
	if err := json.Unmarshal(r, &v); err != nil {
		return nil
	}
	return v
}

func rawNumber(r json.RawMessage) *float64 {
	if len(r) == 0 {
		return nil
	}
	var v *float64
	if err := json.Unmarshal(r, &v); err != nil {
		return nil
	}
	if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
		return nil
	}
	return v
}
