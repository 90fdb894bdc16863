package mediafeed

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"iskrib/internal/models"
)

// State is everything needed to resume a fan-out listing. It lives only in
// the client-held cursor.
type State struct {
	Offsets   map[string]int  `json:"offsets"`
	Exhausted map[string]bool `json:"exhausted"`
	Pending   []Item          `json:"pending"`
}

func newState() State {
	return State{Offsets: map[string]int{}, Exhausted: map[string]bool{}}
}

// Encode serialises the state into an opaque URL-safe token.
func Encode(s State) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode parses a token produced by Encode.
func Decode(token string) (State, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return State{}, invalidCursor()
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return State{}, invalidCursor()
	}
	for bucket, off := range s.Offsets {
		if off < 0 || bucket == "" {
			return State{}, invalidCursor()
		}
	}
	return s, nil
}

func invalidCursor() error {
	return models.NewValidationError("cursor is malformed")
}
