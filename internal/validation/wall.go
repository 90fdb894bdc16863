package validation

import (
	"encoding/json"
	"strings"

	"iskrib/internal/models"
)

// Freedom wall item kinds.
const (
	WallDoodle  = "doodle"
	WallSticker = "sticker"
	WallStamp   = "stamp"
	WallNote    = "note"
)

const (
	maxNoteText = 800
	maxZIndex   = 100000
)

var noteFontFamilies = []string{"Georgia", "Courier New", "Trebuchet MS", "Arial", "Times New Roman"}

var noteFontStyles = []string{"normal", "bold", "italic"}

// WallDoodlePayload is a stroke on the shared wall.
type WallDoodlePayload struct {
	Points      []float64 `json:"points"`
	Color       string    `json:"color"`
	Size        float64   `json:"size"`
	StrokeWidth float64   `json:"strokeWidth"`
}

// StickerPayload places a sticker on the wall.
type StickerPayload struct {
	Sticker   string  `json:"sticker,omitempty"`
	StickerID string  `json:"stickerId,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Scale     float64 `json:"scale"`
	Rotation  float64 `json:"rotation"`
}

// WallStampPayload places a stamp on the wall.
type WallStampPayload struct {
	Stamp    string  `json:"stamp"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
}

// NotePayload is a text card on the wall.
type NotePayload struct {
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Rotation   float64 `json:"rotation"`
	FontFamily string  `json:"fontFamily"`
	FontStyle  string  `json:"fontStyle"`
	FontColor  string  `json:"fontColor"`
	BgColor    string  `json:"bgColor"`
	FontSize   float64 `json:"fontSize"`
}

type wallSanitizer func(Payload) (any, error)

var wallSanitizers = map[string]wallSanitizer{
	WallDoodle:  wallDoodle,
	WallSticker: wallSticker,
	WallStamp:   wallStamp,
	WallNote:    wallNote,
}

// IsWallType reports whether t names a freedom wall item kind.
func IsWallType(t string) bool {
	_, ok := wallSanitizers[t]
	return ok
}

// WallTypes parses a comma separated filter, dropping unknown and repeated
// kinds.
func WallTypes(raw string) []string {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		t := strings.ToLower(strings.TrimSpace(part))
		if t == "" || seen[t] || !IsWallType(t) {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// WallItem sanitizes a wall payload. Out of range values are clamped; only
// missing required fields are rejected.
func WallItem(itemType string, p Payload) (json.RawMessage, error) {
	sanitize, ok := wallSanitizers[strings.ToLower(strings.TrimSpace(itemType))]
	if !ok {
		return nil, models.NewValidationError("invalid freedom wall item type")
	}
	if p == nil {
		return nil, models.NewValidationError("payload should be an object")
	}
	out, err := sanitize(p)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return raw, nil
}

// ZIndex clamps a stacking order.
func ZIndex(z int) int {
	if z > maxZIndex {
		return maxZIndex
	}
	if z < -maxZIndex {
		return -maxZIndex
	}
	return z
}

func position(p Payload, key string, fallback float64) float64 {
	return clamp(p.numberOr(key, fallback), 0, 1)
}

func rotation(p Payload) float64 {
	return clamp(p.numberOr("rotation", 0), -360, 360)
}

func wallDoodle(p Payload) (any, error) {
	rawPoints, _ := p["points"].([]any)
	points := make([]float64, 0, len(rawPoints))
	for _, rp := range rawPoints {
		if v, ok := number(rp); ok {
			points = append(points, clamp(v, 0, 1))
		}
	}
	if len(points) < 4 {
		return nil, models.NewValidationError("doodle payload points must contain at least 2 coordinate pairs")
	}
	if len(points)%2 != 0 {
		points = points[:len(points)-1]
	}
	size := clamp(p.numberOr("size", 2.8), 1, 24)
	return &WallDoodlePayload{
		Points:      points,
		Color:       color(p, "color", defaultDoodleHue),
		Size:        size,
		StrokeWidth: size,
	}, nil
}

func wallSticker(p Payload) (any, error) {
	sticker := p.str("sticker")
	stickerID := p.str("stickerId")
	if stickerID == "" {
		stickerID = p.str("sticker_id")
	}
	if sticker == "" && stickerID == "" {
		return nil, models.NewValidationError("sticker payload requires sticker or stickerId")
	}
	out := &StickerPayload{
		X:        position(p, "x", 0.5),
		Y:        position(p, "y", 0.5),
		Scale:    clamp(p.numberOr("scale", 1), 0.25, 6),
		Rotation: rotation(p),
	}
	if sticker != "" {
		out.Sticker = sticker
	} else {
		out.StickerID = stickerID
	}
	return out, nil
}

func wallStamp(p Payload) (any, error) {
	stamp := p.str("stamp")
	if stamp == "" {
		return nil, models.NewValidationError("stamp payload requires stamp")
	}
	return &WallStampPayload{
		Stamp:    stamp,
		X:        position(p, "x", 0.5),
		Y:        position(p, "y", 0.5),
		Scale:    clamp(p.numberOr("scale", 1), 0.35, 5),
		Rotation: rotation(p),
	}, nil
}

func wallNote(p Payload) (any, error) {
	text := SanitizeText(p.str("text"))
	if text == "" {
		return nil, models.NewValidationError("note payload requires text")
	}
	return &NotePayload{
		Text:       Cut(text, maxNoteText),
		X:          position(p, "x", 0.45),
		Y:          position(p, "y", 0.45),
		Width:      clamp(p.numberOr("width", 0.26), 0.12, 0.9),
		Height:     clamp(p.numberOr("height", 0.2), 0.1, 0.8),
		Rotation:   rotation(p),
		FontFamily: oneOf(p.str("fontFamily"), noteFontFamilies, "Arial"),
		FontStyle:  oneOf(strings.ToLower(p.str("fontStyle")), noteFontStyles, "normal"),
		FontColor:  color(p, "fontColor", "#1f2937"),
		BgColor:    color(p, "bgColor", defaultStickyHue),
		FontSize:   clamp(p.numberOr("fontSize", 16), 10, 64),
	}, nil
}

func oneOf(v string, allowed []string, fallback string) string {
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return fallback
}
