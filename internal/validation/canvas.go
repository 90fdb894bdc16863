package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"iskrib/internal/models"
)

const (
	maxDoodleValues  = 2400
	maxStickyText    = 280
	maxWordKey       = 128
	maxColorLength   = 32
	defaultDoodleHue = "#5f92ff"
	defaultStickyHue = "#fff4a8"
)

// Margin item kinds.
const (
	MarginDoodle = "doodle"
	MarginSticky = "sticky"
)

// StampTypes lists the reactions a reader can pin to a canvas snippet.
var StampTypes = map[string]struct{}{
	"heart":    {},
	"star":     {},
	"question": {},
	"fire":     {},
}

// MarginDoodlePayload is a freehand stroke drawn in a canvas margin.
type MarginDoodlePayload struct {
	Points []float64 `json:"points"`
	Size   float64   `json:"size"`
	Color  string    `json:"color"`
}

// StickyPayload is a short note pinned in a canvas margin.
type StickyPayload struct {
	Text  string  `json:"text"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
}

// MarginItem validates a margin payload of the given kind and returns the
// normalized JSON to persist.
func MarginItem(itemType string, p Payload) (json.RawMessage, error) {
	if p == nil {
		return nil, models.NewValidationError(itemType + " payload should be an object")
	}
	var out any
	var err error
	switch strings.ToLower(strings.TrimSpace(itemType)) {
	case MarginDoodle:
		out, err = marginDoodle(p)
	case MarginSticky:
		out, err = sticky(p)
	default:
		return nil, models.NewValidationError("invalid margin item type")
	}
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return raw, nil
}

func marginDoodle(p Payload) (*MarginDoodlePayload, error) {
	rawPoints, _ := p["points"].([]any)
	if len(rawPoints) < 4 || len(rawPoints)%2 != 0 {
		return nil, models.NewValidationError("doodle payload points should contain at least 2 points")
	}
	if len(rawPoints) > maxDoodleValues {
		return nil, models.NewValidationError(fmt.Sprintf("doodle payload points should not exceed %d", maxDoodleValues))
	}
	points := make([]float64, 0, len(rawPoints))
	for _, rp := range rawPoints {
		v, ok := number(rp)
		if !ok || v < 0 || v > 1 {
			return nil, models.NewValidationError("doodle points should be numbers between 0 and 1")
		}
		points = append(points, v)
	}
	return &MarginDoodlePayload{
		Points: points,
		Size:   clamp(p.numberOr("size", 2.8), 1, 14),
		Color:  Cut(color(p, "color", defaultDoodleHue), maxColorLength),
	}, nil
}

func sticky(p Payload) (*StickyPayload, error) {
	text, _ := p["text"].(string)
	clean, err := Text("sticky text", text, 1, maxStickyText)
	if err != nil {
		return nil, err
	}
	x, err := unitField(p, "x", "sticky x")
	if err != nil {
		return nil, err
	}
	y, err := unitField(p, "y", "sticky y")
	if err != nil {
		return nil, err
	}
	return &StickyPayload{
		Text:  clean,
		X:     x,
		Y:     y,
		Color: Cut(color(p, "color", defaultStickyHue), maxColorLength),
	}, nil
}

func unitField(p Payload, key, name string) (float64, error) {
	v, ok := p.number(key)
	if !ok {
		return 0, models.NewValidationError(name + " should be a number")
	}
	if v < 0 || v > 1 {
		return 0, models.NewValidationError(name + " should be between 0 and 1")
	}
	return v, nil
}

// StampInput is a reaction stamp request.
type StampInput struct {
	SnippetID string
	WordKey   string
	StampType string
	X         any
	Y         any
}

// NormalizedStamp is a validated StampInput.
type NormalizedStamp struct {
	SnippetID string
	WordKey   *string
	StampType string
	X         float64
	Y         float64
}

// Stamp validates a stamp request.
func Stamp(in StampInput) (*NormalizedStamp, error) {
	snippet := strings.TrimSpace(in.SnippetID)
	if snippet == "" {
		return nil, models.NewValidationError("snippet_id is required")
	}
	kind := strings.ToLower(strings.TrimSpace(in.StampType))
	if _, ok := StampTypes[kind]; !ok {
		return nil, models.NewValidationError("invalid stamp_type")
	}
	p := Payload{"x": in.X, "y": in.Y}
	x, err := unitField(p, "x", "x")
	if err != nil {
		return nil, err
	}
	y, err := unitField(p, "y", "y")
	if err != nil {
		return nil, err
	}
	out := &NormalizedStamp{SnippetID: snippet, StampType: kind, X: x, Y: y}
	if wk := strings.TrimSpace(in.WordKey); wk != "" {
		wk = Cut(wk, maxWordKey)
		out.WordKey = &wk
	}
	return out, nil
}
