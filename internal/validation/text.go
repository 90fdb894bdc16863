// Package validation normalizes user supplied text and canvas payloads
// before they reach the store.
package validation

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"iskrib/internal/models"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// SanitizeText strips markup from s and trims it.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Text sanitizes s and enforces a length window in runes.
func Text(field, s string, min, max int) (string, error) {
	clean := SanitizeText(s)
	n := utf8.RuneCountInString(clean)
	if n < min {
		if min <= 1 {
			return "", models.NewValidationError(field + " is required")
		}
		return "", models.NewValidationError(fmt.Sprintf("%s should be at least %d characters", field, min))
	}
	if max > 0 && n > max {
		return "", models.NewValidationError(fmt.Sprintf("%s should not exceed %d characters", field, max))
	}
	return clean, nil
}

// Cut truncates s to at most n runes.
func Cut(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Payload is a decoded JSON object as it arrives in request bodies.
type Payload map[string]any

func (p Payload) str(key string) string {
	s, _ := p[key].(string)
	return strings.TrimSpace(s)
}

func (p Payload) number(key string) (float64, bool) {
	return number(p[key])
}

func (p Payload) numberOr(key string, fallback float64) float64 {
	if v, ok := p.number(key); ok {
		return v
	}
	return fallback
}

func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func color(p Payload, key, fallback string) string {
	if c := p.str(key); c != "" {
		return c
	}
	return fallback
}
