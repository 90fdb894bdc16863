package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"iskrib/internal/models"
	"iskrib/internal/pagination"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- humanizeParam (pure function, no HTTP) ---

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"userId", "user ID"},
		{"journalId", "journal ID"},
		{"weekId", "week ID"},
		{"parentOpinionId", "parent opinion ID"},
		{"something", "something"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// --- parseID ---

func TestParseID(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	app.Get("/weeks/:weekId", func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "weekId")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	tests := []struct {
		path   string
		status int
	}{
		{"/weeks/12", http.StatusOK},
		{"/weeks/0", http.StatusBadRequest},
		{"/weeks/-3", http.StatusBadRequest},
		{"/weeks/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			body := decode(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == http.StatusBadRequest {
				assert.Equal(t, "Invalid week ID", body["error"])
				assert.Equal(t, models.CodeValidation, body["code"])
			} else {
				assert.Equal(t, float64(12), body["id"])
			}
		})
	}
}

// --- bindBody ---

type bindTarget struct {
	Title   string `json:"title" validate:"required,max=5"`
	Privacy string `json:"privacy" validate:"omitempty,oneof=public private"`
}

func TestBindBody(t *testing.T) {
	app := fiber.New()
	app.Post("/bind", func(c *fiber.Ctx) error {
		var req bindTarget
		if err := bindBody(c, &req); err != nil {
			return respondError(c, err)
		}
		return c.JSON(req)
	})

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"valid", `{"title":"ok","privacy":"public"}`, http.StatusOK, ""},
		{"malformed", `{"title":`, http.StatusBadRequest, "Invalid request body"},
		{"missing", `{}`, http.StatusBadRequest, "title is required"},
		{"too long", `{"title":"far too long"}`, http.StatusBadRequest, "title should be at most 5 characters"},
		{"oneof", `{"title":"ok","privacy":"friends"}`, http.StatusBadRequest, "privacy should be one of: public private"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			body := decode(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.message != "" {
				assert.Equal(t, tt.message, body["error"])
			}
		})
	}
}

// --- queryLimit / queryCursor ---

func TestQueryLimitAndCursor(t *testing.T) {
	app := fiber.New()
	app.Get("/page", func(c *fiber.Ctx) error {
		limit, err := queryLimit(c, pagination.FeedRange)
		if err != nil {
			return respondError(c, err)
		}
		before, err := queryCursor(c)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"limit": limit, "hasCursor": before != nil})
	})

	tests := []struct {
		query     string
		status    int
		limit     float64
		hasCursor bool
	}{
		{"", http.StatusOK, 5, false},
		{"?limit=20", http.StatusOK, 20, false},
		{"?limit=0", http.StatusBadRequest, 0, false},
		{"?limit=ten", http.StatusBadRequest, 0, false},
		{"?cursor=2026-01-01T00:00:01Z", http.StatusOK, 5, true},
		{"?cursor=soon", http.StatusBadRequest, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/page"+tt.query, nil))
			require.NoError(t, err)
			body := decode(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.limit, body["limit"])
				assert.Equal(t, tt.hasCursor, body["hasCursor"])
			}
		})
	}
}
