package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"iskrib/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func testConfig() *config.Config {
	return &config.Config{JWTSecret: testSecret, JWTIssuer: "iskrib-auth", JWTAud: "iskrib-api", Env: "test"}
}

type tokenOpts struct {
	sub      string
	exp      time.Duration
	issuer   string
	audience string
	method   jwt.SigningMethod
	secret   string
}

func signToken(t *testing.T, o tokenOpts) string {
	t.Helper()
	if o.issuer == "" {
		o.issuer = "iskrib-auth"
	}
	if o.audience == "" {
		o.audience = "iskrib-api"
	}
	if o.method == nil {
		o.method = jwt.SigningMethodHS256
	}
	if o.secret == "" {
		o.secret = testSecret
	}
	if o.exp == 0 {
		o.exp = time.Hour
	}
	claims := jwt.RegisteredClaims{
		Subject:   o.sub,
		Issuer:    o.issuer,
		Audience:  jwt.ClaimStrings{o.audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(o.exp)),
	}
	s, err := jwt.NewWithClaims(o.method, claims).SignedString([]byte(o.secret))
	require.NoError(t, err)
	return s
}

func TestAuthRequired(t *testing.T) {
	InitMiddleware(testConfig())

	app := fiber.New()
	app.Get("/test", AuthRequired, func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"userID": c.Locals("userID")})
	})

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUserID uint
	}{
		{
			name:           "Happy Path",
			authHeader:     "Bearer " + signToken(t, tokenOpts{sub: "123"}),
			expectedStatus: http.StatusOK,
			expectedUserID: 123,
		},
		{name: "Missing Header", expectedStatus: http.StatusUnauthorized},
		{name: "Invalid Format", authHeader: "Basic dXNlcjpwYXNz", expectedStatus: http.StatusUnauthorized},
		{name: "Malformed Token", authHeader: "Bearer malformed.token.here", expectedStatus: http.StatusUnauthorized},
		{
			name:           "Expired Token",
			authHeader:     "Bearer " + signToken(t, tokenOpts{sub: "123", exp: -time.Hour}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong Issuer",
			authHeader:     "Bearer " + signToken(t, tokenOpts{sub: "123", issuer: "someone-else"}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong Audience",
			authHeader:     "Bearer " + signToken(t, tokenOpts{sub: "123", audience: "admin-api"}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong Algorithm",
			authHeader:     "Bearer " + signToken(t, tokenOpts{sub: "123", method: jwt.SigningMethodHS512}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong Secret",
			authHeader:     "Bearer " + signToken(t, tokenOpts{sub: "123", secret: "another-secret"}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Missing Subject",
			authHeader:     "Bearer " + signToken(t, tokenOpts{}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Non Numeric Subject",
			authHeader:     "Bearer " + signToken(t, tokenOpts{sub: "ana"}),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, float64(tt.expectedUserID), body["userID"])
			} else {
				assert.Equal(t, "UNAUTHORIZED", body["code"])
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	InitMiddleware(testConfig())

	app := fiber.New()
	app.Get("/feed", OptionalAuth, func(c *fiber.Ctx) error {
		uid, _ := c.Locals("userID").(uint)
		return c.SendString(strconv.FormatUint(uint64(uid), 10))
	})

	tests := []struct {
		name       string
		authHeader string
		status     int
		body       string
	}{
		{name: "Anonymous", status: http.StatusOK, body: "0"},
		{name: "Viewer", authHeader: "Bearer " + signToken(t, tokenOpts{sub: "9"}), status: http.StatusOK, body: "9"},
		{name: "Broken Token", authHeader: "Bearer nope", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/feed", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" {
				buf := make([]byte, 8)
				n, _ := resp.Body.Read(buf)
				assert.Equal(t, tt.body, string(buf[:n]))
			}
		})
	}
}
