// Package middleware provides authentication, logging, rate limiting and
// tracing middleware for the API.
package middleware

import (
	"errors"
	"strconv"
	"strings"

	"iskrib/internal/config"
	"iskrib/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

var errNoToken = errors.New("no bearer token")

// viewerFromRequest resolves the user id carried by the bearer token. It
// returns errNoToken when the request has no Authorization header.
func viewerFromRequest(c *fiber.Ctx) (uint, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return 0, errNoToken
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, models.NewUnauthorizedError("Invalid authorization header format")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	if cfg.JWTAud != "" {
		opts = append(opts, jwt.WithAudience(cfg.JWTAud))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return 0, models.NewUnauthorizedError("Invalid or expired token")
	}

	// The subject claim carries the user id (RFC 7519).
	if claims.Subject == "" {
		return 0, models.NewUnauthorizedError("Invalid token structure - missing subject")
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return 0, models.NewUnauthorizedError("Invalid user ID in token")
	}
	return uint(userID), nil
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	userID, err := viewerFromRequest(c)
	if errors.Is(err, errNoToken) {
		return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError("Authorization header required"))
	}
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, err)
	}

	c.Locals("userID", userID)
	return c.Next()
}

// OptionalAuth resolves the viewer when a token is sent and lets anonymous
// requests through. A token that is sent but invalid is still rejected.
func OptionalAuth(c *fiber.Ctx) error {
	userID, err := viewerFromRequest(c)
	if errors.Is(err, errNoToken) {
		return c.Next()
	}
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, err)
	}

	c.Locals("userID", userID)
	return c.Next()
}
