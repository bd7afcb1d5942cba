package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Locals set by Auth for downstream handlers.
const (
	UserIDLocalKey    = "user_id"
	UsernameLocalKey  = "username"
	ContextIDLocalKey = "context_id"
)

// Claims are the token claims the API understands. The subject is the user
// ID; Team scopes role lookups.
type Claims struct {
	Username string `json:"username,omitempty"`
	Team     string `json:"team,omitempty"`
	jwt.RegisteredClaims
}

// AuthConfig verifies HS256 bearer tokens.
type AuthConfig struct {
	Secret []byte
	// Issuer, when set, must match the iss claim.
	Issuer string
}

// AuthAuditor records authentication outcomes.
type AuthAuditor interface {
	AuthSuccess(ctx context.Context, userID, username, method string)
	AuthFailure(ctx context.Context, userID, reason string)
}

var errMissingSubject = errors.New("token has no subject")

// Auth rejects requests without a valid bearer token and exposes the
// caller's identity through locals.
func Auth(cfg AuthConfig, audit AuthAuditor) fiber.Handler {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)
	keyFunc := func(*jwt.Token) (any, error) { return cfg.Secret, nil }

	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		header := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			audit.AuthFailure(ctx, "", "missing bearer token")
			return WriteError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		}

		claims := &Claims{}
		token, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, keyFunc)
		if err == nil && claims.Subject == "" {
			err = errMissingSubject
		}
		if err != nil || !token.Valid {
			reason := "invalid token"
			if err != nil {
				reason = err.Error()
			}
			// The subject of a token that failed verification is attacker
			// controlled and never reaches the audit trail as a user ID.
			audit.AuthFailure(ctx, "", reason)
			return WriteError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
		}

		username := claims.Username
		if username == "" {
			username = claims.Subject
		}
		c.Locals(UserIDLocalKey, claims.Subject)
		c.Locals(UsernameLocalKey, username)
		c.Locals(ContextIDLocalKey, claims.Team)
		audit.AuthSuccess(ctx, claims.Subject, username, "jwt")
		return c.Next()
	}
}
