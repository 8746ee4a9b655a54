package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"attachapi/internal/model"
)

const (
	// AuthorizationHeader carries the bearer token.
	AuthorizationHeader = "Authorization"
	// PrincipalLocalKey is the key used to store the authenticated principal
	// in Fiber's context locals.
	PrincipalLocalKey = "principal"
)

// Claims is the token payload this service expects. Role and department are
// stamped by the identity provider at login; the subject is the user id.
type Claims struct {
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	jwt.RegisteredClaims
}

// Auth validates the bearer token and stores the resulting principal in
// context locals. Requests without a valid token never reach the handlers.
func Auth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(AuthorizationHeader)
		if header == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		role := model.Role(claims.Role)
		if claims.Subject == "" || !role.Valid() {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token claims")
		}

		c.Locals(PrincipalLocalKey, model.Principal{
			ID:         claims.Subject,
			Role:       role,
			Department: claims.Department,
		})
		return c.Next()
	}
}

// PrincipalFromCtx returns the principal stored by Auth, if any.
func PrincipalFromCtx(c *fiber.Ctx) (model.Principal, bool) {
	p, ok := c.Locals(PrincipalLocalKey).(model.Principal)
	return p, ok
}
