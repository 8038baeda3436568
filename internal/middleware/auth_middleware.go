package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator validates a bearer token and returns its claims
type TokenValidator interface {
	ValidateJWT(tokenString string) (jwt.MapClaims, error)
}

// bearerToken reads the Authorization header, then the token query
// parameter on SSE paths where browsers cannot set headers.
func bearerToken(c *fiber.Ctx) string {
	if scheme, value, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " "); ok && scheme == "Bearer" {
		if token := strings.TrimSpace(value); token != "" {
			return token
		}
	}
	if strings.HasSuffix(c.Path(), "/events") {
		return strings.TrimSpace(c.Query("token"))
	}
	return ""
}

func unauthorized(c *fiber.Ctx, reason string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized: " + reason})
}

// AuthMiddleware authenticates ops requests and stores the worker and role in Locals
func AuthMiddleware(validator TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return unauthorized(c, "no token provided")
		}

		claims, err := validator.ValidateJWT(token)
		if err != nil {
			return unauthorized(c, "invalid token")
		}

		worker, _ := claims["sub"].(string)
		if worker == "" {
			return unauthorized(c, "token has no subject")
		}
		role, _ := claims["role"].(string)

		c.Locals("worker", worker)
		c.Locals("role", strings.ToUpper(strings.TrimSpace(role)))
		return c.Next()
	}
}

// RequireRoles enforces role-based access control after AuthMiddleware.
func RequireRoles(allowedRoles ...string) fiber.Handler {
	allowed := make(map[string]bool, len(allowedRoles))
	for _, role := range allowedRoles {
		if r := strings.ToUpper(strings.TrimSpace(role)); r != "" {
			allowed[r] = true
		}
	}

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		switch {
		case role == "":
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden: role not found in token"})
		case !allowed[role]:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden: insufficient permissions"})
		}
		return c.Next()
	}
}
