package middleware

import (
	"fmt"

	"github.com/ArturMykhailiuk/sello-api/internal/models"
	"github.com/ArturMykhailiuk/sello-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const userContextKey = "user"

// AuthConfig holds configuration for the auth middleware
type AuthConfig struct {
	// TokenSecret is the HMAC secret bearer tokens are signed with
	TokenSecret string
	// Users resolves the token subject to an account
	Users services.UserService
}

// RequireAuth returns a Fiber middleware that validates the Bearer token and
// stores the authenticated user in the request context.
func RequireAuth(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Missing or invalid Bearer token",
			})
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(cfg.TokenSecret), nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}
		userID, ok := claims["id"].(float64)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		user, err := cfg.Users.GetUserByID(uint(userID))
		if err != nil {
			return err
		}
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Account no longer exists",
			})
		}

		c.Locals(userContextKey, user)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	const prefix = "Bearer "
	header := c.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

// AuthenticatedUser retrieves the authenticated user from the Fiber context.
// Returns nil on routes that did not pass through RequireAuth.
func AuthenticatedUser(c *fiber.Ctx) *models.User {
	user, ok := c.Locals(userContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
