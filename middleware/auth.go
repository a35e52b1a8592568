package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"

	"Gmao/Models"
)

// Auth verifies the session token and loads the calling user.
type Auth struct {
	DB     *gorm.DB
	Secret []byte
}

func NewAuth(db *gorm.DB, secret string) *Auth {
	return &Auth{DB: db, Secret: []byte(secret)}
}

// token reads the jwt cookie first, then an Authorization bearer header.
func token(c *fiber.Ctx) string {
	if cookie := c.Cookies("jwt"); cookie != "" {
		return cookie
	}
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// Verify rejects callers below requiredPermission and stores the user in
// Locals("user").
func (a *Auth) Verify(requiredPermission int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := token(c)
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Not Logged In.",
			})
		}

		parsed, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.Secret, nil
		})
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid token claims",
			})
		}

		var user Models.User
		if err := a.DB.WithContext(c.UserContext()).Where("id = ?", claims.Issuer).First(&user).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "User not found",
			})
		}
		c.Locals("user", user)

		if user.Permission == 0 || user.Permission < requiredPermission {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Insufficient permissions to access this resource",
			})
		}
		return c.Next()
	}
}
