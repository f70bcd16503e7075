// middleware/auth.go
package middleware

import (
	"os"
	"strings"
	"time"

	"savepoint/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "savepoint-secret-change-in-production"
	}
	return []byte(secret)
}

// AuthMiddleware validates the Bearer token and stores the identity in
// the request locals.
func AuthMiddleware(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Missing authorization header"})
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Invalid authorization header format"})
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(401, "Invalid signing method")
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Invalid or expired token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Invalid token claims"})
	}

	exp, ok := claims["exp"].(float64)
	if !ok || time.Unix(int64(exp), 0).Before(time.Now()) {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Token expired"})
	}

	c.Locals("userId", claims["user_id"])
	c.Locals("isTeacher", claims["is_teacher"])

	return c.Next()
}

// TeacherMiddleware rejects non-teacher tokens early. Services still
// enforce the role themselves; this only short-circuits the obvious case
// before any parsing happens.
func TeacherMiddleware(c *fiber.Ctx) error {
	isTeacher, _ := c.Locals("isTeacher").(bool)
	if !isTeacher {
		return c.Status(403).JSON(fiber.Map{"success": false, "error": "Teacher account required"})
	}
	return c.Next()
}

// GetAuthContext extracts the authenticated identity from the locals set
// by AuthMiddleware. A zero UserID means the request is unauthenticated.
func GetAuthContext(c *fiber.Ctx) models.AuthContext {
	var auth models.AuthContext

	switch id := c.Locals("userId").(type) {
	case float64:
		auth.UserID = uint(id)
	case uint:
		auth.UserID = id
	}
	if teacher, ok := c.Locals("isTeacher").(bool); ok {
		auth.IsTeacher = teacher
	}
	return auth
}

// GenerateToken issues a signed JWT for the user, valid for 7 days.
func GenerateToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    user.ID,
		"username":   user.Username,
		"is_teacher": user.IsTeacher,
		"exp":        time.Now().Add(7 * 24 * time.Hour).Unix(),
		"iat":        time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}
