// handlers/auth.go - Registration, login and account endpoints
package handlers

import (
	"strings"
	"time"

	"savepoint/database"
	"savepoint/middleware"
	"savepoint/models"
	"savepoint/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	IsTeacher   bool   `json:"is_teacher"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a new account and returns a session token.
func Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, 400, "Invalid request body")
	}

	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 || len(req.Username) > 30 {
		return utils.Fail(c, 422, "Username must be between 3 and 30 characters")
	}
	if len(req.Password) < 6 {
		return utils.Fail(c, 422, "Password must be at least 6 characters")
	}

	db := database.GetDB()

	var count int64
	db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count)
	if count > 0 {
		return utils.Fail(c, 409, "Username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.Fail(c, 500, "Failed to create account")
	}

	user := models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		IsTeacher:    req.IsTeacher,
		IsActive:     true,
		CreatedAt:    time.Now(),
		LastLogin:    time.Now(),
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		user.Email = &email
	}

	if err := db.Create(&user).Error; err != nil {
		return utils.Fail(c, 500, "Failed to create account")
	}

	token, err := middleware.GenerateToken(&user)
	if err != nil {
		return utils.Fail(c, 500, "Failed to generate token")
	}

	return utils.Success(c, fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Login authenticates a user by username and password.
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, 400, "Invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return utils.Fail(c, 400, "Username and password required")
	}

	db := database.GetDB()

	var user models.User
	if err := db.Where("username = ? AND is_active = ?", req.Username, true).First(&user).Error; err != nil {
		return utils.Fail(c, 401, "Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return utils.Fail(c, 401, "Invalid credentials")
	}

	db.Model(&user).Update("last_login", time.Now())

	token, err := middleware.GenerateToken(&user)
	if err != nil {
		return utils.Fail(c, 500, "Failed to generate token")
	}

	return utils.Success(c, fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Me returns the authenticated user's profile.
func Me(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	if auth.UserID == 0 {
		return utils.Fail(c, 401, "Not authenticated")
	}

	var user models.User
	if err := database.GetDB().First(&user, auth.UserID).Error; err != nil {
		return utils.Fail(c, 404, "User not found")
	}
	return utils.Success(c, fiber.Map{"user": user})
}

// BecomeTeacher upgrades the authenticated account to a teacher account.
// The client must exchange its token afterwards: the old one still
// carries the student role.
func BecomeTeacher(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	if auth.UserID == 0 {
		return utils.Fail(c, 401, "Not authenticated")
	}

	db := database.GetDB()

	var user models.User
	if err := db.First(&user, auth.UserID).Error; err != nil {
		return utils.Fail(c, 404, "User not found")
	}
	if user.IsTeacher {
		return utils.Fail(c, 409, "Already a teacher account")
	}

	if err := db.Model(&user).Update("is_teacher", true).Error; err != nil {
		return utils.Fail(c, 500, "Failed to update account")
	}
	user.IsTeacher = true

	token, err := middleware.GenerateToken(&user)
	if err != nil {
		return utils.Fail(c, 500, "Failed to generate token")
	}

	return utils.Success(c, fiber.Map{
		"token": token,
		"user":  user,
	})
}
