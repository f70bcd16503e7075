// handlers/games.go - Game catalog and session endpoints
package handlers

import (
	"time"

	"savepoint/database"
	"savepoint/middleware"
	"savepoint/models"
	"savepoint/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GetGames lists the active game catalog.
func GetGames(c *fiber.Ctx) error {
	var games []models.Game
	err := database.GetDB().Where("is_active = ?", true).
		Order("name ASC").
		Find(&games).Error
	if err != nil {
		return utils.Fail(c, 500, "Failed to load games")
	}
	return utils.Success(c, fiber.Map{"games": games})
}

type startSessionRequest struct {
	GameID uint `json:"game_id"`
}

// StartGameSession opens a play session and hands the client a token the
// game embeds in its reports.
func StartGameSession(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	if auth.UserID == 0 {
		return utils.Fail(c, 401, "Not authenticated")
	}

	var req startSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, 400, "Invalid request body")
	}

	db := database.GetDB()

	var game models.Game
	if err := db.Where("is_active = ?", true).First(&game, req.GameID).Error; err != nil {
		return utils.Fail(c, 404, "Game not found")
	}

	session := models.GameSession{
		Token:     uuid.New().String(),
		UserID:    auth.UserID,
		GameID:    game.ID,
		StartedAt: time.Now(),
	}
	if err := db.Create(&session).Error; err != nil {
		return utils.Fail(c, 500, "Failed to start session")
	}

	return c.Status(201).JSON(fiber.Map{"success": true, "session": session})
}

type finishSessionRequest struct {
	Score int `json:"score"`
}

// FinishGameSession closes a session with its final score. Challenge
// scores are submitted separately; the session only records the play.
func FinishGameSession(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	if auth.UserID == 0 {
		return utils.Fail(c, 401, "Not authenticated")
	}

	token := c.Params("token")
	if token == "" {
		return utils.Fail(c, 422, "Session token required")
	}

	var req finishSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, 400, "Invalid request body")
	}
	if req.Score < 0 {
		return utils.Fail(c, 422, "Invalid score")
	}

	db := database.GetDB()

	var session models.GameSession
	if err := db.Where("token = ? AND user_id = ?", token, auth.UserID).First(&session).Error; err != nil {
		return utils.Fail(c, 404, "Session not found")
	}
	if session.FinishedAt != nil {
		return utils.Fail(c, 409, "Session already finished")
	}

	now := time.Now()
	err := db.Model(&session).Updates(map[string]interface{}{
		"score":       req.Score,
		"finished_at": now,
	}).Error
	if err != nil {
		return utils.Fail(c, 500, "Failed to finish session")
	}
	session.Score = req.Score
	session.FinishedAt = &now

	return utils.Success(c, fiber.Map{"session": session})
}
