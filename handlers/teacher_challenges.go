// handlers/teacher_challenges.go - Teacher-side challenge endpoints
package handlers

import (
	"strconv"

	"savepoint/database"
	"savepoint/middleware"
	"savepoint/models"
	"savepoint/services"
	"savepoint/utils"

	"github.com/gofiber/fiber/v2"
)

// CreateChallenge creates a challenge and fans out the invites.
func CreateChallenge(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)

	var in services.CreateChallengeInput
	if err := c.BodyParser(&in); err != nil {
		return utils.Fail(c, 400, "Invalid request body")
	}

	svc := services.NewLifecycleService(database.GetDB())
	challenge, invited, serr := svc.CreateChallenge(auth, in)
	if serr != nil {
		return utils.FailErr(c, serr)
	}

	return c.Status(201).JSON(fiber.Map{
		"success":       true,
		"challenge":     challenge,
		"invited_count": invited,
		"starts_at":     challenge.StartsAt,
		"ends_at":       challenge.EndsAt,
	})
}

// GetTeacherChallenges lists the caller's challenges with stats.
func GetTeacherChallenges(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)

	status := models.ChallengeStatus(c.Query("status"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	var classID *uint
	if raw := c.Query("class_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return utils.Fail(c, 422, "Invalid class_id")
		}
		v := uint(id)
		classID = &v
	}

	svc := services.NewLifecycleService(database.GetDB())
	views, serr := svc.ListTeacherChallenges(auth, status, classID, limit)
	if serr != nil {
		return utils.FailErr(c, serr)
	}
	return utils.Success(c, fiber.Map{"challenges": views})
}

// CancelChallenge cancels one of the caller's challenges.
func CancelChallenge(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)

	challengeID, err := paramUint(c, "id")
	if err != nil {
		return utils.Fail(c, 422, "Invalid challenge id")
	}

	svc := services.NewLifecycleService(database.GetDB())
	notified, serr := svc.CancelChallenge(auth, challengeID)
	if serr != nil {
		return utils.FailErr(c, serr)
	}
	return utils.Success(c, fiber.Map{"notified_count": notified})
}

// GetLeaderboard returns the ranked roster of one challenge.
func GetLeaderboard(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)

	challengeID, err := paramUint(c, "id")
	if err != nil {
		return utils.Fail(c, 422, "Invalid challenge id")
	}

	svc := services.NewLifecycleService(database.GetDB())
	view, serr := svc.Leaderboard(auth, challengeID)
	if serr != nil {
		return utils.FailErr(c, serr)
	}
	return utils.Success(c, view)
}

func paramUint(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	return uint(id), err
}
