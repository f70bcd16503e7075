// handlers/student_challenges.go - Student-side challenge endpoints
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

type respondInviteRequest struct {
	Action string `json:"action"`
}

// RespondInvite accepts or declines a challenge invite.
func RespondInvite(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)

	challengeID, err := paramUint(c, "id")
	if err != nil {
		return utils.Fail(c, 422, "Invalid challenge id")
	}

	var req respondInviteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, 400, "Invalid request body")
	}

	svc := services.NewParticipationService(database.GetDB())
	challenge, serr := svc.RespondInvite(auth, challengeID, services.InviteAction(req.Action))
	if serr != nil {
		return utils.FailErr(c, serr)
	}
	return utils.Success(c, fiber.Map{"challenge": challenge})
}

// SubmitScore records a score for an accepted challenge.
func SubmitScore(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)

	challengeID, err := paramUint(c, "id")
	if err != nil {
		return utils.Fail(c, 422, "Invalid challenge id")
	}

	var in services.SubmitScoreInput
	if err := c.BodyParser(&in); err != nil {
		return utils.Fail(c, 400, "Invalid request body")
	}

	svc := services.NewParticipationService(database.GetDB())
	result, serr := svc.SubmitScore(auth, challengeID, in)
	if serr != nil {
		return utils.FailErr(c, serr)
	}
	return utils.Success(c, result)
}

// GetWaitingRoom returns the pre-start roster view students poll.
func GetWaitingRoom(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)

	challengeID, err := paramUint(c, "id")
	if err != nil {
		return utils.Fail(c, 422, "Invalid challenge id")
	}

	svc := services.NewParticipationService(database.GetDB())
	view, serr := svc.WaitingRoom(auth, challengeID)
	if serr != nil {
		return utils.FailErr(c, serr)
	}
	return utils.Success(c, view)
}

// GetMyChallenges lists everything the student was invited to.
func GetMyChallenges(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)

	status := models.ParticipantStatus(c.Query("status"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	svc := services.NewParticipationService(database.GetDB())
	views, serr := svc.MyChallenges(auth, status, limit)
	if serr != nil {
		return utils.FailErr(c, serr)
	}
	return utils.Success(c, fiber.Map{"challenges": views})
}
