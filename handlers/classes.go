// handlers/classes.go - Class management endpoints
package handlers

import (
	"savepoint/database"
	"savepoint/middleware"
	"savepoint/services"
	"savepoint/utils"

	"github.com/gofiber/fiber/v2"
)

type inviteStudentRequest struct {
	Username string `json:"username"`
}

type respondClassInviteRequest struct {
	Accept bool `json:"accept"`
}

// CreateClass creates a class owned by the caller.
func CreateClass(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)

	var in services.CreateClassInput
	if err := c.BodyParser(&in); err != nil {
		return utils.Fail(c, 400, "Invalid request body")
	}

	svc := services.NewClassService(database.GetDB())
	class, serr := svc.CreateClass(auth, in)
	if serr != nil {
		return utils.FailErr(c, serr)
	}
	return c.Status(201).JSON(fiber.Map{"success": true, "class": class})
}

// GetClasses lists the caller's classes with roster counts.
func GetClasses(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)

	svc := services.NewClassService(database.GetDB())
	views, serr := svc.GetClasses(auth)
	if serr != nil {
		return utils.FailErr(c, serr)
	}
	return utils.Success(c, fiber.Map{"classes": views})
}

// GetClassStudents returns the roster of one class.
func GetClassStudents(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)

	classID, err := paramUint(c, "id")
	if err != nil {
		return utils.Fail(c, 422, "Invalid class id")
	}

	svc := services.NewClassService(database.GetDB())
	students, serr := svc.GetClassStudents(auth, classID)
	if serr != nil {
		return utils.FailErr(c, serr)
	}
	return utils.Success(c, fiber.Map{"students": students})
}

// InviteStudent invites a student to a class by username.
func InviteStudent(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)

	classID, err := paramUint(c, "id")
	if err != nil {
		return utils.Fail(c, 422, "Invalid class id")
	}

	var req inviteStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, 400, "Invalid request body")
	}

	svc := services.NewClassService(database.GetDB())
	row, serr := svc.InviteStudent(auth, classID, req.Username)
	if serr != nil {
		return utils.FailErr(c, serr)
	}
	return c.Status(201).JSON(fiber.Map{"success": true, "invite": row})
}

// RespondClassInvite records a student's answer to a class invite.
func RespondClassInvite(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)

	classID, err := paramUint(c, "id")
	if err != nil {
		return utils.Fail(c, 422, "Invalid class id")
	}

	var req respondClassInviteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, 400, "Invalid request body")
	}

	svc := services.NewClassService(database.GetDB())
	row, serr := svc.RespondClassInvite(auth, classID, req.Accept)
	if serr != nil {
		return utils.FailErr(c, serr)
	}
	return utils.Success(c, fiber.Map{"membership": row})
}

// RemoveStudent removes a student from the caller's class.
func RemoveStudent(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)

	classID, err := paramUint(c, "id")
	if err != nil {
		return utils.Fail(c, 422, "Invalid class id")
	}
	studentID, err := paramUint(c, "studentId")
	if err != nil {
		return utils.Fail(c, 422, "Invalid student id")
	}

	svc := services.NewClassService(database.GetDB())
	if serr := svc.RemoveStudent(auth, classID, studentID); serr != nil {
		return utils.FailErr(c, serr)
	}
	return utils.Success(c, fiber.Map{"removed": true})
}
