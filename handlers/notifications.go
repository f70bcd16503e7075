// handlers/notifications.go - Notification inbox endpoints
package handlers

import (
	"strconv"
	"time"

	"savepoint/database"
	"savepoint/middleware"
	"savepoint/models"
	"savepoint/utils"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications lists the caller's notifications, newest first.
// Expired rows (invites past their challenge start) are hidden: they are
// no longer actionable and the authoritative state lives on the
// challenge anyway.
func GetNotifications(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	if auth.UserID == 0 {
		return utils.Fail(c, 401, "Not authenticated")
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	db := database.GetDB()
	query := db.Where("user_id = ?", auth.UserID).
		Where("expires_at IS NULL OR expires_at > ?", time.Now())

	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return utils.Fail(c, 500, "Failed to load notifications")
	}

	var unreadCount int64
	db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", auth.UserID, false).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Count(&unreadCount)

	return utils.Success(c, fiber.Map{
		"notifications": notifications,
		"unread_count":  unreadCount,
	})
}

// MarkNotificationRead marks one of the caller's notifications as read.
func MarkNotificationRead(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	if auth.UserID == 0 {
		return utils.Fail(c, 401, "Not authenticated")
	}

	notificationID, err := paramUint(c, "id")
	if err != nil {
		return utils.Fail(c, 422, "Invalid notification id")
	}

	res := database.GetDB().Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, auth.UserID).
		Update("is_read", true)
	if res.Error != nil {
		return utils.Fail(c, 500, "Failed to update notification")
	}
	if res.RowsAffected == 0 {
		return utils.Fail(c, 404, "Notification not found")
	}
	return utils.Success(c, fiber.Map{"read": true})
}

// MarkAllNotificationsRead marks every unread notification as read.
func MarkAllNotificationsRead(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	if auth.UserID == 0 {
		return utils.Fail(c, 401, "Not authenticated")
	}

	res := database.GetDB().Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", auth.UserID, false).
		Update("is_read", true)
	if res.Error != nil {
		return utils.Fail(c, 500, "Failed to update notifications")
	}
	return utils.Success(c, fiber.Map{"marked_count": res.RowsAffected})
}
