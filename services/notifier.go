// services/notifier.go - Best-effort notification fan-out
package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"savepoint/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationEmitter writes notification rows for lifecycle events.
// Every emit is fire-and-forget: a failed insert is logged and swallowed
// so it can never fail the calling operation or abort its transaction.
// The challenge/participant rows stay authoritative.
type NotificationEmitter struct {
	db *gorm.DB
}

func NewNotificationEmitter(db *gorm.DB) *NotificationEmitter {
	return &NotificationEmitter{db: db}
}

// Emit writes one notification using the emitter's own connection.
func (e *NotificationEmitter) Emit(userID uint, typ models.NotificationType, title, message string, challengeID *uint, payload map[string]interface{}, expiresAt *time.Time) {
	e.emit(e.db, userID, typ, title, message, challengeID, payload, expiresAt)
}

// EmitIn writes one notification on the caller's transaction handle. It
// still swallows failures; the insert rides the transaction but cannot
// sink it.
func (e *NotificationEmitter) EmitIn(db *gorm.DB, userID uint, typ models.NotificationType, title, message string, challengeID *uint, payload map[string]interface{}, expiresAt *time.Time) {
	e.emit(db, userID, typ, title, message, challengeID, payload, expiresAt)
}

func (e *NotificationEmitter) emit(db *gorm.DB, userID uint, typ models.NotificationType, title, message string, challengeID *uint, payload map[string]interface{}, expiresAt *time.Time) {
	var data datatypes.JSON
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			log.Printf("notifier: drop payload for user=%d type=%s: %v", userID, typ, err)
		} else {
			data = datatypes.JSON(raw)
		}
	}

	n := models.Notification{
		UserID:      userID,
		Type:        typ,
		Title:       title,
		Message:     message,
		ChallengeID: challengeID,
		Data:        data,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now().UTC(),
	}

	if err := db.Create(&n).Error; err != nil {
		log.Printf("notifier: failed to emit type=%s user=%d: %v", typ, userID, err)
	}
}

// ExpireInvites marks every outstanding, unread invite notification for a
// challenge as read and expired. Called when a challenge leaves an
// invitable state (cancelled, or lazily observed as completed) so stale
// invites stop rendering as actionable.
func (e *NotificationEmitter) ExpireInvites(challengeID uint, now time.Time) {
	err := e.db.Model(&models.Notification{}).
		Where("type = ? AND challenge_id = ? AND is_read = ?",
			models.NotificationChallengeInvite, challengeID, false).
		Updates(map[string]interface{}{
			"is_read":    true,
			"expires_at": now,
		}).Error
	if err != nil {
		log.Printf("notifier: failed to expire invites challenge=%d: %v", challengeID, err)
	}
}

// MarkClassInviteRead marks a student's class invite notification read
// once the invite has been answered. Class ids are stored as strings in
// the payload so the JSON lookup compares uniformly across dialects.
func (e *NotificationEmitter) MarkClassInviteRead(userID, classID uint) {
	err := e.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ? AND is_read = ?",
			userID, models.NotificationClassInvite, false).
		Where(datatypes.JSONQuery("data").Equals(fmt.Sprint(classID), "class_id")).
		Update("is_read", true).Error
	if err != nil {
		log.Printf("notifier: failed to mark class invite read user=%d class=%d: %v", userID, classID, err)
	}
}
