// models/notification.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification type constants
type NotificationType string

const (
	NotificationChallengeInvite NotificationType = "challenge_invite"
	NotificationChallengeResult NotificationType = "challenge_result"
	NotificationClassInvite     NotificationType = "class_invite"
)

// Notification is a best-effort, fire-and-forget record shown to the user.
// The authoritative state lives in the challenge/participant rows; a lost
// notification is an inconvenience, not an inconsistency.
type Notification struct {
	ID      uint             `json:"id" gorm:"primaryKey"`
	UserID  uint             `json:"user_id" gorm:"not null;index"`
	User    *User            `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Type    NotificationType `json:"type" gorm:"not null;size:30;index"`
	Title   string           `json:"title" gorm:"not null;size:150"`
	Message string           `json:"message" gorm:"type:text"`
	// ChallengeID is set on challenge_invite/challenge_result rows so
	// lifecycle cleanup can target them without digging into the payload.
	ChallengeID *uint          `json:"challenge_id" gorm:"index"`
	Data        datatypes.JSON `json:"data"`
	IsRead      bool           `json:"is_read" gorm:"default:false;index"`
	ExpiresAt   *time.Time     `json:"expires_at"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
