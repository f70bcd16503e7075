// models/challenge.go - Challenge System Data Models
package models

import (
	"time"
)

// Challenge status constants
type ChallengeStatus string

const (
	ChallengeStatusPending   ChallengeStatus = "pending"
	ChallengeStatusActive    ChallengeStatus = "active"
	ChallengeStatusCompleted ChallengeStatus = "completed"
	ChallengeStatusCancelled ChallengeStatus = "cancelled"
)

// IsTerminal reports whether no further status writes may occur.
func (s ChallengeStatus) IsTerminal() bool {
	return s == ChallengeStatusCompleted || s == ChallengeStatusCancelled
}

// Challenge type constants
type ChallengeType string

const (
	ChallengeTypeIndividual ChallengeType = "individual"
	ChallengeTypeClass      ChallengeType = "class"
)

// Challenge difficulty constants
type ChallengeDifficulty string

const (
	DifficultyEasy   ChallengeDifficulty = "easy"
	DifficultyMedium ChallengeDifficulty = "medium"
	DifficultyHard   ChallengeDifficulty = "hard"
	DifficultyExpert ChallengeDifficulty = "expert"
)

// ValidDifficulty reports whether d is one of the allowed difficulty values.
func ValidDifficulty(d ChallengeDifficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert:
		return true
	}
	return false
}

// Participant status constants
type ParticipantStatus string

const (
	ParticipantInvited   ParticipantStatus = "invited"
	ParticipantAccepted  ParticipantStatus = "accepted"
	ParticipantDeclined  ParticipantStatus = "declined"
	ParticipantPlaying   ParticipantStatus = "playing"
	ParticipantCompleted ParticipantStatus = "completed"
)

// HasAccepted reports whether the participant accepted the invite at some
// point (and so may submit scores).
func (s ParticipantStatus) HasAccepted() bool {
	return s == ParticipantAccepted || s == ParticipantPlaying || s == ParticipantCompleted
}

// Challenge represents a scheduled, time-boxed competition on one game,
// created by a teacher for a set of invited students.
type Challenge struct {
	ID              uint                   `json:"id" gorm:"primaryKey"`
	TeacherID       uint                   `json:"teacher_id" gorm:"not null;index"`
	Teacher         *User                  `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
	ClassID         *uint                  `json:"class_id" gorm:"index"`
	Class           *Class                 `json:"class,omitempty" gorm:"foreignKey:ClassID"`
	GameID          uint                   `json:"game_id" gorm:"not null;index"`
	Game            *Game                  `json:"game,omitempty" gorm:"foreignKey:GameID"`
	Title           string                 `json:"title" gorm:"not null;size:100"`
	Description     *string                `json:"description" gorm:"type:text"`
	Type            ChallengeType          `json:"type" gorm:"not null;default:'class'"`
	DurationMinutes int                    `json:"duration_minutes" gorm:"not null"`
	Difficulty      *ChallengeDifficulty   `json:"difficulty" gorm:"size:20"`
	StartsAt        time.Time              `json:"starts_at" gorm:"not null"`
	EndsAt          time.Time              `json:"ends_at" gorm:"not null"`
	Status          ChallengeStatus        `json:"status" gorm:"not null;default:'pending';index"`
	CreatedAt       time.Time              `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time              `json:"updated_at"`
	Participants    []ChallengeParticipant `json:"participants,omitempty" gorm:"foreignKey:ChallengeID"`
}

// ChallengeParticipant represents one student's association with a
// challenge: the invite response and, once completed, the score.
type ChallengeParticipant struct {
	ID              uint              `json:"id" gorm:"primaryKey"`
	ChallengeID     uint              `json:"challenge_id" gorm:"not null;uniqueIndex:idx_challenge_user"`
	Challenge       *Challenge        `json:"challenge,omitempty" gorm:"foreignKey:ChallengeID"`
	UserID          uint              `json:"user_id" gorm:"not null;uniqueIndex:idx_challenge_user"`
	User            *User             `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Status          ParticipantStatus `json:"status" gorm:"not null;default:'invited';index"`
	Score           *int              `json:"score"`
	DurationSeconds *int              `json:"duration_seconds"`
	InvitedAt       time.Time         `json:"invited_at" gorm:"not null"`
	RespondedAt     *time.Time        `json:"responded_at"`
	CompletedAt     *time.Time        `json:"completed_at"`
}

func (Challenge) TableName() string {
	return "challenges"
}

func (ChallengeParticipant) TableName() string {
	return "challenge_participants"
}
