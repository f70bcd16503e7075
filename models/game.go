// models/game.go - Game catalog and play sessions
package models

import "time"

// Game is one entry of the mini-game catalog. Game rules and scoring live
// in the clients; the backend only references games by id.
type Game struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null;size:100"`
	Code        string    `json:"code" gorm:"unique;size:30"`
	Description string    `json:"description" gorm:"type:text"`
	IsActive    bool      `json:"is_active" gorm:"default:true;index"`
	CreatedAt   time.Time `json:"created_at"`
}

// GameSession is one play of a game by one user. A session may later be
// linked to a challenge when the score is submitted for it.
type GameSession struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Token       string     `json:"token" gorm:"uniqueIndex;size:40"`
	UserID      uint       `json:"user_id" gorm:"not null;index"`
	User        *User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	GameID      uint       `json:"game_id" gorm:"not null;index"`
	Game        *Game      `json:"game,omitempty" gorm:"foreignKey:GameID"`
	ChallengeID *uint      `json:"challenge_id" gorm:"index"`
	Score       int        `json:"score" gorm:"default:0"`
	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	FinishedAt  *time.Time `json:"finished_at"`
}

func (Game) TableName() string {
	return "games"
}

func (GameSession) TableName() string {
	return "game_sessions"
}
