package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"savepoint/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB gives each test its own in-memory database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Class{},
		&models.ClassStudent{},
		&models.Game{},
		&models.GameSession{},
		&models.Challenge{},
		&models.ChallengeParticipant{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string, isTeacher bool) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		PasswordHash: "x",
		IsTeacher:    isTeacher,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

func seedGame(t *testing.T, db *gorm.DB, name string) *models.Game {
	t.Helper()
	game := &models.Game{Name: name, Code: strings.ToLower(name), IsActive: true}
	if err := db.Create(game).Error; err != nil {
		t.Fatalf("seed game %s: %v", name, err)
	}
	return game
}

// fixedClock pins a service's notion of now.
func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func teacherAuth(u *models.User) models.AuthContext {
	return models.AuthContext{UserID: u.ID, IsTeacher: true}
}

func studentAuth(u *models.User) models.AuthContext {
	return models.AuthContext{UserID: u.ID}
}
