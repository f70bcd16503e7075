// database/migrate.go - Database Migration Runner
package database

import (
	"log"

	"savepoint/models"
)

// RunMigrations runs all database migrations
func RunMigrations() {
	db := GetDB()
	log.Println("Running database migrations...")

	if err := db.AutoMigrate(
		&models.User{},
		&models.Class{},
		&models.ClassStudent{},
		&models.Game{},
		&models.GameSession{},
		&models.Challenge{},
		&models.ChallengeParticipant{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	createIndexes()

	log.Println("All migrations completed successfully")
}

// createIndexes creates the composite indexes AutoMigrate cannot express.
func createIndexes() {
	db := GetDB()

	// Challenge list queries filter by teacher and status together.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_challenges_teacher_status ON challenges(teacher_id, status)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_challenges_class ON challenges(class_id)")

	// Participant lookups come from both sides of the relation.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_participants_user_status ON challenge_participants(user_id, status)")

	// The unread badge is the hottest notification query.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id, is_read)")
}
