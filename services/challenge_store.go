// services/challenge_store.go - Persistence boundary for the challenge system
package services

import (
	"time"

	"savepoint/models"

	"gorm.io/gorm"
)

// ChallengeStore wraps all challenge-related database access. Services go
// through it for reads, conditional writes, and transactions; nothing
// above it builds SQL.
type ChallengeStore struct {
	db *gorm.DB
}

func NewChallengeStore(db *gorm.DB) *ChallengeStore {
	return &ChallengeStore{db: db}
}

// Transaction runs fn against a transaction-scoped store. A returned
// error rolls back everything fn wrote.
func (st *ChallengeStore) Transaction(fn func(tx *ChallengeStore) error) error {
	return st.db.Transaction(func(tx *gorm.DB) error {
		return fn(&ChallengeStore{db: tx})
	})
}

// DB exposes the underlying handle for collaborators that ride the same
// transaction (notification inserts).
func (st *ChallengeStore) DB() *gorm.DB {
	return st.db
}

// ================== CHALLENGES ==================

func (st *ChallengeStore) CreateChallenge(ch *models.Challenge) error {
	return st.db.Create(ch).Error
}

// GetChallenge loads one challenge with its game and class.
func (st *ChallengeStore) GetChallenge(id uint) (*models.Challenge, error) {
	var ch models.Challenge
	err := st.db.Preload("Game").Preload("Class").Preload("Teacher").
		First(&ch, id).Error
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// SetStatusIf performs the optimistic status transition: the UPDATE only
// lands when the row still carries the status the caller observed. A
// false return means a concurrent reader already advanced the row, which
// is harmless — callers keep the computed status either way.
func (st *ChallengeStore) SetStatusIf(id uint, from, to models.ChallengeStatus) (bool, error) {
	res := st.db.Model(&models.Challenge{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

// ListTeacherChallenges returns a teacher's challenges, newest first,
// optionally filtered by status and class, with participants preloaded.
func (st *ChallengeStore) ListTeacherChallenges(teacherID uint, status models.ChallengeStatus, classID *uint, limit int) ([]models.Challenge, error) {
	query := st.db.Where("teacher_id = ?", teacherID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if classID != nil {
		query = query.Where("class_id = ?", *classID)
	}

	var challenges []models.Challenge
	err := query.Preload("Game").Preload("Class").Preload("Participants").
		Order("created_at DESC").
		Limit(limit).
		Find(&challenges).Error
	return challenges, err
}

// ================== PARTICIPANTS ==================

func (st *ChallengeStore) CreateParticipant(p *models.ChallengeParticipant) error {
	return st.db.Create(p).Error
}

func (st *ChallengeStore) GetParticipant(challengeID, userID uint) (*models.ChallengeParticipant, error) {
	var p models.ChallengeParticipant
	err := st.db.Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListParticipants returns every participant of a challenge with users
// preloaded, in no particular order; ranking sorts in memory.
func (st *ChallengeStore) ListParticipants(challengeID uint) ([]models.ChallengeParticipant, error) {
	var participants []models.ChallengeParticipant
	err := st.db.Where("challenge_id = ?", challengeID).
		Preload("User").
		Find(&participants).Error
	return participants, err
}

// SetParticipantResponse stamps an invite response.
func (st *ChallengeStore) SetParticipantResponse(id uint, status models.ParticipantStatus, respondedAt time.Time) error {
	return st.db.Model(&models.ChallengeParticipant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       status,
			"responded_at": respondedAt,
		}).Error
}

// ApplyScoreIfBetter records a submission as a single conditional write so
// two near-simultaneous submissions cannot lose an update: the row is
// only touched when it has no score yet or a strictly lower one. Score
// and duration always replace together.
func (st *ChallengeStore) ApplyScoreIfBetter(participantID uint, score, durationSeconds int, now time.Time) (bool, error) {
	res := st.db.Model(&models.ChallengeParticipant{}).
		Where("id = ? AND (score IS NULL OR score < ?)", participantID, score).
		Updates(map[string]interface{}{
			"status":           models.ParticipantCompleted,
			"score":            score,
			"duration_seconds": durationSeconds,
			"completed_at":     now,
		})
	return res.RowsAffected > 0, res.Error
}

// ListStudentParticipations returns a student's participant rows with the
// challenge, game, teacher and class preloaded.
func (st *ChallengeStore) ListStudentParticipations(studentID uint, status models.ParticipantStatus, limit int) ([]models.ChallengeParticipant, error) {
	query := st.db.Where("user_id = ?", studentID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var participations []models.ChallengeParticipant
	err := query.
		Preload("Challenge").
		Preload("Challenge.Game").
		Preload("Challenge.Teacher").
		Preload("Challenge.Class").
		Limit(limit).
		Find(&participations).Error
	return participations, err
}

// ================== READ HELPERS (collaborator tables) ==================

func (st *ChallengeStore) GetGame(id uint) (*models.Game, error) {
	var game models.Game
	if err := st.db.Where("is_active = ?", true).First(&game, id).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

// GetOwnedClass loads a class only when it belongs to the given teacher.
func (st *ChallengeStore) GetOwnedClass(classID, teacherID uint) (*models.Class, error) {
	var class models.Class
	err := st.db.Where("id = ? AND teacher_id = ?", classID, teacherID).
		First(&class).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

// ActiveClassStudents returns the users currently active in a class.
func (st *ChallengeStore) ActiveClassStudents(classID uint) ([]models.User, error) {
	var students []models.User
	err := st.db.
		Joins("JOIN class_students ON class_students.student_id = users.id").
		Where("class_students.class_id = ? AND class_students.status = ?",
			classID, models.ClassStudentActive).
		Find(&students).Error
	return students, err
}

// ActiveUsers resolves a list of user ids to active users. Callers must
// check the returned length against the requested one: a shorter result
// means some ids were unknown or inactive.
func (st *ChallengeStore) ActiveUsers(ids []uint) ([]models.User, error) {
	var users []models.User
	err := st.db.Where("id IN ? AND is_active = ?", ids, true).
		Find(&users).Error
	return users, err
}

func (st *ChallengeStore) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := st.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// LinkGameSession attaches a game session to a challenge for audit. The
// session must belong to the submitting user; a missing session is not an
// error.
func (st *ChallengeStore) LinkGameSession(sessionID, userID, challengeID uint) error {
	return st.db.Model(&models.GameSession{}).
		Where("id = ? AND user_id = ?", sessionID, userID).
		Update("challenge_id", challengeID).Error
}
