// services/lifecycle_service.go - Teacher-side challenge lifecycle
package services

import (
	"fmt"
	"strings"
	"time"

	"savepoint/models"

	"gorm.io/gorm"
)

const (
	minDurationMinutes = 3
	maxDurationMinutes = 60

	// Invites go out a fixed lead before play starts so students have a
	// moment to accept and reach the waiting room.
	startLead = time.Minute
)

// LifecycleService orchestrates teacher-side transitions: creating a
// challenge with its invitation fan-out, cancelling it, and lazily
// advancing its status whenever something reads it.
type LifecycleService struct {
	store    *ChallengeStore
	notifier *NotificationEmitter
	now      func() time.Time
}

func NewLifecycleService(db *gorm.DB) *LifecycleService {
	return &LifecycleService{
		store:    NewChallengeStore(db),
		notifier: NewNotificationEmitter(db),
		now:      time.Now,
	}
}

// CreateChallengeInput is the validated payload for CreateChallenge.
type CreateChallengeInput struct {
	GameID          uint                        `json:"game_id"`
	Title           string                      `json:"title"`
	Description     *string                     `json:"description"`
	Type            models.ChallengeType        `json:"type"`
	ClassID         *uint                       `json:"class_id"`
	StudentIDs      []uint                      `json:"student_ids"`
	DurationMinutes int                         `json:"duration_minutes"`
	Difficulty      *models.ChallengeDifficulty `json:"difficulty"`
}

// CreateChallenge validates the request, resolves the invite list and
// atomically creates the challenge, one invited participant per student
// and one invite notification per student. Any unresolved student id
// fails the whole operation; no partial invite list is ever written.
func (s *LifecycleService) CreateChallenge(auth models.AuthContext, in CreateChallengeInput) (*models.Challenge, int, *ServiceError) {
	if auth.UserID == 0 {
		return nil, 0, errUnauthenticated()
	}
	if !auth.IsTeacher {
		return nil, 0, errForbidden("Only teachers can create challenges")
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, 0, errInvalid("Title is required")
	}
	if in.Type != models.ChallengeTypeIndividual && in.Type != models.ChallengeTypeClass {
		return nil, 0, errInvalid(`Type must be "individual" or "class"`)
	}
	if in.DurationMinutes < minDurationMinutes || in.DurationMinutes > maxDurationMinutes {
		return nil, 0, errInvalid("Duration must be between 3 and 60 minutes")
	}
	if in.Difficulty != nil && !models.ValidDifficulty(*in.Difficulty) {
		return nil, 0, errInvalid("Invalid difficulty")
	}
	if in.Type == models.ChallengeTypeClass && in.ClassID == nil {
		return nil, 0, errInvalid("class_id is required for class challenges")
	}
	if in.Type == models.ChallengeTypeIndividual && len(in.StudentIDs) == 0 {
		return nil, 0, errInvalid("student_ids is required for individual challenges")
	}

	game, err := s.store.GetGame(in.GameID)
	if err != nil {
		return nil, 0, notFoundOrInternal("create_challenge.get_game", "Game not found", err, in.GameID)
	}

	// Resolve the invite list before writing anything.
	var students []models.User
	var classID *uint
	if in.Type == models.ChallengeTypeClass {
		if _, err := s.store.GetOwnedClass(*in.ClassID, auth.UserID); err != nil {
			return nil, 0, notFoundOrInternal("create_challenge.get_class",
				"Class not found or not yours", err, *in.ClassID, auth.UserID)
		}
		classID = in.ClassID
		students, err = s.store.ActiveClassStudents(*in.ClassID)
		if err != nil {
			return nil, 0, errInternal("create_challenge.class_students", err, *in.ClassID)
		}
	} else {
		students, err = s.store.ActiveUsers(in.StudentIDs)
		if err != nil {
			return nil, 0, errInternal("create_challenge.resolve_students", err, auth.UserID)
		}
		if len(students) != len(in.StudentIDs) {
			return nil, 0, errInvalid("Some students could not be found")
		}
	}

	teacher, err := s.store.GetUser(auth.UserID)
	if err != nil {
		return nil, 0, errInternal("create_challenge.get_teacher", err, auth.UserID)
	}

	now := s.now()
	startsAt := now.Add(startLead)
	endsAt := startsAt.Add(time.Duration(in.DurationMinutes) * time.Minute)

	challenge := &models.Challenge{
		TeacherID:       auth.UserID,
		ClassID:         classID,
		GameID:          in.GameID,
		Title:           in.Title,
		Description:     in.Description,
		Type:            in.Type,
		DurationMinutes: in.DurationMinutes,
		Difficulty:      in.Difficulty,
		StartsAt:        startsAt,
		EndsAt:          endsAt,
		Status:          models.ChallengeStatusPending,
		CreatedAt:       now,
	}

	txErr := s.store.Transaction(func(tx *ChallengeStore) error {
		if err := tx.CreateChallenge(challenge); err != nil {
			return err
		}
		for i := range students {
			participant := &models.ChallengeParticipant{
				ChallengeID: challenge.ID,
				UserID:      students[i].ID,
				Status:      models.ParticipantInvited,
				InvitedAt:   now,
			}
			if err := tx.CreateParticipant(participant); err != nil {
				return err
			}

			// The invite stops being meaningful once play starts.
			expires := startsAt
			s.notifier.EmitIn(tx.DB(), students[i].ID,
				models.NotificationChallengeInvite,
				fmt.Sprintf("New challenge: %s", in.Title),
				fmt.Sprintf("%s invited you to a %s challenge! It starts in 1 minute.",
					teacher.Name(), game.Name),
				&challenge.ID,
				map[string]interface{}{
					"challenge_id":     challenge.ID,
					"game_id":          game.ID,
					"game_name":        game.Name,
					"teacher_id":       teacher.ID,
					"teacher_name":     teacher.Name(),
					"starts_at":        startsAt,
					"duration_minutes": in.DurationMinutes,
				},
				&expires)
		}
		return nil
	})
	if txErr != nil {
		return nil, 0, errInternal("create_challenge.tx", txErr, auth.UserID, in.GameID)
	}

	challenge.Game = game
	return challenge, len(students), nil
}

// CancelChallenge sets a non-terminal challenge to cancelled, notifies
// everyone still invited or accepted, and retires their outstanding
// invite notifications.
func (s *LifecycleService) CancelChallenge(auth models.AuthContext, challengeID uint) (int, *ServiceError) {
	if auth.UserID == 0 {
		return 0, errUnauthenticated()
	}
	if !auth.IsTeacher {
		return 0, errForbidden("Only teachers can cancel challenges")
	}

	challenge, err := s.store.GetChallenge(challengeID)
	if err != nil {
		return 0, notFoundOrInternal("cancel_challenge.get", "Challenge not found", err, challengeID)
	}
	if challenge.TeacherID != auth.UserID {
		return 0, errForbidden("You do not own this challenge")
	}
	if challenge.Status == models.ChallengeStatusCancelled {
		return 0, errConflict("This challenge is already cancelled")
	}
	if challenge.Status == models.ChallengeStatusCompleted {
		return 0, errConflict("A finished challenge cannot be cancelled")
	}

	// The conditional write can lose to a concurrent lazy pending->active
	// transition; cancelling is still legal then, so retry once against
	// the fresh status before treating it as a terminal race.
	cancelled := false
	for attempt := 0; attempt < 2 && !cancelled; attempt++ {
		changed, err := s.store.SetStatusIf(challengeID, challenge.Status, models.ChallengeStatusCancelled)
		if err != nil {
			return 0, errInternal("cancel_challenge.update", err, challengeID)
		}
		if changed {
			cancelled = true
			break
		}
		challenge, err = s.store.GetChallenge(challengeID)
		if err != nil {
			return 0, errInternal("cancel_challenge.reread", err, challengeID)
		}
		if challenge.Status.IsTerminal() {
			return 0, errConflict("This challenge already ended")
		}
	}
	if !cancelled {
		return 0, errConflict("This challenge already ended")
	}

	now := s.now()
	s.notifier.ExpireInvites(challengeID, now)

	participants, err := s.store.ListParticipants(challengeID)
	if err != nil {
		// The cancel itself stuck; notification fan-out is best-effort.
		return 0, nil
	}

	notified := 0
	for i := range participants {
		p := &participants[i]
		if p.Status != models.ParticipantInvited && p.Status != models.ParticipantAccepted {
			continue
		}
		s.notifier.Emit(p.UserID, models.NotificationChallengeResult,
			"Challenge cancelled",
			fmt.Sprintf("The challenge %q was cancelled by the teacher.", challenge.Title),
			&challengeID,
			map[string]interface{}{
				"challenge_id": challengeID,
				"reason":       "cancelled_by_teacher",
			},
			nil)
		notified++
	}
	return notified, nil
}

// ObserveChallenge reconciles a challenge's status against the clock and
// persists any transition with an optimistic conditional write. Every
// read path goes through it, which is what stands in for a scheduler:
// displayed status may lag real time by one poll interval, but all
// concurrent readers converge on the same row.
func (s *LifecycleService) ObserveChallenge(challengeID uint) (*models.Challenge, *ServiceError) {
	challenge, err := s.store.GetChallenge(challengeID)
	if err != nil {
		return nil, notFoundOrInternal("observe_challenge.get", "Challenge not found", err, challengeID)
	}
	s.reconcile(challenge)
	return challenge, nil
}

// reconcile applies the status clock to an already-loaded challenge and
// persists the transition. Losing the conditional write to a concurrent
// reader is fine: both computed the same target status.
func (s *LifecycleService) reconcile(challenge *models.Challenge) {
	now := s.now()
	next, changed := ReconcileStatus(challenge, now)
	if !changed {
		return
	}
	if _, err := s.store.SetStatusIf(challenge.ID, challenge.Status, next); err != nil {
		// Leave the stored row alone; the caller still sees the
		// reconciled status and the next read retries the write.
		return
	}
	challenge.Status = next
	if next == models.ChallengeStatusCompleted {
		// Outstanding invites stop being actionable once the window is
		// over, same as on cancellation.
		s.notifier.ExpireInvites(challenge.ID, now)
	}
}

// TeacherChallengeView is one row of the teacher's challenge list.
type TeacherChallengeView struct {
	Challenge         *models.Challenge `json:"challenge"`
	TotalParticipants int               `json:"total_participants"`
	AcceptedCount     int               `json:"accepted_count"`
	CompletedCount    int               `json:"completed_count"`
	ParticipationRate float64           `json:"participation_rate"`
	CompletionRate    float64           `json:"completion_rate"`
	SecondsUntilStart int64             `json:"seconds_until_start"`
	SecondsUntilEnd   int64             `json:"seconds_until_end"`
	CanCancel         bool              `json:"can_cancel"`
}

// ListTeacherChallenges returns the caller's challenges, lazily
// reconciled, with participation aggregates.
func (s *LifecycleService) ListTeacherChallenges(auth models.AuthContext, status models.ChallengeStatus, classID *uint, limit int) ([]TeacherChallengeView, *ServiceError) {
	if auth.UserID == 0 {
		return nil, errUnauthenticated()
	}
	if !auth.IsTeacher {
		return nil, errForbidden("Only teachers can list their challenges")
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	challenges, err := s.store.ListTeacherChallenges(auth.UserID, status, classID, limit)
	if err != nil {
		return nil, errInternal("list_teacher_challenges", err, auth.UserID)
	}

	now := s.now()
	views := make([]TeacherChallengeView, 0, len(challenges))
	for i := range challenges {
		ch := &challenges[i]
		s.reconcile(ch)

		stats := Stats(ch.Participants)
		views = append(views, TeacherChallengeView{
			Challenge:         ch,
			TotalParticipants: stats.TotalInvited,
			AcceptedCount:     stats.TotalAccepted,
			CompletedCount:    stats.TotalCompleted,
			ParticipationRate: stats.ParticipationRate,
			CompletionRate:    stats.CompletionRate,
			SecondsUntilStart: secondsUntil(now, ch.StartsAt),
			SecondsUntilEnd:   secondsUntil(now, ch.EndsAt),
			CanCancel:         !ch.Status.IsTerminal(),
		})
	}
	return views, nil
}

// LeaderboardEntry is one ranked roster row of the teacher leaderboard.
type LeaderboardEntry struct {
	ParticipantID   uint                     `json:"participant_id"`
	UserID          uint                     `json:"user_id"`
	Username        string                   `json:"username"`
	DisplayName     string                   `json:"display_name"`
	Status          models.ParticipantStatus `json:"status"`
	Score           *int                     `json:"score"`
	DurationSeconds *int                     `json:"duration_seconds"`
	Rank            *int                     `json:"rank"`
	CompletedAt     *time.Time               `json:"completed_at"`
	InvitedAt       time.Time                `json:"invited_at"`
	RespondedAt     *time.Time               `json:"responded_at"`
}

// LeaderboardView bundles the challenge, its ranked roster and aggregate
// stats for the teacher's result screen.
type LeaderboardView struct {
	Challenge       *models.Challenge  `json:"challenge"`
	Leaderboard     []LeaderboardEntry `json:"leaderboard"`
	Stats           ChallengeStats     `json:"stats"`
	SecondsUntilEnd int64              `json:"seconds_until_end"`
}

// Leaderboard returns the full ranked roster of one of the caller's
// challenges.
func (s *LifecycleService) Leaderboard(auth models.AuthContext, challengeID uint) (*LeaderboardView, *ServiceError) {
	if auth.UserID == 0 {
		return nil, errUnauthenticated()
	}
	if !auth.IsTeacher {
		return nil, errForbidden("Only teachers can view the leaderboard")
	}

	challenge, serr := s.ObserveChallenge(challengeID)
	if serr != nil {
		return nil, serr
	}
	if challenge.TeacherID != auth.UserID {
		return nil, errForbidden("You do not own this challenge")
	}

	participants, err := s.store.ListParticipants(challengeID)
	if err != nil {
		return nil, errInternal("leaderboard.participants", err, challengeID)
	}

	SortLeaderboard(participants)
	entries := make([]LeaderboardEntry, 0, len(participants))
	for i := range participants {
		p := &participants[i]
		entry := LeaderboardEntry{
			ParticipantID:   p.ID,
			UserID:          p.UserID,
			Status:          p.Status,
			Score:           p.Score,
			DurationSeconds: p.DurationSeconds,
			Rank:            RankOf(p, participants),
			CompletedAt:     p.CompletedAt,
			InvitedAt:       p.InvitedAt,
			RespondedAt:     p.RespondedAt,
		}
		if p.User != nil {
			entry.Username = p.User.Username
			entry.DisplayName = p.User.Name()
		}
		entries = append(entries, entry)
	}

	return &LeaderboardView{
		Challenge:       challenge,
		Leaderboard:     entries,
		Stats:           Stats(participants),
		SecondsUntilEnd: secondsUntil(s.now(), challenge.EndsAt),
	}, nil
}

// secondsUntil clamps a countdown at zero for display.
func secondsUntil(now, t time.Time) int64 {
	d := int64(t.Sub(now).Seconds())
	if d < 0 {
		return 0
	}
	return d
}
