// services/participation_service.go - Student-side challenge transitions
package services

import (
	"fmt"
	"sort"
	"time"

	"savepoint/models"

	"gorm.io/gorm"
)

// InviteAction is a student's answer to a challenge invite.
type InviteAction string

const (
	ActionAccept  InviteAction = "accept"
	ActionDecline InviteAction = "decline"
)

// ParticipationService handles everything a student does with a
// challenge: answering the invite, polling the waiting room and
// submitting a score inside the play window.
type ParticipationService struct {
	store     *ChallengeStore
	lifecycle *LifecycleService
	now       func() time.Time
}

func NewParticipationService(db *gorm.DB) *ParticipationService {
	lc := NewLifecycleService(db)
	return &ParticipationService{
		store:     lc.store,
		lifecycle: lc,
		now:       time.Now,
	}
}

// RespondInvite records an accept or decline for an invited participant.
// Accepting a cancelled challenge is rejected; declining one is allowed
// as a no-op cleanup so the client's pending invite goes away.
func (s *ParticipationService) RespondInvite(auth models.AuthContext, challengeID uint, action InviteAction) (*models.Challenge, *ServiceError) {
	if auth.UserID == 0 {
		return nil, errUnauthenticated()
	}
	if action != ActionAccept && action != ActionDecline {
		return nil, errInvalid(`action must be "accept" or "decline"`)
	}

	participant, err := s.store.GetParticipant(challengeID, auth.UserID)
	if err != nil {
		return nil, notFoundOrInternal("respond_invite.participant",
			"You were not invited to this challenge", err, challengeID, auth.UserID)
	}
	if participant.Status != models.ParticipantInvited {
		return nil, errConflict("You already responded to this invite")
	}

	challenge, serr := s.lifecycle.ObserveChallenge(challengeID)
	if serr != nil {
		return nil, serr
	}
	if action == ActionAccept && challenge.Status == models.ChallengeStatusCancelled {
		return nil, errConflict("This challenge was cancelled")
	}

	status := models.ParticipantAccepted
	if action == ActionDecline {
		status = models.ParticipantDeclined
	}
	if err := s.store.SetParticipantResponse(participant.ID, status, s.now()); err != nil {
		return nil, errInternal("respond_invite.update", err, participant.ID)
	}
	return challenge, nil
}

// SubmitScoreInput is the payload of a score submission.
type SubmitScoreInput struct {
	Score           int   `json:"score"`
	DurationSeconds int   `json:"duration_seconds"`
	GameSessionID   *uint `json:"game_session_id"`
}

// SubmitResult is what the client renders on the result screen without a
// second round trip.
type SubmitResult struct {
	Score          int    `json:"score"`
	Rank           int    `json:"rank"`
	TotalCompleted int    `json:"total_completed"`
	ChallengeTitle string `json:"challenge_title"`
}

// SubmitScore records a completed play. The precondition checks run
// against a fresh read inside one transaction so a submission racing a
// cancellation is rejected even if it started first, and the
// strictly-greater overwrite rule is enforced by a single conditional
// UPDATE rather than a read-then-write pair.
func (s *ParticipationService) SubmitScore(auth models.AuthContext, challengeID uint, in SubmitScoreInput) (*SubmitResult, *ServiceError) {
	if auth.UserID == 0 {
		return nil, errUnauthenticated()
	}
	if in.Score < 0 {
		return nil, errInvalid("Invalid score")
	}
	if in.DurationSeconds < 0 {
		return nil, errInvalid("Invalid duration")
	}

	var (
		title string
		serr  *ServiceError
	)
	txErr := s.store.Transaction(func(tx *ChallengeStore) error {
		participant, err := tx.GetParticipant(challengeID, auth.UserID)
		if err != nil {
			serr = notFoundOrInternal("submit_score.participant",
				"You are not part of this challenge", err, challengeID, auth.UserID)
			return serr
		}
		if !participant.Status.HasAccepted() {
			serr = errConflict("You did not accept this challenge")
			return serr
		}

		challenge, err := tx.GetChallenge(challengeID)
		if err != nil {
			serr = notFoundOrInternal("submit_score.challenge",
				"Challenge not found", err, challengeID)
			return serr
		}
		title = challenge.Title

		if challenge.Status == models.ChallengeStatusCancelled {
			serr = errConflict("This challenge was cancelled")
			return serr
		}

		now := s.now()
		if now.Before(challenge.StartsAt) {
			serr = errConflict("The challenge has not started yet")
			return serr
		}
		if now.After(challenge.EndsAt) {
			serr = errConflict("The challenge window has expired")
			return serr
		}

		applied, err := tx.ApplyScoreIfBetter(participant.ID, in.Score, in.DurationSeconds, now)
		if err != nil {
			serr = errInternal("submit_score.apply", err, participant.ID)
			return serr
		}
		if !applied {
			// Surface the stored score so the client can resynchronize.
			msg := "You already submitted an equal or better score"
			if fresh, rerr := tx.GetParticipant(challengeID, auth.UserID); rerr == nil && fresh.Score != nil {
				msg = fmt.Sprintf("Your stored score of %d is equal or better", *fresh.Score)
			}
			serr = errConflict(msg)
			return serr
		}

		if in.GameSessionID != nil {
			if err := tx.LinkGameSession(*in.GameSessionID, auth.UserID, challengeID); err != nil {
				serr = errInternal("submit_score.link_session", err, *in.GameSessionID)
				return serr
			}
		}
		return nil
	})
	if serr != nil {
		return nil, serr
	}
	if txErr != nil {
		return nil, errInternal("submit_score.tx", txErr, challengeID, auth.UserID)
	}

	participants, err := s.store.ListParticipants(challengeID)
	if err != nil {
		return nil, errInternal("submit_score.rank", err, challengeID)
	}
	rank := 0
	total := 0
	for i := range participants {
		p := &participants[i]
		if ranked(p) {
			total++
		}
		if p.UserID == auth.UserID {
			if r := RankOf(p, participants); r != nil {
				rank = *r
			}
		}
	}

	return &SubmitResult{
		Score:          in.Score,
		Rank:           rank,
		TotalCompleted: total,
		ChallengeTitle: title,
	}, nil
}

// WaitingRoomParticipant is one roster row in the waiting room.
type WaitingRoomParticipant struct {
	UserID      uint                     `json:"user_id"`
	Username    string                   `json:"username"`
	DisplayName string                   `json:"display_name"`
	Status      models.ParticipantStatus `json:"status"`
	InvitedAt   time.Time                `json:"invited_at"`
	RespondedAt *time.Time               `json:"responded_at"`
}

// WaitingRoomView is the poll target students watch until play begins.
type WaitingRoomView struct {
	Challenge         *models.Challenge        `json:"challenge"`
	MyStatus          models.ParticipantStatus `json:"my_status"`
	Participants      []WaitingRoomParticipant `json:"participants"`
	CanPlayNow        bool                     `json:"can_play_now"`
	SecondsUntilStart int64                    `json:"seconds_until_start"`
	SecondsUntilEnd   int64                    `json:"seconds_until_end"`
}

// WaitingRoom returns the reconciled challenge plus the full participant
// roster for the polling pre-start view. Only participants may look.
func (s *ParticipationService) WaitingRoom(auth models.AuthContext, challengeID uint) (*WaitingRoomView, *ServiceError) {
	if auth.UserID == 0 {
		return nil, errUnauthenticated()
	}

	me, err := s.store.GetParticipant(challengeID, auth.UserID)
	if err != nil {
		return nil, notFoundOrInternal("waiting_room.participant",
			"You were not invited to this challenge", err, challengeID, auth.UserID)
	}

	challenge, serr := s.lifecycle.ObserveChallenge(challengeID)
	if serr != nil {
		return nil, serr
	}

	participants, err := s.store.ListParticipants(challengeID)
	if err != nil {
		return nil, errInternal("waiting_room.roster", err, challengeID)
	}

	// Responders first, newest response on top, then the undecided by
	// username.
	sort.SliceStable(participants, func(i, j int) bool {
		a, b := &participants[i], &participants[j]
		switch {
		case a.RespondedAt != nil && b.RespondedAt != nil:
			return a.RespondedAt.After(*b.RespondedAt)
		case a.RespondedAt != nil:
			return true
		case b.RespondedAt != nil:
			return false
		}
		if a.User != nil && b.User != nil {
			return a.User.Username < b.User.Username
		}
		return a.UserID < b.UserID
	})

	roster := make([]WaitingRoomParticipant, 0, len(participants))
	for i := range participants {
		p := &participants[i]
		row := WaitingRoomParticipant{
			UserID:      p.UserID,
			Status:      p.Status,
			InvitedAt:   p.InvitedAt,
			RespondedAt: p.RespondedAt,
		}
		if p.User != nil {
			row.Username = p.User.Username
			row.DisplayName = p.User.Name()
		}
		roster = append(roster, row)
	}

	now := s.now()
	canPlay := me.Status == models.ParticipantAccepted &&
		!challenge.Status.IsTerminal() &&
		!now.Before(challenge.StartsAt) &&
		!now.After(challenge.EndsAt)

	return &WaitingRoomView{
		Challenge:         challenge,
		MyStatus:          me.Status,
		Participants:      roster,
		CanPlayNow:        canPlay,
		SecondsUntilStart: secondsUntil(now, challenge.StartsAt),
		SecondsUntilEnd:   secondsUntil(now, challenge.EndsAt),
	}, nil
}

// StudentChallengeView is one row of a student's challenge list.
type StudentChallengeView struct {
	Challenge         *models.Challenge        `json:"challenge"`
	MyStatus          models.ParticipantStatus `json:"my_status"`
	Score             *int                     `json:"score"`
	DurationSeconds   *int                     `json:"duration_seconds"`
	Rank              *int                     `json:"rank"`
	CompletedAt       *time.Time               `json:"completed_at"`
	CanPlayNow        bool                     `json:"can_play_now"`
	CanRespond        bool                     `json:"can_respond"`
	SecondsUntilStart int64                    `json:"seconds_until_start"`
	SecondsUntilEnd   int64                    `json:"seconds_until_end"`
}

// challengeListOrder mirrors the dashboard ordering: live things first.
var challengeListOrder = map[models.ChallengeStatus]int{
	models.ChallengeStatusPending:   1,
	models.ChallengeStatusActive:    2,
	models.ChallengeStatusCompleted: 3,
	models.ChallengeStatusCancelled: 4,
}

// MyChallenges lists everything the student was ever invited to,
// optionally filtered by their own participation status.
func (s *ParticipationService) MyChallenges(auth models.AuthContext, status models.ParticipantStatus, limit int) ([]StudentChallengeView, *ServiceError) {
	if auth.UserID == 0 {
		return nil, errUnauthenticated()
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	participations, err := s.store.ListStudentParticipations(auth.UserID, status, limit)
	if err != nil {
		return nil, errInternal("my_challenges", err, auth.UserID)
	}

	now := s.now()
	views := make([]StudentChallengeView, 0, len(participations))
	for i := range participations {
		p := &participations[i]
		if p.Challenge == nil {
			continue
		}
		ch := p.Challenge
		s.lifecycle.reconcile(ch)

		view := StudentChallengeView{
			Challenge:         ch,
			MyStatus:          p.Status,
			Score:             p.Score,
			DurationSeconds:   p.DurationSeconds,
			CompletedAt:       p.CompletedAt,
			SecondsUntilStart: secondsUntil(now, ch.StartsAt),
			SecondsUntilEnd:   secondsUntil(now, ch.EndsAt),
		}
		view.CanPlayNow = p.Status == models.ParticipantAccepted &&
			ch.Status == models.ChallengeStatusActive &&
			!now.Before(ch.StartsAt) && !now.After(ch.EndsAt)
		view.CanRespond = p.Status == models.ParticipantInvited &&
			ch.Status == models.ChallengeStatusPending &&
			now.Before(ch.StartsAt)

		if p.Status == models.ParticipantCompleted && p.Score != nil {
			completed, err := s.store.ListParticipants(ch.ID)
			if err == nil {
				view.Rank = RankOf(p, completed)
			}
		}
		views = append(views, view)
	}

	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if challengeListOrder[a.Challenge.Status] != challengeListOrder[b.Challenge.Status] {
			return challengeListOrder[a.Challenge.Status] < challengeListOrder[b.Challenge.Status]
		}
		return a.Challenge.StartsAt.After(b.Challenge.StartsAt)
	})
	return views, nil
}
