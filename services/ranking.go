// services/ranking.go - Deterministic ranking over challenge participants
package services

import (
	"sort"

	"savepoint/models"
)

// ChallengeStats aggregates a challenge's participation figures. Score
// statistics cover completed participants only.
type ChallengeStats struct {
	TotalInvited      int     `json:"total_invited"`
	TotalAccepted     int     `json:"total_accepted"`
	TotalDeclined     int     `json:"total_declined"`
	TotalCompleted    int     `json:"total_completed"`
	ParticipationRate float64 `json:"participation_rate"`
	CompletionRate    float64 `json:"completion_rate"`
	AvgScore          float64 `json:"avg_score"`
	MaxScore          int     `json:"max_score"`
	MinScore          int     `json:"min_score"`
}

// ranked reports whether the participant counts for ranking: completed
// with a recorded score.
func ranked(p *models.ChallengeParticipant) bool {
	return p.Status == models.ParticipantCompleted && p.Score != nil
}

// beats reports whether a strictly outranks b: higher score wins, equal
// scores fall back to lower duration (faster is better). Equal on both
// fields beats nothing; such participants share a rank.
func beats(a, b *models.ChallengeParticipant) bool {
	if !ranked(a) || !ranked(b) {
		return false
	}
	if *a.Score != *b.Score {
		return *a.Score > *b.Score
	}
	if a.DurationSeconds == nil || b.DurationSeconds == nil {
		return false
	}
	return *a.DurationSeconds < *b.DurationSeconds
}

// RankOf returns the competition rank of p among participants: one plus
// the number of participants that strictly beat it. Tied (score,
// duration) pairs share a rank and the next distinct pair may skip
// numbers. Returns nil for participants without a recorded score.
func RankOf(p *models.ChallengeParticipant, participants []models.ChallengeParticipant) *int {
	if !ranked(p) {
		return nil
	}
	rank := 1
	for i := range participants {
		q := &participants[i]
		if q.ID == p.ID {
			continue
		}
		if beats(q, p) {
			rank++
		}
	}
	return &rank
}

// SortLeaderboard orders participants for display: scored participants
// first (score DESC, duration ASC), everyone else after, by username so
// the tail is stable.
func SortLeaderboard(participants []models.ChallengeParticipant) {
	sort.SliceStable(participants, func(i, j int) bool {
		a, b := &participants[i], &participants[j]
		if ranked(a) != ranked(b) {
			return ranked(a)
		}
		if ranked(a) && ranked(b) {
			if *a.Score != *b.Score {
				return *a.Score > *b.Score
			}
			da, db := 0, 0
			if a.DurationSeconds != nil {
				da = *a.DurationSeconds
			}
			if b.DurationSeconds != nil {
				db = *b.DurationSeconds
			}
			return da < db
		}
		if a.User != nil && b.User != nil {
			return a.User.Username < b.User.Username
		}
		return a.UserID < b.UserID
	})
}

// Stats computes the aggregate figures for one challenge's participants.
func Stats(participants []models.ChallengeParticipant) ChallengeStats {
	var s ChallengeStats
	s.TotalInvited = len(participants)

	sum := 0
	for i := range participants {
		p := &participants[i]
		if p.Status.HasAccepted() {
			s.TotalAccepted++
		}
		if p.Status == models.ParticipantDeclined {
			s.TotalDeclined++
		}
		if ranked(p) {
			s.TotalCompleted++
			sum += *p.Score
			if *p.Score > s.MaxScore || s.TotalCompleted == 1 {
				s.MaxScore = *p.Score
			}
			if *p.Score < s.MinScore || s.TotalCompleted == 1 {
				s.MinScore = *p.Score
			}
		}
	}

	if s.TotalInvited > 0 {
		s.ParticipationRate = round1(float64(s.TotalAccepted) / float64(s.TotalInvited) * 100)
		s.CompletionRate = round1(float64(s.TotalCompleted) / float64(s.TotalInvited) * 100)
	}
	if s.TotalCompleted > 0 {
		s.AvgScore = round1(float64(sum) / float64(s.TotalCompleted))
	}
	return s
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
