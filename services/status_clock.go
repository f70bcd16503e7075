// services/status_clock.go - Lazy time-based challenge transitions
package services

import (
	"time"

	"savepoint/models"
)

// ReconcileStatus maps a challenge's stored status and the current time to
// the status it should have. It is pure and idempotent: applying it
// repeatedly between two instants yields the same result as applying it
// once at the later instant, which is what makes read-triggered (lazy)
// evaluation safe without a background scheduler.
//
// Transitions:
//
//	pending + now within [starts_at, ends_at] -> active
//	active  + now past ends_at               -> completed
//
// Cancelled and completed are absorbing.
func ReconcileStatus(ch *models.Challenge, now time.Time) (models.ChallengeStatus, bool) {
	switch ch.Status {
	case models.ChallengeStatusPending:
		if !now.Before(ch.StartsAt) && !now.After(ch.EndsAt) {
			return models.ChallengeStatusActive, true
		}
		// A pending challenge read only after its window closed skips
		// straight to completed so sparse polling cannot strand it.
		if now.After(ch.EndsAt) {
			return models.ChallengeStatusCompleted, true
		}
	case models.ChallengeStatusActive:
		if now.After(ch.EndsAt) {
			return models.ChallengeStatusCompleted, true
		}
	}
	return ch.Status, false
}
