package services

import (
	"testing"
	"time"

	"savepoint/models"
)

func clockChallenge(status models.ChallengeStatus, startsAt time.Time, durationMinutes int) *models.Challenge {
	return &models.Challenge{
		Status:          status,
		StartsAt:        startsAt,
		EndsAt:          startsAt.Add(time.Duration(durationMinutes) * time.Minute),
		DurationMinutes: durationMinutes,
	}
}

func TestReconcileStatusPendingBeforeStart(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ch := clockChallenge(models.ChallengeStatusPending, start, 10)

	status, changed := ReconcileStatus(ch, start.Add(-30*time.Second))
	if changed {
		t.Fatalf("expected no transition before start, got %s", status)
	}
	if status != models.ChallengeStatusPending {
		t.Fatalf("status = %s, want pending", status)
	}
}

func TestReconcileStatusPendingToActive(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ch := clockChallenge(models.ChallengeStatusPending, start, 10)

	// Boundary: exactly at starts_at the window is open.
	status, changed := ReconcileStatus(ch, start)
	if !changed || status != models.ChallengeStatusActive {
		t.Fatalf("at starts_at: status = %s changed = %v, want active/true", status, changed)
	}

	status, changed = ReconcileStatus(ch, start.Add(5*time.Minute))
	if !changed || status != models.ChallengeStatusActive {
		t.Fatalf("mid-window: status = %s changed = %v, want active/true", status, changed)
	}
}

func TestReconcileStatusActiveToCompleted(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ch := clockChallenge(models.ChallengeStatusActive, start, 10)

	// Exactly at ends_at the window is still open.
	status, changed := ReconcileStatus(ch, ch.EndsAt)
	if changed {
		t.Fatalf("at ends_at: unexpected transition to %s", status)
	}

	status, changed = ReconcileStatus(ch, ch.EndsAt.Add(time.Second))
	if !changed || status != models.ChallengeStatusCompleted {
		t.Fatalf("past ends_at: status = %s changed = %v, want completed/true", status, changed)
	}
}

func TestReconcileStatusPendingSkipsToCompleted(t *testing.T) {
	// A challenge nobody read during its window must not get stuck: the
	// first read after the window lands directly on completed.
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ch := clockChallenge(models.ChallengeStatusPending, start, 10)

	status, changed := ReconcileStatus(ch, ch.EndsAt.Add(time.Hour))
	if !changed || status != models.ChallengeStatusCompleted {
		t.Fatalf("status = %s changed = %v, want completed/true", status, changed)
	}
}

func TestReconcileStatusTerminalAbsorbing(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for _, terminal := range []models.ChallengeStatus{
		models.ChallengeStatusCancelled,
		models.ChallengeStatusCompleted,
	} {
		ch := clockChallenge(terminal, start, 10)
		for _, at := range []time.Time{
			start.Add(-time.Minute),
			start.Add(5 * time.Minute),
			start.Add(time.Hour),
		} {
			if status, changed := ReconcileStatus(ch, at); changed {
				t.Fatalf("%s moved to %s at %v", terminal, status, at)
			}
		}
	}
}

func TestReconcileStatusIdempotentOverSparsePolls(t *testing.T) {
	// Reconciling at T+2m then T+12m must land on the same status as a
	// single reconcile at T+12m.
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	duration := 10

	stepped := clockChallenge(models.ChallengeStatusPending, start, duration)
	if status, changed := ReconcileStatus(stepped, start.Add(2*time.Minute)); changed {
		stepped.Status = status
	}
	if status, changed := ReconcileStatus(stepped, start.Add(12*time.Minute)); changed {
		stepped.Status = status
	}

	direct := clockChallenge(models.ChallengeStatusPending, start, duration)
	if status, changed := ReconcileStatus(direct, start.Add(12*time.Minute)); changed {
		direct.Status = status
	}

	if stepped.Status != direct.Status {
		t.Fatalf("stepped = %s, direct = %s", stepped.Status, direct.Status)
	}
	if stepped.Status != models.ChallengeStatusCompleted {
		t.Fatalf("final status = %s, want completed", stepped.Status)
	}
}
