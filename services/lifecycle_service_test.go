package services

import (
	"testing"
	"time"

	"savepoint/models"
)

var testT0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestLifecycle(t *testing.T, at time.Time) (*LifecycleService, *models.User, []*models.User, *models.Game) {
	t.Helper()
	db := openTestDB(t)

	teacher := seedUser(t, db, "prof", true)
	s1 := seedUser(t, db, "alice", false)
	s2 := seedUser(t, db, "bruno", false)
	game := seedGame(t, db, "MathRush")

	svc := NewLifecycleService(db)
	svc.now = fixedClock(at)
	return svc, teacher, []*models.User{s1, s2}, game
}

func createIndividualChallenge(t *testing.T, svc *LifecycleService, teacher *models.User, game *models.Game, students []*models.User) *models.Challenge {
	t.Helper()
	ids := make([]uint, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	challenge, invited, serr := svc.CreateChallenge(teacherAuth(teacher), CreateChallengeInput{
		GameID:          game.ID,
		Title:           "Friday quiz",
		Type:            models.ChallengeTypeIndividual,
		StudentIDs:      ids,
		DurationMinutes: 10,
	})
	if serr != nil {
		t.Fatalf("CreateChallenge: %v", serr)
	}
	if invited != len(students) {
		t.Fatalf("invited = %d, want %d", invited, len(students))
	}
	return challenge
}

func TestCreateChallengeIndividual(t *testing.T) {
	svc, teacher, students, game := newTestLifecycle(t, testT0)

	challenge := createIndividualChallenge(t, svc, teacher, game, students)

	if challenge.Status != models.ChallengeStatusPending {
		t.Fatalf("status = %s, want pending", challenge.Status)
	}
	if !challenge.StartsAt.Equal(testT0.Add(time.Minute)) {
		t.Fatalf("StartsAt = %v, want %v", challenge.StartsAt, testT0.Add(time.Minute))
	}
	if !challenge.EndsAt.Equal(challenge.StartsAt.Add(10 * time.Minute)) {
		t.Fatalf("EndsAt = %v, want start+10m", challenge.EndsAt)
	}

	var participants []models.ChallengeParticipant
	svc.store.db.Where("challenge_id = ?", challenge.ID).Find(&participants)
	if len(participants) != 2 {
		t.Fatalf("participants = %d, want 2", len(participants))
	}
	for _, p := range participants {
		if p.Status != models.ParticipantInvited {
			t.Fatalf("participant %d status = %s, want invited", p.UserID, p.Status)
		}
	}

	var notifications []models.Notification
	svc.store.db.Where("challenge_id = ?", challenge.ID).Find(&notifications)
	if len(notifications) != 2 {
		t.Fatalf("notifications = %d, want 2", len(notifications))
	}
	for _, n := range notifications {
		if n.Type != models.NotificationChallengeInvite {
			t.Fatalf("notification type = %s, want challenge_invite", n.Type)
		}
		if n.ExpiresAt == nil || !n.ExpiresAt.Equal(challenge.StartsAt) {
			t.Fatalf("notification expiry = %v, want starts_at", n.ExpiresAt)
		}
	}
}

func TestCreateChallengeValidation(t *testing.T) {
	svc, teacher, students, game := newTestLifecycle(t, testT0)

	valid := CreateChallengeInput{
		GameID:          game.ID,
		Title:           "Quiz",
		Type:            models.ChallengeTypeIndividual,
		StudentIDs:      []uint{students[0].ID},
		DurationMinutes: 10,
	}

	cases := []struct {
		name       string
		auth       models.AuthContext
		mutate     func(*CreateChallengeInput)
		wantStatus int
	}{
		{"unauthenticated", models.AuthContext{}, nil, 401},
		{"student caller", studentAuth(students[0]), nil, 403},
		{"empty title", teacherAuth(teacher), func(in *CreateChallengeInput) { in.Title = "  " }, 422},
		{"duration too short", teacherAuth(teacher), func(in *CreateChallengeInput) { in.DurationMinutes = 2 }, 422},
		{"duration too long", teacherAuth(teacher), func(in *CreateChallengeInput) { in.DurationMinutes = 61 }, 422},
		{"bad type", teacherAuth(teacher), func(in *CreateChallengeInput) { in.Type = "squad" }, 422},
		{"no students", teacherAuth(teacher), func(in *CreateChallengeInput) { in.StudentIDs = nil }, 422},
		{"unknown student", teacherAuth(teacher), func(in *CreateChallengeInput) { in.StudentIDs = []uint{9999} }, 422},
		{"unknown game", teacherAuth(teacher), func(in *CreateChallengeInput) { in.GameID = 9999 }, 404},
	}

	for _, tc := range cases {
		in := valid
		if tc.mutate != nil {
			tc.mutate(&in)
		}
		_, _, serr := svc.CreateChallenge(tc.auth, in)
		if serr == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if serr.Status != tc.wantStatus {
			t.Fatalf("%s: status = %d, want %d (%s)", tc.name, serr.Status, tc.wantStatus, serr.Message)
		}
	}

	// None of the rejected attempts may leave partial rows behind.
	var challenges, participants, notifications int64
	svc.store.db.Model(&models.Challenge{}).Count(&challenges)
	svc.store.db.Model(&models.ChallengeParticipant{}).Count(&participants)
	svc.store.db.Model(&models.Notification{}).Count(&notifications)
	if challenges != 0 || participants != 0 || notifications != 0 {
		t.Fatalf("partial writes: %d challenges, %d participants, %d notifications",
			challenges, participants, notifications)
	}
}

func TestCreateChallengeClassInvitesActiveStudentsOnly(t *testing.T) {
	db := openTestDB(t)
	teacher := seedUser(t, db, "prof", true)
	active := seedUser(t, db, "alice", false)
	pending := seedUser(t, db, "bruno", false)
	game := seedGame(t, db, "MathRush")

	class := &models.Class{TeacherID: teacher.ID, Name: "7B", Code: "AB23CD"}
	if err := db.Create(class).Error; err != nil {
		t.Fatalf("seed class: %v", err)
	}
	db.Create(&models.ClassStudent{ClassID: class.ID, StudentID: active.ID, Status: models.ClassStudentActive, InvitedAt: testT0})
	db.Create(&models.ClassStudent{ClassID: class.ID, StudentID: pending.ID, Status: models.ClassStudentPending, InvitedAt: testT0})

	svc := NewLifecycleService(db)
	svc.now = fixedClock(testT0)

	challenge, invited, serr := svc.CreateChallenge(teacherAuth(teacher), CreateChallengeInput{
		GameID:          game.ID,
		Title:           "Class quiz",
		Type:            models.ChallengeTypeClass,
		ClassID:         &class.ID,
		DurationMinutes: 5,
	})
	if serr != nil {
		t.Fatalf("CreateChallenge: %v", serr)
	}
	if invited != 1 {
		t.Fatalf("invited = %d, want 1", invited)
	}

	var participants []models.ChallengeParticipant
	db.Where("challenge_id = ?", challenge.ID).Find(&participants)
	if len(participants) != 1 || participants[0].UserID != active.ID {
		t.Fatalf("unexpected invite list: %+v", participants)
	}
}

func TestCancelChallenge(t *testing.T) {
	svc, teacher, students, game := newTestLifecycle(t, testT0)
	challenge := createIndividualChallenge(t, svc, teacher, game, students)

	notified, serr := svc.CancelChallenge(teacherAuth(teacher), challenge.ID)
	if serr != nil {
		t.Fatalf("CancelChallenge: %v", serr)
	}
	if notified != 2 {
		t.Fatalf("notified = %d, want 2", notified)
	}

	var stored models.Challenge
	svc.store.db.First(&stored, challenge.ID)
	if stored.Status != models.ChallengeStatusCancelled {
		t.Fatalf("stored status = %s, want cancelled", stored.Status)
	}

	// Outstanding invite notifications must no longer be actionable.
	var openInvites int64
	svc.store.db.Model(&models.Notification{}).
		Where("challenge_id = ? AND type = ? AND is_read = ?",
			challenge.ID, models.NotificationChallengeInvite, false).
		Count(&openInvites)
	if openInvites != 0 {
		t.Fatalf("open invite notifications = %d, want 0", openInvites)
	}

	// Cancelling twice is a conflict.
	_, serr = svc.CancelChallenge(teacherAuth(teacher), challenge.ID)
	if serr == nil || serr.Status != 409 {
		t.Fatalf("second cancel: got %v, want 409", serr)
	}
}

func TestCancelChallengeOwnershipAndRole(t *testing.T) {
	svc, teacher, students, game := newTestLifecycle(t, testT0)
	challenge := createIndividualChallenge(t, svc, teacher, game, students)

	other := seedUser(t, svc.store.db, "rival", true)
	if _, serr := svc.CancelChallenge(teacherAuth(other), challenge.ID); serr == nil || serr.Status != 403 {
		t.Fatalf("other teacher cancel: got %v, want 403", serr)
	}
	if _, serr := svc.CancelChallenge(studentAuth(students[0]), challenge.ID); serr == nil || serr.Status != 403 {
		t.Fatalf("student cancel: got %v, want 403", serr)
	}
	if _, serr := svc.CancelChallenge(teacherAuth(teacher), 9999); serr == nil || serr.Status != 404 {
		t.Fatalf("missing challenge cancel: got %v, want 404", serr)
	}
}

func TestObserveChallengeAdvancesLazily(t *testing.T) {
	svc, teacher, students, game := newTestLifecycle(t, testT0)
	challenge := createIndividualChallenge(t, svc, teacher, game, students)

	// Still pending just before the window opens.
	svc.now = fixedClock(testT0.Add(30 * time.Second))
	got, serr := svc.ObserveChallenge(challenge.ID)
	if serr != nil {
		t.Fatalf("observe: %v", serr)
	}
	if got.Status != models.ChallengeStatusPending {
		t.Fatalf("pre-start status = %s, want pending", got.Status)
	}

	// Inside the window the read itself moves the row to active.
	svc.now = fixedClock(testT0.Add(2 * time.Minute))
	got, serr = svc.ObserveChallenge(challenge.ID)
	if serr != nil {
		t.Fatalf("observe: %v", serr)
	}
	if got.Status != models.ChallengeStatusActive {
		t.Fatalf("in-window status = %s, want active", got.Status)
	}
	var stored models.Challenge
	svc.store.db.First(&stored, challenge.ID)
	if stored.Status != models.ChallengeStatusActive {
		t.Fatalf("stored status = %s, want active", stored.Status)
	}

	// Past the window the read completes the challenge and retires the
	// remaining invites.
	svc.now = fixedClock(testT0.Add(20 * time.Minute))
	got, serr = svc.ObserveChallenge(challenge.ID)
	if serr != nil {
		t.Fatalf("observe: %v", serr)
	}
	if got.Status != models.ChallengeStatusCompleted {
		t.Fatalf("post-window status = %s, want completed", got.Status)
	}

	var openInvites int64
	svc.store.db.Model(&models.Notification{}).
		Where("challenge_id = ? AND type = ? AND is_read = ?",
			challenge.ID, models.NotificationChallengeInvite, false).
		Count(&openInvites)
	if openInvites != 0 {
		t.Fatalf("open invite notifications = %d, want 0", openInvites)
	}

	// Completed is absorbing; a later read changes nothing.
	svc.now = fixedClock(testT0.Add(24 * time.Hour))
	got, serr = svc.ObserveChallenge(challenge.ID)
	if serr != nil {
		t.Fatalf("observe: %v", serr)
	}
	if got.Status != models.ChallengeStatusCompleted {
		t.Fatalf("later status = %s, want completed", got.Status)
	}
}

func TestPendingChallengeSkipsToCompletedWhenUnobserved(t *testing.T) {
	svc, teacher, students, game := newTestLifecycle(t, testT0)
	challenge := createIndividualChallenge(t, svc, teacher, game, students)

	// Nobody reads during the window; the first read after it must land
	// on completed, never back on active.
	svc.now = fixedClock(testT0.Add(time.Hour))
	got, serr := svc.ObserveChallenge(challenge.ID)
	if serr != nil {
		t.Fatalf("observe: %v", serr)
	}
	if got.Status != models.ChallengeStatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
}

func TestLeaderboardRanksAndAccess(t *testing.T) {
	svc, teacher, students, game := newTestLifecycle(t, testT0)
	challenge := createIndividualChallenge(t, svc, teacher, game, students)

	db := svc.store.db
	score1, dur1 := 80, 120
	score2, dur2 := 80, 90
	db.Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ? AND user_id = ?", challenge.ID, students[0].ID).
		Updates(map[string]interface{}{"status": models.ParticipantCompleted, "score": score1, "duration_seconds": dur1})
	db.Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ? AND user_id = ?", challenge.ID, students[1].ID).
		Updates(map[string]interface{}{"status": models.ParticipantCompleted, "score": score2, "duration_seconds": dur2})

	svc.now = fixedClock(testT0.Add(20 * time.Minute))
	view, serr := svc.Leaderboard(teacherAuth(teacher), challenge.ID)
	if serr != nil {
		t.Fatalf("Leaderboard: %v", serr)
	}

	if len(view.Leaderboard) != 2 {
		t.Fatalf("entries = %d, want 2", len(view.Leaderboard))
	}
	// Same score, faster run wins the tie-break.
	if view.Leaderboard[0].UserID != students[1].ID {
		t.Fatalf("first place = user %d, want %d", view.Leaderboard[0].UserID, students[1].ID)
	}
	if view.Leaderboard[0].Rank == nil || *view.Leaderboard[0].Rank != 1 {
		t.Fatalf("first rank = %v, want 1", view.Leaderboard[0].Rank)
	}
	if view.Leaderboard[1].Rank == nil || *view.Leaderboard[1].Rank != 2 {
		t.Fatalf("second rank = %v, want 2", view.Leaderboard[1].Rank)
	}
	if view.Stats.TotalCompleted != 2 {
		t.Fatalf("stats completed = %d, want 2", view.Stats.TotalCompleted)
	}

	other := seedUser(t, db, "rival", true)
	if _, serr := svc.Leaderboard(teacherAuth(other), challenge.ID); serr == nil || serr.Status != 403 {
		t.Fatalf("other teacher leaderboard: got %v, want 403", serr)
	}
	if _, serr := svc.Leaderboard(studentAuth(students[0]), challenge.ID); serr == nil || serr.Status != 403 {
		t.Fatalf("student leaderboard: got %v, want 403", serr)
	}
}

func TestListTeacherChallengesReconcilesEachRow(t *testing.T) {
	svc, teacher, students, game := newTestLifecycle(t, testT0)
	challenge := createIndividualChallenge(t, svc, teacher, game, students)

	svc.now = fixedClock(testT0.Add(2 * time.Minute))
	views, serr := svc.ListTeacherChallenges(teacherAuth(teacher), "", nil, 50)
	if serr != nil {
		t.Fatalf("ListTeacherChallenges: %v", serr)
	}
	if len(views) != 1 {
		t.Fatalf("views = %d, want 1", len(views))
	}
	if views[0].Challenge.ID != challenge.ID {
		t.Fatalf("challenge id = %d, want %d", views[0].Challenge.ID, challenge.ID)
	}
	if views[0].Challenge.Status != models.ChallengeStatusActive {
		t.Fatalf("status = %s, want active", views[0].Challenge.Status)
	}
	if views[0].TotalParticipants != 2 {
		t.Fatalf("total participants = %d, want 2", views[0].TotalParticipants)
	}
	if !views[0].CanCancel {
		t.Fatalf("active challenge should be cancellable")
	}
}
