package services

import (
	"strings"
	"testing"
	"time"

	"savepoint/models"
)

func newTestClassService(t *testing.T) (*ClassService, *models.User, *models.User) {
	t.Helper()
	db := openTestDB(t)
	teacher := seedUser(t, db, "prof", true)
	student := seedUser(t, db, "alice", false)

	svc := NewClassService(db)
	svc.now = fixedClock(testT0)
	return svc, teacher, student
}

func TestCreateClassGeneratesCode(t *testing.T) {
	svc, teacher, student := newTestClassService(t)

	class, serr := svc.CreateClass(teacherAuth(teacher), CreateClassInput{Name: "7B", SchoolYear: "2026"})
	if serr != nil {
		t.Fatalf("CreateClass: %v", serr)
	}
	if len(class.Code) != 6 {
		t.Fatalf("code = %q, want 6 characters", class.Code)
	}
	for _, r := range class.Code {
		if !strings.ContainsRune(classCodeCharset, r) {
			t.Fatalf("code %q contains %q outside the charset", class.Code, r)
		}
	}

	if _, serr := svc.CreateClass(studentAuth(student), CreateClassInput{Name: "8A"}); serr == nil || serr.Status != 403 {
		t.Fatalf("student create: got %v, want 403", serr)
	}
	if _, serr := svc.CreateClass(teacherAuth(teacher), CreateClassInput{Name: "  "}); serr == nil || serr.Status != 422 {
		t.Fatalf("blank name: got %v, want 422", serr)
	}
}

func TestInviteAndRespondClassInvite(t *testing.T) {
	svc, teacher, student := newTestClassService(t)

	class, serr := svc.CreateClass(teacherAuth(teacher), CreateClassInput{Name: "7B"})
	if serr != nil {
		t.Fatalf("CreateClass: %v", serr)
	}

	row, serr := svc.InviteStudent(teacherAuth(teacher), class.ID, student.Username)
	if serr != nil {
		t.Fatalf("InviteStudent: %v", serr)
	}
	if row.Status != models.ClassStudentPending {
		t.Fatalf("status = %s, want pending", row.Status)
	}

	// The invite produces a notification the student can act on.
	var n models.Notification
	if err := svc.db.Where("user_id = ? AND type = ?", student.ID, models.NotificationClassInvite).First(&n).Error; err != nil {
		t.Fatalf("invite notification missing: %v", err)
	}

	// Re-inviting while pending conflicts.
	if _, serr := svc.InviteStudent(teacherAuth(teacher), class.ID, student.Username); serr == nil || serr.Status != 409 {
		t.Fatalf("double invite: got %v, want 409", serr)
	}
	if _, serr := svc.InviteStudent(teacherAuth(teacher), class.ID, "ghost"); serr == nil || serr.Status != 404 {
		t.Fatalf("unknown username: got %v, want 404", serr)
	}
	if _, serr := svc.InviteStudent(teacherAuth(teacher), class.ID, teacher.Username); serr == nil || serr.Status != 422 {
		t.Fatalf("self invite: got %v, want 422", serr)
	}

	membership, serr := svc.RespondClassInvite(studentAuth(student), class.ID, true)
	if serr != nil {
		t.Fatalf("RespondClassInvite: %v", serr)
	}
	if membership.Status != models.ClassStudentActive {
		t.Fatalf("status = %s, want active", membership.Status)
	}
	if membership.RespondedAt == nil {
		t.Fatalf("responded_at not stamped")
	}

	// The invite notification is retired once answered.
	svc.db.First(&n, n.ID)
	if !n.IsRead {
		t.Fatalf("invite notification still unread")
	}

	// Answering twice conflicts.
	if _, serr := svc.RespondClassInvite(studentAuth(student), class.ID, false); serr == nil || serr.Status != 409 {
		t.Fatalf("second respond: got %v, want 409", serr)
	}
}

func TestReinviteAfterRejection(t *testing.T) {
	svc, teacher, student := newTestClassService(t)

	class, _ := svc.CreateClass(teacherAuth(teacher), CreateClassInput{Name: "7B"})
	if _, serr := svc.InviteStudent(teacherAuth(teacher), class.ID, student.Username); serr != nil {
		t.Fatalf("invite: %v", serr)
	}
	if _, serr := svc.RespondClassInvite(studentAuth(student), class.ID, false); serr != nil {
		t.Fatalf("reject: %v", serr)
	}

	svc.now = fixedClock(testT0.Add(time.Hour))
	row, serr := svc.InviteStudent(teacherAuth(teacher), class.ID, student.Username)
	if serr != nil {
		t.Fatalf("reinvite: %v", serr)
	}
	if row.Status != models.ClassStudentPending {
		t.Fatalf("status = %s, want pending", row.Status)
	}
	if row.RespondedAt != nil {
		t.Fatalf("responded_at should reset on reinvite")
	}
}

func TestRemoveStudent(t *testing.T) {
	svc, teacher, student := newTestClassService(t)

	class, _ := svc.CreateClass(teacherAuth(teacher), CreateClassInput{Name: "7B"})
	if _, serr := svc.InviteStudent(teacherAuth(teacher), class.ID, student.Username); serr != nil {
		t.Fatalf("invite: %v", serr)
	}
	if _, serr := svc.RespondClassInvite(studentAuth(student), class.ID, true); serr != nil {
		t.Fatalf("accept: %v", serr)
	}

	if serr := svc.RemoveStudent(teacherAuth(teacher), class.ID, student.ID); serr != nil {
		t.Fatalf("RemoveStudent: %v", serr)
	}

	var row models.ClassStudent
	svc.db.Where("class_id = ? AND student_id = ?", class.ID, student.ID).First(&row)
	if row.Status != models.ClassStudentRemoved {
		t.Fatalf("status = %s, want removed", row.Status)
	}

	// Removing again finds nothing removable.
	if serr := svc.RemoveStudent(teacherAuth(teacher), class.ID, student.ID); serr == nil || serr.Status != 404 {
		t.Fatalf("second remove: got %v, want 404", serr)
	}

	// A teacher who does not own the class cannot see it at all.
	other := seedUser(t, svc.db, "rival", true)
	if serr := svc.RemoveStudent(teacherAuth(other), class.ID, student.ID); serr == nil || serr.Status != 404 {
		t.Fatalf("other teacher remove: got %v, want 404", serr)
	}
}

func TestGetClassesCounts(t *testing.T) {
	svc, teacher, student := newTestClassService(t)
	other := seedUser(t, svc.db, "bruno", false)

	class, _ := svc.CreateClass(teacherAuth(teacher), CreateClassInput{Name: "7B"})
	svc.InviteStudent(teacherAuth(teacher), class.ID, student.Username)
	svc.InviteStudent(teacherAuth(teacher), class.ID, other.Username)
	svc.RespondClassInvite(studentAuth(student), class.ID, true)

	views, serr := svc.GetClasses(teacherAuth(teacher))
	if serr != nil {
		t.Fatalf("GetClasses: %v", serr)
	}
	if len(views) != 1 {
		t.Fatalf("views = %d, want 1", len(views))
	}
	if views[0].ActiveCount != 1 || views[0].PendingCount != 1 {
		t.Fatalf("counts = %d active / %d pending, want 1/1", views[0].ActiveCount, views[0].PendingCount)
	}
}
