// services/class_service.go - Class roster management
package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"savepoint/models"

	"gorm.io/gorm"
)

// Class codes avoid easily-confused characters (0/O, 1/I/L).
const classCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// ClassService manages a teacher's classes and their student rosters.
// Rosters feed challenge creation: a class challenge invites every
// active student of the class.
type ClassService struct {
	db       *gorm.DB
	notifier *NotificationEmitter
	now      func() time.Time
}

func NewClassService(db *gorm.DB) *ClassService {
	return &ClassService{
		db:       db,
		notifier: NewNotificationEmitter(db),
		now:      time.Now,
	}
}

// ================== CLASS CRUD ==================

// CreateClassInput is the payload for CreateClass.
type CreateClassInput struct {
	Name       string `json:"name"`
	SchoolYear string `json:"school_year"`
}

// CreateClass creates a class with a fresh join code.
func (s *ClassService) CreateClass(auth models.AuthContext, in CreateClassInput) (*models.Class, *ServiceError) {
	if auth.UserID == 0 {
		return nil, errUnauthenticated()
	}
	if !auth.IsTeacher {
		return nil, errForbidden("Only teachers can create classes")
	}

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, errInvalid("Class name is required")
	}

	code, err := s.generateUniqueClassCode()
	if err != nil {
		return nil, errInternal("create_class.code", err, auth.UserID)
	}

	class := &models.Class{
		TeacherID:  auth.UserID,
		Name:       in.Name,
		Code:       code,
		SchoolYear: strings.TrimSpace(in.SchoolYear),
		CreatedAt:  s.now(),
	}
	if err := s.db.Create(class).Error; err != nil {
		return nil, errInternal("create_class.insert", err, auth.UserID)
	}
	return class, nil
}

// ClassView is one row of the teacher's class list.
type ClassView struct {
	Class        *models.Class `json:"class"`
	ActiveCount  int64         `json:"active_count"`
	PendingCount int64         `json:"pending_count"`
}

// GetClasses lists the caller's classes with roster counts.
func (s *ClassService) GetClasses(auth models.AuthContext) ([]ClassView, *ServiceError) {
	if auth.UserID == 0 {
		return nil, errUnauthenticated()
	}
	if !auth.IsTeacher {
		return nil, errForbidden("Only teachers can list classes")
	}

	var classes []models.Class
	err := s.db.Where("teacher_id = ?", auth.UserID).
		Order("created_at DESC").
		Find(&classes).Error
	if err != nil {
		return nil, errInternal("get_classes", err, auth.UserID)
	}

	views := make([]ClassView, 0, len(classes))
	for i := range classes {
		class := &classes[i]
		view := ClassView{Class: class}
		s.db.Model(&models.ClassStudent{}).
			Where("class_id = ? AND status = ?", class.ID, models.ClassStudentActive).
			Count(&view.ActiveCount)
		s.db.Model(&models.ClassStudent{}).
			Where("class_id = ? AND status = ?", class.ID, models.ClassStudentPending).
			Count(&view.PendingCount)
		views = append(views, view)
	}
	return views, nil
}

// GetClassStudents returns the full roster of one of the caller's
// classes, including pending and removed rows so the teacher sees invite
// history.
func (s *ClassService) GetClassStudents(auth models.AuthContext, classID uint) ([]models.ClassStudent, *ServiceError) {
	if auth.UserID == 0 {
		return nil, errUnauthenticated()
	}
	if !auth.IsTeacher {
		return nil, errForbidden("Only teachers can view class rosters")
	}
	if _, serr := s.ownedClass(classID, auth.UserID); serr != nil {
		return nil, serr
	}

	var students []models.ClassStudent
	err := s.db.Where("class_id = ?", classID).
		Preload("Student").
		Order("invited_at DESC").
		Find(&students).Error
	if err != nil {
		return nil, errInternal("get_class_students", err, classID)
	}
	return students, nil
}

// ================== ROSTER OPERATIONS ==================

// InviteStudent invites a student to a class by username. A student who
// previously rejected or was removed can be invited again; an active or
// pending row conflicts.
func (s *ClassService) InviteStudent(auth models.AuthContext, classID uint, username string) (*models.ClassStudent, *ServiceError) {
	if auth.UserID == 0 {
		return nil, errUnauthenticated()
	}
	if !auth.IsTeacher {
		return nil, errForbidden("Only teachers can invite students")
	}

	class, serr := s.ownedClass(classID, auth.UserID)
	if serr != nil {
		return nil, serr
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errInvalid("Username is required")
	}

	var student models.User
	err := s.db.Where("username = ? AND is_active = ?", username, true).
		First(&student).Error
	if err != nil {
		return nil, notFoundOrInternal("invite_student.user", "Student not found", err, classID)
	}
	if student.ID == auth.UserID {
		return nil, errInvalid("You cannot invite yourself")
	}

	now := s.now()
	var existing models.ClassStudent
	err = s.db.Where("class_id = ? AND student_id = ?", classID, student.ID).
		First(&existing).Error
	switch {
	case err == nil:
		if existing.Status == models.ClassStudentActive || existing.Status == models.ClassStudentPending {
			return nil, errConflict("Student is already in this class or has a pending invite")
		}
		// Re-invite after a rejection or removal reuses the row.
		updates := map[string]interface{}{
			"status":       models.ClassStudentPending,
			"invited_at":   now,
			"responded_at": nil,
		}
		if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
			return nil, errInternal("invite_student.reinvite", err, existing.ID)
		}
		existing.Status = models.ClassStudentPending
		existing.InvitedAt = now
		existing.RespondedAt = nil
		s.emitClassInvite(&student, class)
		existing.Student = &student
		return &existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := &models.ClassStudent{
			ClassID:   classID,
			StudentID: student.ID,
			Status:    models.ClassStudentPending,
			InvitedAt: now,
		}
		if err := s.db.Create(row).Error; err != nil {
			return nil, errInternal("invite_student.insert", err, classID, student.ID)
		}
		s.emitClassInvite(&student, class)
		row.Student = &student
		return row, nil
	default:
		return nil, errInternal("invite_student.lookup", err, classID, student.ID)
	}
}

// RespondClassInvite records a student's answer to a pending class
// invite and retires the matching notification.
func (s *ClassService) RespondClassInvite(auth models.AuthContext, classID uint, accept bool) (*models.ClassStudent, *ServiceError) {
	if auth.UserID == 0 {
		return nil, errUnauthenticated()
	}

	var row models.ClassStudent
	err := s.db.Where("class_id = ? AND student_id = ?", classID, auth.UserID).
		First(&row).Error
	if err != nil {
		return nil, notFoundOrInternal("respond_class_invite.lookup",
			"You were not invited to this class", err, classID, auth.UserID)
	}
	if row.Status != models.ClassStudentPending {
		return nil, errConflict("You already responded to this invite")
	}

	status := models.ClassStudentActive
	if !accept {
		status = models.ClassStudentRejected
	}
	now := s.now()
	err = s.db.Model(&row).Updates(map[string]interface{}{
		"status":       status,
		"responded_at": now,
	}).Error
	if err != nil {
		return nil, errInternal("respond_class_invite.update", err, row.ID)
	}
	row.Status = status
	row.RespondedAt = &now

	s.notifier.MarkClassInviteRead(auth.UserID, classID)
	return &row, nil
}

// RemoveStudent marks an active or pending student as removed from the
// caller's class. Removal keeps the row so past challenge history stays
// attributable.
func (s *ClassService) RemoveStudent(auth models.AuthContext, classID, studentID uint) *ServiceError {
	if auth.UserID == 0 {
		return errUnauthenticated()
	}
	if !auth.IsTeacher {
		return errForbidden("Only teachers can remove students")
	}
	if _, serr := s.ownedClass(classID, auth.UserID); serr != nil {
		return serr
	}

	res := s.db.Model(&models.ClassStudent{}).
		Where("class_id = ? AND student_id = ? AND status IN ?",
			classID, studentID,
			[]models.ClassStudentStatus{models.ClassStudentActive, models.ClassStudentPending}).
		Updates(map[string]interface{}{
			"status":       models.ClassStudentRemoved,
			"responded_at": s.now(),
		})
	if res.Error != nil {
		return errInternal("remove_student", res.Error, classID, studentID)
	}
	if res.RowsAffected == 0 {
		return errNotFound("Student is not in this class")
	}
	return nil
}

// ================== HELPERS ==================

func (s *ClassService) ownedClass(classID, teacherID uint) (*models.Class, *ServiceError) {
	var class models.Class
	err := s.db.Where("id = ? AND teacher_id = ?", classID, teacherID).
		First(&class).Error
	if err != nil {
		return nil, notFoundOrInternal("class.owned", "Class not found or not yours", err, classID, teacherID)
	}
	return &class, nil
}

func (s *ClassService) emitClassInvite(student *models.User, class *models.Class) {
	s.notifier.Emit(student.ID, models.NotificationClassInvite,
		fmt.Sprintf("Invitation to join %s", class.Name),
		fmt.Sprintf("You were invited to join the class %q.", class.Name),
		nil,
		map[string]interface{}{
			// Stored as a string so JSON lookups compare uniformly.
			"class_id":   fmt.Sprint(class.ID),
			"class_name": class.Name,
			"class_code": class.Code,
		},
		nil)
}

// generateUniqueClassCode draws 6-character codes until one is free.
func (s *ClassService) generateUniqueClassCode() (string, error) {
	for {
		buf := make([]byte, 6)
		for i := range buf {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(classCodeCharset))))
			if err != nil {
				return "", err
			}
			buf[i] = classCodeCharset[n.Int64()]
		}
		code := string(buf)

		var count int64
		if err := s.db.Model(&models.Class{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
}
