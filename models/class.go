// models/class.go - Class (turma) models
package models

import "time"

// ClassStudent status constants
type ClassStudentStatus string

const (
	ClassStudentPending  ClassStudentStatus = "pending"
	ClassStudentActive   ClassStudentStatus = "active"
	ClassStudentRejected ClassStudentStatus = "rejected"
	ClassStudentRemoved  ClassStudentStatus = "removed"
)

// Class represents a group of students owned by one teacher.
type Class struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	TeacherID   uint           `json:"teacher_id" gorm:"not null;index"`
	Teacher     *User          `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
	Name        string         `json:"name" gorm:"not null;size:100"`
	Description string         `json:"description" gorm:"type:text"`
	Code        string         `json:"code" gorm:"unique;size:10"`
	SchoolYear  string         `json:"school_year" gorm:"size:20"`
	Students    []ClassStudent `json:"students,omitempty" gorm:"foreignKey:ClassID"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ClassStudent links a student to a class and tracks the invite response.
type ClassStudent struct {
	ID          uint               `json:"id" gorm:"primaryKey"`
	ClassID     uint               `json:"class_id" gorm:"not null;uniqueIndex:idx_class_student"`
	Class       *Class             `json:"class,omitempty" gorm:"foreignKey:ClassID"`
	StudentID   uint               `json:"student_id" gorm:"not null;uniqueIndex:idx_class_student"`
	Student     *User              `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Status      ClassStudentStatus `json:"status" gorm:"not null;default:'pending';index"`
	InvitedAt   time.Time          `json:"invited_at" gorm:"not null"`
	RespondedAt *time.Time         `json:"responded_at"`
}

func (Class) TableName() string {
	return "classes"
}

func (ClassStudent) TableName() string {
	return "class_students"
}
