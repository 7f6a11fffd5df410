package database

import (
	"context"
	"time"

	"github.com/kozaktomas/face-attendance/internal/schedule"
)

// StudentStore manages students and their face samples
type StudentStore interface {
	// CreateStudent inserts a student and fills in ID and CreatedAt.
	// Returns ErrDuplicate when the student id is taken.
	CreateStudent(ctx context.Context, s *Student) error
	// CreateStudentWithSample inserts a student together with its first face
	// sample. Either both rows are written or neither is.
	CreateStudentWithSample(ctx context.Context, s *Student, sample []byte) (int64, error)
	// GetStudent returns ErrNotFound for unknown ids
	GetStudent(ctx context.Context, studentID string) (*Student, error)
	// ListStudents returns all students ordered by student id
	ListStudents(ctx context.Context) ([]StudentSummary, error)
	// DeleteStudent removes a student; samples, enrollments and records cascade
	DeleteStudent(ctx context.Context, studentID string) error
	// AddFaceSample persists a serialized sample and returns its id
	AddFaceSample(ctx context.Context, studentID string, sample []byte) (int64, error)
	// ListFaceSamples returns every sample in insertion order
	ListFaceSamples(ctx context.Context) ([]StoredFaceSample, error)
}

// CourseStore manages weekly course slots
type CourseStore interface {
	CreateCourse(ctx context.Context, c *Course) error
	GetCourse(ctx context.Context, id int64) (*Course, error)
	ListCourses(ctx context.Context) ([]Course, error)
	DeleteCourse(ctx context.Context, id int64) error
}

// EnrollmentStore links students to courses
type EnrollmentStore interface {
	// Enroll returns ErrDuplicate if the pair exists and ErrNotFound if either side is missing
	Enroll(ctx context.Context, studentID string, courseID int64) error
	Unenroll(ctx context.Context, studentID string, courseID int64) error
	CoursesForStudent(ctx context.Context, studentID string) ([]Course, error)
	// EnrolledSessions lists the student's sessions on a weekday
	EnrolledSessions(ctx context.Context, studentID string, weekday time.Weekday) ([]schedule.Session, error)
}

// AttendanceStore persists attendance decisions
type AttendanceStore interface {
	HasAttendance(ctx context.Context, studentID string, courseID int64, date schedule.Date) (bool, error)
	// InsertAttendance writes rec unless a record for the same student, course
	// and date exists. It reports whether a row was written and fills in rec.ID.
	InsertAttendance(ctx context.Context, rec *AttendanceRecord) (bool, error)
	ListAttendance(ctx context.Context, filter AttendanceFilter) ([]AttendanceRow, error)
	// PendingAbsences lists enrollments on weekday without a record on date
	PendingAbsences(ctx context.Context, weekday time.Weekday, date schedule.Date) ([]PendingAbsence, error)
}

// Store is the full persistence surface.
type Store interface {
	StudentStore
	CourseStore
	EnrollmentStore
	AttendanceStore
	Close() error
}
