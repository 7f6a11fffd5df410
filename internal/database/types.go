package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/schedule"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("already exists")
)

// Student is an enrolled person; StudentID is the owner id used by the face matcher.
type Student struct {
	ID        int64     `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Name      string    `db:"name" json:"name"`
	ClassName string    `db:"class_name" json:"class_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StudentSummary is a student with counts used by list views.
type StudentSummary struct {
	Student
	SampleCount int `db:"sample_count" json:"sample_count"`
	CourseCount int `db:"course_count" json:"course_count"`
}

// StoredFaceSample is a persisted face sample blob.
type StoredFaceSample struct {
	ID        int64     `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Sample    []byte    `db:"sample" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Course is a weekly class slot. Weekday holds the English day name.
type Course struct {
	ID        int64              `db:"id" json:"id"`
	Name      string             `db:"course_name" json:"course_name"`
	Weekday   string             `db:"weekday" json:"weekday"`
	Start     schedule.ClockTime `db:"course_time_start" json:"course_time_start"`
	End       schedule.ClockTime `db:"course_time_end" json:"course_time_end"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
}

// Session converts the course into a schedule session.
func (c Course) Session() (schedule.Session, error) {
	day, err := schedule.ParseWeekday(c.Weekday)
	if err != nil {
		return schedule.Session{}, fmt.Errorf("course %d: %w", c.ID, err)
	}
	return schedule.Session{ID: c.ID, Name: c.Name, Weekday: day, Start: c.Start, End: c.End}, nil
}

// AttendanceRecord is one immutable attendance decision.
type AttendanceRecord struct {
	ID         int64              `db:"id" json:"id"`
	StudentID  string             `db:"student_id" json:"student_id"`
	CourseID   int64              `db:"course_id" json:"course_id"`
	RecordDate schedule.Date      `db:"record_date" json:"record_date"`
	RecordTime schedule.ClockTime `db:"record_time" json:"record_time"`
	Status     string             `db:"status" json:"status"`
}

// AttendanceRow is an attendance record joined with student and course names.
type AttendanceRow struct {
	AttendanceRecord
	StudentName string `db:"student_name" json:"student_name"`
	ClassName   string `db:"class_name" json:"class_name"`
	CourseName  string `db:"course_name" json:"course_name"`
}

// AttendanceFilter narrows ListAttendance. Zero values match everything.
type AttendanceFilter struct {
	Date      schedule.Date
	StudentID string
	CourseID  int64
	Limit     int
}

// PendingAbsence is an enrollment with no attendance record on a given day.
type PendingAbsence struct {
	StudentID  string             `db:"student_id" json:"student_id"`
	CourseID   int64              `db:"course_id" json:"course_id"`
	CourseName string             `db:"course_name" json:"course_name"`
	End        schedule.ClockTime `db:"course_time_end" json:"course_time_end"`
}

// DefaultAttendanceLimit caps attendance listings without an explicit limit.
const DefaultAttendanceLimit = 500
