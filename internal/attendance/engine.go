// Package attendance decides and records attendance for recognized students.
package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/lock"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/schedule"
)

// Attendance statuses as stored in attendance_records.status.
const (
	StatusOnTime = "on_time"
	StatusLate   = "late"
	StatusAbsent = "absent"
)

// Outcome is the result of one attendance event.
type Outcome int

const (
	OutcomeRecorded Outcome = iota
	OutcomeDuplicate
	OutcomeNoSession
	OutcomeNoCoursesToday
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeNoSession:
		return "no_session"
	case OutcomeNoCoursesToday:
		return "no_courses_today"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Decision describes what the engine did for one event. Session is nil unless
// a session was in progress; Record is set only for OutcomeRecorded.
type Decision struct {
	Outcome Outcome
	Status  string
	Session *schedule.Session
	Record  *database.AttendanceRecord
}

// EngineStore is the storage the engine reads sessions from and writes records to.
type EngineStore interface {
	schedule.Source
	HasAttendance(ctx context.Context, studentID string, courseID int64, date schedule.Date) (bool, error)
	InsertAttendance(ctx context.Context, rec *database.AttendanceRecord) (bool, error)
}

// Engine turns (student, instant) events into at most one record per
// student, session and day.
type Engine struct {
	store    EngineStore
	resolver *schedule.Resolver
	locks    lock.Locker
	grace    time.Duration
}

// NewEngine creates an engine. A nil locker uses an in-process keyed mutex and
// a negative grace falls back to the default.
func NewEngine(store EngineStore, locks lock.Locker, grace time.Duration) *Engine {
	if locks == nil {
		locks = lock.NewKeyedMutex()
	}
	if grace < 0 {
		grace = constants.DefaultGracePeriod
	}
	return &Engine{
		store:    store,
		resolver: schedule.NewResolver(store),
		locks:    locks,
		grace:    grace,
	}
}

// StatusAt classifies an arrival at clock for a session starting at start.
// Arrivals up to and including start+grace are on time.
func StatusAt(clock, start schedule.ClockTime, grace time.Duration) string {
	if clock > start && clock.Duration()-start.Duration() > grace {
		return StatusLate
	}
	return StatusOnTime
}

// Record decides attendance for studentID at now and persists it.
func (e *Engine) Record(ctx context.Context, studentID string, now time.Time) (Decision, error) {
	sessions, err := e.resolver.SessionsFor(ctx, studentID, now.Weekday())
	if err != nil {
		return Decision{}, err
	}
	if len(sessions) == 0 {
		return Decision{Outcome: OutcomeNoCoursesToday}, nil
	}

	clock := schedule.ClockOf(now)
	session := schedule.Pick(sessions, clock)
	if session == nil {
		return Decision{Outcome: OutcomeNoSession}, nil
	}

	date := schedule.DateOf(now)
	unlock, err := e.locks.Lock(ctx, fmt.Sprintf("attendance:%s:%d:%s", studentID, session.ID, date))
	if err != nil {
		return Decision{}, fmt.Errorf("locking attendance for %s: %w", studentID, err)
	}
	defer unlock()

	exists, err := e.store.HasAttendance(ctx, studentID, session.ID, date)
	if err != nil {
		return Decision{}, err
	}
	if exists {
		return Decision{Outcome: OutcomeDuplicate, Session: session}, nil
	}

	rec := &database.AttendanceRecord{
		StudentID:  studentID,
		CourseID:   session.ID,
		RecordDate: date,
		RecordTime: clock,
		Status:     StatusAt(clock, session.Start, e.grace),
	}
	inserted, err := e.store.InsertAttendance(ctx, rec)
	if err != nil {
		return Decision{}, err
	}
	if !inserted {
		// Another process wrote the record between the check and the insert.
		return Decision{Outcome: OutcomeDuplicate, Session: session}, nil
	}

	logging.Info(logging.Fields{
		"student_id": studentID,
		"course_id":  session.ID,
		"date":       date,
		"status":     rec.Status,
	}, "attendance recorded")

	return Decision{Outcome: OutcomeRecorded, Status: rec.Status, Session: session, Record: rec}, nil
}
