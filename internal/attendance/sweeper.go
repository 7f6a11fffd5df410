package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/lock"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/schedule"
)

const sweepLockKey = "sweep"

// SweepStore lists unrecorded enrollments and writes absence records.
type SweepStore interface {
	PendingAbsences(ctx context.Context, weekday time.Weekday, date schedule.Date) ([]database.PendingAbsence, error)
	InsertAttendance(ctx context.Context, rec *database.AttendanceRecord) (bool, error)
}

// Sweeper marks enrolled students absent from sessions that ended without a record.
type Sweeper struct {
	store SweepStore
	locks lock.Locker
}

// NewSweeper creates a sweeper. A nil locker uses an in-process keyed mutex.
func NewSweeper(store SweepStore, locks lock.Locker) *Sweeper {
	if locks == nil {
		locks = lock.NewKeyedMutex()
	}
	return &Sweeper{store: store, locks: locks}
}

// Sweep records an absence for every enrollment on now's weekday whose session
// ended before now and has no record today. It returns the number of records
// written; running it again for the same day writes nothing new.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	unlock, err := s.locks.Lock(ctx, sweepLockKey)
	if err != nil {
		return 0, fmt.Errorf("acquiring sweep lock: %w", err)
	}
	defer unlock()

	date := schedule.DateOf(now)
	clock := schedule.ClockOf(now)

	pending, err := s.store.PendingAbsences(ctx, now.Weekday(), date)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, p := range pending {
		if clock <= p.End {
			continue
		}
		rec := &database.AttendanceRecord{
			StudentID:  p.StudentID,
			CourseID:   p.CourseID,
			RecordDate: date,
			RecordTime: clock,
			Status:     StatusAbsent,
		}
		inserted, err := s.store.InsertAttendance(ctx, rec)
		if err != nil {
			return added, fmt.Errorf("marking %s absent from course %d: %w", p.StudentID, p.CourseID, err)
		}
		if inserted {
			added++
		}
	}

	logging.Info(logging.Fields{
		"date":    date,
		"pending": len(pending),
		"added":   added,
	}, "absence sweep finished")

	return added, nil
}
