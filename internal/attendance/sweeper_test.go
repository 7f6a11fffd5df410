package attendance

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/schedule"
)

func setupSweep(t *testing.T) (*mock.MockStore, int64, int64) {
	t.Helper()
	store := mock.NewMockStore()
	addStudent(t, store, "A")
	addStudent(t, store, "B")
	morning := addCourse(t, store, "Math", time.Monday, schedule.NewClock(8, 0, 0), schedule.NewClock(9, 0, 0), "A", "B")
	afternoon := addCourse(t, store, "Art", time.Monday, schedule.NewClock(13, 0, 0), schedule.NewClock(14, 0, 0), "A", "B")

	rec := database.AttendanceRecord{
		StudentID: "A", CourseID: morning, RecordDate: "2024-03-04",
		RecordTime: schedule.NewClock(8, 2, 0), Status: StatusOnTime,
	}
	if _, err := store.InsertAttendance(context.Background(), &rec); err != nil {
		t.Fatalf("InsertAttendance: %v", err)
	}
	return store, morning, afternoon
}

func TestSweeper_Sweep(t *testing.T) {
	store, morning, afternoon := setupSweep(t)
	sweeper := NewSweeper(store, nil)
	ctx := context.Background()

	steps := []struct {
		now  time.Time
		want int
	}{
		{monday(8, 30, 0), 0}, // morning still running
		{monday(9, 0, 0), 0},  // end is inclusive
		{monday(12, 0, 0), 1}, // B missed the morning
		{monday(12, 0, 0), 0}, // idempotent
		{monday(14, 0, 1), 2}, // both missed the afternoon
		{monday(22, 0, 0), 0}, // nothing left
	}
	for _, step := range steps {
		added, err := sweeper.Sweep(ctx, step.now)
		if err != nil {
			t.Fatalf("Sweep(%s): %v", step.now.Format(time.TimeOnly), err)
		}
		if added != step.want {
			t.Errorf("Sweep(%s) added %d, want %d", step.now.Format(time.TimeOnly), added, step.want)
		}
	}

	for _, rec := range store.Records() {
		if rec.Status != StatusAbsent {
			continue
		}
		switch {
		case rec.StudentID == "B" && rec.CourseID == morning:
			if rec.RecordTime != schedule.NewClock(12, 0, 0) {
				t.Errorf("expected sweep time as record time, got %s", rec.RecordTime)
			}
		case rec.CourseID == afternoon:
		default:
			t.Errorf("unexpected absence %+v", rec)
		}
	}
	if n := len(store.Records()); n != 4 {
		t.Errorf("expected 4 records in total, got %d", n)
	}
}

func TestSweeper_OtherWeekday(t *testing.T) {
	store, _, _ := setupSweep(t)
	added, err := NewSweeper(store, nil).Sweep(context.Background(), monday(23, 0, 0).AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if added != 0 {
		t.Errorf("expected no absences on Tuesday, got %d", added)
	}
}

func TestSweeper_StoreErrors(t *testing.T) {
	injected := errors.New("db down")

	t.Run("pending", func(t *testing.T) {
		store, _, _ := setupSweep(t)
		store.PendingAbsencesError = injected
		if _, err := NewSweeper(store, nil).Sweep(context.Background(), monday(22, 0, 0)); !errors.Is(err, injected) {
			t.Errorf("expected injected error, got %v", err)
		}
	})

	t.Run("insert", func(t *testing.T) {
		store, _, _ := setupSweep(t)
		store.InsertAttendanceError = injected
		if _, err := NewSweeper(store, nil).Sweep(context.Background(), monday(22, 0, 0)); !errors.Is(err, injected) {
			t.Errorf("expected injected error, got %v", err)
		}
	})

	t.Run("lock", func(t *testing.T) {
		store, _, _ := setupSweep(t)
		if _, err := NewSweeper(store, failingLocker{}).Sweep(context.Background(), monday(22, 0, 0)); err == nil {
			t.Error("expected lock error")
		}
	})
}

func TestSweeper_SkipsLateCheckIn(t *testing.T) {
	store, morning, _ := setupSweep(t)
	sweeper := NewSweeper(store, nil)

	rec := database.AttendanceRecord{
		StudentID: "B", CourseID: morning, RecordDate: "2024-03-04",
		RecordTime: schedule.NewClock(8, 59, 0), Status: StatusLate,
	}
	if _, err := store.InsertAttendance(context.Background(), &rec); err != nil {
		t.Fatalf("InsertAttendance: %v", err)
	}

	added, err := sweeper.Sweep(context.Background(), monday(12, 0, 0))
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if added != 0 {
		t.Errorf("expected no absences, got %d", added)
	}
}

func TestSweeper_ConcurrentSweeps(t *testing.T) {
	store, morning, _ := setupSweep(t)
	// Two sweepers with separate locks, like the timer and a manual trigger
	// in different processes.
	sweepers := []*Sweeper{NewSweeper(store, nil), NewSweeper(store, nil)}

	var (
		added atomic.Int64
		wg    sync.WaitGroup
	)
	for _, sw := range sweepers {
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := sw.Sweep(context.Background(), monday(12, 0, 0))
				if err != nil {
					t.Errorf("Sweep: %v", err)
					return
				}
				added.Add(int64(n))
			}()
		}
	}
	wg.Wait()

	if got := added.Load(); got != 1 {
		t.Errorf("expected one absence added in total, got %d", got)
	}
	absences := 0
	for _, rec := range store.Records() {
		if rec.Status == StatusAbsent {
			absences++
			if rec.StudentID != "B" || rec.CourseID != morning {
				t.Errorf("unexpected absence %+v", rec)
			}
		}
	}
	if absences != 1 {
		t.Errorf("expected exactly one absence row, got %d", absences)
	}
}

func TestSweeper_RacesCheckInAtSessionEnd(t *testing.T) {
	for i := range 50 {
		store := mock.NewMockStore()
		addStudent(t, store, "S1")
		addCourse(t, store, "Math", time.Monday, schedule.NewClock(9, 0, 0), schedule.NewClock(10, 0, 0), "S1")
		engine := NewEngine(store, nil, 10*time.Minute)
		sweeper := NewSweeper(store, nil)

		var (
			wg       sync.WaitGroup
			decision Decision
			added    int
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			d, err := engine.Record(context.Background(), "S1", monday(10, 0, 0))
			if err != nil {
				t.Errorf("Record: %v", err)
			}
			decision = d
		}()
		go func() {
			defer wg.Done()
			n, err := sweeper.Sweep(context.Background(), monday(10, 0, 1))
			if err != nil {
				t.Errorf("Sweep: %v", err)
			}
			added = n
		}()
		wg.Wait()

		records := store.Records()
		if len(records) != 1 {
			t.Fatalf("run %d: expected exactly one record, got %d", i, len(records))
		}
		switch decision.Outcome {
		case OutcomeRecorded:
			if added != 0 || records[0].Status != StatusLate {
				t.Errorf("run %d: check-in won but sweep added %d, record %+v", i, added, records[0])
			}
		case OutcomeDuplicate:
			if added != 1 || records[0].Status != StatusAbsent {
				t.Errorf("run %d: sweep won but added %d, record %+v", i, added, records[0])
			}
		default:
			t.Errorf("run %d: unexpected outcome %s", i, decision.Outcome)
		}
	}
}
