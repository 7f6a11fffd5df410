// Package storetest holds the behaviour every database.Store implementation
// must share. Backends run it from their own tests.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/schedule"
)

var seq atomic.Int64

// uniqueID returns an id not used by earlier subtests on the same store.
func uniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano()%1_000_000, seq.Add(1))
}

func mustStudent(t *testing.T, store database.Store, name string) database.Student {
	t.Helper()
	st := database.Student{StudentID: uniqueID("S"), Name: name, ClassName: "1A"}
	if err := store.CreateStudent(context.Background(), &st); err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}
	return st
}

func mustCourse(t *testing.T, store database.Store, weekday time.Weekday, start, end schedule.ClockTime) database.Course {
	t.Helper()
	c := database.Course{Name: uniqueID("Course"), Weekday: weekday.String(), Start: start, End: end}
	if err := store.CreateCourse(context.Background(), &c); err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	return c
}

// Run exercises store. The store may already contain data.
func Run(t *testing.T, store database.Store) {
	t.Run("Students", func(t *testing.T) { testStudents(t, store) })
	t.Run("FaceSamples", func(t *testing.T) { testFaceSamples(t, store) })
	t.Run("StudentWithSample", func(t *testing.T) { testStudentWithSample(t, store) })
	t.Run("Courses", func(t *testing.T) { testCourses(t, store) })
	t.Run("Enrollments", func(t *testing.T) { testEnrollments(t, store) })
	t.Run("Attendance", func(t *testing.T) { testAttendance(t, store) })
	t.Run("ConcurrentInsertAttendance", func(t *testing.T) { testConcurrentInsert(t, store) })
	t.Run("PendingAbsences", func(t *testing.T) { testPendingAbsences(t, store) })
}

func testStudents(t *testing.T, store database.Store) {
	ctx := context.Background()
	st := mustStudent(t, store, "Alice")

	if st.ID == 0 {
		t.Error("expected generated id")
	}
	if st.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	dup := database.Student{StudentID: st.StudentID, Name: "Other"}
	if err := store.CreateStudent(ctx, &dup); !errors.Is(err, database.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	got, err := store.GetStudent(ctx, st.StudentID)
	if err != nil {
		t.Fatalf("GetStudent: %v", err)
	}
	if got.Name != "Alice" || got.ClassName != "1A" {
		t.Errorf("unexpected student %+v", got)
	}

	if _, err := store.GetStudent(ctx, "missing-student"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	list, err := store.ListStudents(ctx)
	if err != nil {
		t.Fatalf("ListStudents: %v", err)
	}
	found := false
	for _, s := range list {
		if s.StudentID == st.StudentID {
			found = true
			if s.SampleCount != 0 || s.CourseCount != 0 {
				t.Errorf("expected zero counts, got %+v", s)
			}
		}
	}
	if !found {
		t.Error("created student missing from list")
	}

	if err := store.DeleteStudent(ctx, st.StudentID); err != nil {
		t.Fatalf("DeleteStudent: %v", err)
	}
	if err := store.DeleteStudent(ctx, st.StudentID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func testFaceSamples(t *testing.T, store database.Store) {
	ctx := context.Background()
	st := mustStudent(t, store, "Bob")

	first, err := store.AddFaceSample(ctx, st.StudentID, []byte(`{"shape":[1,1],"face":[1]}`))
	if err != nil {
		t.Fatalf("AddFaceSample: %v", err)
	}
	second, err := store.AddFaceSample(ctx, st.StudentID, []byte(`{"shape":[1,1],"face":[2]}`))
	if err != nil {
		t.Fatalf("AddFaceSample: %v", err)
	}
	if second <= first {
		t.Errorf("expected increasing sample ids, got %d then %d", first, second)
	}

	if _, err := store.AddFaceSample(ctx, "missing-student", []byte("{}")); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown student, got %v", err)
	}

	samples, err := store.ListFaceSamples(ctx)
	if err != nil {
		t.Fatalf("ListFaceSamples: %v", err)
	}
	var mine []database.StoredFaceSample
	for _, s := range samples {
		if s.StudentID == st.StudentID {
			mine = append(mine, s)
		}
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(mine))
	}
	if mine[0].ID != first || !bytes.Equal(mine[1].Sample, []byte(`{"shape":[1,1],"face":[2]}`)) {
		t.Errorf("unexpected sample order or content: %+v", mine)
	}

	list, err := store.ListStudents(ctx)
	if err != nil {
		t.Fatalf("ListStudents: %v", err)
	}
	for _, s := range list {
		if s.StudentID == st.StudentID && s.SampleCount != 2 {
			t.Errorf("expected sample count 2, got %d", s.SampleCount)
		}
	}

	if err := store.DeleteStudent(ctx, st.StudentID); err != nil {
		t.Fatalf("DeleteStudent: %v", err)
	}
	samples, err = store.ListFaceSamples(ctx)
	if err != nil {
		t.Fatalf("ListFaceSamples: %v", err)
	}
	for _, s := range samples {
		if s.StudentID == st.StudentID {
			t.Fatal("expected samples to be removed with their student")
		}
	}
}

func testStudentWithSample(t *testing.T, store database.Store) {
	ctx := context.Background()
	st := database.Student{StudentID: uniqueID("S"), Name: "Carol", ClassName: "2B"}
	sample := []byte(`{"shape":[1,1],"face":[3]}`)

	sampleID, err := store.CreateStudentWithSample(ctx, &st, sample)
	if err != nil {
		t.Fatalf("CreateStudentWithSample: %v", err)
	}
	if st.ID == 0 || sampleID == 0 {
		t.Errorf("expected generated ids, got student %d sample %d", st.ID, sampleID)
	}

	dup := database.Student{StudentID: st.StudentID, Name: "Other"}
	if _, err := store.CreateStudentWithSample(ctx, &dup, sample); !errors.Is(err, database.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	samples, err := store.ListFaceSamples(ctx)
	if err != nil {
		t.Fatalf("ListFaceSamples: %v", err)
	}
	count := 0
	for _, s := range samples {
		if s.StudentID == st.StudentID {
			count++
			if s.ID != sampleID || !bytes.Equal(s.Sample, sample) {
				t.Errorf("unexpected sample %+v", s)
			}
		}
	}
	if count != 1 {
		t.Errorf("expected 1 sample after the rejected duplicate, got %d", count)
	}

	got, err := store.GetStudent(ctx, st.StudentID)
	if err != nil {
		t.Fatalf("GetStudent: %v", err)
	}
	if got.Name != "Carol" {
		t.Errorf("duplicate insert overwrote the student: %+v", got)
	}
}

func testCourses(t *testing.T, store database.Store) {
	ctx := context.Background()
	c := mustCourse(t, store, time.Monday, schedule.NewClock(9, 0, 0), schedule.NewClock(10, 30, 0))

	got, err := store.GetCourse(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if got.Weekday != "Monday" || got.Start != schedule.NewClock(9, 0, 0) || got.End != schedule.NewClock(10, 30, 0) {
		t.Errorf("unexpected course %+v", got)
	}

	courses, err := store.ListCourses(ctx)
	if err != nil {
		t.Fatalf("ListCourses: %v", err)
	}
	found := false
	for _, course := range courses {
		found = found || course.ID == c.ID
	}
	if !found {
		t.Error("created course missing from list")
	}

	if err := store.DeleteCourse(ctx, c.ID); err != nil {
		t.Fatalf("DeleteCourse: %v", err)
	}
	if _, err := store.GetCourse(ctx, c.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteCourse(ctx, c.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func testEnrollments(t *testing.T, store database.Store) {
	ctx := context.Background()
	st := mustStudent(t, store, "Carol")
	monday := mustCourse(t, store, time.Monday, schedule.NewClock(9, 0, 0), schedule.NewClock(10, 0, 0))
	tuesday := mustCourse(t, store, time.Tuesday, schedule.NewClock(9, 0, 0), schedule.NewClock(10, 0, 0))

	for _, c := range []database.Course{monday, tuesday} {
		if err := store.Enroll(ctx, st.StudentID, c.ID); err != nil {
			t.Fatalf("Enroll: %v", err)
		}
	}
	if err := store.Enroll(ctx, st.StudentID, monday.ID); !errors.Is(err, database.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if err := store.Enroll(ctx, st.StudentID, 999_999_999); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown course, got %v", err)
	}

	courses, err := store.CoursesForStudent(ctx, st.StudentID)
	if err != nil {
		t.Fatalf("CoursesForStudent: %v", err)
	}
	if len(courses) != 2 {
		t.Errorf("expected 2 courses, got %d", len(courses))
	}

	sessions, err := store.EnrolledSessions(ctx, st.StudentID, time.Monday)
	if err != nil {
		t.Fatalf("EnrolledSessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != monday.ID || sessions[0].Weekday != time.Monday {
		t.Errorf("expected only the Monday session, got %+v", sessions)
	}

	if err := store.Unenroll(ctx, st.StudentID, monday.ID); err != nil {
		t.Fatalf("Unenroll: %v", err)
	}
	if err := store.Unenroll(ctx, st.StudentID, monday.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second unenroll, got %v", err)
	}
	sessions, err = store.EnrolledSessions(ctx, st.StudentID, time.Monday)
	if err != nil {
		t.Fatalf("EnrolledSessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected no Monday sessions after unenroll, got %+v", sessions)
	}
}

func testAttendance(t *testing.T, store database.Store) {
	ctx := context.Background()
	st := mustStudent(t, store, "Dave")
	c := mustCourse(t, store, time.Monday, schedule.NewClock(9, 0, 0), schedule.NewClock(10, 0, 0))
	if err := store.Enroll(ctx, st.StudentID, c.ID); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	date := schedule.Date("2024-03-04")
	rec := database.AttendanceRecord{
		StudentID: st.StudentID, CourseID: c.ID, RecordDate: date,
		RecordTime: schedule.NewClock(9, 5, 0), Status: "on_time",
	}

	has, err := store.HasAttendance(ctx, st.StudentID, c.ID, date)
	if err != nil || has {
		t.Fatalf("HasAttendance before insert = %v, %v", has, err)
	}

	inserted, err := store.InsertAttendance(ctx, &rec)
	if err != nil || !inserted {
		t.Fatalf("InsertAttendance = %v, %v", inserted, err)
	}
	if rec.ID == 0 {
		t.Error("expected record id to be set")
	}

	again := rec
	again.ID = 0
	again.Status = "late"
	inserted, err = store.InsertAttendance(ctx, &again)
	if err != nil {
		t.Fatalf("InsertAttendance duplicate: %v", err)
	}
	if inserted {
		t.Error("expected duplicate insert to be skipped")
	}

	has, err = store.HasAttendance(ctx, st.StudentID, c.ID, date)
	if err != nil || !has {
		t.Fatalf("HasAttendance after insert = %v, %v", has, err)
	}

	rows, err := store.ListAttendance(ctx, database.AttendanceFilter{StudentID: st.StudentID})
	if err != nil {
		t.Fatalf("ListAttendance: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.Status != "on_time" || row.StudentName != "Dave" || row.CourseName != c.Name ||
		row.RecordDate != date || row.RecordTime != schedule.NewClock(9, 5, 0) {
		t.Errorf("unexpected row %+v", row)
	}

	rows, err = store.ListAttendance(ctx, database.AttendanceFilter{StudentID: st.StudentID, Date: "2024-03-05"})
	if err != nil {
		t.Fatalf("ListAttendance: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows for another date, got %d", len(rows))
	}
}

func testConcurrentInsert(t *testing.T, store database.Store) {
	ctx := context.Background()
	st := mustStudent(t, store, "Erin")
	c := mustCourse(t, store, time.Wednesday, schedule.NewClock(9, 0, 0), schedule.NewClock(10, 0, 0))

	var (
		wg       sync.WaitGroup
		inserted atomic.Int32
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := database.AttendanceRecord{
				StudentID: st.StudentID, CourseID: c.ID, RecordDate: "2024-03-06",
				RecordTime: schedule.NewClock(9, 1, 0), Status: "on_time",
			}
			ok, err := store.InsertAttendance(ctx, &rec)
			if err != nil {
				t.Errorf("InsertAttendance: %v", err)
				return
			}
			if ok {
				inserted.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := inserted.Load(); n != 1 {
		t.Errorf("expected exactly one inserted record, got %d", n)
	}
}

func testPendingAbsences(t *testing.T, store database.Store) {
	ctx := context.Background()
	present := mustStudent(t, store, "Frank")
	absent := mustStudent(t, store, "Grace")
	c := mustCourse(t, store, time.Friday, schedule.NewClock(8, 0, 0), schedule.NewClock(9, 0, 0))
	for _, st := range []database.Student{present, absent} {
		if err := store.Enroll(ctx, st.StudentID, c.ID); err != nil {
			t.Fatalf("Enroll: %v", err)
		}
	}

	date := schedule.Date("2024-03-08")
	rec := database.AttendanceRecord{
		StudentID: present.StudentID, CourseID: c.ID, RecordDate: date,
		RecordTime: schedule.NewClock(8, 1, 0), Status: "on_time",
	}
	if _, err := store.InsertAttendance(ctx, &rec); err != nil {
		t.Fatalf("InsertAttendance: %v", err)
	}

	pending, err := store.PendingAbsences(ctx, time.Friday, date)
	if err != nil {
		t.Fatalf("PendingAbsences: %v", err)
	}
	var mine []database.PendingAbsence
	for _, p := range pending {
		if p.CourseID == c.ID {
			mine = append(mine, p)
		}
	}
	if len(mine) != 1 || mine[0].StudentID != absent.StudentID {
		t.Fatalf("expected only %s pending, got %+v", absent.StudentID, mine)
	}
	if mine[0].End != schedule.NewClock(9, 0, 0) || mine[0].CourseName != c.Name {
		t.Errorf("unexpected pending absence %+v", mine[0])
	}

	pending, err = store.PendingAbsences(ctx, time.Thursday, "2024-03-07")
	if err != nil {
		t.Fatalf("PendingAbsences: %v", err)
	}
	for _, p := range pending {
		if p.CourseID == c.ID {
			t.Error("expected Friday course not to be pending on Thursday")
		}
	}
}
