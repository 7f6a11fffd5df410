// Package mock provides an in-memory database.Store for testing.
package mock

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/schedule"
)

type enrollmentKey struct {
	studentID string
	courseID  int64
}

type attendanceKey struct {
	studentID string
	courseID  int64
	date      schedule.Date
}

// MockStore is an in-memory implementation of database.Store. It enforces
// the same unique and foreign key rules as the SQL schema.
type MockStore struct {
	mu          sync.RWMutex
	nextID      int64
	students    map[string]*database.Student
	samples     []database.StoredFaceSample
	courses     map[int64]*database.Course
	enrollments map[enrollmentKey]struct{}
	records     map[attendanceKey]*database.AttendanceRecord
	now         func() time.Time

	// Error injection
	CreateStudentError    error
	GetStudentError       error
	ListStudentsError     error
	DeleteStudentError    error
	AddFaceSampleError    error
	ListFaceSamplesError  error
	CreateCourseError     error
	ListCoursesError      error
	EnrollError           error
	EnrolledSessionsError error
	HasAttendanceError    error
	InsertAttendanceError error
	ListAttendanceError   error
	PendingAbsencesError  error
}

var _ database.Store = (*MockStore)(nil)

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		students:    make(map[string]*database.Student),
		courses:     make(map[int64]*database.Course),
		enrollments: make(map[enrollmentKey]struct{}),
		records:     make(map[attendanceKey]*database.AttendanceRecord),
		now:         time.Now,
	}
}

func (m *MockStore) id() int64 {
	m.nextID++
	return m.nextID
}

// CreateStudent stores a copy of s and fills in its id
func (m *MockStore) CreateStudent(ctx context.Context, s *database.Student) error {
	if m.CreateStudentError != nil {
		return m.CreateStudentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[s.StudentID]; ok {
		return fmt.Errorf("student %s: %w", s.StudentID, database.ErrDuplicate)
	}
	s.ID = m.id()
	s.CreatedAt = m.now()
	stored := *s
	m.students[s.StudentID] = &stored
	return nil
}

// CreateStudentWithSample stores the student and its sample under one lock.
// AddFaceSampleError fails the whole call and leaves the store unchanged.
func (m *MockStore) CreateStudentWithSample(ctx context.Context, s *database.Student, sample []byte) (int64, error) {
	if m.CreateStudentError != nil {
		return 0, m.CreateStudentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[s.StudentID]; ok {
		return 0, fmt.Errorf("student %s: %w", s.StudentID, database.ErrDuplicate)
	}
	if m.AddFaceSampleError != nil {
		return 0, m.AddFaceSampleError
	}
	s.ID = m.id()
	s.CreatedAt = m.now()
	stored := *s
	m.students[s.StudentID] = &stored
	sampleID := m.id()
	m.samples = append(m.samples, database.StoredFaceSample{
		ID:        sampleID,
		StudentID: s.StudentID,
		Sample:    slices.Clone(sample),
		CreatedAt: m.now(),
	})
	return sampleID, nil
}

// GetStudent returns a copy of the stored student
func (m *MockStore) GetStudent(ctx context.Context, studentID string) (*database.Student, error) {
	if m.GetStudentError != nil {
		return nil, m.GetStudentError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[studentID]
	if !ok {
		return nil, database.ErrNotFound
	}
	out := *s
	return &out, nil
}

// ListStudents returns all students sorted by student id
func (m *MockStore) ListStudents(ctx context.Context) ([]database.StudentSummary, error) {
	if m.ListStudentsError != nil {
		return nil, m.ListStudentsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]database.StudentSummary, 0, len(m.students))
	for _, s := range m.students {
		summary := database.StudentSummary{Student: *s}
		for _, sample := range m.samples {
			if sample.StudentID == s.StudentID {
				summary.SampleCount++
			}
		}
		for key := range m.enrollments {
			if key.studentID == s.StudentID {
				summary.CourseCount++
			}
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

// DeleteStudent removes a student with its samples, enrollments and records
func (m *MockStore) DeleteStudent(ctx context.Context, studentID string) error {
	if m.DeleteStudentError != nil {
		return m.DeleteStudentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[studentID]; !ok {
		return database.ErrNotFound
	}
	delete(m.students, studentID)
	m.samples = slices.DeleteFunc(m.samples, func(s database.StoredFaceSample) bool {
		return s.StudentID == studentID
	})
	for key := range m.enrollments {
		if key.studentID == studentID {
			delete(m.enrollments, key)
		}
	}
	for key := range m.records {
		if key.studentID == studentID {
			delete(m.records, key)
		}
	}
	return nil
}

// AddFaceSample appends a sample for an existing student
func (m *MockStore) AddFaceSample(ctx context.Context, studentID string, sample []byte) (int64, error) {
	if m.AddFaceSampleError != nil {
		return 0, m.AddFaceSampleError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[studentID]; !ok {
		return 0, fmt.Errorf("student %s: %w", studentID, database.ErrNotFound)
	}
	stored := database.StoredFaceSample{
		ID:        m.id(),
		StudentID: studentID,
		Sample:    slices.Clone(sample),
		CreatedAt: m.now(),
	}
	m.samples = append(m.samples, stored)
	return stored.ID, nil
}

// ListFaceSamples returns all samples in insertion order
func (m *MockStore) ListFaceSamples(ctx context.Context) ([]database.StoredFaceSample, error) {
	if m.ListFaceSamplesError != nil {
		return nil, m.ListFaceSamplesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.samples), nil
}

// CreateCourse stores a copy of c and fills in its id
func (m *MockStore) CreateCourse(ctx context.Context, c *database.Course) error {
	if m.CreateCourseError != nil {
		return m.CreateCourseError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	c.CreatedAt = m.now()
	stored := *c
	m.courses[c.ID] = &stored
	return nil
}

// GetCourse returns a copy of the stored course
func (m *MockStore) GetCourse(ctx context.Context, id int64) (*database.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	out := *c
	return &out, nil
}

// ListCourses returns all courses ordered by id
func (m *MockStore) ListCourses(ctx context.Context) ([]database.Course, error) {
	if m.ListCoursesError != nil {
		return nil, m.ListCoursesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedCourses(func(*database.Course) bool { return true }), nil
}

func (m *MockStore) sortedCourses(keep func(*database.Course) bool) []database.Course {
	out := make([]database.Course, 0, len(m.courses))
	for _, c := range m.courses {
		if keep(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DeleteCourse removes a course with its enrollments and records
func (m *MockStore) DeleteCourse(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.courses, id)
	for key := range m.enrollments {
		if key.courseID == id {
			delete(m.enrollments, key)
		}
	}
	for key := range m.records {
		if key.courseID == id {
			delete(m.records, key)
		}
	}
	return nil
}

// Enroll links a student to a course
func (m *MockStore) Enroll(ctx context.Context, studentID string, courseID int64) error {
	if m.EnrollError != nil {
		return m.EnrollError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkRefs(studentID, courseID); err != nil {
		return err
	}
	key := enrollmentKey{studentID, courseID}
	if _, ok := m.enrollments[key]; ok {
		return fmt.Errorf("enrollment %s/%d: %w", studentID, courseID, database.ErrDuplicate)
	}
	m.enrollments[key] = struct{}{}
	return nil
}

// Unenroll removes a student from a course
func (m *MockStore) Unenroll(ctx context.Context, studentID string, courseID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := enrollmentKey{studentID, courseID}
	if _, ok := m.enrollments[key]; !ok {
		return database.ErrNotFound
	}
	delete(m.enrollments, key)
	return nil
}

// CoursesForStudent returns the student's courses ordered by id
func (m *MockStore) CoursesForStudent(ctx context.Context, studentID string) ([]database.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedCourses(func(c *database.Course) bool {
		_, ok := m.enrollments[enrollmentKey{studentID, c.ID}]
		return ok
	}), nil
}

// EnrolledSessions returns the student's sessions on weekday
func (m *MockStore) EnrolledSessions(ctx context.Context, studentID string, weekday time.Weekday) ([]schedule.Session, error) {
	if m.EnrolledSessionsError != nil {
		return nil, m.EnrolledSessionsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	courses := m.sortedCourses(func(c *database.Course) bool {
		_, ok := m.enrollments[enrollmentKey{studentID, c.ID}]
		return ok && c.Weekday == weekday.String()
	})
	sessions := make([]schedule.Session, 0, len(courses))
	for _, c := range courses {
		session, err := c.Session()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// HasAttendance reports whether a record exists for the triple
func (m *MockStore) HasAttendance(ctx context.Context, studentID string, courseID int64, date schedule.Date) (bool, error) {
	if m.HasAttendanceError != nil {
		return false, m.HasAttendanceError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[attendanceKey{studentID, courseID, date}]
	return ok, nil
}

// InsertAttendance stores rec unless the triple already has a record
func (m *MockStore) InsertAttendance(ctx context.Context, rec *database.AttendanceRecord) (bool, error) {
	if m.InsertAttendanceError != nil {
		return false, m.InsertAttendanceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkRefs(rec.StudentID, rec.CourseID); err != nil {
		return false, err
	}
	key := attendanceKey{rec.StudentID, rec.CourseID, rec.RecordDate}
	if _, ok := m.records[key]; ok {
		return false, nil
	}
	rec.ID = m.id()
	stored := *rec
	m.records[key] = &stored
	return true, nil
}

// ListAttendance returns matching records, newest first
func (m *MockStore) ListAttendance(ctx context.Context, f database.AttendanceFilter) ([]database.AttendanceRow, error) {
	if m.ListAttendanceError != nil {
		return nil, m.ListAttendanceError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []database.AttendanceRow
	for _, rec := range m.records {
		if f.Date != "" && rec.RecordDate != f.Date {
			continue
		}
		if f.StudentID != "" && rec.StudentID != f.StudentID {
			continue
		}
		if f.CourseID != 0 && rec.CourseID != f.CourseID {
			continue
		}
		row := database.AttendanceRow{AttendanceRecord: *rec}
		if s, ok := m.students[rec.StudentID]; ok {
			row.StudentName = s.Name
			row.ClassName = s.ClassName
		}
		if c, ok := m.courses[rec.CourseID]; ok {
			row.CourseName = c.Name
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if c := strings.Compare(string(a.RecordDate), string(b.RecordDate)); c != 0 {
			return c > 0
		}
		if a.RecordTime != b.RecordTime {
			return a.RecordTime > b.RecordTime
		}
		return a.ID > b.ID
	})

	limit := f.Limit
	if limit <= 0 {
		limit = database.DefaultAttendanceLimit
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// PendingAbsences lists enrollments on weekday without a record on date
func (m *MockStore) PendingAbsences(ctx context.Context, weekday time.Weekday, date schedule.Date) ([]database.PendingAbsence, error) {
	if m.PendingAbsencesError != nil {
		return nil, m.PendingAbsencesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pending []database.PendingAbsence
	for key := range m.enrollments {
		c, ok := m.courses[key.courseID]
		if !ok || c.Weekday != weekday.String() {
			continue
		}
		if _, ok := m.records[attendanceKey{key.studentID, c.ID, date}]; ok {
			continue
		}
		pending = append(pending, database.PendingAbsence{
			StudentID:  key.studentID,
			CourseID:   c.ID,
			CourseName: c.Name,
			End:        c.End,
		})
	}

	sort.Slice(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		if a.End != b.End {
			return a.End < b.End
		}
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return a.CourseID < b.CourseID
	})
	return pending, nil
}

// Records returns a snapshot of all stored attendance records
func (m *MockStore) Records() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.AttendanceRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close is a no-op
func (m *MockStore) Close() error {
	return nil
}

func (m *MockStore) checkRefs(studentID string, courseID int64) error {
	if _, ok := m.students[studentID]; !ok {
		return fmt.Errorf("student %s: %w", studentID, database.ErrNotFound)
	}
	if _, ok := m.courses[courseID]; !ok {
		return fmt.Errorf("course %d: %w", courseID, database.ErrNotFound)
	}
	return nil
}
