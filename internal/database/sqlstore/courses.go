package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/schedule"
)

const courseColumns = "c.id, c.course_name, c.weekday, c.course_time_start, c.course_time_end, c.created_at"

func (s *Store) CreateCourse(ctx context.Context, c *database.Course) error {
	id, _, err := s.insert(ctx,
		"INSERT INTO courses (course_name, weekday, course_time_start, course_time_end) VALUES (?, ?, ?, ?)",
		c.Name, c.Weekday, c.Start, c.End)
	if err != nil {
		return fmt.Errorf("creating course %s: %w", c.Name, err)
	}

	created, err := s.GetCourse(ctx, id)
	if err != nil {
		return err
	}
	*c = *created
	return nil
}

func (s *Store) GetCourse(ctx context.Context, id int64) (*database.Course, error) {
	var c database.Course
	err := s.db.GetContext(ctx, &c, s.q("SELECT "+courseColumns+" FROM courses c WHERE c.id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting course %d: %w", id, err)
	}
	return &c, nil
}

func (s *Store) ListCourses(ctx context.Context) ([]database.Course, error) {
	var courses []database.Course
	err := s.db.SelectContext(ctx, &courses, "SELECT "+courseColumns+" FROM courses c ORDER BY c.id")
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	return courses, nil
}

func (s *Store) DeleteCourse(ctx context.Context, id int64) error {
	if err := s.execOne(ctx, "DELETE FROM courses WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting course %d: %w", id, err)
	}
	return nil
}

func (s *Store) Enroll(ctx context.Context, studentID string, courseID int64) error {
	_, _, err := s.insert(ctx,
		"INSERT INTO student_courses (student_id, course_id) VALUES (?, ?)", studentID, courseID)
	if err != nil {
		return fmt.Errorf("enrolling %s in course %d: %w", studentID, courseID, err)
	}
	return nil
}

func (s *Store) Unenroll(ctx context.Context, studentID string, courseID int64) error {
	err := s.execOne(ctx, "DELETE FROM student_courses WHERE student_id = ? AND course_id = ?", studentID, courseID)
	if err != nil {
		return fmt.Errorf("removing %s from course %d: %w", studentID, courseID, err)
	}
	return nil
}

func (s *Store) CoursesForStudent(ctx context.Context, studentID string) ([]database.Course, error) {
	var courses []database.Course
	err := s.db.SelectContext(ctx, &courses, s.q(`
		SELECT `+courseColumns+`
		FROM courses c
		JOIN student_courses sc ON sc.course_id = c.id
		WHERE sc.student_id = ?
		ORDER BY c.id`), studentID)
	if err != nil {
		return nil, fmt.Errorf("listing courses for %s: %w", studentID, err)
	}
	return courses, nil
}

func (s *Store) EnrolledSessions(ctx context.Context, studentID string, weekday time.Weekday) ([]schedule.Session, error) {
	var courses []database.Course
	err := s.db.SelectContext(ctx, &courses, s.q(`
		SELECT `+courseColumns+`
		FROM courses c
		JOIN student_courses sc ON sc.course_id = c.id
		WHERE sc.student_id = ? AND c.weekday = ?`), studentID, weekday.String())
	if err != nil {
		return nil, fmt.Errorf("listing %s sessions for %s: %w", weekday, studentID, err)
	}

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
