package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/schedule"
)

func (s *Store) HasAttendance(ctx context.Context, studentID string, courseID int64, date schedule.Date) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`
		SELECT COUNT(*) FROM attendance_records
		WHERE student_id = ? AND course_id = ? AND record_date = ?`), studentID, courseID, date)
	if err != nil {
		return false, fmt.Errorf("checking attendance for %s: %w", studentID, err)
	}
	return n > 0, nil
}

func (s *Store) InsertAttendance(ctx context.Context, rec *database.AttendanceRecord) (bool, error) {
	id, inserted, err := s.insert(ctx, `
		INSERT INTO attendance_records (student_id, course_id, record_date, record_time, status)
		VALUES (?, ?, ?, ?, ?)`+s.dialect.OnConflictIgnore,
		rec.StudentID, rec.CourseID, rec.RecordDate, rec.RecordTime, rec.Status)
	if err != nil {
		return false, fmt.Errorf("recording attendance for %s: %w", rec.StudentID, err)
	}
	if inserted {
		rec.ID = id
	}
	return inserted, nil
}

func (s *Store) ListAttendance(ctx context.Context, f database.AttendanceFilter) ([]database.AttendanceRow, error) {
	var (
		where []string
		args  []any
	)
	if f.Date != "" {
		where = append(where, "ar.record_date = ?")
		args = append(args, f.Date)
	}
	if f.StudentID != "" {
		where = append(where, "ar.student_id = ?")
		args = append(args, f.StudentID)
	}
	if f.CourseID != 0 {
		where = append(where, "ar.course_id = ?")
		args = append(args, f.CourseID)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = database.DefaultAttendanceLimit
	}
	args = append(args, limit)

	query := `
		SELECT ar.id, ar.student_id, ar.course_id, ar.record_date, ar.record_time, ar.status,
			s.name AS student_name, s.class_name, c.course_name
		FROM attendance_records ar
		JOIN students s ON s.student_id = ar.student_id
		JOIN courses c ON c.id = ar.course_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ar.record_date DESC, ar.record_time DESC, ar.id DESC LIMIT ?"

	var rows []database.AttendanceRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("listing attendance: %w", err)
	}
	return rows, nil
}

func (s *Store) PendingAbsences(ctx context.Context, weekday time.Weekday, date schedule.Date) ([]database.PendingAbsence, error) {
	var pending []database.PendingAbsence
	err := s.db.SelectContext(ctx, &pending, s.q(`
		SELECT sc.student_id, c.id AS course_id, c.course_name, c.course_time_end
		FROM student_courses sc
		JOIN courses c ON c.id = sc.course_id
		LEFT JOIN attendance_records ar
			ON ar.student_id = sc.student_id AND ar.course_id = c.id AND ar.record_date = ?
		WHERE c.weekday = ? AND ar.id IS NULL
		ORDER BY c.course_time_end, sc.student_id, c.id`), date, weekday.String())
	if err != nil {
		return nil, fmt.Errorf("listing pending absences for %s: %w", date, err)
	}
	return pending, nil
}
