package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func (s *Store) CreateStudent(ctx context.Context, st *database.Student) error {
	_, _, err := s.insert(ctx,
		"INSERT INTO students (student_id, name, class_name) VALUES (?, ?, ?)",
		st.StudentID, st.Name, st.ClassName)
	if err != nil {
		return fmt.Errorf("creating student %s: %w", st.StudentID, err)
	}

	// Re-read to pick up the generated id and created_at.
	created, err := s.GetStudent(ctx, st.StudentID)
	if err != nil {
		return err
	}
	*st = *created
	return nil
}

func (s *Store) CreateStudentWithSample(ctx context.Context, st *database.Student, sample []byte) (int64, error) {
	var sampleID int64
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, _, err := s.insertWith(ctx, tx,
			"INSERT INTO students (student_id, name, class_name) VALUES (?, ?, ?)",
			st.StudentID, st.Name, st.ClassName)
		if err != nil {
			return fmt.Errorf("creating student %s: %w", st.StudentID, err)
		}
		sampleID, _, err = s.insertWith(ctx, tx,
			"INSERT INTO face_samples (student_id, sample) VALUES (?, ?)", st.StudentID, sample)
		if err != nil {
			return fmt.Errorf("saving face sample for %s: %w", st.StudentID, err)
		}
		created, err := getStudent(ctx, tx, st.StudentID)
		if err != nil {
			return err
		}
		*st = *created
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sampleID, nil
}

func (s *Store) GetStudent(ctx context.Context, studentID string) (*database.Student, error) {
	return getStudent(ctx, s.db, studentID)
}

func getStudent(ctx context.Context, db sqlx.ExtContext, studentID string) (*database.Student, error) {
	var st database.Student
	err := sqlx.GetContext(ctx, db, &st, db.Rebind(
		"SELECT id, student_id, name, class_name, created_at FROM students WHERE student_id = ?"), studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting student %s: %w", studentID, err)
	}
	return &st, nil
}

func (s *Store) ListStudents(ctx context.Context) ([]database.StudentSummary, error) {
	var students []database.StudentSummary
	err := s.db.SelectContext(ctx, &students, `
		SELECT s.id, s.student_id, s.name, s.class_name, s.created_at,
			(SELECT COUNT(*) FROM face_samples f WHERE f.student_id = s.student_id) AS sample_count,
			(SELECT COUNT(*) FROM student_courses sc WHERE sc.student_id = s.student_id) AS course_count
		FROM students s
		ORDER BY s.student_id`)
	if err != nil {
		return nil, fmt.Errorf("listing students: %w", err)
	}
	return students, nil
}

func (s *Store) DeleteStudent(ctx context.Context, studentID string) error {
	if err := s.execOne(ctx, "DELETE FROM students WHERE student_id = ?", studentID); err != nil {
		return fmt.Errorf("deleting student %s: %w", studentID, err)
	}
	return nil
}

func (s *Store) AddFaceSample(ctx context.Context, studentID string, sample []byte) (int64, error) {
	id, _, err := s.insert(ctx,
		"INSERT INTO face_samples (student_id, sample) VALUES (?, ?)", studentID, sample)
	if err != nil {
		return 0, fmt.Errorf("saving face sample for %s: %w", studentID, err)
	}
	return id, nil
}

func (s *Store) ListFaceSamples(ctx context.Context) ([]database.StoredFaceSample, error) {
	var samples []database.StoredFaceSample
	err := s.db.SelectContext(ctx, &samples,
		"SELECT id, student_id, sample, created_at FROM face_samples ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing face samples: %w", err)
	}
	return samples, nil
}
