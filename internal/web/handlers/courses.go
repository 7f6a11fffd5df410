package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// CoursesHandler serves course and enrollment endpoints.
type CoursesHandler struct {
	svc *attendance.Service
}

func NewCoursesHandler(svc *attendance.Service) *CoursesHandler {
	return &CoursesHandler{svc: svc}
}

func courseIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "courseID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid course id %q", attendance.ErrInvalidInput, sanitizeForLog(raw))
	}
	return id, nil
}

// List returns all courses.
func (h *CoursesHandler) List(w http.ResponseWriter, r *http.Request) {
	courses, err := h.svc.ListCourses(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": courses})
}

// Create adds a weekly course slot.
func (h *CoursesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req attendance.NewCourse
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	course, err := h.svc.CreateCourse(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"message":   "course added",
		"course_id": course.ID,
		"data":      course,
	})
}

// Delete removes a course with its enrollments and records.
func (h *CoursesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := courseIDParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if err := h.svc.DeleteCourse(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "course deleted"})
}

// Enroll assigns a student to a course.
func (h *CoursesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req attendance.Enrollment
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if err := h.svc.Enroll(r.Context(), req); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "course assigned"})
}

// ForStudent lists the courses a student is enrolled in.
func (h *CoursesHandler) ForStudent(w http.ResponseWriter, r *http.Request) {
	courses, err := h.svc.CoursesForStudent(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": courses})
}

// Unenroll removes a student from a course.
func (h *CoursesHandler) Unenroll(w http.ResponseWriter, r *http.Request) {
	id, err := courseIDParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if err := h.svc.Unenroll(r.Context(), chi.URLParam(r, "studentID"), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "enrollment removed"})
}
