package handlers

import (
	"image"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// StudentsHandler serves student and face enrollment endpoints.
type StudentsHandler struct {
	svc *attendance.Service
}

func NewStudentsHandler(svc *attendance.Service) *StudentsHandler {
	return &StudentsHandler{svc: svc}
}

type createStudentRequest struct {
	attendance.NewStudent
	FaceImage string `json:"face_image"`
}

type faceImageRequest struct {
	FaceImage string `json:"face_image"`
}

// List returns students with sample and course counts, optionally
// filtered by the q query parameter.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := h.svc.SearchStudents(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if students == nil {
		students = []database.StudentSummary{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": students})
}

// Create adds a student, enrolling the face image when one is sent.
func (h *StudentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	var img image.Image
	if req.FaceImage != "" {
		var err error
		if img, err = decodeBase64Image(req.FaceImage); err != nil {
			respondServiceError(w, r, err)
			return
		}
	}

	student, err := h.svc.EnrollStudent(r.Context(), req.NewStudent, img)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"message":    "student added",
		"student_id": student.StudentID,
		"data":       student,
	})
}

// AddFace enrolls another face sample for an existing student.
func (h *StudentsHandler) AddFace(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	var req faceImageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}
	img, err := decodeBase64Image(req.FaceImage)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	count, err := h.svc.AddFace(r.Context(), studentID, img)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"success":      true,
		"message":      "face sample added",
		"student_id":   studentID,
		"sample_count": count,
	})
}

// Delete removes a student together with samples, enrollments and records.
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteStudent(r.Context(), chi.URLParam(r, "studentID")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "student deleted"})
}
