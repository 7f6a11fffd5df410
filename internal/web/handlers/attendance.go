package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/schedule"
)

// timeLayout formats recognition timestamps in responses.
const timeLayout = "2006-01-02 15:04:05"

// AttendanceHandler serves recognition, sweep and listing endpoints.
type AttendanceHandler struct {
	svc *attendance.Service
}

func NewAttendanceHandler(svc *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{svc: svc}
}

type faceRegion struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FaceStatus reports the state of the face model.
func (h *AttendanceHandler) FaceStatus(w http.ResponseWriter, r *http.Request) {
	status := h.svc.FaceStatus()
	respondJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"trained":            status.Trained,
		"known_faces_count":  status.Owners,
		"face_samples_count": status.Samples,
	})
}

// Recognize identifies the face and records attendance for the current session.
func (h *AttendanceHandler) Recognize(w http.ResponseWriter, r *http.Request) {
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

	res, err := h.svc.Recognize(r.Context(), img)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	body := map[string]any{
		"success": res.Success,
		"message": res.Message,
		"time":    res.Time.Format(timeLayout),
	}
	if res.StudentID != "" {
		body["student_id"] = res.StudentID
	}
	if res.Status != "" {
		body["status"] = res.Status
	}
	if res.Course != "" {
		body["course"] = res.Course
	}
	respondJSON(w, http.StatusOK, body)
}

// Identify recognizes a face without recording attendance.
func (h *AttendanceHandler) Identify(w http.ResponseWriter, r *http.Request) {
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

	id, err := h.svc.Identify(r.Context(), img)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	body := map[string]any{
		"success":  id.Match.OK,
		"distance": finite(id.Match.Distance),
	}
	if id.Match.NoFace {
		body["message"] = attendance.MsgNoFace
		respondJSON(w, http.StatusOK, body)
		return
	}
	if !id.Match.OK {
		body["message"] = attendance.MsgNotRecognized
		respondJSON(w, http.StatusOK, body)
		return
	}
	body["message"] = "student recognized"
	body["student_id"] = id.Match.OwnerID
	if id.Student != nil {
		body["name"] = id.Student.Name
		body["class_name"] = id.Student.ClassName
	}
	respondJSON(w, http.StatusOK, body)
}

// DetectFaces reports the face regions found in an image.
func (h *AttendanceHandler) DetectFaces(w http.ResponseWriter, r *http.Request) {
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

	rects := h.svc.DetectFaces(img)
	faces := make([]faceRegion, 0, len(rects))
	for _, rect := range rects {
		faces = append(faces, faceRegion{X: rect.Min.X, Y: rect.Min.Y, Width: rect.Dx(), Height: rect.Dy()})
	}
	bounds := img.Bounds()
	respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      fmt.Sprintf("detected %d faces", len(faces)),
		"faces":        faces,
		"image_width":  bounds.Dx(),
		"image_height": bounds.Dy(),
	})
}

// CheckAbsences runs the absence sweep immediately.
func (h *AttendanceHandler) CheckAbsences(w http.ResponseWriter, r *http.Request) {
	added, err := h.svc.Sweep(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("added %d absence records", added),
		"added":   added,
	})
}

// List returns attendance records filtered by date, student and course.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAttendanceFilter(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	rows, err := h.svc.ListAttendance(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if rows == nil {
		rows = []database.AttendanceRow{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": rows})
}

func parseAttendanceFilter(r *http.Request) (database.AttendanceFilter, error) {
	q := r.URL.Query()
	filter := database.AttendanceFilter{StudentID: q.Get("student_id")}

	if raw := q.Get("date"); raw != "" {
		date, err := schedule.ParseDate(raw)
		if err != nil {
			return filter, fmt.Errorf("%w: %v", attendance.ErrInvalidInput, err)
		}
		filter.Date = date
	}
	if raw := q.Get("course_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, fmt.Errorf("%w: invalid course_id", attendance.ErrInvalidInput)
		}
		filter.CourseID = id
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, fmt.Errorf("%w: invalid limit", attendance.ErrInvalidInput)
		}
		filter.Limit = min(limit, database.DefaultAttendanceLimit)
	}
	return filter, nil
}
