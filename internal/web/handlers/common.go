package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"math"
	"net/http"
	"strings"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends a failed response with a message.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"success": false, "message": message})
}

// respondServiceError maps service errors to status codes. Unexpected errors
// are logged with a trace id that is returned to the client instead of details.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, attendance.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, attendance.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, attendance.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	default:
		traceID := logging.ErrorWithTraceID(logging.Fields{
			logging.RequestIDKey: chiMiddleware.GetReqID(r.Context()),
			"method":             r.Method,
			"path":               sanitizeForLog(r.URL.Path),
			"error":              err.Error(),
		}, "request failed")
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"success":  false,
			"message":  "internal error, trace id " + traceID,
			"trace_id": traceID,
		})
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxImageBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %s", attendance.ErrInvalidInput, errInvalidRequestBody)
	}
	return nil
}

// decodeBase64Image decodes a base64 image, optionally prefixed with a
// data URL header such as "data:image/jpeg;base64,".
func decodeBase64Image(s string) (image.Image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: no face image provided", attendance.ErrInvalidInput)
	}
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, fmt.Errorf("%w: malformed data URL", attendance.ErrInvalidInput)
		}
		s = payload
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some clients strip the padding.
		if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); err != nil {
			return nil, fmt.Errorf("%w: image is not valid base64", attendance.ErrInvalidInput)
		}
	}
	return attendance.DecodeImage(data)
}

// finite returns nil for infinite or NaN values so they can be omitted from JSON.
func finite(f float64) *float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  "ok",
	})
}
