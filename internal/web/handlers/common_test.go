package handlers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", recorder.Body.String(), err)
	}
	return result
}

func TestRespondJSON_SetsContentType(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusOK, map[string]string{"status": "ok"})

	contentType := recorder.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", contentType)
	}
}

func TestRespondJSON_SetsStatusCode(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"OK", http.StatusOK},
		{"Created", http.StatusCreated},
		{"BadRequest", http.StatusBadRequest},
		{"NotFound", http.StatusNotFound},
		{"InternalServerError", http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.statusCode, nil)

			if recorder.Code != tc.statusCode {
				t.Errorf("expected status %d, got %d", tc.statusCode, recorder.Code)
			}
		})
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusOK, nil)

	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", recorder.Body.String())
	}
}

func TestRespondError_Shape(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondError(recorder, http.StatusBadRequest, "something went wrong")

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", recorder.Code)
	}
	result := decodeBody(t, recorder)
	if result["success"] != false {
		t.Errorf("expected success false, got %v", result["success"])
	}
	if result["message"] != "something went wrong" {
		t.Errorf("unexpected message %v", result["message"])
	}
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid input", fmt.Errorf("%w: bad", attendance.ErrInvalidInput), http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: student", attendance.ErrNotFound), http.StatusNotFound},
		{"conflict", fmt.Errorf("%w: student", attendance.ErrConflict), http.StatusConflict},
		{"unexpected", errors.New("database on fire"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/students", nil)
			respondServiceError(recorder, req, tc.err)

			if recorder.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, recorder.Code)
			}
			result := decodeBody(t, recorder)
			if result["success"] != false {
				t.Errorf("expected success false, got %v", result["success"])
			}
		})
	}
}

func TestRespondServiceError_HidesInternalDetails(t *testing.T) {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/students", nil)
	respondServiceError(recorder, req, errors.New("password=hunter2"))

	result := decodeBody(t, recorder)
	if bytes.Contains(recorder.Body.Bytes(), []byte("hunter2")) {
		t.Errorf("internal error leaked to client: %s", recorder.Body.String())
	}
	if id, _ := result["trace_id"].(string); id == "" {
		t.Error("expected a trace id")
	}
}

func pngBase64(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeBase64Image(t *testing.T) {
	encoded := pngBase64(t, image.NewGray(image.Rect(0, 0, 8, 6)))

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain", encoded, false},
		{"data url", "data:image/png;base64," + encoded, false},
		{"unpadded", base64.RawStdEncoding.EncodeToString(mustDecode(t, encoded)), false},
		{"empty", "  ", true},
		{"malformed data url", "data:image/png;base64", true},
		{"not base64", "!!!", true},
		{"not an image", base64.StdEncoding.EncodeToString([]byte("hello")), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img, err := decodeBase64Image(tc.input)
			if tc.wantErr {
				if !errors.Is(err, attendance.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
				t.Errorf("unexpected bounds %v", b)
			}
		})
	}
}

func mustDecode(t *testing.T, s string) []byte {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	return data
}

func TestFinite(t *testing.T) {
	if finite(math.Inf(1)) != nil {
		t.Error("expected nil for +Inf")
	}
	if finite(math.NaN()) != nil {
		t.Error("expected nil for NaN")
	}
	if v := finite(1.5); v == nil || *v != 1.5 {
		t.Errorf("expected 1.5, got %v", v)
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("a\nb\rc"); got != "abc" {
		t.Errorf("expected 'abc', got %q", got)
	}
}

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthCheck(recorder, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if recorder.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	result := decodeBody(t, recorder)
	if result["status"] != "ok" || result["success"] != true {
		t.Errorf("unexpected body %v", result)
	}
}
