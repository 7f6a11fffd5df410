package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	studentsHandler := handlers.NewStudentsHandler(s.svc)
	coursesHandler := handlers.NewCoursesHandler(s.svc)
	attendanceHandler := handlers.NewAttendanceHandler(s.svc)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)
		r.Get("/face_status", attendanceHandler.FaceStatus)

		// Students
		r.Get("/students", studentsHandler.List)
		r.Post("/students", studentsHandler.Create)
		r.Delete("/students/{studentID}", studentsHandler.Delete)
		r.Post("/students/{studentID}/faces", studentsHandler.AddFace)

		// Courses
		r.Get("/courses", coursesHandler.List)
		r.Post("/courses", coursesHandler.Create)
		r.Delete("/courses/{courseID}", coursesHandler.Delete)

		// Enrollments
		r.Post("/student_courses", coursesHandler.Enroll)
		r.Get("/student_courses/{studentID}", coursesHandler.ForStudent)
		r.Delete("/student_courses/{studentID}/{courseID}", coursesHandler.Unenroll)

		// Attendance
		r.Get("/attendance", attendanceHandler.List)
		r.With(s.limiter.Middleware).Post("/attendance/recognize", attendanceHandler.Recognize)
		r.Post("/attendance/check_absences", attendanceHandler.CheckAbsences)
		r.Post("/attendance/run_check", attendanceHandler.CheckAbsences)

		// Debugging
		r.Post("/debug/face_detection", attendanceHandler.DetectFaces)
		r.With(s.limiter.Middleware).Post("/test_recognize", attendanceHandler.Identify)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"message":"not found"}`))
	})
}
