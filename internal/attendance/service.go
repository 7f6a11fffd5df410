package attendance

import (
	"context"
	"errors"
	"fmt"
	"image"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/lock"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/schedule"
)

// Messages for the two ways a recognition attempt can find nobody.
const (
	MsgNoFace        = "no face detected, make sure the face is clearly visible"
	MsgNotRecognized = "student not recognized"
)

// NewStudent is the input for EnrollStudent.
type NewStudent struct {
	StudentID string `json:"student_id" validate:"required,max=64"`
	Name      string `json:"name" validate:"required,max=255"`
	ClassName string `json:"class_name" validate:"max=255"`
}

// NewCourse is the input for CreateCourse. Times are HH:MM or HH:MM:SS.
type NewCourse struct {
	Name    string `json:"course_name" validate:"required,max=255"`
	Weekday string `json:"weekday" validate:"required"`
	Start   string `json:"course_time_start" validate:"required"`
	End     string `json:"course_time_end" validate:"required"`
}

// Enrollment links a student to a course.
type Enrollment struct {
	StudentID string `json:"student_id" validate:"required,max=64"`
	CourseID  int64  `json:"course_id" validate:"required,gt=0"`
}

// Result is the outcome of a recognition request.
type Result struct {
	Success   bool
	Message   string
	Status    string
	StudentID string
	Course    string
	Distance  float64
	Time      time.Time
}

// Identification is a recognition without recording attendance.
type Identification struct {
	Match   facematch.Match
	Student *database.Student
}

// Options configures a Service.
type Options struct {
	Locker      lock.Locker // guards check-and-insert per attendance key
	SweepLocker lock.Locker // guards the absence sweep; defaults to Locker
	GracePeriod time.Duration
	Location    *time.Location
	Now         func() time.Time
}

// Service glues image decoding, face matching and attendance decisions to storage.
type Service struct {
	store    database.Store
	matcher  *facematch.Matcher
	engine   *Engine
	sweeper  *Sweeper
	locks    lock.Locker
	validate *validator.Validate
	loc      *time.Location
	now      func() time.Time
}

// NewService wires a service over store and matcher.
func NewService(store database.Store, matcher *facematch.Matcher, opts Options) *Service {
	if opts.Locker == nil {
		opts.Locker = lock.NewKeyedMutex()
	}
	if opts.SweepLocker == nil {
		opts.SweepLocker = opts.Locker
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	return &Service{
		store:    store,
		matcher:  matcher,
		engine:   NewEngine(store, opts.Locker, opts.GracePeriod),
		sweeper:  NewSweeper(store, opts.SweepLocker),
		locks:    opts.Locker,
		validate: validate,
		loc:      opts.Location,
		now:      opts.Now,
	}
}

// Sweeper returns the absence sweeper sharing this service's store and lock.
func (s *Service) Sweeper() *Sweeper {
	return s.sweeper
}

// Now returns the current time in the service's location.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, ", "))
}

// DecodeImage decodes image bytes, mapping failures to ErrInvalidInput.
// Oversized images are scaled down to constants.MaxImageSide.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no face image provided", ErrInvalidInput)
	}
	img, err := facematch.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return facematch.Downscale(img, constants.MaxImageSide), nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, database.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// lockStudent serializes face and delete operations on one student so the
// matcher never keeps samples of a deleted student.
func (s *Service) lockStudent(ctx context.Context, studentID string) (func(), error) {
	unlock, err := s.locks.Lock(ctx, "student:"+studentID)
	if err != nil {
		return nil, fmt.Errorf("locking student %s: %w", studentID, err)
	}
	return unlock, nil
}

// EnrollStudent creates a student and, when img is not nil, enrolls its face.
// The face is extracted before anything is written. The student and its first
// sample are stored together, and the in-memory matcher changes only after
// that write succeeded.
func (s *Service) EnrollStudent(ctx context.Context, in NewStudent, img image.Image) (*database.Student, error) {
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Name = strings.TrimSpace(in.Name)
	in.ClassName = strings.TrimSpace(in.ClassName)
	if err := s.check(in); err != nil {
		return nil, err
	}

	student := &database.Student{StudentID: in.StudentID, Name: in.Name, ClassName: in.ClassName}
	if img == nil {
		if err := s.store.CreateStudent(ctx, student); err != nil {
			return nil, translate(err)
		}
		logging.Info(logging.Fields{"student_id": student.StudentID, "with_face": false}, "student enrolled")
		return student, nil
	}

	sample, err := s.matcher.Prepare(img)
	if err != nil {
		return nil, faceError(err)
	}
	blob, err := facematch.Serialize(sample)
	if err != nil {
		return nil, fmt.Errorf("serializing face sample: %w", err)
	}

	unlock, err := s.lockStudent(ctx, student.StudentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.store.CreateStudentWithSample(ctx, student, blob); err != nil {
		return nil, translate(err)
	}
	if err := s.matcher.EnrollSample(student.StudentID, sample); err != nil {
		return student, fmt.Errorf("training face model: %w", err)
	}

	logging.Info(logging.Fields{"student_id": student.StudentID, "with_face": true}, "student enrolled")
	return student, nil
}

// AddFace enrolls an additional face sample for an existing student.
func (s *Service) AddFace(ctx context.Context, studentID string, img image.Image) (int, error) {
	if img == nil {
		return 0, fmt.Errorf("%w: no face image provided", ErrInvalidInput)
	}
	sample, err := s.matcher.Prepare(img)
	if err != nil {
		return 0, faceError(err)
	}

	unlock, err := s.lockStudent(ctx, studentID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return 0, translate(err)
	}
	if err := s.persistSample(ctx, studentID, sample); err != nil {
		return 0, err
	}
	return s.matcher.SampleCount(studentID), nil
}

func (s *Service) persistSample(ctx context.Context, studentID string, sample facematch.Sample) error {
	blob, err := facematch.Serialize(sample)
	if err != nil {
		return fmt.Errorf("serializing face sample: %w", err)
	}
	if _, err := s.store.AddFaceSample(ctx, studentID, blob); err != nil {
		return translate(err)
	}
	if err := s.matcher.EnrollSample(studentID, sample); err != nil {
		return fmt.Errorf("training face model: %w", err)
	}
	return nil
}

func faceError(err error) error {
	if errors.Is(err, facematch.ErrNoFace) {
		return fmt.Errorf("%w: %s", ErrInvalidInput, MsgNoFace)
	}
	return err
}

// DeleteStudent removes the student with all samples, enrollments and records.
func (s *Service) DeleteStudent(ctx context.Context, studentID string) error {
	unlock, err := s.lockStudent(ctx, studentID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.DeleteStudent(ctx, studentID); err != nil {
		return translate(err)
	}
	removed := s.matcher.Remove(studentID)
	logging.Info(logging.Fields{"student_id": studentID, "samples": removed}, "student deleted")
	return nil
}

// SearchStudents lists students whose id, name or class contains query,
// ignoring letter case and diacritics. An empty query lists everyone.
func (s *Service) SearchStudents(ctx context.Context, query string) ([]database.StudentSummary, error) {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	query = foldName(query)
	if query == "" {
		return students, nil
	}

	var out []database.StudentSummary
	for _, st := range students {
		if matchesStudent(st, query) {
			out = append(out, st)
		}
	}
	return out, nil
}

// LoadFaces replays every persisted sample into the matcher and trains it.
// Corrupt samples are skipped and counted. An empty store is not an error.
func (s *Service) LoadFaces(ctx context.Context) (loaded, skipped int, err error) {
	samples, err := s.store.ListFaceSamples(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, stored := range samples {
		if err := s.matcher.Load(stored.StudentID, stored.Sample); err != nil {
			skipped++
			logging.Warn(logging.Fields{
				"sample_id":  stored.ID,
				"student_id": stored.StudentID,
				"error":      err.Error(),
			}, "skipping unreadable face sample")
			continue
		}
		loaded++
	}

	if err := s.matcher.Train(); err != nil && !errors.Is(err, facematch.ErrEmptyStore) {
		return loaded, skipped, fmt.Errorf("training face model: %w", err)
	}

	logging.Info(logging.Fields{"loaded": loaded, "skipped": skipped}, "face samples loaded")
	return loaded, skipped, nil
}

// FaceStatus reports the matcher state.
func (s *Service) FaceStatus() facematch.Status {
	return s.matcher.Status()
}

// Recognize identifies the face in img and records attendance for the
// session in progress.
func (s *Service) Recognize(ctx context.Context, img image.Image) (Result, error) {
	now := s.Now()
	match := s.matcher.Recognize(img)
	if match.NoFace {
		return Result{Message: MsgNoFace, Distance: match.Distance, Time: now}, nil
	}
	if !match.OK {
		return Result{Message: MsgNotRecognized, Distance: match.Distance, Time: now}, nil
	}

	decision, err := s.engine.Record(ctx, match.OwnerID, now)
	if err != nil {
		return Result{}, err
	}

	res := Result{StudentID: match.OwnerID, Distance: match.Distance, Time: now}
	if decision.Session != nil {
		res.Course = decision.Session.Name
	}
	switch decision.Outcome {
	case OutcomeRecorded:
		res.Success = true
		res.Status = decision.Status
		res.Message = "attendance recorded, status: " + decision.Status
	case OutcomeDuplicate:
		res.Message = "attendance already recorded for this course today"
	case OutcomeNoCoursesToday:
		res.Message = "no courses today"
	case OutcomeNoSession:
		res.Message = "current time is outside every course window"
	}
	return res, nil
}

// Identify recognizes the face in img without recording attendance.
// Match.NoFace tells a probe without a face from an unknown one.
func (s *Service) Identify(ctx context.Context, img image.Image) (Identification, error) {
	match := s.matcher.Recognize(img)
	if !match.OK {
		return Identification{Match: match}, nil
	}
	student, err := s.store.GetStudent(ctx, match.OwnerID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return Identification{}, err
	}
	return Identification{Match: match, Student: student}, nil
}

// DetectFaces returns the face regions found in img.
func (s *Service) DetectFaces(img image.Image) []image.Rectangle {
	return s.matcher.Detect(img)
}

// Sweep runs the absence sweep for the current time.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	return s.sweeper.Sweep(ctx, s.Now())
}

// CreateCourse validates and stores a weekly course slot.
func (s *Service) CreateCourse(ctx context.Context, in NewCourse) (*database.Course, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.check(in); err != nil {
		return nil, err
	}

	weekday, err := schedule.ParseWeekday(in.Weekday)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	start, err := schedule.ParseClock(in.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	end, err := schedule.ParseClock(in.End)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if start >= end {
		return nil, fmt.Errorf("%w: course must start before it ends (%s >= %s)", ErrInvalidInput, start, end)
	}

	course := &database.Course{Name: in.Name, Weekday: weekday.String(), Start: start, End: end}
	if err := s.store.CreateCourse(ctx, course); err != nil {
		return nil, translate(err)
	}
	return course, nil
}

// ListCourses returns every course.
func (s *Service) ListCourses(ctx context.Context) ([]database.Course, error) {
	return s.store.ListCourses(ctx)
}

// DeleteCourse removes a course with its enrollments and records.
func (s *Service) DeleteCourse(ctx context.Context, id int64) error {
	return translate(s.store.DeleteCourse(ctx, id))
}

// Enroll assigns a student to a course.
func (s *Service) Enroll(ctx context.Context, in Enrollment) error {
	in.StudentID = strings.TrimSpace(in.StudentID)
	if err := s.check(in); err != nil {
		return err
	}
	return translate(s.store.Enroll(ctx, in.StudentID, in.CourseID))
}

// Unenroll removes a student from a course.
func (s *Service) Unenroll(ctx context.Context, studentID string, courseID int64) error {
	return translate(s.store.Unenroll(ctx, studentID, courseID))
}

// CoursesForStudent returns the courses a student is enrolled in.
func (s *Service) CoursesForStudent(ctx context.Context, studentID string) ([]database.Course, error) {
	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return nil, translate(err)
	}
	return s.store.CoursesForStudent(ctx, studentID)
}

// ListAttendance returns attendance rows matching filter.
func (s *Service) ListAttendance(ctx context.Context, filter database.AttendanceFilter) ([]database.AttendanceRow, error) {
	return s.store.ListAttendance(ctx, filter)
}
