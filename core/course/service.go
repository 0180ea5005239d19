package course

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/access"
	"github.com/trezcool/kampus/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrCodeExists      = errors.New("a course with this code already exists")
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this course")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string, excludedCourses []Course, exec ...core.DBExecutor) error
		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		// QueryCourses returns the courses visible under the given scope.
		QueryCourses(ctx context.Context, scope access.CourseScope, exec ...core.DBExecutor) ([]Course, error)
		// GetCourse returns ErrNotFound when the course does not exist or
		// falls outside the given scope.
		GetCourse(ctx context.Context, scope access.CourseScope, id string, exec ...core.DBExecutor) (Course, error)
		CountCourses(ctx context.Context, scope access.CourseScope, exec ...core.DBExecutor) (int, error)
		CreateEnrollment(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		EnrollmentExists(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (bool, error)
		QueryEnrollments(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Enrollment, error)
		CountEnrollments(ctx context.Context, studentID string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		CheckCodeUniqueness(ctx context.Context, code string, exclCourses ...Course) error
		Create(ctx context.Context, ident access.Identity, nc NewCourse) (Course, error)
		Query(ctx context.Context, ident access.Identity) ([]Course, error)
		GetByID(ctx context.Context, ident access.Identity, id string) (Course, error)
		Enroll(ctx context.Context, ident access.Identity, courseID string, es EnrollStudent) (Enrollment, error)
		Enrollments(ctx context.Context, ident access.Identity, courseID string) ([]Enrollment, error)
	}

	service struct {
		repo   Repository
		usrSvc user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service) Service {
	return &service{
		repo:   repo,
		usrSvc: usrSvc,
	}
}

func (svc *service) CheckCodeUniqueness(ctx context.Context, code string, exclCourses ...Course) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code, exclCourses); err != nil {
		if err == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Create creates a course owned by the calling teacher, or by the teacher an
// admin names. Students may not create courses.
func (svc *service) Create(ctx context.Context, ident access.Identity, nc NewCourse) (Course, error) {
	var teacherID string
	switch {
	case ident.IsTeacher():
		teacherID = ident.UserID
	case ident.IsAdmin():
		if nc.TeacherID == "" {
			return Course{}, core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "this field is required"})
		}
		teacher, err := svc.usrSvc.GetByID(ctx, nc.TeacherID)
		if err != nil {
			if err == user.ErrNotFound {
				return Course{}, core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "teacher not found"})
			}
			return Course{}, err
		}
		if !teacher.IsTeacher() {
			return Course{}, core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "user is not a teacher"})
		}
		teacherID = teacher.ID
	default:
		return Course{}, access.ErrForbidden
	}

	now := time.Now().UTC()
	crs := Course{
		Title:       nc.Title,
		Code:        nc.Code,
		Description: nc.Description,
		Credits:     nc.Credits,
		TeacherID:   teacherID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) Query(ctx context.Context, ident access.Identity) ([]Course, error) {
	scope, err := access.ResolveCourseScope(ident)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryCourses(ctx, scope)
}

func (svc *service) GetByID(ctx context.Context, ident access.Identity, id string) (Course, error) {
	scope, err := access.ResolveCourseScope(ident)
	if err != nil {
		return Course{}, err
	}
	return svc.repo.GetCourse(ctx, scope, id)
}

// Enroll enrolls a student into a course. Only an admin or the owning teacher
// may enroll; the course must be within the caller's scope.
func (svc *service) Enroll(ctx context.Context, ident access.Identity, courseID string, es EnrollStudent) (Enrollment, error) {
	if !(ident.IsAdmin() || ident.IsTeacher()) {
		return Enrollment{}, access.ErrForbidden
	}
	crs, err := svc.GetByID(ctx, ident, courseID)
	if err != nil {
		return Enrollment{}, err
	}

	student, err := svc.usrSvc.GetByID(ctx, es.StudentID)
	if err != nil {
		if err == user.ErrNotFound {
			return Enrollment{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "student not found"})
		}
		return Enrollment{}, err
	}
	if !student.IsStudent() {
		return Enrollment{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "user is not a student"})
	}

	exists, err := svc.repo.EnrollmentExists(ctx, student.ID, crs.ID)
	if err != nil {
		return Enrollment{}, err
	}
	if exists {
		return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled, core.FieldError{Field: "student_id", Error: ErrAlreadyEnrolled.Error()})
	}

	enr := Enrollment{
		StudentID:  student.ID,
		CourseID:   crs.ID,
		EnrolledAt: time.Now().UTC(),
	}
	return svc.repo.CreateEnrollment(ctx, enr)
}

// Enrollments lists the enrollments of a course within the caller's scope.
func (svc *service) Enrollments(ctx context.Context, ident access.Identity, courseID string) ([]Enrollment, error) {
	crs, err := svc.GetByID(ctx, ident, courseID)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryEnrollments(ctx, crs.ID)
}
