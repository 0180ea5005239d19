package course

import (
	"context"
	"time"

	"github.com/trezcool/kampus/core"
)

type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	Credits     int       `json:"credits"`
	TeacherID   string    `json:"teacher_id"`
	TeacherName string    `json:"teacher_name,omitempty"` // joined on reads
	CreatedAt   time.Time `json:"created_at"`             // UTC
	UpdatedAt   time.Time `json:"updated_at"`             // UTC
}

// Enrollment links a student to a Course and grants them visibility of the
// course and its assignments.
type Enrollment struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	CourseID   string    `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
// TeacherID is only honored for admin callers; a teacher always owns the
// courses they create.
type NewCourse struct {
	Title       string `json:"title" validate:"required"`
	Code        string `json:"code" validate:"required,alphanum_"`
	Description string `json:"description"`
	Credits     int    `json:"credits" validate:"gte=0"`
	TeacherID   string `json:"teacher_id"`
}

func (nc *NewCourse) Validate(ctx context.Context, svc Service) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Code = core.CleanString(nc.Code, true /* lower */)
	nc.Description = core.CleanString(nc.Description)

	if err := core.Validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(ctx, nc.Code)
}

// EnrollStudent contains information needed to enroll a student into a Course.
type EnrollStudent struct {
	StudentID string `json:"student_id" validate:"required"`
}

func (es *EnrollStudent) Validate() error {
	es.StudentID = core.CleanString(es.StudentID)
	return core.Validate.Struct(es)
}
