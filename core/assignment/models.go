package assignment

import (
	"time"

	"github.com/trezcool/kampus/core"
)

// Submission statuses
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusGraded    = "graded"
)

type Assignment struct {
	ID           string    `json:"id"`
	CourseID     string    `json:"course_id"`
	CreatedBy    string    `json:"created_by"` // owning teacher
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Instructions string    `json:"instructions,omitempty"`
	DueDate      time.Time `json:"due_date"`
	MaxPoints    int       `json:"max_points"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

type Submission struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignment_id"`
	StudentID    string    `json:"student_id"`
	Content      string    `json:"content,omitempty"`
	Status       string    `json:"status"`
	Version      int       `json:"version"` // bumped on every resubmission
	Score        *float64  `json:"score,omitempty"`
	Feedback     string    `json:"feedback,omitempty"`
	GradedBy     string    `json:"graded_by,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at,omitempty"`
	GradedAt     time.Time `json:"graded_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (s *Submission) IsGraded() bool { return s.Status == StatusGraded }

// NewAssignment contains information needed to create a new Assignment under
// a Course.
type NewAssignment struct {
	CourseID     string    `json:"course_id" validate:"required"`
	Title        string    `json:"title" validate:"required"`
	Description  string    `json:"description"`
	Instructions string    `json:"instructions"`
	DueDate      time.Time `json:"due_date" validate:"required"`
	MaxPoints    int       `json:"max_points" validate:"required,gte=1"`
}

func (na *NewAssignment) Validate() error {
	na.CourseID = core.CleanString(na.CourseID)
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.Instructions = core.CleanString(na.Instructions)
	return core.Validate.Struct(na)
}

// NewSubmission contains a student's first submission of work for an
// Assignment. Submit=false saves a draft.
type NewSubmission struct {
	Content string `json:"content" validate:"required"`
	Submit  bool   `json:"submit"`
}

func (ns *NewSubmission) Validate() error {
	ns.Content = core.CleanString(ns.Content)
	return core.Validate.Struct(ns)
}

// ResubmitSubmission replaces the content of an existing Submission. Version
// must carry the version the client last observed; a mismatch means another
// resubmission won the race.
type ResubmitSubmission struct {
	Content string `json:"content" validate:"required"`
	Version int    `json:"version" validate:"required,gte=1"`
	Submit  bool   `json:"submit"`
}

func (rs *ResubmitSubmission) Validate() error {
	rs.Content = core.CleanString(rs.Content)
	return core.Validate.Struct(rs)
}

// GradeSubmission contains a grade written by the assignment's owning teacher
// or an admin.
type GradeSubmission struct {
	Score    *float64 `json:"score" validate:"required,gte=0"`
	Feedback string   `json:"feedback"`
}

func (gs *GradeSubmission) Validate() error {
	gs.Feedback = core.CleanString(gs.Feedback)
	return core.Validate.Struct(gs)
}
