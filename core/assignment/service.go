package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/access"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/core/message"
)

var (
	// errors
	ErrNotFound           = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrSubmissionExists   = errors.New("a submission for this assignment already exists")
	// ErrVersionConflict is returned when a resubmission carries a stale
	// version: another resubmission won the race. The caller decides whether
	// to refetch and retry; the service never retries.
	ErrVersionConflict = errors.New("submission was modified concurrently")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, asg Assignment, exec ...core.DBExecutor) (Assignment, error)
		// QueryAssignments returns the assignments visible under the given scope.
		QueryAssignments(ctx context.Context, scope access.AssignmentScope, exec ...core.DBExecutor) ([]Assignment, error)
		// GetAssignment returns ErrNotFound when the assignment does not
		// exist or falls outside the given scope.
		GetAssignment(ctx context.Context, scope access.AssignmentScope, id string, exec ...core.DBExecutor) (Assignment, error)
		CountAssignments(ctx context.Context, scope access.AssignmentScope, exec ...core.DBExecutor) (int, error)

		CreateSubmission(ctx context.Context, sub Submission, exec ...core.DBExecutor) (Submission, error)
		QuerySubmissions(ctx context.Context, scope access.SubmissionScope, assignmentID string, exec ...core.DBExecutor) ([]Submission, error)
		GetSubmission(ctx context.Context, scope access.SubmissionScope, id string, exec ...core.DBExecutor) (Submission, error)
		// UpdateSubmissionVersioned is an atomic conditional update: it only
		// succeeds if the stored version still equals expectedVersion, and
		// bumps the version by one. A mismatch returns ErrVersionConflict.
		UpdateSubmissionVersioned(ctx context.Context, sub Submission, expectedVersion int, exec ...core.DBExecutor) (Submission, error)
		UpdateSubmissionGrade(ctx context.Context, sub Submission, exec ...core.DBExecutor) (Submission, error)
		CountSubmissions(ctx context.Context, scope access.SubmissionScope, status string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		Create(ctx context.Context, ident access.Identity, na NewAssignment) (Assignment, error)
		Query(ctx context.Context, ident access.Identity) ([]Assignment, error)
		GetByID(ctx context.Context, ident access.Identity, id string) (Assignment, error)

		Submit(ctx context.Context, ident access.Identity, assignmentID string, ns NewSubmission) (Submission, error)
		Resubmit(ctx context.Context, ident access.Identity, submissionID string, rs ResubmitSubmission) (Submission, error)
		QuerySubmissions(ctx context.Context, ident access.Identity, assignmentID string) ([]Submission, error)
		GetSubmission(ctx context.Context, ident access.Identity, id string) (Submission, error)
		Grade(ctx context.Context, ident access.Identity, submissionID string, gs GradeSubmission) (Submission, error)
	}

	service struct {
		repo    Repository
		crsRepo course.Repository
		msgSvc  message.Service
	}
)

var _ Service = (*service)(nil)

var unscopedCourses = access.CourseScope{All: true}

func NewService(repo Repository, crsRepo course.Repository, msgSvc message.Service) Service {
	return &service{
		repo:    repo,
		crsRepo: crsRepo,
		msgSvc:  msgSvc,
	}
}

// Create creates an assignment under a course. A teacher may only create
// under a course they own; an admin may create under any course, on behalf of
// its owning teacher.
func (svc *service) Create(ctx context.Context, ident access.Identity, na NewAssignment) (Assignment, error) {
	if !(ident.IsTeacher() || ident.IsAdmin()) {
		return Assignment{}, access.ErrForbidden
	}

	crs, err := svc.crsRepo.GetCourse(ctx, unscopedCourses, na.CourseID)
	if err != nil {
		if err == course.ErrNotFound {
			return Assignment{}, ErrNotFound
		}
		return Assignment{}, err
	}
	if ident.IsTeacher() && crs.TeacherID != ident.UserID {
		return Assignment{}, access.ErrForbidden
	}

	now := time.Now().UTC()
	asg := Assignment{
		CourseID:     crs.ID,
		CreatedBy:    crs.TeacherID,
		Title:        na.Title,
		Description:  na.Description,
		Instructions: na.Instructions,
		DueDate:      na.DueDate,
		MaxPoints:    na.MaxPoints,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	asg, err = svc.repo.CreateAssignment(ctx, asg)
	if err != nil {
		return Assignment{}, err
	}

	svc.notifyEnrolledStudents(ctx, crs, asg)
	return asg, nil
}

// notifyEnrolledStudents fans a new-assignment notification out to every
// student enrolled in the course. Notification failures do not fail the
// create.
func (svc *service) notifyEnrolledStudents(ctx context.Context, crs course.Course, asg Assignment) {
	enrs, err := svc.crsRepo.QueryEnrollments(ctx, crs.ID)
	if err != nil {
		return
	}
	title := "New assignment: " + asg.Title
	body := fmt.Sprintf("A new assignment was posted in %s, due %s.", crs.Title, asg.DueDate.Format("Jan 2, 2006"))
	for _, enr := range enrs {
		_, _ = svc.msgSvc.Notify(ctx, enr.StudentID, title, body, message.KindInfo)
	}
}

func (svc *service) Query(ctx context.Context, ident access.Identity) ([]Assignment, error) {
	scope, err := access.ResolveAssignmentScope(ident)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryAssignments(ctx, scope)
}

func (svc *service) GetByID(ctx context.Context, ident access.Identity, id string) (Assignment, error) {
	scope, err := access.ResolveAssignmentScope(ident)
	if err != nil {
		return Assignment{}, err
	}
	return svc.repo.GetAssignment(ctx, scope, id)
}

// Submit creates a student's submission for an assignment. The assignment
// must be within the student's scope, i.e. they are enrolled in its course.
func (svc *service) Submit(ctx context.Context, ident access.Identity, assignmentID string, ns NewSubmission) (Submission, error) {
	if !ident.IsStudent() {
		return Submission{}, access.ErrForbidden
	}
	asg, err := svc.GetByID(ctx, ident, assignmentID)
	if err != nil {
		return Submission{}, err
	}

	now := time.Now().UTC()
	sub := Submission{
		AssignmentID: asg.ID,
		StudentID:    ident.UserID,
		Content:      ns.Content,
		Status:       StatusDraft,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if ns.Submit {
		sub.Status = StatusSubmitted
		sub.SubmittedAt = now
	}
	sub, err = svc.repo.CreateSubmission(ctx, sub)
	if err != nil {
		if err == ErrSubmissionExists {
			return Submission{}, core.NewValidationError(err)
		}
		return Submission{}, err
	}
	return sub, nil
}

// Resubmit replaces the content of the student's own submission, bumping the
// version. Exactly one of two concurrent resubmissions succeeds.
func (svc *service) Resubmit(ctx context.Context, ident access.Identity, submissionID string, rs ResubmitSubmission) (Submission, error) {
	if !ident.IsStudent() {
		return Submission{}, access.ErrForbidden
	}
	sub, err := svc.GetSubmission(ctx, ident, submissionID)
	if err != nil {
		return Submission{}, err
	}
	if sub.IsGraded() {
		return Submission{}, core.NewValidationError(errors.New("submission has already been graded"))
	}

	now := time.Now().UTC()
	sub.Content = rs.Content
	sub.UpdatedAt = now
	if rs.Submit {
		sub.Status = StatusSubmitted
		sub.SubmittedAt = now
	}
	return svc.repo.UpdateSubmissionVersioned(ctx, sub, rs.Version)
}

func (svc *service) QuerySubmissions(ctx context.Context, ident access.Identity, assignmentID string) ([]Submission, error) {
	scope, err := access.ResolveSubmissionScope(ident)
	if err != nil {
		return nil, err
	}
	return svc.repo.QuerySubmissions(ctx, scope, assignmentID)
}

func (svc *service) GetSubmission(ctx context.Context, ident access.Identity, id string) (Submission, error) {
	scope, err := access.ResolveSubmissionScope(ident)
	if err != nil {
		return Submission{}, err
	}
	return svc.repo.GetSubmission(ctx, scope, id)
}

// Grade writes a grade on a submitted submission. The submission must be
// within the caller's scope, which restricts teachers to assignments they
// own.
func (svc *service) Grade(ctx context.Context, ident access.Identity, submissionID string, gs GradeSubmission) (Submission, error) {
	if !(ident.IsTeacher() || ident.IsAdmin()) {
		return Submission{}, access.ErrForbidden
	}
	sub, err := svc.GetSubmission(ctx, ident, submissionID)
	if err != nil {
		return Submission{}, err
	}
	if sub.Status != StatusSubmitted {
		return Submission{}, core.NewValidationError(fmt.Errorf("cannot grade a %s submission", sub.Status))
	}

	asg, err := svc.repo.GetAssignment(ctx, access.AssignmentScope{All: true}, sub.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	if *gs.Score > float64(asg.MaxPoints) {
		return Submission{}, core.NewValidationError(nil, core.FieldError{
			Field: "score",
			Error: fmt.Sprintf("score cannot exceed %d points", asg.MaxPoints),
		})
	}

	now := time.Now().UTC()
	sub.Score = gs.Score
	sub.Feedback = gs.Feedback
	sub.GradedBy = ident.UserID
	sub.GradedAt = now
	sub.UpdatedAt = now
	sub.Status = StatusGraded
	sub, err = svc.repo.UpdateSubmissionGrade(ctx, sub)
	if err != nil {
		return Submission{}, err
	}

	_, _ = svc.msgSvc.Notify(ctx, sub.StudentID,
		"Your work has been graded",
		fmt.Sprintf("%s was graded: %.4g/%d.", asg.Title, *gs.Score, asg.MaxPoints),
		message.KindSuccess,
	)
	return sub, nil
}
