package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/access"
	"github.com/trezcool/kampus/core/assignment"
)

const (
	assignmentColumns = `a.id, a.course_id, a.created_by, a.title, a.description, a.instructions, a.due_date, a.max_points, a.created_at, a.updated_at`
	submissionColumns = `s.id, s.assignment_id, s.student_id, s.content, s.status, s.version, s.score, s.feedback, s.graded_by, s.submitted_at, s.graded_at, s.created_at, s.updated_at`

	// bare column list for RETURNING clauses
	submissionReturning = `id, assignment_id, student_id, content, status, version, score, feedback, graded_by, submitted_at, graded_at, created_at, updated_at`
)

type assignmentRow struct {
	ID           string      `db:"id"`
	CourseID     string      `db:"course_id"`
	CreatedBy    string      `db:"created_by"`
	Title        string      `db:"title"`
	Description  null.String `db:"description"`
	Instructions null.String `db:"instructions"`
	DueDate      null.Time   `db:"due_date"`
	MaxPoints    int         `db:"max_points"`
	CreatedAt    null.Time   `db:"created_at"`
	UpdatedAt    null.Time   `db:"updated_at"`
}

func (row assignmentRow) toAssignment() assignment.Assignment {
	return assignment.Assignment{
		ID:           row.ID,
		CourseID:     row.CourseID,
		CreatedBy:    row.CreatedBy,
		Title:        row.Title,
		Description:  row.Description.String,
		Instructions: row.Instructions.String,
		DueDate:      row.DueDate.Time,
		MaxPoints:    row.MaxPoints,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
	}
}

type submissionRow struct {
	ID           string       `db:"id"`
	AssignmentID string       `db:"assignment_id"`
	StudentID    string       `db:"student_id"`
	Content      null.String  `db:"content"`
	Status       string       `db:"status"`
	Version      int          `db:"version"`
	Score        null.Float64 `db:"score"`
	Feedback     null.String  `db:"feedback"`
	GradedBy     null.String  `db:"graded_by"`
	SubmittedAt  null.Time    `db:"submitted_at"`
	GradedAt     null.Time    `db:"graded_at"`
	CreatedAt    null.Time    `db:"created_at"`
	UpdatedAt    null.Time    `db:"updated_at"`
}

func (row submissionRow) toSubmission() assignment.Submission {
	return assignment.Submission{
		ID:           row.ID,
		AssignmentID: row.AssignmentID,
		StudentID:    row.StudentID,
		Content:      row.Content.String,
		Status:       row.Status,
		Version:      row.Version,
		Score:        row.Score.Ptr(),
		Feedback:     row.Feedback.String,
		GradedBy:     row.GradedBy.String,
		SubmittedAt:  row.SubmittedAt.Time,
		GradedAt:     row.GradedAt.Time,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
	}
}

func assignmentScopeClause(scope access.AssignmentScope, args []interface{}) (string, []interface{}) {
	switch {
	case scope.All:
		return "TRUE", args
	case scope.CreatedBy != "":
		args = append(args, scope.CreatedBy)
		return fmt.Sprintf("a.created_by = $%d", len(args)), args
	case scope.EnrolledStudentID != "":
		args = append(args, scope.EnrolledStudentID)
		return fmt.Sprintf("EXISTS (SELECT 1 FROM enrollment e WHERE e.course_id = a.course_id AND e.student_id = $%d)", len(args)), args
	}
	return "FALSE", args
}

func submissionScopeClause(scope access.SubmissionScope, args []interface{}) (string, []interface{}) {
	switch {
	case scope.All:
		return "TRUE", args
	case scope.StudentID != "":
		args = append(args, scope.StudentID)
		return fmt.Sprintf("s.student_id = $%d", len(args)), args
	case scope.AssignmentOwnerID != "":
		args = append(args, scope.AssignmentOwnerID)
		return fmt.Sprintf("EXISTS (SELECT 1 FROM assignment a WHERE a.id = s.assignment_id AND a.created_by = $%d)", len(args)), args
	}
	return "FALSE", args
}

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *sqlx.DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment, exec ...core.DBExecutor) (assignment.Assignment, error) {
	asg.ID = uuid.New().String()
	_, err := ext(repo.db, exec).ExecContext(ctx,
		`INSERT INTO assignment (id, course_id, created_by, title, description, instructions, due_date, max_points, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		asg.ID, asg.CourseID, asg.CreatedBy, asg.Title, nullString(asg.Description), nullString(asg.Instructions),
		nullTime(asg.DueDate), asg.MaxPoints, nullTime(asg.CreatedAt), nullTime(asg.UpdatedAt),
	)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return asg, nil
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context, scope access.AssignmentScope, exec ...core.DBExecutor) ([]assignment.Assignment, error) {
	clause, args := assignmentScopeClause(scope, nil)
	q := `SELECT ` + assignmentColumns + ` FROM assignment a WHERE ` + clause + ` ORDER BY a.due_date ASC, a.id ASC`

	var rows []assignmentRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	asgs := make([]assignment.Assignment, len(rows))
	for i, row := range rows {
		asgs[i] = row.toAssignment()
	}
	return asgs, nil
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, scope access.AssignmentScope, id string, exec ...core.DBExecutor) (assignment.Assignment, error) {
	args := []interface{}{id}
	clause, args := assignmentScopeClause(scope, args)

	var row assignmentRow
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &row,
		`SELECT `+assignmentColumns+` FROM assignment a WHERE a.id = $1 AND `+clause, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return assignment.Assignment{}, assignment.ErrNotFound
		}
		return assignment.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	return row.toAssignment(), nil
}

func (repo *assignmentRepository) CountAssignments(ctx context.Context, scope access.AssignmentScope, exec ...core.DBExecutor) (int, error) {
	clause, args := assignmentScopeClause(scope, nil)

	var count int
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &count, `SELECT COUNT(*) FROM assignment a WHERE `+clause, args...)
	if err != nil {
		return 0, errors.Wrap(err, "counting assignments")
	}
	return count, nil
}

func (repo *assignmentRepository) CreateSubmission(ctx context.Context, sub assignment.Submission, exec ...core.DBExecutor) (assignment.Submission, error) {
	sub.ID = uuid.New().String()

	// ON CONFLICT DO NOTHING keeps the (assignment, student) uniqueness check
	// and the insert atomic; no row back means a submission already exists.
	var id string
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &id,
		`INSERT INTO submission (id, assignment_id, student_id, content, status, version, submitted_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (assignment_id, student_id) DO NOTHING
		 RETURNING id`,
		sub.ID, sub.AssignmentID, sub.StudentID, nullString(sub.Content), sub.Status, sub.Version,
		nullTime(sub.SubmittedAt), nullTime(sub.CreatedAt), nullTime(sub.UpdatedAt),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return assignment.Submission{}, assignment.ErrSubmissionExists
		}
		return assignment.Submission{}, errors.Wrap(err, "creating submission")
	}
	return sub, nil
}

func (repo *assignmentRepository) QuerySubmissions(ctx context.Context, scope access.SubmissionScope, assignmentID string, exec ...core.DBExecutor) ([]assignment.Submission, error) {
	var args []interface{}
	var filter string
	if assignmentID != "" {
		args = append(args, assignmentID)
		filter = fmt.Sprintf("s.assignment_id = $%d AND ", len(args))
	}
	clause, args := submissionScopeClause(scope, args)
	q := `SELECT ` + submissionColumns + ` FROM submission s WHERE ` + filter + clause + ` ORDER BY s.created_at ASC, s.id ASC`

	var rows []submissionRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]assignment.Submission, len(rows))
	for i, row := range rows {
		subs[i] = row.toSubmission()
	}
	return subs, nil
}

func (repo *assignmentRepository) GetSubmission(ctx context.Context, scope access.SubmissionScope, id string, exec ...core.DBExecutor) (assignment.Submission, error) {
	args := []interface{}{id}
	clause, args := submissionScopeClause(scope, args)

	var row submissionRow
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &row,
		`SELECT `+submissionColumns+` FROM submission s WHERE s.id = $1 AND `+clause, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return assignment.Submission{}, assignment.ErrSubmissionNotFound
		}
		return assignment.Submission{}, errors.Wrap(err, "getting submission")
	}
	return row.toSubmission(), nil
}

func (repo *assignmentRepository) UpdateSubmissionVersioned(ctx context.Context, sub assignment.Submission, expectedVersion int, exec ...core.DBExecutor) (assignment.Submission, error) {
	// conditional update: only the resubmission that observed the current
	// version wins; the version bump publishes the new one atomically
	var row submissionRow
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &row,
		`UPDATE submission SET
			content      = $3,
			status       = $4,
			submitted_at = $5,
			updated_at   = $6,
			version      = version + 1
		 WHERE id = $1 AND version = $2
		 RETURNING `+submissionReturning,
		sub.ID, expectedVersion, nullString(sub.Content), sub.Status,
		nullTime(sub.SubmittedAt), nullTime(sub.UpdatedAt),
	)
	if err == nil {
		return row.toSubmission(), nil
	}
	if err != sql.ErrNoRows {
		return assignment.Submission{}, errors.Wrap(err, "updating submission")
	}

	// no row updated: either the submission is gone or the version is stale
	var exists bool
	err = sqlx.GetContext(ctx, ext(repo.db, exec), &exists,
		`SELECT EXISTS (SELECT 1 FROM submission WHERE id = $1)`, sub.ID)
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "updating submission")
	}
	if !exists {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	return assignment.Submission{}, assignment.ErrVersionConflict
}

func (repo *assignmentRepository) UpdateSubmissionGrade(ctx context.Context, sub assignment.Submission, exec ...core.DBExecutor) (assignment.Submission, error) {
	var row submissionRow
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &row,
		`UPDATE submission SET
			score      = $2,
			feedback   = $3,
			graded_by  = $4,
			graded_at  = $5,
			updated_at = $6,
			status     = $7
		 WHERE id = $1
		 RETURNING `+submissionReturning,
		sub.ID, sub.Score, nullString(sub.Feedback), nullString(sub.GradedBy),
		nullTime(sub.GradedAt), nullTime(sub.UpdatedAt), sub.Status,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return assignment.Submission{}, assignment.ErrSubmissionNotFound
		}
		return assignment.Submission{}, errors.Wrap(err, "grading submission")
	}
	return row.toSubmission(), nil
}

func (repo *assignmentRepository) CountSubmissions(ctx context.Context, scope access.SubmissionScope, status string, exec ...core.DBExecutor) (int, error) {
	var args []interface{}
	var filter string
	if status != "" {
		args = append(args, status)
		filter = fmt.Sprintf("s.status = $%d AND ", len(args))
	}
	clause, args := submissionScopeClause(scope, args)

	var count int
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &count,
		`SELECT COUNT(*) FROM submission s WHERE `+filter+clause, args...)
	if err != nil {
		return 0, errors.Wrap(err, "counting submissions")
	}
	return count, nil
}
