package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/access"
	"github.com/trezcool/kampus/core/course"
)

const courseColumns = `c.id, c.title, c.code, c.description, c.credits, c.teacher_id, u.name AS teacher_name, c.created_at, c.updated_at`

type courseRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Code        string      `db:"code"`
	Description null.String `db:"description"`
	Credits     int         `db:"credits"`
	TeacherID   string      `db:"teacher_id"`
	TeacherName null.String `db:"teacher_name"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

func (row courseRow) toCourse() course.Course {
	return course.Course{
		ID:          row.ID,
		Title:       row.Title,
		Code:        row.Code,
		Description: row.Description.String,
		Credits:     row.Credits,
		TeacherID:   row.TeacherID,
		TeacherName: row.TeacherName.String,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

type enrollmentRow struct {
	ID         string    `db:"id"`
	StudentID  string    `db:"student_id"`
	CourseID   string    `db:"course_id"`
	EnrolledAt null.Time `db:"enrolled_at"`
}

func (row enrollmentRow) toEnrollment() course.Enrollment {
	return course.Enrollment{
		ID:         row.ID,
		StudentID:  row.StudentID,
		CourseID:   row.CourseID,
		EnrolledAt: row.EnrolledAt.Time,
	}
}

// courseScopeClause renders the row filter for a resolved course scope.
// An empty scope matches nothing.
func courseScopeClause(scope access.CourseScope, args []interface{}) (string, []interface{}) {
	switch {
	case scope.All:
		return "TRUE", args
	case scope.TeacherID != "":
		args = append(args, scope.TeacherID)
		return fmt.Sprintf("c.teacher_id = $%d", len(args)), args
	case scope.EnrolledStudentID != "":
		args = append(args, scope.EnrolledStudentID)
		return fmt.Sprintf("EXISTS (SELECT 1 FROM enrollment e WHERE e.course_id = c.id AND e.student_id = $%d)", len(args)), args
	}
	return "FALSE", args
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedCourses []course.Course, exec ...core.DBExecutor) error {
	excluded := make([]string, 0, len(excludedCourses))
	for _, crs := range excludedCourses {
		excluded = append(excluded, crs.ID)
	}

	var exists bool
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &exists,
		`SELECT EXISTS (SELECT 1 FROM course WHERE code = $1 AND id <> ALL($2))`,
		code, pq.Array(excluded),
	)
	if err != nil {
		return errors.Wrap(err, "checking code uniqueness")
	}
	if exists {
		return course.ErrCodeExists
	}
	return nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	crs.ID = uuid.New().String()
	_, err := ext(repo.db, exec).ExecContext(ctx,
		`INSERT INTO course (id, title, code, description, credits, teacher_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		crs.ID, crs.Title, crs.Code, nullString(crs.Description), crs.Credits, crs.TeacherID,
		nullTime(crs.CreatedAt), nullTime(crs.UpdatedAt),
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, scope access.CourseScope, exec ...core.DBExecutor) ([]course.Course, error) {
	clause, args := courseScopeClause(scope, nil)
	q := `SELECT ` + courseColumns + `
		 FROM course c
		 JOIN "user" u ON u.id = c.teacher_id
		 WHERE ` + clause + `
		 ORDER BY c.code ASC`

	var rows []courseRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, len(rows))
	for i, row := range rows {
		courses[i] = row.toCourse()
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, scope access.CourseScope, id string, exec ...core.DBExecutor) (course.Course, error) {
	args := []interface{}{id}
	clause, args := courseScopeClause(scope, args)
	q := `SELECT ` + courseColumns + `
		 FROM course c
		 JOIN "user" u ON u.id = c.teacher_id
		 WHERE c.id = $1 AND ` + clause

	var row courseRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) CountCourses(ctx context.Context, scope access.CourseScope, exec ...core.DBExecutor) (int, error) {
	clause, args := courseScopeClause(scope, nil)

	var count int
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &count, `SELECT COUNT(*) FROM course c WHERE `+clause, args...)
	if err != nil {
		return 0, errors.Wrap(err, "counting courses")
	}
	return count, nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment, exec ...core.DBExecutor) (course.Enrollment, error) {
	enr.ID = uuid.New().String()
	_, err := ext(repo.db, exec).ExecContext(ctx,
		`INSERT INTO enrollment (id, student_id, course_id, enrolled_at) VALUES ($1, $2, $3, $4)`,
		enr.ID, enr.StudentID, enr.CourseID, nullTime(enr.EnrolledAt),
	)
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return enr, nil
}

func (repo *courseRepository) EnrollmentExists(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &exists,
		`SELECT EXISTS (SELECT 1 FROM enrollment WHERE student_id = $1 AND course_id = $2)`,
		studentID, courseID,
	)
	return exists, errors.Wrap(err, "checking enrollment")
}

func (repo *courseRepository) QueryEnrollments(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Enrollment, error) {
	var rows []enrollmentRow
	err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows,
		`SELECT id, student_id, course_id, enrolled_at FROM enrollment WHERE course_id = $1 ORDER BY enrolled_at ASC`,
		courseID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrs := make([]course.Enrollment, len(rows))
	for i, row := range rows {
		enrs[i] = row.toEnrollment()
	}
	return enrs, nil
}

func (repo *courseRepository) CountEnrollments(ctx context.Context, studentID string, exec ...core.DBExecutor) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &count,
		`SELECT COUNT(*) FROM enrollment WHERE student_id = $1`, studentID,
	)
	if err != nil {
		return 0, errors.Wrap(err, "counting enrollments")
	}
	return count, nil
}
