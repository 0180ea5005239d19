package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/access"
	"github.com/trezcool/kampus/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

// enrolledCourseIDs snapshots the course IDs a student is enrolled in.
func (repo *courseRepository) enrolledCourseIDs(studentID string) map[string]struct{} {
	repo.db.enrollment.mutex.RLock()
	defer repo.db.enrollment.mutex.RUnlock()

	ids := make(map[string]struct{})
	for _, enr := range repo.db.enrollment.t {
		if enr.StudentID == studentID {
			ids[enr.CourseID] = struct{}{}
		}
	}
	return ids
}

func (repo *courseRepository) teacherName(teacherID string) string {
	repo.db.user.mutex.RLock()
	defer repo.db.user.mutex.RUnlock()

	if usr, ok := repo.db.user.t[teacherID]; ok {
		return usr.Name
	}
	return ""
}

func (repo *courseRepository) inScope(crs *course.Course, scope access.CourseScope, enrolled map[string]struct{}) bool {
	switch {
	case scope.All:
		return true
	case scope.TeacherID != "":
		return crs.TeacherID == scope.TeacherID
	case scope.EnrolledStudentID != "":
		_, ok := enrolled[crs.ID]
		return ok
	}
	return false
}

func (repo *courseRepository) CheckCodeUniqueness(_ context.Context, code string, excludedCourses []course.Course, _ ...core.DBExecutor) error {
	repo.db.course.mutex.RLock()
	defer repo.db.course.mutex.RUnlock()

	excluded := make(map[string]struct{}, len(excludedCourses))
	for _, crs := range excludedCourses {
		excluded[crs.ID] = struct{}{}
	}
	for _, crs := range repo.db.course.t {
		if _, ok := excluded[crs.ID]; ok {
			continue
		}
		if crs.Code == code {
			return course.ErrCodeExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.course.mutex.Lock()
	crs.ID = uuid.New().String()
	stored := crs
	stored.TeacherName = "" // joined on reads
	repo.db.course.t[crs.ID] = &stored
	repo.db.course.mutex.Unlock()

	crs.TeacherName = repo.teacherName(crs.TeacherID)
	return crs, nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, scope access.CourseScope, _ ...core.DBExecutor) ([]course.Course, error) {
	var enrolled map[string]struct{}
	if scope.EnrolledStudentID != "" {
		enrolled = repo.enrolledCourseIDs(scope.EnrolledStudentID)
	}

	repo.db.course.mutex.RLock()
	res := make([]course.Course, 0, len(repo.db.course.t))
	for _, crs := range repo.db.course.t {
		if repo.inScope(crs, scope, enrolled) {
			res = append(res, *crs)
		}
	}
	repo.db.course.mutex.RUnlock()

	for i := range res {
		res[i].TeacherName = repo.teacherName(res[i].TeacherID)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Code < res[j].Code })
	return res, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, scope access.CourseScope, id string, _ ...core.DBExecutor) (course.Course, error) {
	var enrolled map[string]struct{}
	if scope.EnrolledStudentID != "" {
		enrolled = repo.enrolledCourseIDs(scope.EnrolledStudentID)
	}

	repo.db.course.mutex.RLock()
	crs, ok := repo.db.course.t[id]
	if !ok || !repo.inScope(crs, scope, enrolled) {
		repo.db.course.mutex.RUnlock()
		return course.Course{}, course.ErrNotFound
	}
	res := *crs
	repo.db.course.mutex.RUnlock()

	res.TeacherName = repo.teacherName(res.TeacherID)
	return res, nil
}

func (repo *courseRepository) CountCourses(ctx context.Context, scope access.CourseScope, exec ...core.DBExecutor) (int, error) {
	courses, err := repo.QueryCourses(ctx, scope, exec...)
	if err != nil {
		return 0, err
	}
	return len(courses), nil
}

func (repo *courseRepository) CreateEnrollment(_ context.Context, enr course.Enrollment, _ ...core.DBExecutor) (course.Enrollment, error) {
	repo.db.enrollment.mutex.Lock()
	defer repo.db.enrollment.mutex.Unlock()

	enr.ID = uuid.New().String()
	repo.db.enrollment.t[enr.ID] = &enr
	return enr, nil
}

func (repo *courseRepository) EnrollmentExists(_ context.Context, studentID, courseID string, _ ...core.DBExecutor) (bool, error) {
	repo.db.enrollment.mutex.RLock()
	defer repo.db.enrollment.mutex.RUnlock()

	for _, enr := range repo.db.enrollment.t {
		if enr.StudentID == studentID && enr.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *courseRepository) QueryEnrollments(_ context.Context, courseID string, _ ...core.DBExecutor) ([]course.Enrollment, error) {
	repo.db.enrollment.mutex.RLock()
	defer repo.db.enrollment.mutex.RUnlock()

	res := make([]course.Enrollment, 0)
	for _, enr := range repo.db.enrollment.t {
		if enr.CourseID == courseID {
			res = append(res, *enr)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].EnrolledAt.Before(res[j].EnrolledAt) })
	return res, nil
}

func (repo *courseRepository) CountEnrollments(_ context.Context, studentID string, _ ...core.DBExecutor) (int, error) {
	repo.db.enrollment.mutex.RLock()
	defer repo.db.enrollment.mutex.RUnlock()

	var count int
	for _, enr := range repo.db.enrollment.t {
		if enr.StudentID == studentID {
			count++
		}
	}
	return count, nil
}
