package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/access"
	"github.com/trezcool/kampus/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) enrolledCourseIDs(studentID string) map[string]struct{} {
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

func (repo *assignmentRepository) assignmentInScope(asg *assignment.Assignment, scope access.AssignmentScope, enrolled map[string]struct{}) bool {
	switch {
	case scope.All:
		return true
	case scope.CreatedBy != "":
		return asg.CreatedBy == scope.CreatedBy
	case scope.EnrolledStudentID != "":
		_, ok := enrolled[asg.CourseID]
		return ok
	}
	return false
}

// ownedAssignmentIDs snapshots the assignments created by a teacher.
func (repo *assignmentRepository) ownedAssignmentIDs(teacherID string) map[string]struct{} {
	repo.db.assignment.mutex.RLock()
	defer repo.db.assignment.mutex.RUnlock()

	ids := make(map[string]struct{})
	for _, asg := range repo.db.assignment.t {
		if asg.CreatedBy == teacherID {
			ids[asg.ID] = struct{}{}
		}
	}
	return ids
}

func (repo *assignmentRepository) submissionInScope(sub *assignment.Submission, scope access.SubmissionScope, owned map[string]struct{}) bool {
	switch {
	case scope.All:
		return true
	case scope.StudentID != "":
		return sub.StudentID == scope.StudentID
	case scope.AssignmentOwnerID != "":
		_, ok := owned[sub.AssignmentID]
		return ok
	}
	return false
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, asg assignment.Assignment, _ ...core.DBExecutor) (assignment.Assignment, error) {
	repo.db.assignment.mutex.Lock()
	defer repo.db.assignment.mutex.Unlock()

	asg.ID = uuid.New().String()
	repo.db.assignment.t[asg.ID] = &asg
	return asg, nil
}

func (repo *assignmentRepository) QueryAssignments(_ context.Context, scope access.AssignmentScope, _ ...core.DBExecutor) ([]assignment.Assignment, error) {
	var enrolled map[string]struct{}
	if scope.EnrolledStudentID != "" {
		enrolled = repo.enrolledCourseIDs(scope.EnrolledStudentID)
	}

	repo.db.assignment.mutex.RLock()
	defer repo.db.assignment.mutex.RUnlock()

	res := make([]assignment.Assignment, 0, len(repo.db.assignment.t))
	for _, asg := range repo.db.assignment.t {
		if repo.assignmentInScope(asg, scope, enrolled) {
			res = append(res, *asg)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].DueDate.Equal(res[j].DueDate) {
			return res[i].ID < res[j].ID
		}
		return res[i].DueDate.Before(res[j].DueDate)
	})
	return res, nil
}

func (repo *assignmentRepository) GetAssignment(_ context.Context, scope access.AssignmentScope, id string, _ ...core.DBExecutor) (assignment.Assignment, error) {
	var enrolled map[string]struct{}
	if scope.EnrolledStudentID != "" {
		enrolled = repo.enrolledCourseIDs(scope.EnrolledStudentID)
	}

	repo.db.assignment.mutex.RLock()
	defer repo.db.assignment.mutex.RUnlock()

	asg, ok := repo.db.assignment.t[id]
	if !ok || !repo.assignmentInScope(asg, scope, enrolled) {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return *asg, nil
}

func (repo *assignmentRepository) CountAssignments(ctx context.Context, scope access.AssignmentScope, exec ...core.DBExecutor) (int, error) {
	asgs, err := repo.QueryAssignments(ctx, scope, exec...)
	if err != nil {
		return 0, err
	}
	return len(asgs), nil
}

func (repo *assignmentRepository) CreateSubmission(_ context.Context, sub assignment.Submission, _ ...core.DBExecutor) (assignment.Submission, error) {
	repo.db.submission.mutex.Lock()
	defer repo.db.submission.mutex.Unlock()

	// one submission per (assignment, student)
	for _, s := range repo.db.submission.t {
		if s.AssignmentID == sub.AssignmentID && s.StudentID == sub.StudentID {
			return assignment.Submission{}, assignment.ErrSubmissionExists
		}
	}
	sub.ID = uuid.New().String()
	repo.db.submission.t[sub.ID] = &sub
	return sub, nil
}

func (repo *assignmentRepository) QuerySubmissions(_ context.Context, scope access.SubmissionScope, assignmentID string, _ ...core.DBExecutor) ([]assignment.Submission, error) {
	var owned map[string]struct{}
	if scope.AssignmentOwnerID != "" {
		owned = repo.ownedAssignmentIDs(scope.AssignmentOwnerID)
	}

	repo.db.submission.mutex.RLock()
	defer repo.db.submission.mutex.RUnlock()

	res := make([]assignment.Submission, 0)
	for _, sub := range repo.db.submission.t {
		if assignmentID != "" && sub.AssignmentID != assignmentID {
			continue
		}
		if repo.submissionInScope(sub, scope, owned) {
			res = append(res, *sub)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

func (repo *assignmentRepository) GetSubmission(_ context.Context, scope access.SubmissionScope, id string, _ ...core.DBExecutor) (assignment.Submission, error) {
	var owned map[string]struct{}
	if scope.AssignmentOwnerID != "" {
		owned = repo.ownedAssignmentIDs(scope.AssignmentOwnerID)
	}

	repo.db.submission.mutex.RLock()
	defer repo.db.submission.mutex.RUnlock()

	sub, ok := repo.db.submission.t[id]
	if !ok || !repo.submissionInScope(sub, scope, owned) {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	return *sub, nil
}

func (repo *assignmentRepository) UpdateSubmissionVersioned(_ context.Context, sub assignment.Submission, expectedVersion int, _ ...core.DBExecutor) (assignment.Submission, error) {
	repo.db.submission.mutex.Lock()
	defer repo.db.submission.mutex.Unlock()

	orig, ok := repo.db.submission.t[sub.ID]
	if !ok {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	if orig.Version != expectedVersion {
		return assignment.Submission{}, assignment.ErrVersionConflict
	}
	orig.Content = sub.Content
	orig.Status = sub.Status
	orig.SubmittedAt = sub.SubmittedAt
	orig.UpdatedAt = sub.UpdatedAt
	orig.Version++
	return *orig, nil
}

func (repo *assignmentRepository) UpdateSubmissionGrade(_ context.Context, sub assignment.Submission, _ ...core.DBExecutor) (assignment.Submission, error) {
	repo.db.submission.mutex.Lock()
	defer repo.db.submission.mutex.Unlock()

	orig, ok := repo.db.submission.t[sub.ID]
	if !ok {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	orig.Score = sub.Score
	orig.Feedback = sub.Feedback
	orig.GradedBy = sub.GradedBy
	orig.GradedAt = sub.GradedAt
	orig.UpdatedAt = sub.UpdatedAt
	orig.Status = sub.Status
	return *orig, nil
}

func (repo *assignmentRepository) CountSubmissions(ctx context.Context, scope access.SubmissionScope, status string, exec ...core.DBExecutor) (int, error) {
	subs, err := repo.QuerySubmissions(ctx, scope, "", exec...)
	if err != nil {
		return 0, err
	}
	if status == "" {
		return len(subs), nil
	}
	var count int
	for _, sub := range subs {
		if sub.Status == status {
			count++
		}
	}
	return count, nil
}
