package stats

import (
	"context"

	"github.com/trezcool/kampus/core/access"
	"github.com/trezcool/kampus/core/assignment"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/core/message"
	"github.com/trezcool/kampus/core/user"
)

// Dashboard stats are pure read-side counts over the caller's visible rows.
// They reflect committed state at read time; staleness under concurrent
// writes is acceptable.
type (
	StudentStats struct {
		Courses             int `json:"courses"`
		DraftSubmissions    int `json:"draft_submissions"`
		UnreadNotifications int `json:"unread_notifications"`
	}

	TeacherStats struct {
		Courses            int `json:"courses"`
		Assignments        int `json:"assignments"`
		PendingSubmissions int `json:"pending_submissions"`
	}

	AdminStats struct {
		Users    int `json:"users"`
		Courses  int `json:"courses"`
		Students int `json:"students"`
		Teachers int `json:"teachers"`
	}

	Service interface {
		// Report returns the role-appropriate dashboard payload:
		// StudentStats, TeacherStats or AdminStats.
		Report(ctx context.Context, ident access.Identity) (interface{}, error)
	}

	service struct {
		usrRepo user.Repository
		crsRepo course.Repository
		asgRepo assignment.Repository
		msgRepo message.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(usrRepo user.Repository, crsRepo course.Repository, asgRepo assignment.Repository, msgRepo message.Repository) Service {
	return &service{
		usrRepo: usrRepo,
		crsRepo: crsRepo,
		asgRepo: asgRepo,
		msgRepo: msgRepo,
	}
}

func (svc *service) Report(ctx context.Context, ident access.Identity) (interface{}, error) {
	switch ident.Role {
	case access.RoleStudent:
		return svc.studentStats(ctx, ident)
	case access.RoleTeacher:
		return svc.teacherStats(ctx, ident)
	case access.RoleAdmin:
		return svc.adminStats(ctx)
	}
	return nil, access.ErrUnknownRole
}

func (svc *service) studentStats(ctx context.Context, ident access.Identity) (StudentStats, error) {
	var s StudentStats
	var err error

	if s.Courses, err = svc.crsRepo.CountEnrollments(ctx, ident.UserID); err != nil {
		return s, err
	}
	subScope, err := access.ResolveSubmissionScope(ident)
	if err != nil {
		return s, err
	}
	if s.DraftSubmissions, err = svc.asgRepo.CountSubmissions(ctx, subScope, assignment.StatusDraft); err != nil {
		return s, err
	}
	s.UnreadNotifications, err = svc.msgRepo.CountUnreadNotifications(ctx, ident.UserID)
	return s, err
}

func (svc *service) teacherStats(ctx context.Context, ident access.Identity) (TeacherStats, error) {
	var s TeacherStats
	var err error

	crsScope, err := access.ResolveCourseScope(ident)
	if err != nil {
		return s, err
	}
	if s.Courses, err = svc.crsRepo.CountCourses(ctx, crsScope); err != nil {
		return s, err
	}
	asgScope, err := access.ResolveAssignmentScope(ident)
	if err != nil {
		return s, err
	}
	if s.Assignments, err = svc.asgRepo.CountAssignments(ctx, asgScope); err != nil {
		return s, err
	}
	subScope, err := access.ResolveSubmissionScope(ident)
	if err != nil {
		return s, err
	}
	s.PendingSubmissions, err = svc.asgRepo.CountSubmissions(ctx, subScope, assignment.StatusSubmitted)
	return s, err
}

func (svc *service) adminStats(ctx context.Context) (AdminStats, error) {
	var s AdminStats
	var err error

	if s.Users, err = svc.usrRepo.CountUsers(ctx, ""); err != nil {
		return s, err
	}
	if s.Courses, err = svc.crsRepo.CountCourses(ctx, access.CourseScope{All: true}); err != nil {
		return s, err
	}
	if s.Students, err = svc.usrRepo.CountUsers(ctx, access.RoleStudent); err != nil {
		return s, err
	}
	s.Teachers, err = svc.usrRepo.CountUsers(ctx, access.RoleTeacher)
	return s, err
}
