package assignment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/access"
	"github.com/trezcool/kampus/core/assignment"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/core/message"
	"github.com/trezcool/kampus/core/user"
	emailsvc "github.com/trezcool/kampus/services/email"
	inmemdb "github.com/trezcool/kampus/storage/database/inmem"
	"github.com/trezcool/kampus/tests"
)

type fixture struct {
	svc     assignment.Service
	msgSvc  message.Service
	usrRepo user.Repository
	crsRepo course.Repository
	asgRepo assignment.Repository

	teacher user.User
	student user.User
	crs     course.Course
	asg     assignment.Assignment
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := inmemdb.Open()
	f := &fixture{
		usrRepo: inmemdb.NewUserRepository(db),
		crsRepo: inmemdb.NewCourseRepository(db),
		asgRepo: inmemdb.NewAssignmentRepository(db),
	}
	usrSvc := user.NewServiceMock(f.usrRepo, emailsvc.NewConsoleServiceMock())
	f.msgSvc = message.NewService(inmemdb.NewMessageRepository(db), usrSvc)
	f.svc = assignment.NewService(f.asgRepo, f.crsRepo, f.msgSvc)

	f.teacher = testutil.CreateUser(t, f.usrRepo, "Prof", "prof@test.cd", "", access.RoleTeacher, true)
	f.student = testutil.CreateUser(t, f.usrRepo, "Hero", "hero@test.cd", "", access.RoleStudent, true)
	f.crs = testutil.CreateCourse(t, f.crsRepo, "Algebra", "math101", f.teacher.ID)
	testutil.Enroll(t, f.crsRepo, f.student.ID, f.crs.ID)
	f.asg = testutil.CreateAssignment(t, f.asgRepo, f.crs.ID, f.teacher.ID, "Homework 1", time.Now().UTC().Add(7*24*time.Hour))
	return f
}

func ident(usr user.User) access.Identity {
	return access.Identity{UserID: usr.ID, Role: usr.Role}
}

func TestService_Submit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	sub, err := f.svc.Submit(ctx, ident(f.student), f.asg.ID, assignment.NewSubmission{Content: "x = 42", Submit: true})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if sub.Version != 1 {
		t.Errorf("version = %d, want 1", sub.Version)
	}
	if sub.Status != assignment.StatusSubmitted {
		t.Errorf("status = %s, want %s", sub.Status, assignment.StatusSubmitted)
	}
	if sub.SubmittedAt.IsZero() {
		t.Error("SubmittedAt not set")
	}

	// one submission per (assignment, student)
	if _, err = f.svc.Submit(ctx, ident(f.student), f.asg.ID, assignment.NewSubmission{Content: "again"}); err == nil {
		t.Fatal("expected duplicate submission to fail")
	} else if vErr, ok := err.(*core.ValidationError); !ok || vErr.Err != assignment.ErrSubmissionExists {
		t.Errorf("error = %v, want wrapped %v", err, assignment.ErrSubmissionExists)
	}

	// teacher cannot submit
	if _, err = f.svc.Submit(ctx, ident(f.teacher), f.asg.ID, assignment.NewSubmission{Content: "nope"}); err != access.ErrForbidden {
		t.Errorf("error = %v, want %v", err, access.ErrForbidden)
	}
}

func TestService_Resubmit_versioning(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	stdIdent := ident(f.student)

	sub, err := f.svc.Submit(ctx, stdIdent, f.asg.ID, assignment.NewSubmission{Content: "draft"})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	// versions only ever move forward, one step per successful resubmission
	for want := 2; want <= 4; want++ {
		sub, err = f.svc.Resubmit(ctx, stdIdent, sub.ID, assignment.ResubmitSubmission{Content: "rev", Version: sub.Version})
		if err != nil {
			t.Fatalf("Resubmit() failed: %v", err)
		}
		if sub.Version != want {
			t.Fatalf("version = %d, want %d", sub.Version, want)
		}
	}

	// a stale version never writes
	if _, err = f.svc.Resubmit(ctx, stdIdent, sub.ID, assignment.ResubmitSubmission{Content: "stale", Version: 1}); err != assignment.ErrVersionConflict {
		t.Fatalf("error = %v, want %v", err, assignment.ErrVersionConflict)
	}
	fresh, err := f.svc.GetSubmission(ctx, stdIdent, sub.ID)
	if err != nil {
		t.Fatalf("GetSubmission() failed: %v", err)
	}
	if fresh.Content == "stale" {
		t.Error("stale resubmission overwrote content")
	}
	if fresh.Version != sub.Version {
		t.Errorf("version = %d, want %d", fresh.Version, sub.Version)
	}
}

func TestService_Resubmit_concurrent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	stdIdent := ident(f.student)

	sub, err := f.svc.Submit(ctx, stdIdent, f.asg.ID, assignment.NewSubmission{Content: "draft"})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	// all racers carry the same observed version; exactly one may win
	const racers = 16
	var wg sync.WaitGroup
	errs := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Resubmit(ctx, stdIdent, sub.ID, assignment.ResubmitSubmission{Content: "race", Version: sub.Version})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, conflicts int
	for err := range errs {
		switch err {
		case nil:
			wins++
		case assignment.ErrVersionConflict:
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
	if conflicts != racers-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, racers-1)
	}

	fresh, err := f.svc.GetSubmission(ctx, stdIdent, sub.ID)
	if err != nil {
		t.Fatalf("GetSubmission() failed: %v", err)
	}
	if fresh.Version != sub.Version+1 {
		t.Errorf("version = %d, want %d", fresh.Version, sub.Version+1)
	}
}

func TestService_Grade(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	sub, err := f.svc.Submit(ctx, ident(f.student), f.asg.ID, assignment.NewSubmission{Content: "x = 42", Submit: true})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	score := 25.0
	if _, err = f.svc.Grade(ctx, ident(f.teacher), sub.ID, assignment.GradeSubmission{Score: &score}); err == nil {
		t.Error("expected grading above max points to fail")
	}

	score = 18.0
	graded, err := f.svc.Grade(ctx, ident(f.teacher), sub.ID, assignment.GradeSubmission{Score: &score, Feedback: "good"})
	if err != nil {
		t.Fatalf("Grade() failed: %v", err)
	}
	if graded.Status != assignment.StatusGraded {
		t.Errorf("status = %s, want %s", graded.Status, assignment.StatusGraded)
	}
	if graded.GradedBy != f.teacher.ID {
		t.Errorf("graded_by = %s, want %s", graded.GradedBy, f.teacher.ID)
	}
	if graded.GradedAt.IsZero() {
		t.Error("GradedAt not set")
	}

	// graded work is frozen
	if _, err = f.svc.Resubmit(ctx, ident(f.student), sub.ID, assignment.ResubmitSubmission{Content: "more", Version: graded.Version}); err == nil {
		t.Error("expected resubmission of graded work to fail")
	}
	if _, err = f.svc.Grade(ctx, ident(f.teacher), sub.ID, assignment.GradeSubmission{Score: &score}); err == nil {
		t.Error("expected regrading to fail")
	}

	// the student hears about it
	ntfs, err := f.msgSvc.Notifications(ctx, ident(f.student))
	if err != nil {
		t.Fatalf("Notifications() failed: %v", err)
	}
	if len(ntfs) != 1 {
		t.Fatalf("got %d notifications, want 1", len(ntfs))
	}
	if ntfs[0].Kind != message.KindSuccess {
		t.Errorf("notification kind = %s, want %s", ntfs[0].Kind, message.KindSuccess)
	}
}

func TestService_Create_notifiesEnrolledStudents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	other := testutil.CreateUser(t, f.usrRepo, "Zero", "zero@test.cd", "", access.RoleStudent, true)

	na := assignment.NewAssignment{
		CourseID:  f.crs.ID,
		Title:     "Homework 2",
		DueDate:   time.Now().UTC().Add(14 * 24 * time.Hour),
		MaxPoints: 10,
	}
	if _, err := f.svc.Create(ctx, ident(f.teacher), na); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	ntfs, err := f.msgSvc.Notifications(ctx, ident(f.student))
	if err != nil {
		t.Fatalf("Notifications() failed: %v", err)
	}
	if len(ntfs) != 1 {
		t.Fatalf("got %d notifications, want 1", len(ntfs))
	}
	if ntfs[0].Title != "New assignment: Homework 2" {
		t.Errorf("unexpected notification title: %s", ntfs[0].Title)
	}

	// non-enrolled students hear nothing
	ntfs, err = f.msgSvc.Notifications(ctx, ident(other))
	if err != nil {
		t.Fatalf("Notifications() failed: %v", err)
	}
	if len(ntfs) != 0 {
		t.Errorf("got %d notifications, want 0", len(ntfs))
	}
}
