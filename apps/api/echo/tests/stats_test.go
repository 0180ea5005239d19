package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/kampus/core/access"
	"github.com/trezcool/kampus/core/assignment"
	"github.com/trezcool/kampus/core/message"
	"github.com/trezcool/kampus/core/stats"
	"github.com/trezcool/kampus/tests"
)

func Test_statsApi_dashboard(t *testing.T) {
	app := setup(t)

	teacher1 := testutil.CreateUser(t, usrRepo, "Prof One", "prof1@test.cd", "", access.RoleTeacher, true)
	teacher2 := testutil.CreateUser(t, usrRepo, "Prof Two", "prof2@test.cd", "", access.RoleTeacher, true)
	hero := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "", access.RoleStudent, true)
	zero := testutil.CreateUser(t, usrRepo, "Zero", "zero@test.cd", "", access.RoleStudent, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", access.RoleAdmin, true)

	algebra := testutil.CreateCourse(t, crsRepo, "Algebra", "math101", teacher1.ID)
	poetry := testutil.CreateCourse(t, crsRepo, "Poetry", "lit201", teacher2.ID)
	testutil.Enroll(t, crsRepo, hero.ID, algebra.ID)
	testutil.Enroll(t, crsRepo, hero.ID, poetry.ID)
	testutil.Enroll(t, crsRepo, zero.ID, algebra.ID)

	due := time.Now().UTC().Add(7 * 24 * time.Hour)
	hw1 := testutil.CreateAssignment(t, asgRepo, algebra.ID, teacher1.ID, "Homework 1", due)
	hw2 := testutil.CreateAssignment(t, asgRepo, algebra.ID, teacher1.ID, "Homework 2", due.Add(24*time.Hour))
	testutil.CreateAssignment(t, asgRepo, poetry.ID, teacher2.ID, "Essay", due)

	testutil.CreateSubmission(t, asgRepo, hw1.ID, hero.ID, "x = 42", assignment.StatusSubmitted)
	testutil.CreateSubmission(t, asgRepo, hw2.ID, hero.ID, "wip", assignment.StatusDraft)
	testutil.CreateSubmission(t, asgRepo, hw1.ID, zero.ID, "x = 41", assignment.StatusSubmitted)

	if _, err := msgSvc.Notify(context.Background(), hero.ID, "Welcome", "", message.KindInfo); err != nil {
		t.Fatalf("Notify() failed: %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "student payload", token: getToken(t, hero), wantCode: http.StatusOK,
			wantData: marchallObj(t, stats.StudentStats{Courses: 2, DraftSubmissions: 1, UnreadNotifications: 1}),
		},
		{
			name: "student with nothing", token: getToken(t, zero), wantCode: http.StatusOK,
			wantData: marchallObj(t, stats.StudentStats{Courses: 1}),
		},
		{
			name: "teacher payload counts only own rows", token: getToken(t, teacher1), wantCode: http.StatusOK,
			wantData: marchallObj(t, stats.TeacherStats{Courses: 1, Assignments: 2, PendingSubmissions: 2}),
		},
		{
			name: "teacher with no submissions", token: getToken(t, teacher2), wantCode: http.StatusOK,
			wantData: marchallObj(t, stats.TeacherStats{Courses: 1, Assignments: 1}),
		},
		{
			name: "admin payload", token: getToken(t, admin), wantCode: http.StatusOK,
			wantData: marchallObj(t, stats.AdminStats{Users: 5, Courses: 2, Students: 2, Teachers: 2}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard/stats", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
