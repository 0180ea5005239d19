package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/kampus/core/access"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/tests"
)

func Test_courseApi_visibility(t *testing.T) {
	app := setup(t)

	teacher1 := testutil.CreateUser(t, usrRepo, "Prof One", "prof1@test.cd", "", access.RoleTeacher, true)
	teacher2 := testutil.CreateUser(t, usrRepo, "Prof Two", "prof2@test.cd", "", access.RoleTeacher, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "", access.RoleStudent, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", access.RoleAdmin, true)

	algebra := testutil.CreateCourse(t, crsRepo, "Algebra", "math101", teacher1.ID)
	poetry := testutil.CreateCourse(t, crsRepo, "Poetry", "lit201", teacher2.ID)
	testutil.Enroll(t, crsRepo, student.ID, algebra.ID)

	// the list join carries the teacher's name
	algebra.TeacherName = teacher1.Name
	poetry.TeacherName = teacher2.Name

	tests := []httpTest{
		{name: "Auth required", path: "/v1/courses", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "student sees only enrolled courses", path: "/v1/courses", token: getToken(t, student),
			wantCode: http.StatusOK, wantData: marchallList(t, algebra),
		},
		{
			name: "teacher sees only own courses", path: "/v1/courses", token: getToken(t, teacher1),
			wantCode: http.StatusOK, wantData: marchallList(t, algebra),
		},
		{
			name: "admin sees all courses", path: "/v1/courses", token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallList(t, algebra, poetry),
		},
		{
			name: "student reads enrolled course", path: "/v1/courses/" + algebra.ID, token: getToken(t, student),
			wantCode: http.StatusOK, wantData: marchallObj(t, algebra),
		},
		{
			// out-of-scope reads as absent, never as forbidden
			name: "student cannot read non-enrolled course", path: "/v1/courses/" + poetry.ID, token: getToken(t, student),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "teacher cannot read foreign course", path: "/v1/courses/" + poetry.ID, token: getToken(t, teacher1),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "admin reads any course", path: "/v1/courses/" + poetry.ID, token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallObj(t, poetry),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_create(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Prof", "prof@test.cd", "", access.RoleTeacher, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "", access.RoleStudent, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", access.RoleAdmin, true)

	body := func(title, code, teacherID string) []byte {
		return marchallObj(t, map[string]interface{}{
			"title": title, "code": code, "credits": 3, "teacher_id": teacherID,
		})
	}

	tests := []httpTest{
		{
			name: "teacher owns what they create", token: getToken(t, teacher),
			body: body("Algebra", "math101", ""), wantCode: http.StatusCreated, extra: teacher.ID,
		},
		{
			name: "student cannot create", token: getToken(t, student),
			body: body("Chemistry", "chem101", ""), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name: "admin creates on behalf of a teacher", token: getToken(t, admin),
			body: body("Poetry", "lit201", teacher.ID), wantCode: http.StatusCreated, extra: teacher.ID,
		},
		{
			name: "admin must name a teacher", token: getToken(t, admin),
			body: body("Drama", "lit301", ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"teacher_id": "this field is required"}),
		},
		{
			name: "admin cannot assign a student as teacher", token: getToken(t, admin),
			body: body("Drama", "lit301", student.ID), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"teacher_id": "user is not a teacher"}),
		},
		{
			name: "duplicate code is rejected", token: getToken(t, teacher),
			body: body("Algebra II", "math101", ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": course.ErrCodeExists.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/courses", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
			if tt.wantCode == http.StatusCreated {
				var crs course.Course
				if err := json.Unmarshal(rec.Body.Bytes(), &crs); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if wantTeacherID, ok := tt.extra.(string); ok && crs.TeacherID != wantTeacherID {
					t.Errorf("course teacher = %s, want %s", crs.TeacherID, wantTeacherID)
				}
			}
		})
	}
}

func Test_courseApi_enroll(t *testing.T) {
	app := setup(t)

	teacher1 := testutil.CreateUser(t, usrRepo, "Prof One", "prof1@test.cd", "", access.RoleTeacher, true)
	teacher2 := testutil.CreateUser(t, usrRepo, "Prof Two", "prof2@test.cd", "", access.RoleTeacher, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "", access.RoleStudent, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", access.RoleAdmin, true)

	algebra := testutil.CreateCourse(t, crsRepo, "Algebra", "math101", teacher1.ID)

	body := marchallObj(t, map[string]string{"student_id": student.ID})

	tests := []httpTest{
		{
			name: "student cannot enroll themselves", path: "/v1/courses/" + algebra.ID + "/enroll",
			token: getToken(t, student), body: body, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			// foreign course is out of the teacher's scope: plain 404
			name: "foreign teacher cannot enroll", path: "/v1/courses/" + algebra.ID + "/enroll",
			token: getToken(t, teacher2), body: body, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
		{
			name: "owning teacher enrolls a student", path: "/v1/courses/" + algebra.ID + "/enroll",
			token: getToken(t, teacher1), body: body, wantCode: http.StatusCreated,
		},
		{
			name: "duplicate enrollment is rejected", path: "/v1/courses/" + algebra.ID + "/enroll",
			token: getToken(t, admin), body: body, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"student_id": course.ErrAlreadyEnrolled.Error()}),
		},
		{
			name: "cannot enroll a teacher", path: "/v1/courses/" + algebra.ID + "/enroll",
			token: getToken(t, admin), body: marchallObj(t, map[string]string{"student_id": teacher2.ID}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"student_id": "user is not a student"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}

	t.Run("enrollments listing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+algebra.ID+"/enrollments", getToken(t, teacher1))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var enrs []course.Enrollment
		if err := json.Unmarshal(rec.Body.Bytes(), &enrs); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(enrs) != 1 || enrs[0].StudentID != student.ID {
			t.Errorf("unexpected enrollments: %+v", enrs)
		}
	})
}
