package access

import "testing"

func TestResolveCourseScope(t *testing.T) {
	tests := []struct {
		name    string
		ident   Identity
		want    CourseScope
		wantErr error
	}{
		{name: "student", ident: Identity{UserID: "s1", Role: RoleStudent}, want: CourseScope{EnrolledStudentID: "s1"}},
		{name: "teacher", ident: Identity{UserID: "t1", Role: RoleTeacher}, want: CourseScope{TeacherID: "t1"}},
		{name: "admin", ident: Identity{UserID: "a1", Role: RoleAdmin}, want: CourseScope{All: true}},
		{name: "unknown role fails closed", ident: Identity{UserID: "x", Role: "superuser"}, wantErr: ErrUnknownRole},
		{name: "empty role fails closed", ident: Identity{UserID: "x"}, wantErr: ErrUnknownRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveCourseScope(tt.ident)
			if err != tt.wantErr {
				t.Fatalf("ResolveCourseScope() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveCourseScope() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveAssignmentScope(t *testing.T) {
	tests := []struct {
		name    string
		ident   Identity
		want    AssignmentScope
		wantErr error
	}{
		{name: "student", ident: Identity{UserID: "s1", Role: RoleStudent}, want: AssignmentScope{EnrolledStudentID: "s1"}},
		{name: "teacher", ident: Identity{UserID: "t1", Role: RoleTeacher}, want: AssignmentScope{CreatedBy: "t1"}},
		{name: "admin", ident: Identity{UserID: "a1", Role: RoleAdmin}, want: AssignmentScope{All: true}},
		{name: "unknown role fails closed", ident: Identity{UserID: "x", Role: "root"}, wantErr: ErrUnknownRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveAssignmentScope(tt.ident)
			if err != tt.wantErr {
				t.Fatalf("ResolveAssignmentScope() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveAssignmentScope() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveSubmissionScope(t *testing.T) {
	tests := []struct {
		name    string
		ident   Identity
		want    SubmissionScope
		wantErr error
	}{
		{name: "student sees own only", ident: Identity{UserID: "s1", Role: RoleStudent}, want: SubmissionScope{StudentID: "s1"}},
		{name: "teacher joins through owned assignments", ident: Identity{UserID: "t1", Role: RoleTeacher}, want: SubmissionScope{AssignmentOwnerID: "t1"}},
		{name: "admin unrestricted", ident: Identity{UserID: "a1", Role: RoleAdmin}, want: SubmissionScope{All: true}},
		{name: "unknown role fails closed", ident: Identity{UserID: "x", Role: "owner"}, wantErr: ErrUnknownRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveSubmissionScope(tt.ident)
			if err != tt.wantErr {
				t.Fatalf("ResolveSubmissionScope() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveSubmissionScope() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCheckUserScope(t *testing.T) {
	tests := []struct {
		name    string
		ident   Identity
		wantErr error
	}{
		{name: "admin allowed", ident: Identity{UserID: "a1", Role: RoleAdmin}},
		{name: "student rejected", ident: Identity{UserID: "s1", Role: RoleStudent}, wantErr: ErrForbidden},
		{name: "teacher rejected", ident: Identity{UserID: "t1", Role: RoleTeacher}, wantErr: ErrForbidden},
		{name: "unknown role fails closed", ident: Identity{UserID: "x", Role: "staff"}, wantErr: ErrUnknownRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := CheckUserScope(tt.ident); err != tt.wantErr {
				t.Errorf("CheckUserScope() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
