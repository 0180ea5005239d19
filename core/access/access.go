package access

import "errors"

// Role is the closed set of account roles. An account holds exactly one role
// and it never changes after creation.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

var AllRoles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

var (
	// ErrUnknownRole is returned whenever a scope is resolved for a role
	// outside the closed set. Resolution fails closed; an unknown role never
	// falls back to admin-level access.
	ErrUnknownRole = errors.New("unknown role")

	// ErrForbidden is returned when a role has no defined scope over the
	// requested resource.
	ErrForbidden = errors.New("permission denied")
)

// Identity is the server-verified caller: the account ID and role decoded
// from a signed token. Handlers never trust a role supplied in a request
// body.
type Identity struct {
	UserID string
	Role   Role
}

func (id Identity) IsStudent() bool { return id.Role == RoleStudent }
func (id Identity) IsTeacher() bool { return id.Role == RoleTeacher }
func (id Identity) IsAdmin() bool   { return id.Role == RoleAdmin }

type (
	// CourseScope gates course listings and lookups. Exactly one of the
	// fields is set unless All is true.
	CourseScope struct {
		All               bool
		EnrolledStudentID string // join through enrollments
		TeacherID         string
	}

	// AssignmentScope gates assignment listings and lookups.
	AssignmentScope struct {
		All               bool
		EnrolledStudentID string // assignments of courses the student is enrolled in
		CreatedBy         string
	}

	// SubmissionScope gates submission listings and lookups.
	SubmissionScope struct {
		All               bool
		StudentID         string
		AssignmentOwnerID string // join through assignments
	}
)

// ResolveCourseScope returns the filter that must gate any course read for
// the given identity.
func ResolveCourseScope(id Identity) (CourseScope, error) {
	switch id.Role {
	case RoleStudent:
		return CourseScope{EnrolledStudentID: id.UserID}, nil
	case RoleTeacher:
		return CourseScope{TeacherID: id.UserID}, nil
	case RoleAdmin:
		return CourseScope{All: true}, nil
	}
	return CourseScope{}, ErrUnknownRole
}

// ResolveAssignmentScope returns the filter that must gate any assignment
// read for the given identity.
func ResolveAssignmentScope(id Identity) (AssignmentScope, error) {
	switch id.Role {
	case RoleStudent:
		return AssignmentScope{EnrolledStudentID: id.UserID}, nil
	case RoleTeacher:
		return AssignmentScope{CreatedBy: id.UserID}, nil
	case RoleAdmin:
		return AssignmentScope{All: true}, nil
	}
	return AssignmentScope{}, ErrUnknownRole
}

// ResolveSubmissionScope returns the filter that must gate any submission
// read for the given identity.
func ResolveSubmissionScope(id Identity) (SubmissionScope, error) {
	switch id.Role {
	case RoleStudent:
		return SubmissionScope{StudentID: id.UserID}, nil
	case RoleTeacher:
		return SubmissionScope{AssignmentOwnerID: id.UserID}, nil
	case RoleAdmin:
		return SubmissionScope{All: true}, nil
	}
	return SubmissionScope{}, ErrUnknownRole
}

// CheckUserScope gates the admin-only user resource.
func CheckUserScope(id Identity) error {
	switch id.Role {
	case RoleAdmin:
		return nil
	case RoleStudent, RoleTeacher:
		return ErrForbidden
	}
	return ErrUnknownRole
}
