package inmemdb

import (
	"sync"

	"github.com/trezcool/kampus/core/assignment"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/core/message"
	"github.com/trezcool/kampus/core/user"
)

// DB is an in-memory stand-in for the SQL database, used by tests and local
// hacking. Each table is guarded by its own RWMutex.
type (
	DB struct {
		user         *userTable
		course       *courseTable
		enrollment   *enrollmentTable
		assignment   *assignmentTable
		submission   *submissionTable
		notification *notificationTable
		message      *messageTable
	}

	userTable struct {
		t     map[string]*user.User
		mutex sync.RWMutex
	}
	courseTable struct {
		t     map[string]*course.Course
		mutex sync.RWMutex
	}
	enrollmentTable struct {
		t     map[string]*course.Enrollment
		mutex sync.RWMutex
	}
	assignmentTable struct {
		t     map[string]*assignment.Assignment
		mutex sync.RWMutex
	}
	submissionTable struct {
		t     map[string]*assignment.Submission
		mutex sync.RWMutex
	}
	notificationTable struct {
		t     map[string]*message.Notification
		mutex sync.RWMutex
	}
	messageTable struct {
		t     map[string]*message.Message
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		user:         &userTable{t: make(map[string]*user.User)},
		course:       &courseTable{t: make(map[string]*course.Course)},
		enrollment:   &enrollmentTable{t: make(map[string]*course.Enrollment)},
		assignment:   &assignmentTable{t: make(map[string]*assignment.Assignment)},
		submission:   &submissionTable{t: make(map[string]*assignment.Submission)},
		notification: &notificationTable{t: make(map[string]*message.Notification)},
		message:      &messageTable{t: make(map[string]*message.Message)},
	}
}

// Reset empties all tables.
func (db *DB) Reset() {
	db.user.mutex.Lock()
	db.user.t = make(map[string]*user.User)
	db.user.mutex.Unlock()

	db.course.mutex.Lock()
	db.course.t = make(map[string]*course.Course)
	db.course.mutex.Unlock()

	db.enrollment.mutex.Lock()
	db.enrollment.t = make(map[string]*course.Enrollment)
	db.enrollment.mutex.Unlock()

	db.assignment.mutex.Lock()
	db.assignment.t = make(map[string]*assignment.Assignment)
	db.assignment.mutex.Unlock()

	db.submission.mutex.Lock()
	db.submission.t = make(map[string]*assignment.Submission)
	db.submission.mutex.Unlock()

	db.notification.mutex.Lock()
	db.notification.t = make(map[string]*message.Notification)
	db.notification.mutex.Unlock()

	db.message.mutex.Lock()
	db.message.t = make(map[string]*message.Message)
	db.message.mutex.Unlock()
}
