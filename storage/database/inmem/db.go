// Package inmemdb keeps the whole store in memory. It backs tests and dry runs.
package inmemdb

import (
	"sync"

	"github.com/trezcool/academibot/core/assignment"
	"github.com/trezcool/academibot/core/course"
	"github.com/trezcool/academibot/core/user"
)

type (
	DB struct {
		user       *userTable
		course     *courseTable
		assignment *assignmentTable
	}

	userTable struct {
		sync.RWMutex
		table    map[string]*user.User
		blocking map[string]bool
		tokens   []user.Token
		requests []user.Request
	}

	courseTable struct {
		sync.RWMutex
		pkCount     int64
		table       map[int64]*course.Course
		enrollments []course.Enrollment
		aliases     []course.Alias
	}

	assignmentTable struct {
		sync.RWMutex
		pkCount    int64
		subPKCount int64
		table      map[int64]*assignment.Assignment
		subs       map[int64]*assignment.Submission
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{
			table:    make(map[string]*user.User),
			blocking: make(map[string]bool),
		},
		course: &courseTable{table: make(map[int64]*course.Course)},
		assignment: &assignmentTable{
			table: make(map[int64]*assignment.Assignment),
			subs:  make(map[int64]*assignment.Submission),
		},
	}
}
