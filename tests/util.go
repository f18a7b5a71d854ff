package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/assignment"
	"github.com/trezcool/academibot/core/command"
	"github.com/trezcool/academibot/core/course"
	"github.com/trezcool/academibot/core/format"
	"github.com/trezcool/academibot/core/grading"
	"github.com/trezcool/academibot/core/user"
	"github.com/trezcool/academibot/storage/database"
	"github.com/trezcool/academibot/storage/database/inmem"
)

const TokenTTL = 30 * time.Minute

// Services wires the domain services over a fresh in-memory store.
func Services() command.Services {
	db := inmemdb.Open()
	return command.Services{
		Users:       user.NewService(inmemdb.NewUserRepository(db), core.PlainChecker{}, TokenTTL),
		Courses:     course.NewService(inmemdb.NewCourseRepository(db), core.PlainChecker{}),
		Assignments: assignment.NewService(inmemdb.NewAssignmentRepository(db)),
		Grader:      grading.NewGrader(nil),
	}
}

// PrepareDB opens a migrated in-memory sqlite database that is closed with the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	db, err := database.Open(core.DatabaseConfig{Engine: database.EngineSQLite, Name: database.MemoryName})
	if err != nil {
		t.Fatalf("PrepareDB() open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("PrepareDB() migrate failed: %v", err)
	}
	return db
}

// CreateUser registers `address` and returns its user token.
func CreateUser(t *testing.T, svc *user.Service, address string, role user.Role) string {
	_, secret, err := svc.Register(context.Background(), user.NewUser{Address: address, Role: role}, time.Now())
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return secret
}

// CreateCourse creates a course taught by `instructor` and returns it with its course token.
func CreateCourse(t *testing.T, svc *course.Service, tag, instructor string) (course.Course, string) {
	nc, ok := course.ParseTag(tag)
	if !ok {
		t.Fatalf("CreateCourse() invalid tag %q", tag)
	}
	c, secret, err := svc.Create(context.Background(), nc, instructor)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c, secret
}

// CreateAssignment parses `definition` (a single map{ }) and stores it in the course.
func CreateAssignment(t *testing.T, svc *assignment.Service, courseID int64, definition string) assignment.Assignment {
	values, err := format.ParseString(definition)
	if err != nil {
		t.Fatalf("CreateAssignment() parse failed: %v", err)
	}
	if len(values) != 1 {
		t.Fatalf("CreateAssignment() definition must be a single value, got %d", len(values))
	}
	m, ok := values[0].(format.Map)
	if !ok {
		t.Fatalf("CreateAssignment() definition must be a map{")
	}
	a, err := svc.Create(context.Background(), courseID, m)
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return a
}

// Logger records what was logged.
type Logger struct {
	mu      sync.Mutex
	Entries []string
}

func (l *Logger) log(level, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := level + ": " + msg
	for _, arg := range args {
		entry += fmt.Sprintf(" %v", arg)
	}
	l.Entries = append(l.Entries, entry)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args...) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args...) }

// Count returns how many entries were logged at `level`, eg. "ERROR".
func (l *Logger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.Entries {
		if len(e) > len(level) && e[:len(level)+1] == level+":" {
			n++
		}
	}
	return n
}

var _ core.Logger = (*Logger)(nil)
