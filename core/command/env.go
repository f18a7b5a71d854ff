package command

import (
	"context"
	"strings"
	"time"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/assignment"
	"github.com/trezcool/academibot/core/course"
	"github.com/trezcool/academibot/core/format"
	"github.com/trezcool/academibot/core/grading"
	"github.com/trezcool/academibot/core/user"
)

// Services are the domain services commands run against.
type Services struct {
	Users       *user.Service
	Courses     *course.Service
	Assignments *assignment.Service
	Grader      grading.Grader
}

// Env is what a handler sees of the message being processed.
type Env struct {
	Services

	Sender  string // lower-cased
	Now     time.Time
	Auth    *AuthContext
	Sigil   string
	AppName string
	Printer format.Printer
}

// cmd renders a command line for hints, eg. ":auth user <your user token>".
func (env *Env) cmd(name string, args ...string) string {
	return strings.Join(append([]string{env.Sigil + name}, args...), " ")
}

// isSelf reports whether an auth/scramble purpose designates the sender's user.
func (env *Env) isSelf(purpose string) bool {
	return purpose == "user" || core.CleanString(purpose, true /* lower */) == env.Sender
}

func (env *Env) requireUser() error {
	if env.Auth.HasUser(env.Sender) {
		return nil
	}
	return core.NewAuthError("user", env.cmd("auth", "user", "<your user token>"))
}

func (env *Env) requireCourse(c course.Course) error {
	if env.Auth.HasCourse(c.ID) {
		return nil
	}
	return core.NewAuthError(c.Tag(), env.cmd("auth", c.Tag(), "<course token>"))
}

func (env *Env) course(ctx context.Context, args []format.Value, i int) (course.Course, error) {
	ref, err := argString(args, i, "course")
	if err != nil {
		return course.Course{}, err
	}
	return env.Courses.Resolve(ctx, env.Sender, ref)
}

// privileged reports whether the sender may see unpublished assignments of the course.
func (env *Env) privileged(ctx context.Context, c course.Course) (bool, error) {
	if env.Auth.HasCourse(c.ID) {
		return true, nil
	}
	status, err := env.Courses.EnrollmentStatus(ctx, env.Sender, c.ID)
	if err != nil {
		return false, err
	}
	return status == course.StatusInstructor, nil
}

// assignment finds a course assignment, hiding unpublished ones from students.
func (env *Env) assignment(ctx context.Context, c course.Course, args []format.Value, i int) (assignment.Assignment, error) {
	ref, err := argString(args, i, "assignment")
	if err != nil {
		return assignment.Assignment{}, err
	}
	a, err := env.Assignments.Get(ctx, c.ID, ref)
	if err != nil {
		return assignment.Assignment{}, err
	}
	if a.State(env.Now) == assignment.StateUnpublished {
		ok, err := env.privileged(ctx, c)
		if err != nil {
			return assignment.Assignment{}, err
		}
		if !ok {
			return assignment.Assignment{}, core.NewNotFoundError("assignment", ref)
		}
	}
	return a, nil
}

func argString(args []format.Value, i int, what string) (string, error) {
	if i >= len(args) {
		return "", core.Validationf("missing %s", what)
	}
	s, ok := format.String(args[i])
	if !ok {
		return "", core.Validationf("%s must be a word or a text{ } block, got %s{", what, args[i].Kind())
	}
	return s, nil
}

func argMap(args []format.Value, i int, what string) (format.Map, error) {
	if i >= len(args) {
		return nil, core.Validationf("missing %s", what)
	}
	m, ok := args[i].(format.Map)
	if !ok {
		return nil, core.Validationf("%s must be a map{ } block", what)
	}
	return m, nil
}
