package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/assignment"
	"github.com/trezcool/academibot/core/course"
	"github.com/trezcool/academibot/core/format"
	"github.com/trezcool/academibot/core/user"
)

func runCreateCourse(ctx context.Context, env *Env, args []format.Value) (string, error) {
	if err := env.requireUser(); err != nil {
		return "", err
	}
	var parts [4]string
	for i, what := range []string{"institution", "name", "term", "year"} {
		s, err := argString(args, i, what)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	year, err := strconv.Atoi(parts[3])
	if err != nil {
		return "", core.Validationf("year must be a number, got '%s'", parts[3])
	}

	c, secret, err := env.Courses.Create(ctx, course.NewCourse{
		Institution: parts[0],
		Name:        parts[1],
		Term:        parts[2],
		Year:        year,
	}, env.Sender)
	if err != nil {
		return "", err
	}
	env.Auth.AddCourse(c.ID)
	return fmt.Sprintf(`Created course '%s' (#%d) with you as instructor. The course token is:

  %s

Instructor commands on the course need:

%s`, c.Tag(), c.ID, secret, env.cmd("auth", c.Tag(), "<course token>")), nil
}

func runExpect(ctx context.Context, env *Env, args []format.Value) (string, error) {
	c, err := env.course(ctx, args, 0)
	if err != nil {
		return "", err
	}
	if err = env.requireCourse(c); err != nil {
		return "", err
	}

	var addresses []string
	for _, v := range args[1:] {
		ss, ok := format.Strings(v)
		if !ok {
			return "", core.Validationf("addresses must be words or a list{ } of words")
		}
		addresses = append(addresses, ss...)
	}
	if len(addresses) == 0 {
		return "", core.Validationf("missing address")
	}

	lines := []string{fmt.Sprintf("Roster of '%s':", c.Tag())}
	for _, addr := range addresses {
		if err = env.Courses.Expect(ctx, c.ID, addr); err != nil {
			if !core.IsUserError(err) {
				return "", err
			}
			lines = append(lines, fmt.Sprintf("  %s: not added, %s", addr, err))
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s: expected", addr))
	}
	return strings.Join(lines, "\n"), nil
}

func runAddInstructor(ctx context.Context, env *Env, args []format.Value) (string, error) {
	c, err := env.course(ctx, args, 0)
	if err != nil {
		return "", err
	}
	if err = env.requireCourse(c); err != nil {
		return "", err
	}
	addr, err := argString(args, 1, "address")
	if err != nil {
		return "", err
	}
	if err = env.Courses.AddInstructor(ctx, c.ID, addr); err != nil {
		return "", err
	}
	return fmt.Sprintf("'%s' is now an instructor of '%s'.", core.CleanString(addr, true /* lower */), c.Tag()), nil
}

func runEnroll(ctx context.Context, env *Env, args []format.Value) (string, error) {
	c, err := env.course(ctx, args, 0)
	if err != nil {
		return "", err
	}
	if err = env.Courses.Enroll(ctx, c.ID, env.Sender); err != nil {
		return "", err
	}
	return fmt.Sprintf("You are now enrolled in '%s'.", c.Tag()), nil
}

func runAlias(ctx context.Context, env *Env, args []format.Value) (string, error) {
	c, err := env.course(ctx, args, 0)
	if err != nil {
		return "", err
	}
	alias, err := argString(args, 1, "alias")
	if err != nil {
		return "", err
	}
	if err = env.Courses.SetAlias(ctx, env.Sender, c.ID, alias); err != nil {
		return "", err
	}
	return fmt.Sprintf("'%s' now refers to '%s' in your messages.", core.CleanString(alias), c.Tag()), nil
}

func runStatus(ctx context.Context, env *Env, args []format.Value) (string, error) {
	switch len(args) {
	case 0:
		return userStatus(ctx, env)
	case 1:
		c, err := env.course(ctx, args, 0)
		if err != nil {
			return "", err
		}
		return courseStatus(ctx, env, c)
	default:
		c, err := env.course(ctx, args, 0)
		if err != nil {
			return "", err
		}
		a, err := env.assignment(ctx, c, args, 1)
		if err != nil {
			return "", err
		}
		return assignmentStatus(ctx, env, c, a)
	}
}

func userStatus(ctx context.Context, env *Env) (string, error) {
	status, err := env.Users.Status(ctx, env.Sender)
	if err != nil {
		return "", err
	}
	lines := []string{
		"User: " + env.Sender,
		"Status: " + status,
	}
	if status == user.StatusNotRegistered {
		lines = append(lines, "", "To register, send: "+env.cmd("register"))
	} else if usr, err := env.Users.Get(ctx, env.Sender); err == nil {
		lines = append(lines, "Role: "+string(usr.Role))
	}

	enrollments, err := env.Courses.Enrollments(ctx, env.Sender)
	if err != nil {
		return "", err
	}
	if len(enrollments) > 0 {
		lines = append(lines, "", "Courses:")
	}
	for _, e := range enrollments {
		c, err := env.Courses.Get(ctx, e.CourseID)
		if err != nil {
			return "", err
		}
		line := fmt.Sprintf("  %s (#%d): %s", c.Tag(), c.ID, e.Status)
		aliases, err := env.Courses.Aliases(ctx, env.Sender, c.ID)
		if err != nil {
			return "", err
		}
		if len(aliases) > 0 {
			line += ", aliases: " + strings.Join(aliases, " ")
		}
		lines = append(lines, line)
	}

	requests, err := env.Users.OutstandingRequests(ctx, env.Sender)
	if err != nil {
		return "", err
	}
	if len(requests) > 0 {
		lines = append(lines, "", "Outstanding permission requests:")
	}
	for _, r := range requests {
		lines = append(lines, fmt.Sprintf("  %s/%s: %s", r.Type, r.Value, r.Status))
	}
	return strings.Join(lines, "\n"), nil
}

func courseStatus(ctx context.Context, env *Env, c course.Course) (string, error) {
	status, err := env.Courses.EnrollmentStatus(ctx, env.Sender, c.ID)
	if err != nil {
		return "", err
	}
	privileged, err := env.privileged(ctx, c)
	if err != nil {
		return "", err
	}
	assignments, err := env.Assignments.List(ctx, c.ID)
	if err != nil {
		return "", err
	}

	lines := []string{
		fmt.Sprintf("Course: %s (#%d)", c.Tag(), c.ID),
		"Your status: " + string(status),
		"",
	}
	var listed int
	for _, a := range assignments {
		state := a.State(env.Now)
		if state == assignment.StateUnpublished && !privileged {
			continue
		}
		if listed == 0 {
			lines = append(lines, "Assignments:")
		}
		listed++
		lines = append(lines, fmt.Sprintf("  %s (#%d): %s, due %s", a.Name, a.ID, state, format.FormatTime(a.DueAt)))
	}
	if listed == 0 {
		lines = append(lines, "No assignments.")
	}
	return strings.Join(lines, "\n"), nil
}
