package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/assignment"
	"github.com/trezcool/academibot/core/course"
	"github.com/trezcool/academibot/core/format"
	"github.com/trezcool/academibot/core/grading"
)

func runCreateAssignment(ctx context.Context, env *Env, args []format.Value) (string, error) {
	c, err := env.course(ctx, args, 0)
	if err != nil {
		return "", err
	}
	if err = env.requireCourse(c); err != nil {
		return "", err
	}
	content, err := argMap(args, 1, "assignment definition")
	if err != nil {
		return "", err
	}
	a, err := env.Assignments.Create(ctx, c.ID, content)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Created assignment '%s' (#%d) in '%s' with %d problem(s); it is %s.\n\n%s",
		a.Name, a.ID, c.Tag(), len(a.Problems), a.State(env.Now), env.Printer.Unparse(a.Content)), nil
}

func runSubmit(ctx context.Context, env *Env, args []format.Value) (string, error) {
	c, err := env.course(ctx, args, 0)
	if err != nil {
		return "", err
	}
	status, err := env.Courses.EnrollmentStatus(ctx, env.Sender, c.ID)
	if err != nil {
		return "", err
	}
	if status != course.StatusEnrolled && status != course.StatusInstructor {
		return "", core.Validationf("you are not enrolled in '%s'; send %s first", c.Tag(), env.cmd("enroll", c.Tag()))
	}
	a, err := env.assignment(ctx, c, args, 1)
	if err != nil {
		return "", err
	}
	content, err := argMap(args, 2, "submission")
	if err != nil {
		return "", err
	}

	sub, err := env.Assignments.Submit(ctx, a, env.Sender, content, env.Now)
	if err != nil {
		return "", err
	}
	timing := a.TimingOf(sub.Timestamp)
	lines := []string{fmt.Sprintf("Recorded submission #%d to '%s' at %s (%s).", sub.ID, a.Name, format.FormatTime(sub.Timestamp), timing)}
	switch timing {
	case assignment.Late:
		lines = append(lines, fmt.Sprintf("It arrived after %s and earns reduced credit.", format.FormatTime(a.LateAfter)))
	case assignment.Rejected:
		lines = append(lines, fmt.Sprintf("It arrived after %s and earns no credit.", format.FormatTime(a.RejectAfter)))
	}
	switch {
	case a.Gradeable(sub, env.Now):
		lines = append(lines, "It will be graded shortly.")
	case timing == assignment.OnTime:
		lines = append(lines, fmt.Sprintf("It will be graded after %s.", format.FormatTime(a.LateAfter)))
	default:
		lines = append(lines, fmt.Sprintf("It will be graded after %s.", format.FormatTime(a.RejectAfter)))
	}
	return strings.Join(lines, "\n"), nil
}

// summary describes the sender's standing on one assignment.
func summary(env *Env, a assignment.Assignment, subs []assignment.Submission, detailed bool) string {
	reps := grading.SelectRepresentatives(a.Definition, subs)
	switch {
	case reps.Empty() && len(subs) > 0:
		return "no counted submission (only rejected ones)"
	case reps.Empty():
		return "no submission"
	case !reps.Finalized():
		next := a.LateAfter
		if reps.OnTime == nil || reps.OnTime.Graded() {
			next = a.RejectAfter
		}
		return "pending, graded after " + format.FormatTime(next)
	}
	res := env.Grader.GradeRepresentatives(a.Definition, reps)
	s := res.String() + " (final)"
	if detailed {
		s += "\n" + indent(res.Feedback(), "  ")
	}
	return s
}

func assignmentStatus(ctx context.Context, env *Env, c course.Course, a assignment.Assignment) (string, error) {
	subs, err := env.Assignments.Submissions(ctx, a.ID, env.Sender)
	if err != nil {
		return "", err
	}
	reps := grading.SelectRepresentatives(a.Definition, subs)

	lines := []string{
		fmt.Sprintf("Assignment: %s (#%d) in %s", a.Name, a.ID, c.Tag()),
		"State: " + string(a.State(env.Now)),
		"Publish: " + format.FormatTime(a.PublishAt),
		"Due: " + format.FormatTime(a.DueAt),
		"Late after: " + format.FormatTime(a.LateAfter),
		"Reject after: " + format.FormatTime(a.RejectAfter),
		fmt.Sprintf("Problems: %d", len(a.Problems)),
		fmt.Sprintf("Your submissions: %d", len(subs)),
	}
	if reps.OnTime != nil {
		lines = append(lines, fmt.Sprintf("Latest on-time submission: #%d at %s", reps.OnTime.ID, format.FormatTime(reps.OnTime.Timestamp)))
	}
	if reps.Late != nil {
		lines = append(lines, fmt.Sprintf("Latest late submission: #%d at %s", reps.Late.ID, format.FormatTime(reps.Late.Timestamp)))
	}
	lines = append(lines, "Score: "+summary(env, a, subs, true))
	return strings.Join(lines, "\n"), nil
}

func runGrades(ctx context.Context, env *Env, args []format.Value) (string, error) {
	c, err := env.course(ctx, args, 0)
	if err != nil {
		return "", err
	}

	var assignments []assignment.Assignment
	if len(args) > 1 {
		a, err := env.assignment(ctx, c, args, 1)
		if err != nil {
			return "", err
		}
		assignments = append(assignments, a)
	} else {
		all, err := env.Assignments.List(ctx, c.ID)
		if err != nil {
			return "", err
		}
		for _, a := range all {
			if a.State(env.Now) != assignment.StateUnpublished {
				assignments = append(assignments, a)
			}
		}
	}

	lines := []string{fmt.Sprintf("Grades of '%s' in '%s':", env.Sender, c.Tag())}
	if len(assignments) == 0 {
		lines = append(lines, "  no published assignments")
	}
	for _, a := range assignments {
		subs, err := env.Assignments.Submissions(ctx, a.ID, env.Sender)
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("  %s: %s", a.Name, summary(env, a, subs, len(args) > 1)))
	}
	return strings.Join(lines, "\n"), nil
}

func runStats(ctx context.Context, env *Env, args []format.Value) (string, error) {
	c, err := env.course(ctx, args, 0)
	if err != nil {
		return "", err
	}
	if err = env.requireCourse(c); err != nil {
		return "", err
	}
	a, err := env.assignment(ctx, c, args, 1)
	if err != nil {
		return "", err
	}

	enrolled, err := env.Courses.Students(ctx, c.ID)
	if err != nil {
		return "", err
	}
	students := make([]string, 0, len(enrolled))
	for _, e := range enrolled {
		students = append(students, e.Address)
	}
	subs, err := env.Assignments.AllSubmissions(ctx, a.ID)
	if err != nil {
		return "", err
	}
	st := env.Grader.CourseStats(a.Definition, students, subs)

	lines := []string{
		fmt.Sprintf("Statistics for '%s' in '%s' (%s):", a.Name, c.Tag(), a.State(env.Now)),
		fmt.Sprintf("  students: %d", st.Students),
		fmt.Sprintf("  submitted: %d", st.Submitters),
		fmt.Sprintf("  on-time only: %d", st.OnTimeOnly),
		fmt.Sprintf("  late only: %d", st.LateOnly),
		fmt.Sprintf("  on-time and late: %d", st.Both),
		fmt.Sprintf("  missing: %d", st.Missing),
		fmt.Sprintf("  mean: %.3f, median: %.3f", st.Mean, st.Median),
		fmt.Sprintf("  among submitters, mean: %.3f, median: %.3f", st.SubmittersMean, st.SubmittersMedian),
	}
	if len(st.Results) > 0 {
		lines = append(lines, "", "Per student:")
	}
	for _, r := range st.Results {
		state := "provisional"
		switch {
		case r.Reps.Empty():
			state = "missing"
		case r.Reps.Finalized():
			state = "final"
		}
		lines = append(lines, fmt.Sprintf("  %s: %s (%s)", r.Address, r.Result, state))
	}
	return strings.Join(lines, "\n"), nil
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
