// Package grading scores submissions and aggregates course results.
package grading

import (
	"fmt"
	"strings"
	"time"

	"github.com/trezcool/academibot/core/assignment"
)

// DefaultLatePenalty is the credit multiplier of late work when none is configured.
const DefaultLatePenalty = 0.5

// LatePolicy maps how late a correct answer was to its credit multiplier.
type LatePolicy func(lateness time.Duration) float64

// FlatPenalty gives `multiplier` credit to any late answer and full credit otherwise.
func FlatPenalty(multiplier float64) LatePolicy {
	return func(lateness time.Duration) float64 {
		if lateness > 0 {
			return multiplier
		}
		return 1.0
	}
}

// Status of a problem in a grade, taken from the submission its credit comes from.
type Status string

const (
	StatusOnTime   Status = "on-time"
	StatusLate     Status = "late"
	StatusRejected Status = "rejected"
	StatusMissing  Status = "missing"
)

func statusOf(t assignment.Timing) Status {
	switch t {
	case assignment.OnTime:
		return StatusOnTime
	case assignment.Late:
		return StatusLate
	default:
		return StatusRejected
	}
}

type (
	ProblemCredit struct {
		Problem string
		Credit  float64
		Correct bool
		Status  Status
	}

	Result struct {
		Score    float64
		Problems []ProblemCredit
	}
)

// Feedback lists each problem as `name: correct|incorrect`, annotated unless on-time.
func (r Result) Feedback() string {
	lines := make([]string, 0, len(r.Problems))
	for _, p := range r.Problems {
		verdict := "incorrect"
		if p.Correct {
			verdict = "correct"
		}
		line := p.Problem + ": " + verdict
		if p.Status != StatusOnTime {
			line += " (" + string(p.Status) + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (r Result) String() string {
	return fmt.Sprintf("%.3f", r.Score)
}

// Representatives are the submissions a grade is computed from: the latest on-time one and the latest late one.
type Representatives struct {
	OnTime *assignment.Submission
	Late   *assignment.Submission
}

func (r Representatives) All() []assignment.Submission {
	all := make([]assignment.Submission, 0, 2)
	if r.OnTime != nil {
		all = append(all, *r.OnTime)
	}
	if r.Late != nil {
		all = append(all, *r.Late)
	}
	return all
}

func (r Representatives) Empty() bool {
	return r.OnTime == nil && r.Late == nil
}

// Finalized reports whether every representative has a recorded grade.
func (r Representatives) Finalized() bool {
	for _, s := range r.All() {
		if !s.Graded() {
			return false
		}
	}
	return !r.Empty()
}

func later(a, b *assignment.Submission) bool {
	if a.Timestamp.Equal(b.Timestamp) {
		return a.ID > b.ID
	}
	return a.Timestamp.After(b.Timestamp)
}

// SelectRepresentatives picks the representatives among one user's submissions.
// Submissions past reject-after never represent.
func SelectRepresentatives(def assignment.Definition, subs []assignment.Submission) Representatives {
	var reps Representatives
	for i := range subs {
		s := &subs[i]
		switch def.TimingOf(s.Timestamp) {
		case assignment.OnTime:
			if reps.OnTime == nil || later(s, reps.OnTime) {
				reps.OnTime = s
			}
		case assignment.Late:
			if reps.Late == nil || later(s, reps.Late) {
				reps.Late = s
			}
		}
	}
	return reps
}

type Grader struct {
	Policy LatePolicy
}

func NewGrader(policy LatePolicy) Grader {
	if policy == nil {
		policy = FlatPenalty(DefaultLatePenalty)
	}
	return Grader{Policy: policy}
}

func (g Grader) policy() LatePolicy {
	if g.Policy == nil {
		return FlatPenalty(DefaultLatePenalty)
	}
	return g.Policy
}

// credit is what one submission earns for one problem.
func (g Grader) credit(def assignment.Definition, sub assignment.Submission, p assignment.Problem) (float64, bool) {
	answer, ok := sub.Answer(p.Name)
	if !ok {
		return 0, false
	}
	pt, ok := assignment.LookupProblemType(p.Type)
	if !ok || !pt.Correct(p, answer) {
		return 0, false
	}
	switch def.TimingOf(sub.Timestamp) {
	case assignment.OnTime:
		return 1.0, true
	case assignment.Late:
		return g.policy()(sub.Timestamp.Sub(def.LateAfter)), true
	default:
		return 0, true
	}
}

// Grade computes the assignment score from the given submissions:
// each problem is worth the best credit any of them earns for it.
func (g Grader) Grade(def assignment.Definition, subs ...assignment.Submission) Result {
	res := Result{Problems: make([]ProblemCredit, 0, len(def.Problems))}
	var total float64
	for _, p := range def.Problems {
		pc := ProblemCredit{Problem: p.Name, Status: StatusMissing}
		for _, s := range subs {
			c, correct := g.credit(def, s, p)
			switch {
			case correct && (!pc.Correct || c > pc.Credit):
				pc.Credit, pc.Correct, pc.Status = c, true, statusOf(def.TimingOf(s.Timestamp))
			case !pc.Correct && pc.Status == StatusMissing:
				pc.Status = statusOf(def.TimingOf(s.Timestamp))
			}
		}
		total += pc.Credit
		res.Problems = append(res.Problems, pc)
	}
	if n := len(def.Problems); n > 0 {
		res.Score = total / float64(n)
	}
	return res
}

// GradeRepresentatives scores a user from their representatives.
func (g Grader) GradeRepresentatives(def assignment.Definition, reps Representatives) Result {
	return g.Grade(def, reps.All()...)
}
