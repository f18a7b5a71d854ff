package grading

import (
	"math"
	"testing"
	"time"

	"github.com/trezcool/academibot/core/assignment"
	"github.com/trezcool/academibot/core/format"
)

var epoch = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return epoch.Add(time.Duration(sec) * time.Second) }

func mcProblem(name, solution string) assignment.Problem {
	return assignment.Problem{
		Name:     name,
		Type:     "multiple-choice",
		Prompt:   "Pick one.",
		Answers:  format.Map{{Key: "A", Value: format.Word("a")}, {Key: "B", Value: format.Word("b")}, {Key: "C", Value: format.Word("c")}},
		Solution: solution,
	}
}

func testDefinition(problems ...assignment.Problem) assignment.Definition {
	return assignment.Definition{
		Name:        "hw1",
		PublishAt:   at(100),
		DueAt:       at(200),
		LateAfter:   at(200),
		RejectAfter: at(300),
		Problems:    problems,
	}
}

func submission(id int64, addr string, ts int, answers ...string) assignment.Submission {
	content := format.Map{}
	for i := 0; i+1 < len(answers); i += 2 {
		content = content.Set(answers[i], format.Word(answers[i+1]))
	}
	return assignment.Submission{ID: id, Address: addr, AssignmentID: 1, Timestamp: at(ts), Content: content}
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestFlatPenalty(t *testing.T) {
	policy := FlatPenalty(0.5)
	if got := policy(0); got != 1.0 {
		t.Errorf("policy(0) = %v, want 1", got)
	}
	if got := policy(time.Second); got != 0.5 {
		t.Errorf("policy(1s) = %v, want 0.5", got)
	}
}

func TestGradeSingleProblem(t *testing.T) {
	def := testDefinition(mcProblem("p1", "C"))
	g := NewGrader(FlatPenalty(0.5))

	tests := []struct {
		name         string
		subs         []assignment.Submission
		wantScore    float64
		wantFeedback string
	}{
		{name: "on-time correct", subs: []assignment.Submission{submission(1, "s", 150, "p1", "C")}, wantScore: 1.0, wantFeedback: "p1: correct"},
		{name: "late correct", subs: []assignment.Submission{submission(1, "s", 250, "p1", "C")}, wantScore: 0.5, wantFeedback: "p1: correct (late)"},
		{name: "missing", wantScore: 0, wantFeedback: "p1: incorrect (missing)"},
		{name: "on-time incorrect", subs: []assignment.Submission{submission(1, "s", 150, "p1", "A")}, wantScore: 0, wantFeedback: "p1: incorrect"},
		{name: "late revision of a wrong answer", subs: []assignment.Submission{submission(1, "s", 150, "p1", "A"), submission(2, "s", 250, "p1", "C")}, wantScore: 0.5, wantFeedback: "p1: correct (late)"},
		{name: "late revision cannot lower credit", subs: []assignment.Submission{submission(1, "s", 150, "p1", "C"), submission(2, "s", 250, "p1", "A")}, wantScore: 1.0, wantFeedback: "p1: correct"},
		{name: "rejected earns nothing", subs: []assignment.Submission{submission(1, "s", 350, "p1", "C")}, wantScore: 0, wantFeedback: "p1: correct (rejected)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := g.Grade(def, tt.subs...)
			if !almostEqual(res.Score, tt.wantScore) {
				t.Errorf("Score = %v, want %v", res.Score, tt.wantScore)
			}
			if got := res.Feedback(); got != tt.wantFeedback {
				t.Errorf("Feedback() = %q, want %q", got, tt.wantFeedback)
			}
		})
	}
}

func TestGradeAveragesProblems(t *testing.T) {
	def := testDefinition(mcProblem("p1", "C"), mcProblem("p2", "A"), mcProblem("p3", "B"), mcProblem("p4", "B"))
	onTime := submission(1, "s", 150, "p1", "C", "p2", "B", "p3", "A", "p4", "B")
	late := submission(2, "s", 250, "p1", "A", "p2", "A", "p3", "A", "p4", "B")

	res := NewGrader(nil).GradeRepresentatives(def, SelectRepresentatives(def, []assignment.Submission{onTime, late}))
	// p1 on-time 1, p2 late 0.5, p3 0, p4 1
	if want := 2.5 / 4; !almostEqual(res.Score, want) {
		t.Errorf("Score = %v, want %v", res.Score, want)
	}
	want := "p1: correct\np2: correct (late)\np3: incorrect\np4: correct"
	if got := res.Feedback(); got != want {
		t.Errorf("Feedback() = %q, want %q", got, want)
	}
}

func TestSelectRepresentatives(t *testing.T) {
	def := testDefinition(mcProblem("p1", "C"))
	subs := []assignment.Submission{
		submission(1, "s", 120, "p1", "A"),
		submission(2, "s", 180, "p1", "B"),
		submission(3, "s", 150, "p1", "C"),
		submission(4, "s", 220, "p1", "A"),
		submission(5, "s", 260, "p1", "B"),
		submission(6, "s", 320, "p1", "C"),
	}
	reps := SelectRepresentatives(def, subs)
	if reps.OnTime == nil || reps.OnTime.ID != 2 {
		t.Errorf("OnTime = %+v, want #2", reps.OnTime)
	}
	if reps.Late == nil || reps.Late.ID != 5 {
		t.Errorf("Late = %+v, want #5", reps.Late)
	}
	if reps.Finalized() {
		t.Error("Finalized() = true for ungraded representatives")
	}

	if reps := SelectRepresentatives(def, subs[5:]); !reps.Empty() {
		t.Errorf("rejected submission selected as representative: %+v", reps)
	}
}

func TestCourseStats(t *testing.T) {
	def := testDefinition(mcProblem("p1", "C"), mcProblem("p2", "A"))
	subs := []assignment.Submission{
		submission(1, "ontime", 150, "p1", "C", "p2", "A"), // 1.0
		submission(2, "late", 250, "p1", "C", "p2", "B"),   // 0.25
		submission(3, "both", 150, "p1", "C", "p2", "B"),   // p1 1.0
		submission(4, "both", 250, "p1", "C", "p2", "A"),   // p2 0.5 => 0.75
		submission(5, "walkin", 150, "p1", "A", "p2", "B"), // 0, not on the roster
	}
	students := []string{"ontime", "late", "both", "missing"}

	st := NewGrader(FlatPenalty(0.5)).CourseStats(def, students, subs)
	if st.Students != 5 || st.Submitters != 4 {
		t.Errorf("Students, Submitters = %d, %d, want 5, 4", st.Students, st.Submitters)
	}
	if st.OnTimeOnly != 2 || st.LateOnly != 1 || st.Both != 1 || st.Missing != 1 {
		t.Errorf("counts = %d/%d/%d/%d, want 2/1/1/1", st.OnTimeOnly, st.LateOnly, st.Both, st.Missing)
	}
	// scores: both 0.75, late 0.25, missing 0, ontime 1, walkin 0
	if !almostEqual(st.Mean, 2.0/5) || !almostEqual(st.Median, 0.25) {
		t.Errorf("Mean, Median = %v, %v, want 0.4, 0.25", st.Mean, st.Median)
	}
	if !almostEqual(st.SubmittersMean, 0.5) || !almostEqual(st.SubmittersMedian, 0.5) {
		t.Errorf("SubmittersMean, SubmittersMedian = %v, %v, want 0.5, 0.5", st.SubmittersMean, st.SubmittersMedian)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		xs   []float64
		want float64
	}{
		{xs: nil, want: 0},
		{xs: []float64{3}, want: 3},
		{xs: []float64{3, 1}, want: 2},
		{xs: []float64{5, 1, 3}, want: 3},
	}
	for _, tt := range tests {
		if got := median(tt.xs); got != tt.want {
			t.Errorf("median(%v) = %v, want %v", tt.xs, got, tt.want)
		}
	}
}
