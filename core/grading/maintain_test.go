package grading_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/assignment"
	"github.com/trezcool/academibot/core/format"
	"github.com/trezcool/academibot/core/grading"
	"github.com/trezcool/academibot/storage/database/inmem"
	"github.com/trezcool/academibot/tests"
)

const lateDefinition = `map{
  name : quiz
  type : quiz
  value : 1
  publish : 2021-01-01
  due : 2021-01-08
  late-after : 2021-01-08
  reject-after : 2021-01-15
  flags : list{ grade-late-immediately }
  problems : list{
    map{
      name : q
      type : multiple-choice
      prompt : text{ Pick B. }
      answers : map{ A : a B : b }
      solution : B
    }
  }
}`

type recorder struct {
	mu     sync.Mutex
	graded map[int64]float64
	mails  []*core.EmailMessage
}

func (r *recorder) Graded(_ context.Context, _ assignment.Assignment, sub assignment.Submission, res grading.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graded[sub.ID] = res.Score
}

func (r *recorder) SendMessages(messages ...*core.EmailMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mails = append(r.mails, messages...)
}

func day(d int) time.Time {
	return time.Date(2021, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestMaintainer(t *testing.T) {
	ctx := context.Background()
	svc := assignment.NewService(inmemdb.NewAssignmentRepository(inmemdb.Open()))
	a := testutil.CreateAssignment(t, svc, 1, lateDefinition)

	submit := func(address, answer string, at time.Time) assignment.Submission {
		t.Helper()
		sub, err := svc.Submit(ctx, a, address, format.Map{{Key: "q", Value: format.Word(answer)}}, at)
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		return sub
	}
	onTime := submit("stu@uni.edu", "B", day(5))
	wrong := submit("other", "A", day(6))

	rec := &recorder{graded: make(map[int64]float64)}
	log := new(testutil.Logger)
	m := grading.NewMaintainer(svc, grading.NewGrader(nil), log, rec, grading.NewMailNotifier(rec, "academibot"))

	// on-time work waits for late-after
	n, err := m.Run(ctx, day(7))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Run(day 7) graded %d, want 0", n)
	}

	// late work of a grade-late-immediately assignment does not wait for reject-after
	late := submit("stu@uni.edu", "B", day(10))

	if n, err = m.Run(ctx, day(11)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Run(day 11) graded %d, want 3", n)
	}
	want := map[int64]float64{onTime.ID: 1.0, late.ID: 0.5, wrong.ID: 0}
	for id, score := range want {
		if got, ok := rec.graded[id]; !ok || got != score {
			t.Errorf("submission #%d graded %v (%v), want %v", id, got, ok, score)
		}
	}

	if n, err = m.Run(ctx, day(20)); err != nil || n != 0 {
		t.Errorf("Run(day 20) = %d, %v; want grades to be set only once", n, err)
	}

	subs, err := svc.Submissions(ctx, a.ID, "stu@uni.edu")
	if err != nil {
		t.Fatalf("Submissions() error = %v", err)
	}
	for _, s := range subs {
		if !s.Graded() {
			t.Errorf("submission #%d has no grade", s.ID)
		}
	}
	if fb := subs[1].Feedback; fb != "q: correct (late)" {
		t.Errorf("late feedback = %q", fb)
	}

	// "other" is not a mail address
	if len(rec.mails) != 2 {
		t.Fatalf("sent %d mails, want 2", len(rec.mails))
	}
	for _, msg := range rec.mails {
		if msg.To[0].Address != "stu@uni.edu" || !strings.Contains(msg.BodyStr, "Score: ") {
			t.Errorf("unexpected mail %+v", msg)
		}
	}
}

func TestMaintainerSkipsOrphans(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	repo := inmemdb.NewAssignmentRepository(db)
	if _, err := repo.CreateSubmission(ctx, assignment.Submission{AssignmentID: 99, Address: "x", Timestamp: day(1)}); err != nil {
		t.Fatalf("CreateSubmission() error = %v", err)
	}

	log := new(testutil.Logger)
	m := grading.NewMaintainer(assignment.NewService(repo), grading.NewGrader(nil), log)
	n, err := m.Run(ctx, day(2))
	if err != nil || n != 0 {
		t.Errorf("Run() = %d, %v", n, err)
	}
	if log.Count("WARN") != 1 {
		t.Errorf("orphan submission was not logged: %v", log.Entries)
	}
}
