package command_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/academibot/core/command"
	"github.com/trezcool/academibot/core/grading"
	"github.com/trezcool/academibot/core/user"
	"github.com/trezcool/academibot/tests"
)

const (
	prof    = "prof@uni.edu"
	student = "stu@uni.edu"
	tag     = "uni/cs101/fall/2021"
)

const definition = `map{
  name : hw1
  type : homework
  value : 10
  publish : 2021-01-01T00:00:00
  due : 2021-01-08T00:00:00
  late-after : 2021-01-08T00:00:00
  reject-after : 2021-01-15T00:00:00
  problems : list{
    map{
      name : p1
      type : multiple-choice
      prompt : text{ Pick C. }
      answers : map{ A : a B : b C : c }
      solution : C
    }
    map{
      name : p2
      type : multiple-choice
      prompt : text{ Pick A. }
      answers : map{ A : a B : b }
      solution : A
    }
  }
}`

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

type harness struct {
	t    *testing.T
	svc  command.Services
	proc *command.Processor
	log  *testutil.Logger
	now  time.Time
}

func setup(t *testing.T) *harness {
	svc := testutil.Services()
	log := new(testutil.Logger)
	return &harness{
		t:    t,
		svc:  svc,
		proc: command.NewProcessor(svc, command.Config{AppName: "academibot", Sigil: ":"}, log),
		log:  log,
		now:  date("2021-01-05T00:00:00"),
	}
}

func (h *harness) send(sender, body string) string {
	h.t.Helper()
	reply, ok := h.proc.Process(context.Background(), sender, body, h.now)
	if !ok {
		h.t.Fatalf("Process(%q) sent no reply", body)
	}
	return reply
}

func mustContain(t *testing.T, reply string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(reply, want) {
			t.Errorf("reply does not contain %q:\n%s", want, reply)
		}
	}
}

// field returns the word following `prefix` at the start of a reply line.
func field(t *testing.T, reply, prefix string) string {
	t.Helper()
	for _, line := range strings.Split(reply, "\n") {
		if line = strings.TrimSpace(line); strings.HasPrefix(line, prefix) {
			if f := strings.Fields(strings.TrimPrefix(line, prefix)); len(f) > 0 {
				return f[0]
			}
		}
	}
	t.Fatalf("no line starting with %q in:\n%s", prefix, reply)
	return ""
}

// lineAfter returns the first non-blank line after the one containing `marker`.
func lineAfter(t *testing.T, reply, marker string) string {
	t.Helper()
	lines := strings.Split(reply, "\n")
	for i, line := range lines {
		if !strings.Contains(line, marker) {
			continue
		}
		for _, next := range lines[i+1:] {
			if next = strings.TrimSpace(next); next != "" {
				return next
			}
		}
	}
	t.Fatalf("nothing after %q in:\n%s", marker, reply)
	return ""
}

func TestReplyFormat(t *testing.T) {
	h := setup(t)
	reply := h.send(student, ":help enroll\n:auth user nope")

	if !strings.HasPrefix(reply, "academibot reply.\n---\nResponse for :help enroll\n") {
		t.Errorf("unexpected reply start:\n%s", reply)
	}
	mustContain(t, reply, "\n---\nResponse for :auth user ********\n", "Error: invalid user token")
	if strings.Contains(reply, "nope") {
		t.Errorf("reply echoes the token:\n%s", reply)
	}
}

func TestRegister(t *testing.T) {
	h := setup(t)

	reply := h.send("Alice@Example.com", ":register")
	token := field(t, reply, ":auth register")

	reply = h.send("alice@example.com", ":auth register "+token+"\n:register")
	mustContain(t, reply, "Registered user 'alice@example.com'")
	secret := lineAfter(t, reply, "Your user token is:")

	reply = h.send("alice@example.com", ":auth user "+secret+"\n:status")
	mustContain(t, reply, "Authenticated as user 'alice@example.com'", "Status: active", "Role: default")

	reply = h.send("alice@example.com", ":register")
	mustContain(t, reply, "Error: 'alice@example.com' is already registered")

	reply = h.send("bob@example.com", ":auth register "+token+"\n:register")
	mustContain(t, reply, "Error: invalid or expired 'register' token")
}

func TestAuthRunsFirst(t *testing.T) {
	h := setup(t)
	secret := testutil.CreateUser(t, h.svc.Users, prof, user.RoleDefault)

	reply := h.send(prof, ":create-course uni cs101 fall 2021\n:auth user "+secret)
	mustContain(t, reply, "Created course '"+tag+"' (#1) with you as instructor")
	if strings.Index(reply, "Response for :create-course") > strings.Index(reply, "Response for :auth") {
		t.Errorf("responses are not in message order:\n%s", reply)
	}

	reply = h.send(prof, ":create-course uni cs102 fall 2021")
	mustContain(t, reply, "Error: you are not authenticated for 'user'", ":auth user <your user token>")
}

func TestScrambleRunsLast(t *testing.T) {
	h := setup(t)
	secret := testutil.CreateUser(t, h.svc.Users, prof, user.RoleDefault)

	reply := h.send(prof, ":scramble user\n:auth user "+secret+"\n:request role admin")
	mustContain(t, reply, "Requested permission role/admin", "New user token for '"+prof+"'")
	fresh := lineAfter(t, reply, "New user token for")

	reply = h.send(prof, ":auth user "+secret+"\n:status")
	mustContain(t, reply, "Error: invalid user token")

	reply = h.send(prof, ":auth user "+fresh+"\n:status")
	mustContain(t, reply, "Authenticated as user '"+prof+"'", "role/admin: requested")
}

func TestRequestGrant(t *testing.T) {
	h := setup(t)
	adminSecret := testutil.CreateUser(t, h.svc.Users, "root@uni.edu", user.RoleAdmin)
	secret := testutil.CreateUser(t, h.svc.Users, prof, user.RoleDefault)

	reply := h.send(prof, ":auth user "+secret+"\n:grant root@uni.edu role default")
	mustContain(t, reply, "Error: only admins can grant permissions")

	h.send(prof, ":auth user "+secret+"\n:request role admin")
	reply = h.send("root@uni.edu", ":auth user "+adminSecret+"\n:grant "+prof+" role admin")
	mustContain(t, reply, "Granted role/admin to '"+prof+"'; it is now applied.")

	usr, err := h.svc.Users.Get(context.Background(), prof)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !usr.IsAdmin() {
		t.Errorf("role = %s, want admin", usr.Role)
	}
}

func TestFailClosed(t *testing.T) {
	h := setup(t)
	if reply, ok := h.proc.Process(context.Background(), student, ":block\n:alias map{ x : y", h.now); ok {
		t.Errorf("unparseable message got a reply:\n%s", reply)
	}

	blocking, err := h.svc.Users.IsBlocking(context.Background(), student)
	if err != nil {
		t.Fatalf("IsBlocking() error = %v", err)
	}
	if blocking {
		t.Error("commands of an unparseable message were run")
	}
}

func TestNoCommands(t *testing.T) {
	h := setup(t)
	for _, body := range []string{"", "hello there", "text{ :status }", "status: fine"} {
		if reply, ok := h.proc.Process(context.Background(), student, body, h.now); ok {
			t.Errorf("Process(%q) = %q, want no reply", body, reply)
		}
	}
}

func TestBlocking(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	mustContain(t, h.send(student, ":block"), "is now blocking", ":unblock")
	if _, ok := h.proc.Process(ctx, student, ":status", h.now); ok {
		t.Error("blocking sender got a reply")
	}
	if _, ok := h.proc.Process(ctx, student, "broken map{", h.now); ok {
		t.Error("blocking sender got a reply to an unparseable message")
	}

	reply := h.send(student, ":status\n:unblock")
	mustContain(t, reply, "is no longer blocking")
	if strings.Contains(reply, "Response for :status") {
		t.Errorf("blocking sender had other commands run:\n%s", reply)
	}
	mustContain(t, h.send(student, ":status"), "Status: not-registered")
}

func TestArgumentErrors(t *testing.T) {
	h := setup(t)
	tests := []struct {
		body string
		want string
	}{
		{":enroll", "Error: :enroll needs at least 1 argument(s): <course>"},
		{":enroll 42", "Error: course '42' does not exist"},
		{":alias list{ a } x", "Error: course must be a word or a text{ } block, got list{"},
		{":status nowhere", "Error: course 'nowhere' does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			mustContain(t, h.send(student, tt.body), tt.want)
		})
	}
}

func TestHelp(t *testing.T) {
	h := setup(t)
	tests := []struct {
		body  string
		wants []string
	}{
		{":help", []string{":create-course <institution> <name> <term> <year>", "map{  Lists a set of key <-> value relations."}},
		{":help submit", []string{"Help for command: :submit", "Every problem must be answered."}},
		{":help map", []string{"Help for format:\n  map{"}},
		{":help problem", []string{"type     : the problem type, one of: multiple-choice"}},
		{":help enrol", []string{"Unknown help topic 'enrol'. Did you mean: enroll"}},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			mustContain(t, h.send(student, tt.body), tt.wants...)
		})
	}
}

func TestCourseWorkflow(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, h.svc.Users, prof, user.RoleDefault)
	_, courseToken := testutil.CreateCourse(t, h.svc.Courses, tag, prof)
	auth := ":auth " + tag + " " + courseToken + "\n"

	reply := h.send(prof, ":create-assignment "+tag+" "+definition)
	mustContain(t, reply, "Error: you are not authenticated for '"+tag+"'")

	reply = h.send(prof, auth+":create-assignment "+tag+" "+definition)
	mustContain(t, reply, "Created assignment 'hw1' (#1) in '"+tag+"' with 2 problem(s); it is open.")

	reply = h.send(prof, auth+":expect "+tag+" "+student+" list{ other@uni.edu }\n:expect "+tag+" "+student)
	mustContain(t, reply, "stu@uni.edu: expected", "other@uni.edu: expected", "stu@uni.edu: not added, user 'stu@uni.edu' is already expected")

	reply = h.send(student, ":submit "+tag+" hw1 map{ p1 : C p2 : B }")
	mustContain(t, reply, "Error: you are not enrolled in '"+tag+"'")

	reply = h.send(student, ":enroll "+tag+"\n:alias "+tag+" cs")
	mustContain(t, reply, "You are now enrolled in '"+tag+"'.", "'cs' now refers to '"+tag+"'")

	reply = h.send(student, ":submit cs hw1 map{ p1 : C }")
	mustContain(t, reply, "Error: invalid submission")

	reply = h.send(student, ":submit cs hw1 map{ p1 : C p2 : B }")
	mustContain(t, reply, "Recorded submission #1 to 'hw1' at 2021-01-05T00:00:00 (on-time).", "It will be graded after 2021-01-08T00:00:00.")

	mustContain(t, h.send(student, ":grades cs"), "hw1: pending, graded after 2021-01-08T00:00:00")
	mustContain(t, h.send(student, ":status cs"), "hw1 (#1): open, due 2021-01-08T00:00:00")

	h.now = date("2021-01-09T00:00:00")
	graded, err := grading.NewMaintainer(h.svc.Assignments, h.svc.Grader, h.log).Run(ctx, h.now)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if graded != 1 {
		t.Fatalf("Run() graded %d submissions, want 1", graded)
	}

	reply = h.send(student, ":grades cs hw1")
	mustContain(t, reply, "hw1: 0.500 (final)", "p1: correct", "p2: incorrect")

	reply = h.send(student, ":status cs hw1")
	mustContain(t, reply, "State: past-due", "Your submissions: 1", "Latest on-time submission: #1 at 2021-01-05T00:00:00", "Score: 0.500 (final)")

	reply = h.send(student, ":stats cs hw1")
	mustContain(t, reply, "Error: you are not authenticated for '"+tag+"'")

	reply = h.send(prof, auth+":stats "+tag+" hw1")
	mustContain(t, reply, "students: 1", "submitted: 1", "missing: 0", "mean: 0.500, median: 0.500", "stu@uni.edu: 0.500 (final)")
}

func TestRejectedSubmission(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	c, _ := testutil.CreateCourse(t, h.svc.Courses, tag, prof)
	testutil.CreateAssignment(t, h.svc.Assignments, c.ID, definition)
	if err := h.svc.Courses.Expect(ctx, c.ID, student); err != nil {
		t.Fatalf("Expect() error = %v", err)
	}
	if err := h.svc.Courses.Enroll(ctx, c.ID, student); err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}

	h.now = date("2021-01-16T00:00:00")
	reply := h.send(student, ":submit "+tag+" hw1 map{ p1 : C p2 : A }")
	mustContain(t, reply, "(rejected)", "earns no credit")

	reply = h.send(student, ":grades "+tag)
	mustContain(t, reply, "hw1: no counted submission (only rejected ones)")
}

func TestUnpublishedAssignmentsAreHidden(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	c, _ := testutil.CreateCourse(t, h.svc.Courses, tag, prof)
	testutil.CreateAssignment(t, h.svc.Assignments, c.ID, definition)
	if err := h.svc.Courses.Expect(ctx, c.ID, student); err != nil {
		t.Fatalf("Expect() error = %v", err)
	}

	h.now = date("2020-12-30T00:00:00")
	mustContain(t, h.send(student, ":status "+tag+" hw1"), "Error: assignment 'hw1' does not exist")
	mustContain(t, h.send(student, ":status "+tag), "No assignments.")
	mustContain(t, h.send(prof, ":status "+tag), "hw1 (#1): unpublished")
}

func TestPanicsAreIsolated(t *testing.T) {
	svc := testutil.Services()
	svc.Courses = nil
	log := new(testutil.Logger)
	proc := command.NewProcessor(svc, command.Config{AppName: "academibot"}, log)

	reply, ok := proc.Process(context.Background(), student, ":help\n:enroll cs", time.Now())
	if !ok {
		t.Fatal("Process() sent no reply")
	}
	mustContain(t, reply, "Sorry, something went wrong")
	if strings.Contains(reply, "Response for :help") {
		t.Errorf("apology should replace the whole reply:\n%s", reply)
	}
	if n := log.Count("ERROR"); n != 1 {
		t.Errorf("logged %d errors, want 1", n)
	}

	reply, _ = proc.Process(context.Background(), student, ":help", time.Now())
	mustContain(t, reply, "Response for :help")
}
