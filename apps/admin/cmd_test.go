package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/course"
	"github.com/trezcool/academibot/core/user"
	"github.com/trezcool/academibot/storage/database/sqlx"
	"github.com/trezcool/academibot/tests"
)

var t0 = time.Date(2021, time.January, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up DB & services
	db := testutil.PrepareDB(t)
	out := new(bytes.Buffer)

	nowFunc = func() time.Time { return t0 }
	t.Cleanup(func() { nowFunc = time.Now })

	return &commandLine{
		db:      db,
		users:   user.NewService(sqlxrepos.NewUserRepository(db), core.PlainChecker{}, testutil.TokenTTL),
		courses: course.NewService(sqlxrepos.NewCourseRepository(db), core.PlainChecker{}),
		out:     out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, cli *commandLine, out *bytes.Buffer) {
	t.Helper()
	out.Reset()
	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || !strings.Contains(err.Error(), tt.wantErrStr) {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
	if tt.wantOut != "" && !strings.Contains(out.String(), tt.wantOut) {
		t.Errorf("cli.run() output = %q, want it to contain %q", out.String(), tt.wantOut)
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp, wantOut: "cleantokens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t)
	defaultMigrate := migrateFunc
	t.Cleanup(func() { migrateFunc = defaultMigrate })

	migrateFunc = func(_ context.Context, _ *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t)

	type extra struct {
		token string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "register", args: []string{"adduser", "-address", "Prof@Uni.edu"}, wantOut: "registered prof@uni.edu (default)"},
		{name: "already registered", args: []string{"adduser", "-address", "prof@uni.edu"}, wantErrStr: "already exists"},
		{name: "invalid address", args: []string{"adduser", "-address", "a b"}, wantErrStr: "invalid user"},
		{name: "prompt: empty token", args: []string{"adduser", "-address", "root@uni.edu", "-prompt"}, wantErr: errHelp},
		{name: "admin with token", args: []string{"adduser", "-address", "root@uni.edu", "-admin", "-prompt"}, extra: extra{token: "s3cret"}, wantOut: "token: s3cret"},
	}
	defaultReadPassword := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = defaultReadPassword })
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.token), nil
			}
			return nil, nil
		}
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}

	ctx := context.Background()
	if ok, err := cli.users.Authenticate(ctx, "root@uni.edu", "s3cret"); err != nil || !ok {
		t.Errorf("Authenticate(prompted token) = %v, %v", ok, err)
	}
	if usr, err := cli.users.Get(ctx, "root@uni.edu"); err != nil || !usr.IsAdmin() {
		t.Errorf("Get() = %+v, %v; want an admin", usr, err)
	}
}

func Test_commandLine_setRole(t *testing.T) {
	cli, out := setup(t)
	testutil.CreateUser(t, cli.users, "a@uni.edu", user.RoleDefault)

	tests := []cliTest{
		{name: "no args", args: []string{"setrole"}, wantErr: errHelp},
		{name: "bad role", args: []string{"setrole", "-address", "a@uni.edu", "-role", "god"}, wantErr: errHelp},
		{name: "unknown user", args: []string{"setrole", "-address", "b@uni.edu", "-role", "admin"}, wantErr: user.ErrNotFound},
		{name: "promote", args: []string{"setrole", "-address", "a@uni.edu", "-role", "admin"}, wantOut: "a@uni.edu is now admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}
}

func Test_commandLine_scramble(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	secret := testutil.CreateUser(t, cli.users, "a@uni.edu", user.RoleDefault)
	c, courseSecret := testutil.CreateCourse(t, cli.courses, "uni/cs101/fall/2021", "a@uni.edu")

	tests := []cliTest{
		{name: "no args", args: []string{"scramble"}, wantErr: errHelp},
		{name: "both", args: []string{"scramble", "-user", "a@uni.edu", "-course", "1"}, wantErr: errHelp},
		{name: "unknown user", args: []string{"scramble", "-user", "b@uni.edu"}, wantErr: user.ErrNotFound},
		{name: "unknown course", args: []string{"scramble", "-course", "uni/cs102/fall/2021"}, wantErrStr: "not found"},
		{name: "user", args: []string{"scramble", "-user", "a@uni.edu"}, wantOut: "token: "},
		{name: "course by tag", args: []string{"scramble", "-course", "uni/cs101/fall/2021"}, wantOut: fmt.Sprintf("course #%d token: ", c.ID)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}

	if ok, _ := cli.users.Authenticate(ctx, "a@uni.edu", secret); ok {
		t.Error("the user token still authenticates after scramble")
	}
	if ok, _ := cli.courses.Authenticate(ctx, c.ID, courseSecret); ok {
		t.Error("the course token still authenticates after scramble")
	}
}

func Test_commandLine_cleanTokens(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	if _, err := cli.users.IssueToken(ctx, "a@uni.edu", user.PurposeRegister, t0.Add(-time.Hour)); err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := cli.users.IssueToken(ctx, "b@uni.edu", user.PurposeRegister, t0); err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	cliTest{name: "clean", args: []string{"cleantokens"}, wantOut: "removed 1 expired tokens"}.check(t, cli, out)
}
