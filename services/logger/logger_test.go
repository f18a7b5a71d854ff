package logsvc

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/user"
)

func TestStdLogger(t *testing.T) {
	var exited string
	exitFunc = func(_ *log.Logger, msg string) { exited = msg }
	defer func() { exitFunc = func(l *log.Logger, msg string) { l.Fatal(msg) } }()

	tests := []struct {
		name  string
		debug bool
		log   func(l core.Logger)
		want  []string
		none  bool
	}{
		{
			name: "info",
			log:  func(l core.Logger) { l.Info("cycle done") },
			want: []string{"INFO cycle done\n"},
		},
		{
			name: "error with stack",
			log:  func(l core.Logger) { l.Error("failed", errors.New("db down")) },
			want: []string{"ERROR failed\n", "  db down\n", "TestStdLogger"},
		},
		{
			name: "user argument",
			log:  func(l core.Logger) { l.Warn("odd", user.User{Address: "a@b.c"}) },
			want: []string{"WARN odd\n", "  user: a@b.c\n"},
		},
		{
			name: "debug is dropped",
			log:  func(l core.Logger) { l.Debug("noise") },
			none: true,
		},
		{
			name:  "debug enabled",
			debug: true,
			log:   func(l core.Logger) { l.Debug("noise") },
			want:  []string{"DEBUG noise\n"},
		},
		{
			name: "fatal exits",
			log:  func(l core.Logger) { l.Fatal("bye") },
			want: []string{"FATAL bye\n"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := new(bytes.Buffer)
			tt.log(NewStdLogger(log.New(out, "", 0), tt.debug))
			if tt.none && out.Len() > 0 {
				t.Errorf("logged %q", out.String())
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output %q is missing %q", out.String(), want)
				}
			}
		})
	}
	if exited != "bye" {
		t.Errorf("Fatal() did not exit")
	}
}

func TestRollbarLoggerDisabledWithoutToken(t *testing.T) {
	out := new(bytes.Buffer)
	l := NewRollbarLogger(log.New(out, "", 0), &core.Config{Env: "TEST", Build: "dev"})
	defer l.Close()

	l.Error("failed", errors.New("boom"), user.User{Address: "a@b.c"}, map[string]interface{}{"id": 1})
	for _, want := range []string{"ERROR failed\n", "  boom\n", "  user: a@b.c\n", "  map[id:1]\n"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output %q is missing %q", out.String(), want)
		}
	}
}
