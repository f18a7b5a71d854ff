package command

import (
	"reflect"
	"testing"

	"github.com/trezcool/academibot/core/format"
)

func names(invs []Invocation) []string {
	out := make([]string, 0, len(invs))
	for _, inv := range invs {
		out = append(out, inv.Command.Name)
	}
	return out
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantNames []string
		wantArgs  [][]format.Value
	}{
		{
			name:      "leading text is ignored",
			body:      "hello there\n:help map",
			wantNames: []string{"help"},
			wantArgs:  [][]format.Value{{format.Word("map")}},
		},
		{
			name:      "several commands",
			body:      ":help :status uni/cs/fall/2021",
			wantNames: []string{"help", "status"},
			wantArgs:  [][]format.Value{{}, {format.Word("uni/cs/fall/2021")}},
		},
		{
			name:      "commands inside blocks are arguments",
			body:      ":submit cs hw1 map{ p1 : :help }",
			wantNames: []string{"submit"},
			wantArgs: [][]format.Value{{
				format.Word("cs"),
				format.Word("hw1"),
				format.Map{{Key: "p1", Value: format.Word(":help")}},
			}},
		},
		{
			name:      "commands inside text before the first command",
			body:      "text{ please run :help } :status",
			wantNames: []string{"status"},
			wantArgs:  [][]format.Value{{}},
		},
		{
			name:      "unknown commands are plain words",
			body:      ":frobnicate x :help",
			wantNames: []string{"help"},
			wantArgs:  [][]format.Value{{}},
		},
		{
			name:      "no commands",
			body:      "just saying hi",
			wantNames: []string{},
			wantArgs:  [][]format.Value{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invs, err := Extract(format.Tokenize(tt.body), ":", format.Parser{})
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if got := names(invs); !reflect.DeepEqual(got, tt.wantNames) {
				t.Fatalf("Extract() commands = %v, want %v", got, tt.wantNames)
			}
			for i, inv := range invs {
				if inv.Pos != i {
					t.Errorf("Extract() [%d].Pos = %d", i, inv.Pos)
				}
				if len(inv.Args) != len(tt.wantArgs[i]) {
					t.Errorf("Extract() [%d] has %d args, want %d", i, len(inv.Args), len(tt.wantArgs[i]))
					continue
				}
				for j, arg := range inv.Args {
					if !reflect.DeepEqual(arg, tt.wantArgs[i][j]) {
						t.Errorf("Extract() [%d] arg %d = %#v, want %#v", i, j, arg, tt.wantArgs[i][j])
					}
				}
			}
		})
	}
}

func TestExtractFailsClosed(t *testing.T) {
	bodies := []string{
		":block :create-course map{ a : b",
		":help :auth user list{ x :status",
		":status text{ never closed",
	}
	for _, body := range bodies {
		invs, err := Extract(format.Tokenize(body), ":", format.Parser{})
		if err == nil {
			t.Errorf("Extract(%q) expected an error", body)
		}
		if invs != nil {
			t.Errorf("Extract(%q) = %v, want no commands", body, names(invs))
		}
	}
}

func TestSchedule(t *testing.T) {
	invs, err := Extract(format.Tokenize(":scramble user :status :auth user t :help"), ":", format.Parser{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	sorted := Schedule(invs)

	want := []string{"auth", "status", "help", "scramble"}
	if got := names(sorted); !reflect.DeepEqual(got, want) {
		t.Errorf("Schedule() = %v, want %v", got, want)
	}
	if got := names(invs); got[0] != "scramble" {
		t.Errorf("Schedule() reordered its input: %v", got)
	}
	for _, inv := range sorted {
		if invs[inv.Pos].Command != inv.Command {
			t.Errorf("Schedule() lost the position of %s", inv.Command.Name)
		}
	}
}

func TestCloseMatches(t *testing.T) {
	got := closeMatches("enrol", helpTopics(), 3, 0.6)
	if len(got) == 0 || got[0] != "enroll" {
		t.Errorf("closeMatches(enrol) = %v, want enroll first", got)
	}
	if got := closeMatches("zzzz", helpTopics(), 3, 0.6); len(got) != 0 {
		t.Errorf("closeMatches(zzzz) = %v, want none", got)
	}
}
