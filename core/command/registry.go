// Package command turns message bodies into scheduled command invocations and runs them.
package command

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/academibot/core/format"
)

// Priorities; lower runs first.
const (
	PriorityAuth     = 0
	PriorityDefault  = 50
	PriorityScramble = 100
)

// Handler runs one command and returns its reply text.
// Typed errors from core are reported to the sender; any other error aborts the message.
type Handler func(ctx context.Context, env *Env, args []format.Value) (string, error)

type Command struct {
	Name     string
	Priority int
	MinArgs  int
	ArgDesc  string
	Desc     string
	Help     string
	Masked   bool // arguments after the first are hidden in the reply header
	Run      Handler
}

var registry = map[string]*Command{}

func init() {
	for _, cmd := range commandTable() {
		registry[cmd.Name] = cmd
	}
}

// Lookup finds a command by name.
func Lookup(name string) (*Command, bool) {
	cmd, ok := registry[name]
	return cmd, ok
}

// Names lists the command names in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookupToken recognizes a token naming a known command, eg. ":help".
func lookupToken(tok, sigil string) (*Command, bool) {
	if !strings.HasPrefix(tok, sigil) {
		return nil, false
	}
	return Lookup(strings.TrimPrefix(tok, sigil))
}

func commandTable() []*Command {
	return []*Command{
		{
			Name:     "auth",
			Priority: PriorityAuth,
			MinArgs:  2,
			ArgDesc:  "<purpose> <token>",
			Desc:     "Authenticates the rest of this message for a purpose.",
			Help: `Usage:
  :auth user <your user token>
  :auth <course> <course token>
  :auth register <registration token>

Authentication only lasts for the message it appears in, and is always
processed before any other command of that message. The purpose is 'user'
(or your own address) for your user token, a course reference for a course
token, or the purpose of a temporary token such as 'register'.`,
			Masked: true,
			Run:    runAuth,
		},
		{
			Name:     "help",
			Priority: PriorityDefault,
			ArgDesc:  "[topic]",
			Desc:     "Shows help for a command, a format or a topic.",
			Help: `Usage:
  :help
  :help <command>
  :help <format>
  :help problem
  :help assignment`,
			Run: runHelp,
		},
		{
			Name:     "register",
			Priority: PriorityDefault,
			Desc:     "Registers your address as a user.",
			Help: `Usage:
  :register

Registration takes two messages. The first ':register' replies with a
temporary token. Send it back with:

  :auth register <token>
  :register

and the reply will contain your user token. Keep it safe: it is needed for
commands that act on your behalf.`,
			Run: runRegister,
		},
		{
			Name:     "block",
			Priority: PriorityDefault,
			Desc:     "Stops all replies to your address.",
			Help: `Usage:
  :block

After this, messages from your address are ignored, except to run ':unblock'.`,
			Run: runBlock,
		},
		{
			Name:     "unblock",
			Priority: PriorityDefault,
			Desc:     "Resumes replies to your address.",
			Help: `Usage:
  :unblock`,
			Run: runUnblock,
		},
		{
			Name:     "status",
			Priority: PriorityDefault,
			ArgDesc:  "[course [assignment]]",
			Desc:     "Shows your status, a course or one of its assignments.",
			Help: `Usage:
  :status
  :status <course>
  :status <course> <assignment>

A course is referenced by its id, its tag (institution/name/term/year) or one
of your aliases. An assignment is referenced by its id or its name.`,
			Run: runStatus,
		},
		{
			Name:     "create-course",
			Priority: PriorityDefault,
			MinArgs:  4,
			ArgDesc:  "<institution> <name> <term> <year>",
			Desc:     "Creates a course with you as instructor.",
			Help: `Usage:
  :auth user <your user token>
  :create-course <institution> <name> <term> <year>

The reply contains the course token, needed with ':auth' for instructor
commands on the course.`,
			Run: runCreateCourse,
		},
		{
			Name:     "expect",
			Priority: PriorityDefault,
			MinArgs:  2,
			ArgDesc:  "<course> <address...>",
			Desc:     "Adds students to the course roster.",
			Help: `Usage:
  :auth <course> <course token>
  :expect <course> <address> [<address> ...]
  :expect <course> list{ <address> ... }

Expected students can then join with ':enroll <course>'.`,
			Run: runExpect,
		},
		{
			Name:     "add-instructor",
			Priority: PriorityDefault,
			MinArgs:  2,
			ArgDesc:  "<course> <address>",
			Desc:     "Makes someone an instructor of the course.",
			Help: `Usage:
  :auth <course> <course token>
  :add-instructor <course> <address>`,
			Run: runAddInstructor,
		},
		{
			Name:     "enroll",
			Priority: PriorityDefault,
			MinArgs:  1,
			ArgDesc:  "<course>",
			Desc:     "Enrolls you in a course that expects you.",
			Help: `Usage:
  :enroll <course>`,
			Run: runEnroll,
		},
		{
			Name:     "alias",
			Priority: PriorityDefault,
			MinArgs:  2,
			ArgDesc:  "<course> <alias>",
			Desc:     "Gives a course a personal short name.",
			Help: `Usage:
  :alias <course> <alias>

The alias can then be used anywhere a course is expected. It only applies to
your own messages.`,
			Run: runAlias,
		},
		{
			Name:     "create-assignment",
			Priority: PriorityDefault,
			MinArgs:  2,
			ArgDesc:  "<course> map{...}",
			Desc:     "Creates an assignment from its definition.",
			Help: `Usage:
  :auth <course> <course token>
  :create-assignment <course> map{ ... }

See ':help assignment' for the definition format.`,
			Run: runCreateAssignment,
		},
		{
			Name:     "submit",
			Priority: PriorityDefault,
			MinArgs:  3,
			ArgDesc:  "<course> <assignment> map{...}",
			Desc:     "Submits answers to an assignment.",
			Help: `Usage:
  :submit <course> <assignment> map{
    <problem> : <answer>
    ...
  }

Every problem must be answered. You can submit as many times as you like: your
grade comes from your latest on-time submission and your latest late one.`,
			Run: runSubmit,
		},
		{
			Name:     "grades",
			Priority: PriorityDefault,
			MinArgs:  1,
			ArgDesc:  "<course> [assignment]",
			Desc:     "Shows your grades in a course.",
			Help: `Usage:
  :grades <course>
  :grades <course> <assignment>`,
			Run: runGrades,
		},
		{
			Name:     "stats",
			Priority: PriorityDefault,
			MinArgs:  2,
			ArgDesc:  "<course> <assignment>",
			Desc:     "Shows assignment statistics for the course.",
			Help: `Usage:
  :auth <course> <course token>
  :stats <course> <assignment>`,
			Run: runStats,
		},
		{
			Name:     "request",
			Priority: PriorityDefault,
			MinArgs:  2,
			ArgDesc:  "<type> <value>",
			Desc:     "Asks an admin for a permission.",
			Help: `Usage:
  :auth user <your user token>
  :request role <role>

The permission is applied once an admin grants it, in either order.`,
			Run: runRequest,
		},
		{
			Name:     "grant",
			Priority: PriorityDefault,
			MinArgs:  3,
			ArgDesc:  "<user> <type> <value>",
			Desc:     "Grants a permission to a user (admins only).",
			Help: `Usage:
  :auth user <your user token>
  :grant <user> role <role>`,
			Run: runGrant,
		},
		{
			Name:     "scramble",
			Priority: PriorityScramble,
			MinArgs:  1,
			ArgDesc:  "<purpose>",
			Desc:     "Replaces a user or course token with a new one.",
			Help: `Usage:
  :auth user <your user token>
  :scramble user

  :auth <course> <course token>
  :scramble <course>

Scrambling runs after every other command of the message, so the old token
still works for them. The reply contains the new token.`,
			Run: runScramble,
		},
	}
}
