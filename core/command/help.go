package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/academibot/core/assignment"
	"github.com/trezcool/academibot/core/format"
)

var topics = map[string]string{
	"problem": `Help for topic: problem

A problem is a map{ } with the keys:
  name     : a single word, unique within the assignment
  type     : the problem type, one of: %s
  prompt   : text{ the question }
  answers  : map{ <key> : <answer> ... }
  solution : the key of the correct answer
  flags    : optional list{ } of flags

Example:
  map{
    name : color
    type : multiple-choice
    prompt : text{ What is your favorite color? }
    answers : map{ A : Blue B : Green C : Grue }
    solution : C
  }

To answer it, submit a map{ } from problem names to answer keys:
  map{ color : C }`,

	"assignment": `Help for topic: assignment

An assignment is a map{ } with the keys:
  name         : a single word, unique within the course
  type         : text{ the kind of assignment, eg. homework }
  value        : its weight, a number
  publish      : when students can see and submit it
  due          : the announced deadline
  late-after   : submissions after this are late and earn reduced credit
  reject-after : submissions after this earn no credit
  problems     : list{ map{ ... } ... }, see ':help problem'
  flags        : optional list{ } of: grade-immediately grade-late-immediately

Times are UTC and written as 2006-01-02T15:04:05, 2006-01-02T15:04 or
2006-01-02. On-time submissions are graded after late-after and late ones
after reject-after, unless a grade-immediately flag says otherwise.`,
}

func runHelp(_ context.Context, env *Env, args []format.Value) (string, error) {
	if len(args) == 0 {
		return generalHelp(env), nil
	}
	raw, err := argString(args, 0, "topic")
	if err != nil {
		return "", err
	}
	topic := strings.TrimSuffix(strings.TrimPrefix(raw, env.Sigil), "{")

	if cmd, ok := Lookup(topic); ok {
		return fmt.Sprintf("Help for command: %s\n\n%s\n\n%s", env.cmd(cmd.Name), cmd.Desc, cmd.Help), nil
	}
	if info, ok := format.FormatHelp(topic); ok {
		return strings.TrimRight(info.Help, "\n"), nil
	}
	if text, ok := topics[topic]; ok {
		if topic == "problem" {
			text = fmt.Sprintf(text, strings.Join(assignment.ProblemTypeNames(), " "))
		}
		return text, nil
	}

	msg := fmt.Sprintf("Unknown help topic '%s'.", raw)
	if matches := closeMatches(topic, helpTopics(), 3, 0.6); len(matches) > 0 {
		msg += " Did you mean: " + strings.Join(matches, ", ") + "?"
	}
	return msg + "\n\n" + generalHelp(env), nil
}

func generalHelp(env *Env) string {
	b := new(strings.Builder)
	_, _ = fmt.Fprintf(b, "%s understands commands starting with '%s'. Commands:\n", env.AppName, env.Sigil)
	for _, name := range Names() {
		cmd := registry[name]
		usage := env.cmd(cmd.Name)
		if cmd.ArgDesc != "" {
			usage += " " + cmd.ArgDesc
		}
		_, _ = fmt.Fprintf(b, "  %s\n      %s\n", usage, cmd.Desc)
	}
	b.WriteString("\nFormats:\n")
	for _, f := range format.Formats {
		_, _ = fmt.Fprintf(b, "  %s{  %s\n", f.Name, f.Desc)
	}
	_, _ = fmt.Fprintf(b, "\nSee %s for details on any of them, or on 'problem' and 'assignment'.", env.cmd("help", "<topic>"))
	return b.String()
}

func helpTopics() []string {
	all := Names()
	for _, f := range format.Formats {
		all = append(all, f.Name)
	}
	for t := range topics {
		all = append(all, t)
	}
	return all
}

// closeMatches returns up to n candidates whose similarity ratio to word is at least cutoff, best first.
func closeMatches(word string, candidates []string, n int, cutoff float64) []string {
	type scored struct {
		name  string
		ratio float64
	}
	m := difflib.NewMatcher(nil, strings.Split(word, ""))
	var found []scored
	for _, c := range candidates {
		m.SetSeq1(strings.Split(c, ""))
		if r := m.Ratio(); r >= cutoff {
			found = append(found, scored{c, r})
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].ratio == found[j].ratio {
			return found[i].name < found[j].name
		}
		return found[i].ratio > found[j].ratio
	})

	names := make([]string, 0, n)
	for i := 0; i < len(found) && i < n; i++ {
		names = append(names, found[i].name)
	}
	return names
}
