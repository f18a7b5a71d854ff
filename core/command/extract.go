package command

import (
	"sort"

	"github.com/trezcool/academibot/core/format"
)

// Invocation is one command found in a message with its parsed arguments.
type Invocation struct {
	Command *Command
	Args    []format.Value
	Pos     int // order of appearance in the message
}

// Extract splits tokens into invocations. A token names a command only when it is outside of any block;
// every following token up to the next command is parsed as its arguments.
// Tokens before the first command are ignored. A parse error in any span rejects the whole message.
func Extract(tokens []string, sigil string, parser format.Parser) ([]Invocation, error) {
	var (
		invs   []Invocation
		cur    *Invocation
		span   []string
		depth  int
		inText bool
	)
	flush := func() error {
		if cur == nil {
			return nil
		}
		args, err := parser.Parse(span)
		if err != nil {
			return err
		}
		cur.Args = args
		invs = append(invs, *cur)
		return nil
	}

	for _, tok := range tokens {
		switch {
		case inText:
			if tok == "}" {
				inText = false
				depth--
			}
		case depth == 0:
			if cmd, ok := lookupToken(tok, sigil); ok {
				if err := flush(); err != nil {
					return nil, err
				}
				cur = &Invocation{Command: cmd, Pos: len(invs)}
				span = nil
				continue
			}
			fallthrough
		default:
			if f, ok := format.Opener(tok); ok {
				depth++
				inText = f == format.FormatText
			} else if tok == "}" && depth > 0 {
				depth--
			}
		}
		if cur != nil {
			span = append(span, tok)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return invs, nil
}

// Schedule orders invocations by priority, keeping the message order among equal priorities.
func Schedule(invs []Invocation) []Invocation {
	sorted := make([]Invocation, len(invs))
	copy(sorted, invs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Command.Priority < sorted[j].Command.Priority
	})
	return sorted
}
