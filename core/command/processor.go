package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/format"
)

const rule = "---"

type Config struct {
	AppName string
	Sigil   string
	Parser  format.Parser
	Printer format.Printer
}

// Processor runs the commands of one message at a time.
type Processor struct {
	svc    Services
	conf   Config
	logger core.Logger
}

func NewProcessor(svc Services, conf Config, logger core.Logger) *Processor {
	if conf.Sigil == "" {
		conf.Sigil = ":"
	}
	return &Processor{svc: svc, conf: conf, logger: logger}
}

type response struct {
	header string
	body   string
}

// Process runs every command of body on behalf of sender and returns the reply.
// ok is false when no reply must be sent: no command was recognized, the body did not parse,
// or the sender is blocking and did not unblock.
// Unexpected failures and panics abort the remaining commands and produce an apology instead.
func (p *Processor) Process(ctx context.Context, sender, body string, now time.Time) (reply string, ok bool) {
	sender = core.CleanString(sender, true /* lower */)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(fmt.Sprintf("panic while processing message from %s: %v", sender, r))
			reply, ok = p.apology(), true
		}
	}()

	blocking, err := p.svc.Users.IsBlocking(ctx, sender)
	if err != nil {
		p.logger.Error(fmt.Sprintf("could not check blocking status of %s: %+v", sender, err))
		return "", false
	}

	invs, err := Extract(format.Tokenize(body), p.conf.Sigil, p.conf.Parser)
	if err != nil {
		// an unreadable message runs nothing
		p.logger.Debug(fmt.Sprintf("dropping unparseable message from %s: %v", sender, err))
		return "", false
	}
	if blocking {
		invs = unblockOnly(invs)
	}
	if len(invs) == 0 {
		return "", false
	}

	env := &Env{
		Services: p.svc,
		Sender:   sender,
		Now:      now,
		Auth:     NewAuthContext(),
		Sigil:    p.conf.Sigil,
		AppName:  p.conf.AppName,
		Printer:  p.conf.Printer,
	}
	responses := make([]response, len(invs))
	for _, inv := range Schedule(invs) {
		out, err := p.run(ctx, env, inv)
		if err != nil {
			p.logger.Error(fmt.Sprintf("command %s from %s failed: %+v", inv.Command.Name, sender, err))
			return p.apology(), true
		}
		responses[inv.Pos] = response{header: p.header(inv), body: out}
	}
	return p.banner(responses...), true
}

// run executes one invocation. User errors become the reply; the returned error is unexpected.
func (p *Processor) run(ctx context.Context, env *Env, inv Invocation) (string, error) {
	cmd := inv.Command
	if len(inv.Args) < cmd.MinArgs {
		err := core.Validationf("%s needs at least %d argument(s): %s", env.cmd(cmd.Name), cmd.MinArgs, cmd.ArgDesc)
		return core.UserMessage(err) + "\nSee " + env.cmd("help", cmd.Name), nil
	}
	out, err := cmd.Run(ctx, env, inv.Args)
	if err != nil {
		if core.IsUserError(err) {
			return strings.TrimRight(core.UserMessage(err), "\n"), nil
		}
		return "", errors.Wrap(err, cmd.Name)
	}
	return out, nil
}

func (p *Processor) header(inv Invocation) string {
	parts := []string{p.conf.Sigil + inv.Command.Name}
	for i, arg := range inv.Args {
		if inv.Command.Masked && i > 0 {
			parts = append(parts, "********")
			continue
		}
		parts = append(parts, format.Compact(arg))
	}
	return strings.Join(parts, " ")
}

func (p *Processor) banner(responses ...response) string {
	b := new(strings.Builder)
	b.WriteString(p.conf.AppName + " reply.\n")
	for _, r := range responses {
		_, _ = fmt.Fprintf(b, "%s\nResponse for %s\n\n%s\n", rule, r.header, strings.TrimRight(r.body, "\n"))
	}
	return b.String()
}

func (p *Processor) apology() string {
	return fmt.Sprintf(`%s reply.
%s
Sorry, something went wrong while processing your message. The problem has been
logged. Commands that ran before the failure may have taken effect; please check
with %s before sending the message again.
`, p.conf.AppName, rule, p.conf.Sigil+"status")
}

func unblockOnly(invs []Invocation) []Invocation {
	var kept []Invocation
	for _, inv := range invs {
		if inv.Command.Name == "unblock" {
			inv.Pos = len(kept)
			kept = append(kept, inv)
		}
	}
	return kept
}
