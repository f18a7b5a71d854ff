// Package inbox is the channel fed by the HTTP server: messages wait in a queue until the next cycle polls them.
package inbox

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/bot"
	"github.com/trezcool/academibot/storage/replies"
)

// Origins
const (
	OriginHTTP = "http"
	OriginMail = "mail"
)

const defaultMaxQueue = 1000

var (
	// errors
	ErrQueueFull = errors.New("inbox is full, try again later")
	ErrPending   = errors.New("message was not processed yet")

	// mockable funcs
	nowFunc = time.Now
	newID   = func() string { return uuid.New().String() }
)

type (
	Archive interface {
		Put(r replies.Reply) error
		Get(messageID string) (replies.Reply, error)
	}

	Incoming struct {
		Origin     string
		Sender     string
		Subject    string
		Body       string
		MessageID  string   // Message-ID header of a mail
		References []string // References header of a mail
	}

	Config struct {
		AppName  string
		Sigil    string
		MaxQueue int
		Archive  Archive
		Mail     core.EmailService
		Logger   core.Logger
	}

	Inbox struct {
		conf Config

		mu      sync.Mutex
		queue   []*bot.Message
		pending map[string]bool
		outbox  []*core.EmailMessage
	}
)

var _ bot.Channel = (*Inbox)(nil) // interface compliance check

func New(conf Config) *Inbox {
	if conf.MaxQueue <= 0 {
		conf.MaxQueue = defaultMaxQueue
	}
	return &Inbox{conf: conf, pending: make(map[string]bool)}
}

func (in *Inbox) Name() string { return "inbox" }

func (in *Inbox) Setup(context.Context) error {
	if in.conf.Archive == nil {
		return errors.New("inbox has no reply archive")
	}
	return nil
}

// Enqueue queues a message for the next cycle and returns its id.
func (in *Inbox) Enqueue(inc Incoming) (string, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if len(in.queue) >= in.conf.MaxQueue {
		return "", ErrQueueFull
	}
	id := newID()
	msg := bot.NewMessage(id, strings.TrimSpace(inc.Sender), inc.Subject, inc.Body, in.replyFunc(inc.Origin))
	msg.MessageID = inc.MessageID
	msg.Refs = inc.References
	in.queue = append(in.queue, msg)
	in.pending[id] = true
	return id, nil
}

// Poll drains the queue.
func (in *Inbox) Poll(context.Context) ([]*bot.Message, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	msgs := in.queue
	in.queue = nil
	return msgs, nil
}

// Flush sends the mail replies of the cycle and forgets the messages that got no reply.
func (in *Inbox) Flush(context.Context) error {
	in.mu.Lock()
	mails := in.outbox
	in.outbox = nil
	for id := range in.pending {
		if !in.queued(id) {
			delete(in.pending, id)
		}
	}
	in.mu.Unlock()

	if len(mails) > 0 {
		if in.conf.Mail == nil {
			return errors.Errorf("%d mail replies but no mail service", len(mails))
		}
		in.conf.Mail.SendMessages(mails...)
	}
	return nil
}

func (in *Inbox) queued(id string) bool {
	for _, msg := range in.queue {
		if msg.ID == id {
			return true
		}
	}
	return false
}

// Reply returns the archived reply to a message.
func (in *Inbox) Reply(id string) (replies.Reply, error) {
	in.mu.Lock()
	pending := in.pending[id]
	in.mu.Unlock()
	if pending {
		return replies.Reply{}, ErrPending
	}
	return in.conf.Archive.Get(id)
}

func (in *Inbox) replyFunc(origin string) bot.ReplyFunc {
	return func(_ context.Context, msg *bot.Message, body string) error {
		r := replies.Reply{
			MessageID: msg.ID,
			Channel:   origin,
			Recipient: msg.Sender,
			Body:      body,
			SentAt:    nowFunc().UTC(),
		}
		if origin == OriginMail {
			r.Subject = replySubject(msg.Subject)
		}
		if err := in.conf.Archive.Put(r); err != nil {
			return errors.Wrap(err, "archiving reply")
		}

		in.mu.Lock()
		defer in.mu.Unlock()
		delete(in.pending, msg.ID)
		if origin == OriginMail {
			m, err := in.mail(msg, r)
			if err != nil {
				return err
			}
			in.outbox = append(in.outbox, m)
		}
		return nil
	}
}

func (in *Inbox) mail(msg *bot.Message, r replies.Reply) (*core.EmailMessage, error) {
	to, err := mail.ParseAddress(msg.Sender)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing sender %q", msg.Sender)
	}
	m := &core.EmailMessage{
		To:      []mail.Address{*to},
		Subject: r.Subject,
		BodyStr: r.Body,
		Footer: fmt.Sprintf("You received this because you wrote to %s. To stop receiving messages, reply with: %sblock",
			in.conf.AppName, in.conf.Sigil),
	}
	if msg.MessageID != "" {
		m.InReplyTo = msg.MessageID
		m.References = append(append([]string(nil), msg.Refs...), msg.MessageID)
	}
	return m, nil
}

func replySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "Re: your message"
	}
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}
