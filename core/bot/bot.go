// Package bot drives the processing cycle: poll the channels, run every message, grade, flush.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academibot/core"
)

var (
	// errors
	ErrAlreadyReplied = errors.New("message was already replied to")

	// mockable funcs
	nowFunc = time.Now
)

type (
	// Channel is a source of messages that can be replied to.
	Channel interface {
		Name() string
		Setup(ctx context.Context) error
		// Poll returns the messages that arrived since the previous call.
		Poll(ctx context.Context) ([]*Message, error)
		// Flush is called once per cycle after every reply was issued.
		Flush(ctx context.Context) error
	}

	Processor interface {
		Process(ctx context.Context, sender, body string, now time.Time) (reply string, ok bool)
	}

	TokenCleaner interface {
		CleanTokens(ctx context.Context, now time.Time) (int64, error)
	}

	Maintainer interface {
		Run(ctx context.Context, now time.Time) (int, error)
	}
)

// ReplyFunc delivers a reply through the channel a message came from.
type ReplyFunc func(ctx context.Context, msg *Message, body string) error

type Message struct {
	ID        string
	Sender    string
	Subject   string
	Body      string
	MessageID string   // channel-level id of the message, eg. a Message-ID header
	Refs      []string // earlier ids of the conversation

	mu      sync.Mutex
	replied bool
	reply   ReplyFunc
}

func NewMessage(id, sender, subject, body string, reply ReplyFunc) *Message {
	return &Message{ID: id, Sender: sender, Subject: subject, Body: body, reply: reply}
}

// Reply sends body at most once.
func (m *Message) Reply(ctx context.Context, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replied {
		return ErrAlreadyReplied
	}
	m.replied = true
	if m.reply == nil {
		return nil
	}
	return m.reply(ctx, m, body)
}

func (m *Message) Replied() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replied
}

type Config struct {
	Channels    []Channel
	Processor   Processor
	Tokens      TokenCleaner
	Maintenance Maintainer
	Logger      core.Logger
	Interval    time.Duration
}

type Runner struct {
	conf Config
}

func NewRunner(conf Config) *Runner {
	if conf.Interval <= 0 {
		conf.Interval = time.Minute
	}
	return &Runner{conf: conf}
}

type CycleStats struct {
	Messages      int
	Replies       int
	Failures      int
	Graded        int
	TokensCleaned int64
}

func (s CycleStats) String() string {
	return fmt.Sprintf("%d messages, %d replies, %d failures, %d graded, %d tokens cleaned",
		s.Messages, s.Replies, s.Failures, s.Graded, s.TokensCleaned)
}

func (r *Runner) Setup(ctx context.Context) error {
	for _, ch := range r.conf.Channels {
		if err := ch.Setup(ctx); err != nil {
			return errors.Wrapf(err, "setting up channel %s", ch.Name())
		}
	}
	return nil
}

// Cycle runs one pass. The current time is read once, so every message and the grading
// pass of a cycle see the same instant.
// A failing channel or message does not stop the others; the returned error is the first
// failure that compromises the whole cycle.
func (r *Runner) Cycle(ctx context.Context) (CycleStats, error) {
	var (
		now = nowFunc().UTC()
		st  CycleStats
		err error
	)
	if r.conf.Tokens != nil {
		if st.TokensCleaned, err = r.conf.Tokens.CleanTokens(ctx, now); err != nil {
			return st, errors.Wrap(err, "cleaning expired tokens")
		}
	}

	for _, ch := range r.conf.Channels {
		msgs, perr := ch.Poll(ctx)
		if perr != nil {
			r.conf.Logger.Error(fmt.Sprintf("polling channel %s: %+v", ch.Name(), perr))
			continue
		}
		for _, msg := range msgs {
			st.Messages++
			switch replied, merr := r.handle(ctx, msg, now); {
			case merr != nil:
				st.Failures++
				r.conf.Logger.Error(fmt.Sprintf("message %s from %s on %s: %+v", msg.ID, msg.Sender, ch.Name(), merr))
			case replied:
				st.Replies++
			}
		}
	}

	if r.conf.Maintenance != nil {
		if st.Graded, err = r.conf.Maintenance.Run(ctx, now); err != nil {
			err = errors.Wrap(err, "grading")
		}
	}

	for _, ch := range r.conf.Channels {
		if ferr := ch.Flush(ctx); ferr != nil {
			r.conf.Logger.Error(fmt.Sprintf("flushing channel %s: %+v", ch.Name(), ferr))
		}
	}
	return st, err
}

func (r *Runner) handle(ctx context.Context, msg *Message, now time.Time) (replied bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("panic: %v", rec)
		}
	}()
	reply, ok := r.conf.Processor.Process(ctx, msg.Sender, msg.Body, now)
	if !ok {
		return false, nil
	}
	if err = msg.Reply(ctx, reply); err != nil {
		return false, errors.Wrap(err, "replying")
	}
	return true, nil
}

// Run sets up the channels and runs a cycle every interval until ctx is done.
// A failed cycle is logged and retried on the next tick, unless it is a shutdown error.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Setup(ctx); err != nil {
		return err
	}
	logger := r.conf.Logger
	logger.Info(fmt.Sprintf("running a cycle every %s on %d channel(s)", r.conf.Interval, len(r.conf.Channels)))

	ticker := time.NewTicker(r.conf.Interval)
	defer ticker.Stop()
	for {
		st, err := r.Cycle(ctx)
		switch {
		case core.IsShutdown(err):
			return err
		case err != nil:
			logger.Error(fmt.Sprintf("cycle failed (%s): %+v", st, err))
		case st.Messages > 0 || st.Graded > 0:
			logger.Info("cycle: " + st.String())
		}

		select {
		case <-ctx.Done():
			logger.Info("stopping")
			return nil
		case <-ticker.C:
		}
	}
}
