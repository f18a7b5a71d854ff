package grading

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/assignment"
	"github.com/trezcool/academibot/core/format"
)

// Notifier is told about every grade the maintenance pass records.
type Notifier interface {
	Graded(ctx context.Context, a assignment.Assignment, sub assignment.Submission, res Result)
}

// Maintainer finalizes the grades of submissions once they become gradeable.
type Maintainer struct {
	assignments *assignment.Service
	grader      Grader
	logger      core.Logger
	notifiers   []Notifier
}

func NewMaintainer(assignments *assignment.Service, grader Grader, logger core.Logger, notifiers ...Notifier) *Maintainer {
	return &Maintainer{assignments: assignments, grader: grader, logger: logger, notifiers: notifiers}
}

// Run grades every ungraded submission that is gradeable at `now` and returns how many grades were recorded.
// Grades already set are left alone.
func (m *Maintainer) Run(ctx context.Context, now time.Time) (int, error) {
	subs, err := m.assignments.Ungraded(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "querying ungraded submissions")
	}

	cache := make(map[int64]assignment.Assignment)
	var graded int
	for _, sub := range subs {
		a, ok := cache[sub.AssignmentID]
		if !ok {
			if a, err = m.assignments.GetByID(ctx, sub.AssignmentID); err != nil {
				if errors.Cause(err) == assignment.ErrNotFound {
					m.logger.Warn(fmt.Sprintf("submission #%d belongs to unknown assignment #%d", sub.ID, sub.AssignmentID))
					continue
				}
				return graded, errors.Wrapf(err, "getting assignment #%d", sub.AssignmentID)
			}
			cache[sub.AssignmentID] = a
		}
		if !a.Gradeable(sub, now) {
			continue
		}

		res := m.grader.Grade(a.Definition, sub)
		set, err := m.assignments.SetGradeIfNull(ctx, sub.ID, res.Score, res.Feedback())
		if err != nil {
			return graded, errors.Wrapf(err, "grading submission #%d", sub.ID)
		}
		if !set {
			continue
		}
		graded++
		sub.Feedback = res.Feedback()
		sub.Grade.SetValid(res.Score)
		for _, n := range m.notifiers {
			n.Graded(ctx, a, sub, res)
		}
	}
	return graded, nil
}

// MailNotifier mails finalized grades to students whose address is an email address.
type MailNotifier struct {
	mailSvc core.EmailService
	appName string
}

func NewMailNotifier(mailSvc core.EmailService, appName string) *MailNotifier {
	return &MailNotifier{mailSvc: mailSvc, appName: appName}
}

func (n *MailNotifier) Graded(_ context.Context, a assignment.Assignment, sub assignment.Submission, res Result) {
	to, err := mail.ParseAddress(sub.Address)
	if err != nil {
		return
	}
	n.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{*to},
		Subject: fmt.Sprintf("%s: graded submission for %s", n.appName, a.Name),
		BodyStr: fmt.Sprintf(
			"Your submission for assignment '%s' from %s was graded.\n\nScore: %s\n\n%s\n",
			a.Name, format.FormatTime(sub.Timestamp), res, res.Feedback(),
		),
	})
}
