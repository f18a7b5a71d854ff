package assignment

import "time"

// State is the timeline state of an assignment at a given instant.
type State string

const (
	StateUnpublished State = "unpublished"
	StateOpen        State = "open"
	StatePastDue     State = "past-due"
	StateClosed      State = "closed"
)

// State derives the timeline state from `now`; nothing about it is stored.
func (d Definition) State(now time.Time) State {
	switch {
	case !now.After(d.PublishAt):
		return StateUnpublished
	case !now.After(d.LateAfter):
		return StateOpen
	case !now.After(d.RejectAfter):
		return StatePastDue
	default:
		return StateClosed
	}
}

type Timing int

const (
	OnTime Timing = iota
	Late
	Rejected
)

func (t Timing) String() string {
	switch t {
	case OnTime:
		return "on-time"
	case Late:
		return "late"
	default:
		return "rejected"
	}
}

// TimingOf classifies a submission timestamp against the deadlines.
func (d Definition) TimingOf(ts time.Time) Timing {
	switch {
	case !ts.After(d.LateAfter):
		return OnTime
	case !ts.After(d.RejectAfter):
		return Late
	default:
		return Rejected
	}
}

// Gradeable reports whether the grade of `sub` can be finalized at `now`.
// On-time work waits for late-after and late work for reject-after, unless an immediate-grade flag is set.
// Rejected work is always gradeable.
func (d Definition) Gradeable(sub Submission, now time.Time) bool {
	switch d.TimingOf(sub.Timestamp) {
	case OnTime:
		return !now.Before(d.LateAfter) || d.HasFlag(FlagGradeImmediately)
	case Late:
		return !now.Before(d.RejectAfter) || d.HasFlag(FlagGradeImmediately) || d.HasFlag(FlagGradeLateImmediately)
	default:
		return true
	}
}
