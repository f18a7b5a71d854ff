package assignment

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academibot/core/format"
)

// Assignment flags
const (
	FlagGradeImmediately     = "grade-immediately"
	FlagGradeLateImmediately = "grade-late-immediately"
)

type (
	Problem struct {
		Name     string     `map:"name" validate:"required,tagpart"`
		Type     string     `map:"type" validate:"required"`
		Prompt   string     `map:"prompt" validate:"required,notblank"`
		Answers  format.Map `map:"answers" validate:"required,min=1"`
		Solution string     `map:"solution" validate:"required"`
		Flags    []string   `map:"flags"`
	}

	// Definition is the decoded form of an assignment `map{`.
	Definition struct {
		Name        string    `map:"name" validate:"required,tagpart"`
		Type        string    `map:"type" validate:"required,notblank"`
		Value       float64   `map:"value" validate:"gte=0"`
		PublishAt   time.Time `map:"publish" validate:"required"`
		DueAt       time.Time `map:"due" validate:"required"`
		LateAfter   time.Time `map:"late-after" validate:"required"`
		RejectAfter time.Time `map:"reject-after" validate:"required"`
		Problems    []Problem `map:"problems" validate:"required,min=1,dive"`
		Flags       []string  `map:"flags"`
	}

	Assignment struct {
		ID       int64
		CourseID int64
		Definition
		Content format.Map // the definition as it was sent
	}

	Submission struct {
		ID           int64
		Address      string
		AssignmentID int64
		Timestamp    time.Time // UTC
		Content      format.Map
		Feedback     string
		Grade        null.Float64 // finalized once valid
	}
)

func (p Problem) HasAnswer(key string) bool {
	return p.Answers.Has(key)
}

func (d Definition) HasFlag(flag string) bool {
	for _, f := range d.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

func (d Definition) Problem(name string) (Problem, bool) {
	for _, p := range d.Problems {
		if p.Name == name {
			return p, true
		}
	}
	return Problem{}, false
}

func (s Submission) Graded() bool {
	return s.Grade.Valid
}

// Answer returns the answer key given for a problem.
func (s Submission) Answer(problem string) (string, bool) {
	v, ok := s.Content.Get(problem)
	if !ok {
		return "", false
	}
	return format.String(v)
}
