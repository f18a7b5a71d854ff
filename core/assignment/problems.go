package assignment

import (
	"fmt"
	"sort"
	"sync"
)

// ProblemType checks and grades one kind of problem.
type ProblemType interface {
	Name() string
	// Check validates a problem of this type inside an assignment definition.
	Check(p Problem) error
	// CheckAnswer validates a submitted answer without grading it.
	CheckAnswer(p Problem, answer string) error
	Correct(p Problem, answer string) bool
}

var (
	problemTypesMu sync.RWMutex
	problemTypes   = map[string]ProblemType{}
)

func init() {
	RegisterProblemType(MultipleChoice{})
}

// RegisterProblemType makes a problem type usable in definitions. It panics on duplicate names.
func RegisterProblemType(pt ProblemType) {
	problemTypesMu.Lock()
	defer problemTypesMu.Unlock()
	if _, dup := problemTypes[pt.Name()]; dup {
		panic("assignment: RegisterProblemType called twice for " + pt.Name())
	}
	problemTypes[pt.Name()] = pt
}

func LookupProblemType(name string) (ProblemType, bool) {
	problemTypesMu.RLock()
	defer problemTypesMu.RUnlock()
	pt, ok := problemTypes[name]
	return pt, ok
}

func ProblemTypeNames() []string {
	problemTypesMu.RLock()
	defer problemTypesMu.RUnlock()
	names := make([]string, 0, len(problemTypes))
	for name := range problemTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MultipleChoice problems are answered with one of their answer keys.
type MultipleChoice struct{}

func (MultipleChoice) Name() string { return "multiple-choice" }

func (MultipleChoice) Check(p Problem) error {
	if !p.HasAnswer(p.Solution) {
		return fmt.Errorf("solution '%s' doesn't match any of the answer keys", p.Solution)
	}
	return nil
}

func (MultipleChoice) CheckAnswer(p Problem, answer string) error {
	if !p.HasAnswer(answer) {
		return fmt.Errorf("problem '%s' has no answer '%s'", p.Name, answer)
	}
	return nil
}

func (MultipleChoice) Correct(p Problem, answer string) bool {
	return answer == p.Solution
}
