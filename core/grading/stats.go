package grading

import (
	"sort"

	"github.com/trezcool/academibot/core/assignment"
)

type (
	StudentResult struct {
		Address string
		Reps    Representatives
		Result  Result
	}

	// Stats aggregates one assignment over the students of a course.
	Stats struct {
		Students   int
		Submitters int

		OnTimeOnly int
		LateOnly   int
		Both       int // revised after late-after
		Missing    int

		Mean             float64
		Median           float64
		SubmittersMean   float64
		SubmittersMedian float64

		Results []StudentResult
	}
)

// CourseStats scores every student in `students` plus anyone else who submitted.
// Students without representatives count as zero in the overall mean and median.
func (g Grader) CourseStats(def assignment.Definition, students []string, subs []assignment.Submission) Stats {
	byUser := make(map[string][]assignment.Submission, len(students))
	for _, s := range subs {
		byUser[s.Address] = append(byUser[s.Address], s)
	}

	seen := make(map[string]bool, len(students))
	addresses := make([]string, 0, len(students)+len(byUser))
	for _, addr := range students {
		if !seen[addr] {
			seen[addr] = true
			addresses = append(addresses, addr)
		}
	}
	for addr := range byUser {
		if !seen[addr] {
			seen[addr] = true
			addresses = append(addresses, addr)
		}
	}
	sort.Strings(addresses)

	var (
		st        = Stats{Students: len(addresses), Results: make([]StudentResult, 0, len(addresses))}
		all       = make([]float64, 0, len(addresses))
		submitted = make([]float64, 0, len(addresses))
	)
	for _, addr := range addresses {
		reps := SelectRepresentatives(def, byUser[addr])
		res := g.GradeRepresentatives(def, reps)
		st.Results = append(st.Results, StudentResult{Address: addr, Reps: reps, Result: res})

		switch {
		case reps.OnTime != nil && reps.Late != nil:
			st.Both++
		case reps.OnTime != nil:
			st.OnTimeOnly++
		case reps.Late != nil:
			st.LateOnly++
		default:
			st.Missing++
		}

		all = append(all, res.Score)
		if !reps.Empty() {
			submitted = append(submitted, res.Score)
		}
	}
	st.Submitters = len(submitted)
	st.Mean, st.Median = mean(all), median(all)
	st.SubmittersMean, st.SubmittersMedian = mean(submitted), median(submitted)
	return st
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
