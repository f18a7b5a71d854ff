package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academibot/core/assignment"
)

type assignmentRepository struct {
	db *assignmentTable
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db.assignment}
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, orig := range repo.db.table {
		if orig.CourseID == a.CourseID && orig.Name == a.Name {
			return assignment.Assignment{}, assignment.ErrAssignmentExists
		}
	}
	repo.db.pkCount++
	a.ID = repo.db.pkCount
	repo.db.table[a.ID] = &a
	return a, nil
}

func (repo *assignmentRepository) GetAssignment(_ context.Context, id int64) (assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.table[id]; ok {
		return *a, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) GetAssignmentByName(_ context.Context, courseID int64, name string) (assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, a := range repo.db.table {
		if a.CourseID == courseID && a.Name == name {
			return *a, nil
		}
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) QueryAssignments(_ context.Context, courseID int64) ([]assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	out := make([]assignment.Assignment, 0)
	for _, a := range repo.db.table {
		if a.CourseID == courseID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PublishAt.Equal(out[j].PublishAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].PublishAt.Before(out[j].PublishAt)
	})
	return out, nil
}

func (repo *assignmentRepository) CreateSubmission(_ context.Context, s assignment.Submission) (assignment.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.subPKCount++
	s.ID = repo.db.subPKCount
	repo.db.subs[s.ID] = &s
	return s, nil
}

func sortSubmissions(subs []assignment.Submission) {
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Timestamp.Equal(subs[j].Timestamp) {
			return subs[i].ID < subs[j].ID
		}
		return subs[i].Timestamp.Before(subs[j].Timestamp)
	})
}

func (repo *assignmentRepository) QuerySubmissions(_ context.Context, filter assignment.SubmissionFilter) ([]assignment.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	out := make([]assignment.Submission, 0)
	for _, s := range repo.db.subs {
		if filter.AssignmentID != 0 && s.AssignmentID != filter.AssignmentID {
			continue
		}
		if filter.Address != "" && s.Address != filter.Address {
			continue
		}
		out = append(out, *s)
	}
	sortSubmissions(out)
	return out, nil
}

func (repo *assignmentRepository) QueryUngradedSubmissions(_ context.Context) ([]assignment.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	out := make([]assignment.Submission, 0)
	for _, s := range repo.db.subs {
		if !s.Graded() {
			out = append(out, *s)
		}
	}
	sortSubmissions(out)
	return out, nil
}

func (repo *assignmentRepository) SetGradeIfNull(_ context.Context, id int64, grade float64, feedback string) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s, ok := repo.db.subs[id]
	if !ok {
		return false, assignment.ErrSubmissionNotFound
	}
	if s.Graded() {
		return false, nil
	}
	s.Grade.SetValid(grade)
	s.Feedback = feedback
	return true, nil
}
