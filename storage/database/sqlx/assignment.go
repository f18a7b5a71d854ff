package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/assignment"
	"github.com/trezcool/academibot/core/format"
)

const (
	assignmentColumns = "id, course_id, name, publish_at, content"
	submissionColumns = "id, assignment_id, address, timestamp, content, feedback, grade"
)

type (
	assignmentRow struct {
		ID        int64     `db:"id"`
		CourseID  int64     `db:"course_id"`
		Name      string    `db:"name"`
		PublishAt time.Time `db:"publish_at"`
		Content   string    `db:"content"`
	}

	submissionRow struct {
		ID           int64        `db:"id"`
		AssignmentID int64        `db:"assignment_id"`
		Address      string       `db:"address"`
		Timestamp    time.Time    `db:"timestamp"`
		Content      string       `db:"content"`
		Feedback     string       `db:"feedback"`
		Grade        null.Float64 `db:"grade"`
	}
)

// decodeMap reads back a map{ stored with format.Compact.
func decodeMap(content string) (format.Map, error) {
	values, err := format.ParseString(content)
	if err != nil {
		return nil, errors.Wrap(err, "parsing stored content")
	}
	if len(values) != 1 {
		return nil, errors.Errorf("stored content holds %d values", len(values))
	}
	m, ok := values[0].(format.Map)
	if !ok {
		return nil, errors.Errorf("stored content is not a map{")
	}
	return m, nil
}

func (row assignmentRow) assignment() (assignment.Assignment, error) {
	content, err := decodeMap(row.Content)
	if err != nil {
		return assignment.Assignment{}, errors.Wrapf(err, "assignment #%d", row.ID)
	}
	def, err := assignment.Decode(content)
	if err != nil {
		return assignment.Assignment{}, errors.Wrapf(err, "decoding assignment #%d", row.ID)
	}
	return assignment.Assignment{ID: row.ID, CourseID: row.CourseID, Definition: def, Content: content}, nil
}

func (row submissionRow) submission() (assignment.Submission, error) {
	content, err := decodeMap(row.Content)
	if err != nil {
		return assignment.Submission{}, errors.Wrapf(err, "submission #%d", row.ID)
	}
	return assignment.Submission{
		ID:           row.ID,
		Address:      row.Address,
		AssignmentID: row.AssignmentID,
		Timestamp:    row.Timestamp.UTC(),
		Content:      content,
		Feedback:     row.Feedback,
		Grade:        row.Grade,
	}, nil
}

type assignmentRepository struct {
	base
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(exec core.DBExecutor) assignment.Repository {
	return &assignmentRepository{base{exec: exec}}
}

func (repo assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	id, err := repo.insert(ctx,
		"INSERT INTO assignments (course_id, name, publish_at, content) VALUES (?, ?, ?, ?)",
		a.CourseID, a.Name, a.PublishAt.UTC(), format.Compact(a.Content))
	if err != nil {
		if isUniqueViolation(err) {
			return assignment.Assignment{}, assignment.ErrAssignmentExists
		}
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	a.ID = id
	return a, nil
}

func (repo assignmentRepository) getAssignment(ctx context.Context, msg, query string, args ...interface{}) (assignment.Assignment, error) {
	var row assignmentRow
	if err := repo.get(ctx, &row, query, args...); err != nil {
		return assignment.Assignment{}, trapNoRowsErr(err, assignment.ErrNotFound, msg)
	}
	return row.assignment()
}

func (repo assignmentRepository) GetAssignment(ctx context.Context, id int64) (assignment.Assignment, error) {
	return repo.getAssignment(ctx, "getting assignment",
		"SELECT "+assignmentColumns+" FROM assignments WHERE id = ?", id)
}

func (repo assignmentRepository) GetAssignmentByName(ctx context.Context, courseID int64, name string) (assignment.Assignment, error) {
	return repo.getAssignment(ctx, "getting assignment by name",
		"SELECT "+assignmentColumns+" FROM assignments WHERE course_id = ? AND name = ?", courseID, name)
}

func (repo assignmentRepository) QueryAssignments(ctx context.Context, courseID int64) ([]assignment.Assignment, error) {
	var rows []assignmentRow
	err := repo.selectAll(ctx, &rows,
		"SELECT "+assignmentColumns+" FROM assignments WHERE course_id = ? ORDER BY publish_at, id", courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}

	out := make([]assignment.Assignment, 0, len(rows))
	for _, row := range rows {
		a, err := row.assignment()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (repo assignmentRepository) CreateSubmission(ctx context.Context, s assignment.Submission) (assignment.Submission, error) {
	s.Timestamp = s.Timestamp.UTC()
	id, err := repo.insert(ctx,
		"INSERT INTO submissions (assignment_id, address, timestamp, content, feedback, grade) VALUES (?, ?, ?, ?, ?, ?)",
		s.AssignmentID, s.Address, s.Timestamp, format.Compact(s.Content), s.Feedback, s.Grade)
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "inserting submission")
	}
	s.ID = id
	return s, nil
}

func (repo assignmentRepository) querySubmissions(ctx context.Context, query string, args ...interface{}) ([]assignment.Submission, error) {
	var rows []submissionRow
	if err := repo.selectAll(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}

	out := make([]assignment.Submission, 0, len(rows))
	for _, row := range rows {
		s, err := row.submission()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (repo assignmentRepository) QuerySubmissions(ctx context.Context, filter assignment.SubmissionFilter) ([]assignment.Submission, error) {
	// zero values match everything
	return repo.querySubmissions(ctx, `
		SELECT `+submissionColumns+` FROM submissions
		WHERE (? = 0 OR assignment_id = ?) AND (? = '' OR address = ?)
		ORDER BY timestamp, id`,
		filter.AssignmentID, filter.AssignmentID, filter.Address, filter.Address)
}

func (repo assignmentRepository) QueryUngradedSubmissions(ctx context.Context) ([]assignment.Submission, error) {
	return repo.querySubmissions(ctx,
		"SELECT "+submissionColumns+" FROM submissions WHERE grade IS NULL ORDER BY timestamp, id")
}

func (repo assignmentRepository) SetGradeIfNull(ctx context.Context, id int64, grade float64, feedback string) (bool, error) {
	res, err := repo.execute(ctx,
		"UPDATE submissions SET grade = ?, feedback = ? WHERE id = ? AND grade IS NULL", grade, feedback, id)
	if err != nil {
		return false, errors.Wrap(err, "setting grade")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "setting grade")
	}
	if n > 0 {
		return true, nil
	}

	var exists int
	if err = repo.get(ctx, &exists, "SELECT COUNT(*) FROM submissions WHERE id = ?", id); err != nil {
		return false, errors.Wrap(err, "checking submission")
	}
	if exists == 0 {
		return false, assignment.ErrSubmissionNotFound
	}
	return false, nil
}
