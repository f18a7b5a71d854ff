package assignment

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/format"
)

var (
	// errors
	ErrNotFound           = errors.New("assignment not found")
	ErrAssignmentExists   = errors.New("an assignment with this name already exists in the course")
	ErrSubmissionNotFound = errors.New("submission not found")
)

type (
	// SubmissionFilter matches on the non-zero fields.
	SubmissionFilter struct {
		AssignmentID int64
		Address      string
	}

	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, id int64) (Assignment, error)
		GetAssignmentByName(ctx context.Context, courseID int64, name string) (Assignment, error)
		// QueryAssignments lists the assignments of a course by publish time.
		QueryAssignments(ctx context.Context, courseID int64) ([]Assignment, error)

		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		// QuerySubmissions lists submissions by timestamp.
		QuerySubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error)
		QueryUngradedSubmissions(ctx context.Context) ([]Submission, error)
		// SetGradeIfNull records grade and feedback only if the submission has no grade yet,
		// as a single atomic step. It reports whether the grade was recorded.
		SetGradeIfNull(ctx context.Context, id int64, grade float64, feedback string) (bool, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates a definition and stores it in the course.
// Deadline ordering is not checked.
func (svc *Service) Create(ctx context.Context, courseID int64, content format.Map) (Assignment, error) {
	def, err := Decode(content)
	if err != nil {
		return Assignment{}, err
	}
	a, err := svc.repo.CreateAssignment(ctx, Assignment{CourseID: courseID, Definition: def, Content: content})
	if err != nil {
		if errors.Cause(err) == ErrAssignmentExists {
			return Assignment{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return Assignment{}, err
	}
	return a, nil
}

// Get finds an assignment of the course by id or by name.
func (svc *Service) Get(ctx context.Context, courseID int64, ref string) (Assignment, error) {
	var (
		a   Assignment
		err error
	)
	if id, perr := strconv.ParseInt(ref, 10, 64); perr == nil {
		if a, err = svc.repo.GetAssignment(ctx, id); err == nil && a.CourseID != courseID {
			err = ErrNotFound
		}
	} else {
		a, err = svc.repo.GetAssignmentByName(ctx, courseID, ref)
	}
	switch errors.Cause(err) {
	case nil:
		return a, nil
	case ErrNotFound:
		return Assignment{}, core.NewNotFoundError("assignment", ref)
	default:
		return Assignment{}, err
	}
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Assignment, error) {
	return svc.repo.GetAssignment(ctx, id)
}

func (svc *Service) List(ctx context.Context, courseID int64) ([]Assignment, error) {
	return svc.repo.QueryAssignments(ctx, courseID)
}

// Submit validates and stores a submission. Nothing is stored when validation fails.
func (svc *Service) Submit(ctx context.Context, a Assignment, address string, content format.Map, now time.Time) (Submission, error) {
	if a.State(now) == StateUnpublished {
		return Submission{}, core.Validationf("assignment '%s' is not published yet; it opens after %s", a.Name, format.FormatTime(a.PublishAt))
	}
	if err := CheckSubmission(a.Definition, content); err != nil {
		return Submission{}, err
	}
	return svc.repo.CreateSubmission(ctx, Submission{
		Address:      core.CleanString(address, true /* lower */),
		AssignmentID: a.ID,
		Timestamp:    now.UTC(),
		Content:      content,
	})
}

func (svc *Service) Submissions(ctx context.Context, assignmentID int64, address string) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, SubmissionFilter{AssignmentID: assignmentID, Address: core.CleanString(address, true /* lower */)})
}

func (svc *Service) AllSubmissions(ctx context.Context, assignmentID int64) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, SubmissionFilter{AssignmentID: assignmentID})
}

func (svc *Service) Ungraded(ctx context.Context) ([]Submission, error) {
	return svc.repo.QueryUngradedSubmissions(ctx)
}

func (svc *Service) SetGradeIfNull(ctx context.Context, id int64, grade float64, feedback string) (bool, error) {
	return svc.repo.SetGradeIfNull(ctx, id, grade, feedback)
}
