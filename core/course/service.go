package course

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/academibot/core"
)

var (
	// errors
	ErrNotFound           = errors.New("course not found")
	ErrCourseExists       = errors.New("a course with this tag already exists")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrAliasNotFound      = errors.New("alias not found")
)

type (
	// EnrollmentFilter matches on the non-zero fields.
	EnrollmentFilter struct {
		Address  string
		CourseID int64
		Status   EnrollmentStatus
	}

	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, id int64) (Course, error)
		GetCourseByTag(ctx context.Context, institution, name, term string, year int) (Course, error)
		// UpdateCourse saves the auth secret of an existing course.
		UpdateCourse(ctx context.Context, c Course) (Course, error)

		GetEnrollment(ctx context.Context, address string, courseID int64) (Enrollment, error)
		SaveEnrollment(ctx context.Context, e Enrollment) error
		QueryEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error)

		// SaveAlias replaces any alias with the same address and name.
		SaveAlias(ctx context.Context, a Alias) error
		GetAlias(ctx context.Context, address, alias string) (Alias, error)
		QueryAliases(ctx context.Context, address string, courseID int64) ([]Alias, error)
	}

	Service struct {
		repo    Repository
		checker core.Checker
	}
)

func NewService(repo Repository, checker core.Checker) *Service {
	return &Service{repo: repo, checker: checker}
}

// Create adds a course with `instructor` as its first instructor and returns the course auth secret in clear.
func (svc *Service) Create(ctx context.Context, nc NewCourse, instructor string) (Course, string, error) {
	if err := nc.Validate(); err != nil {
		return Course{}, "", err
	}
	secret := core.NewSecret()
	hashed, err := svc.checker.Hash(secret)
	if err != nil {
		return Course{}, "", err
	}
	c, err := svc.repo.CreateCourse(ctx, Course{
		Institution: nc.Institution,
		Name:        nc.Name,
		Term:        nc.Term,
		Year:        nc.Year,
		Auth:        hashed,
	})
	if err != nil {
		if errors.Cause(err) == ErrCourseExists {
			return Course{}, "", core.Validationf("course %s already exists", nc.Tag())
		}
		return Course{}, "", err
	}
	if err = svc.AddInstructor(ctx, c.ID, instructor); err != nil {
		return Course{}, "", err
	}
	return c, secret, nil
}

func (svc *Service) Get(ctx context.Context, id int64) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

// Resolve finds the course referenced by a numeric id, an `institution/name/term/year` tag or one of the sender's aliases.
func (svc *Service) Resolve(ctx context.Context, address, ref string) (Course, error) {
	var (
		c   Course
		err error
	)
	if id, perr := strconv.ParseInt(ref, 10, 64); perr == nil {
		c, err = svc.repo.GetCourse(ctx, id)
	} else if nc, ok := ParseTag(ref); ok {
		c, err = svc.repo.GetCourseByTag(ctx, nc.Institution, nc.Name, nc.Term, nc.Year)
	} else {
		var a Alias
		if a, err = svc.repo.GetAlias(ctx, core.CleanString(address, true /* lower */), ref); err == nil {
			c, err = svc.repo.GetCourse(ctx, a.CourseID)
		}
	}

	switch errors.Cause(err) {
	case nil:
		return c, nil
	case ErrNotFound, ErrAliasNotFound:
		return Course{}, core.NewNotFoundError("course", ref)
	default:
		return Course{}, err
	}
}

func (svc *Service) Authenticate(ctx context.Context, courseID int64, secret string) (bool, error) {
	c, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return svc.checker.Check(c.Auth, secret), nil
}

// Scramble gives the course a new auth secret and returns it in clear.
func (svc *Service) Scramble(ctx context.Context, courseID int64) (string, error) {
	c, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return "", err
	}
	secret := core.NewSecret()
	if c.Auth, err = svc.checker.Hash(secret); err != nil {
		return "", err
	}
	if _, err = svc.repo.UpdateCourse(ctx, c); err != nil {
		return "", err
	}
	return secret, nil
}

func (svc *Service) EnrollmentStatus(ctx context.Context, address string, courseID int64) (EnrollmentStatus, error) {
	e, err := svc.repo.GetEnrollment(ctx, core.CleanString(address, true /* lower */), courseID)
	if err != nil {
		if errors.Cause(err) == ErrEnrollmentNotFound {
			return StatusNone, nil
		}
		return "", err
	}
	return e.Status, nil
}

func (svc *Service) setStatus(ctx context.Context, address string, courseID int64, status EnrollmentStatus) error {
	return svc.repo.SaveEnrollment(ctx, Enrollment{Address: address, CourseID: courseID, Status: status})
}

func cleanAddress(address string) (string, error) {
	address = core.CleanString(address, true /* lower */)
	return address, core.CheckVar("address", address, "required,address")
}

// Expect puts `address` on the roster of the course, ready to enroll.
func (svc *Service) Expect(ctx context.Context, courseID int64, address string) error {
	address, err := cleanAddress(address)
	if err != nil {
		return err
	}
	status, err := svc.EnrollmentStatus(ctx, address, courseID)
	if err != nil {
		return err
	}
	switch status {
	case StatusExpected:
		return core.Validationf("user '%s' is already expected", address)
	case StatusEnrolled:
		return core.Validationf("user '%s' is already enrolled", address)
	case StatusInstructor:
		return core.Validationf("user '%s' is an instructor", address)
	}
	return svc.setStatus(ctx, address, courseID, StatusExpected)
}

func (svc *Service) AddInstructor(ctx context.Context, courseID int64, address string) error {
	address, err := cleanAddress(address)
	if err != nil {
		return err
	}
	return svc.setStatus(ctx, address, courseID, StatusInstructor)
}

// Enroll moves an expected student to enrolled.
func (svc *Service) Enroll(ctx context.Context, courseID int64, address string) error {
	address = core.CleanString(address, true /* lower */)
	status, err := svc.EnrollmentStatus(ctx, address, courseID)
	if err != nil {
		return err
	}
	switch status {
	case StatusExpected:
		return svc.setStatus(ctx, address, courseID, StatusEnrolled)
	case StatusEnrolled:
		return core.Validationf("user '%s' is already enrolled", address)
	case StatusInstructor:
		return core.Validationf("user '%s' is an instructor", address)
	default:
		return core.Validationf("user '%s' is not expected to enroll; contact your instructor and make sure that you are on the course roster", address)
	}
}

// SetAlias gives the course a personal name for `address`. Aliases cannot look like ids or tags.
func (svc *Service) SetAlias(ctx context.Context, address string, courseID int64, alias string) error {
	alias = core.CleanString(alias)
	if err := core.CheckVar("alias", alias, "required,tagpart"); err != nil {
		return err
	}
	if _, err := strconv.ParseInt(alias, 10, 64); err == nil {
		return core.Validationf("alias '%s' cannot be a number", alias)
	}
	a := Alias{Address: core.CleanString(address, true /* lower */), CourseID: courseID, Alias: alias}
	return svc.repo.SaveAlias(ctx, a)
}

func (svc *Service) Aliases(ctx context.Context, address string, courseID int64) ([]string, error) {
	aliases, err := svc.repo.QueryAliases(ctx, core.CleanString(address, true /* lower */), courseID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(aliases))
	for _, a := range aliases {
		names = append(names, a.Alias)
	}
	return names, nil
}

// Enrollments lists the courses `address` has a status in.
func (svc *Service) Enrollments(ctx context.Context, address string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, EnrollmentFilter{Address: core.CleanString(address, true /* lower */)})
}

// Students lists the enrolled students of a course.
func (svc *Service) Students(ctx context.Context, courseID int64) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, EnrollmentFilter{CourseID: courseID, Status: StatusEnrolled})
}

func (svc *Service) Roster(ctx context.Context, courseID int64) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, EnrollmentFilter{CourseID: courseID})
}
