package sqlxrepos

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/course"
)

const courseColumns = "id, institution, name, term, year, auth"

type courseRepository struct {
	base
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) course.Repository {
	return &courseRepository{base{exec: exec}}
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	id, err := repo.insert(ctx,
		"INSERT INTO courses (institution, name, term, year, auth) VALUES (?, ?, ?, ?, ?)",
		c.Institution, c.Name, c.Term, c.Year, c.Auth)
	if err != nil {
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrCourseExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	c.ID = id
	return c, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id int64) (course.Course, error) {
	var c course.Course
	if err := repo.get(ctx, &c, "SELECT "+courseColumns+" FROM courses WHERE id = ?", id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "getting course")
	}
	return c, nil
}

func (repo courseRepository) GetCourseByTag(ctx context.Context, institution, name, term string, year int) (course.Course, error) {
	var c course.Course
	err := repo.get(ctx, &c,
		"SELECT "+courseColumns+" FROM courses WHERE institution = ? AND name = ? AND term = ? AND year = ?",
		institution, name, term, year)
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "getting course by tag")
	}
	return c, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	res, err := repo.execute(ctx, "UPDATE courses SET auth = ? WHERE id = ?", c.Auth, c.ID)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	} else if n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourse(ctx, c.ID)
}

func (repo courseRepository) GetEnrollment(ctx context.Context, address string, courseID int64) (course.Enrollment, error) {
	var e course.Enrollment
	err := repo.get(ctx, &e,
		"SELECT address, course_id, status FROM enrollments WHERE address = ? AND course_id = ?", address, courseID)
	if err != nil {
		return course.Enrollment{}, trapNoRowsErr(err, course.ErrEnrollmentNotFound, "getting enrollment")
	}
	return e, nil
}

func (repo courseRepository) SaveEnrollment(ctx context.Context, e course.Enrollment) error {
	_, err := repo.execute(ctx, `
		INSERT INTO enrollments (address, course_id, status) VALUES (?, ?, ?)
		ON CONFLICT (address, course_id) DO UPDATE SET status = excluded.status`,
		e.Address, e.CourseID, e.Status)
	return errors.Wrap(err, "saving enrollment")
}

func (repo courseRepository) QueryEnrollments(ctx context.Context, filter course.EnrollmentFilter) ([]course.Enrollment, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Address != "" {
		where = append(where, "address = ?")
		args = append(args, filter.Address)
	}
	if filter.CourseID != 0 {
		where = append(where, "course_id = ?")
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	q := "SELECT address, course_id, status FROM enrollments"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY course_id, address"

	var out []course.Enrollment
	if err := repo.selectAll(ctx, &out, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	return out, nil
}

func (repo courseRepository) SaveAlias(ctx context.Context, a course.Alias) error {
	_, err := repo.execute(ctx, `
		INSERT INTO aliases (address, alias, course_id) VALUES (?, ?, ?)
		ON CONFLICT (address, alias) DO UPDATE SET course_id = excluded.course_id`,
		a.Address, a.Alias, a.CourseID)
	return errors.Wrap(err, "saving alias")
}

func (repo courseRepository) GetAlias(ctx context.Context, address, alias string) (course.Alias, error) {
	var a course.Alias
	err := repo.get(ctx, &a, "SELECT address, course_id, alias FROM aliases WHERE address = ? AND alias = ?", address, alias)
	if err != nil {
		return course.Alias{}, trapNoRowsErr(err, course.ErrAliasNotFound, "getting alias")
	}
	return a, nil
}

func (repo courseRepository) QueryAliases(ctx context.Context, address string, courseID int64) ([]course.Alias, error) {
	var out []course.Alias
	err := repo.selectAll(ctx, &out,
		"SELECT address, course_id, alias FROM aliases WHERE address = ? AND course_id = ? ORDER BY alias",
		address, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying aliases")
	}
	return out, nil
}
