package inmemdb

import (
	"context"

	"github.com/trezcool/academibot/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) findByTag(institution, name, term string, year int) (*course.Course, bool) {
	for _, c := range repo.db.table {
		if c.Institution == institution && c.Name == name && c.Term == term && c.Year == year {
			return c, true
		}
	}
	return nil, false
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, exists := repo.findByTag(c.Institution, c.Name, c.Term, c.Year); exists {
		return course.Course{}, course.ErrCourseExists
	}
	repo.db.pkCount++
	c.ID = repo.db.pkCount
	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id int64) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseByTag(_ context.Context, institution, name, term string, year int) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.findByTag(institution, name, term, year); ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[c.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	orig.Auth = c.Auth
	return *orig, nil
}

func (repo *courseRepository) GetEnrollment(_ context.Context, address string, courseID int64) (course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.db.enrollments {
		if e.Address == address && e.CourseID == courseID {
			return e, nil
		}
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}

func (repo *courseRepository) SaveEnrollment(_ context.Context, e course.Enrollment) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, orig := range repo.db.enrollments {
		if orig.Address == e.Address && orig.CourseID == e.CourseID {
			repo.db.enrollments[i].Status = e.Status
			return nil
		}
	}
	repo.db.enrollments = append(repo.db.enrollments, e)
	return nil
}

func (repo *courseRepository) QueryEnrollments(_ context.Context, filter course.EnrollmentFilter) ([]course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var out []course.Enrollment
	for _, e := range repo.db.enrollments {
		if filter.Address != "" && e.Address != filter.Address {
			continue
		}
		if filter.CourseID != 0 && e.CourseID != filter.CourseID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (repo *courseRepository) SaveAlias(_ context.Context, a course.Alias) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, orig := range repo.db.aliases {
		if orig.Address == a.Address && orig.Alias == a.Alias {
			repo.db.aliases[i].CourseID = a.CourseID
			return nil
		}
	}
	repo.db.aliases = append(repo.db.aliases, a)
	return nil
}

func (repo *courseRepository) GetAlias(_ context.Context, address, alias string) (course.Alias, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, a := range repo.db.aliases {
		if a.Address == address && a.Alias == alias {
			return a, nil
		}
	}
	return course.Alias{}, course.ErrAliasNotFound
}

func (repo *courseRepository) QueryAliases(_ context.Context, address string, courseID int64) ([]course.Alias, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var out []course.Alias
	for _, a := range repo.db.aliases {
		if a.Address == address && a.CourseID == courseID {
			out = append(out, a)
		}
	}
	return out, nil
}
