package course

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/trezcool/academibot/core"
)

type Course struct {
	ID          int64  `db:"id" json:"id"`
	Institution string `db:"institution" json:"institution"`
	Name        string `db:"name" json:"name"`
	Term        string `db:"term" json:"term"`
	Year        int    `db:"year" json:"year"`
	Auth        string `db:"auth" json:"-"` // hashed by the configured core.Checker
}

// Tag is the globally unique `institution/name/term/year` reference of the course.
func (c Course) Tag() string {
	return fmt.Sprintf("%s/%s/%s/%d", c.Institution, c.Name, c.Term, c.Year)
}

type EnrollmentStatus string

const (
	StatusNone       EnrollmentStatus = "none"
	StatusExpected   EnrollmentStatus = "expected"
	StatusEnrolled   EnrollmentStatus = "enrolled"
	StatusInstructor EnrollmentStatus = "instructor"
)

type Enrollment struct {
	Address  string           `db:"address"`
	CourseID int64            `db:"course_id"`
	Status   EnrollmentStatus `db:"status"`
}

// Alias is a personal short name for a course.
type Alias struct {
	Address  string `db:"address"`
	CourseID int64  `db:"course_id"`
	Alias    string `db:"alias"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Institution string `json:"institution" validate:"required,tagpart"`
	Name        string `json:"name" validate:"required,tagpart"`
	Term        string `json:"term" validate:"required,tagpart"`
	Year        int    `json:"year" validate:"gte=1000,lte=9999"`
}

func (nc *NewCourse) Validate() error {
	nc.Institution = core.CleanString(nc.Institution)
	nc.Name = core.CleanString(nc.Name)
	nc.Term = core.CleanString(nc.Term)
	return core.CheckStruct(nc, "invalid course")
}

func (nc NewCourse) Tag() string {
	return Course{Institution: nc.Institution, Name: nc.Name, Term: nc.Term, Year: nc.Year}.Tag()
}

// ParseTag splits an `institution/name/term/year` tag.
func ParseTag(tag string) (NewCourse, bool) {
	parts := strings.Split(tag, "/")
	if len(parts) != 4 {
		return NewCourse{}, false
	}
	year, err := strconv.Atoi(parts[3])
	if err != nil {
		return NewCourse{}, false
	}
	return NewCourse{Institution: parts[0], Name: parts[1], Term: parts[2], Year: year}, true
}
