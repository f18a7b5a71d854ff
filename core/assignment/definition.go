package assignment

import (
	"fmt"
	"strconv"
	"time"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/format"
)

var (
	definitionKeys = []string{"name", "type", "value", "publish", "due", "late-after", "reject-after", "problems"}
	problemKeys    = []string{"name", "type", "prompt", "answers", "solution"}

	// accepted timestamp layouts, all read as UTC
	timeLayouts = []string{format.TimeLayout, "2006-01-02T15:04", "2006-01-02"}
)

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// decoder collects field errors while reading a map.
type decoder struct {
	prefix string
	fields []core.FieldError
}

func (d *decoder) fail(key, msg string, args ...interface{}) {
	d.fields = append(d.fields, core.FieldError{Field: d.prefix + key, Error: fmt.Sprintf(msg, args...)})
}

func (d *decoder) required(m format.Map, keys []string, what string) {
	for _, key := range keys {
		if !m.Has(key) {
			d.fail(key, "%s is missing required key '%s'", what, key)
		}
	}
}

func (d *decoder) str(m format.Map, key string) string {
	v, ok := m.Get(key)
	if !ok {
		return ""
	}
	s, ok := format.String(v)
	if !ok {
		d.fail(key, "'%s' must be a word or a text{ }, got a %s", key, v.Kind())
	}
	return s
}

func (d *decoder) timestamp(m format.Map, key string) time.Time {
	s := d.str(m, key)
	if s == "" {
		return time.Time{}
	}
	t, ok := parseTime(s)
	if !ok {
		d.fail(key, "invalid %s value '%s' (expected a date/time like %s)", key, s, format.TimeLayout)
	}
	return t
}

func (d *decoder) flags(m format.Map, key string) []string {
	v, ok := m.Get(key)
	if !ok {
		return []string{}
	}
	flags, ok := format.Strings(v)
	if !ok {
		d.fail(key, "'%s' must be a list{ } of words", key)
	}
	return flags
}

func (d *decoder) problem(v format.Value, i int) Problem {
	m, ok := v.(format.Map)
	if !ok {
		d.fail("", "problem #%d must be a map{ }, got a %s", i+1, v.Kind())
		return Problem{}
	}
	d.required(m, problemKeys, fmt.Sprintf("problem #%d", i+1))
	p := Problem{
		Name:     d.str(m, "name"),
		Type:     d.str(m, "type"),
		Prompt:   d.str(m, "prompt"),
		Solution: d.str(m, "solution"),
		Flags:    d.flags(m, "flags"),
	}
	if av, ok := m.Get("answers"); ok {
		if p.Answers, ok = av.(format.Map); !ok {
			d.fail("answers", "answers must be a map{ }, got a %s", av.Kind())
		}
	}
	return p
}

// Decode reads and validates an assignment definition.
// Every problem must use a registered type, have a unique name and a solution among its answers.
func Decode(m format.Map) (Definition, error) {
	d := &decoder{}
	d.required(m, definitionKeys, "assignment")

	def := Definition{
		Name:        d.str(m, "name"),
		Type:        d.str(m, "type"),
		PublishAt:   d.timestamp(m, "publish"),
		DueAt:       d.timestamp(m, "due"),
		LateAfter:   d.timestamp(m, "late-after"),
		RejectAfter: d.timestamp(m, "reject-after"),
		Flags:       d.flags(m, "flags"),
	}
	if s := d.str(m, "value"); s != "" {
		fv, err := strconv.ParseFloat(s, 64)
		if err != nil {
			d.fail("value", "invalid value field '%s' (could not be parsed as a number)", s)
		}
		def.Value = fv
	}
	if pv, ok := m.Get("problems"); ok {
		problems, ok := pv.(format.List)
		if !ok {
			d.fail("problems", "problems must be a list{ } of problem maps, got a %s", pv.Kind())
		}
		for i, v := range problems {
			d.prefix = fmt.Sprintf("problems[%d].", i)
			def.Problems = append(def.Problems, d.problem(v, i))
		}
		d.prefix = ""
	}
	if len(d.fields) > 0 {
		return Definition{}, core.NewValidationError(core.NewArgumentError("invalid assignment definition"), d.fields...)
	}

	if err := core.CheckStruct(def, "invalid assignment definition"); err != nil {
		return Definition{}, err
	}

	seen := make(map[string]bool, len(def.Problems))
	for i, p := range def.Problems {
		d.prefix = fmt.Sprintf("problems[%d].", i)
		if seen[p.Name] {
			d.fail("name", "problem #%d repeats the use of name '%s'", i+1, p.Name)
		}
		seen[p.Name] = true

		pt, ok := LookupProblemType(p.Type)
		if !ok {
			d.fail("type", "unknown problem type '%s' (known types: %v)", p.Type, ProblemTypeNames())
			continue
		}
		if err := pt.Check(p); err != nil {
			d.fail("solution", "%s", err.Error())
		}
	}
	if len(d.fields) > 0 {
		return Definition{}, core.NewValidationError(core.NewArgumentError("invalid assignment definition"), d.fields...)
	}
	return def, nil
}

// CheckSubmission validates submitted answers against the assignment: every key must name a problem,
// every answer must be accepted by the problem's type and every problem must be answered.
func CheckSubmission(def Definition, content format.Map) error {
	d := &decoder{}
	if len(content) == 0 {
		d.fail("", "submission contains no answers")
	}
	for _, e := range content {
		p, ok := def.Problem(e.Key)
		if !ok {
			d.fail(e.Key, "there is no problem '%s' in assignment '%s'", e.Key, def.Name)
			continue
		}
		answer, ok := format.String(e.Value)
		if !ok {
			d.fail(e.Key, "the answer to problem '%s' must be a single answer key", e.Key)
			continue
		}
		pt, ok := LookupProblemType(p.Type)
		if !ok {
			return core.Validationf("problem '%s' has unknown type '%s'", p.Name, p.Type)
		}
		if err := pt.CheckAnswer(p, answer); err != nil {
			d.fail(e.Key, "%s", err.Error())
		}
	}
	for _, p := range def.Problems {
		if len(content) > 0 && !content.Has(p.Name) {
			d.fail(p.Name, "submission is missing the answer for problem '%s'", p.Name)
		}
	}
	if len(d.fields) > 0 {
		return core.NewValidationError(core.NewArgumentError("invalid submission"), d.fields...)
	}
	return nil
}
