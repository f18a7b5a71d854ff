package format

import "strings"

// DefaultLineLength is the wrapping width used by the zero Printer.
const DefaultLineLength = 80

// Printer renders Values back into the notation accepted by Parse.
// A value is printed on one line whenever it fits in LineLength, otherwise its
// blocks are broken up with two-space indent increments.
type Printer struct {
	LineLength int
}

func (p Printer) width() int {
	if p.LineLength <= 0 {
		return DefaultLineLength
	}
	return p.LineLength
}

// Unparse renders a single value.
func (p Printer) Unparse(v Value) string {
	return p.render(v, 0)
}

// UnparseAll renders a sequence of values separated by spaces, each kept on one line.
func (p Printer) UnparseAll(values []Value) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, Compact(v))
	}
	return strings.Join(parts, " ")
}

// Unparse renders v with the default line length.
func Unparse(v Value) string {
	return Printer{}.Unparse(v)
}

// Compact renders v on a single line.
func Compact(v Value) string {
	b := new(strings.Builder)
	writeCompact(b, v)
	return b.String()
}

func writeCompact(b *strings.Builder, v Value) {
	switch v := v.(type) {
	case Word:
		b.WriteString(string(v))
	case Text:
		b.WriteString("text{ ")
		if words := strings.Fields(string(v)); len(words) > 0 {
			b.WriteString(strings.Join(words, " "))
			b.WriteString(" ")
		}
		b.WriteString(blockClose)
	case List:
		b.WriteString("list{ ")
		for _, el := range v {
			writeCompact(b, el)
			b.WriteString(" ")
		}
		b.WriteString(blockClose)
	case Map:
		b.WriteString("map{ ")
		for _, e := range v {
			b.WriteString(e.Key)
			b.WriteString(" : ")
			writeCompact(b, e.Value)
			b.WriteString(" ")
		}
		b.WriteString(blockClose)
	}
}

func (p Printer) render(v Value, indent int) string {
	ind := strings.Repeat(" ", indent)
	if one := ind + Compact(v); len(one) <= p.width() {
		return one
	}

	lines := make([]string, 0, 8)
	switch v := v.(type) {
	case Word:
		return ind + string(v)
	case Text:
		lines = append(lines, ind+"text{")
		lines = append(lines, p.wrap(strings.Fields(string(v)), ind+"  ")...)
	case List:
		lines = append(lines, ind+"list{")
		for _, el := range v {
			lines = append(lines, p.render(el, indent+2))
		}
	case Map:
		lines = append(lines, ind+"map{")
		for _, e := range v {
			entry := ind + "  " + e.Key + " : " + Compact(e.Value)
			if len(entry) <= p.width() {
				lines = append(lines, entry)
				continue
			}
			lines = append(lines, ind+"  "+e.Key+" :")
			lines = append(lines, p.render(e.Value, indent+4))
		}
	}
	lines = append(lines, ind+blockClose)
	return strings.Join(lines, "\n")
}

// wrap fills lines greedily with single-space separated words; a word longer than the width stands alone.
func (p Printer) wrap(words []string, ind string) []string {
	var (
		lines []string
		line  string
	)
	for _, w := range words {
		if line == "" {
			line = ind + w
			continue
		}
		if len(line)+1+len(w) > p.width() {
			lines = append(lines, line)
			line = ind + w
			continue
		}
		line += " " + w
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
