// Package format implements the nested-bracket notation used in command arguments:
// bare words plus the text{ }, list{ } and map{ } blocks.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the fixed UTC timestamp pattern used in definitions and replies.
const TimeLayout = "2006-01-02T15:04:05"

type Kind int

const (
	KindWord Kind = iota
	KindText
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindWord:
		return "word"
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is one of Word, Text, List or Map.
type Value interface {
	Kind() Kind
	isValue()
}

type (
	// Word is a single token.
	Word string

	// Text is a run of tokens joined by single spaces. It never contains nested formats.
	Text string

	List []Value

	Entry struct {
		Key   string
		Value Value
	}

	// Map keeps its entries in insertion order; keys are unique.
	Map []Entry
)

func (Word) Kind() Kind { return KindWord }
func (Text) Kind() Kind { return KindText }
func (List) Kind() Kind { return KindList }
func (Map) Kind() Kind  { return KindMap }

func (Word) isValue() {}
func (Text) isValue() {}
func (List) isValue() {}
func (Map) isValue()  {}

func (m Map) Get(key string) (Value, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func (m Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for _, e := range m {
		keys = append(keys, e.Key)
	}
	return keys
}

// Set replaces the value of an existing key or appends a new entry.
func (m Map) Set(key string, v Value) Map {
	for i, e := range m {
		if e.Key == key {
			m[i].Value = v
			return m
		}
	}
	return append(m, Entry{Key: key, Value: v})
}

// String returns the string held by a Word or Text.
func String(v Value) (string, bool) {
	switch v := v.(type) {
	case Word:
		return string(v), true
	case Text:
		return string(v), true
	default:
		return "", false
	}
}

// Strings flattens a List of words, or splits a Word/Text on whitespace (eg. "flags").
func Strings(v Value) ([]string, bool) {
	switch v := v.(type) {
	case Word:
		return strings.Fields(string(v)), true
	case Text:
		return strings.Fields(string(v)), true
	case List:
		out := make([]string, 0, len(v))
		for _, el := range v {
			s, ok := String(el)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// From converts a Go value into a Value: floats get 3 decimals, times use TimeLayout in UTC.
func From(x interface{}) Value {
	switch x := x.(type) {
	case Value:
		return x
	case string:
		if f := strings.Fields(x); len(f) == 1 && f[0] == x {
			return Word(x)
		}
		return Text(x)
	case float64:
		return Word(strconv.FormatFloat(x, 'f', 3, 64))
	case float32:
		return Word(strconv.FormatFloat(float64(x), 'f', 3, 32))
	case int:
		return Word(strconv.Itoa(x))
	case int64:
		return Word(strconv.FormatInt(x, 10))
	case bool:
		return Word(strconv.FormatBool(x))
	case time.Time:
		return Word(FormatTime(x))
	case []string:
		l := make(List, 0, len(x))
		for _, s := range x {
			l = append(l, From(s))
		}
		return l
	case fmt.Stringer:
		return From(x.String())
	default:
		return From(fmt.Sprint(x))
	}
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads a TimeLayout timestamp as UTC.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.UTC)
}
