package format

import (
	"fmt"
	"strings"
)

// DefaultMaxDepth bounds block nesting when no explicit limit is given.
const DefaultMaxDepth = 32

const (
	blockOpen  = "{"
	blockClose = "}"
	mapSep     = ":"
)

// Tokenize normalizes line endings and splits a message body into whitespace separated tokens.
// Blank lines and quoted reply lines (starting with '>') are dropped.
func Tokenize(body string) []string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")

	var tokens []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ">") {
			continue
		}
		tokens = append(tokens, strings.Fields(line)...)
	}
	return tokens
}

// ParseError is returned for malformed or unterminated blocks.
type ParseError struct {
	Pos int // index of the offending token
	Msg string
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("parse error at token %d: %s", err.Pos+1, err.Msg)
}

// Parser turns token sequences into Values.
type Parser struct {
	MaxDepth int
}

// Parse parses a whole token sequence into its top-level values.
// A stray '}' outside any block is kept as a Word.
func (p Parser) Parse(tokens []string) ([]Value, error) {
	max := p.MaxDepth
	if max <= 0 {
		max = DefaultMaxDepth
	}
	st := &state{tokens: tokens, maxDepth: max}

	values := make([]Value, 0, len(tokens))
	for !st.done() {
		tok := st.peek()
		if tok == blockClose {
			st.pos++
			values = append(values, Word(tok))
			continue
		}
		v, err := st.value()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// Parse parses tokens with the default depth limit.
func Parse(tokens []string) ([]Value, error) {
	return Parser{}.Parse(tokens)
}

// ParseString tokenizes and parses `s`.
func ParseString(s string) ([]Value, error) {
	return Parse(Tokenize(s))
}

// Opener reports the format opened by tok, eg. "map{".
func Opener(tok string) (Format, bool) {
	if !strings.HasSuffix(tok, blockOpen) {
		return 0, false
	}
	return LookupFormat(strings.TrimSuffix(tok, blockOpen))
}

type state struct {
	tokens   []string
	pos      int
	depth    int
	maxDepth int
}

func (st *state) done() bool   { return st.pos >= len(st.tokens) }
func (st *state) peek() string { return st.tokens[st.pos] }

func (st *state) errorf(format string, args ...interface{}) error {
	return &ParseError{Pos: st.pos, Msg: fmt.Sprintf(format, args...)}
}

// value parses a single word or block starting at the current token.
func (st *state) value() (Value, error) {
	if st.done() {
		return nil, st.errorf("unexpected end of input")
	}
	tok := st.peek()
	if tok == blockClose {
		return nil, st.errorf("unexpected '%s'", blockClose)
	}
	f, ok := Opener(tok)
	if !ok {
		st.pos++
		return Word(tok), nil
	}

	start := st.pos
	st.pos++
	st.depth++
	defer func() { st.depth-- }()
	if st.depth > st.maxDepth {
		return nil, &ParseError{Pos: start, Msg: fmt.Sprintf("blocks nested deeper than %d", st.maxDepth)}
	}

	var (
		v   Value
		err error
	)
	switch f {
	case FormatText:
		v, err = st.text()
	case FormatList:
		v, err = st.list()
	case FormatMap:
		v, err = st.mapBlock()
	}
	if err != nil {
		if perr, ok := err.(*ParseError); ok && perr.Msg == errUnterminated {
			perr.Pos = start
			perr.Msg = fmt.Sprintf("'%s' is never closed by a matching '%s'", tok, blockClose)
		}
		return nil, err
	}
	return v, nil
}

const errUnterminated = "unterminated"

// text consumes tokens verbatim up to the first '}'.
func (st *state) text() (Value, error) {
	var words []string
	for !st.done() {
		tok := st.peek()
		st.pos++
		if tok == blockClose {
			return Text(strings.Join(words, " ")), nil
		}
		words = append(words, tok)
	}
	return nil, st.errorf(errUnterminated)
}

func (st *state) list() (Value, error) {
	l := List{}
	for !st.done() {
		if st.peek() == blockClose {
			st.pos++
			return l, nil
		}
		v, err := st.value()
		if err != nil {
			return nil, err
		}
		l = append(l, v)
	}
	return nil, st.errorf(errUnterminated)
}

// mapBlock parses `KEY : VALUE` pairs up to the closing '}'.
func (st *state) mapBlock() (Value, error) {
	m := Map{}
	for !st.done() {
		key := st.peek()
		switch {
		case key == blockClose:
			st.pos++
			return m, nil
		case key == mapSep:
			return nil, st.errorf("missing key before '%s'", mapSep)
		}
		if _, ok := Opener(key); ok {
			return nil, st.errorf("map keys must be single words, got '%s'", key)
		}
		if m.Has(key) {
			return nil, st.errorf("duplicate map key '%s'", key)
		}
		st.pos++

		if st.done() {
			break
		}
		if sep := st.peek(); sep != mapSep {
			return nil, st.errorf("expected '%s' after map key '%s', got '%s'", mapSep, key, sep)
		}
		st.pos++

		if st.done() {
			break
		}
		if st.peek() == blockClose {
			return nil, st.errorf("missing value for map key '%s'", key)
		}
		v, err := st.value()
		if err != nil {
			return nil, err
		}
		m = append(m, Entry{Key: key, Value: v})
	}
	return nil, st.errorf(errUnterminated)
}
