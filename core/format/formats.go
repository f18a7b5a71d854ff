package format

type Format int

const (
	FormatText Format = iota
	FormatList
	FormatMap
)

type FormatInfo struct {
	Format Format
	Name   string
	Desc   string
	Help   string
}

// Formats is the table of known block formats, in display order.
var Formats = []FormatInfo{
	{
		Format: FormatText,
		Name:   "text",
		Desc:   "Combines words into a single chunk of text.",
		Help: `Help for format:
  text{

Usage examples:
  text{ This is some text that will be treated as a single token. }

  map{
    name : text{ A problem name with multiple words. }
    ...
  }

  text{ map{ these : tokens wont : be parsed : as a : map } }

The 'text{' format joins every token up to the first '}' into a single chunk of
text, which is then treated as a single argument. Exactly one space separates
the words, no matter how much whitespace separated them in your message. Unlike
the other formats, 'text{' does not allow nested formats.
`,
	},
	{
		Format: FormatList,
		Name:   "list",
		Desc:   "Combines tokens into a list.",
		Help: `Help for format:
  list{

Usage examples:
  list{ 1 2 3 4 5 }

  list{ flag-1 flag-2 other-flag }

The 'list{' format collects its sub-tokens, including nested formats, into a
single argument holding a list of them. To treat several words as one piece of
text, use the 'text{' format instead.
`,
	},
	{
		Format: FormatMap,
		Name:   "map",
		Desc:   "Lists a set of key <-> value relations.",
		Help: `Help for format:
  map{

Usage examples:
  map{
    1 : text{ Value 1 }
    4 : value2
    three : text{ Names don't have to be numbers. }
    2 : text{ Ordering is preserved regardless of names. }
  }

  map{
    name : problem-1
    type : multiple-choice
    prompt : text{ What is your favorite color? }
    answers : map{
      A : Blue
      B : Green
      C : Grue
      D : text{ I don't have a favorite color. }
    }
    solution : C
  }

The 'map{' format specifies key <-> value relations. Each key is a single
word, each value is a word or a nested format, and they are separated by a ':'
token (the ':' must be surrounded by spaces). Keys must be unique within a map.

Maps are used to define assignments, problems and answers; see ':help problem'.
`,
	},
}

// LookupFormat finds a format by name.
func LookupFormat(name string) (Format, bool) {
	for _, f := range Formats {
		if f.Name == name {
			return f.Format, true
		}
	}
	return 0, false
}

// FormatHelp returns the help entry for a format name.
func FormatHelp(name string) (FormatInfo, bool) {
	for _, f := range Formats {
		if f.Name == name {
			return f, true
		}
	}
	return FormatInfo{}, false
}
