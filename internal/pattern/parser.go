package pattern

import (
	"fmt"
	"strings"

	"github.com/harrison/dicomsort/internal/dicomtag"
)

// countPrefix marks a bracket as counted. It is case-sensitive.
const countPrefix = "count:"

// Parse converts a pattern string into its ordered elements.
//
// Text outside brackets becomes Literal elements, with adjacent text merged
// into one element. A bracket holds a tag reference, optionally prefixed with
// "count:". Parsing is pure: the same input always yields the same elements
// and the same counter IDs.
func Parse(source string) ([]Element, error) {
	if source == "" {
		return nil, newSyntaxError(source, 0, "pattern is empty")
	}

	var (
		elements    []Element
		literal     strings.Builder
		nextCounter CounterID
	)

	flushLiteral := func() {
		if literal.Len() > 0 {
			elements = append(elements, Literal{Text: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(source); {
		switch source[i] {
		case '(':
			end := strings.IndexAny(source[i+1:], "()")
			if end < 0 {
				return nil, newSyntaxError(source, i, "'(' is never closed")
			}
			closeAt := i + 1 + end
			if source[closeAt] == '(' {
				return nil, newSyntaxError(source, closeAt, "brackets cannot be nested")
			}

			element, err := parseBracket(source[i+1:closeAt], nextCounter)
			if err != nil {
				return nil, newSyntaxError(source, i, err.Error())
			}
			if _, counted := element.(CountedLookup); counted {
				nextCounter++
			}

			flushLiteral()
			elements = append(elements, element)
			i = closeAt + 1

		case ')':
			return nil, newSyntaxError(source, i, "')' has no matching '('")

		default:
			literal.WriteByte(source[i])
			i++
		}
	}

	flushLiteral()
	return elements, nil
}

// parseBracket turns bracket content (without the brackets) into an element.
func parseBracket(content string, counter CounterID) (Element, error) {
	if content == "" {
		return nil, fmt.Errorf("empty brackets")
	}

	if strings.HasPrefix(content, countPrefix) {
		rest := content[len(countPrefix):]
		if rest == "" {
			return nil, fmt.Errorf("%q needs a tag after it", countPrefix)
		}
		ref, err := dicomtag.ParseReference(rest)
		if err != nil {
			return nil, err
		}
		return CountedLookup{Ref: ref, Counter: counter}, nil
	}

	ref, err := dicomtag.ParseReference(content)
	if err != nil {
		return nil, err
	}
	return TagLookup{Ref: ref}, nil
}

// Pattern is a named, parsed pattern together with its source text.
type Pattern struct {
	Name     string
	Source   string
	Elements []Element
}

// New parses source and returns a named Pattern.
func New(name, source string) (*Pattern, error) {
	elements, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return &Pattern{Name: name, Source: source, Elements: elements}, nil
}

// MustNew is like New but panics on error. Intended for built-in patterns and tests.
func MustNew(name, source string) *Pattern {
	p, err := New(name, source)
	if err != nil {
		panic(err)
	}
	return p
}

// Counters returns the number of counted elements in the pattern.
func (p *Pattern) Counters() int {
	n := 0
	for _, e := range p.Elements {
		if _, ok := e.(CountedLookup); ok {
			n++
		}
	}
	return n
}

// String returns the pattern source.
func (p *Pattern) String() string {
	return p.Source
}
