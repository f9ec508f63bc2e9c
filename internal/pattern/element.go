// Package pattern parses path patterns such as
//
//	(PatientID)/(0008,1030)/file(count:SOPInstanceUID).dcm
//
// into an ordered list of path elements. Text outside brackets is copied
// verbatim, a bracket looks up a tag, and a "count:" bracket replaces the tag
// value with a sequence number that is stable for the duration of a sort job.
package pattern

import (
	"fmt"

	"github.com/harrison/dicomsort/internal/dicomtag"
)

// CounterID identifies one counted element within a pattern. IDs are assigned
// from 0 in left-to-right order.
type CounterID int

// Element is one unit of a parsed pattern. The set of implementations is
// closed: Literal, TagLookup and CountedLookup.
type Element interface {
	fmt.Stringer
	isElement()
}

// Literal is text copied verbatim into the output path.
type Literal struct {
	Text string
}

// TagLookup is replaced by the record's value for Ref.
type TagLookup struct {
	Ref dicomtag.Reference
}

// CountedLookup is replaced by the sequence number assigned to the record's
// value for Ref within counter Counter.
type CountedLookup struct {
	Ref     dicomtag.Reference
	Counter CounterID
}

func (Literal) isElement()       {}
func (TagLookup) isElement()     {}
func (CountedLookup) isElement() {}

// String returns the element as it would be written in a pattern.
func (l Literal) String() string {
	return l.Text
}

// String returns the element as it would be written in a pattern.
func (t TagLookup) String() string {
	return "(" + t.Ref.String() + ")"
}

// String returns the element as it would be written in a pattern.
func (c CountedLookup) String() string {
	return "(" + countPrefix + c.Ref.String() + ")"
}

// Describe returns a one-line human description of an element.
func Describe(e Element) string {
	switch el := e.(type) {
	case Literal:
		return fmt.Sprintf("literal %q", el.Text)
	case TagLookup:
		return fmt.Sprintf("tag %s (%s)", el.Ref, el.Ref.Kind())
	case CountedLookup:
		return fmt.Sprintf("counted tag %s (%s), counter %d", el.Ref, el.Ref.Kind(), el.Counter)
	default:
		panic(fmt.Sprintf("pattern: unknown element type %T", e))
	}
}
