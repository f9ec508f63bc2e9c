// Package dicomtag models references to DICOM metadata fields.
//
// A Reference names a field either by its code ("0010,0020") or by its
// keyword ("PatientID"). Keywords are bound to codes late, through a
// Dictionary, so parsing a pattern never depends on which keywords exist.
package dicomtag

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Key identifies a DICOM element by group and element number.
type Key struct {
	Group   uint16
	Element uint16
}

// String formats the key as "gggg,eeee" in lower-case hex.
func (k Key) String() string {
	return fmt.Sprintf("%04x,%04x", k.Group, k.Element)
}

// Kind distinguishes code references from keyword references.
type Kind int

const (
	// KindCode is a reference written as two groups of four hex digits.
	KindCode Kind = iota
	// KindName is a reference written as a keyword such as PatientID.
	KindName
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindCode:
		return "code"
	case KindName:
		return "name"
	default:
		return "unknown"
	}
}

var (
	codePattern = regexp.MustCompile(`^[0-9A-Fa-f]{4},[0-9A-Fa-f]{4}$`)
	namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
)

// Reference is an immutable lookup key for one metadata field.
type Reference struct {
	kind  Kind
	value string
	key   Key
}

// ParseReference classifies s as a code or a keyword reference.
// Anything shaped like neither is rejected.
func ParseReference(s string) (Reference, error) {
	if s == "" {
		return Reference{}, fmt.Errorf("empty tag reference")
	}

	if codePattern.MatchString(s) {
		key, err := parseKey(s)
		if err != nil {
			return Reference{}, err
		}
		return Reference{kind: KindCode, value: s, key: key}, nil
	}

	if namePattern.MatchString(s) {
		return Reference{kind: KindName, value: s}, nil
	}

	return Reference{}, fmt.Errorf("%q is neither a tag code (gggg,eeee) nor a tag name", s)
}

// MustParseReference is like ParseReference but panics on error.
func MustParseReference(s string) Reference {
	ref, err := ParseReference(s)
	if err != nil {
		panic(err)
	}
	return ref
}

// CodeReference builds a code reference directly from a key.
func CodeReference(key Key) Reference {
	return Reference{kind: KindCode, value: key.String(), key: key}
}

func parseKey(s string) (Key, error) {
	group, err := strconv.ParseUint(s[0:4], 16, 16)
	if err != nil {
		return Key{}, fmt.Errorf("invalid tag group in %q: %w", s, err)
	}
	element, err := strconv.ParseUint(s[5:9], 16, 16)
	if err != nil {
		return Key{}, fmt.Errorf("invalid tag element in %q: %w", s, err)
	}
	return Key{Group: uint16(group), Element: uint16(element)}, nil
}

// Kind reports whether this is a code or a keyword reference.
func (r Reference) Kind() Kind {
	return r.kind
}

// Value returns the reference exactly as written in the pattern.
func (r Reference) Value() string {
	return r.value
}

// String returns the reference as written in the pattern.
func (r Reference) String() string {
	return r.value
}

// Key binds the reference to a tag key. Code references bind directly;
// keyword references go through dict and report false when unknown.
func (r Reference) Key(dict Dictionary) (Key, bool) {
	switch r.kind {
	case KindCode:
		return r.key, true
	case KindName:
		if dict == nil {
			return Key{}, false
		}
		return dict.KeyForName(r.value)
	default:
		return Key{}, false
	}
}

// Equal reports whether two references were written identically.
// Keyword comparison ignores case, code comparison ignores hex case.
func (r Reference) Equal(other Reference) bool {
	if r.kind != other.kind {
		return false
	}
	if r.kind == KindCode {
		return r.key == other.key
	}
	return strings.EqualFold(r.value, other.value)
}
