// Package resolver turns parsed pattern elements into a literal relative path
// for one record.
package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/harrison/dicomsort/internal/counter"
	"github.com/harrison/dicomsort/internal/dicomtag"
	"github.com/harrison/dicomsort/internal/metadata"
	"github.com/harrison/dicomsort/internal/pattern"
)

// Resolver resolves pattern elements against record metadata.
type Resolver struct {
	dict      dicomtag.Dictionary
	sanitizer Sanitizer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSanitizer replaces the default substitution policy for tag values.
func WithSanitizer(s Sanitizer) Option {
	return func(r *Resolver) {
		r.sanitizer = s
	}
}

// New creates a Resolver that binds tag keywords through dict.
func New(dict dicomtag.Dictionary, opts ...Option) *Resolver {
	r := &Resolver{
		dict:      dict,
		sanitizer: DefaultSanitizer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup returns the sanitized value of ref in rec.
func (r *Resolver) Lookup(rec metadata.Record, ref dicomtag.Reference) (string, error) {
	key, ok := ref.Key(r.dict)
	if !ok {
		return "", &TagNotFoundError{Ref: ref, Reason: "unknown tag name"}
	}
	value, ok := rec.Value(key)
	if !ok {
		return "", &TagNotFoundError{Ref: ref, Key: key, Reason: "not present in record"}
	}
	return r.sanitizer.Clean(value), nil
}

// Resolve builds the relative path for rec.
//
// All tag lookups happen before any counter is touched, so a record that
// fails with a TagNotFoundError leaves tracker exactly as it was.
func (r *Resolver) Resolve(elements []pattern.Element, rec metadata.Record, tracker *counter.Tracker) (string, error) {
	values := make([]string, len(elements))

	for i, e := range elements {
		switch el := e.(type) {
		case pattern.Literal:
			values[i] = el.Text
		case pattern.TagLookup:
			v, err := r.Lookup(rec, el.Ref)
			if err != nil {
				return "", err
			}
			values[i] = v
		case pattern.CountedLookup:
			v, err := r.Lookup(rec, el.Ref)
			if err != nil {
				return "", err
			}
			values[i] = v
		default:
			return "", fmt.Errorf("unsupported pattern element %T", e)
		}
	}

	var path strings.Builder
	for i, e := range elements {
		if el, ok := e.(pattern.CountedLookup); ok {
			n := tracker.SequenceNumber(el.Counter, values[i])
			path.WriteString(strconv.Itoa(n))
			continue
		}
		path.WriteString(values[i])
	}

	return path.String(), nil
}
