package resolver

import (
	"errors"
	"fmt"

	"github.com/harrison/dicomsort/internal/dicomtag"
)

// ErrTagNotFound is matched by every TagNotFoundError via errors.Is.
var ErrTagNotFound = errors.New("tag not found")

// TagNotFoundError reports a tag that could not be resolved for a record,
// either because the record lacks it or because the tag name is unknown.
type TagNotFoundError struct {
	Ref    dicomtag.Reference
	Key    dicomtag.Key // Zero when the name could not be bound
	Reason string
}

// Error implements the error interface.
func (e *TagNotFoundError) Error() string {
	if e.Ref.Kind() == dicomtag.KindName && e.Key != (dicomtag.Key{}) {
		return fmt.Sprintf("tag %s (%s) %s", e.Ref, e.Key, e.Reason)
	}
	return fmt.Sprintf("tag %s %s", e.Ref, e.Reason)
}

// Is lets errors.Is(err, ErrTagNotFound) match any TagNotFoundError.
func (e *TagNotFoundError) Is(target error) bool {
	return target == ErrTagNotFound
}
