package pattern

import (
	"errors"
	"fmt"
)

// ErrSyntax is matched by every SyntaxError via errors.Is.
var ErrSyntax = errors.New("pattern syntax error")

// SyntaxError reports a malformed pattern string.
type SyntaxError struct {
	Pattern string // The pattern being parsed
	Offset  int    // Byte offset of the offending bracket or character
	Reason  string // What is wrong
}

func newSyntaxError(pattern string, offset int, reason string) *SyntaxError {
	return &SyntaxError{Pattern: pattern, Offset: offset, Reason: reason}
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid pattern %q at offset %d: %s", e.Pattern, e.Offset, e.Reason)
}

// Is lets errors.Is(err, ErrSyntax) match any SyntaxError.
func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}
