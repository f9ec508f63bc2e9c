// Package metadata reads tag values from records.
package metadata

import (
	"errors"

	"github.com/harrison/dicomsort/internal/dicomtag"
)

// ErrNotDICOM is returned by readers for files that cannot be parsed as DICOM.
var ErrNotDICOM = errors.New("not a DICOM file")

// Record exposes the metadata of one file.
type Record interface {
	// Value returns the canonical text of the element at key, or false when absent.
	Value(key dicomtag.Key) (string, bool)
}

// Reader loads the metadata of a file.
type Reader interface {
	Read(path string) (Record, error)
}

// MapRecord is an in-memory Record.
type MapRecord map[dicomtag.Key]string

// Value implements Record.
func (m MapRecord) Value(key dicomtag.Key) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// MapReader serves MapRecords keyed by path. Paths without a record read as
// non-DICOM files.
type MapReader map[string]MapRecord

// Read implements Reader.
func (m MapReader) Read(path string) (Record, error) {
	rec, ok := m[path]
	if !ok {
		return nil, ErrNotDICOM
	}
	return rec, nil
}
