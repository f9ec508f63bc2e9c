package metadata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/harrison/dicomsort/internal/dicomtag"
)

// valueSeparator joins the values of a multi-valued element, as in DICOM itself.
const valueSeparator = `\`

// DICOMReader parses DICOM files, skipping pixel data.
type DICOMReader struct{}

// NewDICOMReader creates a DICOMReader.
func NewDICOMReader() *DICOMReader {
	return &DICOMReader{}
}

// Read implements Reader.
func (r *DICOMReader) Read(path string) (Record, error) {
	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotDICOM, path, err)
	}
	return &datasetRecord{ds: ds}, nil
}

type datasetRecord struct {
	ds dicom.Dataset
}

// Value implements Record.
func (d *datasetRecord) Value(key dicomtag.Key) (string, bool) {
	elem, err := d.ds.FindElementByTag(tag.Tag{Group: key.Group, Element: key.Element})
	if err != nil || elem == nil || elem.Value == nil {
		return "", false
	}
	return FormatValue(elem.Value.GetValue()), true
}

// FormatValue renders a raw element value as canonical text: multiple values
// joined with a backslash, numbers in shortest decimal form, surrounding
// whitespace and NUL padding trimmed.
func FormatValue(v interface{}) string {
	var parts []string

	switch vals := v.(type) {
	case string:
		parts = []string{vals}
	case []string:
		parts = vals
	case []int:
		for _, n := range vals {
			parts = append(parts, strconv.Itoa(n))
		}
	case []float64:
		for _, f := range vals {
			parts = append(parts, strconv.FormatFloat(f, 'f', -1, 64))
		}
	case []byte:
		parts = []string{string(vals)}
	case nil:
		return ""
	default:
		parts = []string{fmt.Sprint(vals)}
	}

	for i, p := range parts {
		parts[i] = strings.Trim(p, " \x00")
	}
	return strings.TrimSpace(strings.Join(parts, valueSeparator))
}
