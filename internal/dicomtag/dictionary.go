package dicomtag

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var keywordsYAML []byte

// Dictionary translates tag keywords into tag keys.
type Dictionary interface {
	// KeyForName returns the key for a keyword, or false when the keyword is unknown.
	KeyForName(name string) (Key, bool)
}

// Entry is one keyword known to a dictionary.
type Entry struct {
	Keyword string
	Key     Key
}

// StandardDictionary resolves keywords from the embedded keyword table and
// falls back to the DICOM library's dictionary for exact spellings.
type StandardDictionary struct {
	byLower map[string]Entry
	entries []Entry
}

// NewStandardDictionary loads the embedded keyword table.
func NewStandardDictionary() (*StandardDictionary, error) {
	return NewDictionaryFromYAML(keywordsYAML)
}

// MustStandardDictionary is like NewStandardDictionary but panics on error.
func MustStandardDictionary() *StandardDictionary {
	dict, err := NewStandardDictionary()
	if err != nil {
		panic(err)
	}
	return dict
}

// NewDictionaryFromYAML builds a dictionary from a "Keyword: gggg,eeee" mapping.
func NewDictionaryFromYAML(data []byte) (*StandardDictionary, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse keyword table: %w", err)
	}

	dict := &StandardDictionary{
		byLower: make(map[string]Entry, len(raw)),
		entries: make([]Entry, 0, len(raw)),
	}

	for keyword, code := range raw {
		ref, err := ParseReference(code)
		if err != nil || ref.Kind() != KindCode {
			return nil, fmt.Errorf("keyword %s: invalid tag code %q", keyword, code)
		}
		lower := strings.ToLower(keyword)
		if _, dup := dict.byLower[lower]; dup {
			return nil, fmt.Errorf("keyword %s listed more than once", keyword)
		}
		entry := Entry{Keyword: keyword, Key: ref.key}
		dict.byLower[lower] = entry
		dict.entries = append(dict.entries, entry)
	}

	sort.Slice(dict.entries, func(i, j int) bool {
		return dict.entries[i].Keyword < dict.entries[j].Keyword
	})

	return dict, nil
}

// KeyForName implements Dictionary. Keywords from the embedded table match
// regardless of case; the library fallback needs the exact spelling.
func (d *StandardDictionary) KeyForName(name string) (Key, bool) {
	entry, ok := d.Lookup(name)
	return entry.Key, ok
}

// Lookup returns the entry for a keyword, consulting the embedded table
// first and then the DICOM library's dictionary.
func (d *StandardDictionary) Lookup(name string) (Entry, bool) {
	if entry, ok := d.byLower[strings.ToLower(name)]; ok {
		return entry, true
	}

	info, err := tag.FindByName(name)
	if err != nil {
		return Entry{}, false
	}
	return Entry{Keyword: info.Name, Key: Key{Group: info.Tag.Group, Element: info.Tag.Element}}, true
}

// Entries lists the embedded keyword table sorted by keyword. Keywords only
// known to the library are not included.
func (d *StandardDictionary) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// MapDictionary is a fixed keyword table, mainly for tests.
type MapDictionary map[string]Key

// KeyForName implements Dictionary. Matching ignores case.
func (m MapDictionary) KeyForName(name string) (Key, bool) {
	for keyword, key := range m {
		if strings.EqualFold(keyword, name) {
			return key, true
		}
	}
	return Key{}, false
}
