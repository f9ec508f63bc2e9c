// Package registry persists named patterns in a YAML file mapping each
// pattern name to its source string.
package registry

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harrison/dicomsort/internal/filelock"
	"github.com/harrison/dicomsort/internal/pattern"
)

var (
	// ErrPatternNotFound is returned for names missing from the registry.
	ErrPatternNotFound = errors.New("pattern not found")
	// ErrPatternExists is returned by Save when the name is taken and overwrite is false.
	ErrPatternExists = errors.New("pattern already exists")
)

// Entry is one stored pattern.
type Entry struct {
	Name   string
	Source string
}

// Builtins are written to a new registry file.
var Builtins = []Entry{
	{
		Name:   "idis",
		Source: "(0010,0020)/(0008,1030)-(0008,0050)/(0008,103e)-(0008,0060)-(0020,0011)/(count:0008,0018)",
	},
	{
		Name:   "nucmed",
		Source: "(0010,0020)/(0008,1030)-(0008,0050)/(0008,0020)/(0008,103e)-(0008,0060)-(0020,0011)/(count:0008,0018)",
	},
}

// Registry is a pattern file on disk. Every call re-reads the file, and
// writes hold path+".lock" for the whole read-modify-write.
type Registry struct {
	path    string
	created bool
}

// Open returns the registry at path, writing the built-in patterns first if
// the file does not exist.
func Open(path string) (*Registry, error) {
	r := &Registry{path: path}

	err := filelock.WithLock(path, func() error {
		if _, err := os.Stat(path); err == nil {
			return nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to access pattern file: %w", err)
		}

		patterns := make(map[string]string, len(Builtins))
		for _, b := range Builtins {
			patterns[b.Name] = b.Source
		}
		if err := r.write(patterns); err != nil {
			return err
		}
		r.created = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the registry file path.
func (r *Registry) Path() string {
	return r.path
}

// Created reports whether Open wrote a new file with the built-ins.
func (r *Registry) Created() bool {
	return r.created
}

// List returns every stored pattern sorted by name.
func (r *Registry) List() ([]Entry, error) {
	patterns, err := r.read()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(patterns))
	for name, source := range patterns {
		entries = append(entries, Entry{Name: name, Source: source})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Load parses the pattern stored under name.
func (r *Registry) Load(name string) (*pattern.Pattern, error) {
	patterns, err := r.read()
	if err != nil {
		return nil, err
	}

	source, ok := patterns[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrPatternNotFound)
	}

	p, err := pattern.New(name, source)
	if err != nil {
		return nil, fmt.Errorf("stored pattern %q: %w", name, err)
	}
	return p, nil
}

// Save parses source and stores it under name. A syntax error leaves the
// file untouched. An existing name is only replaced when overwrite is true.
func (r *Registry) Save(name, source string, overwrite bool) (*pattern.Pattern, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	p, err := pattern.New(name, source)
	if err != nil {
		return nil, err
	}

	err = filelock.WithLock(r.path, func() error {
		patterns, err := r.read()
		if err != nil {
			return err
		}
		if _, exists := patterns[name]; exists && !overwrite {
			return fmt.Errorf("%q: %w", name, ErrPatternExists)
		}
		patterns[name] = source
		return r.write(patterns)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes the pattern stored under name.
func (r *Registry) Delete(name string) error {
	return filelock.WithLock(r.path, func() error {
		patterns, err := r.read()
		if err != nil {
			return err
		}
		if _, ok := patterns[name]; !ok {
			return fmt.Errorf("%q: %w", name, ErrPatternNotFound)
		}
		delete(patterns, name)
		return r.write(patterns)
	})
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("pattern name cannot be empty")
	}
	if strings.ContainsAny(name, " \t\r\n") {
		return fmt.Errorf("pattern name %q cannot contain whitespace", name)
	}
	return nil
}

func (r *Registry) read() (map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern file: %w", err)
	}

	patterns := make(map[string]string)
	if err := yaml.Unmarshal(data, &patterns); err != nil {
		return nil, fmt.Errorf("failed to parse pattern file %s: %w", r.path, err)
	}
	return patterns, nil
}

func (r *Registry) write(patterns map[string]string) error {
	data, err := yaml.Marshal(patterns)
	if err != nil {
		return fmt.Errorf("failed to encode patterns: %w", err)
	}
	return filelock.AtomicWrite(r.path, data)
}
