// Package templates loads the support message templates from disk and
// performs placeholder substitution.
//
// Substitution markers are literal {{section}} strings inside the
// template body. Population is destructive: once a template has been
// populated the substituted text is what gets served, so Populate is a
// no-op on any later call. Per-render substitution (the archive log
// line) goes through Render, which never mutates the stored template.
package templates

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Template is a named slot of reusable text content.
type Template struct {
	Name    string
	Content string

	populated bool
}

// Populated reports whether this template's placeholders have already
// been substituted.
func (t *Template) Populated() bool { return t.populated }

// NotFoundError is returned when no template exists for a section key.
type NotFoundError struct {
	Section string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("templates: no template for section %q", e.Section)
}

// Store holds every template loaded at startup, keyed by section.
type Store struct {
	templates map[string]*Template
}

// Load reads all .md files in dir. Directories and underscore-prefixed
// files are skipped. The section key is the filename without extension,
// hyphens removed and lowercased (api-key.md -> apikey).
func Load(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("templates: read dir %s: %w", dir, err)
	}

	s := &Store{templates: make(map[string]*Template)}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "_") || !strings.HasSuffix(name, ".md") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("templates: read %s: %w", name, err)
		}

		section := Normalize(strings.TrimSuffix(name, ".md"))
		s.templates[section] = &Template{
			Name:    section,
			Content: strings.TrimSpace(string(content)),
		}
		slog.Debug("Loaded template", "section", section)
	}

	slog.Info("Loaded support message templates", "count", len(s.templates))
	return s, nil
}

// Normalize converts a template filename stem into its section key.
func Normalize(stem string) string {
	return strings.ToLower(strings.ReplaceAll(stem, "-", ""))
}

// Get returns the template for a section key.
func (s *Store) Get(section string) (*Template, error) {
	t, ok := s.templates[section]
	if !ok {
		return nil, &NotFoundError{Section: section}
	}
	return t, nil
}

// Populate substitutes the given markers in a template, exactly once per
// process lifetime. Calling Populate on an already-populated template is
// a no-op: substitution is destructive and running it twice would
// corrupt text that no longer contains the markers.
func (s *Store) Populate(section string, subs map[string]string) error {
	t, err := s.Get(section)
	if err != nil {
		return err
	}
	if t.populated {
		return nil
	}

	t.Content = substitute(t.Content, subs)
	t.populated = true
	return nil
}

// Render substitutes markers into a copy of the template's content,
// leaving the stored template untouched.
func (s *Store) Render(section string, subs map[string]string) (string, error) {
	t, err := s.Get(section)
	if err != nil {
		return "", err
	}
	return substitute(t.Content, subs), nil
}

func substitute(content string, subs map[string]string) string {
	for marker, value := range subs {
		content = strings.ReplaceAll(content, "{{"+marker+"}}", value)
	}
	return content
}
