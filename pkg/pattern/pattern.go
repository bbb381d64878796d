// Package pattern provides pluggable pattern tables that describe how the
// structure of a family of normative documents is recognized line by line.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrPatternNotFound is returned when a table is not registered.
var ErrPatternNotFound = errors.New("pattern table not found")

// Table defines the grammar of structural patterns for one family of documents.
type Table struct {
	// Metadata
	Name         string `yaml:"name" json:"name"`
	Version      string `yaml:"version" json:"version"`
	Jurisdiction string `yaml:"jurisdiction" json:"jurisdiction"`
	ID           string `yaml:"id" json:"id"`
	Description  string `yaml:"description,omitempty" json:"description,omitempty"`

	// Levels is the classifier cascade, evaluated in order, first match wins.
	Levels []Level `yaml:"levels" json:"levels"`

	// PageMarker matches page marker lines; group 1 is the page number.
	PageMarker string `yaml:"page_marker" json:"page_marker"`

	// Trash lines are dropped before classification.
	Trash []string `yaml:"trash,omitempty" json:"trash,omitempty"`

	// Revoked marks an element as repealed.
	Revoked string `yaml:"revoked" json:"revoked"`

	// Amendment marks an element as the amended version of a provision.
	Amendment string `yaml:"amendment" json:"amendment"`

	Inclusion InclusionConfig `yaml:"inclusion" json:"inclusion"`

	// RevokedSoleParagraphs lists fragments of sole paragraphs known to be revoked.
	RevokedSoleParagraphs []string `yaml:"revoked_sole_paragraphs,omitempty" json:"revoked_sole_paragraphs,omitempty"`

	// DisplayNames overrides the breadcrumb label of element types.
	DisplayNames map[string]string `yaml:"display_names,omitempty" json:"display_names,omitempty"`

	Detection DetectionConfig `yaml:"detection" json:"detection"`

	compiled *Compiled
}

// Level is one rule of the classifier cascade.
type Level struct {
	Type        string `yaml:"type" json:"type"`
	Pattern     string `yaml:"pattern" json:"pattern"`
	NumberGroup int    `yaml:"number_group,omitempty" json:"number_group,omitempty"`
	Fixed       string `yaml:"fixed,omitempty" json:"fixed,omitempty"`
	Trim        string `yaml:"trim,omitempty" json:"trim,omitempty"`
	Validate    bool   `yaml:"validate,omitempty" json:"validate,omitempty"`
}

// InclusionConfig describes amendment annotations that span several lines.
type InclusionConfig struct {
	Open  string `yaml:"open" json:"open"`
	Close string `yaml:"close" json:"close"`
}

// DetectionConfig decides whether a document is normative text at all.
type DetectionConfig struct {
	Structural              []Indicator `yaml:"structural" json:"structural"`
	Headers                 []Indicator `yaml:"headers" json:"headers"`
	MinStructural           int         `yaml:"min_structural" json:"min_structural"`
	MinStructuralWithHeader int         `yaml:"min_structural_with_header" json:"min_structural_with_header"`
}

// Indicator is a weighted detection pattern.
type Indicator struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Weight  int    `yaml:"weight,omitempty" json:"weight,omitempty"`
}

// Compiled holds every regex of a Table, ready for matching.
type Compiled struct {
	Levels         []*regexp.Regexp
	PageMarker     *regexp.Regexp
	Trash          []*regexp.Regexp
	Revoked        *regexp.Regexp
	Amendment      *regexp.Regexp
	InclusionOpen  *regexp.Regexp
	InclusionClose *regexp.Regexp
	Structural     []*regexp.Regexp
	Headers        []*regexp.Regexp
}

// Compile compiles all regex patterns in the Table.
// Returns an error if any pattern fails to compile.
func (t *Table) Compile() error {
	c := &Compiled{}

	for i, level := range t.Levels {
		re, err := regexp.Compile(level.Pattern)
		if err != nil {
			return fmt.Errorf("compiling level %d (%s) pattern %q: %w", i, level.Type, level.Pattern, err)
		}
		c.Levels = append(c.Levels, re)
	}

	single := []struct {
		name string
		src  string
		dst  **regexp.Regexp
	}{
		{"page_marker", t.PageMarker, &c.PageMarker},
		{"revoked", t.Revoked, &c.Revoked},
		{"amendment", t.Amendment, &c.Amendment},
		{"inclusion.open", t.Inclusion.Open, &c.InclusionOpen},
		{"inclusion.close", t.Inclusion.Close, &c.InclusionClose},
	}
	for _, s := range single {
		if s.src == "" {
			continue
		}
		re, err := regexp.Compile(s.src)
		if err != nil {
			return fmt.Errorf("compiling %s pattern %q: %w", s.name, s.src, err)
		}
		*s.dst = re
	}

	for i, p := range t.Trash {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("compiling trash %d pattern %q: %w", i, p, err)
		}
		c.Trash = append(c.Trash, re)
	}

	for i, ind := range t.Detection.Structural {
		re, err := regexp.Compile(ind.Pattern)
		if err != nil {
			return fmt.Errorf("compiling structural indicator %d pattern %q: %w", i, ind.Pattern, err)
		}
		c.Structural = append(c.Structural, re)
	}
	for i, ind := range t.Detection.Headers {
		re, err := regexp.Compile(ind.Pattern)
		if err != nil {
			return fmt.Errorf("compiling header indicator %d pattern %q: %w", i, ind.Pattern, err)
		}
		c.Headers = append(c.Headers, re)
	}

	t.compiled = c
	return nil
}

// IsCompiled returns true if the table has been compiled.
func (t *Table) IsCompiled() bool {
	return t.compiled != nil
}

// Compiled returns the compiled patterns, or nil before Compile.
func (t *Table) Compiled() *Compiled {
	return t.compiled
}

// Level returns the first level of the given type.
func (t *Table) Level(levelType string) *Level {
	for i := range t.Levels {
		if t.Levels[i].Type == levelType {
			return &t.Levels[i]
		}
	}
	return nil
}

// Validate checks that the table has all required fields.
func (t *Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if t.ID == "" {
		return fmt.Errorf("table id is required")
	}
	if t.Version == "" {
		return fmt.Errorf("table version is required")
	}
	if len(t.Levels) == 0 {
		return fmt.Errorf("at least one level is needed for classification")
	}
	if t.PageMarker == "" {
		return fmt.Errorf("page_marker is required")
	}
	return nil
}
