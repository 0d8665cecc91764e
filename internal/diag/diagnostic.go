package diag

import (
	"errors"
	"fmt"
)

// ErrAlreadyClassified is returned when a category is assigned twice.
var ErrAlreadyClassified = errors.New("diag: diagnostic already classified")

const (
	// UnknownModule is the module of diagnostics seen before any module marker.
	UnknownModule = "Unknown"
	// UnknownPath stands in for diagnostics without coordinates.
	UnknownPath = "unknown"
)

// Captures are the named sub-matches of the rule that classified a diagnostic.
type Captures map[string]string

// Diagnostic is one compiler error or warning line plus its context window.
// Line and Column are 1-based; zero means unknown.
type Diagnostic struct {
	Seq        int
	SourcePath string
	Line       uint32
	Column     uint32
	Severity   Severity
	Message    string
	Context    []string
	Module     string
	LogLine    int
	// Unresolved marks diagnostics whose path came from a marker without
	// coordinates and may still be reconciled against the project tree.
	Unresolved bool
	// Hint is the text before the severity marker of an unresolved line,
	// usually a bare file name without coordinates.
	Hint string
	// Notes are follow-up marker lines without coordinates folded into
	// this diagnostic.
	Notes []string

	category Category
	ruleID   string
	captures Captures
}

// Classify sets the category, rule and captures. It may only be called once.
func (d *Diagnostic) Classify(cat Category, ruleID string, caps Captures) error {
	if d.category != "" {
		return fmt.Errorf("%w: %s:%d", ErrAlreadyClassified, d.SourcePath, d.Line)
	}
	if cat == "" {
		return fmt.Errorf("diag: empty category for %s:%d", d.SourcePath, d.Line)
	}
	d.category = cat
	d.ruleID = ruleID
	d.captures = caps
	return nil
}

func (d *Diagnostic) Category() Category { return d.category }
func (d *Diagnostic) RuleID() string     { return d.ruleID }
func (d *Diagnostic) Classified() bool   { return d.category != "" }

// Capture returns a named capture of the winning rule.
func (d *Diagnostic) Capture(name string) (string, bool) {
	v, ok := d.captures[name]
	return v, ok && v != ""
}

// Captures returns a copy of all captures.
func (d *Diagnostic) Captures() Captures {
	if len(d.captures) == 0 {
		return nil
	}
	out := make(Captures, len(d.captures))
	for k, v := range d.captures {
		out[k] = v
	}
	return out
}

// Located reports whether the diagnostic points at a concrete file line.
func (d *Diagnostic) Located() bool {
	return d.SourcePath != "" && d.SourcePath != UnknownPath && d.Line > 0
}

func (d *Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.SourcePath, d.Line, d.Column, d.Severity, d.Message)
}
