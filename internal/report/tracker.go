// Package report records what a run did and renders it as a structured
// report and a modification journal.
package report

import (
	"sort"
	"sync"

	"remedy/internal/diag"
)

// Tracker is the single shared sink for per-item outcomes. It is safe for
// concurrent use by remediation workers.
type Tracker struct {
	mu     sync.Mutex
	mods   []diag.ModificationRecord
	issues []diag.Issue
	skips  []diag.Skip
	states map[string]diag.FileState
}

func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]diag.FileState)}
}

func (t *Tracker) RecordModification(m diag.ModificationRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mods = append(t.mods, m)
}

func (t *Tracker) RecordIssue(i diag.Issue) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.issues = append(t.issues, i)
}

// RecordIssues appends several issues at once.
func (t *Tracker) RecordIssues(issues []diag.Issue) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.issues = append(t.issues, issues...)
}

func (t *Tracker) RecordSkip(s diag.Skip) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.skips = append(t.skips, s)
}

func (t *Tracker) RecordState(path string, s diag.FileState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[path] = s
}

// Modifications returns records sorted by path, line and rule.
func (t *Tracker) Modifications() []diag.ModificationRecord {
	t.mu.Lock()
	out := append([]diag.ModificationRecord(nil), t.mods...)
	t.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].RuleID < out[j].RuleID
	})
	return out
}

// ModifiedFiles returns the distinct paths with at least one modification
// record, sorted.
func (t *Tracker) ModifiedFiles() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, m := range t.mods {
		if !seen[m.Path] {
			seen[m.Path] = true
			out = append(out, m.Path)
		}
	}
	sort.Strings(out)
	return out
}

// RulesApplied counts modification records.
func (t *Tracker) RulesApplied() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.mods)
}

// Issues returns every issue, sorted.
func (t *Tracker) Issues() []diag.Issue {
	t.mu.Lock()
	out := append([]diag.Issue(nil), t.issues...)
	t.mu.Unlock()
	diag.SortIssues(out)
	return out
}

// Failures returns the issues that count against the exit status.
func (t *Tracker) Failures() []diag.Issue {
	return t.filter(func(k diag.IssueKind) bool { return k.IsFailure() })
}

// Misses returns classification misses.
func (t *Tracker) Misses() []diag.Issue {
	return t.filter(func(k diag.IssueKind) bool { return k == diag.ClassificationMiss })
}

func (t *Tracker) filter(keep func(diag.IssueKind) bool) []diag.Issue {
	all := t.Issues()
	out := make([]diag.Issue, 0, len(all))
	for _, i := range all {
		if keep(i.Kind) {
			out = append(out, i)
		}
	}
	return out
}

// Count returns the number of issues of kind.
func (t *Tracker) Count(kind diag.IssueKind) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, i := range t.issues {
		if i.Kind == kind {
			n++
		}
	}
	return n
}

// Skips returns skipped items in recording order.
func (t *Tracker) Skips() []diag.Skip {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]diag.Skip(nil), t.skips...)
}

// States returns the final state of every file the run touched, by path.
func (t *Tracker) States() []FileStateEntry {
	t.mu.Lock()
	out := make([]FileStateEntry, 0, len(t.states))
	for p, s := range t.states {
		out = append(out, FileStateEntry{Path: p, State: s})
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
