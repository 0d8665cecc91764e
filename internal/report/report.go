package report

import (
	"time"

	"remedy/internal/aggregate"
	"remedy/internal/diag"
	"remedy/internal/observ"
)

// Mode names the kind of run.
type Mode string

const (
	ModeClassify Mode = "classify"
	ModeDryRun   Mode = "dry-run"
	ModeApply    Mode = "apply"
)

// Totals are the headline numbers of a run.
type Totals struct {
	Diagnostics   int `json:"diagnostics" yaml:"diagnostics"`
	Errors        int `json:"errors" yaml:"errors"`
	Warnings      int `json:"warnings" yaml:"warnings"`
	ModifiedFiles int `json:"modified_files" yaml:"modified_files"`
	RulesApplied  int `json:"rules_applied" yaml:"rules_applied"`
	Failures      int `json:"failures" yaml:"failures"`
	ParseErrors   int `json:"parse_errors" yaml:"parse_errors"`
	Misses        int `json:"classification_misses" yaml:"classification_misses"`
}

// DiagnosticEntry is a diagnostic as it appears in the report.
type DiagnosticEntry struct {
	Line     uint32            `json:"line" yaml:"line"`
	Column   uint32            `json:"column" yaml:"column"`
	Severity diag.Severity     `json:"severity" yaml:"severity"`
	Category diag.Category     `json:"category" yaml:"category"`
	RuleID   string            `json:"rule_id,omitempty" yaml:"rule_id,omitempty"`
	Message  string            `json:"message" yaml:"message"`
	Captures map[string]string `json:"captures,omitempty" yaml:"captures,omitempty"`
	Context  []string          `json:"context,omitempty" yaml:"context,omitempty"`
	Notes    []string          `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// FileReport groups the diagnostics of one file.
type FileReport struct {
	Path        string                    `json:"path" yaml:"path"`
	Module      string                    `json:"module" yaml:"module"`
	Total       int                       `json:"total" yaml:"total"`
	Errors      int                       `json:"errors" yaml:"errors"`
	Warnings    int                       `json:"warnings" yaml:"warnings"`
	Categories  []aggregate.CategoryCount `json:"categories" yaml:"categories"`
	Diagnostics []DiagnosticEntry         `json:"diagnostics" yaml:"diagnostics"`
}

// FileStateEntry is the final state of one target file.
type FileStateEntry struct {
	Path  string         `json:"path" yaml:"path"`
	State diag.FileState `json:"state" yaml:"state"`
}

// RemediableCategory is a category some enabled remedy can act on, with the
// files that carry it in ranking order.
type RemediableCategory struct {
	Category diag.Category `json:"category" yaml:"category"`
	Count    int           `json:"count" yaml:"count"`
	Files    []string      `json:"files" yaml:"files"`
}

// Report is the complete record of one run.
type Report struct {
	RunID         string                    `json:"run_id" yaml:"run_id"`
	Mode          Mode                      `json:"mode" yaml:"mode"`
	Root          string                    `json:"root" yaml:"root"`
	LogPath       string                    `json:"log,omitempty" yaml:"log,omitempty"`
	Journal       string                    `json:"journal,omitempty" yaml:"journal,omitempty"`
	StartedAt     time.Time                 `json:"started_at" yaml:"started_at"`
	FinishedAt    time.Time                 `json:"finished_at" yaml:"finished_at"`
	Totals        Totals                    `json:"totals" yaml:"totals"`
	Categories    []aggregate.CategoryCount `json:"categories" yaml:"categories"`
	Modules       []aggregate.ModuleCount   `json:"modules" yaml:"modules"`
	Files         []FileReport              `json:"files" yaml:"files"`
	RankedFiles   []aggregate.FileCount     `json:"ranked_files" yaml:"ranked_files"`
	Remediable    []RemediableCategory      `json:"remediable,omitempty" yaml:"remediable,omitempty"`
	Modifications []diag.ModificationRecord `json:"modifications,omitempty" yaml:"modifications,omitempty"`
	FileStates    []FileStateEntry          `json:"file_states,omitempty" yaml:"file_states,omitempty"`
	Skipped       []diag.Skip               `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Failures      []diag.Issue              `json:"failures,omitempty" yaml:"failures,omitempty"`
	Misses        []diag.Issue              `json:"classification_misses,omitempty" yaml:"classification_misses,omitempty"`
	Partial       bool                      `json:"partial,omitempty" yaml:"partial,omitempty"`
	Timings       *observ.Report            `json:"timings,omitempty" yaml:"timings,omitempty"`
}

// Input carries everything Build needs.
type Input struct {
	RunID      string
	Mode       Mode
	Root       string
	LogPath    string
	Journal    string
	StartedAt  time.Time
	FinishedAt time.Time
	Summary    aggregate.Summary
	Tracker    *Tracker
	Partial    bool
	Timings    *observ.Report
	// Remediable reports whether any enabled remedy handles a category.
	// Nil leaves Report.Remediable empty.
	Remediable func(diag.Category) bool
}

// Build assembles the report. It reads the tracker but does not change it.
func Build(in Input) *Report {
	tr := in.Tracker
	if tr == nil {
		tr = NewTracker()
	}
	r := &Report{
		RunID:         in.RunID,
		Mode:          in.Mode,
		Root:          in.Root,
		LogPath:       in.LogPath,
		Journal:       in.Journal,
		StartedAt:     in.StartedAt,
		FinishedAt:    in.FinishedAt,
		Categories:    in.Summary.Categories,
		Modules:       in.Summary.Modules,
		Files:         make([]FileReport, 0, len(in.Summary.Files)),
		RankedFiles:   in.Summary.RankedFiles,
		Modifications: tr.Modifications(),
		FileStates:    tr.States(),
		Skipped:       tr.Skips(),
		Failures:      tr.Failures(),
		Misses:        tr.Misses(),
		Partial:       in.Partial,
		Timings:       in.Timings,
	}
	for _, g := range in.Summary.Files {
		fr := FileReport{
			Path:        g.Path,
			Module:      g.Module,
			Total:       g.Total,
			Errors:      g.Errors,
			Warnings:    g.Warnings,
			Categories:  g.Categories,
			Diagnostics: make([]DiagnosticEntry, 0, len(g.Diagnostics)),
		}
		bag := diag.NewBag(len(g.Diagnostics))
		for _, d := range g.Diagnostics {
			bag.Add(d)
		}
		bag.Sort()
		for _, d := range bag.Items() {
			fr.Diagnostics = append(fr.Diagnostics, DiagnosticEntry{
				Line:     d.Line,
				Column:   d.Column,
				Severity: d.Severity,
				Category: d.Category(),
				RuleID:   d.RuleID(),
				Message:  d.Message,
				Captures: d.Captures(),
				Context:  d.Context,
				Notes:    d.Notes,
			})
		}
		r.Files = append(r.Files, fr)
	}
	if in.Remediable != nil {
		for _, c := range in.Summary.Categories {
			if !in.Remediable(c.Category) {
				continue
			}
			r.Remediable = append(r.Remediable, RemediableCategory{
				Category: c.Category,
				Count:    c.Count,
				Files:    in.Summary.FilesIn(c.Category),
			})
		}
	}
	r.Totals = Totals{
		Diagnostics:   in.Summary.Total,
		Errors:        in.Summary.Errors,
		Warnings:      in.Summary.Warnings,
		ModifiedFiles: len(tr.ModifiedFiles()),
		RulesApplied:  tr.RulesApplied(),
		Failures:      len(r.Failures),
		ParseErrors:   tr.Count(diag.ParseError),
		Misses:        len(r.Misses),
	}
	return r
}

// HasFailures reports whether the run should end with a non-zero status.
func (r *Report) HasFailures() bool {
	return r.Totals.Failures > 0 || r.Partial
}
