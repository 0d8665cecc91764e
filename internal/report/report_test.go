package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"remedy/internal/aggregate"
	"remedy/internal/diag"
	"remedy/internal/fsys"
	"remedy/internal/observ"
)

var stamp = time.Date(2024, 5, 2, 14, 3, 9, 0, time.UTC)

func classified(t *testing.T, path string, line uint32, sev diag.Severity, cat diag.Category, msg string) *diag.Diagnostic {
	t.Helper()
	d := &diag.Diagnostic{SourcePath: path, Line: line, Column: 1, Severity: sev, Message: msg, Module: "App"}
	require.NoError(t, d.Classify(cat, string(cat), nil))
	return d
}

func sampleTracker() *Tracker {
	tr := NewTracker()
	tr.RecordModification(diag.ModificationRecord{Path: "b.swift", RuleID: "r2", Line: 9, Timestamp: stamp})
	tr.RecordModification(diag.ModificationRecord{Path: "a.swift", RuleID: "r1", Line: 4, Timestamp: stamp})
	tr.RecordModification(diag.ModificationRecord{Path: "a.swift", RuleID: "r1", Line: 2, Timestamp: stamp})
	tr.RecordIssue(diag.Issue{Kind: diag.TransformMismatch, Path: "c.swift", Line: 3, Reason: "text changed"})
	tr.RecordIssue(diag.Issue{Kind: diag.ClassificationMiss, Path: "d.swift", Line: 1, Reason: "no rule"})
	tr.RecordIssue(diag.Issue{Kind: diag.ParseError, Line: 17, Reason: "bad line"})
	tr.RecordSkip(diag.Skip{Path: "e.swift", Reason: "already applied"})
	tr.RecordState("a.swift", diag.Modified)
	tr.RecordState("c.swift", diag.BackedUp)
	return tr
}

func TestTrackerQueries(t *testing.T) {
	tr := sampleTracker()

	assert.Equal(t, []string{"a.swift", "b.swift"}, tr.ModifiedFiles())
	assert.Equal(t, 3, tr.RulesApplied())

	mods := tr.Modifications()
	require.Len(t, mods, 3)
	assert.Equal(t, uint32(2), mods[0].Line)
	assert.Equal(t, "b.swift", mods[2].Path)

	failures := tr.Failures()
	require.Len(t, failures, 2)
	for _, f := range failures {
		assert.True(t, f.Kind.IsFailure())
	}
	assert.Len(t, tr.Misses(), 1)
	assert.Equal(t, 1, tr.Count(diag.ParseError))
	assert.Len(t, tr.Skips(), 1)
	assert.Equal(t, []FileStateEntry{
		{Path: "a.swift", State: diag.Modified},
		{Path: "c.swift", State: diag.BackedUp},
	}, tr.States())
}

func TestTrackerConcurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.RecordModification(diag.ModificationRecord{Path: "f.swift", Line: uint32(i + 1)})
			tr.RecordSkip(diag.Skip{Path: "g.swift", Reason: "x"})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 16, tr.RulesApplied())
	assert.Len(t, tr.Skips(), 16)
}

func TestBuild(t *testing.T) {
	diags := []*diag.Diagnostic{
		classified(t, "a.swift", 2, diag.SevError, diag.CatMissingMember, "type 'X' has no member 'y'"),
		classified(t, "a.swift", 4, diag.SevError, diag.CatMissingMember, "type 'X' has no member 'z'"),
		classified(t, "b.swift", 9, diag.SevWarning, diag.CatGeneralWarning, "unused"),
	}
	tm := observ.NewTimer()
	tm.End(tm.Begin(observ.PhaseIngest), "")
	timings := tm.Report()

	r := Build(Input{
		RunID:     "run-1",
		Mode:      ModeApply,
		Root:      "/proj",
		StartedAt: stamp,
		Summary:   aggregate.Aggregate(diags),
		Tracker:   sampleTracker(),
		Timings:   &timings,
	})

	assert.Equal(t, Totals{
		Diagnostics:   3,
		Errors:        2,
		Warnings:      1,
		ModifiedFiles: 2,
		RulesApplied:  3,
		Failures:      2,
		ParseErrors:   1,
		Misses:        1,
	}, r.Totals)
	require.Len(t, r.Files, 2)
	assert.Equal(t, "a.swift", r.Files[0].Path)
	assert.Len(t, r.Files[0].Diagnostics, 2)
	assert.Equal(t, diag.CatMissingMember, r.Files[0].Diagnostics[0].Category)
	assert.Equal(t, diag.CatMissingMember, r.Categories[0].Category)
	assert.True(t, r.HasFailures())
}

func TestBuildRankedFilesAndRemediable(t *testing.T) {
	later := classified(t, "a.swift", 9, diag.SevError, diag.CatMissingMember, "type 'X' has no member 'z'")
	later.Notes = []string{"completion(nil, error: X.z)"}
	shared := classified(t, "s.swift", 1, diag.SevWarning, diag.CatGeneralWarning, "unused")
	shared.Module = "Other"
	diags := []*diag.Diagnostic{
		later,
		classified(t, "a.swift", 2, diag.SevError, diag.CatMissingMember, "type 'X' has no member 'y'"),
		classified(t, "s.swift", 1, diag.SevWarning, diag.CatGeneralWarning, "unused"),
		shared,
		classified(t, "s.swift", 5, diag.SevWarning, diag.CatGeneralWarning, "unused"),
	}
	r := Build(Input{
		Mode:    ModeDryRun,
		Summary: aggregate.Aggregate(diags),
		Remediable: func(c diag.Category) bool {
			return c == diag.CatMissingMember
		},
	})

	require.Len(t, r.RankedFiles, 2)
	assert.Equal(t, aggregate.FileCount{Path: "s.swift", Total: 3, Warnings: 3, Modules: 2}, r.RankedFiles[0])
	assert.Equal(t, "a.swift", r.RankedFiles[1].Path)

	assert.Equal(t, []RemediableCategory{
		{Category: diag.CatMissingMember, Count: 2, Files: []string{"a.swift"}},
	}, r.Remediable)

	var a FileReport
	for _, fr := range r.Files {
		if fr.Path == "a.swift" {
			a = fr
		}
	}
	require.Len(t, a.Diagnostics, 2)
	// per-file entries are in source order, not log order
	assert.Equal(t, uint32(2), a.Diagnostics[0].Line)
	assert.Equal(t, uint32(9), a.Diagnostics[1].Line)
	assert.Equal(t, []string{"completion(nil, error: X.z)"}, a.Diagnostics[1].Notes)
}

func TestBuildEmpty(t *testing.T) {
	r := Build(Input{Mode: ModeClassify})
	assert.Equal(t, Totals{}, r.Totals)
	assert.False(t, r.HasFailures())

	r = Build(Input{Mode: ModeApply, Partial: true})
	assert.True(t, r.HasFailures())
}

func TestWriteJSONAndYAML(t *testing.T) {
	r := Build(Input{
		RunID:   "run-2",
		Mode:    ModeDryRun,
		Summary: aggregate.Aggregate([]*diag.Diagnostic{classified(t, "a.swift", 1, diag.SevError, diag.CatTypeNotFound, "cannot find type 'T' in scope")}),
		Tracker: sampleTracker(),
	})

	var jb bytes.Buffer
	require.NoError(t, WriteJSON(&jb, r))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(jb.Bytes(), &decoded))
	assert.Equal(t, "dry-run", decoded["mode"])
	assert.Contains(t, jb.String(), `"severity": "error"`)
	assert.Contains(t, jb.String(), `"kind": "TransformMismatch"`)

	var yb bytes.Buffer
	require.NoError(t, WriteYAML(&yb, r))
	var ydecoded map[string]any
	require.NoError(t, yaml.Unmarshal(yb.Bytes(), &ydecoded))
	assert.Equal(t, "run-2", ydecoded["run_id"])
	assert.True(t, strings.Contains(yb.String(), "state: modified"))
}

func TestJournalRoundTrip(t *testing.T) {
	fs := fsys.NewMemory("/proj", nil)
	name := JournalName(".remedy/backups", "20240502_140309")
	assert.Equal(t, ".remedy/backups/journal-20240502_140309.mp", name)

	j := &Journal{RunID: "run-3", Root: "/proj", Started: stamp, Records: sampleTracker().Modifications()}
	require.NoError(t, WriteJournal(fs, name, j))

	got, err := ReadJournal(strings.NewReader(fs.Content(name)))
	require.NoError(t, err)
	assert.Equal(t, "run-3", got.RunID)
	assert.True(t, got.Started.Equal(stamp))
	require.Len(t, got.Records, 3)
	assert.Equal(t, "r1", got.Records[0].RuleID)
}

func TestReadJournalRejectsGarbage(t *testing.T) {
	_, err := ReadJournal(strings.NewReader("not msgpack at all"))
	assert.Error(t, err)
}
