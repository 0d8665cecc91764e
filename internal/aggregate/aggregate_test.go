package aggregate

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"remedy/internal/diag"
)

func mk(t *testing.T, module, path string, line uint32, sev diag.Severity, cat diag.Category) *diag.Diagnostic {
	t.Helper()
	d := &diag.Diagnostic{Module: module, SourcePath: path, Line: line, Severity: sev, Message: string(cat)}
	if err := d.Classify(cat, string(cat), nil); err != nil {
		t.Fatalf("classify: %v", err)
	}
	return d
}

func TestAggregateRanking(t *testing.T) {
	const core, ui = "//Core:Core", "//UI:UI"
	diags := []*diag.Diagnostic{
		mk(t, core, "Core/A.swift", 1, diag.SevWarning, diag.CatGeneralWarning),
		mk(t, core, "Core/A.swift", 2, diag.SevError, diag.CatMissingFunction),
		mk(t, ui, "UI/B.swift", 3, diag.SevError, diag.CatMissingFunction),
		mk(t, ui, "UI/B.swift", 4, diag.SevError, diag.CatTypeNotFound),
		mk(t, ui, "UI/C.swift", 5, diag.SevError, diag.CatMissingFunction),
		mk(t, ui, "UI/C.swift", 6, diag.SevError, diag.CatTypeNotFound),
	}

	s := Aggregate(diags)

	if s.Total != 6 || s.Errors != 5 || s.Warnings != 1 {
		t.Fatalf("totals = %d/%d/%d", s.Total, s.Errors, s.Warnings)
	}

	wantCats := []CategoryCount{
		{diag.CatMissingFunction, 3},
		{diag.CatTypeNotFound, 2},
		{diag.CatGeneralWarning, 1},
	}
	if diff := cmp.Diff(wantCats, s.Categories); diff != "" {
		t.Fatalf("categories mismatch (-want +got):\n%s", diff)
	}

	gotFiles := make([]string, 0, len(s.Files))
	for _, f := range s.Files {
		gotFiles = append(gotFiles, f.Path)
	}
	// All files have two diagnostics: first-seen order decides.
	if diff := cmp.Diff([]string{"Core/A.swift", "UI/B.swift", "UI/C.swift"}, gotFiles); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}

	wantA := []CategoryCount{{diag.CatGeneralWarning, 1}, {diag.CatMissingFunction, 1}}
	if diff := cmp.Diff(wantA, s.Files[0].Categories); diff != "" {
		t.Fatalf("Core/A.swift breakdown (-want +got):\n%s", diff)
	}

	wantMods := []ModuleCount{
		{Module: ui, Total: 4, Errors: 4, Files: 2},
		{Module: core, Total: 2, Errors: 1, Warnings: 1, Files: 1},
	}
	if diff := cmp.Diff(wantMods, s.Modules); diff != "" {
		t.Fatalf("modules mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateMissingFunctionAcrossFiles(t *testing.T) {
	diags := []*diag.Diagnostic{
		mk(t, "Unknown", "A.swift", 1, diag.SevError, diag.CatMissingFunction),
		mk(t, "Unknown", "B.swift", 2, diag.SevError, diag.CatMissingFunction),
		mk(t, "Unknown", "A.swift", 3, diag.SevError, diag.CatMissingFunction),
	}
	s := Aggregate(diags)
	if got := s.ByCategory[diag.CatMissingFunction]; got != 3 {
		t.Fatalf("missing_function = %d, want 3", got)
	}
	if diff := cmp.Diff([]string{"A.swift", "B.swift"}, s.FilesIn(diag.CatMissingFunction)); diff != "" {
		t.Fatalf("files (-want +got):\n%s", diff)
	}
}

func TestAggregateRankedFilesMergeModules(t *testing.T) {
	diags := []*diag.Diagnostic{
		mk(t, "B", "B.swift", 1, diag.SevError, diag.CatMissingFunction),
		mk(t, "B", "B.swift", 2, diag.SevWarning, diag.CatGeneralWarning),
		mk(t, "A", "Shared.swift", 3, diag.SevError, diag.CatTypeNotFound),
		mk(t, "B", "Shared.swift", 3, diag.SevError, diag.CatTypeNotFound),
		mk(t, "C", "Shared.swift", 3, diag.SevWarning, diag.CatGeneralWarning),
	}
	s := Aggregate(diags)

	want := []FileCount{
		{Path: "Shared.swift", Total: 3, Errors: 2, Warnings: 1, Modules: 3},
		{Path: "B.swift", Total: 2, Errors: 1, Warnings: 1, Modules: 1},
	}
	if diff := cmp.Diff(want, s.RankedFiles); diff != "" {
		t.Fatalf("ranked files (-want +got):\n%s", diff)
	}
	// (module, path) groups stay separate: B.swift leads with 2.
	if s.Files[0].Path != "B.swift" || len(s.Files) != 4 {
		t.Fatalf("groups = %+v", s.Files)
	}
}

func TestAggregateRankedFilesTieKeepsFirstSeen(t *testing.T) {
	diags := []*diag.Diagnostic{
		mk(t, "M", "Z.swift", 1, diag.SevError, diag.CatMissingFunction),
		mk(t, "M", "A.swift", 1, diag.SevError, diag.CatMissingFunction),
	}
	s := Aggregate(diags)
	got := []string{s.RankedFiles[0].Path, s.RankedFiles[1].Path}
	if diff := cmp.Diff([]string{"Z.swift", "A.swift"}, got); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
}

func TestAggregateDoesNotMutate(t *testing.T) {
	d := mk(t, "M", "A.swift", 7, diag.SevError, diag.CatTypeNotFound)
	before := *d
	Aggregate([]*diag.Diagnostic{d})
	if d.Line != before.Line || d.SourcePath != before.SourcePath || d.Category() != before.Category() {
		t.Fatalf("diagnostic was modified")
	}
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil)
	if s.Total != 0 || len(s.Categories) != 0 || len(s.Files) != 0 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}
