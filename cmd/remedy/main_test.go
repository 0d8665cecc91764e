package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remedy/internal/aggregate"
	"remedy/internal/diag"
	"remedy/internal/report"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadModes(t *testing.T) {
	m, err := readUIMode(" ON ")
	require.NoError(t, err)
	assert.Equal(t, uiModeOn, m)
	_, err = readUIMode("sometimes")
	assert.Error(t, err)

	f, err := readFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, formatYAML, f)
	f, err = readFormat("short")
	require.NoError(t, err)
	assert.Equal(t, formatShort, f)
	_, err = readFormat("markdown")
	assert.Error(t, err)

	c, err := readColorMode("off")
	require.NoError(t, err)
	assert.False(t, c)
}

func TestCategoryTitle(t *testing.T) {
	assert.Equal(t, "Missing Member", categoryTitle(diag.CatMissingMember))
	assert.Equal(t, "Swift6 Language Mode", categoryTitle(diag.CatSwift6LanguageMode))
}

func TestRenderTextRankedFiles(t *testing.T) {
	rep := &report.Report{
		Mode: report.ModeDryRun,
		RankedFiles: []aggregate.FileCount{
			{Path: "Shared.swift", Total: 3, Errors: 3, Modules: 3},
			{Path: "B.swift", Total: 2, Errors: 2, Modules: 1},
			{Path: "C.swift", Total: 1, Errors: 1, Modules: 1},
		},
		Remediable: []report.RemediableCategory{
			{Category: diag.CatMissingMember, Count: 4, Files: []string{"Shared.swift", "B.swift", "C.swift"}},
		},
		Files: []report.FileReport{{
			Path: "B.swift", Module: "B", Total: 1, Errors: 1,
			Diagnostics: []report.DiagnosticEntry{{
				Line: 3, Column: 5, Severity: diag.SevError, Category: diag.CatMissingMember,
				Message: "type 'X' has no member 'y'", Notes: []string{"completion(nil, error: X.y)"},
			}},
		}},
	}
	var buf bytes.Buffer
	renderText(&buf, rep, textOpts{MaxFiles: 2})
	out := buf.String()

	assert.Contains(t, out, "top files:")
	assert.Contains(t, out, "3 modules")
	assert.Less(t, strings.Index(out, "Shared.swift"), strings.Index(out, "B.swift"))
	assert.Contains(t, out, "fixable:")
	assert.Contains(t, out, "Shared.swift, B.swift\n")
	assert.NotContains(t, out, "C.swift")
	assert.Contains(t, out, "      completion(nil, error: X.y)\n")
}

func TestClassifyCommandJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Sources/A.swift"), "foo()\n")
	logPath := filepath.Join(dir, "build.log")
	writeFile(t, logPath, "Sources/A.swift:1:1: error: cannot find 'foo' in scope\nSources/B.swift:2:1: warning: variable 'x' was never used\n")

	out, err := execute(t, "classify", "--root", dir, "--format", "json", "--color", "off", logPath)
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, report.ModeClassify, rep.Mode)
	assert.Equal(t, 2, rep.Totals.Diagnostics)
	assert.Equal(t, 1, rep.Totals.Errors)
	assert.Equal(t, 1, rep.Totals.Warnings)
	assert.Equal(t, "foo()\n", readFile(t, filepath.Join(dir, "Sources/A.swift")))
}

func TestClassifyCommandShortFormat(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "build.log")
	writeFile(t, logPath, "Sources/B.swift:2:1: warning: variable 'x' was never used\nSources/A.swift:1:1: error: cannot find 'foo' in scope\n")

	out, err := execute(t, "classify", "--root", dir, "--format", "short", logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Sources/A.swift:1:1: error [missing_function] cannot find 'foo' in scope", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Sources/B.swift:2:1: warning ["), lines[1])
}

func TestClassifyCommandParseErrorExitsTwo(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "build.log")
	writeFile(t, logPath, "Sources/A.swift:1:1: error: cannot find 'foo' in scope\ngarbage text error without coordinates\n")

	out, err := execute(t, "classify", "--root", dir, "--color", "off", logPath)
	var exit *exitError
	require.True(t, errors.As(err, &exit), "got %v", err)
	assert.Equal(t, 2, exit.code)
	assert.Contains(t, out, "Missing Function")
	assert.Contains(t, out, "failures:")
	assert.Contains(t, out, "ParseError")
}

func TestClassifyCommandFatal(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "classify", "--root", dir, filepath.Join(dir, "missing.log"))
	require.Error(t, err)
	var exit *exitError
	assert.False(t, errors.As(err, &exit))

	_, err = execute(t, "classify", "--root", dir, "--format", "csv", filepath.Join(dir, "missing.log"))
	assert.Error(t, err)
}

func TestRemediateApplyAndJournal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Sources", "Service.swift")
	writeFile(t, src, "import Foundation\n        throw XPCSecurityError.operationFailed\n")
	logPath := filepath.Join(dir, "build.log")
	writeFile(t, logPath, src+":2:15: error: type 'XPCSecurityError' has no member 'operationFailed'\n")

	out, err := execute(t, "remediate", "--root", dir, "--dry-run", "--ui", "off", "--color", "off", logPath)
	require.NoError(t, err)
	assert.Contains(t, out, "would modify:")
	assert.Contains(t, readFile(t, src), "operationFailed")

	out, err = execute(t, "remediate", "--root", dir, "--apply", "--ui", "off", "--color", "off", "--jobs", "2", logPath)
	require.NoError(t, err)
	assert.Contains(t, out, "modified:")
	assert.Contains(t, readFile(t, src), "XPCSecurityError.internalError")

	journals, err := filepath.Glob(filepath.Join(dir, ".remedy", "backups", "journal-*.mp"))
	require.NoError(t, err)
	require.Len(t, journals, 1)

	out, err = execute(t, "journal", "--format", "json", journals[0])
	require.NoError(t, err)
	var j report.Journal
	require.NoError(t, json.Unmarshal([]byte(out), &j))
	require.Len(t, j.Records, 1)
	assert.Equal(t, "missing_member.rename", j.Records[0].RuleID)
	assert.True(t, strings.HasSuffix(j.Records[0].BackupPath, ".bak"))
}

func TestRemediateRejectsConflictingModes(t *testing.T) {
	_, err := execute(t, "remediate", "--dry-run", "--apply", "x.log")
	assert.Error(t, err)
}

func TestVersionCommandJSON(t *testing.T) {
	out, err := execute(t, "version", "--format", "json", "--full")
	require.NoError(t, err)
	var payload versionPayload
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "remedy", payload.Tool)
	assert.NotContains(t, payload.Version, "\x1b")
	assert.Equal(t, "unknown", payload.GitCommit)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
