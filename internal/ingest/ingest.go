// Package ingest turns raw compiler and build-system log text into
// diagnostics with location, severity, context window and module attribution.
package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"go.uber.org/zap"

	"remedy/internal/config"
	"remedy/internal/diag"
)

// unresolvedRadius is the context radius for markers without coordinates.
const unresolvedRadius = 3

// Result is the outcome of ingesting one log.
type Result struct {
	Diagnostics []*diag.Diagnostic
	// Issues holds ParseError entries. Ingestion never stops on them.
	Issues []diag.Issue
	Lines  int
	// Deduped counts diagnostics dropped as exact duplicates.
	Deduped int
	// Merged counts marker lines folded into an earlier diagnostic of the
	// same module.
	Merged int
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets the logger used for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingestor) {
		if l != nil {
			in.log = l
		}
	}
}

// Ingestor parses logs. It holds no per-run state and may be reused.
type Ingestor struct {
	cfg config.Ingest
	log *zap.Logger
}

func New(cfg config.Ingest, opts ...Option) *Ingestor {
	in := &Ingestor{cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest parses text in a single pass, then attributes diagnostics seen
// before their module marker to the module already known for their file.
func (in *Ingestor) Ingest(text []byte) *Result {
	text, _ = removeBOM(text)
	text, _ = normalizeCRLF(text)
	text, _ = composeNFC(text)
	lines := splitLines(text)

	res := &Result{Lines: len(lines)}
	bag := diag.NewBag(len(lines) / 4)
	module := diag.UnknownModule
	var last *diag.Diagnostic // последняя диагностика текущего модуля

	for i, raw := range lines {
		if m := moduleRe.FindStringSubmatch(raw); m != nil {
			module = m[1]
			last = nil
			continue
		}

		d, issue, ok := in.parseLine(raw, i+1)
		if issue != nil {
			res.Issues = append(res.Issues, *issue)
			continue
		}
		if !ok {
			continue
		}
		if d.Unresolved && last != nil && !namesFile(d.Hint) {
			// excerpts and follow-ups belong to the earlier diagnostic
			if !isIndented(raw) {
				last.Notes = append(last.Notes, strings.TrimSpace(raw))
			}
			res.Merged++
			continue
		}
		d.Seq = bag.Len()
		d.Module = module
		d.LogLine = i + 1
		radius := in.radius(d)
		d.Context = contextWindow(lines, i, radius, in.cfg.MaxContextLines)
		bag.Add(d)
		last = d
	}

	if in.cfg.Dedup {
		res.Deduped = bag.Dedup()
	}
	res.Diagnostics = bag.Items()
	Reassociate(res.Diagnostics)

	in.log.Debug("log ingested",
		zap.Int("lines", res.Lines),
		zap.Int("diagnostics", len(res.Diagnostics)),
		zap.Int("parse_errors", len(res.Issues)),
		zap.Bool("errors", bag.HasErrors()),
		zap.Bool("warnings", bag.HasWarnings()),
		zap.Int("deduped", res.Deduped),
		zap.Int("merged", res.Merged))
	return res
}

// parseLine recognises one log line. It returns a diagnostic, a parse issue,
// or neither for lines that carry no diagnostic.
func (in *Ingestor) parseLine(raw string, logLine int) (*diag.Diagnostic, *diag.Issue, bool) {
	if m := diagnosticRe.FindStringSubmatch(raw); m != nil {
		sev, _ := diag.ParseSeverity(m[4])
		line, err := parseCoord(m[2], "line")
		if err == nil && line == 0 {
			err = fmt.Errorf("line number must be 1-based")
		}
		var col uint32
		if err == nil && m[3] != "" {
			col, err = parseCoord(m[3], "column")
		}
		if err != nil {
			return nil, parseIssue(logLine, fmt.Sprintf("%v: %s", err, strings.TrimSpace(raw))), false
		}
		return &diag.Diagnostic{
			SourcePath: strings.TrimSpace(m[1]),
			Line:       line,
			Column:     col,
			Severity:   sev,
			Message:    strings.TrimSpace(m[5]),
		}, nil, true
	}

	if statusRe.MatchString(raw) {
		return nil, nil, false
	}

	if loc := markerRe.FindStringSubmatchIndex(raw); loc != nil {
		sev, _ := diag.ParseSeverity(raw[loc[2]:loc[3]])
		msg := strings.TrimSpace(raw[loc[4]:loc[5]])
		if msg == "" {
			msg = strings.TrimSpace(raw)
		}
		return &diag.Diagnostic{
			SourcePath: diag.UnknownPath,
			Severity:   sev,
			Message:    msg,
			Hint:       markerHint(raw[:loc[0]]),
			Unresolved: true,
		}, nil, true
	}

	if isBareSeverityLine(raw) {
		return nil, parseIssue(logLine, "severity marker without coordinates: "+strings.TrimSpace(raw)), false
	}
	return nil, nil, false
}

// markerHint trims the prefix of a marker line down to what may name a file:
// "Sources/A.swift: error: x" gives "Sources/A.swift".
func markerHint(prefix string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(prefix), ":"))
}

// namesFile reports whether a marker prefix carries a file token. Such lines
// report on their own file and are never folded into the previous diagnostic.
func namesFile(hint string) bool {
	return hint != "" && fileTokenRe.MatchString(hint)
}

func isIndented(raw string) bool {
	return raw != "" && (raw[0] == ' ' || raw[0] == '\t') || excerptRe.MatchString(raw)
}

func isBareSeverityLine(raw string) bool {
	if raw == "" || raw[0] == ' ' || raw[0] == '\t' {
		return false
	}
	if excerptRe.MatchString(raw) || summaryRe.MatchString(raw) {
		return false
	}
	for _, loc := range bareWordRe.FindAllStringIndex(raw, -1) {
		if loc[0] > 0 && isPathByte(raw[loc[0]-1]) {
			continue
		}
		if rest := raw[loc[1]:]; rest != "" && isPathByte(rest[0]) {
			// "error." ends a sentence, "error.swift" names a file.
			if rest[0] != '.' || (len(rest) > 1 && isWordByte(rest[1])) {
				continue
			}
		}
		return true
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// isPathByte reports bytes that glue a word into a path or identifier.
func isPathByte(b byte) bool {
	return b == '/' || b == '.' || b == '-' || b == '\\'
}

func parseCoord(s, what string) (uint32, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s number %q", what, s)
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0, fmt.Errorf("%s number %q out of range", what, s)
	}
	return v, nil
}

func parseIssue(logLine int, reason string) *diag.Issue {
	return &diag.Issue{Kind: diag.ParseError, Line: logLine, Reason: reason}
}

func (in *Ingestor) radius(d *diag.Diagnostic) int {
	switch {
	case d.Unresolved:
		return unresolvedRadius
	case d.Severity == diag.SevWarning:
		return in.cfg.WarningRadius
	default:
		return in.cfg.ErrorRadius
	}
}

// contextWindow collects trimmed, non-empty lines around idx, excluding the
// diagnostic line itself, capped at limit (0 means no cap).
func contextWindow(lines []string, idx, radius, limit int) []string {
	if radius <= 0 {
		return nil
	}
	start := max(idx-radius, 0)
	end := min(idx+radius, len(lines)-1)
	out := make([]string, 0, end-start)
	for i := start; i <= end; i++ {
		if i == idx {
			continue
		}
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		out = append(out, line)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Reassociate attributes diagnostics with the Unknown module to the module
// already resolved for the same file, if any.
func Reassociate(diags []*diag.Diagnostic) int {
	known := make(map[string]string)
	for _, d := range diags {
		if d.Module == diag.UnknownModule || !d.Located() {
			continue
		}
		if _, ok := known[d.SourcePath]; !ok {
			known[d.SourcePath] = d.Module
		}
	}
	moved := 0
	for _, d := range diags {
		if d.Module != diag.UnknownModule {
			continue
		}
		if m, ok := known[d.SourcePath]; ok {
			d.Module = m
			moved++
		}
	}
	return moved
}
