package fix

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"remedy/internal/config"
	"remedy/internal/diag"
)

var (
	// ErrMismatch: the transform expected something the file does not contain.
	ErrMismatch = errors.New("transform mismatch")
	// ErrNotApplicable: no remedy is configured for this particular instance.
	ErrNotApplicable = errors.New("not applicable")
)

// Transform rewrites buf for one diagnostic. It must be pure: changed=false
// with a nil error means the fix is already present.
type Transform func(buf []byte, d *diag.Diagnostic) (out []byte, changed bool, err error)

func requireCapture(d *diag.Diagnostic, names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, name := range names {
		v, ok := d.Capture(name)
		if !ok {
			return nil, fmt.Errorf("%w: diagnostic has no %q capture", ErrMismatch, name)
		}
		out[i] = v
	}
	return out, nil
}

func reportedLine(buf []byte, d *diag.Diagnostic) (span, error) {
	sp, ok := lineSpan(buf, d.Line)
	if !ok {
		return span{}, fmt.Errorf("%w: line %d is out of range", ErrMismatch, d.Line)
	}
	return sp, nil
}

// RenameMember replaces ".member" with ".replacement" on the reported line,
// using the member table.
func RenameMember(table config.Remediation) Transform {
	return func(buf []byte, d *diag.Diagnostic) ([]byte, bool, error) {
		caps, err := requireCapture(d, "type", "member")
		if err != nil {
			return nil, false, err
		}
		typ, member := caps[0], caps[1]
		repl, ok := table.MemberReplacement(typ, member)
		if !ok {
			return nil, false, fmt.Errorf("%w: no replacement for %s.%s", ErrNotApplicable, typ, member)
		}
		sp, err := reportedLine(buf, d)
		if err != nil {
			return nil, false, err
		}
		line := buf[sp.Start:sp.End]
		oldRe := regexp.MustCompile(`\.` + regexp.QuoteMeta(member) + `\b`)
		if !oldRe.Match(line) {
			if regexp.MustCompile(`\.` + regexp.QuoteMeta(repl) + `\b`).Match(line) {
				return buf, false, nil
			}
			return nil, false, fmt.Errorf("%w: .%s not found on line %d", ErrMismatch, member, d.Line)
		}
		fixed := oldRe.ReplaceAllLiteral(line, []byte("."+repl))
		out, err := replaceSpan(buf, sp, string(fixed), string(line))
		return out, err == nil, err
	}
}

// RemoveExtraBrace blanks a line that holds nothing but a closing brace.
// The line itself stays so that later line numbers remain valid.
func RemoveExtraBrace(buf []byte, d *diag.Diagnostic) ([]byte, bool, error) {
	sp, err := reportedLine(buf, d)
	if err != nil {
		return nil, false, err
	}
	line := buf[sp.Start:sp.End]
	switch trimmed := bytes.TrimSpace(line); {
	case len(trimmed) == 0:
		return buf, false, nil
	case string(trimmed) == "}":
		out, err := replaceSpan(buf, sp, "", string(line))
		return out, err == nil, err
	case bytes.Contains(trimmed, []byte("}")):
		return nil, false, fmt.Errorf("%w: brace shares line %d with other code", ErrNotApplicable, d.Line)
	default:
		return nil, false, fmt.Errorf("%w: no closing brace on line %d", ErrMismatch, d.Line)
	}
}

// UnescapeQuotes turns \" back into " inside an @available attribute.
func UnescapeQuotes(buf []byte, d *diag.Diagnostic) ([]byte, bool, error) {
	sp, err := reportedLine(buf, d)
	if err != nil {
		return nil, false, err
	}
	line := buf[sp.Start:sp.End]
	if !bytes.Contains(line, []byte("@available")) {
		return nil, false, fmt.Errorf("%w: line %d is not an @available attribute", ErrNotApplicable, d.Line)
	}
	if !bytes.Contains(line, []byte(`\"`)) {
		return buf, false, nil
	}
	fixed := bytes.ReplaceAll(line, []byte(`\"`), []byte(`"`))
	out, err := replaceSpan(buf, sp, string(fixed), string(line))
	return out, err == nil, err
}

// closureTypeRe matches a parenthesised function type, optionally attributed:
// "() -> V", "(() -> V)?", "@MainActor (Int) -> V".
var closureTypeRe = regexp.MustCompile(`^(?:@[A-Za-z_]+\s+)*\(.*->`)

// AnnotateSendable marks a closure-typed stored property @Sendable.
func AnnotateSendable(buf []byte, d *diag.Diagnostic) ([]byte, bool, error) {
	caps, err := requireCapture(d, "property")
	if err != nil {
		return nil, false, err
	}
	prop := caps[0]
	sp, err := reportedLine(buf, d)
	if err != nil {
		return nil, false, err
	}
	line := string(buf[sp.Start:sp.End])
	declRe := regexp.MustCompile(`\b(?:let|var)\s+` + regexp.QuoteMeta(prop) + `\s*:\s*`)
	loc := declRe.FindStringIndex(line)
	if loc == nil {
		return nil, false, fmt.Errorf("%w: no declaration of %q on line %d", ErrMismatch, prop, d.Line)
	}
	typeStart := loc[1]
	typ := line[typeStart:]
	if strings.HasPrefix(typ, "@Sendable") || strings.HasPrefix(typ, "(@Sendable") {
		return buf, false, nil
	}
	// "[K: () -> V]" or "Result<() -> V, E>" would take the attribute in the wrong place
	if !closureTypeRe.MatchString(typ) {
		return nil, false, fmt.Errorf("%w: %q is not closure-typed", ErrNotApplicable, prop)
	}
	// (() -> Void)? takes the attribute inside the optional's parentheses.
	if strings.HasPrefix(typ, "((") {
		typeStart++
	}
	out := insertAt(buf, sp.Start+typeStart, "@Sendable ")
	return out, true, nil
}

var importLineRe = regexp.MustCompile(`^\s*(?:@[A-Za-z_]+(?:\([^)]*\))?\s+)*import\s+(?:(?:typealias|struct|class|enum|protocol|let|var|func)\s+)?[A-Za-z_]`)

// EnsureStatement inserts the statement chosen by pick after the last import
// line (or at the top of the file) unless a line already holds it.
func EnsureStatement(pick func(d *diag.Diagnostic) (string, error)) Transform {
	return func(buf []byte, d *diag.Diagnostic) ([]byte, bool, error) {
		stmt, err := pick(d)
		if err != nil {
			return nil, false, err
		}
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			return nil, false, fmt.Errorf("%w: empty statement", ErrNotApplicable)
		}

		insertOff := 0
		off := 0
		for off < len(buf) {
			end := len(buf)
			next := len(buf)
			if idx := bytes.IndexByte(buf[off:], '\n'); idx >= 0 {
				end = off + idx
				next = end + 1
			}
			line := strings.TrimRight(string(buf[off:end]), "\r")
			if strings.TrimSpace(line) == stmt {
				return buf, false, nil
			}
			if importLineRe.MatchString(line) {
				insertOff = next
			}
			off = next
		}

		eol := lineEnding(buf)
		text := stmt + eol
		if insertOff == len(buf) && len(buf) > 0 && buf[len(buf)-1] != '\n' {
			// Last import line had no terminator.
			text = eol + stmt + eol
		}
		return insertAt(buf, insertOff, text), true, nil
	}
}

// ImportForType picks the configured statement for the "type" capture.
func ImportForType(table config.Remediation) func(d *diag.Diagnostic) (string, error) {
	return func(d *diag.Diagnostic) (string, error) {
		caps, err := requireCapture(d, "type")
		if err != nil {
			return "", err
		}
		stmt, ok := table.ImportFor(caps[0])
		if !ok {
			return "", fmt.Errorf("%w: no import configured for %s", ErrNotApplicable, caps[0])
		}
		return stmt, nil
	}
}
