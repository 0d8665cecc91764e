// Package taxonomy classifies diagnostics into categories using an ordered,
// append-only table of message rules. The first matching rule wins; messages
// no rule recognises fall back to a catch-all category.
package taxonomy

import (
	"fmt"
	"regexp"
	"strings"

	"remedy/internal/config"
	"remedy/internal/diag"
)

// Rule matches a diagnostic message. Named groups in Pattern become the
// diagnostic's captures.
type Rule struct {
	ID       string
	Category diag.Category
	Pattern  *regexp.Regexp
	// Severity restricts the rule to one severity when non-nil.
	Severity *diag.Severity
}

func (r Rule) matches(sev diag.Severity, msg string) (diag.Captures, bool) {
	if r.Severity != nil && *r.Severity != sev {
		return nil, false
	}
	m := r.Pattern.FindStringSubmatch(msg)
	if m == nil {
		return nil, false
	}
	var caps diag.Captures
	for i, name := range r.Pattern.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		if caps == nil {
			caps = make(diag.Captures)
		}
		caps[name] = m[i]
	}
	return caps, true
}

// Table is an ordered rule list. Rules can only be appended, so the priority
// of existing rules never changes.
type Table struct {
	rules []Rule
	ids   map[string]bool
}

// Append adds r at the lowest priority.
func (t *Table) Append(r Rule) error {
	if r.ID == "" || r.Category == "" || r.Pattern == nil {
		return fmt.Errorf("taxonomy: rule needs id, category and pattern")
	}
	if t.ids == nil {
		t.ids = make(map[string]bool)
	}
	if t.ids[r.ID] {
		return fmt.Errorf("taxonomy: duplicate rule id %q", r.ID)
	}
	t.ids[r.ID] = true
	t.rules = append(t.rules, r)
	return nil
}

// Rules returns a copy of the rules in priority order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

func (t *Table) Len() int { return len(t.rules) }

// DefaultTable returns the built-in rules in priority order. type_not_found
// precedes missing_function: "cannot find type 'X' in scope" would otherwise
// be taken for a missing function.
func DefaultTable() *Table {
	t := &Table{}
	for _, r := range []struct {
		cat     diag.Category
		pattern string
	}{
		{diag.CatUnterminatedString, `unterminated string literal`},
		{diag.CatSendableProperty, `stored property '(?P<property>[^']+)' of 'Sendable'-conforming .+? has non-sendable type(?: '(?P<type>[^']+)')?`},
		{diag.CatMissingMember, `(?:type|value of type) '(?P<type>[^']+)' has no member '(?P<member>[^']+)'`},
		{diag.CatTypeNotFound, `cannot find type '(?P<type>[^']+)' in scope`},
		{diag.CatExtraneousCloseBrace, `extraneous '\}' at top level`},
		{diag.CatIncorrectOptional, `initializer for conditional binding must have Optional type`},
		{diag.CatUnwrapOptional, `value of optional type '(?P<type>[^']+)' must be unwrapped`},
		{diag.CatNonSendableCrossActor, `non-sendable type '(?P<type>[^']+)' (?:in|returned by) .+? cannot cross actor boundary`},
		{diag.CatActorIsolation, `(?:task or actor isolated value cannot be sent|actor-isolated .+? can not be (?:referenced|mutated) from)`},
		{diag.CatMissingFunction, `cannot find '(?P<name>[^']+)' in scope`},
		{diag.CatTypeConformance, `(?:type '(?P<type>[^']+)' )?(?:does not|cannot) conform to (?:protocol )?'(?P<protocol>[^']+)'`},
		{diag.CatSwift6LanguageMode, `this is an error in the Swift 6 language mode`},
	} {
		// Built-in patterns are constants; a failure here is a programming error.
		_ = t.Append(Rule{ID: string(r.cat), Category: r.cat, Pattern: regexp.MustCompile(r.pattern)})
	}
	return t
}

// NewTable builds the default table followed by the configured rules.
func NewTable(rules []config.Rule) (*Table, error) {
	t := DefaultTable()
	for _, rc := range rules {
		re, err := regexp.Compile(rc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("taxonomy: rule %q: %w", rc.ID, err)
		}
		r := Rule{ID: rc.ID, Category: diag.Category(rc.Category), Pattern: re}
		if s := strings.TrimSpace(rc.Severity); s != "" {
			sev, ok := diag.ParseSeverity(s)
			if !ok {
				return nil, fmt.Errorf("taxonomy: rule %q: unknown severity %q", rc.ID, rc.Severity)
			}
			r.Severity = &sev
		}
		if err := t.Append(r); err != nil {
			return nil, err
		}
	}
	return t, nil
}
