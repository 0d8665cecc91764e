package taxonomy

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remedy/internal/config"
	"remedy/internal/diag"
)

func TestDefaultRules(t *testing.T) {
	c := NewClassifier(DefaultTable(), 0, nil)
	cases := []struct {
		sev  diag.Severity
		msg  string
		cat  diag.Category
		caps diag.Captures
	}{
		{diag.SevError, "unterminated string literal", diag.CatUnterminatedString, nil},
		{diag.SevWarning, "stored property 'handler' of 'Sendable'-conforming class 'Box' has non-sendable type '() -> Void'",
			diag.CatSendableProperty, diag.Captures{"property": "handler", "type": "() -> Void"}},
		{diag.SevError, "type 'XPCSecurityError' has no member 'operationFailed'",
			diag.CatMissingMember, diag.Captures{"type": "XPCSecurityError", "member": "operationFailed"}},
		{diag.SevError, "cannot find type 'SecurityConfig' in scope", diag.CatTypeNotFound, diag.Captures{"type": "SecurityConfig"}},
		{diag.SevError, "extraneous '}' at top level", diag.CatExtraneousCloseBrace, nil},
		{diag.SevError, "initializer for conditional binding must have Optional type, not 'Int'", diag.CatIncorrectOptional, nil},
		{diag.SevError, "value of optional type 'String?' must be unwrapped to a value of type 'String'",
			diag.CatUnwrapOptional, diag.Captures{"type": "String?"}},
		{diag.SevWarning, "non-sendable type 'Config' in parameter of the protocol requirement satisfied by actor-isolated instance method cannot cross actor boundary",
			diag.CatNonSendableCrossActor, diag.Captures{"type": "Config"}},
		{diag.SevError, "task or actor isolated value cannot be sent", diag.CatActorIsolation, nil},
		{diag.SevError, "cannot find 'foo' in scope", diag.CatMissingFunction, diag.Captures{"name": "foo"}},
		{diag.SevError, "type 'Store' does not conform to protocol 'Sendable'",
			diag.CatTypeConformance, diag.Captures{"type": "Store", "protocol": "Sendable"}},
		{diag.SevWarning, "capture of 'self' with non-sendable type; this is an error in the Swift 6 language mode", diag.CatSwift6LanguageMode, nil},
	}
	for _, tc := range cases {
		m := c.Match(tc.sev, tc.msg)
		assert.Equal(t, tc.cat, m.Category, tc.msg)
		assert.False(t, m.Fallback, tc.msg)
		for k, v := range tc.caps {
			assert.Equal(t, v, m.Captures[k], "%s: capture %s", tc.msg, k)
		}
	}
}

func TestFallbacks(t *testing.T) {
	c := NewClassifier(DefaultTable(), 16, nil)
	assert.Equal(t, Match{Category: diag.CatGeneralWarning, Fallback: true}, c.Match(diag.SevWarning, "something odd"))
	assert.Equal(t, Match{Category: diag.CatOtherError, Fallback: true}, c.Match(diag.SevError, "something odd"))
	assert.Equal(t, Match{Category: diag.CatOtherError, Fallback: true}, c.Match(diag.SevFatal, "something odd"))
}

func TestFirstMatchWins(t *testing.T) {
	table, err := NewTable([]config.Rule{
		{ID: "shadowed", Category: "custom", Pattern: `cannot find 'foo' in scope`},
		{ID: "warn_only", Category: "deprecated_api", Pattern: `is deprecated`, Severity: "warning"},
	})
	require.NoError(t, err)
	c := NewClassifier(table, 16, nil)

	assert.Equal(t, diag.CatMissingFunction, c.Match(diag.SevError, "cannot find 'foo' in scope").Category)
	assert.Equal(t, diag.Category("deprecated_api"), c.Match(diag.SevWarning, "'x' is deprecated").Category)
	assert.True(t, c.Match(diag.SevError, "'x' is deprecated").Fallback)
}

func TestTableIsAppendOnly(t *testing.T) {
	table := DefaultTable()
	n := table.Len()
	before := table.Rules()
	_, err := NewTable([]config.Rule{{ID: "missing_function", Category: "x", Pattern: "x"}})
	require.Error(t, err, "duplicate id must be rejected")
	require.NoError(t, table.Append(Rule{ID: "extra", Category: "extra", Pattern: before[0].Pattern}))
	after := table.Rules()
	assert.Equal(t, n+1, len(after))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
	}
}

func TestClassifyAllCountsMisses(t *testing.T) {
	diags := []*diag.Diagnostic{
		{SourcePath: "A.swift", Line: 1, Severity: diag.SevError, Message: "cannot find 'foo' in scope"},
		{SourcePath: "A.swift", Line: 2, Severity: diag.SevWarning, Message: "unused"},
		{SourcePath: "B.swift", Line: 3, Severity: diag.SevError, Message: "weird"},
	}
	c := NewClassifier(DefaultTable(), 16, nil)
	st := c.ClassifyAll(diags)
	assert.Equal(t, 1, st.Matched)
	assert.Equal(t, 2, st.Fallbacks)
	require.Len(t, st.Misses, 2)
	assert.Equal(t, diag.ClassificationMiss, st.Misses[0].Kind)
	assert.Equal(t, diag.CatGeneralWarning, diags[1].Category())
	assert.Equal(t, diag.CatOtherError, diags[2].Category())

	// Already classified diagnostics keep their category.
	st = c.ClassifyAll(diags)
	assert.Zero(t, st.Matched+st.Fallbacks)
	assert.Equal(t, 1, st.ByCategory[diag.CatMissingFunction])
}

func TestMatchIsDeterministicUnderConcurrency(t *testing.T) {
	c := NewClassifier(DefaultTable(), 4, nil)
	var wg sync.WaitGroup
	results := make([]Match, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Match(diag.SevError, fmt.Sprintf("cannot find 'f%d' in scope", i%8))
		}(i)
	}
	wg.Wait()
	for i, m := range results {
		assert.Equal(t, diag.CatMissingFunction, m.Category)
		assert.Equal(t, fmt.Sprintf("f%d", i%8), m.Captures["name"])
	}
}
