package diag

import (
	"fmt"
	"sort"
	"strings"
)

// FormatShort renders diagnostics one per line in a stable order:
//
//	path:line:col: severity [category] message
//
// The input slice is not reordered.
func FormatShort(diags []*Diagnostic) string {
	if len(diags) == 0 {
		return ""
	}
	sorted := make([]*Diagnostic, len(diags))
	copy(sorted, diags)
	bag := &Bag{items: sorted}
	bag.Sort()

	var b strings.Builder
	for i, d := range bag.items {
		cat := string(d.category)
		if cat == "" {
			cat = "-"
		}
		fmt.Fprintf(&b, "%s:%d:%d: %s [%s] %s", d.SourcePath, d.Line, d.Column, d.Severity, cat, sanitizeMessage(d.Message))
		if i < len(bag.items)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// SortIssues orders issues by path, line, kind and reason.
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Reason < b.Reason
	})
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\n", "\\n")
	return strings.TrimSpace(msg)
}
