package ingest

import (
	"strings"

	"remedy/internal/diag"
	"remedy/internal/fsys"
)

// Reconcile tries to give diagnostics without coordinates a real path by
// matching filename-like tokens against paths already seen in the log, then
// against the project listing. Tokens come from the marker prefix first, then
// the message, then the context lines. Only unique matches are taken. It returns how many diagnostics were resolved.
func Reconcile(diags []*diag.Diagnostic, fs fsys.FS) int {
	var pending []*diag.Diagnostic
	known := make([]string, 0, len(diags))
	seen := make(map[string]bool)
	for _, d := range diags {
		if d.Unresolved {
			pending = append(pending, d)
			continue
		}
		if d.SourcePath != "" && d.SourcePath != diag.UnknownPath && !seen[d.SourcePath] {
			seen[d.SourcePath] = true
			known = append(known, d.SourcePath)
		}
	}
	if len(pending) == 0 {
		return 0
	}

	var listing []string
	listed := false
	resolved := 0
	for _, d := range pending {
		tokens := fileTokens(d)
		match, ok := uniqueMatch(tokens, known)
		if !ok && fs != nil {
			if !listed {
				listing, _ = fs.List(".")
				listed = true
			}
			match, ok = uniqueMatch(tokens, listing)
		}
		if !ok {
			continue
		}
		d.SourcePath = match
		d.Unresolved = false
		resolved++
	}
	if resolved > 0 {
		Reassociate(diags)
	}
	return resolved
}

func fileTokens(d *diag.Diagnostic) []string {
	var out []string
	add := func(s string) {
		for _, tok := range fileTokenRe.FindAllString(s, -1) {
			tok = strings.TrimPrefix(tok, "./")
			if tok != "" {
				out = append(out, tok)
			}
		}
	}
	add(d.Hint)
	add(d.Message)
	for _, line := range d.Context {
		// строки других диагностик указывают на свои файлы
		if diagnosticRe.MatchString(line) || markerRe.MatchString(line) {
			continue
		}
		add(line)
	}
	return out
}

// uniqueMatch returns the single candidate equal to, or ending in, one of the
// tokens. Tokens are tried in order; the first token with exactly one
// matching candidate wins.
func uniqueMatch(tokens, candidates []string) (string, bool) {
	for _, tok := range tokens {
		var found string
		n := 0
		for _, c := range candidates {
			if c == tok || strings.HasSuffix(c, "/"+tok) {
				if n == 0 || c != found {
					found = c
					n++
				}
			}
		}
		if n == 1 {
			return found, true
		}
	}
	return "", false
}
