package ingest

import "regexp"

var (
	// path.ext:line[:col]: severity: message
	// Coordinates are captured loosely so that malformed numbers surface as
	// parse errors instead of silently falling through.
	diagnosticRe = regexp.MustCompile(`^\s*([^\s:][^:]*?\.[A-Za-z0-9_+]+):([^:\s]+)(?::([^:\s]+))?: (fatal error|error|warning): (.*)$`)

	// INFO: From Compiling Swift module //Sources/Foo:Foo:
	moduleRe = regexp.MustCompile(`^INFO: From Compiling (?:[A-Za-z+#]+ )?module (\S+?):?\s*$`)

	// A severity marker with no usable coordinates.
	markerRe = regexp.MustCompile(`\b(fatal error|error|warning):\s*(.*)$`)

	// Bazel status lines carry upper-case markers and are not diagnostics.
	statusRe = regexp.MustCompile(`^(INFO|ERROR|WARNING|DEBUG|FATAL|Target|Use --|Build completed|Executed|Elapsed time)\b`)

	// A standalone severity word, e.g. "something error happened".
	bareWordRe = regexp.MustCompile(`\b(error|warning)\b`)

	// Compiler summaries such as "2 errors generated." are not diagnostics.
	summaryRe = regexp.MustCompile(`^\d+ (?:errors?|warnings?)(?: and \d+ warnings?)? generated\.?\s*$`)

	// Source excerpts printed under a diagnostic: "12 | let x = y", "   |   ^".
	excerptRe = regexp.MustCompile(`^\s*\d*\s*\|`)

	// Filename-like tokens used to reconcile diagnostics without coordinates.
	fileTokenRe = regexp.MustCompile(`[A-Za-z0-9_./+-]*[A-Za-z0-9_+-]\.[A-Za-z][A-Za-z0-9]*\b`)
)
