package fix

import (
	"errors"
	"strings"
	"testing"

	"remedy/internal/config"
	"remedy/internal/diag"
)

func classified(t *testing.T, path string, line uint32, cat diag.Category, caps diag.Captures) *diag.Diagnostic {
	t.Helper()
	d := &diag.Diagnostic{SourcePath: path, Line: line, Column: 1, Severity: diag.SevError, Message: string(cat)}
	if err := d.Classify(cat, string(cat), caps); err != nil {
		t.Fatalf("classify: %v", err)
	}
	return d
}

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func TestLineSpan(t *testing.T) {
	buf := []byte("one\r\ntwo\nthree")
	cases := []struct {
		line uint32
		want string
		ok   bool
	}{
		{1, "one", true},
		{2, "two", true},
		{3, "three", true},
		{4, "", false},
		{0, "", false},
	}
	for _, tc := range cases {
		sp, ok := lineSpan(buf, tc.line)
		if ok != tc.ok {
			t.Fatalf("line %d: ok = %v", tc.line, ok)
		}
		if ok && string(buf[sp.Start:sp.End]) != tc.want {
			t.Fatalf("line %d = %q, want %q", tc.line, buf[sp.Start:sp.End], tc.want)
		}
	}
	if _, ok := lineSpan([]byte("a\n"), 2); ok {
		t.Fatalf("no line after the final newline")
	}
}

func TestRenameMember(t *testing.T) {
	tr := RenameMember(config.Default().Remediation)
	caps := diag.Captures{"type": "XPCSecurityError", "member": "operationFailed"}
	src := lines(
		"import Foundation",
		"        throw XPCSecurityError.operationFailed",
	)
	d := classified(t, "A.swift", 2, diag.CatMissingMember, caps)

	out, changed, err := tr([]byte(src), d)
	if err != nil || !changed {
		t.Fatalf("first apply: changed=%v err=%v", changed, err)
	}
	want := lines("import Foundation", "        throw XPCSecurityError.internalError")
	if string(out) != want {
		t.Fatalf("got:\n%s\nwant:\n%s", out, want)
	}

	again, changed, err := tr(out, d)
	if err != nil || changed || string(again) != want {
		t.Fatalf("second apply: changed=%v err=%v", changed, err)
	}

	_, _, err = tr([]byte(lines("import Foundation", "let x = 1")), d)
	if !errors.Is(err, ErrMismatch) {
		t.Fatalf("absent member: err = %v, want ErrMismatch", err)
	}

	other := classified(t, "A.swift", 2, diag.CatMissingMember, diag.Captures{"type": "Foo", "member": "bar"})
	if _, _, err := tr([]byte(src), other); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("unknown member: err = %v, want ErrNotApplicable", err)
	}

	bare := classified(t, "A.swift", 2, diag.CatMissingMember, nil)
	if _, _, err := tr([]byte(src), bare); !errors.Is(err, ErrMismatch) {
		t.Fatalf("missing captures: err = %v, want ErrMismatch", err)
	}

	far := classified(t, "A.swift", 40, diag.CatMissingMember, caps)
	if _, _, err := tr([]byte(src), far); !errors.Is(err, ErrMismatch) {
		t.Fatalf("line out of range: err = %v, want ErrMismatch", err)
	}
}

func TestRemoveExtraBrace(t *testing.T) {
	src := "struct A {\r\n}\r\n}\r\nlet b = 1 }\r\n"
	d := classified(t, "A.swift", 3, diag.CatExtraneousCloseBrace, nil)

	out, changed, err := RemoveExtraBrace([]byte(src), d)
	if err != nil || !changed {
		t.Fatalf("apply: changed=%v err=%v", changed, err)
	}
	if want := "struct A {\r\n}\r\n\r\nlet b = 1 }\r\n"; string(out) != want {
		t.Fatalf("got %q, want %q", out, want)
	}
	if _, changed, err := RemoveExtraBrace(out, d); err != nil || changed {
		t.Fatalf("second apply: changed=%v err=%v", changed, err)
	}

	shared := classified(t, "A.swift", 4, diag.CatExtraneousCloseBrace, nil)
	if _, _, err := RemoveExtraBrace([]byte(src), shared); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("shared line: err = %v", err)
	}
	none := classified(t, "A.swift", 1, diag.CatExtraneousCloseBrace, nil)
	if _, _, err := RemoveExtraBrace([]byte("let a = 1\n"), none); !errors.Is(err, ErrMismatch) {
		t.Fatalf("no brace: err = %v", err)
	}
}

func TestUnescapeQuotes(t *testing.T) {
	src := lines(`@available(*, deprecated, message: \"Use NewAPI\")`, "func old() {}")
	d := classified(t, "A.swift", 1, diag.CatUnterminatedString, nil)

	out, changed, err := UnescapeQuotes([]byte(src), d)
	if err != nil || !changed {
		t.Fatalf("apply: changed=%v err=%v", changed, err)
	}
	if want := lines(`@available(*, deprecated, message: "Use NewAPI")`, "func old() {}"); string(out) != want {
		t.Fatalf("got %q", out)
	}
	if _, changed, err := UnescapeQuotes(out, d); err != nil || changed {
		t.Fatalf("second apply: changed=%v err=%v", changed, err)
	}
	plain := classified(t, "A.swift", 2, diag.CatUnterminatedString, nil)
	if _, _, err := UnescapeQuotes([]byte(src), plain); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("non-attribute line: err = %v", err)
	}
}

func TestAnnotateSendable(t *testing.T) {
	cases := []struct {
		name string
		line string
		want string
	}{
		{"closure", "    let handler: () -> Void", "    let handler: @Sendable () -> Void"},
		{"optional closure", "    var handler: (() -> Void)?", "    var handler: (@Sendable () -> Void)?"},
		{"attributed", "    private let handler : @MainActor (Int) -> Void", "    private let handler : @Sendable @MainActor (Int) -> Void"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := classified(t, "A.swift", 2, diag.CatSendableProperty, diag.Captures{"property": "handler"})
			src := lines("final class Box: Sendable {", tc.line, "}")
			out, changed, err := AnnotateSendable([]byte(src), d)
			if err != nil || !changed {
				t.Fatalf("apply: changed=%v err=%v", changed, err)
			}
			if want := lines("final class Box: Sendable {", tc.want, "}"); string(out) != want {
				t.Fatalf("got %q, want %q", out, want)
			}
			if _, changed, err := AnnotateSendable(out, d); err != nil || changed {
				t.Fatalf("second apply: changed=%v err=%v", changed, err)
			}
		})
	}

	d := classified(t, "A.swift", 1, diag.CatSendableProperty, diag.Captures{"property": "count"})
	if _, _, err := AnnotateSendable([]byte("let count: Int\n"), d); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("non-closure: err = %v", err)
	}
	for _, typ := range []string{"[String: () -> Void]", "Result<() -> Void, Error>", "Array<(Int) -> Void>"} {
		src := "let count: " + typ + "\n"
		out, changed, err := AnnotateSendable([]byte(src), d)
		if !errors.Is(err, ErrNotApplicable) || changed || out != nil {
			t.Fatalf("%s: changed=%v err=%v", typ, changed, err)
		}
	}
	if _, _, err := AnnotateSendable([]byte("let other: Int\n"), d); !errors.Is(err, ErrMismatch) {
		t.Fatalf("no declaration: err = %v", err)
	}
}

func TestEnsureStatement(t *testing.T) {
	tr := EnsureStatement(ImportForType(config.Default().Remediation))
	d := classified(t, "A.swift", 5, diag.CatTypeNotFound, diag.Captures{"type": "XPCSecurityError"})

	src := lines("// header", "import Foundation", "@testable import Core", "", "let e: XPCSecurityError")
	out, changed, err := tr([]byte(src), d)
	if err != nil || !changed {
		t.Fatalf("apply: changed=%v err=%v", changed, err)
	}
	want := lines("// header", "import Foundation", "@testable import Core", "import CoreErrors", "", "let e: XPCSecurityError")
	if string(out) != want {
		t.Fatalf("got:\n%s\nwant:\n%s", out, want)
	}
	if _, changed, err := tr(out, d); err != nil || changed {
		t.Fatalf("second apply: changed=%v err=%v", changed, err)
	}

	out, _, err = tr([]byte("let e: XPCSecurityError\n"), d)
	if err != nil || string(out) != "import CoreErrors\nlet e: XPCSecurityError\n" {
		t.Fatalf("no imports: %q err=%v", out, err)
	}

	out, _, err = tr([]byte("import Foundation"), d)
	if err != nil || string(out) != "import Foundation\nimport CoreErrors\n" {
		t.Fatalf("unterminated import: %q err=%v", out, err)
	}

	alias := classified(t, "A.swift", 1, diag.CatTypeNotFound, diag.Captures{"type": "SPCSecurityError"})
	out, _, err = tr([]byte(lines("import Foundation", "let e: SPCSecurityError")), alias)
	if err != nil || !strings.Contains(string(out), "import Foundation\ntypealias SPCSecurityError = SecurityProtocolsCore.SecurityError\n") {
		t.Fatalf("alias: %q err=%v", out, err)
	}

	unknown := classified(t, "A.swift", 1, diag.CatTypeNotFound, diag.Captures{"type": "Widget"})
	if _, _, err := tr([]byte(src), unknown); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("unconfigured type: err = %v", err)
	}
}
