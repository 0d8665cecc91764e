package diag

import (
	"fmt"
	"strings"
)

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevWarning is for warning diagnostics.
	SevWarning Severity = iota + 1
	// SevError is for error diagnostics.
	SevError
	// SevFatal is for "fatal error" diagnostics.
	SevFatal
)

func (s Severity) String() string {
	switch s {
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	case SevFatal:
		return "fatal error"
	}
	return "unknown"
}

// ParseSeverity maps the compiler marker text to a Severity.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warning":
		return SevWarning, true
	case "error":
		return SevError, true
	case "fatal error", "fatal":
		return SevFatal, true
	}
	return 0, false
}

// MarshalText encodes the severity by name for JSON and YAML reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	v, ok := ParseSeverity(string(text))
	if !ok {
		return fmt.Errorf("diag: unknown severity %q", text)
	}
	*s = v
	return nil
}
