package diag

import "fmt"

// IssueKind classifies a per-item problem found during a run.
type IssueKind uint8

const (
	// ParseError: a log line looked like a diagnostic but could not be parsed.
	ParseError IssueKind = iota
	// ClassificationMiss: no specific rule matched; a fallback category was used.
	ClassificationMiss
	// TransformMismatch: a remedy could not find what it expected in the file.
	TransformMismatch
	// BackupFailure: the pre-edit copy could not be written or verified.
	BackupFailure
	// IOError: reading or writing a target file failed.
	IOError
)

func (k IssueKind) String() string {
	switch k {
	case ParseError:
		return "ParseError"
	case ClassificationMiss:
		return "ClassificationMiss"
	case TransformMismatch:
		return "TransformMismatch"
	case BackupFailure:
		return "BackupFailure"
	case IOError:
		return "IOError"
	}
	return fmt.Sprintf("IssueKind(%d)", uint8(k))
}

func (k IssueKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *IssueKind) UnmarshalText(text []byte) error {
	for c := ParseError; c <= IOError; c++ {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("diag: unknown issue kind %q", text)
}

// IsFailure reports whether the kind counts against the run's exit status.
// Misses are informational.
func (k IssueKind) IsFailure() bool {
	return k != ClassificationMiss
}

// Issue is a per-item problem. Line refers to the log for ParseError and to
// the source file otherwise.
type Issue struct {
	Kind   IssueKind `json:"kind" yaml:"kind"`
	Path   string    `json:"path,omitempty" yaml:"path,omitempty"`
	Line   int       `json:"line,omitempty" yaml:"line,omitempty"`
	Reason string    `json:"reason" yaml:"reason"`
}

func (i Issue) Error() string {
	if i.Path == "" {
		if i.Line > 0 {
			return fmt.Sprintf("%s: line %d: %s", i.Kind, i.Line, i.Reason)
		}
		return fmt.Sprintf("%s: %s", i.Kind, i.Reason)
	}
	return fmt.Sprintf("%s: %s:%d: %s", i.Kind, i.Path, i.Line, i.Reason)
}
