package diag

import (
	"fmt"
	"time"
)

// ModificationRecord describes one remedy applied (or, in a dry run, one that
// would have been applied) to a file.
type ModificationRecord struct {
	Path       string    `json:"path" yaml:"path" msgpack:"path"`
	BackupPath string    `json:"backup_path,omitempty" yaml:"backup_path,omitempty" msgpack:"backup_path"`
	RuleID     string    `json:"rule_id" yaml:"rule_id" msgpack:"rule_id"`
	Line       uint32    `json:"line" yaml:"line" msgpack:"line"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp" msgpack:"timestamp"`
	DryRun     bool      `json:"dry_run,omitempty" yaml:"dry_run,omitempty" msgpack:"dry_run"`
}

// Skip is an item deliberately left alone. It is not a failure.
type Skip struct {
	Path   string `json:"path" yaml:"path"`
	Line   uint32 `json:"line,omitempty" yaml:"line,omitempty"`
	RuleID string `json:"rule_id,omitempty" yaml:"rule_id,omitempty"`
	Reason string `json:"reason" yaml:"reason"`
}

// FileState tracks a target file through a single run.
type FileState uint8

const (
	Unmodified FileState = iota
	BackedUp
	Modified
)

func (s FileState) String() string {
	switch s {
	case Unmodified:
		return "unmodified"
	case BackedUp:
		return "backed_up"
	case Modified:
		return "modified"
	}
	return "unknown"
}

func (s FileState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *FileState) UnmarshalText(text []byte) error {
	for c := Unmodified; c <= Modified; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("diag: unknown file state %q", text)
}

// Advance moves the state forward. Regressions and repeats are rejected.
func (s *FileState) Advance(next FileState) error {
	if next != *s+1 {
		return fmt.Errorf("diag: invalid file state transition %s -> %s", *s, next)
	}
	*s = next
	return nil
}
