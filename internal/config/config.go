// Package config defines the immutable settings value handed to every
// pipeline component, and loads it from remedy.toml, .env and the process
// environment.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Config is passed by value; components never mutate it.
type Config struct {
	Ingest      Ingest      `toml:"ingest"`
	Backup      Backup      `toml:"backup"`
	Remediation Remediation `toml:"remediation"`
	Classifier  Classifier  `toml:"classifier"`
	// Rules are appended after the built-in taxonomy, in file order.
	Rules []Rule `toml:"rule"`
}

// Ingest controls log parsing.
type Ingest struct {
	ErrorRadius     int  `toml:"error_radius"`
	WarningRadius   int  `toml:"warning_radius"`
	MaxContextLines int  `toml:"max_context_lines"`
	Dedup           bool `toml:"dedup"`
}

// Backup controls where pre-edit copies go.
type Backup struct {
	// Root is relative to the project root.
	Root        string `toml:"root"`
	StampFormat string `toml:"stamp_format"`
}

// Remediation configures the fix engine and its replacement tables.
type Remediation struct {
	Jobs    int                 `toml:"jobs"`
	Exclude []string            `toml:"exclude"`
	Members []MemberReplacement `toml:"member"`
	Imports []TypeImport        `toml:"import"`
}

// MemberReplacement renames Type.Member to Type.Replacement.
type MemberReplacement struct {
	Type        string `toml:"type"`
	Member      string `toml:"member"`
	Replacement string `toml:"replacement"`
}

// TypeImport is the statement that makes Type visible in a file, e.g.
// "import CoreErrors" or a typealias.
type TypeImport struct {
	Type      string `toml:"type"`
	Statement string `toml:"statement"`
}

// Rule is a user-defined taxonomy rule.
type Rule struct {
	ID       string `toml:"id"`
	Category string `toml:"category"`
	Pattern  string `toml:"pattern"`
	Severity string `toml:"severity"`
}

// Classifier tunes the match cache.
type Classifier struct {
	CacheSize int `toml:"cache_size"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Ingest: Ingest{
			ErrorRadius:     5,
			WarningRadius:   3,
			MaxContextLines: 8,
		},
		Backup: Backup{
			Root:        ".remedy/backups",
			StampFormat: "20060102_150405",
		},
		Remediation: Remediation{
			Jobs: 4,
			Members: []MemberReplacement{
				{Type: "XPCSecurityError", Member: "operationFailed", Replacement: "internalError"},
			},
			Imports: []TypeImport{
				{Type: "XPCSecurityError", Statement: "import CoreErrors"},
				{Type: "SPCSecurityError", Statement: "typealias SPCSecurityError = SecurityProtocolsCore.SecurityError"},
			},
		},
		Classifier: Classifier{CacheSize: 1024},
	}
}

// Validate reports every problem found, joined.
func (c Config) Validate() error {
	var errs []error
	if c.Ingest.ErrorRadius < 0 || c.Ingest.WarningRadius < 0 {
		errs = append(errs, errors.New("ingest: context radius must not be negative"))
	}
	if c.Ingest.MaxContextLines < 0 {
		errs = append(errs, errors.New("ingest: max_context_lines must not be negative"))
	}
	if strings.TrimSpace(c.Backup.Root) == "" {
		errs = append(errs, errors.New("backup: root is required"))
	}
	if strings.TrimSpace(c.Backup.StampFormat) == "" {
		errs = append(errs, errors.New("backup: stamp_format is required"))
	} else if time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC).Format(c.Backup.StampFormat) == c.Backup.StampFormat {
		errs = append(errs, fmt.Errorf("backup: stamp_format %q has no time fields", c.Backup.StampFormat))
	}
	if c.Remediation.Jobs < 1 {
		errs = append(errs, errors.New("remediation: jobs must be at least 1"))
	}
	for _, pat := range c.Remediation.Exclude {
		if !doublestar.ValidatePattern(pat) {
			errs = append(errs, fmt.Errorf("remediation: invalid exclude pattern %q", pat))
		}
	}
	for i, m := range c.Remediation.Members {
		if m.Type == "" || m.Member == "" || m.Replacement == "" {
			errs = append(errs, fmt.Errorf("remediation.member[%d]: type, member and replacement are required", i))
		}
	}
	for i, imp := range c.Remediation.Imports {
		if imp.Type == "" || strings.TrimSpace(imp.Statement) == "" {
			errs = append(errs, fmt.Errorf("remediation.import[%d]: type and statement are required", i))
		}
	}
	seen := make(map[string]bool, len(c.Rules))
	for i, r := range c.Rules {
		if r.ID == "" || r.Category == "" || r.Pattern == "" {
			errs = append(errs, fmt.Errorf("rule[%d]: id, category and pattern are required", i))
			continue
		}
		if seen[r.ID] {
			errs = append(errs, fmt.Errorf("rule[%d]: duplicate id %q", i, r.ID))
		}
		seen[r.ID] = true
		if _, err := regexp.Compile(r.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("rule %q: %w", r.ID, err))
		}
		switch strings.ToLower(r.Severity) {
		case "", "warning", "error", "fatal error", "fatal":
		default:
			errs = append(errs, fmt.Errorf("rule %q: unknown severity %q", r.ID, r.Severity))
		}
	}
	if c.Classifier.CacheSize < 0 {
		errs = append(errs, errors.New("classifier: cache_size must not be negative"))
	}
	return errors.Join(errs...)
}

// MemberReplacement returns the replacement configured for typ.member.
func (r Remediation) MemberReplacement(typ, member string) (string, bool) {
	for _, m := range r.Members {
		if m.Type == typ && m.Member == member {
			return m.Replacement, true
		}
	}
	return "", false
}

// ImportFor returns the statement configured for typ.
func (r Remediation) ImportFor(typ string) (string, bool) {
	for _, imp := range r.Imports {
		if imp.Type == typ {
			return strings.TrimSpace(imp.Statement), true
		}
	}
	return "", false
}
