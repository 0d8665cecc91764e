package report

import (
	"fmt"
	"io"
	"path"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"remedy/internal/diag"
	"remedy/internal/fsys"
)

const journalSchemaVersion uint16 = 1

// Journal lists the modifications of one apply run so that they can be
// audited or rolled back from the backups later.
type Journal struct {
	// Schema version for safe invalidation when format changes
	Schema  uint16                    `msgpack:"schema" json:"schema" yaml:"schema"`
	RunID   string                    `msgpack:"run_id" json:"run_id" yaml:"run_id"`
	Root    string                    `msgpack:"root" json:"root" yaml:"root"`
	Started time.Time                 `msgpack:"started" json:"started" yaml:"started"`
	Records []diag.ModificationRecord `msgpack:"records" json:"records" yaml:"records"`
}

// JournalName is <backupRoot>/journal-<stamp>.mp.
func JournalName(backupRoot, stamp string) string {
	return path.Join(backupRoot, "journal-"+stamp+".mp")
}

// WriteJournal serialises j and stores it under name.
func WriteJournal(fs fsys.FS, name string, j *Journal) error {
	j.Schema = journalSchemaVersion
	data, err := msgpack.Marshal(j)
	if err != nil {
		return fmt.Errorf("report: encode journal: %w", err)
	}
	if err := fs.WriteFile(name, data); err != nil {
		return fmt.Errorf("report: write journal: %w", err)
	}
	return nil
}

// ReadJournal decodes a journal and checks its schema.
func ReadJournal(r io.Reader) (*Journal, error) {
	var j Journal
	if err := msgpack.NewDecoder(r).Decode(&j); err != nil {
		return nil, fmt.Errorf("report: decode journal: %w", err)
	}
	if j.Schema != journalSchemaVersion {
		return nil, fmt.Errorf("report: unsupported journal schema %d", j.Schema)
	}
	return &j, nil
}
