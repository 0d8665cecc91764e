package fix

import (
	"bytes"
	"fmt"
	"path"
	"strconv"

	"remedy/internal/fsys"
)

// maxBackupSuffix bounds the search for a free backup name.
const maxBackupSuffix = 1000

// backupName is <root>/<rel>.<stamp>.bak, or <root>/<rel>.<stamp>.<n>.bak
// when that is taken.
func backupName(root, rel, stamp string, n int) string {
	base := path.Join(root, rel) + "." + stamp
	if n > 0 {
		base += "." + strconv.Itoa(n)
	}
	return base + ".bak"
}

// writeBackup stores content under a fresh name and verifies it by reading
// it back. Existing backups are never overwritten.
func writeBackup(fs fsys.FS, root, rel, stamp string, content []byte) (string, error) {
	var name string
	for n := 0; ; n++ {
		if n > maxBackupSuffix {
			return "", fmt.Errorf("no free backup name for %s", rel)
		}
		name = backupName(root, rel, stamp, n)
		exists, err := fs.Exists(name)
		if err != nil {
			return "", fmt.Errorf("probe %s: %w", name, err)
		}
		if !exists {
			break
		}
	}
	if err := fs.WriteFile(name, content); err != nil {
		return "", err
	}
	stored, err := fs.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("verify %s: %w", name, err)
	}
	if !bytes.Equal(stored, content) {
		return "", fmt.Errorf("verify %s: backup differs from original", name)
	}
	return name, nil
}
