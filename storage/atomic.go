package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// commitFile fsyncs tmpPath and renames it over dest. Readers holding dest
// open keep the old content; new readers see the new file.
func commitFile(tmpPath, dest string) error {
	f, err := os.OpenFile(tmpPath, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open temp %s: %w", filepath.Base(tmpPath), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp %s: %w", filepath.Base(tmpPath), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp %s: %w", filepath.Base(tmpPath), err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(dest), err)
	}
	// best effort: persist the rename itself
	_ = syncDir(filepath.Dir(dest))
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// removeTemp deletes a temp database and any sqlite side files.
func removeTemp(path string) {
	for _, p := range []string{path, path + "-journal", path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
}
