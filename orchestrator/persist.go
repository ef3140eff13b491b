package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SummaryFile is the name of the summary written into a corpus directory.
const SummaryFile = "summary.json"

// writeJSON replaces path atomically: readers see the old file or the new
// one, never a partial write.
func writeJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func persist(basePath string, s Summary) (string, error) {
	path := filepath.Join(basePath, s.CorpusID, SummaryFile)
	if err := writeJSON(path, s); err != nil {
		return "", err
	}
	return path, nil
}
