package corpus

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// StorageType selects a backend variant.
type StorageType string

const (
	// StorageMem keeps snapshots in process memory.
	StorageMem StorageType = "mem"
	// StorageDB persists snapshots on disk, addressed by corpus id.
	StorageDB StorageType = "db"
)

// Backend stores whole-corpus snapshots by id. Dump must be all-or-nothing:
// a concurrent or later Load sees either the previous snapshot or the new
// one. Load returns an error wrapping ErrNotFound for unknown ids.
type Backend interface {
	Type() StorageType
	Dump(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, id string) (*Snapshot, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}

// Factory opens a backend rooted at basePath. Backends that do not use the
// filesystem ignore it.
type Factory func(basePath string) (Backend, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[StorageType]Factory{}
)

// Register makes a backend available to Open and Dump under t. It panics on
// a nil factory or a second registration for the same type.
func Register(t StorageType, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if f == nil {
		panic("corpus: Register factory is nil")
	}
	if _, dup := factories[t]; dup {
		panic("corpus: Register called twice for " + string(t))
	}
	factories[t] = f
}

// OpenBackend opens the backend registered under t.
func OpenBackend(t StorageType, basePath string) (Backend, error) {
	factoriesMu.RLock()
	f, ok := factories[t]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (forgotten import of the storage package?)", ErrUnknownStorage, t)
	}
	return f(basePath)
}

// ParseStorageType accepts "mem" and "db".
func ParseStorageType(s string) (StorageType, error) {
	switch t := StorageType(strings.ToLower(strings.TrimSpace(s))); t {
	case StorageMem, StorageDB:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStorage, s)
}

// NewID returns a fresh corpus id.
func NewID() string {
	return "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidateID rejects ids that are empty or would escape a base directory.
func ValidateID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty", ErrInvalidID)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	case strings.ContainsAny(id, `/\`) || filepath.Base(id) != id || strings.ContainsRune(id, 0):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidID, id)
	}
	return nil
}
