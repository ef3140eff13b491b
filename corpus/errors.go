package corpus

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID: two speakers or two utterances share an id.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrUnknownSpeaker: an utterance has no speaker, or names one the corpus lacks.
	ErrUnknownSpeaker = errors.New("unknown speaker")
	// ErrNotFound: no corpus is stored under the requested id.
	ErrNotFound = errors.New("corpus not found")
	// ErrIO: the storage medium failed during dump or load.
	ErrIO = errors.New("storage i/o failure")
	// ErrInvalidID: a corpus id is empty or cannot address a storage location.
	ErrInvalidID = errors.New("invalid corpus id")
	// ErrUnbound: the operation needs a handle bound to a backend.
	ErrUnbound = errors.New("corpus not bound to a backend")
	// ErrUnknownStorage: no backend is registered for the storage type.
	ErrUnknownStorage = errors.New("unknown storage type")
)

// StorageError carries the operation and corpus id of a backend failure.
type StorageError struct {
	Op       string
	CorpusID string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s corpus %q: %v", e.Op, e.CorpusID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IOFailure wraps err as an ErrIO StorageError.
func IOFailure(op, corpusID string, err error) error {
	return &StorageError{Op: op, CorpusID: corpusID, Err: fmt.Errorf("%w: %w", ErrIO, err)}
}

// NotFound returns an ErrNotFound StorageError.
func NotFound(op, corpusID string) error {
	return &StorageError{Op: op, CorpusID: corpusID, Err: ErrNotFound}
}
