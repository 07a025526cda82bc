package storage

import (
	"github.com/pingcap/errors"

	"github.com/feedkv/feedkv/kv/util/engine_util"
)

// ErrConflict is returned by Write when a guarded key changed since the
// version recorded in the guard. Callers are expected to re-read and retry.
var ErrConflict = errors.New("storage: write conflict")

// IsConflict reports whether err is a write conflict, unwrapping any stack
// annotation added along the way.
func IsConflict(err error) bool {
	return errors.Cause(err) == ErrConflict
}

// Guard pins the version of a key observed by a reader. A write that carries
// guards commits only if every guarded key is still at the recorded version,
// which is the store-level equivalent of watching a key before a transaction.
// Version 0 means the key was absent when observed.
type Guard struct {
	Cf      string
	Key     []byte
	Version uint64
}

// Storage represents the internal-facing persistence of a feed store. All
// serialization between concurrent writers is delegated to Write's guard
// check; no caller may rely on in-process locks for correctness.
type Storage interface {
	Start() error
	Stop() error
	// Write applies batch as a single atomic unit iff every guard still
	// holds. It returns ErrConflict when a guarded key has moved. An empty
	// guard set makes the write unconditional.
	Write(batch []Modify, guards []Guard) error
	Reader() (StorageReader, error)
}

// StorageReader provides point-in-time reads. Reads through one reader are
// not continuously consistent with reads through another.
type StorageReader interface {
	// GetCF returns the value at key, or nil when the key is absent.
	GetCF(cf string, key []byte) ([]byte, error)
	// VersionCF returns the current version of key, 0 when absent. The
	// returned version is only meaningful as a Guard for a later Write.
	VersionCF(cf string, key []byte) (uint64, error)
	IterCF(cf string) engine_util.DBIterator
	Close()
}
