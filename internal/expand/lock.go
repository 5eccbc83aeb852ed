package expand

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// The append-only ledger has no file-level locking, so two concurrent runs
// against the same output directory would corrupt each other's view of
// progress. A lock file in the output root serializes them.

const lockStaleAfter = 8 * time.Hour

// LockFileName is the lock file inside the output root.
const LockFileName = ".unnest.lock"

var ErrLockHeld = errors.New("output directory is locked by another run")

type lockFile struct {
	PID           int    `json:"pid"`
	StartedAtUTC  string `json:"started_at_utc"`
	StartedAtUnix int64  `json:"started_at_unix"`
}

// acquireLock claims the output root for this process. A lock older than
// lockStaleAfter is treated as left over from a crashed run and replaced.
func acquireLock(outRoot string, now time.Time, pid int) error {
	path := filepath.Join(outRoot, LockFileName)

	data, err := os.ReadFile(path)
	if err == nil {
		var current lockFile
		if json.Unmarshal(data, &current) == nil && !isStaleLock(current, now) {
			return ErrLockHeld
		}
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return rmErr
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	lock := lockFile{
		PID:           pid,
		StartedAtUTC:  now.UTC().Format(time.RFC3339),
		StartedAtUnix: now.UTC().Unix(),
	}
	encoded, err := json.Marshal(lock)
	if err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0o644)
}

func releaseLock(outRoot string) error {
	path := filepath.Join(outRoot, LockFileName)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func isStaleLock(lock lockFile, now time.Time) bool {
	if lock.PID <= 0 || lock.StartedAtUnix <= 0 {
		return true
	}
	return now.UTC().Unix()-lock.StartedAtUnix > int64(lockStaleAfter.Seconds())
}
