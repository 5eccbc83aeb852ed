// Package state persists which archives have already been processed, so
// re-running the pipeline against the same output directory never touches
// them again.
package state

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Ledger is an append-only set of resolved absolute paths backed by a
// line-delimited file. A path present in the ledger has been fully handled,
// whether extraction succeeded or the archive was rejected; the distinction
// is deliberately not recorded. The file is only ever appended to, never
// rewritten.
type Ledger struct {
	path string
	done map[string]struct{}
}

// Open loads the ledger at path, creating parent directories as needed. A
// missing file yields an empty ledger.
func Open(path string) (*Ledger, error) {
	l := &Ledger{
		path: path,
		done: make(map[string]struct{}),
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		l.done[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return l, nil
}

// InMemory returns a ledger with no backing file, for tests and dry runs.
func InMemory() *Ledger {
	return &Ledger{done: make(map[string]struct{})}
}

// IsDone reports whether path has already been processed. Callers pass
// resolved absolute paths; see Resolve.
func (l *Ledger) IsDone(path string) bool {
	_, ok := l.done[path]
	return ok
}

// MarkDone records path as processed. Marking an already-marked path is a
// no-op. The write is appended and flushed before MarkDone returns, so a
// crash after a completed extraction loses at most the mark, never the
// ordering: a mark is only observable once its extraction finished.
func (l *Ledger) MarkDone(path string) error {
	if _, ok := l.done[path]; ok {
		return nil
	}
	if l.path != "" {
		if err := appendLine(l.path, path); err != nil {
			return err
		}
	}
	l.done[path] = struct{}{}
	return nil
}

// Len returns the number of recorded paths.
func (l *Ledger) Len() int {
	return len(l.done)
}

// Resolve canonicalizes a path for use as a ledger key: absolute, with
// symlinked directories resolved, so two spellings of the same file count as
// one archive.
func Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

func appendLine(path, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write([]byte(line + "\n")); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
