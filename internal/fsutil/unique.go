// Package fsutil holds small filesystem helpers shared by the extraction
// pipeline.
package fsutil

import (
	"fmt"
	"os"
)

// UniquePath returns path unchanged if nothing exists there, otherwise the
// first of path.1, path.2, ... that is free. It never picks a name that is
// already occupied, so callers can create the result without clobbering
// existing files or directories.
func UniquePath(path string) string {
	if !exists(path) {
		return path
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%d", path, i)
		if !exists(candidate) {
			return candidate
		}
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
