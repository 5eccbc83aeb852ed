package archive

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	pkgerrors "github.com/pkg/errors"

	"github.com/seemrkz/unnest/internal/fsutil"
)

// Gunzip decompresses a plain gzip file into destDir and returns the path of
// the single output file. The output name is the input's base name with the
// ".gz" suffix stripped, suffixed with a counter if that name is taken. A
// corrupt stream leaves no partial output behind.
func (nativeTool) Gunzip(path, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return "", pkgerrors.Wrap(err, "open gzip stream")
	}
	defer gzr.Close()

	out := fsutil.UniquePath(filepath.Join(destDir, strippedGzName(path)))
	dst, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, gzr); err != nil {
		dst.Close()
		os.Remove(out)
		return "", pkgerrors.Wrap(err, "decompress")
	}
	if err := dst.Close(); err != nil {
		os.Remove(out)
		return "", err
	}
	return out, nil
}

func strippedGzName(path string) string {
	base := filepath.Base(path)
	if strings.HasSuffix(strings.ToLower(base), ".gz") {
		base = base[:len(base)-len(".gz")]
	}
	if base == "" {
		base = "out"
	}
	return base
}
