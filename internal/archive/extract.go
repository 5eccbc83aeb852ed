package archive

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
	pkgerrors "github.com/pkg/errors"
)

// ExtractTar extracts only regular files and directories from a tar-family
// archive into dest. Entries of any other type are filtered before anything
// touches disk: links, devices, fifos and sockets are never created and then
// removed, they are never created at all. Ownership and permission bits from
// the archive are discarded; everything gets process-default modes. Target
// paths are resolved with SecureJoin so a member cannot route a write through
// a symlinked directory out of dest.
//
// An archive whose members are all filtered extracts successfully with an
// empty dest.
func (nativeTool) ExtractTar(path, dest string) (Stats, error) {
	var stats Stats

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return stats, err
	}

	tr, closer, err := openTarStream(path)
	if err != nil {
		return stats, err
	}
	defer closer()

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, pkgerrors.Wrap(err, "read member")
		}
		if hdr == nil {
			continue
		}

		switch memberType(hdr.Typeflag) {
		case MemberDir:
			target, err := securejoin.SecureJoin(dest, hdr.Name)
			if err != nil {
				return stats, pkgerrors.Wrapf(err, "resolve member %q", hdr.Name)
			}
			if err := os.MkdirAll(target, 0o755); err != nil {
				return stats, err
			}
			stats.Dirs++
		case MemberRegular:
			target, err := securejoin.SecureJoin(dest, hdr.Name)
			if err != nil {
				return stats, pkgerrors.Wrapf(err, "resolve member %q", hdr.Name)
			}
			n, err := writeRegular(target, tr)
			if err != nil {
				return stats, pkgerrors.Wrapf(err, "extract %q", hdr.Name)
			}
			stats.Files++
			stats.Bytes += n
		default:
			stats.Skipped++
		}
	}

	// Second defensive layer: nothing below should exist, but if an unsafe
	// object shows up in dest anyway it is removed before we return.
	if err := removeUnsafeEntries(dest); err != nil {
		return stats, err
	}
	return stats, nil
}

func writeRegular(target string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, r)
	if err != nil {
		out.Close()
		return n, err
	}
	return n, out.Close()
}

// removeUnsafeEntries walks root without following symlinks and deletes any
// symlink, device node, fifo or socket it finds.
func removeUnsafeEntries(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		mode := d.Type()
		if mode&(fs.ModeSymlink|fs.ModeDevice|fs.ModeCharDevice|fs.ModeNamedPipe|fs.ModeSocket) != 0 {
			return os.Remove(path)
		}
		return nil
	})
}
