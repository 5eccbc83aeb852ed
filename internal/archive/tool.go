package archive

import (
	"archive/tar"
	"errors"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	pkgerrors "github.com/pkg/errors"
)

// Tool is the capability surface the expansion loop needs from an archive
// backend: member enumeration, filtered tar extraction, and single-stream
// decompression. The native implementation reads archives in-process; a
// spawned external tool could satisfy the same interface.
type Tool interface {
	// ListMembers returns every member of a tar-family archive without
	// extracting any content.
	ListMembers(path string) ([]Member, error)

	// ExtractTar extracts the regular files and directories of a validated
	// tar-family archive into dest, creating it if needed.
	ExtractTar(path, dest string) (Stats, error)

	// Gunzip decompresses a plain gzip file into destDir and returns the
	// output file path.
	Gunzip(path, destDir string) (string, error)
}

// Stats summarizes one extraction.
type Stats struct {
	Files   int
	Dirs    int
	Bytes   int64
	Skipped int
}

type nativeTool struct{}

// NewTool returns the in-process tar/gzip implementation of Tool.
func NewTool() Tool {
	return nativeTool{}
}

// openTarStream opens a tar-family archive, transparently unwrapping gzip
// when the name says so. The returned closer releases the underlying file
// and, when present, the gzip reader.
func openTarStream(path string) (*tar.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	if Classify(path) == KindCompressedTar {
		gzr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, pkgerrors.Wrap(err, "open gzip stream")
		}
		closer := func() error {
			gzr.Close()
			return f.Close()
		}
		return tar.NewReader(gzr), closer, nil
	}

	return tar.NewReader(f), f.Close, nil
}

func (nativeTool) ListMembers(path string) ([]Member, error) {
	tr, closer, err := openTarStream(path)
	if err != nil {
		return nil, err
	}
	defer closer()

	var members []Member
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return members, nil
		}
		if err != nil {
			return nil, pkgerrors.Wrap(err, "enumerate members")
		}
		if hdr == nil {
			continue
		}
		members = append(members, Member{Name: hdr.Name, Type: memberType(hdr.Typeflag)})
	}
}

func memberType(typeflag byte) MemberType {
	switch typeflag {
	case tar.TypeReg, tar.TypeRegA:
		return MemberRegular
	case tar.TypeDir:
		return MemberDir
	case tar.TypeSymlink:
		return MemberSymlink
	case tar.TypeLink:
		return MemberHardlink
	case tar.TypeChar:
		return MemberCharDevice
	case tar.TypeBlock:
		return MemberBlockDevice
	case tar.TypeFifo:
		return MemberFifo
	default:
		return MemberOther
	}
}
