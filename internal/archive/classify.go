// Package archive implements safe handling of untrusted tar-family and gzip
// archives: suffix classification, member path validation, extraction limited
// to regular files and directories, and single-stream decompression.
package archive

import "strings"

// Kind is the archive category derived from a file name.
type Kind int

const (
	KindUnsupported Kind = iota
	KindTar
	KindCompressedTar
	KindPlainCompressed
)

func (k Kind) String() string {
	switch k {
	case KindTar:
		return "tar"
	case KindCompressedTar:
		return "compressed-tar"
	case KindPlainCompressed:
		return "plain-compressed"
	default:
		return "unsupported"
	}
}

// Classify maps a file name to its archive kind by suffix alone,
// case-insensitively. It performs no I/O. Compressed-tar suffixes take
// precedence so that ".tar.gz" is never treated as a plain gzip file.
func Classify(name string) Kind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return KindCompressedTar
	case strings.HasSuffix(lower, ".tar"):
		return KindTar
	case strings.HasSuffix(lower, ".gz"):
		return KindPlainCompressed
	default:
		return KindUnsupported
	}
}

// IsTarFamily reports whether the name classifies as a tar archive, wrapped
// or not.
func IsTarFamily(name string) bool {
	k := Classify(name)
	return k == KindTar || k == KindCompressedTar
}

// ScanSuffixes are the suffixes the expansion loop matches when scanning the
// output tree for candidate archives. Broad filter only; Classify decides.
var ScanSuffixes = []string{".tar", ".tgz", ".tar.gz", ".gz"}

// MatchesScanSuffix reports whether a file name matches the broad candidate
// filter, case-insensitively.
func MatchesScanSuffix(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range ScanSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
