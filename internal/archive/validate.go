package archive

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MemberType tags one entry inside a tar-family archive.
type MemberType int

const (
	MemberRegular MemberType = iota
	MemberDir
	MemberSymlink
	MemberHardlink
	MemberCharDevice
	MemberBlockDevice
	MemberFifo
	MemberOther
)

func (t MemberType) String() string {
	switch t {
	case MemberRegular:
		return "regular"
	case MemberDir:
		return "dir"
	case MemberSymlink:
		return "symlink"
	case MemberHardlink:
		return "hardlink"
	case MemberCharDevice:
		return "char-device"
	case MemberBlockDevice:
		return "block-device"
	case MemberFifo:
		return "fifo"
	default:
		return "other"
	}
}

// Member is one archive entry as seen during validation. The name is the raw
// string stored in the archive and may contain traversal sequences.
type Member struct {
	Name string
	Type MemberType
}

// RejectReason identifies why an archive was rejected without extraction.
type RejectReason string

const (
	ReasonEmptyName    RejectReason = "EMPTY_NAME"
	ReasonAbsolutePath RejectReason = "ABSOLUTE_PATH"
	ReasonTraversal    RejectReason = "TRAVERSAL"
	ReasonDrivePath    RejectReason = "DRIVE_PATH"
	ReasonUnreadable   RejectReason = "UNREADABLE"
)

// RejectionError reports a whole-archive rejection. Member is empty when the
// archive could not be enumerated at all.
type RejectionError struct {
	Member string
	Reason RejectReason
	cause  error
}

func (e *RejectionError) Error() string {
	if e.Member == "" {
		if e.cause != nil {
			return fmt.Sprintf("archive rejected (%s): %v", e.Reason, e.cause)
		}
		return fmt.Sprintf("archive rejected (%s)", e.Reason)
	}
	return fmt.Sprintf("archive rejected (%s): member %q", e.Reason, e.Member)
}

func (e *RejectionError) Unwrap() error {
	return e.cause
}

// CheckMemberName applies the pattern denylist to a raw member name. It does
// not normalize the name; obfuscated traversal that survives these checks is
// caught by the canonical descendant check in ValidateMembers.
func CheckMemberName(name string) error {
	if name == "" {
		return &RejectionError{Member: name, Reason: ReasonEmptyName}
	}
	if name[0] == '/' || name[0] == '\\' {
		return &RejectionError{Member: name, Reason: ReasonAbsolutePath}
	}
	if hasParentSegment(name) {
		return &RejectionError{Member: name, Reason: ReasonTraversal}
	}
	if isDrivePath(name) {
		return &RejectionError{Member: name, Reason: ReasonDrivePath}
	}
	return nil
}

// ValidateMembers rejects the whole archive if any member name is unsafe.
// First failure wins. The pattern checks run first for specific reason codes;
// the canonical check then joins each name under dest and requires the
// cleaned result to stay at or below dest.
func ValidateMembers(dest string, members []Member) error {
	for _, m := range members {
		if err := CheckMemberName(m.Name); err != nil {
			return err
		}
		if _, err := memberTarget(dest, m.Name); err != nil {
			return err
		}
	}
	return nil
}

// ValidateArchive enumerates the archive's members with t and validates them
// against dest. No content is extracted. An unenumerable archive is rejected
// with reason UNREADABLE.
func ValidateArchive(t Tool, path, dest string) error {
	members, err := t.ListMembers(path)
	if err != nil {
		return &RejectionError{Reason: ReasonUnreadable, cause: err}
	}
	return ValidateMembers(dest, members)
}

// memberTarget computes the lexically cleaned extraction target for a member
// name and rejects names that escape dest.
func memberTarget(dest, name string) (string, error) {
	target := filepath.Clean(filepath.Join(dest, filepath.FromSlash(name)))
	rel, err := filepath.Rel(dest, target)
	if err != nil {
		return "", &RejectionError{Member: name, Reason: ReasonTraversal, cause: err}
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &RejectionError{Member: name, Reason: ReasonTraversal}
	}
	return target, nil
}

func hasParentSegment(name string) bool {
	isSep := func(r rune) bool { return r == '/' || r == '\\' }
	for _, part := range strings.FieldsFunc(name, isSep) {
		if part == ".." {
			return true
		}
	}
	return false
}

func isDrivePath(name string) bool {
	if len(name) < 3 {
		return false
	}
	letter := name[0]
	upper := letter >= 'A' && letter <= 'Z'
	lower := letter >= 'a' && letter <= 'z'
	return (upper || lower) && name[1] == ':' && name[2] == '\\'
}
