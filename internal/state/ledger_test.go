package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLedger_MarkAndCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".done")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() err = %v", err)
	}

	if l.IsDone("/some/archive.tar") {
		t.Fatal("fresh ledger reports path as done")
	}
	if err := l.MarkDone("/some/archive.tar"); err != nil {
		t.Fatalf("MarkDone() err = %v", err)
	}
	if !l.IsDone("/some/archive.tar") {
		t.Fatal("marked path not reported as done")
	}
	if l.IsDone("/other/archive.tar") {
		t.Fatal("unmarked path reported as done")
	}
}

func TestLedger_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".done")

	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"/a.tar", "/b.tgz", "/c.gz"} {
		if err := l.MarkDone(p); err != nil {
			t.Fatal(err)
		}
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen err = %v", err)
	}
	for _, p := range []string{"/a.tar", "/b.tgz", "/c.gz"} {
		if !reopened.IsDone(p) {
			t.Errorf("path %s lost across reopen", p)
		}
	}
	if reopened.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", reopened.Len())
	}
}

func TestLedger_DuplicateMarkAppendsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".done")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := l.MarkDone("/a.tar"); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("ledger has %d lines, want 1: %q", len(lines), data)
	}
}

func TestLedger_InMemory(t *testing.T) {
	l := InMemory()
	if err := l.MarkDone("/x.tar"); err != nil {
		t.Fatalf("MarkDone() err = %v", err)
	}
	if !l.IsDone("/x.tar") {
		t.Fatal("in-memory ledger lost a mark")
	}
}

func TestResolve_SymlinkedSpellingsCollapse(t *testing.T) {
	root := t.TempDir()
	real := filepath.Join(root, "real")
	if err := os.Mkdir(real, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(real, "a.tar")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "alias")
	if err := os.Symlink(real, link); err != nil {
		t.Fatal(err)
	}

	direct, err := Resolve(file)
	if err != nil {
		t.Fatal(err)
	}
	viaLink, err := Resolve(filepath.Join(link, "a.tar"))
	if err != nil {
		t.Fatal(err)
	}
	if direct != viaLink {
		t.Fatalf("two spellings resolve differently: %s vs %s", direct, viaLink)
	}
}
