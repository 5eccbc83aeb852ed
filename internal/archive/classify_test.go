package archive

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		want Kind
	}{
		{"payload.tar", KindTar},
		{"payload.TAR", KindTar},
		{"payload.tar.gz", KindCompressedTar},
		{"payload.TAR.GZ", KindCompressedTar},
		{"payload.tgz", KindCompressedTar},
		{"payload.gz", KindPlainCompressed},
		{"notes.txt.gz", KindPlainCompressed},
		{"payload.zip", KindUnsupported},
		{"payload.tar.xz", KindUnsupported},
		{"payload", KindUnsupported},
		{"", KindUnsupported},
	}
	for _, tc := range cases {
		if got := Classify(tc.name); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestClassify_CompressedTarNeverPlain(t *testing.T) {
	// ".tar.gz" ends in ".gz" too; the tar-family check must win.
	if got := Classify("data.tar.gz"); got == KindPlainCompressed {
		t.Fatalf("Classify(data.tar.gz) = %v, must not be plain-compressed", got)
	}
}

func TestMatchesScanSuffix(t *testing.T) {
	for _, name := range []string{"a.tar", "a.tgz", "a.tar.gz", "a.gz", "A.GZ"} {
		if !MatchesScanSuffix(name) {
			t.Errorf("MatchesScanSuffix(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"a.zip", "a.txt", "gz", "a"} {
		if MatchesScanSuffix(name) {
			t.Errorf("MatchesScanSuffix(%q) = true, want false", name)
		}
	}
}
