package horosafe

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafePath(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "srv", "pdfs")
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"report.pdf", filepath.Join(base, "report.pdf"), false},
		{"2024/q1.pdf", filepath.Join(base, "2024", "q1.pdf"), false},
		{filepath.Join(base, "abs.pdf"), filepath.Join(base, "abs.pdf"), false},
		{"a/../b.pdf", filepath.Join(base, "b.pdf"), false},
		{"../etc/passwd", "", true},
		{"../../x.pdf", "", true},
		{"/etc/passwd", "", true},
		{filepath.Join(base+"2", "x.pdf"), "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := SafePath(base, tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("SafePath(%q) = %q, want error", tt.input, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("SafePath(%q) = %q, %v; want %q", tt.input, got, err, tt.want)
		}
	}
	if _, err := SafePath(base, "../x"); !errors.Is(err, ErrPathTraversal) {
		t.Errorf("err = %v, want ErrPathTraversal", err)
	}
}

func TestLimitedReadAll(t *testing.T) {
	data, err := LimitedReadAll(strings.NewReader("hello"), 5)
	if err != nil || string(data) != "hello" {
		t.Errorf("at limit = %q, %v", data, err)
	}
	if _, err := LimitedReadAll(strings.NewReader("hello!"), 5); !errors.Is(err, ErrTooLarge) {
		t.Errorf("over limit err = %v", err)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.pdf")
	os.WriteFile(path, []byte("0123456789"), 0o600)
	if data, err := ReadFile(path, 10); err != nil || len(data) != 10 {
		t.Errorf("ReadFile = %d bytes, %v", len(data), err)
	}
	if _, err := ReadFile(path, 9); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.pdf"), 9); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":               "report.pdf",
		"C:\\Users\\me\\scan.pdf":  "scan.pdf",
		"../../etc/passwd.pdf":     "passwd.pdf",
		"bad\x00name\n.pdf":        "badname.pdf",
		"rapport été.pdf":          "rapport été.pdf",
		"  ":                       "unnamed.pdf",
		"dir/":                     "unnamed.pdf",
		"\xffx.pdf":                "x.pdf",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}

	long := strings.Repeat("é", 200) + ".pdf"
	got := SanitizeFilename(long)
	if len(got) > maxFilenameBytes || !strings.HasSuffix(got, ".pdf") || !strings.HasPrefix(got, "é") {
		t.Errorf("long name = %d bytes %q...", len(got), got[:10])
	}
}
