package analyzer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/pdfstruct/shield"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.Listen != ":8000" || c.DBPath != "data/pdfstruct.db" || c.MaxFileMB != 50 || c.Workers != 4 {
		t.Errorf("defaults = %+v", c)
	}
	if c.MaxFileBytes() != 50<<20 {
		t.Errorf("MaxFileBytes = %d", c.MaxFileBytes())
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	hash, err := shield.HashPassword("pw")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "pdfstruct.yaml")
	yaml := `
listen: "127.0.0.1:9000"
db_path: /var/lib/pdfstruct/pdf.db
workers: 8
thresholds:
  title_size: 18
  section_max_words: 12
auth:
  password_hash: "` + hash + `"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Listen != "127.0.0.1:9000" || c.Workers != 8 || c.MaxFileMB != 50 {
		t.Errorf("config = %+v", c)
	}
	if c.Thresholds.TitleSize != 18 || c.Thresholds.SectionMaxWords != 12 || c.Thresholds.SubtitleSize != 0 {
		t.Errorf("thresholds = %+v", c.Thresholds)
	}
	if c.Auth.Username != "admin" {
		t.Errorf("auth username default = %q", c.Auth.Username)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("workers: [1, 2"), 0o600)
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	c := DefaultConfig()
	c.Workers = 100
	c.Thresholds.TitleSize = -1
	c.Auth.PasswordHash = "plaintext"
	err := c.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"workers", "title_size", "password_hash"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
	if _, err := New(c); err == nil {
		t.Error("New should reject an invalid config")
	}
}
