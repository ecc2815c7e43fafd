package analyzer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/pdfstruct/classify"
)

// Config holds all pdfstruct configuration.
type Config struct {
	Listen      string              `yaml:"listen"`
	DBPath      string              `yaml:"db_path"`
	MaxFileMB   int                 `yaml:"max_file_mb"`
	Workers     int                 `yaml:"workers"`
	PDFPassword string              `yaml:"pdf_password"`
	InputDir    string              `yaml:"input_dir"` // confines MCP analyze paths when set
	Thresholds  classify.Thresholds `yaml:"thresholds"`
	Auth        AuthConfig          `yaml:"auth"`

	Logger *slog.Logger `yaml:"-"`
}

// AuthConfig enables HTTP Basic auth when PasswordHash is set.
type AuthConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	c := &Config{}
	c.defaults()
	return c
}

func (c *Config) defaults() {
	if c.Listen == "" {
		c.Listen = ":8000"
	}
	if c.DBPath == "" {
		c.DBPath = "data/pdfstruct.db"
	}
	if c.MaxFileMB <= 0 {
		c.MaxFileMB = 50
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Auth.PasswordHash != "" && c.Auth.Username == "" {
		c.Auth.Username = "admin"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// LoadConfig reads a YAML config file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("analyzer: read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("analyzer: parse config %s: %w", path, err)
	}
	cfg.defaults()
	return cfg, nil
}

// MaxFileBytes is the upload limit in bytes.
func (c *Config) MaxFileBytes() int64 { return int64(c.MaxFileMB) << 20 }

// Validate checks value ranges. Call it after defaults were applied.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxFileMB > 1024 {
		errs = append(errs, fmt.Errorf("max_file_mb %d exceeds 1024", c.MaxFileMB))
	}
	if c.Workers > 64 {
		errs = append(errs, fmt.Errorf("workers %d exceeds 64", c.Workers))
	}
	th := c.Thresholds
	for name, v := range map[string]float64{
		"title_size":        th.TitleSize,
		"subtitle_size":     th.SubtitleSize,
		"section_bold_size": th.SectionBoldSize,
		"section_size":      th.SectionSize,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("thresholds.%s must not be negative", name))
		}
	}
	if th.SectionMaxWords < 0 {
		errs = append(errs, errors.New("thresholds.section_max_words must not be negative"))
	}
	if h := c.Auth.PasswordHash; h != "" {
		if _, err := bcrypt.Cost([]byte(h)); err != nil {
			errs = append(errs, fmt.Errorf("auth.password_hash: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("analyzer: invalid config: %w", err)
	}
	return nil
}
