package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docbridge/internal/md2docx"
)

// FileEnv names the environment variable pointing at an optional YAML file.
// Values from the file are applied first; environment variables win.
const FileEnv = "DOCBRIDGE_CONFIG"

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL  time.Duration `yaml:"job_ttl"`
	WorkDir string        `yaml:"work_dir"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`

	Markdown Markdown `yaml:"markdown"`
}

// Markdown holds the dialect switches of the Markdown parser.
type Markdown struct {
	Tables        bool `yaml:"tables"`
	Strikethrough bool `yaml:"strikethrough"`
	TaskLists     bool `yaml:"tasklists"`
	Autolinks     bool `yaml:"autolinks"`
	Underline     bool `yaml:"underline"`
}

// Extensions converts the switches for the md2docx parser.
func (m Markdown) Extensions() md2docx.Extensions {
	return md2docx.Extensions{
		Tables:        m.Tables,
		Strikethrough: m.Strikethrough,
		TaskLists:     m.TaskLists,
		Autolinks:     m.Autolinks,
		Underline:     m.Underline,
	}
}

func defaults() Config {
	return Config{
		Port:                 "8090",
		WorkerCount:          4,
		MaxQueueSize:         100,
		MaxUploadBytes:       52428800, // 50MB
		JobTTL:               1 * time.Hour,
		WorkDir:              os.TempDir(),
		PDFFallbackPdftotext: true,
		Markdown: Markdown{
			Tables:        true,
			Strikethrough: true,
			TaskLists:     true,
			Autolinks:     true,
			Underline:     true,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by DOCBRIDGE_CONFIG, and the environment, in that order.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv(FileEnv); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("DOCBRIDGE_API_KEY", cfg.APIKey)
	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.WorkDir = envOr("WORK_DIR", cfg.WorkDir)
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)
	cfg.Markdown.Tables = envBool("MD_TABLES", cfg.Markdown.Tables)
	cfg.Markdown.Strikethrough = envBool("MD_STRIKETHROUGH", cfg.Markdown.Strikethrough)
	cfg.Markdown.TaskLists = envBool("MD_TASKLISTS", cfg.Markdown.TaskLists)
	cfg.Markdown.Autolinks = envBool("MD_AUTOLINKS", cfg.Markdown.Autolinks)
	cfg.Markdown.Underline = envBool("MD_UNDERLINE", cfg.Markdown.Underline)

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}

	return cfg, nil
}

// loadFile overlays the YAML file at path onto cfg. ${VAR} references in
// the file are expanded from the environment.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings the HTTP server needs. The CLI tools do not
// call it.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCBRIDGE_API_KEY is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
