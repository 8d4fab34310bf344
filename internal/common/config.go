package common

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `envPrefix:"HTTP_"`
	Processing ProcessingConfig `envPrefix:"PROCESSING_"`
	OCR        OCRConfig        `envPrefix:"OCR_"`
	Patterns   PatternsConfig   `envPrefix:"PATTERNS_"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string        `env:"ADDR" envDefault:":5000"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES" envDefault:"1073741824"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ProcessingConfig holds job pipeline configuration
type ProcessingConfig struct {
	Workers    int           `env:"WORKERS" envDefault:"4"`
	QueueSize  int           `env:"QUEUE_SIZE" envDefault:"64"`
	JobTimeout time.Duration `env:"JOB_TIMEOUT" envDefault:"30m"`
	OutputDir  string        `env:"OUTPUT_DIR" envDefault:"processed_output"`
	WorkDir    string        `env:"WORK_DIR" envDefault:""`
	MaxJobLog  int           `env:"MAX_JOB_LOG" envDefault:"1000"`
}

// OCRConfig holds text extraction configuration
type OCRConfig struct {
	Pdftotext string `env:"PDFTOTEXT" envDefault:"pdftotext"`
	Pdftoppm  string `env:"PDFTOPPM" envDefault:"pdftoppm"`
	Tesseract string `env:"TESSERACT" envDefault:"tesseract"`
	Language  string `env:"LANG" envDefault:"eng"`
	DPI       int    `env:"DPI" envDefault:"300"`
	MaxPages  int    `env:"MAX_PAGES" envDefault:"0"`
}

// PatternsConfig holds the user-editable pattern store location.
type PatternsConfig struct {
	Path string `env:"PATH" envDefault:"user_defined_patterns.json"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// Sanitize applies guardrails to values loaded from env.
func (c *Config) Sanitize() {
	if c.Processing.Workers <= 0 {
		c.Processing.Workers = 4
	}
	if c.Processing.QueueSize <= 0 {
		c.Processing.QueueSize = 64
	}
	if c.Processing.MaxJobLog <= 0 {
		c.Processing.MaxJobLog = 1000
	}
	if c.OCR.DPI <= 0 {
		c.OCR.DPI = 300
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Processing.OutputDir == "" {
		return NewAppError("CONFIG_ERROR", "PROCESSING_OUTPUT_DIR is required", ErrInvalidInput)
	}
	if c.Patterns.Path == "" {
		return NewAppError("CONFIG_ERROR", "PATTERNS_PATH is required", ErrInvalidInput)
	}
	return nil
}
