// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ImplicitDiscovery controls what happens when an external tool is found only
// through a PATH lookup rather than explicit configuration.
type ImplicitDiscovery string

const (
	// DiscoveryAllow emits an advisory and then uses the discovered tool.
	DiscoveryAllow ImplicitDiscovery = "allow"
	// DiscoveryDisable emits an advisory and treats the tool as unavailable.
	DiscoveryDisable ImplicitDiscovery = "disable"
)

// HTTPConfig holds shared HTTP settings used when retrieving remote inputs.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retries on 429/503 responses (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// MetadataConfig configures the exiftool-backed metadata extractor.
type MetadataConfig struct {
	// ExiftoolPath is the explicit tool location. When empty, EXIFTOOL_PATH
	// and then PATH are consulted.
	ExiftoolPath string `json:"exiftool_path,omitempty" yaml:"exiftool_path,omitempty" mapstructure:"exiftool_path"`

	// ImplicitDiscovery is "allow" or "disable".
	ImplicitDiscovery ImplicitDiscovery `json:"implicit_discovery" yaml:"implicit_discovery" mapstructure:"implicit_discovery"`

	// Timeout bounds one exiftool invocation.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// CloudTranscriptionConfig configures the hosted Whisper backend.
type CloudTranscriptionConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Model   string `json:"model" yaml:"model" mapstructure:"model"`

	// BaseURL overrides the API endpoint (OpenAI-compatible servers).
	BaseURL string        `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// LocalTranscriptionConfig configures the whisper.cpp command-line backend.
type LocalTranscriptionConfig struct {
	Enabled   bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Binary    string        `json:"binary" yaml:"binary" mapstructure:"binary"`
	ModelPath string        `json:"model_path" yaml:"model_path" mapstructure:"model_path"`
	Language  string        `json:"language" yaml:"language" mapstructure:"language"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// TranscriptionConfig groups both transcription backends.
type TranscriptionConfig struct {
	Cloud CloudTranscriptionConfig `json:"cloud" yaml:"cloud" mapstructure:"cloud"`
	Local LocalTranscriptionConfig `json:"local" yaml:"local" mapstructure:"local"`
}

// VisionConfig configures LLM image descriptions.
type VisionConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Model     string `json:"model" yaml:"model" mapstructure:"model"`
	MaxTokens int    `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
	Prompt    string `json:"prompt,omitempty" yaml:"prompt,omitempty" mapstructure:"prompt"`
}

// PandocConfig configures the container-based document converter.
type PandocConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Image   string `json:"image" yaml:"image" mapstructure:"image"`
}

// PDFConfig configures the pdftotext converter.
type PDFConfig struct {
	Binary string `json:"binary" yaml:"binary" mapstructure:"binary"`
}

// ArchiveConfig bounds recursive archive expansion.
type ArchiveConfig struct {
	MaxDepth      int   `json:"max_depth" yaml:"max_depth" mapstructure:"max_depth"`
	MaxEntryBytes int64 `json:"max_entry_bytes" yaml:"max_entry_bytes" mapstructure:"max_entry_bytes"`
}

// StoreConfig locates the conversion history database.
type StoreConfig struct {
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// BatchConfig holds settings for multi-input conversion runs.
type BatchConfig struct {
	// OutputDir receives one .md file per converted input.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// Jobs is the number of conversions run in parallel (default 1).
	Jobs int `json:"jobs" yaml:"jobs" mapstructure:"jobs"`

	// Frontmatter prepends a YAML header to each output file.
	Frontmatter bool `json:"frontmatter" yaml:"frontmatter" mapstructure:"frontmatter"`
}

// Config is the full mdconvert configuration.
type Config struct {
	LogLevel  string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" mapstructure:"log_format"`

	HTTP          HTTPConfig          `json:"http" yaml:"http" mapstructure:"http"`
	Metadata      MetadataConfig      `json:"metadata" yaml:"metadata" mapstructure:"metadata"`
	Transcription TranscriptionConfig `json:"transcription" yaml:"transcription" mapstructure:"transcription"`
	Vision        VisionConfig        `json:"vision" yaml:"vision" mapstructure:"vision"`
	Pandoc        PandocConfig        `json:"pandoc" yaml:"pandoc" mapstructure:"pandoc"`
	PDF           PDFConfig           `json:"pdf" yaml:"pdf" mapstructure:"pdf"`
	Archive       ArchiveConfig       `json:"archive" yaml:"archive" mapstructure:"archive"`
	Store         StoreConfig         `json:"store" yaml:"store" mapstructure:"store"`
	Batch         BatchConfig         `json:"batch" yaml:"batch" mapstructure:"batch"`

	// StyleMap is forwarded opaquely to converters through StreamInfo.
	StyleMap map[string]string `json:"style_map,omitempty" yaml:"style_map,omitempty" mapstructure:"style_map"`
}

// DefaultDataDir returns the default directory for models and history.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mdconvert"
	}
	return filepath.Join(home, ".local", "share", "mdconvert")
}

// DefaultConfig returns a Config with defaults for every field.
func DefaultConfig() Config {
	dataDir := DefaultDataDir()
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		HTTP: HTTPConfig{
			Timeout:    60 * time.Second,
			UserAgent:  "mdconvert/0.1",
			MaxRetries: 3,
		},
		Metadata: MetadataConfig{
			ImplicitDiscovery: DiscoveryAllow,
			Timeout:           30 * time.Second,
		},
		Transcription: TranscriptionConfig{
			Cloud: CloudTranscriptionConfig{
				Enabled: true,
				Model:   "whisper-1",
				Timeout: 5 * time.Minute,
			},
			Local: LocalTranscriptionConfig{
				Enabled:   true,
				Binary:    "whisper-cli",
				ModelPath: filepath.Join(dataDir, "models", "ggml-base.en.bin"),
				Language:  "auto",
				Timeout:   10 * time.Minute,
			},
		},
		Vision: VisionConfig{
			Enabled:   true,
			Model:     "claude-haiku-4-5",
			MaxTokens: 1024,
		},
		Pandoc: PandocConfig{
			Enabled: true,
			Image:   "pandoc/core:latest",
		},
		PDF: PDFConfig{
			Binary: "pdftotext",
		},
		Archive: ArchiveConfig{
			MaxDepth:      3,
			MaxEntryBytes: 256 << 20,
		},
		Store: StoreConfig{
			Path: filepath.Join(dataDir, "history.db"),
		},
		Batch: BatchConfig{
			OutputDir:   "markdown",
			Jobs:        1,
			Frontmatter: true,
		},
	}
}

// ExpandPaths replaces a leading ~ in path-valued settings with the home
// directory.
func (c *Config) ExpandPaths() {
	c.Metadata.ExiftoolPath = expandTilde(c.Metadata.ExiftoolPath)
	c.Transcription.Local.ModelPath = expandTilde(c.Transcription.Local.ModelPath)
	c.Store.Path = expandTilde(c.Store.Path)
	c.Batch.OutputDir = expandTilde(c.Batch.OutputDir)
}

// Validate checks the config for invalid values.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.LogLevel, validation.Required, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LogFormat, validation.In("text", "json")),
		validation.Field(&c.HTTP),
		validation.Field(&c.Metadata),
		validation.Field(&c.Transcription),
		validation.Field(&c.Archive),
		validation.Field(&c.Batch),
	)
}

// Validate checks HTTP settings.
func (h HTTPConfig) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&h.MaxRetries, validation.Min(0), validation.Max(10)),
	)
}

// Validate checks metadata settings.
func (m MetadataConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ImplicitDiscovery, validation.Required, validation.In(DiscoveryAllow, DiscoveryDisable)),
		validation.Field(&m.Timeout, validation.Min(time.Duration(0))),
	)
}

// Validate checks both transcription backends.
func (t TranscriptionConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Cloud),
		validation.Field(&t.Local),
	)
}

// Validate checks cloud transcription settings.
func (c CloudTranscriptionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Model, validation.When(c.Enabled, validation.Required)),
	)
}

// Validate checks local transcription settings.
func (l LocalTranscriptionConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Binary, validation.When(l.Enabled, validation.Required)),
		validation.Field(&l.ModelPath, validation.When(l.Enabled, validation.Required)),
	)
}

// Validate checks archive limits.
func (a ArchiveConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.MaxDepth, validation.Min(1)),
		validation.Field(&a.MaxEntryBytes, validation.Min(int64(1))),
	)
}

// Validate checks batch settings.
func (b BatchConfig) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Jobs, validation.Min(1), validation.Max(64)),
	)
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
