package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied by ApplyDefaults
const (
	DefaultPath      = "config/config.yaml"
	DefaultListen    = ":3333"
	DefaultUploadMB  = 512
	DefaultTTL       = 30 * time.Minute
	DefaultFFmpeg    = "ffmpeg"
	DefaultFFprobe   = "ffprobe"
	DefaultModel     = "whisper-1"
	DefaultTimeout   = 10 * time.Minute
	DefaultTokenFile = "config/token.json"
)

// Environment variables that override file values
const (
	EnvFFmpegPath  = "UPLOAD_AI_FFMPEG_PATH"
	EnvFFprobePath = "UPLOAD_AI_FFPROBE_PATH"
	EnvListen      = "UPLOAD_AI_LISTEN"
	EnvOutputDir   = "UPLOAD_AI_OUTPUT_DIR"
	EnvDriveFolder = "UPLOAD_AI_DRIVE_FOLDER"
	EnvOpenAIKey   = "OPENAI_API_KEY"
)

// Config represents the complete application configuration
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Server ServerConfig `yaml:"server"`
	Output OutputConfig `yaml:"output"`
	Google GoogleConfig `yaml:"google"`
	OpenAI OpenAIConfig `yaml:"openai"`
}

// EngineConfig locates the conversion tools
type EngineConfig struct {
	FFmpegPath  string        `yaml:"ffmpeg_path"`
	FFprobePath string        `yaml:"ffprobe_path"`
	WorkDir     string        `yaml:"work_dir"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ServerConfig contains web form settings
type ServerConfig struct {
	Listen      string        `yaml:"listen"`
	MaxUploadMB int           `yaml:"max_upload_mb"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
}

// OutputConfig controls the save-to-directory sink; empty disables it
type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// GoogleConfig contains Google API settings; an empty folder disables uploads
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	UseOAuth        bool   `yaml:"use_oauth"`
	TokenFile       string `yaml:"token_file"`
	FolderID        string `yaml:"folder_id"`
}

// OpenAIConfig contains Whisper transcription settings
type OpenAIConfig struct {
	Enabled  bool   `yaml:"enabled"`
	APIKey   string `yaml:"api_key,omitempty"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

// DriveEnabled reports whether the Drive sink should be wired
func (c *Config) DriveEnabled() bool {
	return c.Google.FolderID != "" && c.Google.CredentialsFile != ""
}

// WhisperEnabled reports whether the Whisper sink should be wired
func (c *Config) WhisperEnabled() bool {
	return c.OpenAI.Enabled && c.OpenAI.APIKey != ""
}

// ApplyDefaults fills unset fields
func (c *Config) ApplyDefaults() {
	if c.Engine.FFmpegPath == "" {
		c.Engine.FFmpegPath = DefaultFFmpeg
	}
	if c.Engine.FFprobePath == "" {
		c.Engine.FFprobePath = DefaultFFprobe
	}
	if c.Engine.Timeout <= 0 {
		c.Engine.Timeout = DefaultTimeout
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = DefaultUploadMB
	}
	if c.Server.SessionTTL <= 0 {
		c.Server.SessionTTL = DefaultTTL
	}
	if c.Google.TokenFile == "" {
		c.Google.TokenFile = DefaultTokenFile
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = DefaultModel
	}
}

// ApplyEnv overrides file values with non-empty environment variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.Engine.FFmpegPath, EnvFFmpegPath)
	set(&c.Engine.FFprobePath, EnvFFprobePath)
	set(&c.Server.Listen, EnvListen)
	set(&c.Output.Directory, EnvOutputDir)
	set(&c.Google.FolderID, EnvDriveFolder)
	set(&c.OpenAI.APIKey, EnvOpenAIKey)
}

// LoadEnvFile loads a .env file into the process environment.
// A missing file is not an error. Variables already set are kept.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load reads and parses the configuration from the specified YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault reads path if it exists, otherwise starts from an empty
// Config. Env overrides and defaults are applied in both cases.
func LoadOrDefault(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = &Config{}
	}
	cfg.ApplyEnv(lookup)
	cfg.ApplyDefaults()
	return cfg, nil
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
