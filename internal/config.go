package internal

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nocturnecity/image-formatter/pkg"
)

// Config is the service configuration. Zero fields in the file keep their defaults.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Editor  EditorFile    `yaml:"editor"`
	Presets PresetsConfig `yaml:"presets"`
	CDN     CDNConfig     `yaml:"cdn"`
	Storage StorageConfig `yaml:"storage"`
}

type ServerConfig struct {
	Port        int           `yaml:"port"`
	Timeout     time.Duration `yaml:"timeout"`
	Workers     int           `yaml:"workers"`
	MaxUploadMB int           `yaml:"max_upload_mb"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
}

type EditorFile struct {
	DebounceWindow    time.Duration `yaml:"debounce_window"`
	MaxPixelDimension int           `yaml:"max_pixel_dimension"`
	MaxSourcePixels   int64         `yaml:"max_source_pixels"`
	Fit               string        `yaml:"fit"`
}

type PresetsConfig struct {
	File string `yaml:"file"`
}

type CDNConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig is the default export target. Requests may name their own bucket.
type StorageConfig struct {
	Region string `yaml:"region"`
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:        8080,
			Timeout:     90 * time.Second,
			Workers:     4,
			MaxUploadMB: 10,
			SessionTTL:  30 * time.Minute,
		},
		Editor: EditorFile{
			DebounceWindow:    DefaultDebounceWindow,
			MaxPixelDimension: DefaultMaxPixelDimension,
			MaxSourcePixels:   DefaultMaxSourcePixels,
			Fit:               string(pkg.FitStretch),
		},
		CDN: CDNConfig{
			Timeout: DefaultCDNTimeout,
		},
	}
}

// LoadConfig reads path over the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.Workers < 1 {
		return fmt.Errorf("server.workers must be positive")
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}
	if c.Editor.DebounceWindow < 0 {
		return fmt.Errorf("editor.debounce_window must not be negative")
	}
	if c.Editor.MaxPixelDimension < 1 {
		return fmt.Errorf("editor.max_pixel_dimension must be positive")
	}
	if c.Editor.MaxSourcePixels < 1 {
		return fmt.Errorf("editor.max_source_pixels must be positive")
	}
	if _, err := pkg.ParseFit(c.Editor.Fit); err != nil {
		return fmt.Errorf("editor.fit: %w", err)
	}
	if c.Storage.Bucket != "" && c.Storage.Region == "" {
		return fmt.Errorf("storage.region is required when storage.bucket is set")
	}
	return nil
}

func (c *Config) SourceLimits() SourceLimits {
	return SourceLimits{
		MaxDimension: c.Editor.MaxPixelDimension,
		MaxPixels:    c.Editor.MaxSourcePixels,
	}
}

func (c *Config) EditorConfig() EditorConfig {
	return EditorConfig{
		DebounceWindow:    c.Editor.DebounceWindow,
		MaxPixelDimension: c.Editor.MaxPixelDimension,
		Fit:               pkg.Fit(c.Editor.Fit),
	}
}
