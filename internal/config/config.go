package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Markers  MarkerConfig   `yaml:"markers"`
	Storage  StorageConfig  `yaml:"storage"`
	Media    MediaConfig    `yaml:"media"`
	Download DownloadConfig `yaml:"download"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// BotConfig holds chat command and link detection settings.
type BotConfig struct {
	Token              string `yaml:"token" envconfig:"TOKEN"`
	Prefix             string `yaml:"prefix" envconfig:"BOT_PREFIX" default:"-"`
	NoScanCommand      string `yaml:"no_scan_command" envconfig:"BOT_NO_SCAN_COMMAND" default:"ns"`
	RescanCommand      string `yaml:"rescan_command" envconfig:"BOT_RESCAN_COMMAND" default:"rs"`
	DefaultRescanCount int    `yaml:"default_rescan_count" envconfig:"BOT_DEFAULT_RESCAN_COUNT" default:"25"`
	// MaxRescanCount caps "-rs K"; 0 means no cap, so K+1 messages are always read.
	MaxRescanCount     int    `yaml:"max_rescan_count" envconfig:"BOT_MAX_RESCAN_COUNT" default:"0"`
	DomainMarker       string `yaml:"domain_marker" envconfig:"BOT_DOMAIN_MARKER" default:"tiktok.com"`
	RescanOldestFirst  bool   `yaml:"rescan_oldest_first" envconfig:"BOT_RESCAN_OLDEST_FIRST" default:"false"`
	// MaxConcurrentRuns bounds simultaneous link runs; 0 means unbounded.
	MaxConcurrentRuns int `yaml:"max_concurrent_runs" envconfig:"BOT_MAX_CONCURRENT_RUNS" default:"0"`
}

// NoScanToken returns the token that suppresses link handling, e.g. "-ns".
func (c BotConfig) NoScanToken() string {
	return c.Prefix + c.NoScanCommand
}

// RescanToken returns the token that triggers a rescan, e.g. "-rs".
func (c BotConfig) RescanToken() string {
	return c.Prefix + c.RescanCommand
}

// MarkerConfig holds the reaction emoji for each marker.
type MarkerConfig struct {
	Pending  string `yaml:"pending" envconfig:"MARKER_PENDING" default:"⌛"`
	TooLarge string `yaml:"too_large" envconfig:"MARKER_TOO_LARGE" default:"📦"`
	Error    string `yaml:"error" envconfig:"MARKER_ERROR" default:"❌"`
}

// StorageConfig holds filesystem settings.
type StorageConfig struct {
	DownloadDir string `yaml:"download_dir" envconfig:"DOWNLOAD_DIR" default:"downloads"`
}

// MediaConfig holds extraction and transcoding settings.
type MediaConfig struct {
	SlideshowMarker string `yaml:"slideshow_marker" envconfig:"MEDIA_SLIDESHOW_MARKER" default:"i-photomode"`
	Extension       string `yaml:"extension" envconfig:"MEDIA_EXTENSION" default:"mp4"`
	VideoCodec      string `yaml:"video_codec" envconfig:"MEDIA_VIDEO_CODEC" default:"libx264"`
	Preset          string `yaml:"preset" envconfig:"MEDIA_PRESET" default:"medium"`
	// Compression is the ffmpeg CRF: 0 is lossless, 51 is worst quality.
	Compression     int           `yaml:"compression" envconfig:"MEDIA_COMPRESSION" default:"23"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MEDIA_MAX_UPLOAD_BYTES" default:"25000000"`
	GateOnOutput    bool          `yaml:"gate_on_transcoded" envconfig:"MEDIA_GATE_ON_TRANSCODED" default:"false"`
	YtDlpRetries    int           `yaml:"ytdlp_retries" envconfig:"MEDIA_YTDLP_RETRIES" default:"3"`
	UploadPacing    time.Duration `yaml:"upload_pacing" envconfig:"MEDIA_UPLOAD_PACING" default:"1s"`
	ClearOnSlideErr bool          `yaml:"clear_marker_on_slideshow_failure" envconfig:"MEDIA_CLEAR_MARKER_ON_SLIDESHOW_FAILURE" default:"false"`
}

// DownloadConfig holds page and photo fetch configuration.
type DownloadConfig struct {
	Timeout   time.Duration `yaml:"timeout" envconfig:"DOWNLOAD_TIMEOUT" default:"30s"`
	UserAgent string        `yaml:"user_agent" envconfig:"DOWNLOAD_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"`
}

// TimeoutConfig bounds each blocking step of a run.
type TimeoutConfig struct {
	Probe     time.Duration `yaml:"probe" envconfig:"TIMEOUT_PROBE" default:"1m"`
	Download  time.Duration `yaml:"download" envconfig:"TIMEOUT_DOWNLOAD" default:"5m"`
	Transcode time.Duration `yaml:"transcode" envconfig:"TIMEOUT_TRANSCODE" default:"10m"`
	Chat      time.Duration `yaml:"chat" envconfig:"TIMEOUT_CHAT" default:"2m"`
	Shutdown  time.Duration `yaml:"shutdown" envconfig:"TIMEOUT_SHUTDOWN" default:"30s"`
}

// ServerConfig holds the ops HTTP server configuration.
type ServerConfig struct {
	Enabled      bool          `yaml:"enabled" envconfig:"SERVER_ENABLED" default:"true"`
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"9848"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL" default:"info"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT" default:"auto"`
}

// Load reads configuration from defaults, then the YAML file, then
// environment variables. Each layer overrides the previous one.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Defaults plus environment
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Load from YAML file if provided
	if configPath != "" {
		fromEnv := *cfg

		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}

		// Re-apply variables that are actually set so they win over the file
		overrideFromEnv(reflect.ValueOf(cfg).Elem(), reflect.ValueOf(fromEnv), "")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// overrideFromEnv copies every field of src into dst whose environment
// variable is set. Keys are looked up the way envconfig does: the
// section-prefixed name first, then the bare tag.
func overrideFromEnv(dst, src reflect.Value, prefix string) {
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("envconfig")

		if tag == "" {
			if field.Type.Kind() == reflect.Struct {
				overrideFromEnv(dst.Field(i), src.Field(i), strings.ToUpper(field.Name))
			}
			continue
		}

		keys := []string{tag}
		if prefix != "" {
			keys = []string{prefix + "_" + strings.ToUpper(tag), tag}
		}
		for _, key := range keys {
			if _, ok := os.LookupEnv(key); ok {
				dst.Field(i).Set(src.Field(i))
				break
			}
		}
	}
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("TOKEN is required")
	}
	if c.Bot.DomainMarker == "" {
		return fmt.Errorf("BOT_DOMAIN_MARKER is required")
	}
	if c.Bot.NoScanCommand == "" || c.Bot.RescanCommand == "" {
		return fmt.Errorf("no-scan and rescan commands are required")
	}
	if c.Bot.DefaultRescanCount < 0 {
		return fmt.Errorf("BOT_DEFAULT_RESCAN_COUNT must not be negative")
	}
	if c.Bot.MaxRescanCount < 0 {
		return fmt.Errorf("BOT_MAX_RESCAN_COUNT must not be negative")
	}
	if c.Bot.MaxRescanCount > 0 && c.Bot.MaxRescanCount < c.Bot.DefaultRescanCount {
		return fmt.Errorf("BOT_MAX_RESCAN_COUNT must be 0 or at least BOT_DEFAULT_RESCAN_COUNT")
	}
	if c.Storage.DownloadDir == "" {
		return fmt.Errorf("DOWNLOAD_DIR is required")
	}
	if c.Media.SlideshowMarker == "" {
		return fmt.Errorf("MEDIA_SLIDESHOW_MARKER is required")
	}
	if c.Media.Compression < 0 || c.Media.Compression > 51 {
		return fmt.Errorf("MEDIA_COMPRESSION must be between 0 and 51, got %d", c.Media.Compression)
	}
	if c.Media.MaxUploadBytes <= 0 {
		return fmt.Errorf("MEDIA_MAX_UPLOAD_BYTES must be positive")
	}
	switch c.Log.Format {
	case "auto", "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be auto, json or text, got %q", c.Log.Format)
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
