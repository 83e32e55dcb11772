package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Vocalless server.
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Workspace WorkspaceConfig
	Pipeline  PipelineConfig
	Metadata  MetadataConfig
	Upload    UploadConfig
	Auth      AuthConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port              int
	Env               string
	RequestsPerMinute int
}

type RedisConfig struct {
	URL string
}

// WorkspaceConfig describes the on-disk layout. Output holds the artifact
// directories (instrumentals, acapellas, videos) served under /output;
// Uploads receives client file uploads; Temp holds in-flight downloads.
type WorkspaceConfig struct {
	Root    string
	Output  string
	Uploads string
	Temp    string
}

type PipelineConfig struct {
	YTDLPPath       string
	FFmpegPath      string
	DemucsPath      string
	DemucsModel     string
	TargetLoudness  float64
	DefaultItemTime time.Duration
}

type MetadataConfig struct {
	Provider string
	Timeout  time.Duration
	Ollama   OllamaConfig
	OpenAI   OpenAIConfig
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

// UploadConfig points at the external publishing service. Leaving Token empty
// disables the upload stage; items asking for it fail individually.
type UploadConfig struct {
	BaseURL string
	Token   string
	Privacy string
	Timeout time.Duration
}

// AuthConfig carries the bcrypt hash of the API key. An empty hash disables
// authentication (development mode).
type AuthConfig struct {
	APIKeyHash string
}

type LoggingConfig struct {
	File string
}

var validProviders = map[string]bool{
	"ollama": true,
	"openai": true,
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value is
// missing or invalid.
func Load() (*Config, error) {
	root := envString("VOCALLESS_DATA_DIR", "data")

	cfg := &Config{
		Server: ServerConfig{
			Port:              envInt("VOCALLESS_PORT", 8080),
			Env:               envString("VOCALLESS_ENV", "development"),
			RequestsPerMinute: envInt("VOCALLESS_RATE_LIMIT", 60),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Workspace: WorkspaceConfig{
			Root:    root,
			Output:  filepath.Join(root, "output"),
			Uploads: filepath.Join(root, "uploads"),
			Temp:    filepath.Join(root, "temp"),
		},
		Pipeline: PipelineConfig{
			YTDLPPath:       envString("YTDLP_PATH", "yt-dlp"),
			FFmpegPath:      envString("FFMPEG_PATH", "ffmpeg"),
			DemucsPath:      envString("DEMUCS_PATH", "demucs"),
			DemucsModel:     envString("DEMUCS_MODEL", "htdemucs"),
			TargetLoudness:  envFloat("TARGET_LOUDNESS_LUFS", -14.0),
			DefaultItemTime: envDurationSecs("VOCALLESS_ITEM_DURATION_SECS", 180*time.Second),
		},
		Metadata: MetadataConfig{
			Provider: envString("METADATA_PROVIDER", "ollama"),
			Timeout:  envDurationSecs("METADATA_TIMEOUT_SECS", 60*time.Second),
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_MODEL", "llama3.2:3b"),
			},
			OpenAI: OpenAIConfig{
				APIKey: os.Getenv("OPENAI_API_KEY"),
				Model:  envString("OPENAI_MODEL", "gpt-4o-mini"),
			},
		},
		Upload: UploadConfig{
			BaseURL: os.Getenv("UPLOAD_BASE_URL"),
			Token:   os.Getenv("UPLOAD_TOKEN"),
			Privacy: envString("UPLOAD_PRIVACY", "public"),
			Timeout: envDurationSecs("UPLOAD_TIMEOUT_SECS", 600*time.Second),
		},
		Auth: AuthConfig{
			APIKeyHash: os.Getenv("VOCALLESS_API_KEY_HASH"),
		},
		Logging: LoggingConfig{
			File: os.Getenv("VOCALLESS_LOG_FILE"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("VOCALLESS_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !validProviders[c.Metadata.Provider] {
		return fmt.Errorf("METADATA_PROVIDER must be one of ollama, openai; got %q", c.Metadata.Provider)
	}
	if c.Metadata.Provider == "openai" && c.Metadata.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when METADATA_PROVIDER is openai")
	}

	if c.Upload.Token != "" {
		if c.Upload.BaseURL == "" {
			return fmt.Errorf("UPLOAD_BASE_URL is required when UPLOAD_TOKEN is set")
		}
		if !strings.HasPrefix(c.Upload.BaseURL, "http://") && !strings.HasPrefix(c.Upload.BaseURL, "https://") {
			return fmt.Errorf("UPLOAD_BASE_URL must start with http:// or https://, got %q", c.Upload.BaseURL)
		}
	}

	if c.Pipeline.TargetLoudness >= 0 {
		return fmt.Errorf("TARGET_LOUDNESS_LUFS must be negative, got %v", c.Pipeline.TargetLoudness)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
