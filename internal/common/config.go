package common

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Endpoint EndpointConfig `yaml:"endpoint"`
	Sampling SamplingConfig `yaml:"sampling"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Batch    BatchConfig    `yaml:"batch"`
	Image    ImageConfig    `yaml:"image"`
}

// EndpointConfig describes the remote vision-language endpoint.
type EndpointConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Model         string        `yaml:"model"`
	APIToken      string        `yaml:"api_token"`
	TokenRequired bool          `yaml:"token_required"`
	Timeout       time.Duration `yaml:"timeout"`
}

// SamplingConfig holds the decoding parameters sent with every request.
type SamplingConfig struct {
	Temperature      float64 `yaml:"temperature"`
	TopP             float64 `yaml:"top_p"`
	FrequencyPenalty float64 `yaml:"frequency_penalty"`
	MaxTokens        int     `yaml:"max_tokens"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`         // Postgres; empty selects sqlite
	SQLitePath      string        `yaml:"sqlite_path"` // ":memory:" or a file
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
}

// BatchConfig holds worker-queue configuration
type BatchConfig struct {
	Workers    int           `yaml:"workers"`
	QueueSize  int           `yaml:"queue_size"`
	JobTimeout time.Duration `yaml:"job_timeout"`
}

// ImageConfig controls conversion of formats the endpoint cannot read.
type ImageConfig struct {
	HEICConverter    string `yaml:"heic_converter"` // magick | heif-convert | sips; empty disables HEIC
	ArtifactCacheDir string `yaml:"artifact_cache_dir"`
	MaxImageMB       int    `yaml:"max_image_mb"`
}

// DefaultConfig returns the built-in defaults, before any file or environment overrides.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			BaseURL: "http://localhost:23333/v1",
			Model:   "paddleocr-vl",
			Timeout: 2 * time.Minute,
		},
		Sampling: SamplingConfig{
			Temperature:      0.1,
			TopP:             0.1,
			FrequencyPenalty: 0.8,
			MaxTokens:        2048,
		},
		Database: DatabaseConfig{
			SQLitePath:      "idcard.db",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			GRPCAddr: ":8080",
		},
		Batch: BatchConfig{
			Workers:    2,
			QueueSize:  64,
			JobTimeout: 3 * time.Minute,
		},
		Image: ImageConfig{
			ArtifactCacheDir: "./tmp",
			MaxImageMB:       10,
		},
	}
}

// LoadDotEnv loads .env files into the process environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return NewAppError(CodeConfig, "load "+p, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	cfg := DefaultConfig()
	applyEnv(cfg)
	return cfg
}

// LoadConfigFile layers defaults, then the YAML file at path (if non-empty), then the environment.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError(CodeConfig, "read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, NewAppError(CodeConfig, "parse config file", err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(c *Config) {
	c.Endpoint.BaseURL = getEnv("IDCARD_ENDPOINT", c.Endpoint.BaseURL)
	c.Endpoint.Model = getEnv("IDCARD_MODEL", c.Endpoint.Model)
	c.Endpoint.APIToken = getEnv("IDCARD_API_TOKEN", getEnv("DEEPSEEK_API_TOKEN", c.Endpoint.APIToken))
	c.Endpoint.TokenRequired = getEnvAsBool("IDCARD_TOKEN_REQUIRED", c.Endpoint.TokenRequired)
	c.Endpoint.Timeout = getEnvAsDuration("IDCARD_TIMEOUT", c.Endpoint.Timeout)

	c.Sampling.Temperature = getEnvAsFloat64("IDCARD_TEMPERATURE", c.Sampling.Temperature)
	c.Sampling.TopP = getEnvAsFloat64("IDCARD_TOP_P", c.Sampling.TopP)
	c.Sampling.FrequencyPenalty = getEnvAsFloat64("IDCARD_FREQUENCY_PENALTY", c.Sampling.FrequencyPenalty)
	c.Sampling.MaxTokens = getEnvAsInt("IDCARD_MAX_TOKENS", c.Sampling.MaxTokens)

	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.SQLitePath = getEnv("DB_SQLITE_PATH", c.Database.SQLitePath)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)

	c.Batch.Workers = getEnvAsInt("BATCH_WORKERS", c.Batch.Workers)
	c.Batch.QueueSize = getEnvAsInt("BATCH_QUEUE_SIZE", c.Batch.QueueSize)
	c.Batch.JobTimeout = getEnvAsDuration("BATCH_JOB_TIMEOUT", c.Batch.JobTimeout)

	c.Image.HEICConverter = getEnv("HEIC_CONVERTER", c.Image.HEICConverter)
	c.Image.ArtifactCacheDir = getEnv("ARTIFACT_CACHE_DIR", c.Image.ArtifactCacheDir)
	c.Image.MaxImageMB = getEnvAsInt("MAX_IMAGE_MB", c.Image.MaxImageMB)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the endpoint, sampling and batch settings.
func (c *Config) Validate() error {
	v := NewValidator().
		Field("endpoint.base_url", c.Endpoint.BaseURL, Required, HTTPURL).
		Field("endpoint.model", c.Endpoint.Model, Required).
		Field("endpoint.timeout", c.Endpoint.Timeout.Seconds(), GreaterThan(0)).
		Field("sampling.temperature", c.Sampling.Temperature, AtLeast(0)).
		Field("sampling.top_p", c.Sampling.TopP, GreaterThan(0), AtMost(1)).
		Field("sampling.frequency_penalty", c.Sampling.FrequencyPenalty, AtLeast(0)).
		Field("sampling.max_tokens", c.Sampling.MaxTokens, GreaterThan(0)).
		Field("batch.workers", c.Batch.Workers, GreaterThan(0)).
		Field("image.max_image_mb", c.Image.MaxImageMB, GreaterThan(0))
	if c.Endpoint.TokenRequired {
		v.Field("endpoint.api_token", c.Endpoint.APIToken, Required)
	}
	if err := v.Error(); err != nil {
		return NewAppError(CodeConfig, "invalid configuration", err)
	}
	return nil
}
