// Package config centralises runtime configuration for the publishing service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PlatformSettings holds the API endpoints and app credentials for one platform.
type PlatformSettings struct {
	BaseURL      string  `yaml:"base_url"`
	UploadURL    string  `yaml:"upload_url"`
	TokenURL     string  `yaml:"token_url"`
	ClientID     string  `yaml:"client_id"`
	ClientSecret string  `yaml:"client_secret"`
	RateLimit    float64 `yaml:"rate_limit"` // publishes per second, 0 = unlimited
}

// EngineSettings configures the posting engine loop.
type EngineSettings struct {
	PollInterval      time.Duration   `yaml:"poll_interval"`
	Concurrency       int             `yaml:"concurrency"`
	DefaultMaxRetries int             `yaml:"default_max_retries"`
	BackoffLadder     []time.Duration `yaml:"backoff_ladder"`
	LeaseTTL          time.Duration   `yaml:"lease_ttl"`
	InteractionLimit  int             `yaml:"interaction_limit"`
}

// Settings is the configuration tree loaded from defaults, an optional YAML file and the
// environment.
type Settings struct {
	Env         string                      `yaml:"env"`
	DatabaseURL string                      `yaml:"database_url"`
	DBMigrate   bool                        `yaml:"db_migrate"`
	APIHost     string                      `yaml:"api_host"`
	RedirectURL string                      `yaml:"redirect_host"`
	MediaBase   string                      `yaml:"media_base_url"`
	HTTPTimeout time.Duration               `yaml:"http_timeout"`
	LogFile     string                      `yaml:"log_file"`
	Redis       RedisSettings               `yaml:"redis"`
	Kafka       KafkaSettings               `yaml:"kafka"`
	Engine      EngineSettings              `yaml:"engine"`
	Platforms   map[string]PlatformSettings `yaml:"platforms"`
}

// RedisSettings configures the optional engine lease store.
type RedisSettings struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DB       string `yaml:"db"`
}

// KafkaSettings configures the optional outcome stream.
type KafkaSettings struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Default returns the built-in configuration.
func Default() Settings {
	return Settings{
		Env:         "dev",
		HTTPTimeout: 30 * time.Second,
		Kafka:       KafkaSettings{Topic: "posting-outcomes"},
		Engine: EngineSettings{
			PollInterval:      30 * time.Second,
			Concurrency:       1,
			DefaultMaxRetries: 3,
			BackoffLadder: []time.Duration{
				1 * time.Second,
				5 * time.Second,
				15 * time.Second,
				30 * time.Second,
				60 * time.Second,
			},
			LeaseTTL:         2 * time.Minute,
			InteractionLimit: 25,
		},
		Platforms: map[string]PlatformSettings{
			"facebook":  {BaseURL: "https://graph.facebook.com/v19.0"},
			"instagram": {BaseURL: "https://graph.facebook.com/v19.0"},
			"linkedin":  {BaseURL: "https://api.linkedin.com", TokenURL: "https://www.linkedin.com/oauth/v2/accessToken"},
			"twitter":   {UploadURL: "https://upload.twitter.com/1.1/media/upload.json"},
			"threads":   {BaseURL: "https://graph.threads.net/v1.0", TokenURL: "https://graph.threads.net/oauth/access_token"},
			"mastodon":  {BaseURL: "https://mastodon.social"},
			"pinterest": {BaseURL: "https://api.pinterest.com/v5", TokenURL: "https://api.pinterest.com/v5/oauth/token"},
		},
	}
}

// Platform returns the settings for name, or zero settings when unknown.
func (s Settings) Platform(name string) PlatformSettings {
	return s.Platforms[name]
}

// Load builds the settings: defaults, then CONFIG_FILE (YAML) when set, then .env and process
// environment overrides.
func Load() (Settings, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	ApplyEnv(&cfg)
	return cfg, nil
}

// LoadFile merges the YAML document at path into cfg.
func LoadFile(path string, cfg *Settings) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Merge(raw, cfg)
}

// Merge decodes a YAML document on top of cfg. Platform entries are merged field by field so a
// file only needs to name what it changes.
func Merge(raw []byte, cfg *Settings) error {
	base := cfg.Platforms
	cfg.Platforms = nil
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		cfg.Platforms = base
		return fmt.Errorf("failed to parse config: %w", err)
	}
	overrides := cfg.Platforms
	cfg.Platforms = base
	if cfg.Platforms == nil {
		cfg.Platforms = map[string]PlatformSettings{}
	}
	for name, o := range overrides {
		p := cfg.Platforms[name]
		mergePlatform(&p, o)
		cfg.Platforms[name] = p
	}
	return nil
}

func mergePlatform(dst *PlatformSettings, src PlatformSettings) {
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	if src.UploadURL != "" {
		dst.UploadURL = src.UploadURL
	}
	if src.TokenURL != "" {
		dst.TokenURL = src.TokenURL
	}
	if src.ClientID != "" {
		dst.ClientID = src.ClientID
	}
	if src.ClientSecret != "" {
		dst.ClientSecret = src.ClientSecret
	}
	if src.RateLimit > 0 {
		dst.RateLimit = src.RateLimit
	}
}

// ApplyEnv overrides cfg with the environment variables the service has always read.
func ApplyEnv(cfg *Settings) {
	cfg.Env = GetEnv("ENV", cfg.Env)
	cfg.DatabaseURL = GetEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.DBMigrate = GetEnvBool("DB_MIGRATE", cfg.DBMigrate)
	cfg.APIHost = GetEnv("API_HOST", cfg.APIHost)
	cfg.RedirectURL = GetEnv("REDIRECT_HOST", cfg.RedirectURL)
	cfg.MediaBase = GetEnv("MEDIA_BASE_URL", cfg.MediaBase)
	cfg.HTTPTimeout = GetEnvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.LogFile = GetEnv("LOG_FILE", cfg.LogFile)

	cfg.Redis.Host = GetEnv("REDIS_HOST", cfg.Redis.Host)
	cfg.Redis.Port = GetEnv("REDIS_PORT", cfg.Redis.Port)
	cfg.Redis.User = GetEnv("REDIS_USER", cfg.Redis.User)
	cfg.Redis.Password = GetEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = GetEnv("REDIS_DB", cfg.Redis.DB)

	if brokers := GetEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	cfg.Kafka.Topic = GetEnv("KAFKA_TOPIC", cfg.Kafka.Topic)

	cfg.Engine.PollInterval = GetEnvDuration("POLL_INTERVAL", cfg.Engine.PollInterval)
	cfg.Engine.Concurrency = GetEnvInt("ENGINE_CONCURRENCY", cfg.Engine.Concurrency)
	cfg.Engine.DefaultMaxRetries = GetEnvInt("DEFAULT_MAX_RETRIES", cfg.Engine.DefaultMaxRetries)

	setPlatformCreds(cfg, "facebook", "FACEBOOK_APP_ID", "FACEBOOK_SECRET")
	setPlatformCreds(cfg, "instagram", "FACEBOOK_APP_ID", "FACEBOOK_SECRET")
	setPlatformCreds(cfg, "linkedin", "LINKEDIN_APP_ID", "LINKEDIN_SECRET")
	setPlatformCreds(cfg, "twitter", "TWITTER_KEY", "TWITTER_SECRET")
	setPlatformCreds(cfg, "threads", "THREADS_APP_ID", "THREADS_SECRET_KEY")
	setPlatformCreds(cfg, "pinterest", "PINTEREST_APP_ID", "PINTEREST_SECRET")
	setPlatformCreds(cfg, "mastodon", "MASTODON_CLIENT_KEY", "MASTODON_CLIENT_SECRET")
	if base := GetEnv("MASTODON_BASE_URL", ""); base != "" {
		p := cfg.Platforms["mastodon"]
		p.BaseURL = strings.TrimRight(base, "/")
		cfg.Platforms["mastodon"] = p
	}
}

func setPlatformCreds(cfg *Settings, platform, idKey, secretKey string) {
	if cfg.Platforms == nil {
		cfg.Platforms = map[string]PlatformSettings{}
	}
	p := cfg.Platforms[platform]
	p.ClientID = GetEnv(idKey, p.ClientID)
	p.ClientSecret = GetEnv(secretKey, p.ClientSecret)
	cfg.Platforms[platform] = p
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetEnv gets an environment variable with a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an integer environment variable with a default value
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvBool gets a boolean environment variable with a default value
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvDuration gets a duration environment variable (e.g. "30s") with a default value
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
