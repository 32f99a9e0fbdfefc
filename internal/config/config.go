package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Models     ModelsConfig     `mapstructure:"models"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Cache      CacheConfig      `mapstructure:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Suggest    SuggestConfig    `mapstructure:"suggest"`
	Templates  TemplatesConfig  `mapstructure:"templates"`
	Phrasebook PhrasebookConfig `mapstructure:"phrasebook"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ModelsConfig describes the OpenAI-compatible completion endpoint
type ModelsConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	AutoModel   string        `mapstructure:"auto_model"`
	ManualModel string        `mapstructure:"manual_model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

type StorageConfig struct {
	Type   string       `mapstructure:"type"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Memory MemoryConfig `mapstructure:"memory"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MemoryConfig struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// SuggestConfig holds the post-processing thresholds
type SuggestConfig struct {
	MaxLength       int     `mapstructure:"max_length"`
	MaxResults      int     `mapstructure:"max_results"`
	SoftCap         int     `mapstructure:"soft_cap"`
	MinSubstringLen int     `mapstructure:"min_substring_len"`
	BigramMinLen    int     `mapstructure:"bigram_min_len"`
	BigramThreshold float64 `mapstructure:"bigram_threshold"`
	HistoryLimit    int     `mapstructure:"history_limit"`
}

type TemplatesConfig struct {
	DefaultCoolDownMs int64 `mapstructure:"default_cooldown_ms"`
}

type PhrasebookConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	Locale    string `mapstructure:"locale"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8787)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("models.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("models.auto_model", "llama-3.1-8b-instant")
	v.SetDefault("models.manual_model", "llama-3.3-70b-versatile")
	v.SetDefault("models.max_tokens", 160)
	v.SetDefault("models.temperature", 0.6)
	v.SetDefault("models.timeout", 30*time.Second)
	v.SetDefault("models.max_retries", 3)

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.memory.default_expiration", 24*time.Hour)
	v.SetDefault("storage.memory.cleanup_interval", 10*time.Minute)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 20*time.Second)
	v.SetDefault("cache.max_size", 1000)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 12)
	v.SetDefault("rate_limit.burst", 3)

	v.SetDefault("suggest.max_length", 24)
	v.SetDefault("suggest.max_results", 5)
	v.SetDefault("suggest.soft_cap", 8)
	v.SetDefault("suggest.min_substring_len", 6)
	v.SetDefault("suggest.bigram_min_len", 8)
	v.SetDefault("suggest.bigram_threshold", 0.85)
	v.SetDefault("suggest.history_limit", 5)

	v.SetDefault("templates.default_cooldown_ms", 3000)

	v.SetDefault("phrasebook.enabled", false)
	v.SetDefault("phrasebook.directory", "configs/phrasebook")
	v.SetDefault("phrasebook.locale", "ja")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("monitoring.metrics.enabled", true)
	v.SetDefault("monitoring.metrics.port", 9090)
	v.SetDefault("monitoring.metrics.path", "/metrics")

	v.SetDefault("i18n.default_language", "ja")
	v.SetDefault("i18n.languages", []string{"ja", "en"})
}

// LoadConfig loads configuration from file and environment variables.
// A missing file is not an error; defaults and environment apply.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.BindEnv("models.api_key", "GROQ_API_KEY")
	v.BindEnv("models.base_url", "MODELS_BASE_URL")
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.redis.password", "REDIS_PASSWORD")
	v.BindEnv("storage.redis.db", "REDIS_DB")
	v.BindEnv("logging.level", "LOG_LEVEL")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// REDIS_HOST/REDIS_PORT override the address together
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		redisPort := os.Getenv("REDIS_PORT")
		if redisPort == "" {
			redisPort = "6379"
		}
		config.Storage.Redis.Addr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	switch cfg.Storage.Type {
	case "memory":
	case "redis":
		if cfg.Storage.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for redis storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
	if cfg.Models.BaseURL == "" {
		return fmt.Errorf("models base url is required")
	}
	if cfg.Suggest.MaxResults <= 0 || cfg.Suggest.MaxResults > cfg.Suggest.SoftCap {
		return fmt.Errorf("suggest.max_results must be between 1 and soft_cap (%d)", cfg.Suggest.SoftCap)
	}
	if cfg.Suggest.MaxLength <= 0 {
		return fmt.Errorf("suggest.max_length must be positive")
	}
	if cfg.Suggest.BigramThreshold <= 0 || cfg.Suggest.BigramThreshold > 1 {
		return fmt.Errorf("suggest.bigram_threshold must be in (0, 1]")
	}
	if cfg.Suggest.MinSubstringLen < 2 {
		return fmt.Errorf("suggest.min_substring_len must be at least 2")
	}
	if cfg.RateLimit.Enabled && (cfg.RateLimit.RequestsPerMinute <= 0 || cfg.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit requires positive requests_per_minute and burst")
	}
	return nil
}
