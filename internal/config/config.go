package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/healthlens-ai/backend/internal/logger"
)

// Config aggregates application configuration. Values come from an optional
// config.yaml overlaid with environment variables (env wins).
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	DB      DBConfig      `yaml:"database"`
	Redis   RedisConfig   `yaml:"redis"`
	AI      AIConfig      `yaml:"ai"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Logger  LoggerConfig  `yaml:"logger"`
}

type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	IdleTimeout    time.Duration `yaml:"idleTimeout"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"sslMode"`
}

// RedisConfig configures the TTL cache. An empty Host disables Redis and the
// service falls back to the in-process cache.
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AIConfig struct {
	Provider     string `yaml:"provider"` // "gemini" or "openai"
	GeminiAPIKey string `yaml:"geminiApiKey"`
	GeminiModel  string `yaml:"geminiModel"`
	OpenAIAPIKey string `yaml:"openaiApiKey"`
	OpenAIModel  string `yaml:"openaiModel"`
}

// AuthConfig points at the hosted identity provider used to verify bearer
// tokens. UserInfoURL is the provider's OIDC userinfo endpoint.
type AuthConfig struct {
	UserInfoURL string        `yaml:"userInfoUrl"`
	CacheTTL    time.Duration `yaml:"cacheTtl"`
}

// StorageConfig configures the optional object-storage archive for uploads.
// An empty Endpoint disables archival.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"useSSL"`
}

type LoggerConfig struct {
	Level      logger.LogLevel `yaml:"-"`
	LevelName  string          `yaml:"level"`
	OutputPath string          `yaml:"output"`
	Format     string          `yaml:"format"`
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.LevelDebug
	case "info":
		return logger.LevelInfo
	case "warn", "warning":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			IdleTimeout:    60 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		DB: DBConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			DBName:  "healthlens",
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			Port: "6379",
		},
		AI: AIConfig{
			Provider:    "gemini",
			GeminiModel: "gemini-1.5-flash",
			OpenAIModel: "gpt-4o",
		},
		Auth: AuthConfig{
			CacheTTL: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Bucket: "healthlens-uploads",
		},
		Logger: LoggerConfig{
			LevelName:  "info",
			OutputPath: "stdout",
			Format:     "json",
		},
	}
}

// Load builds the configuration: defaults, then config.yaml (CONFIG_PATH or
// ./config.yaml if present), then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.Logger.Level = parseLogLevel(cfg.Logger.LevelName)

	if cfg.AI.Provider != "gemini" && cfg.AI.Provider != "openai" {
		return nil, fmt.Errorf("unknown AI provider %q (expected gemini or openai)", cfg.AI.Provider)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			c.Server.AllowedOrigins = origins
		}
	}

	c.DB.Host = getEnvOrDefault("DB_HOST", c.DB.Host)
	c.DB.Port = getEnvOrDefault("DB_PORT", c.DB.Port)
	c.DB.User = getEnvOrDefault("DB_USER", c.DB.User)
	c.DB.Password = getEnvOrDefault("DB_PASSWORD", c.DB.Password)
	c.DB.DBName = getEnvOrDefault("DB_NAME", c.DB.DBName)
	c.DB.SSLMode = getEnvOrDefault("DB_SSLMODE", c.DB.SSLMode)

	c.Redis.Host = getEnvOrDefault("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnvOrDefault("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", c.Redis.Password)
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}

	c.AI.Provider = strings.ToLower(getEnvOrDefault("AI_PROVIDER", c.AI.Provider))
	c.AI.GeminiAPIKey = getEnvOrDefault("GEMINI_API_KEY", c.AI.GeminiAPIKey)
	c.AI.GeminiModel = getEnvOrDefault("GEMINI_MODEL", c.AI.GeminiModel)
	c.AI.OpenAIAPIKey = getEnvOrDefault("OPENAI_API_KEY", c.AI.OpenAIAPIKey)
	c.AI.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", c.AI.OpenAIModel)

	c.Auth.UserInfoURL = getEnvOrDefault("AUTH_USERINFO_URL", c.Auth.UserInfoURL)
	if v := os.Getenv("AUTH_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Auth.CacheTTL = d
		}
	}

	c.Storage.Endpoint = getEnvOrDefault("MINIO_ENDPOINT", c.Storage.Endpoint)
	c.Storage.AccessKey = getEnvOrDefault("MINIO_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = getEnvOrDefault("MINIO_SECRET_KEY", c.Storage.SecretKey)
	c.Storage.Bucket = getEnvOrDefault("MINIO_BUCKET", c.Storage.Bucket)
	c.Storage.Region = getEnvOrDefault("MINIO_REGION", c.Storage.Region)
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		c.Storage.UseSSL = strings.EqualFold(v, "true") || v == "1"
	}

	c.Logger.LevelName = getEnvOrDefault("LOG_LEVEL", c.Logger.LevelName)
	c.Logger.OutputPath = getEnvOrDefault("LOG_OUTPUT", c.Logger.OutputPath)
	c.Logger.Format = getEnvOrDefault("LOG_FORMAT", c.Logger.Format)
}

// DSN builds the Postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Addr returns the redis address, or "" when Redis is not configured.
func (c RedisConfig) Addr() string {
	if c.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}
