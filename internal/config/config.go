package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar points at an optional YAML file layered between defaults and env.
const ConfigPathEnvVar = "CAMPUSSAFE_CONFIG"

var defaultConfigPaths = []string{"config.yaml", "/etc/campussafe/config.yaml"}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Auth      AuthConfig      `koanf:"auth"`
	Maps      MapsConfig      `koanf:"maps"`
	SMS       SMSConfig       `koanf:"sms"`
	Assistant AssistantConfig `koanf:"assistant"`
}

type ServerConfig struct {
	Host        string `koanf:"host"`
	Port        int    `koanf:"port"`
	Secure      bool   `koanf:"secure"`      // Use HTTPS-only cookies
	Environment string `koanf:"environment"` // "development", "production", "test"
	BaseURL     string `koanf:"base_url"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "json" or "console"
}

type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"name"`
	SSLMode  string `koanf:"sslmode"`
}

type RedisConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	PoolSize int    `koanf:"pool_size"`
}

// AuthConfig holds identity provider credentials.
type AuthConfig struct {
	GoogleClientID     string `koanf:"google_client_id"`
	GoogleClientSecret string `koanf:"google_client_secret"`
	GoogleRedirectURL  string `koanf:"google_redirect_url"`
}

type MapsConfig struct {
	GoogleAPIKey string `koanf:"google_api_key"`
}

type SMSConfig struct {
	TwilioAccountSID   string `koanf:"twilio_account_sid"`
	TwilioAuthToken    string `koanf:"twilio_auth_token"`
	TwilioFromNumber   string `koanf:"twilio_from_number"`
	DefaultCountryCode string `koanf:"default_country_code"`
}

type AssistantConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// GoogleEnabled reports whether Google sign-in is configured.
func (a AuthConfig) GoogleEnabled() bool {
	return a.GoogleClientID != "" && a.GoogleClientSecret != ""
}

// TwilioEnabled reports whether all Twilio credentials are present.
func (s SMSConfig) TwilioEnabled() bool {
	return s.TwilioAccountSID != "" && s.TwilioAuthToken != "" && s.TwilioFromNumber != ""
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Secure:      false,
			Environment: "development",
			BaseURL:     "http://localhost:8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "campussafe",
			Password: "campussafe",
			DBName:   "campussafe",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			PoolSize: 10,
		},
		Auth: AuthConfig{
			GoogleRedirectURL: "http://localhost:8080/api/auth/google/callback",
		},
		SMS: SMSConfig{
			DefaultCountryCode: "1",
		},
		Assistant: AssistantConfig{
			Model: "gpt-4o-mini",
		},
	}
}

// envMappings maps the flat environment variable names to koanf paths.
var envMappings = map[string]string{
	"SERVER_HOST":   "server.host",
	"SERVER_PORT":   "server.port",
	"SERVER_SECURE": "server.secure",
	"APP_ENV":       "server.environment",
	"APP_BASE_URL":  "server.base_url",

	"LOG_LEVEL":  "log.level",
	"LOG_FORMAT": "log.format",

	"DB_HOST":     "database.host",
	"DB_PORT":     "database.port",
	"DB_USER":     "database.user",
	"DB_PASSWORD": "database.password",
	"DB_NAME":     "database.name",
	"DB_SSLMODE":  "database.sslmode",

	"REDIS_HOST":      "redis.host",
	"REDIS_PORT":      "redis.port",
	"REDIS_PASSWORD":  "redis.password",
	"REDIS_DB":        "redis.db",
	"REDIS_POOL_SIZE": "redis.pool_size",

	"GOOGLE_CLIENT_ID":     "auth.google_client_id",
	"GOOGLE_CLIENT_SECRET": "auth.google_client_secret",
	"GOOGLE_REDIRECT_URL":  "auth.google_redirect_url",

	"GOOGLE_MAPS_API_KEY": "maps.google_api_key",

	"TWILIO_ACCOUNT_SID":       "sms.twilio_account_sid",
	"TWILIO_AUTH_TOKEN":        "sms.twilio_auth_token",
	"TWILIO_FROM_NUMBER":       "sms.twilio_from_number",
	"SMS_DEFAULT_COUNTRY_CODE": "sms.default_country_code",

	"OPENAI_API_KEY":  "assistant.api_key",
	"OPENAI_BASE_URL": "assistant.base_url",
	"ASSISTANT_MODEL": "assistant.model",
}

// envTransform returns the koanf path for a known variable and "" for
// everything else, which the env provider skips.
func envTransform(key string) string {
	return envMappings[strings.ToUpper(key)]
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if path, ok := os.LookupEnv(ConfigPathEnvVar); ok && path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
