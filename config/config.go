package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig holds file and environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	App      AppSection      `mapstructure:"app"`
	Gin      GinSection      `mapstructure:"gin"`
	Database DatabaseSection `mapstructure:"database"`
	Redis    RedisSection    `mapstructure:"redis"`
	Log      LogSection      `mapstructure:"log"`
	Media    MediaSection    `mapstructure:"media"`
}

type AppSection struct {
	Port               string   `mapstructure:"port"`
	JWTSecret          string   `mapstructure:"jwt_secret"`
	TokenTTLHours      int      `mapstructure:"token_ttl_hours"`
	CookieSecure       bool     `mapstructure:"cookie_secure"`
	PageSize           int      `mapstructure:"page_size"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	Gzip               bool     `mapstructure:"gzip"`
}

type GinSection struct {
	Mode    string `mapstructure:"mode"`
	LogPath string `mapstructure:"log_path"`
}

type DatabaseSection struct {
	// Driver is one of mysql, postgres or sqlite.
	Driver   string `mapstructure:"driver"`
	URI      string `mapstructure:"uri"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisSection struct {
	// Host left empty disables Redis; feeds are then served uncached.
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	DB              int    `mapstructure:"db"`
	Password        string `mapstructure:"password"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
}

type LogSection struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type MediaSection struct {
	Dir         string `mapstructure:"dir"`
	MaxUploadMB int    `mapstructure:"max_upload_mb"`
	ImageMaxPx  int    `mapstructure:"image_max_px"`
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// ErrMissingSecret is returned when no JWT secret has been configured.
var ErrMissingSecret = errors.New("app.jwt_secret (APP_JWT_SECRET) must be set")

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()

	// Precedence: defaults -> config/config.json -> .env -> environment variables
	_ = godotenv.Load()
	c, err := LoadFrom(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	Set(c)
	return c
}

// LoadFrom reads the JSON file at path when it exists, then applies environment overrides.
func LoadFrom(path string) (AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return AppConfig{}, fmt.Errorf("read %s: %w", path, err)
			}
		}
	}

	var out AppConfig
	if err := v.Unmarshal(&out); err != nil {
		return AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	// comma separated lists from the environment keep their spaces
	out.App.AllowedOrigins = splitAndTrim(strings.Join(out.App.AllowedOrigins, ","))
	if out.App.JWTSecret == "" {
		return AppConfig{}, ErrMissingSecret
	}
	return out, nil
}

// Set installs c as the process wide configuration.
func Set(c AppConfig) {
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	ok := loaded
	c := cfg
	mu.RUnlock()
	if !ok {
		return Load()
	}
	return c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.jwt_secret", "")
	v.SetDefault("app.token_ttl_hours", 72)
	v.SetDefault("app.cookie_secure", false)
	v.SetDefault("app.page_size", 10)
	v.SetDefault("app.rate_limit_per_minute", 60)
	v.SetDefault("app.allowed_origins", []string{"*"})
	v.SetDefault("app.gzip", true)

	v.SetDefault("gin.mode", "release")
	v.SetDefault("gin.log_path", "logs/go_gin.log")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.uri", "")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "yatube")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.cache_ttl_seconds", 20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.compress", false)

	v.SetDefault("media.dir", "media")
	v.SetDefault("media.max_upload_mb", 5)
	v.SetDefault("media.image_max_px", 960)
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
