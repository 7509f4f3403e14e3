// Package config loads server settings from the environment and an optional
// config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type AppConfig struct {
	HTTPAddr       string   `mapstructure:"HTTP_ADDR"`
	Host           string   `mapstructure:"HOST"`
	Port           int      `mapstructure:"PORT"`
	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`

	StockfishPath     string        `mapstructure:"STOCKFISH_PATH"`
	StockfishEnabled  bool          `mapstructure:"STOCKFISH_ENABLED"`
	StockfishDepth    int           `mapstructure:"STOCKFISH_DEPTH"`
	StockfishMaxProcs int           `mapstructure:"STOCKFISH_MAX_PROCS"`
	EngineTimeout     time.Duration `mapstructure:"ENGINE_TIMEOUT"`
	BotReplyDelay     time.Duration `mapstructure:"BOT_REPLY_DELAY"`

	ProfileStore  string `mapstructure:"PROFILE_STORE"`
	TokenStore    string `mapstructure:"TOKEN_STORE"`
	RedisURL      string `mapstructure:"REDIS_URL"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	AdminUsername           string        `mapstructure:"ADMIN_USERNAME"`
	AdminPassword           string        `mapstructure:"ADMIN_PASSWORD"`
	AdminTokenTTL           time.Duration `mapstructure:"ADMIN_TOKEN_TTL"`
	AdminRequiredForProfile bool          `mapstructure:"ADMIN_REQUIRED_FOR_PROFILE"`

	MessagesDir string `mapstructure:"MESSAGES_DIR"`

	LogLevel     string `mapstructure:"LOG_LEVEL"`
	LogFormat    string `mapstructure:"LOG_FORMAT"`
	LogToConsole bool   `mapstructure:"LOG_TO_CONSOLE"`
	LogToFile    bool   `mapstructure:"LOG_TO_FILE"`
	LogFile      string `mapstructure:"LOG_FILE"`
	LogCaller    bool   `mapstructure:"LOG_CALLER"`
}

var defaults = map[string]any{
	"HTTP_ADDR":       "",
	"HOST":            "0.0.0.0",
	"PORT":            3000,
	"ALLOWED_ORIGINS": []string{},

	"STOCKFISH_PATH":      "stockfish",
	"STOCKFISH_ENABLED":   true,
	"STOCKFISH_DEPTH":     12,
	"STOCKFISH_MAX_PROCS": 0,
	"ENGINE_TIMEOUT":      8 * time.Second,
	"BOT_REPLY_DELAY":     450 * time.Millisecond,

	"PROFILE_STORE":  StoreMemory,
	"TOKEN_STORE":    StoreMemory,
	"REDIS_URL":      "",
	"DATABASE_URL":   "",
	"MONGO_URI":      "",
	"MONGO_DATABASE": "chess_coach",

	"ADMIN_USERNAME":             "",
	"ADMIN_PASSWORD":             "",
	"ADMIN_TOKEN_TTL":            12 * time.Hour,
	"ADMIN_REQUIRED_FOR_PROFILE": false,

	"MESSAGES_DIR": "",

	"LOG_LEVEL":      "info",
	"LOG_FORMAT":     "legacy",
	"LOG_TO_CONSOLE": true,
	"LOG_TO_FILE":    false,
	"LOG_FILE":       "logs/chess-coach.log",
	"LOG_CALLER":     false,
}

// Load reads defaults, then CONFIG_FILE (dotenv or YAML, optional), then the
// environment, which wins.
func Load() (*AppConfig, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) normalize() {
	c.HTTPAddr = strings.TrimSpace(c.HTTPAddr)
	if c.HTTPAddr == "" {
		c.HTTPAddr = net.JoinHostPort(strings.TrimSpace(c.Host), strconv.Itoa(c.Port))
	}
	origins := c.AllowedOrigins[:0]
	for _, o := range c.AllowedOrigins {
		if s := strings.TrimSpace(o); s != "" {
			origins = append(origins, s)
		}
	}
	c.AllowedOrigins = origins
	c.ProfileStore = strings.ToLower(strings.TrimSpace(c.ProfileStore))
	c.TokenStore = strings.ToLower(strings.TrimSpace(c.TokenStore))
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.MongoURI = strings.TrimSpace(c.MongoURI)
	c.StockfishPath = strings.TrimSpace(c.StockfishPath)
	c.AdminUsername = strings.TrimSpace(c.AdminUsername)
}

func (c *AppConfig) validate() error {
	switch c.ProfileStore {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required")
		}
	default:
		return fmt.Errorf("unknown PROFILE_STORE %q", c.ProfileStore)
	}

	switch c.TokenStore {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required")
		}
	default:
		return fmt.Errorf("unknown TOKEN_STORE %q", c.TokenStore)
	}

	if c.StockfishEnabled && c.StockfishPath == "" {
		return errors.New("STOCKFISH_PATH is required")
	}
	if c.AdminRequiredForProfile && (c.AdminUsername == "" || c.AdminPassword == "") {
		return errors.New("ADMIN_USERNAME and ADMIN_PASSWORD are required")
	}
	return nil
}
