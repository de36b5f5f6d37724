package shared

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv   string
	LogLevel string

	// client
	APIURL         string
	RequestTimeout time.Duration
	APIRPS         int
	RefreshDedupe  bool
	PollInterval   time.Duration
	WatchWorkers   int

	// token storage
	TokenStore string // memory|file|redis|mysql
	TokenFile  string
	Profile    string
	RedisAddr  string
	RedisPass  string
	RedisDB    int
	MySQLDSN   string

	MetricsAddr string

	// dev backend
	HTTPAddr        string
	ServerTimeout   time.Duration
	AccessTTL       time.Duration
	ProcessingPolls int
}

const (
	DefaultConfigPath = "~/.config/hostiq/config.toml"
	defaultTokenFile  = "~/.config/hostiq/tokens.json"
)

// fileConfig mirrors the TOML keys; pointers tell "unset" from zero.
type fileConfig struct {
	AppEnv           string `toml:"app_env"`
	LogLevel         string `toml:"log_level"`
	APIURL           string `toml:"api_url"`
	RequestTimeoutMS *int   `toml:"request_timeout_ms"`
	APIRPS           *int   `toml:"api_rps"`
	RefreshDedupe    *bool  `toml:"refresh_dedupe"`
	PollIntervalMS   *int   `toml:"poll_interval_ms"`
	WatchWorkers     *int   `toml:"watch_workers"`
	TokenStore       string `toml:"token_store"`
	TokenFile        string `toml:"token_file"`
	Profile          string `toml:"profile"`
	RedisAddr        string `toml:"redis_addr"`
	RedisPassword    string `toml:"redis_password"`
	RedisDB          *int   `toml:"redis_db"`
	MySQLDSN         string `toml:"mysql_dsn"`
	MetricsAddr      string `toml:"metrics_addr"`
}

func defaults() Config {
	return Config{
		AppEnv:          "prod",
		LogLevel:        "info",
		APIURL:          "http://localhost:8080/api",
		RequestTimeout:  120000 * time.Millisecond,
		APIRPS:          10,
		PollInterval:    3 * time.Second,
		WatchWorkers:    4,
		TokenStore:      "file",
		TokenFile:       defaultTokenFile,
		Profile:         "default",
		RedisAddr:       "localhost:6379",
		MySQLDSN:        "root:root@tcp(localhost:3306)/hostiq?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		HTTPAddr:        ":8080",
		ServerTimeout:   15 * time.Second,
		AccessTTL:       15 * time.Minute,
		ProcessingPolls: 3,
	}
}

// Load resolves configuration: defaults, then the TOML file at path (the
// default path when empty; a missing file is fine), then .env in the working
// directory, then the process environment.
func Load(path string) (Config, error) {
	c := defaults()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultConfigPath
	}
	resolved, err := ExpandPath(path)
	if err != nil {
		return Config{}, err
	}
	if err := applyFile(&c, resolved); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return Config{}, err
		}
	}

	// .env never overrides variables already exported
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("ignoring unreadable .env")
	}
	applyEnv(&c)

	c.TokenFile, err = ExpandPath(c.TokenFile)
	if err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.TokenStore {
	case "memory", "file", "redis", "mysql":
	default:
		return fmt.Errorf("TOKEN_STORE must be memory|file|redis|mysql, got %q", c.TokenStore)
	}
	if strings.TrimSpace(c.APIURL) == "" {
		return errors.New("API_URL is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT_MS must be positive")
	}
	if c.PollInterval <= 0 {
		return errors.New("POLL_INTERVAL_MS must be positive")
	}
	return nil
}

func applyFile(c *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config %s: %w", path, err)
		}
		return fmt.Errorf("read config: %w", err)
	}
	var f fileConfig
	if err := toml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setStr := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	setStr(&c.AppEnv, f.AppEnv)
	setStr(&c.LogLevel, f.LogLevel)
	setStr(&c.APIURL, f.APIURL)
	setStr(&c.TokenStore, f.TokenStore)
	setStr(&c.TokenFile, f.TokenFile)
	setStr(&c.Profile, f.Profile)
	setStr(&c.RedisAddr, f.RedisAddr)
	setStr(&c.RedisPass, f.RedisPassword)
	setStr(&c.MySQLDSN, f.MySQLDSN)
	setStr(&c.MetricsAddr, f.MetricsAddr)
	if f.RequestTimeoutMS != nil {
		c.RequestTimeout = time.Duration(*f.RequestTimeoutMS) * time.Millisecond
	}
	if f.APIRPS != nil {
		c.APIRPS = *f.APIRPS
	}
	if f.RefreshDedupe != nil {
		c.RefreshDedupe = *f.RefreshDedupe
	}
	if f.PollIntervalMS != nil {
		c.PollInterval = time.Duration(*f.PollIntervalMS) * time.Millisecond
	}
	if f.WatchWorkers != nil {
		c.WatchWorkers = *f.WatchWorkers
	}
	if f.RedisDB != nil {
		c.RedisDB = *f.RedisDB
	}
	return nil
}

func applyEnv(c *Config) {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer setting")
		}
		return def
	}
	boolean := func(k string, def bool) bool {
		if v := os.Getenv(k); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
		return def
	}

	c.AppEnv = env("APP_ENV", c.AppEnv)
	c.LogLevel = env("LOG_LEVEL", c.LogLevel)
	c.APIURL = env("API_URL", c.APIURL)
	c.RequestTimeout = time.Duration(atoi("REQUEST_TIMEOUT_MS", int(c.RequestTimeout/time.Millisecond))) * time.Millisecond
	c.APIRPS = atoi("API_RPS", c.APIRPS)
	c.RefreshDedupe = boolean("REFRESH_DEDUPE", c.RefreshDedupe)
	c.PollInterval = time.Duration(atoi("POLL_INTERVAL_MS", int(c.PollInterval/time.Millisecond))) * time.Millisecond
	c.WatchWorkers = atoi("WATCH_WORKERS", c.WatchWorkers)
	c.TokenStore = env("TOKEN_STORE", c.TokenStore)
	c.TokenFile = env("TOKEN_FILE", c.TokenFile)
	c.Profile = env("PROFILE", c.Profile)
	c.RedisAddr = env("REDIS_ADDR", c.RedisAddr)
	c.RedisPass = env("REDIS_PASSWORD", c.RedisPass)
	c.RedisDB = atoi("REDIS_DB", c.RedisDB)
	c.MySQLDSN = env("MYSQL_DSN", c.MySQLDSN)
	c.MetricsAddr = env("METRICS_ADDR", c.MetricsAddr)
	c.HTTPAddr = env("HTTP_ADDR", c.HTTPAddr)
	c.ServerTimeout = time.Duration(atoi("SERVER_TIMEOUT_MS", int(c.ServerTimeout/time.Millisecond))) * time.Millisecond
	c.AccessTTL = time.Duration(atoi("ACCESS_TTL_SECONDS", int(c.AccessTTL/time.Second))) * time.Second
	c.ProcessingPolls = atoi("PROCESSING_POLLS", c.ProcessingPolls)
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// ExpandPath resolves a leading ~ and makes the path absolute.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
