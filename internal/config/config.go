package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds the client configuration loaded from environment variables.
type Config struct {
	APIURL       string
	WSURL        string
	HTTPTimeout  time.Duration
	WriteTimeout time.Duration
	Username     string
	Password     string //nolint:gosec // G117: login credential config
	NoColor      bool
	Log          LogConfig
}

// LogConfig holds logging settings shared by every subcommand.
type LogConfig struct {
	Level  string
	Format string
	// File receives logs while the terminal UI owns stdout. Empty discards them.
	File string
}

// ServerConfig holds the reference server configuration.
type ServerConfig struct {
	Server    HTTPConfig
	JWT       JWTConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Seed      SeedConfig
	Log       LogConfig
}

// HTTPConfig holds HTTP listener settings.
type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret     string //nolint:gosec // G117: JWT signing secret config
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// DatabaseConfig holds PostgreSQL settings. An empty DSN selects the
// in-memory store.
type DatabaseConfig struct {
	DSN      string
	MaxConns int
}

// RedisConfig holds Redis settings. An empty Addr selects the in-process
// broker.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// RateLimitConfig bounds request rates.
type RateLimitConfig struct {
	PerUser    float64
	UserBurst  int
	LoginPerIP float64
	LoginBurst int
}

// SeedConfig names a user created at startup when it does not exist.
type SeedConfig struct {
	Username string
	Password string //nolint:gosec // G117: development seed credential
}

// Load reads the client configuration from environment variables.
func Load() (*Config, error) {
	httpTimeout, err := getEnvDuration("PRONO_HTTP_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("PRONO_WS_WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	noColor, err := getEnvBool("PRONO_NO_COLOR", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		APIURL:       strings.TrimRight(getEnv("PRONO_API_URL", "http://localhost:8000/api"), "/"),
		WSURL:        strings.TrimRight(getEnv("PRONO_WS_URL", "ws://localhost:8000/ws/projects"), "/"),
		HTTPTimeout:  httpTimeout,
		WriteTimeout: writeTimeout,
		Username:     getEnv("PRONO_USERNAME", ""),
		Password:     getEnv("PRONO_PASSWORD", ""),
		NoColor:      noColor,
		Log:          loadLog(),
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if err := checkURL("PRONO_API_URL", c.APIURL, "http", "https"); err != nil {
		return err
	}
	if err := checkURL("PRONO_WS_URL", c.WSURL, "ws", "wss"); err != nil {
		return err
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("PRONO_HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("PRONO_WS_WRITE_TIMEOUT must be positive, got %s", c.WriteTimeout)
	}
	return nil
}

// LoadServer reads the reference server configuration from environment
// variables. Defaults are safe for local development only; the JWT secret
// has no default.
func LoadServer() (*ServerConfig, error) {
	dbMaxConns, err := getEnvInt("PRONO_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("config.LoadServer: %w", err)
	}

	redisDB, err := getEnvInt("PRONO_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.LoadServer: %w", err)
	}

	accessTTL, err := getEnvDuration("PRONO_JWT_ACCESS_TTL", 60*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.LoadServer: %w", err)
	}

	refreshTTL, err := getEnvDuration("PRONO_JWT_REFRESH_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.LoadServer: %w", err)
	}

	readTimeout, err := getEnvDuration("PRONO_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.LoadServer: %w", err)
	}

	writeTimeout, err := getEnvDuration("PRONO_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.LoadServer: %w", err)
	}

	userRate, err := getEnvFloat("PRONO_RATE_PER_USER", 10)
	if err != nil {
		return nil, fmt.Errorf("config.LoadServer: %w", err)
	}

	userBurst, err := getEnvInt("PRONO_RATE_USER_BURST", 20)
	if err != nil {
		return nil, fmt.Errorf("config.LoadServer: %w", err)
	}

	loginRate, err := getEnvFloat("PRONO_RATE_LOGIN_PER_IP", 1)
	if err != nil {
		return nil, fmt.Errorf("config.LoadServer: %w", err)
	}

	loginBurst, err := getEnvInt("PRONO_RATE_LOGIN_BURST", 5)
	if err != nil {
		return nil, fmt.Errorf("config.LoadServer: %w", err)
	}

	cfg := &ServerConfig{
		Server: HTTPConfig{
			Addr:         getEnv("PRONO_SERVER_ADDR", ":8000"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  getEnvList("PRONO_CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		JWT: JWTConfig{
			Secret:     getEnv("PRONO_JWT_SECRET", ""),
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		Database: DatabaseConfig{
			DSN:      getEnv("PRONO_DB_DSN", ""),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("PRONO_REDIS_ADDR", ""),
			Password: getEnv("PRONO_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		RateLimit: RateLimitConfig{
			PerUser:    userRate,
			UserBurst:  userBurst,
			LoginPerIP: loginRate,
			LoginBurst: loginBurst,
		},
		Seed: SeedConfig{
			Username: getEnv("PRONO_SEED_USERNAME", ""),
			Password: getEnv("PRONO_SEED_PASSWORD", ""),
		},
		Log: loadLog(),
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.LoadServer: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *ServerConfig) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("PRONO_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("PRONO_JWT_SECRET must be at least 32 characters")
	}

	if c.Database.DSN == "" {
		log.Warn().Msg("PRONO_DB_DSN is not set; data is kept in memory and lost on restart")
	}
	if (c.Seed.Username == "") != (c.Seed.Password == "") {
		return errors.New("PRONO_SEED_USERNAME and PRONO_SEED_PASSWORD must be set together")
	}

	// Bounds checks.
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("PRONO_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("PRONO_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("PRONO_JWT_REFRESH_TTL must be positive, got %s", c.JWT.RefreshTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("PRONO_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("PRONO_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.RateLimit.PerUser <= 0 || c.RateLimit.UserBurst < 1 {
		return fmt.Errorf("PRONO_RATE_PER_USER/PRONO_RATE_USER_BURST must be positive, got %g/%d", c.RateLimit.PerUser, c.RateLimit.UserBurst)
	}
	if c.RateLimit.LoginPerIP <= 0 || c.RateLimit.LoginBurst < 1 {
		return fmt.Errorf("PRONO_RATE_LOGIN_PER_IP/PRONO_RATE_LOGIN_BURST must be positive, got %g/%d", c.RateLimit.LoginPerIP, c.RateLimit.LoginBurst)
	}

	return nil
}

func loadLog() LogConfig {
	return LogConfig{
		Level:  getEnv("PRONO_LOG_LEVEL", "info"),
		Format: getEnv("PRONO_LOG_FORMAT", "json"),
		File:   getEnv("PRONO_LOG_FILE", ""),
	}
}

func checkURL(key, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing %s=%q as URL: %w", key, raw, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be a %s URL, got %q", key, strings.Join(schemes, "/"), raw)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
