// Package config loads process configuration from defaults, an optional YAML
// file, a .env file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Config is the process configuration.
//
// Broker credentials for password reset delivery are deliberately absent:
// they are read from the environment whenever a message is sent.
type Config struct {
	AppEnv   string `yaml:"app_env"`
	DBPath   string `yaml:"db_path"`
	Addr     string `yaml:"addr"`
	LogPath  string `yaml:"log_path"`
	LogLevel string `yaml:"log_level"`

	BcryptCost    int           `yaml:"bcrypt_cost"`
	ResetTokenTTL time.Duration `yaml:"reset_token_ttl"`
	ResetURL      string        `yaml:"reset_url"`
	NotifyQueue   string        `yaml:"notify_queue"`

	AdminPassword  string `yaml:"admin_password"`
	SeedSampleData bool   `yaml:"seed_sample_data"`

	LoginRate  float64 `yaml:"login_rate"`
	LoginBurst int     `yaml:"login_burst"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AppEnv:         "development",
		DBPath:         "ossms.sqlite3",
		Addr:           ":8080",
		LogLevel:       "info",
		BcryptCost:     bcrypt.DefaultCost,
		ResetTokenTTL:  time.Hour,
		ResetURL:       "http://localhost:3000/reset-password",
		NotifyQueue:    "ossms.password_reset",
		AdminPassword:  "password",
		SeedSampleData: true,
		LoginRate:      1,
		LoginBurst:     5,
	}
}

// Load builds the configuration. path names an optional YAML file; when empty
// OSSMS_CONFIG is consulted. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("OSSMS_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config file %s not found", path)
	}
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.AppEnv = getEnv("OSSMS_ENV", c.AppEnv)
	c.DBPath = getEnv("OSSMS_DB", c.DBPath)
	c.Addr = getEnv("OSSMS_ADDR", c.Addr)
	c.LogPath = getEnv("OSSMS_LOG", c.LogPath)
	c.LogLevel = getEnv("OSSMS_LOG_LEVEL", c.LogLevel)
	c.BcryptCost = getEnvInt("OSSMS_BCRYPT_COST", c.BcryptCost)
	c.ResetTokenTTL = getEnvDuration("OSSMS_RESET_TTL", c.ResetTokenTTL)
	c.ResetURL = getEnv("OSSMS_RESET_URL", c.ResetURL)
	c.NotifyQueue = getEnv("OSSMS_NOTIFY_QUEUE", c.NotifyQueue)
	c.AdminPassword = getEnv("OSSMS_ADMIN_PASSWORD", c.AdminPassword)
	c.SeedSampleData = getEnvBool("OSSMS_SEED_SAMPLE", c.SeedSampleData)
	c.LoginRate = getEnvFloat("OSSMS_LOGIN_RATE", c.LoginRate)
	c.LoginBurst = getEnvInt("OSSMS_LOGIN_BURST", c.LoginBurst)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db path must not be empty")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost %d out of range [%d, %d]", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.ResetTokenTTL <= 0 {
		return errors.New("reset token ttl must be positive")
	}
	if c.LoginRate <= 0 || c.LoginBurst <= 0 {
		return errors.New("login rate and burst must be positive")
	}
	return nil
}

// IsProduction reports whether the process runs in production.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.AppEnv) {
	case "production", "prod":
		return true
	}
	return false
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
