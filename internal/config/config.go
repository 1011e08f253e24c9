// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds the settings shared by the CLI, the server and the viewer.
type Config struct {
	Backend       string // Numeric backend for the classifier
	APIURL        string // Remote processing API
	Listen        string // Local HTTP service address
	LogLevel      string
	MaxDim        int // Downscale limit for decoded images, 0 disables
	Release       bool
	UploadLimitMB int
}

// New creates a configuration from environment variables.
func New() *Config {
	return &Config{
		Backend:       getEnv("LIGHTSHADE_BACKEND", "cpu"),
		APIURL:        strings.TrimRight(getEnv("LIGHTSHADE_API_URL", "http://localhost:10000"), "/"),
		Listen:        getEnv("LIGHTSHADE_LISTEN", ":8081"),
		LogLevel:      getEnv("LIGHTSHADE_LOG_LEVEL", "info"),
		MaxDim:        getEnvInt("LIGHTSHADE_MAX_DIM", 0),
		Release:       getEnvBool("LIGHTSHADE_RELEASE", false),
		UploadLimitMB: getEnvInt("LIGHTSHADE_UPLOAD_LIMIT_MB", 32),
	}
}

// Load reads the given .env files (or ./.env when none are named) into the
// environment and then builds the configuration. Missing files are not an
// error.
func Load(files ...string) *Config {
	if err := godotenv.Load(files...); err != nil {
		log.Debugf("no .env file loaded: %v", err)
	}
	return New()
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.MaxDim < 0 {
		return fmt.Errorf("LIGHTSHADE_MAX_DIM must not be negative, got %d", c.MaxDim)
	}
	if c.UploadLimitMB <= 0 {
		return fmt.Errorf("LIGHTSHADE_UPLOAD_LIMIT_MB must be positive, got %d", c.UploadLimitMB)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LIGHTSHADE_LOG_LEVEL: %w", err)
	}
	return nil
}

// ApplyLogLevel sets the logrus level, keeping the current one when the
// configured name is unknown.
func (c *Config) ApplyLogLevel() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warnf("unknown log level %q, keeping %s", c.LogLevel, log.GetLevel())
		return
	}
	log.SetLevel(level)
}

// UploadLimit returns the upload limit in bytes.
func (c *Config) UploadLimit() int64 {
	return int64(c.UploadLimitMB) << 20
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
