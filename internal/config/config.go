package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the resumatch server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	AI        AIConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port      int
	Env       string
	UploadDir string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type AIConfig struct {
	// OllamaBaseURL is shared by every user on the ollama provider; hosted
	// providers carry per-user credentials instead.
	OllamaBaseURL  string
	RequestTimeout time.Duration
}

type SchedulerConfig struct {
	// TickInterval is how often each work kind is re-scanned once the model
	// backend is ready.
	TickInterval time.Duration
	// BackoffWindow is the minimum wait before a rate-limited compatibility
	// record becomes eligible again.
	BackoffWindow time.Duration
	// ReadyAttempts and ReadyInterval bound the startup probe of the model
	// backend. If the backend never answers, the scheduler gives up without
	// taking the server down.
	ReadyAttempts int
	ReadyInterval time.Duration
}

// Load reads configuration from environment variables and returns a
// validated Config. Returns an error with a descriptive message if any
// required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:      envInt("RESUMATCH_PORT", 8080),
			Env:       envString("RESUMATCH_ENV", "development"),
			UploadDir: envString("UPLOAD_DIR", "uploads"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		AI: AIConfig{
			OllamaBaseURL:  envString("OLLAMA_BASE_URL", "http://localhost:11434"),
			RequestTimeout: envDurationSecs("AI_REQUEST_TIMEOUT_SECS", 120*time.Second),
		},
		Scheduler: SchedulerConfig{
			TickInterval:  envDuration("SCHEDULER_TICK_INTERVAL", 60*time.Second),
			BackoffWindow: envDuration("COMPAT_BACKOFF_WINDOW", 15*time.Minute),
			ReadyAttempts: envInt("MODEL_READY_ATTEMPTS", 3),
			ReadyInterval: envDuration("MODEL_READY_INTERVAL", 10*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.Scheduler.TickInterval <= 0 {
		return fmt.Errorf("SCHEDULER_TICK_INTERVAL must be positive, got %s", c.Scheduler.TickInterval)
	}
	if c.Scheduler.BackoffWindow <= 0 {
		return fmt.Errorf("COMPAT_BACKOFF_WINDOW must be positive, got %s", c.Scheduler.BackoffWindow)
	}
	if c.Scheduler.ReadyAttempts < 1 {
		return fmt.Errorf("MODEL_READY_ATTEMPTS must be at least 1, got %d", c.Scheduler.ReadyAttempts)
	}
	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
