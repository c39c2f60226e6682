package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Session  SessionConfig
	Presence PresenceConfig
}

type ServerConfig struct {
	ListenAddr      string        `env:"LISTEN_ADDR"      env-default:":3002"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL"  env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
}

// StorageConfig selects the document and template backend.
type StorageConfig struct {
	Type             string        `env:"STORAGE_TYPE"       env-default:"memory"`
	LocalPath        string        `env:"LOCAL_STORAGE_PATH" env-default:"./data"`
	DataSourceName   string        `env:"DATA_SOURCE_NAME"   env-default:"collab-docs.db"`
	S3BucketName     string        `env:"S3_BUCKET_NAME"`
	RemoteAPIURL     string        `env:"REMOTE_API_URL"     env-default:"http://localhost:3000/api"`
	RemoteAPITimeout time.Duration `env:"REMOTE_API_TIMEOUT" env-default:"5s"`
}

type AuthConfig struct {
	// JWTSecret enables bearer identity on the collab routes when set.
	JWTSecret string `env:"JWT_SECRET"`
}

type SessionConfig struct {
	AutosaveDelay        time.Duration `env:"AUTOSAVE_DELAY"         env-default:"2s"`
	ToastDuration        time.Duration `env:"TOAST_DURATION"         env-default:"5s"`
	TypingThrottle       time.Duration `env:"TYPING_THROTTLE"        env-default:"4s"`
	TypingSignalInterval time.Duration `env:"TYPING_SIGNAL_INTERVAL" env-default:"1500ms"`
	IndicatorTTL         time.Duration `env:"EDITING_INDICATOR_TTL"  env-default:"3s"`
	SeedDemo             bool          `env:"SEED_DEMO"              env-default:"true"`
}

type PresenceConfig struct {
	Interval   time.Duration `env:"PRESENCE_INTERVAL"   env-default:"15s"`
	Simulation bool          `env:"PRESENCE_SIMULATION" env-default:"true"`
}

// Load reads an optional .env file, then the environment and defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values the tags cannot express.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json (got %q)", c.Log.Format)
	}

	switch c.Storage.Type {
	case "", "memory", "filesystem", "sqlite":
	case "s3":
		if c.Storage.S3BucketName == "" {
			return fmt.Errorf("S3_BUCKET_NAME must be set for s3 storage")
		}
	case "remote":
		u, err := url.Parse(c.Storage.RemoteAPIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("REMOTE_API_URL must be an absolute URL (got %q)", c.Storage.RemoteAPIURL)
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}

	for name, d := range map[string]time.Duration{
		"AUTOSAVE_DELAY":         c.Session.AutosaveDelay,
		"TOAST_DURATION":         c.Session.ToastDuration,
		"TYPING_SIGNAL_INTERVAL": c.Session.TypingSignalInterval,
		"EDITING_INDICATOR_TTL":  c.Session.IndicatorTTL,
		"PRESENCE_INTERVAL":      c.Presence.Interval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive (got %s)", name, d)
		}
	}
	if c.Session.TypingThrottle < 0 {
		return fmt.Errorf("TYPING_THROTTLE must not be negative (got %s)", c.Session.TypingThrottle)
	}
	return nil
}
