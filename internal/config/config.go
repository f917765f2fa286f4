package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Remote store drivers
const (
	DriverNone      = "none"
	DriverHTTP      = "http"
	DriverSQLite    = "sqlite"
	DriverFirestore = "firestore"
)

// Secret store drivers
const (
	SecretsFile    = "file"
	SecretsKeyring = "keyring"
)

type Config struct {
	Env         string `yaml:"env" env:"ENV" env-default:"local"`
	StorageRoot string `yaml:"storage_root" env:"STORAGE_ROOT"`
	HostVersion string `yaml:"host_version" env:"HOST_VERSION" env-default:"unknown"`

	Log       LogConfig       `yaml:"log"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	Remote    RemoteConfig    `yaml:"remote"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	Device    DeviceConfig    `yaml:"device"`
	Server    ServerConfig    `yaml:"server"`
	Workspace WorkspaceConfig `yaml:"workspace"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

type TrackingConfig struct {
	IdleThreshold     time.Duration `yaml:"idle_threshold" env:"TRACKING_IDLE_THRESHOLD" env-default:"5m"`
	IdleCheckInterval time.Duration `yaml:"idle_check_interval" env:"TRACKING_IDLE_CHECK_INTERVAL" env-default:"60s"`
	QueueSize         int           `yaml:"queue_size" env:"TRACKING_QUEUE_SIZE" env-default:"256"`
}

type RemoteConfig struct {
	Driver     string          `yaml:"driver" env:"REMOTE_DRIVER" env-default:"none"`
	Collection string          `yaml:"collection" env:"REMOTE_COLLECTION" env-default:"coding-activity-events"`
	HTTP       HTTPConfig      `yaml:"http"`
	SQLite     SQLiteConfig    `yaml:"sqlite"`
	Firestore  FirestoreConfig `yaml:"firestore"`
}

type HTTPConfig struct {
	BaseURL string        `yaml:"base_url" env:"REMOTE_HTTP_BASE_URL"`
	APIKey  string        `yaml:"api_key" env:"REMOTE_HTTP_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env:"REMOTE_HTTP_TIMEOUT" env-default:"10s"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" env:"REMOTE_SQLITE_PATH"`
}

type FirestoreConfig struct {
	ProjectID       string `yaml:"project_id" env:"FIREBASE_PROJECT_ID"`
	CredentialsFile string `yaml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`
}

type SecretsConfig struct {
	Driver  string `yaml:"driver" env:"SECRETS_DRIVER" env-default:"file"`
	Service string `yaml:"service" env:"SECRETS_SERVICE" env-default:"coding-activity-agent"`
}

type DeviceConfig struct {
	UserID string `yaml:"user_id" env:"DEVICE_USER_ID"`
}

type ServerConfig struct {
	Disabled  bool          `yaml:"disabled" env:"SERVER_DISABLED"`
	Port      int           `yaml:"port" env:"SERVER_PORT" env-default:"8765"`
	NoticeTTL time.Duration `yaml:"notice_ttl" env:"SERVER_NOTICE_TTL" env-default:"10m"`

	// Browser origins allowed to call the bridge, matched as prefixes
	AllowedOrigins []string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS" env-separator:"," env-default:"vscode-webview://"`
}

type WorkspaceConfig struct {
	Watch bool     `yaml:"watch" env:"WORKSPACE_WATCH" env-default:"false"`
	Paths []string `yaml:"paths" env:"WORKSPACE_PATHS" env-separator:","`
}

// LoadConfig reads the YAML file at path with environment overrides.
// A missing file is not an error: defaults and environment are used instead.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	if cfg.StorageRoot == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve storage root: %w", err)
		}
		cfg.StorageRoot = filepath.Join(dir, "coding-activity-agent")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Remote.Driver {
	case DriverNone, DriverHTTP, DriverSQLite, DriverFirestore:
	default:
		return fmt.Errorf("unknown remote driver %q", c.Remote.Driver)
	}
	switch c.Secrets.Driver {
	case SecretsFile, SecretsKeyring:
	default:
		return fmt.Errorf("unknown secrets driver %q", c.Secrets.Driver)
	}
	if c.Tracking.IdleThreshold <= 0 {
		return fmt.Errorf("tracking.idle_threshold must be positive")
	}
	if c.Tracking.IdleCheckInterval <= 0 {
		return fmt.Errorf("tracking.idle_check_interval must be positive")
	}
	if c.Tracking.QueueSize < 1 {
		c.Tracking.QueueSize = 1
	}
	return nil
}

// BackupDir is the directory holding the per-day local backup files
func (c *Config) BackupDir() string {
	return filepath.Join(c.StorageRoot, "coding-activity-data")
}

// SecretsPath is the file used by the file secret store
func (c *Config) SecretsPath() string {
	return filepath.Join(c.StorageRoot, "secrets.json")
}
