package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Media    MediaConfig    `toml:"media"`
	Logging  LoggingConfig  `toml:"logging"`
	Ngrok    NgrokConfig    `toml:"ngrok"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port        string   `toml:"port"`
	Host        string   `toml:"host"`
	EnableCORS  bool     `toml:"enable_cors"`
	CORSOrigins []string `toml:"cors_origins"`
	ReadTimeout int      `toml:"read_timeout_seconds"`
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	Path           string `toml:"path"`
	MaxConnections int    `toml:"max_connections"`
}

// AuthConfig contains authentication configuration. The JWT signing secret is
// only read from the environment (SONATA_JWT_SECRET), never from the file.
type AuthConfig struct {
	TokenTTLHours     int  `toml:"token_ttl_hours"`
	AllowRegistration bool `toml:"allow_registration"`
	jwtSecret         string
}

// MediaConfig contains media asset storage configuration
type MediaConfig struct {
	AudioDir         string   `toml:"audio_dir"`
	CoverDir         string   `toml:"cover_dir"`
	SupportedFormats []string `toml:"supported_formats"`
	MaxUploadMB      int64    `toml:"max_upload_mb"`
	WatchForChanges  bool     `toml:"watch_for_changes"`
	ScanOnStartup    bool     `toml:"scan_on_startup"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	RequestLogging bool   `toml:"request_logging"`
}

// NgrokConfig contains ngrok tunnel configuration
type NgrokConfig struct {
	Enabled   bool   `toml:"enabled"`
	AuthToken string `toml:"auth_token"`
	Domain    string `toml:"domain"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			Host:        "0.0.0.0",
			EnableCORS:  true,
			CORSOrigins: []string{"*"},
			ReadTimeout: 30,
		},
		Database: DatabaseConfig{
			Path:           "./sonata.db",
			MaxConnections: 5,
		},
		Auth: AuthConfig{
			TokenTTLHours:     72,
			AllowRegistration: true,
		},
		Media: MediaConfig{
			AudioDir:         "./media/audio",
			CoverDir:         "./media/covers",
			SupportedFormats: []string{".flac", ".mp3", ".wav", ".m4a"},
			MaxUploadMB:      50,
			WatchForChanges:  true,
			ScanOnStartup:    true,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			RequestLogging: true,
		},
		Ngrok: NgrokConfig{
			Enabled: false,
		},
	}
}

// LoadConfig loads configuration from the given TOML file, creating it with
// defaults if it does not exist. A .env file in the working directory is
// loaded first so secrets can be supplied outside the config file.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	} else if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Auth.jwtSecret = os.Getenv("SONATA_JWT_SECRET")

	return cfg, nil
}

// Save writes the configuration to the given path as TOML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return toml.NewEncoder(file).Encode(c)
}

// GetAddress returns the host:port the server should bind to.
func (c *Config) GetAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// JWTSecret returns the token signing secret, falling back to a development
// default so a fresh checkout still starts.
func (c *AuthConfig) JWTSecret() []byte {
	if c.jwtSecret == "" {
		return []byte("sonata-dev-secret")
	}
	return []byte(c.jwtSecret)
}
