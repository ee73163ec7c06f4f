package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Env    string       `yaml:"env"`
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Log    LogConfig    `yaml:"log"`
	Auth   AuthConfig   `yaml:"auth"`
	IDs    IDConfig     `yaml:"ids"`
}

type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type AuthConfig struct {
	TokenTTL time.Duration `yaml:"token_ttl"`
	// SweepInterval is how often expired tokens are purged. Zero disables it.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type IDConfig struct {
	NodeID int64 `yaml:"node_id"`
}

// Addr is the listen address of the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Env: "development",
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		DB: DBConfig{
			Path: "reporting.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Auth: AuthConfig{
			TokenTTL:      10 * time.Hour,
			SweepInterval: time.Hour,
		},
		IDs: IDConfig{
			NodeID: 1,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and
// environment variables, in that order. In development a .env file is
// loaded into the environment first.
func Load() (Config, error) {
	if env := os.Getenv("REPORTING_ENV"); env == "" || env == "development" {
		_ = godotenv.Load(".env")
	}

	cfg := Default()

	if path := os.Getenv("REPORTING_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if env := os.Getenv("REPORTING_ENV"); env != "" {
		cfg.Env = env
	}
	if host := os.Getenv("REPORTING_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("REPORTING_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid REPORTING_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if origins := os.Getenv("REPORTING_CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = splitList(origins)
	}
	if dbPath := os.Getenv("REPORTING_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("REPORTING_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if format := os.Getenv("REPORTING_LOG_FORMAT"); format != "" {
		cfg.Log.Format = format
	}
	if ttl := os.Getenv("REPORTING_TOKEN_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("invalid REPORTING_TOKEN_TTL: %w", err)
		}
		cfg.Auth.TokenTTL = d
	}
	if sweep := os.Getenv("REPORTING_TOKEN_SWEEP_INTERVAL"); sweep != "" {
		d, err := time.ParseDuration(sweep)
		if err != nil {
			return fmt.Errorf("invalid REPORTING_TOKEN_SWEEP_INTERVAL: %w", err)
		}
		cfg.Auth.SweepInterval = d
	}
	if nodeStr := os.Getenv("REPORTING_NODE_ID"); nodeStr != "" {
		node, err := strconv.ParseInt(nodeStr, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid REPORTING_NODE_ID: %w", err)
		}
		cfg.IDs.NodeID = node
	}
	return nil
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.DB.Path == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	if c.Auth.SweepInterval < 0 {
		return fmt.Errorf("token sweep interval must not be negative")
	}
	// snowflake reserves 10 bits for the node
	if c.IDs.NodeID < 0 || c.IDs.NodeID > 1023 {
		return fmt.Errorf("node id %d out of range 0-1023", c.IDs.NodeID)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
