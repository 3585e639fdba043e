package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"turbo-delete/internal/safety"
)

// Environment overrides
const (
	EnvConfigPath = "TURBO_DELETE_CONFIG"
	EnvWorkers    = "TURBO_DELETE_WORKERS"
	EnvJWTSecret  = "TURBO_DELETE_JWT_SECRET"
)

type EngineCfg struct {
	Workers         int  `yaml:"workers" json:"workers"`                     // Parallel file removers (default: NumCPU)
	BatchSize       int  `yaml:"batch_size" json:"batch_size"`               // Progress emission interval (default: 100)
	SkipOwnership   bool `yaml:"skip_ownership" json:"skip_ownership"`       // Do not reclaim ownership before deleting directories
	MaxSkippedItems int  `yaml:"max_skipped_items" json:"max_skipped_items"` // Skipped entries kept per run (default: 1000)
}

type SafetyCfg struct {
	SystemRootEnv  string   `yaml:"system_root_env" json:"system_root_env"` // Variable naming the OS installation root (default: SystemRoot)
	ExtraProtected []string `yaml:"extra_protected" json:"extra_protected"` // Additional subtrees that may never be deleted
}

type LoggingCfg struct {
	Dir          string `yaml:"dir" json:"dir"`
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
	Level        string `yaml:"level" json:"level"`
}

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"`
}

type ServerCfg struct {
	Addr         string        `yaml:"addr" json:"addr"`
	RateLimit    float64       `yaml:"rate_limit" json:"rate_limit"` // Requests per second per client
	RateBurst    int           `yaml:"rate_burst" json:"rate_burst"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	JWTSecret    string        `yaml:"jwt_secret" json:"-"`
	JWTExpiry    time.Duration `yaml:"jwt_expiry" json:"jwt_expiry"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"` // Serve HTTPS when both files are set
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
}

type Config struct {
	Engine       EngineCfg     `yaml:"engine" json:"engine"`
	Safety       SafetyCfg     `yaml:"safety" json:"safety"`
	Logging      LoggingCfg    `yaml:"logging" json:"logging"`
	Prometheus   PrometheusCfg `yaml:"prometheus" json:"prometheus"`
	DatabasePath string        `yaml:"database_path" json:"database_path"` // Path to SQLite database for run history
	Server       ServerCfg     `yaml:"server" json:"server"`
}

var (
	ErrInvalidConfig = errors.New("invalid configuration")

	errNegativeWorkers = fmt.Errorf("%w: engine.workers cannot be negative", ErrInvalidConfig)
	errBadLevel        = fmt.Errorf("%w: unknown logging.level", ErrInvalidConfig)
	errBadPort         = fmt.Errorf("%w: prometheus.port out of range", ErrInvalidConfig)
	errBadRate         = fmt.Errorf("%w: server.rate_limit cannot be negative", ErrInvalidConfig)
	errHalfTLS         = fmt.Errorf("%w: server.tls_cert_file and server.tls_key_file must be set together", ErrInvalidConfig)
)

// LoadEnv loads .env files into the process environment. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// Resolve picks the config path: the explicit flag value, then
// TURBO_DELETE_CONFIG, then DefaultPath().
func Resolve(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultPath()
}

// Load reads the YAML file at path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if cfg, err = decode(f); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("open config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a validated configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	_ = cfg.validateAndDefault()
	return cfg
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.Workers = n
		}
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.Server.JWTSecret = v
	}
}

func (c *Config) validateAndDefault() error {
	if c.Engine.Workers < 0 {
		return errNegativeWorkers
	}
	if c.Engine.Workers == 0 {
		c.Engine.Workers = runtime.NumCPU()
	}
	if c.Engine.BatchSize <= 0 {
		c.Engine.BatchSize = 100
	}
	if c.Engine.MaxSkippedItems <= 0 {
		c.Engine.MaxSkippedItems = 1000
	}

	if c.Safety.SystemRootEnv == "" {
		c.Safety.SystemRootEnv = safety.SystemRootEnv
	}

	if c.Logging.Dir == "" {
		c.Logging.Dir = filepath.Join(dataDir(), "logs")
	}
	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30 // Default: keep logs for 30 days
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		return fmt.Errorf("%w: %q", errBadLevel, c.Logging.Level)
	}

	if c.Prometheus.Port == 0 {
		c.Prometheus.Port = 9090
	}
	if c.Prometheus.Port < 0 || c.Prometheus.Port > 65535 {
		return errBadPort
	}

	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(dataDir(), "history.db")
	}

	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8787"
	}
	if c.Server.RateLimit < 0 {
		return errBadRate
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 10
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = 20
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}
	if c.Server.JWTExpiry <= 0 {
		c.Server.JWTExpiry = 24 * time.Hour
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return errHalfTLS
	}

	// Our own state must never be a deletion target
	c.Safety.ExtraProtected = appendUnique(c.Safety.ExtraProtected,
		filepath.Dir(c.DatabasePath), c.Logging.Dir)

	return nil
}

// SystemRoot resolves the OS installation root from the configured variable
func (c *Config) SystemRoot() string {
	return safety.SystemRootFromEnv(c.Safety.SystemRootEnv)
}

// LogLevel returns the parsed logging level
func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}

// DefaultPath is the config file location when none is given
func DefaultPath() string {
	return filepath.Join(dataDir(), "config.yaml")
}

func dataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "turbo-delete")
	}
	return filepath.Join(os.TempDir(), "turbo-delete")
}

func appendUnique(list []string, items ...string) []string {
	seen := make(map[string]bool, len(list))
	for _, p := range list {
		seen[p] = true
	}
	for _, p := range items {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		list = append(list, p)
	}
	return list
}
