package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendProcess = "process"
	BackendDocker  = "docker"

	// DefaultCommand is the compiler path used by the process backend when
	// LIGO_CMD is unset.
	DefaultCommand = "/app/ligo"
)

type Config struct {
	Server   ServerConfig
	Compiler CompilerConfig
	Workers  WorkersConfig
	Limits   LimitsConfig
	Db       DbConfig
	Log      LogConfig
	Cors     CorsConfig
	Mcp      McpConfig
}

type ServerConfig struct {
	Port         string `env:"PORT" envDefault:"8080"`
	MetricsPort  string `env:"METRICS_PORT" envDefault:"8081"`
	ReadTimeout  int    `env:"SERVER_READ_TIMEOUT" envDefault:"15"`  // seconds
	WriteTimeout int    `env:"SERVER_WRITE_TIMEOUT" envDefault:"30"` // seconds
	IdleTimeout  int    `env:"SERVER_IDLE_TIMEOUT" envDefault:"60"`  // seconds
	// MaxBodyBytes bounds JSON request bodies.
	MaxBodyBytes int64 `env:"SERVER_MAX_BODY_BYTES" envDefault:"1048576"`
	// ShutdownTimeout controls graceful shutdown duration.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// CompilerConfig describes how the external compiler is invoked.
type CompilerConfig struct {
	// Command is the compiler executable, optionally followed by leading
	// arguments. Left empty with the docker backend, the image entrypoint runs.
	Command string `env:"LIGO_CMD"`
	// DataDir is the scratch directory for per-request source files.
	DataDir        string        `env:"DATA_DIR"`
	Timeout        time.Duration `env:"JOB_TIMEOUT" envDefault:"10s"`
	MaxOutputBytes int           `env:"MAX_OUTPUT_BYTES" envDefault:"1048576"`
	Backend        string        `env:"COMPILER_BACKEND" envDefault:"process"`
	Image          string        `env:"LIGO_IMAGE" envDefault:"ligolang/ligo:next"`
}

type WorkersConfig struct {
	Count     int `env:"WORKERS" envDefault:"8"`
	QueueSize int `env:"QUEUE_SIZE" envDefault:"100"`
}

type LimitsConfig struct {
	GlobalRPS     float64 `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"100"`
	PerIPRPS      float64 `env:"RATE_LIMIT_IP_RPS" envDefault:"10"`
	PerIPBurst    int     `env:"RATE_LIMIT_IP_BURST" envDefault:"20"`
	MaxConcurrent int     `env:"RATE_LIMIT_MAX_CONCURRENT" envDefault:"50"`
	// TrustProxy keys per-IP limits on X-Forwarded-For instead of the peer address.
	TrustProxy bool `env:"RATE_LIMIT_TRUST_PROXY" envDefault:"false"`
}

// DbConfig configures the optional share store database. An empty Host
// keeps snapshots in memory.
type DbConfig struct {
	Host     string `env:"DB_HOST"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" envDefault:"ligo"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"console"`
}

type CorsConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

type McpConfig struct {
	Enabled bool   `env:"MCP_ENABLED" envDefault:"false"`
	Path    string `env:"MCP_PATH" envDefault:"/mcp"`
}

func LoadConfig() (*Config, error) {
	conf, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := conf.normalize(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Config) normalize() error {
	c.Compiler.Command = strings.TrimSpace(c.Compiler.Command)
	if c.Compiler.DataDir == "" {
		c.Compiler.DataDir = filepath.Join(os.TempDir(), "ligo-compiler-api")
	}
	dir, err := filepath.Abs(c.Compiler.DataDir)
	if err != nil {
		return fmt.Errorf("invalid DATA_DIR: %w", err)
	}
	c.Compiler.DataDir = dir

	switch c.Compiler.Backend {
	case BackendProcess:
		if c.Compiler.Command == "" {
			c.Compiler.Command = DefaultCommand
		}
	case BackendDocker:
	default:
		return fmt.Errorf("unsupported COMPILER_BACKEND %q", c.Compiler.Backend)
	}
	if c.Compiler.Timeout <= 0 {
		return fmt.Errorf("JOB_TIMEOUT must be positive")
	}
	if c.Workers.Count <= 0 {
		c.Workers.Count = 1
	}
	if c.Workers.QueueSize < 0 {
		c.Workers.QueueSize = 0
	}
	return nil
}
