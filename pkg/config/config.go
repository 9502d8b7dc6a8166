package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Supported store backends.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendRaft   = "raft"
)

const (
	DefaultHTTPAddr  = ":5000"
	DefaultRedisHost = "localhost"
	DefaultRedisPort = 6379
	DefaultBoltPath  = "./kvweb.db"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

type Config struct {
	HTTPAddr       string `yaml:"http_addr"`
	GRPCAddr       string `yaml:"grpc_addr"`
	Backend        string `yaml:"backend"`
	RequestLogging bool   `yaml:"request_logging"`
	GopsAgent      bool   `yaml:"gops_agent"`

	Redis RedisConfig `yaml:"redis"`
	Bolt  BoltConfig  `yaml:"bolt"`
	Raft  RaftConfig  `yaml:"raft"`
	Log   LogConfig   `yaml:"log"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Addr returns the host:port pair the Redis client dials.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type BoltConfig struct {
	Path string `yaml:"path"`
}

type RaftConfig struct {
	NodeID string `yaml:"node_id"`
	Addr   string `yaml:"addr"`
	Data   string `yaml:"data"`
	Leader bool   `yaml:"leader"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig loads configuration from a YAML file if path is provided,
// then applies environment variable overrides and defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that makes the config unusable.
func (c *Config) Validate() error {
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid REDIS_PORT value: %d", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid REDIS_DB value: %d", c.Redis.DB)
	}

	switch c.Backend {
	case BackendRedis, BackendMemory, BackendBolt:
	case BackendRaft:
		if c.Raft.NodeID == "" {
			return fmt.Errorf("NODE_ID is required for the raft backend (set via environment or config file)")
		}
		if c.Raft.Addr == "" {
			return fmt.Errorf("RAFT_ADDR is required for the raft backend (set via environment or config file)")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q: want one of redis, memory, bolt, raft", c.Backend)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendRedis
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = DefaultRedisHost
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = DefaultRedisPort
	}
	if cfg.Bolt.Path == "" {
		cfg.Bolt.Path = DefaultBoltPath
	}
	if cfg.Raft.Data == "" && cfg.Raft.NodeID != "" {
		cfg.Raft.Data = fmt.Sprintf("./kvweb-raft/%s", cfg.Raft.NodeID)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// applyEnvOverrides allows environment variables to override YAML config values
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("GRPC_ADDR"); v != "" {
		cfg.GRPCAddr = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("BOLT_PATH"); v != "" {
		cfg.Bolt.Path = v
	}
	if v := os.Getenv("NODE_ID"); v != "" {
		cfg.Raft.NodeID = v
	}
	if v := os.Getenv("RAFT_ADDR"); v != "" {
		cfg.Raft.Addr = v
	}
	if v := os.Getenv("RAFT_DATA"); v != "" {
		cfg.Raft.Data = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"REDIS_PORT", &cfg.Redis.Port},
		{"REDIS_DB", &cfg.Redis.DB},
	}
	for _, e := range ints {
		if v := os.Getenv(e.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", e.name, err)
			}
			*e.dst = n
		}
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"RAFT_LEADER", &cfg.Raft.Leader},
		{"REQUEST_LOGGING", &cfg.RequestLogging},
		{"GOPS_AGENT", &cfg.GopsAgent},
	}
	for _, e := range bools {
		if v := os.Getenv(e.name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", e.name, err)
			}
			*e.dst = b
		}
	}
	return nil
}
