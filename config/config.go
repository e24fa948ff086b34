package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API           APIConfig           `yaml:"api"`
	Realtime      RealtimeConfig      `yaml:"realtime"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Reconcile     ReconcileConfig     `yaml:"reconcile"`
	Session       SessionConfig       `yaml:"session"`
	Redis         RedisConfig         `yaml:"redis"`
	HTTP          HTTPConfig          `yaml:"http"`
	Log           LogConfig           `yaml:"log"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// APIConfig holds the two REST backends: the server API (auth, users) and
// the flight API (flights, tickets, ratings, airlines).
type APIConfig struct {
	ServerURL      string `yaml:"server_url"`
	FlightURL      string `yaml:"flight_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type RealtimeConfig struct {
	URL                  string `yaml:"url"`
	Transport            string `yaml:"transport"`
	MaxReconnectAttempts int    `yaml:"max_reconnect_attempts"`
	DiscardStaleEvents   bool   `yaml:"discard_stale_events"`
}

type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	TopicPrefix string   `yaml:"topic_prefix"`
}

type ReconcileConfig struct {
	IntervalMillis int `yaml:"interval_ms"`
}

func (r ReconcileConfig) Interval() time.Duration {
	return time.Duration(r.IntervalMillis) * time.Millisecond
}

type SessionConfig struct {
	Store      string `yaml:"store"`
	Path       string `yaml:"path"`
	Profile    string `yaml:"profile"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type NotificationsConfig struct {
	KafkaTopic string `yaml:"kafka_topic"`
}

const (
	TransportSocketIO = "socketio"
	TransportKafka    = "kafka"

	SessionStoreFile   = "file"
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration usable without a file, with env
// overrides applied.
func Default() *Config {
	var cfg Config
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) Validate() error {
	switch c.Realtime.Transport {
	case TransportSocketIO, TransportKafka:
	default:
		return fmt.Errorf("unknown realtime transport %q", c.Realtime.Transport)
	}
	if c.Realtime.Transport == TransportKafka && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka transport requires at least one broker")
	}
	switch c.Session.Store {
	case SessionStoreFile, SessionStoreRedis, SessionStoreMemory:
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	if c.Reconcile.IntervalMillis < 0 {
		return fmt.Errorf("reconcile interval must not be negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.ServerURL == "" {
		c.API.ServerURL = "http://localhost:5001/api"
	}
	if c.API.FlightURL == "" {
		c.API.FlightURL = "http://localhost:5002/api"
	}
	if c.API.TimeoutSeconds == 0 {
		c.API.TimeoutSeconds = 30
	}
	if c.Realtime.URL == "" {
		c.Realtime.URL = "http://localhost:5001"
	}
	if c.Realtime.Transport == "" {
		c.Realtime.Transport = TransportSocketIO
	}
	if c.Realtime.MaxReconnectAttempts == 0 {
		c.Realtime.MaxReconnectAttempts = 5
	}
	if c.Kafka.TopicPrefix == "" {
		c.Kafka.TopicPrefix = "airdash"
	}
	if c.Reconcile.IntervalMillis == 0 {
		c.Reconcile.IntervalMillis = 2000
	}
	if c.Session.Store == "" {
		c.Session.Store = SessionStoreFile
	}
	if c.Session.Path == "" {
		c.Session.Path = defaultSessionPath()
	}
	if c.Session.Profile == "" {
		c.Session.Profile = "default"
	}
	if c.Session.TTLMinutes == 0 {
		c.Session.TTLMinutes = 24 * 60
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = "127.0.0.1:8090"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) applyEnv() {
	setString(&c.API.ServerURL, "AIRDASH_SERVER_URL")
	setString(&c.API.FlightURL, "AIRDASH_FLIGHT_URL")
	setString(&c.Realtime.URL, "AIRDASH_REALTIME_URL")
	setString(&c.Realtime.Transport, "AIRDASH_REALTIME_TRANSPORT")
	setInt(&c.Reconcile.IntervalMillis, "AIRDASH_RECONCILE_INTERVAL_MS")
	setString(&c.Session.Store, "AIRDASH_SESSION_STORE")
	setString(&c.Session.Path, "AIRDASH_SESSION_PATH")
	setString(&c.Redis.Addr, "AIRDASH_REDIS_ADDR")
	setString(&c.HTTP.Address, "AIRDASH_HTTP_ADDRESS")
	setString(&c.Log.Level, "AIRDASH_LOG_LEVEL")
	if v := os.Getenv("AIRDASH_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".airdash-session.json"
	}
	return dir + "/airdash/session.json"
}
