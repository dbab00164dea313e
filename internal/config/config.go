package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535

	// EnvPrefix prefixes every environment override, e.g. JOBGROUP_DB_HOST
	EnvPrefix = "JOBGROUP_"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq" envPrefix:"RABBITMQ_"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"REDIS_"`
	Logging  LoggingConfig  `yaml:"logging" envPrefix:"LOG_"`
	App      AppConfig      `yaml:"app" envPrefix:"APP_"`
	Monitor  MonitorConfig  `yaml:"monitor" envPrefix:"MONITOR_"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// DatabaseConfig selects the SQL driver and holds its connection settings.
// Path is only used by sqlite3; the network fields only by postgres.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" env:"DRIVER"`
	Path            string        `yaml:"path" env:"PATH"`
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	User            string        `yaml:"user" env:"USER"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	Database        string        `yaml:"database" env:"NAME"`
	SSLMode         string        `yaml:"sslmode" env:"SSLMODE"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME"`
	AutoMigrate     bool          `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
}

// RabbitMQConfig holds the connection and exchange used to publish status events
type RabbitMQConfig struct {
	Host       string           `yaml:"host" env:"HOST"`
	Port       int              `yaml:"port" env:"PORT"`
	User       string           `yaml:"user" env:"USER"`
	Password   string           `yaml:"password" env:"PASSWORD"`
	VHost      string           `yaml:"vhost" env:"VHOST"`
	Exchange   ExchangeConfig   `yaml:"exchange" envPrefix:"EXCHANGE_"`
	RoutingKey string           `yaml:"routing_key" env:"ROUTING_KEY"`
	Connection ConnectionConfig `yaml:"connection" envPrefix:"CONNECTION_"`
	Publish    PublishConfig    `yaml:"publish" envPrefix:"PUBLISH_"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name" env:"NAME"`
	Type       string `yaml:"type" env:"TYPE"`
	Durable    bool   `yaml:"durable" env:"DURABLE"`
	AutoDelete bool   `yaml:"auto_delete" env:"AUTO_DELETE"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`
	RetryInterval     time.Duration `yaml:"retry_interval" env:"RETRY_INTERVAL"`
	Heartbeat         time.Duration `yaml:"heartbeat" env:"HEARTBEAT"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout" env:"TIMEOUT"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`
	RetryInterval     time.Duration `yaml:"retry_interval" env:"RETRY_INTERVAL"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" env:"BACKOFF_MULTIPLIER"`
}

// RedisConfig holds the connection for the monitor's status ledger.
// An empty Addr selects the in-memory ledger.
type RedisConfig struct {
	Addr      string        `yaml:"addr" env:"ADDR"`
	Password  string        `yaml:"password" env:"PASSWORD"`
	DB        int           `yaml:"db" env:"DB"`
	KeyPrefix string        `yaml:"key_prefix" env:"KEY_PREFIX"`
	TTL       time.Duration `yaml:"ttl" env:"TTL"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level" env:"LEVEL"`
	Format       string `yaml:"format" env:"FORMAT"`
	Output       string `yaml:"output" env:"OUTPUT"`
	EnableCaller bool   `yaml:"enable_caller" env:"ENABLE_CALLER"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name" env:"NAME"`
	Version     string `yaml:"version" env:"VERSION"`
	Environment string `yaml:"environment" env:"ENVIRONMENT"`
}

// MonitorConfig holds status monitor configuration
type MonitorConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	Concurrency     int           `yaml:"concurrency" env:"CONCURRENCY"`
	PageSize        int           `yaml:"page_size" env:"PAGE_SIZE"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	RecordFiles     bool          `yaml:"record_files" env:"RECORD_FILES"`
}

// Load reads and parses the configuration file, then applies JOBGROUP_ environment overrides
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := env.ParseWithOptions(&config, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return &config, nil
}

// ValidateAPIConfig checks the settings the HTTP API needs
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	return c.Database.Validate()
}

// ValidateMonitorConfig checks the settings the status monitor needs
func (c *Config) ValidateMonitorConfig() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.Monitor.PollInterval <= 0 {
		return fmt.Errorf("monitor poll_interval must be greater than 0")
	}

	if c.Monitor.Concurrency <= 0 {
		return fmt.Errorf("monitor concurrency must be greater than 0")
	}

	if c.Monitor.PageSize <= 0 {
		return fmt.Errorf("monitor page_size must be greater than 0")
	}

	return nil
}

// Validate checks the driver-specific connection settings
func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case DriverSQLite:
		if d.Path == "" {
			return fmt.Errorf("database path is required for %s", DriverSQLite)
		}
		return nil
	case DriverPostgres, "":
	default:
		return fmt.Errorf("unsupported database driver: %s", d.Driver)
	}

	if d.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if d.Port < MinPort || d.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", d.Port, MinPort, MaxPort)
	}

	if d.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}
