package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Driver:   DriverPostgres,
			Host:     "localhost",
			Port:     5432,
			Database: "wmbs_db",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			Exchange: ExchangeConfig{Name: "jobgroup_events"},
		},
		Monitor: MonitorConfig{
			PollInterval: 30 * time.Second,
			Concurrency:  4,
			PageSize:     100,
		},
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, DriverPostgres, cfg.Database.Driver)
			assert.Equal(t, "localhost", cfg.Database.Host)
			assert.Equal(t, 5432, cfg.Database.Port)
			assert.Equal(t, "wmbs_db", cfg.Database.Database)
			assert.Equal(t, "jobgroup_events", cfg.RabbitMQ.Exchange.Name)
			assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
			assert.Equal(t, 168*time.Hour, cfg.Redis.TTL)
			assert.Equal(t, 30*time.Second, cfg.Monitor.PollInterval)
			assert.Equal(t, 8, cfg.Monitor.Concurrency)
			assert.Equal(t, "jobgroup-api", cfg.App.Name)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JOBGROUP_SERVER_PORT", "9090")
	t.Setenv("JOBGROUP_DB_HOST", "db.internal")
	t.Setenv("JOBGROUP_DB_NAME", "wmbs_prod")
	t.Setenv("JOBGROUP_RABBITMQ_EXCHANGE_NAME", "prod_events")
	t.Setenv("JOBGROUP_MONITOR_POLL_INTERVAL", "5s")
	t.Setenv("JOBGROUP_LOG_LEVEL", "debug")

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "wmbs_prod", cfg.Database.Database)
	assert.Equal(t, "prod_events", cfg.RabbitMQ.Exchange.Name)
	assert.Equal(t, 5*time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// untouched values keep the file's setting
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "jobgroup.status", cfg.RabbitMQ.RoutingKey)
}

func TestLoad_EnvOverrideInvalid(t *testing.T) {
	t.Setenv("JOBGROUP_SERVER_PORT", "not-a-port")

	cfg, err := Load("testdata/valid_config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to apply environment overrides")
	assert.Nil(t, cfg)
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:   "rabbitmq is not required",
			mutate: func(c *Config) { c.RabbitMQ = RabbitMQConfig{} },
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "invalid database port",
			mutate:    func(c *Config) { c.Database.Port = 0 },
			wantErr:   true,
			errString: "invalid database port",
		},
		{
			name:      "empty database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name: "sqlite needs only a path",
			mutate: func(c *Config) {
				c.Database = DatabaseConfig{Driver: DriverSQLite, Path: "/tmp/wmbs.db"}
			},
		},
		{
			name:      "sqlite without path",
			mutate:    func(c *Config) { c.Database = DatabaseConfig{Driver: DriverSQLite} },
			wantErr:   true,
			errString: "database path is required",
		},
		{
			name:      "unsupported driver",
			mutate:    func(c *Config) { c.Database.Driver = "mysql" },
			wantErr:   true,
			errString: "unsupported database driver: mysql",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateMonitorConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:   "server port is not required",
			mutate: func(c *Config) { c.Server.Port = 0 },
		},
		{
			name:      "database is checked",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "empty rabbitmq host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name:      "invalid rabbitmq port",
			mutate:    func(c *Config) { c.RabbitMQ.Port = 65536 },
			wantErr:   true,
			errString: "invalid rabbitmq port",
		},
		{
			name:      "empty exchange name",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
		{
			name:      "zero poll interval",
			mutate:    func(c *Config) { c.Monitor.PollInterval = 0 },
			wantErr:   true,
			errString: "monitor poll_interval must be greater than 0",
		},
		{
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Monitor.Concurrency = 0 },
			wantErr:   true,
			errString: "monitor concurrency must be greater than 0",
		},
		{
			name:      "zero page size",
			mutate:    func(c *Config) { c.Monitor.PageSize = 0 },
			wantErr:   true,
			errString: "monitor page_size must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateMonitorConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)

		require.NoError(t, cfg.ValidateAPIConfig())
		require.NoError(t, cfg.ValidateMonitorConfig())
	})

	t.Run("load sqlite config", func(t *testing.T) {
		cfg, err := Load("testdata/sqlite_config.yaml")
		require.NoError(t, err)

		assert.Equal(t, DriverSQLite, cfg.Database.Driver)
		assert.True(t, cfg.Database.AutoMigrate)
		require.NoError(t, cfg.ValidateAPIConfig())
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}
