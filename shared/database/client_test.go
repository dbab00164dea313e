package database

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		want      string
		errString string
	}{
		{
			name: "postgres",
			config: Config{
				Driver:   DriverPostgres,
				Host:     "localhost",
				Port:     5432,
				User:     "wmbs",
				Password: "secret",
				Database: "wmbs_db",
				SSLMode:  "disable",
			},
			want: "host=localhost port=5432 user=wmbs password=secret dbname=wmbs_db sslmode=disable",
		},
		{
			name:   "empty driver means postgres",
			config: Config{Host: "db", Port: 5432, Database: "x", SSLMode: "require"},
			want:   "host=db port=5432 user= password= dbname=x sslmode=require",
		},
		{
			name:   "sqlite",
			config: Config{Driver: DriverSQLite, Path: "/tmp/wmbs.db"},
			want:   "file:/tmp/wmbs.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate",
		},
		{
			name:      "unsupported",
			config:    Config{Driver: "mysql"},
			errString: "unsupported database driver: mysql",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := tt.config.DSN()
			if tt.errString != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, dsn)
		})
	}
}

func TestClient_SQLite(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	client, err := NewClient(&Config{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "wmbs.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.HealthCheck(ctx))
	assert.Equal(t, DriverSQLite, client.GetDB().DriverName())
	assert.Contains(t, client.Stats(), "OpenConns")

	tx, err := client.BeginTx(ctx)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `CREATE TABLE probe (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	var count int
	err = client.GetDB().GetContext(ctx, &count, `SELECT COUNT(*) FROM sqlite_master WHERE name = 'probe'`)
	require.NoError(t, err)
	assert.Zero(t, count, "rolled back DDL must not be visible")
}

func TestNewClient_UnsupportedDriver(t *testing.T) {
	client, err := NewClient(&Config{Driver: "mysql"}, slog.New(slog.DiscardHandler))
	require.Error(t, err)
	assert.Nil(t, client)
}
