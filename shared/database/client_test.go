package database

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name      string
		driver    string
		config    *Config
		want      string
		errString string
	}{
		{
			name:   "postgres",
			driver: DriverPostgres,
			config: &Config{Host: "db", Port: 5432, User: "u", Password: "p", Database: "videos", SSLMode: "disable"},
			want:   "host=db port=5432 user=u password=p dbname=videos sslmode=disable",
		},
		{
			name:      "sqlite without path",
			driver:    DriverSQLite,
			config:    &Config{},
			errString: "sqlite path is required",
		},
		{
			name:      "unknown driver",
			driver:    "mysql",
			config:    &Config{},
			errString: "unsupported database driver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := buildDSN(tt.driver, tt.config)
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

func TestNewClient_SQLite(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "nested", "videos.db")

	client, err := NewClient(&Config{Driver: DriverSQLite, Path: path}, logger)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, DriverSQLite, client.Driver())
	assert.NoError(t, client.HealthCheck(context.Background()))
	assert.Equal(t, 1, client.GetDB().Stats().MaxOpenConnections)
}
