package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabaseConfiguration(t *testing.T) {
	t.Run("Load configuration from environment", func(t *testing.T) {
		t.Setenv("FABULA_DB_HOST", "localhost")
		t.Setenv("FABULA_DB_PORT", "5432")
		t.Setenv("FABULA_DB_USER", "fabula")
		t.Setenv("FABULA_DB_PASSWORD", "secret")
		t.Setenv("FABULA_DB_NAME", "fabula")
		t.Setenv("FABULA_DB_SSLMODE", "")

		config, err := NewDatabaseConfiguration()
		require.NoError(t, err, "Expected configuration to load")

		assert.Equal(t, "localhost", config.Host, "Expected host from environment")
		assert.Equal(t, "5432", config.Port, "Expected port from environment")
		assert.Equal(t, "disable", config.SSLMode, "Expected sslmode to default to disable")
	})

	t.Run("Missing required variables returns error", func(t *testing.T) {
		t.Setenv("FABULA_DB_HOST", "")
		t.Setenv("FABULA_DB_PORT", "")
		t.Setenv("FABULA_DB_USER", "")
		t.Setenv("FABULA_DB_NAME", "")

		_, err := NewDatabaseConfiguration()
		assert.Error(t, err, "Expected error for missing configuration")
	})

	t.Run("Connection string contains all settings", func(t *testing.T) {
		config := &DatabaseConfiguration{
			Host:     "db.local",
			Port:     "5433",
			User:     "writer",
			Password: "pw",
			Name:     "stories",
			SSLMode:  "disable",
		}

		assert.Equal(t,
			"host=db.local port=5433 user=writer password=pw dbname=stories sslmode=disable",
			config.ConnectionString(),
			"Expected lib/pq connection string")
	})
}
