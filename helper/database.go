package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// DatabaseConfiguration holds the connection settings for Postgres.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// NewDatabaseConfiguration loads the database configuration from FABULA_DB_*
// environment variables, reading a .env file first if one exists.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     os.Getenv("FABULA_DB_HOST"),
		Port:     os.Getenv("FABULA_DB_PORT"),
		User:     os.Getenv("FABULA_DB_USER"),
		Password: os.Getenv("FABULA_DB_PASSWORD"),
		Name:     os.Getenv("FABULA_DB_NAME"),
		SSLMode:  os.Getenv("FABULA_DB_SSLMODE"),
	}

	if config.Host == "" || config.Port == "" || config.User == "" || config.Name == "" {
		return nil, NewError("load database configuration", fmt.Errorf("FABULA_DB_HOST, FABULA_DB_PORT, FABULA_DB_USER and FABULA_DB_NAME must be set"))
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	return config, nil
}

// ConnectionString returns the lib/pq connection string.
func (c *DatabaseConfiguration) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Database bundles a sql.DB connection with its logger.
type Database struct {
	Instance *sql.DB
	Logger   *slog.Logger
	Name     string
}

// NewDatabase opens a Postgres connection and verifies it with a ping.
// It panics if the database is unreachable; startup without a database is
// not a state the storage layer can recover from.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		logger.Error("Failed to open database", slog.String("error", err.Error()))
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("Failed to ping database", slog.String("error", err.Error()))
		panic(err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host))

	return &Database{
		Instance: db,
		Logger:   logger,
		Name:     name,
	}
}

// NewTestDatabase opens a database connection with a discard-free default
// logger, for use in tests.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	logger := slog.New(NewPrettyHandler(os.Stdout, PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: slog.LevelWarn},
	}))
	return NewDatabase("fabula_test", config, logger)
}

// MustStartPostgresContainer starts a pgvector-enabled Postgres container
// and returns its teardown function and mapped port.
func MustStartPostgresContainer() (func(context.Context, ...testcontainers.TerminateOption) error, string, error) {
	var (
		dbName = "fabula"
		dbUser = "fabula"
		dbPass = "fabula"
	)

	ctx := context.Background()

	container, err := postgres.Run(
		ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPass),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", err
	}

	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return container.Terminate, "", err
	}

	return container.Terminate, port.Port(), nil
}

// SetTestDatabaseConfigEnvs points the FABULA_DB_* environment variables at
// a test container listening on the given port.
func SetTestDatabaseConfigEnvs(t *testing.T, port string) {
	t.Setenv("FABULA_DB_HOST", "localhost")
	t.Setenv("FABULA_DB_PORT", port)
	t.Setenv("FABULA_DB_USER", "fabula")
	t.Setenv("FABULA_DB_PASSWORD", "fabula")
	t.Setenv("FABULA_DB_NAME", "fabula")
	t.Setenv("FABULA_DB_SSLMODE", "disable")
}
