package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log"
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

// DatabaseConfiguration holds the PostgreSQL connection parameters.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
}

// NewDatabaseConfiguration reads the configuration from the environment. A
// .env file in the working directory is loaded first when present.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		Database: os.Getenv("DB_DATABASE"),
		Username: os.Getenv("DB_USERNAME"),
		Password: os.Getenv("DB_PASSWORD"),
		Schema:   os.Getenv("DB_SCHEMA"),
	}

	if config.Host == "" || config.Port == "" || config.Database == "" || config.Username == "" {
		return nil, fmt.Errorf("incomplete database configuration, need DB_HOST, DB_PORT, DB_DATABASE and DB_USERNAME")
	}
	if config.Schema == "" {
		config.Schema = "public"
	}

	return config, nil
}

// Database wraps the sql connection together with the logger the handlers
// log to.
type Database struct {
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens a connection for the named service and panics when the
// database is unreachable.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	connStr := fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s search_path=%s sslmode=disable",
		config.Host,
		config.Port,
		config.Database,
		config.Username,
		config.Password,
		config.Schema,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Panicf("error opening database %s: %v", name, err)
	}

	if err := db.Ping(); err != nil {
		log.Panicf("error connecting to database %s: %v", name, err)
	}

	logger.Info("Connected to database", slog.String("name", name))

	return &Database{
		Instance: db,
		Logger:   logger,
	}
}

// NewTestDatabase opens a connection with a quiet logger for tests.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	opts := PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelError,
		},
	}
	logger := slog.New(NewPrettyHandler(os.Stdout, opts))

	return NewDatabase("test", config, logger)
}

// SetTestDatabaseConfigEnvs points the database configuration at the test
// container listening on port.
func SetTestDatabaseConfigEnvs(t *testing.T, port string) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", port)
	t.Setenv("DB_DATABASE", "prepper_test")
	t.Setenv("DB_USERNAME", "postgres")
	t.Setenv("DB_PASSWORD", "postgres")
	t.Setenv("DB_SCHEMA", "public")
}

// MustStartPostgresContainer starts a disposable PostgreSQL container with the
// pgvector extension available and returns its teardown function together
// with the mapped port.
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	container, err := postgres.Run(
		context.Background(),
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("prepper_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", err
	}

	mappedPort, err := container.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return container.Terminate, "", err
	}

	return container.Terminate, mappedPort.Port(), nil
}
