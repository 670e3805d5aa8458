package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	oauthmigrations "github.com/goliatone/go-oauth/migrations"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// ConnectionConfig describes the database the stores run against. It
// satisfies the persistence client configuration contract.
type ConnectionConfig struct {
	Driver      string
	DSN         string
	Debug       bool
	PingTimeout time.Duration
	// Migrate applies the embedded schema migrations after connecting.
	Migrate bool
}

func (c ConnectionConfig) GetDebug() bool {
	return c.Debug
}

func (c ConnectionConfig) GetDriver() string {
	return c.Driver
}

func (c ConnectionConfig) GetServer() string {
	return c.DSN
}

func (c ConnectionConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c ConnectionConfig) GetOtelIdentifier() string {
	return "go-oauth"
}

// Open connects to the configured database and, when requested, applies the
// migrations for its dialect.
func Open(ctx context.Context, cfg ConnectionConfig) (*persistence.Client, error) {
	driver := normalizeDriver(cfg.Driver)
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required")
	}

	migrationDialect, err := oauthmigrations.DialectFor(driver)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}
	var dialect schema.Dialect
	if migrationDialect == oauthmigrations.DialectPostgres {
		dialect = pgdialect.New()
	} else {
		dialect = sqlitedialect.New()
	}
	cfg.Driver = driver

	sqlDB, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}
	if !cfg.Migrate {
		return client, nil
	}
	if err := Migrate(ctx, client, migrationDialect); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// OpenSQLite opens a SQLite database and applies the schema.
func OpenSQLite(ctx context.Context, dsn string) (*persistence.Client, error) {
	return Open(ctx, ConnectionConfig{Driver: DriverSQLite, DSN: dsn, Migrate: true})
}

// OpenPostgres opens a Postgres database and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*persistence.Client, error) {
	return Open(ctx, ConnectionConfig{Driver: DriverPostgres, DSN: dsn, Migrate: true})
}

// Migrate registers the embedded migrations for dialect and runs them.
func Migrate(ctx context.Context, client *persistence.Client, dialect string) error {
	if client == nil {
		return fmt.Errorf("sqlstore: persistence client is required")
	}
	_, err := oauthmigrations.Register(ctx, func(_ context.Context, registered string, _ string, fsys fs.FS) error {
		if registered != dialect {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, oauthmigrations.WithValidationTargets(dialect))
	if err != nil {
		return fmt.Errorf("sqlstore: register migrations: %w", err)
	}
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}

func normalizeDriver(driver string) string {
	switch strings.TrimSpace(strings.ToLower(driver)) {
	case "postgres", "postgresql", "pg":
		return DriverPostgres
	case "sqlite", "sqlite3":
		return DriverSQLite
	default:
		return strings.TrimSpace(strings.ToLower(driver))
	}
}
