package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/medgen-mcp-server/internal/domain"
)

// DB wraps a database/sql pool with the dialect it speaks.
type DB struct {
	SQL     *sql.DB
	Dialect Dialect
	log     *logrus.Logger
}

// NewConnection opens and pings a connection pool for one resolved section.
func NewConnection(ctx context.Context, config domain.DatabaseConfig, logger *logrus.Logger) (*DB, error) {
	dialect, err := DialectFor(config.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := DSN(config)
	if err != nil {
		return nil, fmt.Errorf("building dsn: %w", err)
	}

	pool, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", dialect.Name, err)
	}

	if config.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, &domain.QueryError{SQL: "ping", Err: fmt.Errorf("pinging %s database %s: %w", dialect.Name, config.Dataset, err)}
	}

	logger.WithFields(logrus.Fields{
		"driver":         dialect.Name,
		"host":           config.Host,
		"port":           config.Port,
		"dataset":        config.Dataset,
		"max_open_conns": config.MaxOpenConns,
	}).Info("Database connection pool established")

	return &DB{SQL: pool, Dialect: dialect, log: logger}, nil
}

// Wrap adapts an already open pool, e.g. one from sqlmock.
func Wrap(pool *sql.DB, dialect Dialect, logger *logrus.Logger) *DB {
	return &DB{SQL: pool, Dialect: dialect, log: logger}
}

// Close closes the database connection pool
func (db *DB) Close() error {
	if db.SQL == nil {
		return nil
	}
	if err := db.SQL.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	db.log.WithField("driver", db.Dialect.Name).Info("Database connection pool closed")
	return nil
}

// Health checks the database connection health
func (db *DB) Health(ctx context.Context) error {
	return db.SQL.PingContext(ctx)
}

// Stats returns connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.SQL.Stats()
}

// DSN renders the driver-specific data source name of a section.
func DSN(config domain.DatabaseConfig) (string, error) {
	dialect, err := DialectFor(config.Driver)
	if err != nil {
		return "", err
	}

	switch dialect.Name {
	case MySQL.Name:
		cfg := mysql.NewConfig()
		cfg.User = config.User
		cfg.Passwd = config.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(config.Host, strconv.Itoa(port(config, 3306)))
		cfg.DBName = config.Dataset
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		cfg.Params = map[string]string{"charset": "utf8mb4"}
		return cfg.FormatDSN(), nil
	case SQLite.Name:
		if config.Dataset == "" {
			return "", domain.InvalidArgument("sqlite dataset path is required")
		}
		return config.Dataset, nil
	default:
		return postgresURL(config), nil
	}
}

// MigrationURL renders the golang-migrate database URL of a section.
func MigrationURL(config domain.DatabaseConfig) (string, error) {
	dialect, err := DialectFor(config.Driver)
	if err != nil {
		return "", err
	}

	switch dialect.Name {
	case MySQL.Name:
		dsn, err := DSN(config)
		if err != nil {
			return "", err
		}
		return "mysql://" + dsn, nil
	case SQLite.Name:
		if config.Dataset == "" {
			return "", domain.InvalidArgument("sqlite dataset path is required")
		}
		return "sqlite://" + config.Dataset, nil
	default:
		return postgresURL(config), nil
	}
}

// postgresURL is understood by lib/pq, pgx and golang-migrate alike, and
// escapes credentials that a key/value DSN would need quoted.
func postgresURL(config domain.DatabaseConfig) string {
	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(config.User, config.Password),
		Host:     net.JoinHostPort(config.Host, strconv.Itoa(port(config, 5432))),
		Path:     "/" + config.Dataset,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

func port(config domain.DatabaseConfig, fallback int) int {
	if config.Port > 0 {
		return config.Port
	}
	return fallback
}
