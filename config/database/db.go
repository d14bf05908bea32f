package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"docsearch/pkg/logger"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Connect opens the database named by url and pings it, retrying up to
// retries times with delay between attempts.
func Connect(ctx context.Context, url string, retries int, delay time.Duration) (*sql.DB, Dialect, error) {
	dialect, dsn, err := ParseURL(url)
	if err != nil {
		return nil, Dialect{}, err
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("failed to open database connection: %w", err)
	}
	if dialect.Name == SQLite {
		// SQLite allows a single writer; serialize through one connection
		// instead of surfacing SQLITE_BUSY to concurrent requests.
		db.SetMaxOpenConns(1)
	}

	if retries < 1 {
		retries = 1
	}
	for i := 0; i < retries; i++ {
		if err = db.PingContext(ctx); err == nil {
			logger.Sugar.Infof("Successfully connected to the %s database", dialect.Name)
			return db, dialect, nil
		}
		if i == retries-1 {
			break
		}
		logger.Sugar.Infof("Database connection failed, retrying in %s... (%v)", delay, err)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, Dialect{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	db.Close()
	return nil, Dialect{}, fmt.Errorf("could not connect to database after %d attempts: %w", retries, err)
}

// ParseURL resolves the dialect for a database URL and returns the DSN to
// hand to the driver. PostgreSQL URLs pass through unchanged; sqlite://path
// is reduced to the file path.
func ParseURL(url string) (Dialect, string, error) {
	url = strings.TrimSpace(url)
	switch {
	case url == "":
		return Dialect{}, "", fmt.Errorf("empty database URL")
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return Postgres(), url, nil
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			return Dialect{}, "", fmt.Errorf("sqlite URL %q has no path", url)
		}
		return SQLiteDialect(), withSQLitePragmas(path), nil
	case url == "sqlite::memory:":
		return SQLiteDialect(), ":memory:", nil
	case strings.HasPrefix(url, "file:"):
		return SQLiteDialect(), withSQLitePragmas(url), nil
	}
	scheme, _, _ := strings.Cut(url, ":")
	return Dialect{}, "", fmt.Errorf("unsupported database URL scheme %q", scheme)
}

func withSQLitePragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}
