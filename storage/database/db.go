package database

import (
	"context"
	"embed"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/trezcool/academibot/core"
)

// Engines
const (
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
)

// MemoryName opens a private in-memory sqlite database.
const MemoryName = ":memory:"

//go:embed migrations
var migrations embed.FS

var (
	// errors
	ErrUnknownEngine = errors.New("unknown database engine")

	// mockable funcs
	gooseRunFunc = goose.RunContext
)

func init() {
	sqlx.BindDriver(EngineSQLite, sqlx.QUESTION)
}

func sqliteDSN(name string) string {
	if name == MemoryName {
		return name + "?_pragma=foreign_keys(1)"
	}
	return name + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
}

func postgresDSN(conf core.DatabaseConfig) string {
	sslMode := "require"
	if conf.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   EnginePostgres,
		User:     url.UserPassword(conf.User, conf.Password),
		Host:     conf.Address(),
		Path:     conf.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open connects to the configured database and waits for it to answer.
func Open(conf core.DatabaseConfig) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch conf.Engine {
	case EngineSQLite:
		db, err = sqlx.Open(EngineSQLite, sqliteDSN(conf.Name))
		if err == nil && conf.Name == MemoryName {
			// every connection would get its own database
			db.SetMaxOpenConns(1)
		}
	case EnginePostgres:
		db, err = sqlx.Open(EnginePostgres, postgresDSN(conf))
	default:
		return nil, errors.Wrap(ErrUnknownEngine, conf.Engine)
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func dialect(driverName string) (goose.Dialect, string, error) {
	switch driverName {
	case EngineSQLite:
		return goose.DialectSQLite3, "migrations/sqlite", nil
	case EnginePostgres:
		return goose.DialectPostgres, "migrations/postgres", nil
	}
	return "", "", errors.Wrap(ErrUnknownEngine, driverName)
}

// Run executes a goose command ("up", "down", "status", "version", ...) with the embedded migrations.
func Run(ctx context.Context, db *sqlx.DB, command string, args ...string) error {
	d, dir, err := dialect(db.DriverName())
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrations)
	if err = goose.SetDialect(string(d)); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}

	if err = gooseRunFunc(ctx, strings.ToLower(command), db.DB, dir, args...); err != nil {
		return errors.Wrapf(err, "running migration command %q", command)
	}
	return nil
}

func Migrate(ctx context.Context, db *sqlx.DB) error {
	if err := Run(ctx, db, "up"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
