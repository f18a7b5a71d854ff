// Package sqlxrepos implements the repositories over sqlite and postgres with sqlx.
// Queries are written with `?` placeholders and rebound for the connected driver.
package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/trezcool/academibot/core"
)

const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique or primary key constraint failure.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}

// trapNoRowsErr maps the "no rows" err to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

type base struct {
	exec core.DBExecutor
}

func (b base) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return b.exec.GetContext(ctx, dest, b.exec.Rebind(query), args...)
}

func (b base) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return b.exec.SelectContext(ctx, dest, b.exec.Rebind(query), args...)
}

func (b base) execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return b.exec.ExecContext(ctx, b.exec.Rebind(query), args...)
}

// insert runs an `INSERT ... RETURNING id` statement.
func (b base) insert(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var id int64
	err := b.exec.QueryRowxContext(ctx, b.exec.Rebind(query+" RETURNING id"), args...).Scan(&id)
	return id, err
}
