// Package sqlitedb stores users and favorites in a single SQLite file. It is the
// file-backed alternative to PostgreSQL for local runs.
package sqlitedb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	"modernc.org/sqlite"

	"github.com/patric-chuzhbe/catfinder/internal/db/sqlstore"
	"github.com/patric-chuzhbe/catfinder/internal/models"
)

const (
	// Primary result code of every SQLITE_CONSTRAINT_* extended code.
	sqliteConstraint = 19
	// SQLITE_CONSTRAINT_FOREIGNKEY
	sqliteConstraintForeignKey = 787
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteDB is a SQLite-backed users and favorites storage.
type SQLiteDB struct {
	*sqlstore.Store
}

// New opens (creating if needed) the database file and applies the migrations.
func New(ctx context.Context, fileName string, connectionTimeout time.Duration) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", fileName+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection keeps transactions serialized.
	db.SetMaxOpenConns(1)

	result := &SQLiteDB{
		Store: sqlstore.New(
			db,
			sqlstore.Dialect{
				Rebind:         sqlstore.QuestionMarks,
				TranslateError: translateError,
			},
			connectionTimeout,
		),
	}

	migrationsFS, err := fs.Sub(migrations, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	provider, err := goose.NewProvider(database.DialectSQLite3, db, migrationsFS)
	if err != nil {
		_ = db.Close()
		return nil,
			fmt.Errorf(
				"in internal/db/sqlitedb/sqlitedb.go/New(): error while `goose.NewProvider()` calling: %w",
				err,
			)
	}

	if _, err := provider.Up(ctx); err != nil {
		_ = db.Close()
		return nil,
			fmt.Errorf(
				"in internal/db/sqlitedb/sqlitedb.go/New(): error while `provider.Up()` calling: %w",
				err,
			)
	}

	return result, nil
}

func translateError(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	switch {
	case sqliteErr.Code() == sqliteConstraintForeignKey:
		return fmt.Errorf("%w: %s", models.ErrNotFound, sqliteErr.Error())
	case sqliteErr.Code()&0xff == sqliteConstraint:
		return fmt.Errorf("%w: %s", models.ErrConstraintViolation, sqliteErr.Error())
	}

	return err
}
